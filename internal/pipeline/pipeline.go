// Package pipeline orchestrates one full analysis run:
// normalize each batch, concatenate, derive, segment, aggregate, render.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/soundlens/soundlens/internal/derive"
	"github.com/soundlens/soundlens/internal/ingest"
	"github.com/soundlens/soundlens/internal/kpi"
	"github.com/soundlens/soundlens/internal/report"
	"github.com/soundlens/soundlens/internal/session"
)

// Batch is one uploaded export file, unparsed.
type Batch struct {
	Name string
	Data []byte
}

// Result is everything a run produces. Created fresh per run and never
// mutated afterwards; a new upload means a new run.
type Result struct {
	Events   []derive.Event
	Sessions []session.Aggregate
	KPIs     *kpi.Set
	Context  string
	Warnings []string
}

type Pipeline struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{logger: logger}
}

// Run executes the full pipeline over a set of batches. Batches that fail
// to parse are skipped with a warning; the run only fails when no playable
// events remain (kpi.ErrNoData).
func (p *Pipeline) Run(batches []Batch) (*Result, error) {
	res := &Result{}

	var canonical []ingest.Event
	for _, b := range batches {
		events, err := ingest.ParseBatch(b.Data)
		if err != nil {
			if errors.Is(err, ingest.ErrUnknownFormat) {
				p.logger.Warn("skipping batch with unknown format", "batch", b.Name)
				res.Warnings = append(res.Warnings, fmt.Sprintf("%s: unknown export format", b.Name))
			} else {
				p.logger.Warn("skipping unreadable batch", "batch", b.Name, "error", err)
				res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", b.Name, err))
			}
			continue
		}
		canonical = append(canonical, events...)
	}

	derived := derive.Derive(canonical, p.logger)
	session.Segment(derived)
	res.Events = derived
	res.Sessions = session.Aggregates(derived)

	set, err := kpi.Compute(res.Events, res.Sessions)
	if err != nil {
		return nil, err
	}
	res.KPIs = set
	res.Context = report.Build(set)

	p.logger.Info("run complete",
		"batches", len(batches),
		"events", len(res.Events),
		"sessions", len(res.Sessions),
		"skipped_batches", len(res.Warnings),
	)

	return res, nil
}

// RunFiles loads export files from disk and runs the pipeline over them.
// An unreadable file aborts the run; a readable file in an unknown format
// only skips that batch.
func (p *Pipeline) RunFiles(paths []string) (*Result, error) {
	batches := make([]Batch, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		batches = append(batches, Batch{Name: filepath.Base(path), Data: data})
	}
	return p.Run(batches)
}
