// Package session partitions a listening stream into sessions: maximal runs
// of time-ordered events with no inter-event gap above the break threshold.
package session

import (
	"sort"
	"time"

	"github.com/soundlens/soundlens/internal/derive"
)

// BreakThreshold is the inactivity gap that ends a session. A gap must
// strictly exceed it; a gap of exactly 30 minutes stays in the session.
const BreakThreshold = 1800 * time.Second

// Aggregate is the per-session duration rollup.
type Aggregate struct {
	ID           int
	TotalMinutes float64
}

// Segment sorts events ascending by end time and assigns contiguous session
// ids starting at 0 in a single pass. Upload order is not guaranteed
// chronological, so the sort is required, not optional. The input slice is
// sorted and mutated in place and returned for convenience.
func Segment(events []derive.Event) []derive.Event {
	if len(events) == 0 {
		return events
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time.Before(events[j].Time)
	})

	id := 0
	events[0].SessionID = 0
	for i := 1; i < len(events); i++ {
		if events[i].Time.Sub(events[i-1].Time) > BreakThreshold {
			id++
		}
		events[i].SessionID = id
	}
	return events
}

// Aggregates sums per-session durations. Input must already be segmented;
// ids are contiguous from 0, so the result is ordered by session id.
func Aggregates(events []derive.Event) []Aggregate {
	if len(events) == 0 {
		return nil
	}

	last := events[len(events)-1].SessionID
	aggs := make([]Aggregate, last+1)
	for i := range aggs {
		aggs[i].ID = i
	}
	for _, e := range events {
		aggs[e.SessionID].TotalMinutes += e.DurationMinutes
	}
	return aggs
}
