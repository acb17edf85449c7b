package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/soundlens/soundlens/internal/events"
	"github.com/soundlens/soundlens/internal/kpi"
	"github.com/soundlens/soundlens/internal/pipeline"
)

const maxUploadBytes = 256 << 20

// createDataset accepts one or more export files as multipart form fields
// named "files", runs the full pipeline over them, and registers the result.
func (s *Server) createDataset(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload: %v", err)
		return
	}

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	var batches []pipeline.Batch
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "open %s: %v", fh.Filename, err)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "read %s: %v", fh.Filename, err)
			return
		}
		batches = append(batches, pipeline.Batch{Name: fh.Filename, Data: data})
	}

	res, err := s.pipe.Run(batches)
	if err != nil {
		if errors.Is(err, kpi.ErrNoData) {
			writeError(w, http.StatusUnprocessableEntity, "no playable events in upload: %v", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "pipeline failed: %v", err)
		return
	}

	id := uuid.New()
	s.mu.Lock()
	s.datasets[id] = res
	s.mu.Unlock()

	if err := s.events.Publish(events.SubjectDatasetIngested, map[string]any{
		"dataset_id": id.String(),
		"events":     len(res.Events),
		"sessions":   len(res.Sessions),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		s.logger.Warn("failed to publish ingest event", "error", err)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":       id.String(),
		"events":   len(res.Events),
		"sessions": len(res.Sessions),
		"warnings": res.Warnings,
	})
}

func (s *Server) getKPIs(w http.ResponseWriter, r *http.Request) {
	res, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res.KPIs)
}

func (s *Server) getContext(w http.ResponseWriter, r *http.Request) {
	res, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"context": res.Context})
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	res, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: %v", err)
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	result := s.qa.Ask(r.Context(), req.Question, res.Context)

	if err := s.events.Publish(events.SubjectQuestionAnswered, map[string]any{
		"question": req.Question,
		"answered": result.Answered,
		"score":    result.Score,
	}); err != nil {
		s.logger.Warn("failed to publish answer event", "error", err)
	}

	writeJSON(w, http.StatusOK, result)
}

// lookup resolves the {id} path parameter to a stored dataset, writing the
// error response itself when it cannot.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*pipeline.Result, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dataset id")
		return nil, false
	}

	s.mu.Lock()
	res, ok := s.datasets[id]
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "dataset %s not found", id)
		return nil, false
	}
	return res, true
}
