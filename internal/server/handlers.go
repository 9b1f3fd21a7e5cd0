package server

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/jonathan/session-indexer/internal/reindex"
	"github.com/jonathan/session-indexer/internal/store"
	"github.com/jonathan/session-indexer/internal/types"
)

// RecommendRequest represents the request body for /recommend
type RecommendRequest struct {
	Profile *types.Profile `json:"profile"`
	Query   store.Query    `json:"query"`
}

// ReindexRequest represents the optional request body for /reindex
type ReindexRequest struct {
	DryRun bool `json:"dry_run"`
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleClassify enriches one raw record without storing it.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var raw types.RawRecord
	if err := decodeJSON(w, r, &raw, false); err != nil {
		s.failResponse(w, r, err)
		return
	}

	rec, err := s.enricher.ClassifyAndEnrich(raw)
	if err != nil {
		s.failResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

// handleRecommend ranks stored sessions against a profile.
func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.failResponse(w, r, err)
		return
	}

	set, err := s.recommender.Recommend(r.Context(), req.Profile, req.Query)
	if err != nil {
		s.failResponse(w, r, err)
		return
	}
	s.metrics.ObserveRecommendations(set)
	s.jsonResponse(w, http.StatusOK, set)
}

// handleCriticalSessions returns a student's onboarding-relevant sessions.
func (s *Server) handleCriticalSessions(w http.ResponseWriter, r *http.Request) {
	student, err := url.PathUnescape(chi.URLParam(r, "student"))
	if err != nil {
		s.failResponse(w, r, &ErrValidation{Field: "student", Message: "malformed student name"})
		return
	}

	out, err := s.recommender.FindCriticalSessionsForStudent(r.Context(), student)
	if err != nil {
		s.failResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, out)
}

// handleGetRecord returns one stored session record.
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := url.PathUnescape(chi.URLParam(r, "externalID"))
	if err != nil || id == "" {
		s.failResponse(w, r, &ErrValidation{Field: "external_id", Message: "an external id is required"})
		return
	}

	rec, err := s.store.GetRecord(r.Context(), id)
	if err != nil {
		s.failResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

// handleReindex runs a reindex to completion and returns its report.
// Disconnecting the client cancels the run at the next batch boundary.
func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	var req ReindexRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		s.failResponse(w, r, err)
		return
	}

	if !s.reindexing.TryLock() {
		s.failResponse(w, r, ErrReindexInProgress)
		return
	}
	defer s.reindexing.Unlock()

	report, err := s.reindexer.ReindexAll(r.Context(), reindex.Options{DryRun: req.DryRun})
	s.metrics.ObserveReindex(report, err)
	if err != nil {
		s.failResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}

// handleReindexStream runs a reindex and streams one "progress" event per batch,
// then a "report" event and a "complete" event.
func (s *Server) handleReindexStream(w http.ResponseWriter, r *http.Request) {
	var req ReindexRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		s.failResponse(w, r, err)
		return
	}

	if !s.reindexing.TryLock() {
		s.failResponse(w, r, ErrReindexInProgress)
		return
	}
	defer s.reindexing.Unlock()

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	report, err := s.reindexer.ReindexAll(r.Context(), reindex.Options{
		DryRun: req.DryRun,
		OnProgress: func(ev reindex.ProgressEvent) {
			if err := sse.WriteEvent("progress", ev); err != nil {
				s.log.Debug("failed to write progress event", "error", err)
			}
		},
	})
	s.metrics.ObserveReindex(report, err)
	if err != nil {
		sse.WriteError(err.Error())
		return
	}

	if err := sse.WriteEvent("report", report); err != nil {
		s.log.Debug("failed to write report event", "error", err)
		return
	}
	status := "completed"
	if report.Cancelled {
		status = "cancelled"
	}
	sse.WriteComplete(report.RunID, status)
}
