package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/forktv/forkd/internal/log"
	"github.com/forktv/forkd/internal/recdb"
)

// broadcastDayStartHour is the local hour at which a broadcast day begins.
// Programs airing past midnight belong to the previous calendar date's page.
const broadcastDayStartHour = 4

// timetableResponse is the payload of GET /api/fork/video/timetable.
type timetableResponse struct {
	Total            int                      `json:"total"`
	RecordedPrograms []*recdb.RecordedProgram `json:"recorded_programs"`
}

// handleVideoTimetable returns every recorded program whose broadcast window
// overlaps the broadcast day of the requested date.
func (s *Server) handleVideoTimetable(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	raw := r.URL.Query().Get("search_date")
	if raw == "" {
		writeBadRequest(w, "search_date query parameter is required")
		return
	}
	date, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		writeBadRequest(w, "search_date must be formatted as YYYY-MM-DD")
		return
	}

	windowStart := time.Date(date.Year(), date.Month(), date.Day(), broadcastDayStartHour, 0, 0, 0, time.Local)
	windowEnd := windowStart.Add(24 * time.Hour)

	programs, err := s.store.TimetablePrograms(r.Context(), windowStart, windowEnd)
	if err != nil {
		logger.Error().
			Err(err).
			Str("event", "timetable.query_failed").
			Str("search_date", raw).
			Msg("failed to query timetable programs")
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, timetableResponse{
		Total:            len(programs),
		RecordedPrograms: programs,
	})
}

// nextProgramResponse is the payload of GET /api/fork/videos/{video_id}/next.
type nextProgramResponse struct {
	NextProgram *recdb.RecordedProgram `json:"next_program"`
}

// handleNextProgram returns the chronologically next program on the same
// channel, or null when the program has no channel or no successor. An
// unknown id is a 404, never a null successor.
func (s *Server) handleNextProgram(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	id, err := strconv.ParseInt(chi.URLParam(r, "video_id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "video_id must be an integer")
		return
	}

	next, err := s.store.NextProgram(r.Context(), id)
	if errors.Is(err, recdb.ErrNotFound) {
		logger.Warn().
			Int64("video_id", id).
			Str("event", "next.not_found").
			Msg("specified program does not exist")
		writeNotFound(w)
		return
	}
	if err != nil {
		logger.Error().
			Err(err).
			Int64("video_id", id).
			Str("event", "next.query_failed").
			Msg("failed to query next program")
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, nextProgramResponse{NextProgram: next})
}

// cleanRequest is the body of POST /api/fork/clean/database.
type cleanRequest struct {
	FolderPath string `json:"folder_path"`
}

// handleCleanDatabase acknowledges immediately and runs the cleanup pass in
// the background. Faults of the background work are only visible in logs.
func (s *Server) handleCleanDatabase(w http.ResponseWriter, r *http.Request) {
	var req cleanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "request body must be a JSON object")
		return
	}
	if req.FolderPath == "" {
		writeBadRequest(w, "folder_path is required")
		return
	}

	cleanupRunsTotal.Inc()
	// Detached from the request context: the job outlives the response.
	go s.runCleanup(context.Background(), req.FolderPath)

	writeJSON(w, http.StatusOK, "OK")
}
