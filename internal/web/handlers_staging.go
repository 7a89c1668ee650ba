package web

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/rollcall/internal/core"
	"github.com/JonMunkholm/rollcall/internal/logging"
	"github.com/JonMunkholm/rollcall/internal/web/templates"
)

// maxJSONBody bounds the manual-add payload.
const maxJSONBody = 64 << 10

func (s *Server) handleListStaged(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	staged := s.service.ListStaged(userID(r), courseID)
	s.renderStaged(w, r, courseID, staged)
}

// handleAddStaged validates a manually entered student and stages it.
func (s *Server) handleAddStaged(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")

	var req addStudentRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONStatus(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid JSON body",
			Message: "The request body could not be read",
			Code:    "VAL001",
		})
		return
	}
	if fields := validateStruct(req); fields != nil {
		writeJSONStatus(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Message: "Some fields are missing or too long",
			Action:  "Correct the highlighted fields and try again",
			Code:    "VAL001",
			Fields:  fields,
		})
		return
	}

	rec, err := s.service.AddStudent(r.Context(), userID(r), courseID, core.RawRecord{
		StudentID: req.StudentID,
		Name:      req.Name,
		Email:     req.Email,
		Section:   req.Section,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	logging.WithFields(r.Context(), "course_id", courseID).Info("student staged manually")

	if isHTMX(r) {
		s.renderStaged(w, r, courseID, s.service.ListStaged(userID(r), courseID))
		return
	}
	writeJSONStatus(w, http.StatusCreated, rec)
}

func (s *Server) handleRemoveStaged(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		email = chi.URLParam(r, "email")
	}

	if err := s.service.RemoveStaged(userID(r), courseID, email); err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		// The row is swapped out by the client.
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearStaged(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	n := s.service.ClearStaged(userID(r), courseID)
	writeJSON(w, map[string]int{"cleared": n})
}

// handleCommit writes the staged records to the roster.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")

	res, err := s.service.Commit(r.Context(), userID(r), courseID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logger := logging.WithFields(r.Context(), "course_id", courseID)
	if res.PublishErr != nil {
		logger.Warn("failed to publish roster event", "error", res.PublishErr)
	}
	logger.Info("roster committed", "students", res.Committed, "event_id", res.EventID)
	writeJSON(w, res)
}

func (s *Server) handleListRoster(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")

	students, err := s.service.Roster(r.Context(), courseID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"courseId": courseID, "students": students})
}

func (s *Server) renderStaged(w http.ResponseWriter, r *http.Request, courseID string, staged []core.StagedRecord) {
	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.StagedList(courseID, staged).Render(r.Context(), w); err != nil {
			s.respondError(w, r, err)
		}
		return
	}
	writeJSON(w, map[string]any{"courseId": courseID, "staged": staged})
}
