package web

// errors.go provides unified error response handling for the web layer.
//
// Every handler failure goes through respondError, which:
//   - maps the error with core.MapError to a message, action and code
//   - logs the technical error with the request id for correlation
//   - picks the status code from the error's type
//   - renders an HTMX fragment or a JSON body depending on the request

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/rollcall/internal/core"
	"github.com/JonMunkholm/rollcall/internal/logging"
	"github.com/JonMunkholm/rollcall/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
// Error is the one-line display form: "Message (Code: XXX). Action".
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Action  string            `json:"action,omitempty"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// respondError maps err to a user message and writes it with the status
// implied by the error.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	userMsg := core.MapError(err)
	status := statusFor(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request rejected", attrs...)
	}

	var rateErr *core.RateLimitError
	if errors.As(err, &rateErr) {
		w.Header().Set("Retry-After", strconv.Itoa(rateErr.RetryAfter))
	}

	if isHTMX(r) {
		renderErrorPartial(w, r, userMsg, status)
		return
	}
	writeJSONStatus(w, status, ErrorResponse{
		Error:   core.FormatUserError(err),
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	var (
		fileErr     *core.FileError
		encErr      *core.EncodingError
		rateErr     *core.RateLimitError
		recordErr   *core.RecordError
		conflictErr *core.ConflictError
	)
	switch {
	case errors.As(err, &rateErr):
		return http.StatusTooManyRequests
	case errors.As(err, &fileErr):
		if fileErr.Code == core.CodeFileSize {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusUnsupportedMediaType
	case errors.As(err, &recordErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &conflictErr), errors.Is(err, core.ErrDuplicateSubmission):
		return http.StatusConflict
	case errors.As(err, &encErr),
		errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, core.ErrInvalidCSV),
		errors.Is(err, core.ErrNoFile),
		errors.Is(err, core.ErrMissingCourse),
		errors.Is(err, core.ErrNothingStaged):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotStaged):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render error alert", "error", err)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
