package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details (server-side)
//   - Returned to clients as a message, suggested action and support code
//   - Reported to the error tracker when they are server faults
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls s.respondError(w, r, err)
//  3. Error is mapped via core.MapError to a message, code and status
//  4. Technical error + context is logged with the request id
//  5. User message is rendered as JSON, or as an HTML fragment for pages

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/rwa/internal/core"
	"github.com/JonMunkholm/rwa/internal/logging"
	"github.com/JonMunkholm/rwa/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string       `json:"error"`
	Message string       `json:"message"`
	Action  string       `json:"action,omitempty"`
	Code    string       `json:"code"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// FieldError is a failed validation rule on one request field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// respondError logs err and writes the mapped user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	userMsg := core.MapError(err)

	var fields []FieldError
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields = translateFieldErrors(verrs)
		userMsg = core.MapError(core.ErrInvalidInput)
		userMsg.Message = "Some fields are invalid"
	}
	status := userMsg.Status

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
		s.reporter.Report(r.Context(), err, map[string]interface{}{
			"path":   r.URL.Path,
			"method": r.Method,
			"code":   userMsg.Code,
		})
	} else {
		logger.Info("request rejected", attrs...)
	}

	if wantsJSON(r) {
		respondErrorJSON(w, userMsg, fields)
		return
	}
	renderErrorPartial(w, r, userMsg)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, fields []FieldError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(msg.Status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		Fields:  fields,
	})
}

// renderErrorPartial renders the error as an HTML fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(msg.Status)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		slog.Error("render error alert", "error", err)
	}
}

// wantsJSON reports whether the client expects a JSON response. HTML pages
// (receipts, notice board) get an HTML fragment unless JSON is asked for.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return !isHTMLRoute(r.URL.Path)
}

func isHTMLRoute(path string) bool {
	return strings.HasPrefix(path, "/api/receipts/") || path == "/api/notices"
}
