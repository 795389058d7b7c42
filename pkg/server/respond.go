package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	perrors "github.com/matzehuels/pangraph/pkg/errors"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	respondJSON(w, status, errorResponse{
		Error:   true,
		Code:    string(code),
		Message: perrors.UserMessage(err),
	})
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) (int, perrors.Code) {
	code := perrors.GetCode(err)
	if code == "" {
		var le *perrors.LineError
		if errors.As(err, &le) {
			code = le.Code()
		}
	}
	switch code {
	case perrors.ErrCodeNotFound, perrors.ErrCodeSessionNotFound:
		return http.StatusNotFound, code
	case perrors.ErrCodeInvalidInput, perrors.ErrCodeInvalidPath, perrors.ErrCodeOutOfRange:
		return http.StatusBadRequest, code
	case perrors.ErrCodeMalformedInput, perrors.ErrCodeCorruptCache, perrors.ErrCodeCyclicGraph:
		return http.StatusUnprocessableEntity, code
	case perrors.ErrCodeBusy:
		return http.StatusConflict, code
	case perrors.ErrCodeUnsupported:
		return http.StatusNotImplemented, code
	case "":
		return http.StatusInternalServerError, perrors.ErrCodeInternal
	}
	return http.StatusInternalServerError, code
}

// decode reads a JSON body into v and validates its tags. An empty body
// leaves v at its zero value.
func (s *Server) decode(r *http.Request, v any) error {
	if r.Body != nil && r.ContentLength != 0 {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
			return perrors.Wrap(perrors.ErrCodeInvalidInput, err, "invalid request body")
		}
	}
	if err := s.validate.Struct(v); err != nil {
		return perrors.New(perrors.ErrCodeInvalidInput, "%s", formatValidationError(err))
	}
	return nil
}

func formatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return strings.Join(msgs, "; ")
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
