package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/fkhayef/splitledger/internal/apperr"
	"github.com/fkhayef/splitledger/pkg/logger"
)

// APIResponse is the standard response wrapper
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// APIError represents an error response
type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Meta contains pagination and other metadata
type Meta struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	Total      int `json:"total,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
}

// JSON sends a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	write(w, status, APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

// JSONWithMeta sends a JSON response with pagination metadata
func JSONWithMeta(w http.ResponseWriter, status int, data interface{}, meta *Meta) {
	write(w, status, APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
		Meta:    meta,
	})
}

// ErrorStatus sends an error JSON response with an explicit status and code
func ErrorStatus(w http.ResponseWriter, status int, code, message string) {
	write(w, status, APIResponse{
		Error: &APIError{Code: code, Message: message},
	})
}

// Error maps a domain error to its HTTP status and sends it. Errors outside
// the apperr taxonomy are logged and reported as INTERNAL_ERROR.
func Error(w http.ResponseWriter, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		logger.Logger.WithError(err).Error("unhandled error")
		InternalError(w, "Internal server error")
		return
	}

	status := StatusOf(e.Code)
	if status >= http.StatusInternalServerError {
		logger.Logger.WithFields(logrus.Fields{
			"code":     e.Code,
			"metadata": e.Metadata,
		}).WithError(err).Error("request failed")
	}
	write(w, status, APIResponse{
		Error: &APIError{Code: string(e.Code), Message: e.Message, Details: e.Metadata},
	})
}

// StatusOf returns the HTTP status for an error code.
func StatusOf(code apperr.Code) int {
	switch {
	case code.IsValidation():
		return http.StatusUnprocessableEntity
	case code == apperr.CodeNotFound:
		return http.StatusNotFound
	case code == apperr.CodeConflict:
		return http.StatusConflict
	case code == apperr.CodeForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func write(w http.ResponseWriter, status int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Logger.WithError(err).Warn("failed to write response")
	}
}

// Common error responses
func BadRequest(w http.ResponseWriter, message string) {
	ErrorStatus(w, http.StatusBadRequest, "BAD_REQUEST", message)
}

func InternalError(w http.ResponseWriter, message string) {
	ErrorStatus(w, http.StatusInternalServerError, "INTERNAL_ERROR", message)
}
