package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/interview-coach/internal/conversation"
	"github.com/jonathan/interview-coach/internal/stages"
)

// transientRetryAfter is advertised on 503 responses caused by transient generation failures.
const transientRetryAfter = 5 * time.Second

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrThreadNotFound indicates the thread does not exist or belongs to another subject.
type ErrThreadNotFound struct {
	ThreadID string
}

func (e *ErrThreadNotFound) Error() string {
	return fmt.Sprintf("thread not found: %s", e.ThreadID)
}

// ErrThreadForbidden indicates an anonymous caller named a thread outside the anonymous id space.
type ErrThreadForbidden struct {
	ThreadID string
}

func (e *ErrThreadForbidden) Error() string {
	return fmt.Sprintf("thread %s requires authentication", e.ThreadID)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		vErr  *ErrValidation
		nfErr *ErrThreadNotFound
		fbErr *ErrThreadForbidden
		fErrs validator.ValidationErrors
		gErr  *stages.GenerationError
		cvErr *stages.ContractViolationError
	)
	switch {
	case errors.As(err, &vErr), errors.As(err, &fErrs), errors.Is(err, conversation.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.As(err, &fbErr):
		return http.StatusForbidden
	case errors.As(err, &nfErr):
		return http.StatusNotFound
	case errors.Is(err, conversation.ErrVersionConflict):
		return http.StatusConflict
	case errors.As(err, &cvErr):
		return http.StatusInternalServerError
	case errors.As(err, &gErr):
		if gErr.Transient {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorCode is the machine-readable "error" field of an error response.
func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusBadGateway:
		return "generation_failed"
	case http.StatusServiceUnavailable:
		return "unavailable"
	default:
		return "internal_error"
	}
}

// retryAfter reports how long a client should wait before retrying, if at all.
func retryAfter(status int) (time.Duration, bool) {
	switch status {
	case http.StatusConflict:
		return time.Second, true
	case http.StatusServiceUnavailable:
		return transientRetryAfter, true
	default:
		return 0, false
	}
}
