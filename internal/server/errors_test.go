package server

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/interview-coach/internal/conversation"
	"github.com/jonathan/interview-coach/internal/stages"
	"github.com/jonathan/interview-coach/internal/types"
)

func TestHTTPStatus(t *testing.T) {
	invalid := (&types.TurnRequest{}).Validate()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &ErrValidation{Field: "message", Message: "required"}, http.StatusBadRequest},
		{"validator errors", invalid, http.StatusBadRequest},
		{"wrapped empty message", fmt.Errorf("turn: %w", conversation.ErrEmptyMessage), http.StatusBadRequest},
		{"not found", &ErrThreadNotFound{ThreadID: "t1"}, http.StatusNotFound},
		{"forbidden", fmt.Errorf("turn: %w", &ErrThreadForbidden{ThreadID: "thread_jane@example.com"}), http.StatusForbidden},
		{"raw version conflict", conversation.ErrVersionConflict, http.StatusConflict},
		{"wrapped generation", fmt.Errorf("dispatch: %w", &stages.GenerationError{Stage: types.StageEvaluation}), http.StatusBadGateway},
		{"transient wrapping deadline", &stages.GenerationError{Transient: true, Cause: context.DeadlineExceeded}, http.StatusServiceUnavailable},
		{"lock wait deadline", fmt.Errorf("failed to lock thread: %w", context.DeadlineExceeded), http.StatusServiceUnavailable},
		{"other", fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "forbidden", errorCode(http.StatusForbidden))
	assert.Equal(t, "not_found", errorCode(http.StatusNotFound))
	assert.Equal(t, "internal_error", errorCode(http.StatusTeapot))
}

func TestRetryAfter(t *testing.T) {
	d, ok := retryAfter(http.StatusServiceUnavailable)
	assert.True(t, ok)
	assert.Equal(t, 5*time.Second, d)

	_, ok = retryAfter(http.StatusBadGateway)
	assert.False(t, ok)
}
