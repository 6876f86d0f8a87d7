package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jonathan/interview-coach/internal/conversation"
	"github.com/jonathan/interview-coach/internal/server/middleware"
	"github.com/jonathan/interview-coach/internal/types"
)

// maxRequestBytes bounds the size of a turn request body.
const maxRequestBytes = 64 << 10

// anonymousAllowed reports whether a caller without a token may use threadID. With auth enabled,
// anonymous callers are confined to generated thread_<uuid> ids; thread_<email> ids need a token.
func (s *Server) anonymousAllowed(threadID string) bool {
	return !s.authEnabled || conversation.IsGeneratedThreadID(threadID)
}

// handleQuestion runs one conversation turn.
// Authenticated callers always talk on their own thread; any thread_id in the body is ignored.
func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req types.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errorResponse(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.writeError(w, r, &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()})
		return
	}

	if identity, ok := middleware.GetIdentity(r); ok {
		req.ThreadID = conversation.ThreadIDForSubject(identity)
	} else if req.ThreadID != "" && !s.anonymousAllowed(req.ThreadID) {
		s.writeError(w, r, &ErrThreadForbidden{ThreadID: req.ThreadID})
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, &ErrValidation{Field: "message", Message: "message is required"})
		return
	}

	resp, err := s.controller.Invoke(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	log.Debug().Str("thread_id", resp.ThreadID).Str("stage", string(resp.Stage)).
		Int("emitted", len(resp.Messages)).Msg("turn completed")
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleGetThread returns the persisted state of one thread.
func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	threadID := strings.TrimSpace(r.PathValue("thread_id"))
	if threadID == "" {
		s.writeError(w, r, &ErrValidation{Field: "thread_id", Message: "thread_id is required"})
		return
	}

	// Threads the caller may not see are reported as missing.
	identity, ok := middleware.GetIdentity(r)
	if (ok && conversation.PartitionKey(threadID) != identity) || (!ok && !s.anonymousAllowed(threadID)) {
		s.writeError(w, r, &ErrThreadNotFound{ThreadID: threadID})
		return
	}

	state, err := s.controller.Thread(r.Context(), threadID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if state == nil {
		s.writeError(w, r, &ErrThreadNotFound{ThreadID: threadID})
		return
	}
	s.jsonResponse(w, http.StatusOK, state)
}

// handleListThreads lists the most recently updated threads of one partition.
// Authenticated callers see their own partition; otherwise the partition query parameter selects it.
func (s *Server) handleListThreads(w http.ResponseWriter, r *http.Request) {
	if s.lister == nil {
		s.errorResponse(w, http.StatusNotImplemented, "thread listing is not supported by the configured store")
		return
	}

	partition, ok := middleware.GetIdentity(r)
	if !ok {
		partition = strings.TrimSpace(r.URL.Query().Get("partition"))
	}
	if partition == "" {
		s.writeError(w, r, &ErrValidation{Field: "partition", Message: "partition is required"})
		return
	}
	if !ok && !s.anonymousAllowed(conversation.ThreadIDForSubject(partition)) {
		s.writeError(w, r, &ErrThreadForbidden{ThreadID: conversation.ThreadIDForSubject(partition)})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, r, &ErrValidation{Field: "limit", Message: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	threads, err := s.lister.ListThreads(r.Context(), partition, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if threads == nil {
		threads = []types.ThreadSummary{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"partition": partition,
		"threads":   threads,
	})
}
