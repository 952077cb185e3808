package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spicery/intent-tokenizer/internal/logging"
	"github.com/spicery/intent-tokenizer/pkg/tokenizer"
)

type tokenizeRequest struct {
	Message  *string  `json:"message"`
	Messages []string `json:"messages"`
}

type splitRequest struct {
	Message *string `json:"message"`
}

type splitResponse struct {
	Spans tokenizer.Spans `json:"spans"`
}

// tokenize handles both single messages and batches.
// POST /api/v1/tokenize
func (s *Server) tokenize(w http.ResponseWriter, r *http.Request) {
	var req tokenizeRequest
	if !s.decode(w, r, &req) {
		return
	}
	tok := s.Tokenizer()

	switch {
	case req.Message != nil && req.Messages != nil:
		s.respondError(w, http.StatusBadRequest, "give either message or messages, not both")
	case req.Message != nil:
		tokens := tok.Tokenize(*req.Message)
		s.metrics.RecordTokens(1, len(tokens))
		// An empty token list is still reported.
		s.respondJSON(w, http.StatusOK, map[string][]string{"tokens": tokens})
	case req.Messages != nil:
		results, err := tok.TokenizeAll(r.Context(), req.Messages, 0)
		if err != nil {
			s.respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		count := 0
		for _, tokens := range results {
			count += len(tokens)
		}
		s.metrics.RecordTokens(len(results), count)
		s.respondJSON(w, http.StatusOK, map[string][][]string{"results": results})
	default:
		s.respondError(w, http.StatusBadRequest, "message or messages is required")
	}
}

// split returns the converged span sequence of one message.
// POST /api/v1/split
func (s *Server) split(w http.ResponseWriter, r *http.Request) {
	var req splitRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Message == nil {
		s.respondError(w, http.StatusBadRequest, "message is required")
		return
	}
	spans := s.Tokenizer().Split(*req.Message)
	s.metrics.RecordTokens(1, 0)
	s.respondJSON(w, http.StatusOK, splitResponse{Spans: spans})
}

// rules returns the active rules in rules file form.
// GET /api/v1/rules
func (s *Server) rules(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.Tokenizer().Rules().RulesFile())
}

// health returns the health status of the API.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// decode reads a JSON request body into v, answering the request itself
// when that fails.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		logging.FromContext(r.Context()).Debug("rejected request body", "route", r.URL.Path, "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}
	return true
}

// respondJSON writes a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("writing response failed", "error", err)
	}
}

// respondError writes an error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
	})
}
