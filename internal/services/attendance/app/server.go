// Package app hosts the attendance webhook HTTP surface and the background
// command-processing pipeline.
package app

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/punchd/punchd/internal/platform/id"
	"github.com/punchd/punchd/internal/services/attendance/storage"
)

// Enqueuer schedules one validated command for background processing.
type Enqueuer interface {
	Enqueue(job Job) error
}

// EventLister serves the administrative log read endpoints.
type EventLister interface {
	ListEventsByUser(ctx context.Context, userID string) ([]storage.EventRecord, error)
	ListAllEvents(ctx context.Context) ([]storage.EventRecord, error)
}

// Server exposes the webhook, log read, and health endpoints.
type Server struct {
	pool  Enqueuer
	store EventLister
	logf  func(format string, args ...any)
}

// NewServer builds the HTTP surface over the command pool and event store.
func NewServer(pool Enqueuer, store EventLister) *Server {
	return &Server{
		pool:  pool,
		store: store,
		logf:  log.Printf,
	}
}

// RegisterRoutes registers attendance HTTP endpoints on the provided mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	if mux == nil {
		return
	}
	mux.HandleFunc("/slack/command", s.handleCommand)
	mux.HandleFunc("/logs", s.handleAllLogs)
	mux.HandleFunc("/logs/", s.handleUserLogs)
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("attendance bot is running"))
	})
}

// commandRequest mirrors the webhook payload fields the service consumes.
type commandRequest struct {
	Command     string `json:"command"`
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	ResponseURL string `json:"response_url"`
}

func (r commandRequest) complete() bool {
	return strings.TrimSpace(r.Command) != "" &&
		strings.TrimSpace(r.UserID) != "" &&
		strings.TrimSpace(r.UserName) != "" &&
		strings.TrimSpace(r.ResponseURL) != ""
}

// handleCommand validates required fields, schedules the real work on the
// pool, and acknowledges immediately. The caller's response-time budget is
// short; storage and callback I/O never happen on this path.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	request, ok := decodeCommandRequest(r)
	if !ok {
		writeText(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !request.complete() {
		writeText(w, http.StatusBadRequest, "missing data in request")
		return
	}

	jobID, err := id.NewID()
	if err != nil {
		s.logf("new job id: %v", err)
		writeText(w, http.StatusInternalServerError, "internal error")
		return
	}
	job := Job{
		ID:          jobID,
		Command:     strings.TrimSpace(request.Command),
		UserID:      strings.TrimSpace(request.UserID),
		UserName:    strings.TrimSpace(request.UserName),
		CallbackURL: strings.TrimSpace(request.ResponseURL),
	}
	if err := s.pool.Enqueue(job); err != nil {
		s.logf("enqueue job %s: %v", job.ID, err)
		writeText(w, http.StatusServiceUnavailable, "busy, try again shortly")
		return
	}

	s.logf("received %s from %s job=%s", job.Command, job.UserName, job.ID)
	writeText(w, http.StatusOK, job.Command+" received, processing...")
}

func decodeCommandRequest(r *http.Request) (commandRequest, bool) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		var request commandRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			return commandRequest{}, false
		}
		return request, true
	}
	if err := r.ParseForm(); err != nil {
		return commandRequest{}, false
	}
	return commandRequest{
		Command:     r.PostFormValue("command"),
		UserID:      r.PostFormValue("user_id"),
		UserName:    r.PostFormValue("user_name"),
		ResponseURL: r.PostFormValue("response_url"),
	}, true
}

// eventRow is the JSON shape of one event on the read endpoints.
type eventRow struct {
	ID        int64  `json:"id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Command   string `json:"command"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleAllLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	events, err := s.store.ListAllEvents(r.Context())
	if err != nil {
		s.logf("list all events: %v", err)
		http.Error(w, "storage unavailable", http.StatusInternalServerError)
		return
	}
	writeEventRows(w, events)
}

func (s *Server) handleUserLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/logs/"), "/")
	if userID == "" || strings.Contains(userID, "/") {
		http.NotFound(w, r)
		return
	}
	events, err := s.store.ListEventsByUser(r.Context(), userID)
	if err != nil {
		s.logf("list events for %s: %v", userID, err)
		http.Error(w, "storage unavailable", http.StatusInternalServerError)
		return
	}
	writeEventRows(w, events)
}

func writeEventRows(w http.ResponseWriter, events []storage.EventRecord) {
	rows := make([]eventRow, 0, len(events))
	for _, event := range events {
		rows = append(rows, eventRow{
			ID:        event.ID,
			UserID:    event.UserID,
			UserName:  event.UserName,
			Command:   event.Command,
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(rows)
}

// writeText writes the chat platform's {"text": ...} JSON envelope.
func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"text": text})
}
