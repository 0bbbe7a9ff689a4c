// ABOUTME: Fake answer backend for E2E testing — serves the conversation job API over HTTP.
// ABOUTME: Usage: fake-answerd [-addr localhost:8091] [-scenario scenario.yaml]

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-chat/internal/scenario"
)

func main() {
	addr := flag.String("addr", "localhost:8091", "HTTP listen address")
	scenarioPath := flag.String("scenario", "", "Path to a YAML answer script (default: echo)")
	flag.Parse()

	if err := run(*addr, *scenarioPath); err != nil {
		log.Fatal(err)
	}
}

func run(addr, scenarioPath string) error {
	script := scenario.DefaultScript()
	if scenarioPath != "" {
		var err error
		script, err = scenario.Load(scenarioPath)
		if err != nil {
			return err
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	srv := newServer(script, logger)
	httpSrv := &http.Server{
		Addr:    addr,
		Handler: srv.routes(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("fake-answerd listening", "addr", addr, "scenario", scenarioPath)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// job tracks one in-flight answer request.
type job struct {
	conversationID string
	rule           scenario.Rule
	message        string
	pollsSeen      int
	readyAt        time.Time
}

type server struct {
	script *scenario.Script
	logger *slog.Logger

	mu   sync.Mutex
	jobs map[string]*job
}

func newServer(script *scenario.Script, logger *slog.Logger) *server {
	return &server{
		script: script,
		logger: logger,
		jobs:   make(map[string]*job),
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/conversations", s.handleCreate)
	mux.HandleFunc("POST /api/conversations/{id}/messages", s.handleContinue)
	mux.HandleFunc("GET /api/conversations/{id}/answer", s.handleAnswer)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

type startRequest struct {
	Message string `json:"message"`
}

func (s *server) handleCreate(w http.ResponseWriter, r *http.Request) {
	s.startJob(w, r, uuid.New().String())
}

func (s *server) handleContinue(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("id")

	s.mu.Lock()
	known := false
	for _, j := range s.jobs {
		if j.conversationID == conversationID {
			known = true
			break
		}
	}
	s.mu.Unlock()

	if !known {
		writeError(w, http.StatusNotFound, "unknown conversation")
		return
	}
	s.startJob(w, r, conversationID)
}

func (s *server) startJob(w http.ResponseWriter, r *http.Request, conversationID string) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	rule := s.script.MatchMessage(req.Message)
	requestID := uuid.New().String()

	s.mu.Lock()
	s.jobs[requestID] = &job{
		conversationID: conversationID,
		rule:           rule,
		message:        req.Message,
		readyAt:        time.Now().Add(rule.AnswerDelay),
	}
	s.mu.Unlock()

	s.logger.Info("job started",
		"conversation_id", conversationID,
		"request_id", requestID,
		"match", rule.Match,
	)

	writeJSON(w, http.StatusOK, map[string]string{
		"conversation_id": conversationID,
		"request_id":      requestID,
	})
}

func (s *server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("id")
	requestID := r.URL.Query().Get("request_id")

	s.mu.Lock()
	j, ok := s.jobs[requestID]
	if !ok || j.conversationID != conversationID {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "unknown request")
		return
	}
	j.pollsSeen++
	snapshot := *j
	s.mu.Unlock()

	switch {
	case snapshot.rule.Stall:
		writeJSON(w, http.StatusOK, map[string]string{"status": "in_progress"})
	case snapshot.pollsSeen <= snapshot.rule.PollsUntilReady || time.Now().Before(snapshot.readyAt):
		writeJSON(w, http.StatusOK, map[string]string{"status": "in_progress"})
	case snapshot.rule.Fail:
		msg := snapshot.rule.FailMessage
		if msg == "" {
			msg = "scripted failure"
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "error": msg})
	default:
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "finished",
			"answer": snapshot.rule.RenderAnswer(snapshot.message),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		fmt.Fprintf(os.Stderr, "encoding response: %v\n", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
