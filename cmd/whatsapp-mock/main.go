package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tasknotify/internal/logging"
)

const defaultPort = "8081"

// Server mimics the WhatsApp Cloud API messages endpoint.
type Server struct {
	logger *slog.Logger
	// fail lists recipients that always get a 400 response.
	fail map[string]bool

	mu   sync.Mutex
	sent map[string]string // message id -> recipient
}

type messageRequest struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type,omitempty"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
}

type contact struct {
	Input string `json:"input"`
	WaID  string `json:"wa_id"`
}

type messageID struct {
	ID string `json:"id"`
}

type messageResponse struct {
	MessagingProduct string      `json:"messaging_product"`
	Contacts         []contact   `json:"contacts"`
	Messages         []messageID `json:"messages"`
}

type messageStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
}

type errorBody struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	FBTraceID string `json:"fbtrace_id"`
}

// NewServer creates a mock server.
func NewServer(logger *slog.Logger, failRecipients []string) *Server {
	fail := make(map[string]bool, len(failRecipients))
	for _, r := range failRecipients {
		if r = strings.TrimSpace(r); r != "" {
			fail[r] = true
		}
	}
	return &Server{logger: logger, fail: fail, sent: make(map[string]string)}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.URL.Path == "/health" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if r.Method == http.MethodGet && len(parts) == 3 && parts[1] == "messages" {
		s.handleStatus(w, parts[2])
		return
	}

	if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/messages") {
		s.writeError(w, http.StatusNotFound, "unsupported path "+r.URL.Path, 100)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body", 100)
		return
	}

	var req messageRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body", 100)
		return
	}

	switch {
	case req.MessagingProduct != "whatsapp":
		s.writeError(w, http.StatusBadRequest, "messaging_product must be whatsapp", 100)
		return
	case req.To == "":
		s.writeError(w, http.StatusBadRequest, "recipient is required", 100)
		return
	case req.Type != "text" || req.Text == nil || req.Text.Body == "":
		s.writeError(w, http.StatusBadRequest, "only non-empty text messages are supported", 100)
		return
	case s.fail[req.To]:
		s.writeError(w, http.StatusBadRequest, "recipient is not a valid WhatsApp user", 131026)
		return
	}

	id := "wamid.mock-" + uuid.NewString()
	s.mu.Lock()
	s.sent[id] = req.To
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, messageResponse{
		MessagingProduct: "whatsapp",
		Contacts:         []contact{{Input: req.To, WaID: req.To}},
		Messages:         []messageID{{ID: id}},
	})

	s.logger.Info("mock message delivered",
		"to", req.To,
		"message_id", id,
		"body", req.Text.Body,
		"duration", time.Since(start),
	)
}

// handleStatus reports messages this server accepted as delivered.
func (s *Server) handleStatus(w http.ResponseWriter, id string) {
	s.mu.Lock()
	recipient, ok := s.sent[id]
	s.mu.Unlock()
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown message id "+id, 100)
		return
	}
	writeJSON(w, http.StatusOK, messageStatus{ID: id, Status: "delivered", RecipientID: recipient})
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string, code int) {
	s.logger.Warn("mock request rejected", "status", status, "message", message)
	writeJSON(w, status, map[string]errorBody{
		"error": {
			Message:   message,
			Type:      "OAuthException",
			Code:      code,
			FBTraceID: uuid.NewString(),
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func main() {
	logger := logging.New(logging.DefaultConfig())

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	var failRecipients []string
	if v := os.Getenv("MOCK_FAIL_RECIPIENTS"); v != "" {
		failRecipients = strings.Split(v, ",")
	}

	logger.Info("starting whatsapp mock server",
		"port", port,
		"endpoint", "http://localhost:"+port+"/{phone_number_id}/messages",
	)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           NewServer(logger, failRecipients),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
