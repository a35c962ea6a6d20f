// Package web serves the runtime over HTTP.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/casualjim/hoot/api"
	"github.com/casualjim/hoot/being"
	"github.com/casualjim/hoot/internal/executor"
	"github.com/casualjim/hoot/messages"
	"github.com/casualjim/hoot/pkg/slogx"
	"github.com/casualjim/hoot/tool"
	"github.com/goccy/go-json"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Runtime is the part of hoot.Runtime the server uses.
type Runtime interface {
	Being() *being.Being
	Tools() *tool.Registry
	Respond(ctx context.Context, conversationID, message string) (executor.Result, error)
	History(ctx context.Context, conversationID string, limit int) ([]messages.Turn, error)
	Clear(ctx context.Context, conversationID string) error
}

type Server struct {
	rt      Runtime
	logger  *slog.Logger
	httpSrv *http.Server
}

func New(rt Runtime, addr string) *Server {
	s := &Server{
		rt:     rt,
		logger: slog.Default().With(slogx.LoggerName("web")),
	}
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleWelcome)
	mux.HandleFunc("POST /message", s.handleMessage)
	mux.HandleFunc("GET /being", s.handleBeing)
	mux.HandleFunc("GET /tools", s.handleTools)
	mux.HandleFunc("GET /conversations/{id}/messages", s.handleHistory)
	mux.HandleFunc("DELETE /conversations/{id}", s.handleClear)
	return mux
}

// Start listens on the configured address and serves in the background. It
// returns the bound address.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", s.httpSrv.Addr)
	if err != nil {
		return "", fmt.Errorf("listen %s: %w", s.httpSrv.Addr, err)
	}
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", slogx.Error(err))
		}
	}()
	s.logger.Info("listening", slog.String("addr", ln.Addr().String()))
	return ln.Addr().String(), nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleWelcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Welcome to %s's API. POST to /message to chat.", s.rt.Being().Character.Name),
	})
}

type messageRequest struct {
	Content        string `json:"content"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type messageResponse struct {
	Response       string   `json:"response"`
	ConversationID string   `json:"conversation_id"`
	Iterations     int      `json:"iterations"`
	ToolResults    []string `json:"tool_results,omitempty"`
	LoopDetected   bool     `json:"loop_detected,omitempty"`
	Clarification  string   `json:"clarification,omitempty"`
	Exhausted      bool     `json:"exhausted,omitempty"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	conversationID := strings.TrimSpace(req.ConversationID)
	if conversationID == "" {
		conversationID = s.rt.Being().ContextID
	}

	res, err := s.rt.Respond(r.Context(), conversationID, req.Content)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "respond failed",
			slogx.Conversation(conversationID),
			slogx.Error(err),
		)
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Response:       res.Text,
		ConversationID: conversationID,
		Iterations:     res.Iterations,
		ToolResults:    res.ToolResults,
		LoopDetected:   res.LoopDetected,
		Clarification:  res.Clarification,
		Exhausted:      res.Exhausted,
	})
}

func (s *Server) handleBeing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.rt.Being())
}

type toolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters"`
}

func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	defs := s.rt.Tools().Definitions()
	out := make([]toolInfo, 0, len(defs))
	for _, def := range defs {
		out = append(out, toolInfo{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Schema(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	turns, err := s.rt.History(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if turns == nil {
		turns = []messages.Turn{}
	}
	writeJSON(w, http.StatusOK, turns)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.Clear(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func statusFor(err error) int {
	switch api.KindOf(err) {
	case api.KindInput, api.KindConfig:
		return http.StatusBadRequest
	case api.KindProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
