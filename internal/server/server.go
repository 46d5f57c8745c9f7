// Package server exposes the router over an HTTP webhook.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/jask/teammate/internal/config"
	"github.com/jask/teammate/internal/router"
)

// Router runs one routing pass.
type Router interface {
	Run(ctx context.Context, s *router.CommandState) (router.Result, error)
}

// ChatPoster delivers the reply into the conversation the command came from.
type ChatPoster interface {
	PostChatMessage(ctx context.Context, chatID, content string) error
}

// WebhookRequest is the inbound payload.
type WebhookRequest struct {
	Message struct {
		Text *string `json:"text"`
	} `json:"message"`
	Context      map[string]any `json:"context"`
	Conversation struct {
		ID string `json:"id"`
	} `json:"conversation"`
}

// WebhookResponse is written on success.
type WebhookResponse struct {
	Status   string `json:"status"`
	Response string `json:"response"`
	Intent   string `json:"intent"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Server struct {
	router   *chi.Mux
	teammate Router
	poster   ChatPoster
	cfg      config.ServerConfig
	logger   *zap.Logger
}

func New(cfg config.ServerConfig, rt Router, poster ChatPoster, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	s := &Server{
		router:   r,
		teammate: rt,
		poster:   poster,
		cfg:      cfg,
		logger:   logger.Named("server"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Post("/webhook", s.handleWebhook)
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler { return s.router }

// ListenAndServe serves on the configured port until ctx ends, then drains
// in-flight requests for at most ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort("", strconv.Itoa(s.cfg.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
	}

	serveErr := make(chan error, 1)
	s.logger.Info("listening", zap.String("addr", addr))
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		<-serveErr
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var req WebhookRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil || req.Message.Text == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid payload"})
		return
	}

	chatID := req.Conversation.ID
	st := router.NewState(*req.Message.Text, req.Context)
	if chatID != "" && st.ContextString(router.KeyChatID) == "" {
		st.SetContext(router.KeyChatID, chatID)
	}

	res, err := s.teammate.Run(r.Context(), st)
	if err != nil {
		s.logger.Error("route command", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Classifier unavailable"})
		return
	}

	reply := st.Response
	if reply == "" {
		reply = router.DefaultResponse
	}
	if chatID == "" {
		s.logger.Warn("no conversation id, reply not posted", zap.Stringer("outcome", res.Outcome))
	} else if err := s.poster.PostChatMessage(r.Context(), chatID, reply); err != nil {
		s.logger.Error("post reply", zap.String("chat_id", chatID), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "Failed to post reply"})
		return
	}

	writeJSON(w, http.StatusOK, WebhookResponse{
		Status:   "success",
		Response: st.Response,
		Intent:   res.Intent.String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
