// Package server is the HTTP surface: session and room management, the
// websocket endpoint, health, and the middleware stack around them. The
// interesting state lives in registry/game; handlers here validate, delegate
// and shape responses.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/eehab-saadat/skribly-backend/internal/config"
	"github.com/eehab-saadat/skribly-backend/internal/game"
	"github.com/eehab-saadat/skribly-backend/internal/hub"
	"github.com/eehab-saadat/skribly-backend/internal/registry"
	"github.com/eehab-saadat/skribly-backend/internal/socket"
	"github.com/eehab-saadat/skribly-backend/internal/words"
)

type Server struct {
	cfg    config.Config
	logger *zap.Logger

	reg    *registry.Registry
	engine *game.Engine
	hub    *hub.Hub
	router *socket.Router
	words  *words.Provider

	started time.Time
}

// New wires the collaborators together. Everything is constructed here and
// injected; there are no package-level singletons.
func New(cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	reg := registry.New(logger)
	h := hub.New(reg, logger)
	timers := game.NewTimerService(h, reg.RoomExists, logger)
	provider := words.Load(cfg.WordsDir, logger)
	engineCfg := game.Config{
		WordSelectionTime: cfg.WordSelectionTime,
		ResultDisplayTime: cfg.ResultDisplayTime,
		IntermissionTime:  cfg.IntermissionTime,
	}
	engine := game.NewEngine(reg, h, timers, provider, engineCfg, logger)
	router := socket.NewRouter(reg, engine, h, logger)

	return &Server{
		cfg:     cfg,
		logger:  logger.Named("server"),
		reg:     reg,
		engine:  engine,
		hub:     h,
		router:  router,
		words:   provider,
		started: time.Now(),
	}
}

// Registry exposes the store for tests and tooling.
func (s *Server) Registry() *registry.Registry { return s.reg }

// Engine exposes the game engine for tests and tooling.
func (s *Server) Engine() *game.Engine { return s.engine }

// Run serves until ctx is cancelled, then drains for up to 10 seconds.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.RegisterRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket connections are long-lived
		IdleTimeout:  60 * time.Second,
	}

	go s.cleanupLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// cleanupLoop ages out empty and stale rooms.
func (s *Server) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, roomID := range s.reg.CleanupInactive() {
				s.engine.CleanupRoom(roomID)
			}
		case <-ctx.Done():
			return
		}
	}
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message, code string) {
	body := map[string]any{"error": message}
	if code != "" {
		body["code"] = code
	}
	s.writeJSON(w, status, body)
}

// decodeBody parses a JSON body, treating an absent body as empty input.
func decodeBody[T any](r *http.Request, v *T) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
