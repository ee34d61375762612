// Package server wires the answer pipeline behind an HTTP surface.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lithammer/shortuuid/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mentora/mentora/ai"
	"github.com/mentora/mentora/ai/memory"
	"github.com/mentora/mentora/ai/pipeline"
	"github.com/mentora/mentora/ai/retrieval"
	"github.com/mentora/mentora/ai/tagging"
	"github.com/mentora/mentora/internal/profile"
	apiv1 "github.com/mentora/mentora/server/router/api/v1"
	"github.com/mentora/mentora/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	tagWorker  *tagging.Worker
}

func NewServer(_ context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: shortuuid.New,
	}))

	if !profile.IsAIEnabled() {
		slog.Warn("no LLM API key configured; answer generation will fail at the provider call")
	}
	embedder, err := ai.NewEmbeddingService(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding service: %w", err)
	}
	llm, err := ai.NewLLMService(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm service: %w", err)
	}

	tagWorker := tagging.NewWorker(store, llm, profile.TagQueueSize)
	tagWorker.Start()

	engine := retrieval.NewEngine(store, embedder, profile)
	memoryRetriever := memory.NewRetriever(store, embedder, profile)
	answerPipeline := pipeline.New(store, engine, memoryRetriever, llm, embedder, tagWorker)

	s := &Server{
		Profile:    profile,
		Store:      store,
		echoServer: e,
		tagWorker:  tagWorker,
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	apiv1.NewAPIV1Service(profile, store, answerPipeline).RegisterRoutes(e)

	return s, nil
}

// Start blocks serving HTTP until Shutdown is called or the listener fails.
func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	return s.echoServer.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	// Drain queued tagging tasks before the store goes away.
	s.tagWorker.Shutdown()

	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}

	slog.Info("server shutdown")
}
