// Package v1 is the thin HTTP boundary over the answer pipeline. Handlers
// translate JSON to pipeline requests and back; they hold no business logic.
package v1

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/mentora/mentora/ai/pipeline"
	"github.com/mentora/mentora/internal/profile"
	"github.com/mentora/mentora/store"
)

// QueryAnswerer runs one query through the pipeline.
type QueryAnswerer interface {
	Answer(ctx context.Context, req *pipeline.Request) *pipeline.Response
}

type APIV1Service struct {
	Profile  *profile.Profile
	Store    *store.Store
	Pipeline QueryAnswerer
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, pl QueryAnswerer) *APIV1Service {
	return &APIV1Service{
		Profile:  profile,
		Store:    store,
		Pipeline: pl,
	}
}

func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	group := e.Group("/api/v1")
	group.POST("/query", s.handleQuery)
	group.GET("/chats/:uid", s.handleGetChat)
	group.POST("/conversations/:uid/feedback", s.handleFeedback)
}
