package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mentora/mentora/store"
)

type chatResponse struct {
	UID           string                 `json:"uid"`
	Title         string                 `json:"title"`
	ThreadKey     string                 `json:"thread_key,omitempty"`
	CreatedTs     int64                  `json:"created_ts"`
	UpdatedTs     int64                  `json:"updated_ts"`
	Conversations []conversationResponse `json:"conversations"`
}

type conversationResponse struct {
	UID           string                      `json:"uid"`
	Query         string                      `json:"query"`
	Answer        string                      `json:"answer"`
	Domain        string                      `json:"domain,omitempty"`
	SourcesUsed   []string                    `json:"sources_used,omitempty"`
	FeedbackScore *int32                      `json:"feedback_score,omitempty"`
	Comments      []store.ConversationComment `json:"comments,omitempty"`
	CreatedTs     int64                       `json:"created_ts"`
}

func (s *APIV1Service) handleGetChat(c echo.Context) error {
	ctx := c.Request().Context()
	uid := c.Param("uid")

	chat, err := s.Store.GetChat(ctx, &store.FindChat{UID: &uid})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get chat").SetInternal(err)
	}
	if chat == nil {
		return echo.NewHTTPError(http.StatusNotFound, "chat not found")
	}

	response := &chatResponse{
		UID:           chat.UID,
		Title:         chat.Title,
		ThreadKey:     chat.ThreadKey,
		CreatedTs:     chat.CreatedTs,
		UpdatedTs:     chat.UpdatedTs,
		Conversations: []conversationResponse{},
	}
	for _, ref := range chat.Conversations {
		conversationUID := ref.ConversationUID
		conversation, err := s.Store.GetConversation(ctx, &store.FindConversation{UID: &conversationUID})
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to get conversation").SetInternal(err)
		}
		if conversation == nil {
			// Dangling reference; skip rather than fail the whole chat.
			continue
		}
		response.Conversations = append(response.Conversations, convertConversation(conversation))
	}
	return c.JSON(http.StatusOK, response)
}

type feedbackRequest struct {
	Score   *int32 `json:"score"`
	Comment string `json:"comment"`
	Author  string `json:"author"`
}

func (s *APIV1Service) handleFeedback(c echo.Context) error {
	ctx := c.Request().Context()
	uid := c.Param("uid")

	request := &feedbackRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}
	request.Comment = strings.TrimSpace(request.Comment)
	if request.Score == nil && request.Comment == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "either score or comment is required")
	}

	conversation, err := s.Store.GetConversation(ctx, &store.FindConversation{UID: &uid})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get conversation").SetInternal(err)
	}
	if conversation == nil {
		return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
	}

	now := time.Now().Unix()
	update := &store.UpdateConversation{
		UID:           uid,
		FeedbackScore: request.Score,
		UpdatedTs:     &now,
	}
	if request.Comment != "" {
		author := request.Author
		if author == "" {
			author = "user"
		}
		update.AddComment = &store.ConversationComment{
			Author:    author,
			Text:      request.Comment,
			CreatedTs: now,
		}
	}

	updated, err := s.Store.UpdateConversation(ctx, update)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update conversation").SetInternal(err)
	}
	return c.JSON(http.StatusOK, convertConversation(updated))
}

func convertConversation(conversation *store.Conversation) conversationResponse {
	return conversationResponse{
		UID:           conversation.UID,
		Query:         conversation.Query,
		Answer:        conversation.Answer,
		Domain:        conversation.Domain,
		SourcesUsed:   conversation.SourcesUsed,
		FeedbackScore: conversation.FeedbackScore,
		Comments:      conversation.Comments,
		CreatedTs:     conversation.CreatedTs,
	}
}
