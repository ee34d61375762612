package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mentora/mentora/ai/pipeline"
)

type queryRequest struct {
	Query               string `json:"query"`
	UserID              int32  `json:"user_id"`
	CounterpartID       *int32 `json:"counterpart_id"`
	Domain              string `json:"domain"`
	ChatUID             string `json:"chat_uid"`
	ThreadKey           string `json:"thread_key"`
	PrevConversationUID string `json:"prev_conversation_uid"`
	TopK                int    `json:"top_k"`
}

// handleQuery always answers 200 with a complete envelope; failures travel in
// the envelope's error field so the caller can decide status semantics.
func (s *APIV1Service) handleQuery(c echo.Context) error {
	request := &queryRequest{}
	if err := c.Bind(request); err != nil {
		msg := "malformed request body"
		return c.JSON(http.StatusOK, &pipeline.Response{
			Answer:   "I couldn't read that request. Could you try again?",
			Evidence: []pipeline.EvidenceRef{},
			Error:    &msg,
		})
	}

	response := s.Pipeline.Answer(c.Request().Context(), &pipeline.Request{
		Query:               request.Query,
		UserID:              request.UserID,
		CounterpartID:       request.CounterpartID,
		Domain:              request.Domain,
		ChatUID:             request.ChatUID,
		ThreadKey:           request.ThreadKey,
		PrevConversationUID: request.PrevConversationUID,
		TopK:                request.TopK,
	})
	return c.JSON(http.StatusOK, response)
}
