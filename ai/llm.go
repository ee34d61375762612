package ai

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/mentora/mentora/internal/profile"
)

// LLMService is the answer-generation service interface. It wraps one opaque
// chat-completion call; backend fallback, if any, happens behind the provider.
type LLMService interface {
	// Complete generates a response for the prompt. The domain hint, when
	// non-empty, is folded into the system message.
	Complete(ctx context.Context, prompt string, domainHint string) (string, error)
}

type llmService struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

const systemPrompt = "You are a patient study companion. Ground your answers in the provided material when it is present, and say so plainly when it is not."

// NewLLMService creates an LLMService for any OpenAI-compatible provider.
// Provider base-URL defaults are resolved by the profile.
func NewLLMService(profile *profile.Profile) (LLMService, error) {
	clientConfig := openai.DefaultConfig(profile.LLMAPIKey)
	if profile.LLMBaseURL != "" {
		clientConfig.BaseURL = profile.LLMBaseURL
	}
	clientConfig.HTTPClient = newHTTPClient()

	timeout := profile.LLMTimeout
	if timeout <= 0 {
		timeout = 120
	}

	return &llmService{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   profile.LLMModel,
		timeout: time.Duration(timeout) * time.Second,
	}, nil
}

func (s *llmService) Complete(ctx context.Context, prompt string, domainHint string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	system := systemPrompt
	if domainHint != "" {
		system += " The current subject domain is " + domainHint + "."
	}

	slog.Debug("LLM: completion request", "model", s.model, "prompt_length", len(prompt))

	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("LLM completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty response from LLM")
	}

	return resp.Choices[0].Message.Content, nil
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}
