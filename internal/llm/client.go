package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"docuchat/internal/config"
)

// Client wraps the LLM capability: submit prompt, receive completion. No
// retry or backoff lives here; transient failures surface to the caller.
type Client struct {
	model     llms.Model
	maxTokens int
	timeout   time.Duration
}

func NewClient(cfg *config.LLMConfig) (*Client, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return &Client{
		model:     model,
		maxTokens: cfg.MaxOutputTokens,
		timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
	}, nil
}

// Complete sends one prompt and returns the completion text. The configured
// timeout bounds the call; cancellation of ctx propagates to the backend.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	log.Debug().Int("prompt_length", len(prompt)).Msg("sending completion request")
	resp, err := c.model.GenerateContent(ctx,
		[]llms.MessageContent{
			{
				Role:  llms.ChatMessageTypeHuman,
				Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
			},
		},
		llms.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion contained no choices")
	}
	return resp.Choices[0].Content, nil
}
