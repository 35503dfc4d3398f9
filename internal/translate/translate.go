// Package translate turns a transcript into another language through an
// OpenAI-compatible chat completion endpoint.
package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const DefaultModel = openai.GPT4oMini

var ErrMissingAPIKey = errors.New("translation API key is not set")

// Request asks for Text to be translated into To. From may be empty when the
// source language is unknown.
type Request struct {
	Text string
	From string
	To   string
}

type Translator interface {
	Translate(ctx context.Context, req Request) (string, error)
}

type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

type ChatTranslator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewChatTranslator(opts Options) (*ChatTranslator, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, ErrMissingAPIKey
	}

	cfg := openai.DefaultConfig(key)
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg.BaseURL = strings.TrimRight(base, "/")
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ChatTranslator{client: openai.NewClientWithConfig(cfg), model: model, logger: logger}, nil
}

func (c *ChatTranslator) Translate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.To) == "" {
		return "", errors.New("target language is required")
	}

	c.logger.Debug("requesting translation", zap.String("model", c.model), zap.String("from", req.From), zap.String("to", req.To))
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: instructions(req.From, req.To)},
			{Role: openai.ChatMessageRoleUser, Content: req.Text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("translate transcript: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("translate transcript: empty response")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("translate transcript: empty translation")
	}
	return text, nil
}

func instructions(from, to string) string {
	source := "the language it is written in"
	if from != "" {
		source = fmt.Sprintf("language %q (ISO 639-1)", from)
	}
	return fmt.Sprintf("Translate the user's message from %s into language %q (ISO 639-1). Reply with the translation only, without quotes or commentary.", source, to)
}
