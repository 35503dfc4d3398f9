package whisper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// DefaultRemoteModel is the model name sent to OpenAI-compatible
// transcription endpoints.
const DefaultRemoteModel = openai.Whisper1

type RemoteOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// RemoteEngine transcribes through an OpenAI-compatible
// /audio/transcriptions endpoint.
type RemoteEngine struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

func NewRemoteEngine(opts RemoteOptions) (*RemoteEngine, error) {
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
		model = DefaultRemoteModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RemoteEngine{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}, nil
}

func (e *RemoteEngine) Name() string { return "openai" }

func (e *RemoteEngine) Transcribe(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.AudioPath) == "" {
		return Result{}, errors.New("audio path is required")
	}

	audioReq := openai.AudioRequest{
		Model:    e.model,
		FilePath: req.AudioPath,
		Format:   openai.AudioResponseFormatJSON,
	}
	if lang, ok := languageHint(req.Language); ok {
		audioReq.Language = lang
	}

	e.logger.Debug("requesting remote transcription", zap.String("model", e.model), zap.String("audio", req.AudioPath), zap.String("language", audioReq.Language))
	resp, err := e.client.CreateTranscription(ctx, audioReq)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return Result{}, fmt.Errorf("remote transcription failed (status %d): %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return Result{}, fmt.Errorf("remote transcription failed: %w", err)
	}

	result := Result{Text: strings.TrimSpace(resp.Text), Language: resp.Language}
	if result.Language == "" {
		result.Language = audioReq.Language
	}
	return result, nil
}
