// Package provider talks to the hosted inference service. Together exposes an
// OpenAI compatible API, so the openai client is pointed at its base URL.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"llm-dispatch/internal/shared"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

type Config struct {
	APIKey  string
	BaseURL string
	// Timeout bounds a single provider call. Zero means no deadline.
	Timeout time.Duration
}

type TogetherClient struct {
	client  openai.Client
	timeout time.Duration
	log     *zap.SugaredLogger
}

type ChatInput struct {
	Model       string
	Messages    []shared.ChatMessage
	Temperature float64
	MaxTokens   *int
}

type ImageInput struct {
	Model  string
	N      int
	Prompt string
	// Nil leaves steps to the provider default
	Steps  *int
}

type ImageOutput struct {
	// Raw is the provider response body, passed back to callers untouched
	Raw  json.RawMessage
	URLs []string
}

func NewTogetherClient(cfg Config, log *zap.SugaredLogger) (*TogetherClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("together api key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = shared.DefaultTogetherBaseURL
	}

	tr := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: 5 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
		MaxIdleConnsPerHost: 16,
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(&http.Client{Transport: tr}),
		// Failures surface straight to the caller
		option.WithMaxRetries(0),
	)

	return &TogetherClient{client: client, timeout: cfg.Timeout, log: log}, nil
}

func (t *TogetherClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, t.timeout)
}

// ChatCompletion sends the full conversation to one model and returns the
// text of the first choice
func (t *TogetherClient) ChatCompletion(ctx context.Context, in ChatInput) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(in.Messages))
	for _, msg := range in.Messages {
		switch msg.Role {
		case shared.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case shared.RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		default:
			return "", fmt.Errorf("unsupported role: %s", msg.Role)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(in.Model),
		Messages:    messages,
		Temperature: openai.Float(in.Temperature),
	}
	if in.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*in.MaxTokens))
	}

	rctx, cancel := t.withTimeout(ctx)
	defer cancel()

	resp, err := t.client.Chat.Completions.New(rctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateImage calls the image endpoint. Steps is not part of the OpenAI
// schema and is sent as an extra body field.
func (t *TogetherClient) GenerateImage(ctx context.Context, in ImageInput) (*ImageOutput, error) {
	params := openai.ImageGenerateParams{
		Prompt: in.Prompt,
		Model:  openai.ImageModel(in.Model),
		N:      openai.Int(int64(in.N)),
	}
	var opts []option.RequestOption
	if in.Steps != nil {
		opts = append(opts, option.WithJSONSet("steps", *in.Steps))
	}

	rctx, cancel := t.withTimeout(ctx)
	defer cancel()

	resp, err := t.client.Images.Generate(rctx, params, opts...)
	if err != nil {
		return nil, err
	}

	out := &ImageOutput{Raw: json.RawMessage(resp.RawJSON())}
	for _, img := range resp.Data {
		if img.URL != "" {
			out.URLs = append(out.URLs, img.URL)
		}
	}
	t.log.Debugw("Image generated", "model", in.Model, "images", len(out.URLs))
	return out, nil
}
