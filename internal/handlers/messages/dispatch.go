package messages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"llm-dispatch/internal/metrics"
	"llm-dispatch/internal/provider"
	"llm-dispatch/internal/shared"

	"golang.org/x/sync/errgroup"
)

// Dispatch sends the conversation to every model at once. The result at index
// i is the reply of req.Models[i]. The first failing model cancels the rest
// and fails the whole call.
func (mh *MessageHandler) Dispatch(ctx context.Context, req *ChatRequest) ([]string, error) {
	responses := make([]string, len(req.Models))
	g, gctx := errgroup.WithContext(ctx)

	for i, model := range req.Models {
		g.Go(func() error {
			start := time.Now()
			content, err := mh.Provider.ChatCompletion(gctx, provider.ChatInput{
				Model:       model,
				Messages:    req.Messages,
				Temperature: req.Temperature,
				MaxTokens:   req.MaxTokens,
			})
			metrics.ModelRequestDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
			if err != nil {
				metrics.ModelRequestCount.WithLabelValues(model, "error").Inc()
				return fmt.Errorf("model %s: %w", model, err)
			}
			metrics.ModelRequestCount.WithLabelValues(model, "success").Inc()
			responses[i] = content
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		metrics.ErrorCount.WithLabelValues(shared.ErrProviderChat.Code).Inc()
		return nil, errors.Join(shared.NewInternal(err), shared.ErrProviderChat)
	}
	return responses, nil
}

type SendMessageOutput struct {
	MessageID string   `json:"message_id"`
	Responses []string `json:"responses"`
}

// SendMessage validates, fans out and stores. A record is only written when
// every model answered.
func (mh *MessageHandler) SendMessage(ctx context.Context, body []byte) (*SendMessageOutput, error) {
	req, err := ParseChatRequest(body)
	if err != nil {
		return nil, err
	}

	responses, err := mh.Dispatch(ctx, req)
	if err != nil {
		mh.Log.Warnw("Dispatch failed", "error", err.Error(), "models", req.Models)
		return nil, err
	}

	id, err := mh.Store.InsertMessage(ctx, databaseMessage(req, responses))
	if err != nil {
		mh.Log.Errorw("Failed to store message", "error", err.Error())
		return nil, storeError(err, shared.ErrStorageWrite)
	}

	mh.Log.Infow("Message dispatched", "message_id", id, "models", len(req.Models))
	return &SendMessageOutput{MessageID: id, Responses: responses}, nil
}
