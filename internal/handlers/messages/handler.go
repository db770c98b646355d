// Package messages holds the dispatch logic behind the message routes:
// request validation, model fan-out, image generation and record access.
package messages

import (
	"context"
	"errors"

	"llm-dispatch/internal/database"
	"llm-dispatch/internal/metrics"
	"llm-dispatch/internal/provider"
	"llm-dispatch/internal/shared"

	"go.uber.org/zap"
)

// Store is the persistence adapter for chat records. Ids are opaque strings.
type Store interface {
	InsertMessage(ctx context.Context, msg database.NewMessage) (string, error)
	ListPreviews(ctx context.Context) ([]shared.Preview, error)
	GetMessage(ctx context.Context, id string) (*shared.ChatRecord, error)
	UpdateImageURL(ctx context.Context, id string, url string) (int64, error)
	DeleteMessage(ctx context.Context, id string) error
}

// Provider is the remote inference service
type Provider interface {
	ChatCompletion(ctx context.Context, in provider.ChatInput) (string, error)
	GenerateImage(ctx context.Context, in provider.ImageInput) (*provider.ImageOutput, error)
}

type MessageHandler struct {
	Store    Store
	Provider Provider
	Log      *zap.SugaredLogger
}

func NewMessageHandler(store Store, p Provider, log *zap.SugaredLogger) *MessageHandler {
	return &MessageHandler{Store: store, Provider: p, Log: log}
}

// storeError maps persistence errors onto request errors. Anything that is not
// a malformed id or a missing record is a backend failure.
func storeError(err error, code *shared.MetricsError) error {
	switch {
	case errors.Is(err, database.ErrInvalidID):
		return errors.Join(shared.ErrInvalidMessageID, err)
	case errors.Is(err, database.ErrNoDocument):
		return errors.Join(shared.ErrMessageNotFound, err)
	default:
		metrics.ErrorCount.WithLabelValues(code.Code).Inc()
		return errors.Join(shared.NewInternal(err), code)
	}
}
