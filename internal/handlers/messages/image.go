package messages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"llm-dispatch/internal/metrics"
	"llm-dispatch/internal/provider"
	"llm-dispatch/internal/shared"
)

// ImagePrompt appends the stored responses, newline separated, directly to the
// caller's prompt. No separator goes between the two.
func ImagePrompt(prefix string, responses []string) string {
	return prefix + strings.Join(responses, "\n")
}

// GenerateImage turns a stored record's responses into an image prompt and
// attaches the first generated image to the record. The raw provider body is
// returned to the caller.
func (mh *MessageHandler) GenerateImage(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := ParseImageRequest(body)
	if err != nil {
		return nil, err
	}

	record, err := mh.Store.GetMessage(ctx, req.MessageID)
	if err != nil {
		return nil, storeError(err, shared.ErrStorageRead)
	}
	if len(record.Responses) == 0 {
		return nil, shared.ErrNoResponses
	}

	out, err := mh.Provider.GenerateImage(ctx, provider.ImageInput{
		Model:  req.Model,
		N:      req.N,
		Prompt: ImagePrompt(req.Prompt, record.Responses),
		Steps:  req.Steps,
	})
	if err != nil {
		metrics.ImageRequestCount.WithLabelValues(req.Model, "error").Inc()
		metrics.ErrorCount.WithLabelValues(shared.ErrProviderImage.Code).Inc()
		mh.Log.Warnw("Image generation failed", "error", err.Error(), "model", req.Model)
		return nil, errors.Join(shared.NewInternal(fmt.Errorf("image generation failed: %w", err)), shared.ErrProviderImage)
	}
	if len(out.URLs) == 0 {
		metrics.ImageRequestCount.WithLabelValues(req.Model, "error").Inc()
		metrics.ErrorCount.WithLabelValues(shared.ErrNoImage.Code).Inc()
		return nil, errors.Join(shared.NewInternal(errors.New(shared.ErrNoImage.Msg)), shared.ErrNoImage)
	}
	metrics.ImageRequestCount.WithLabelValues(req.Model, "success").Inc()

	matched, err := mh.Store.UpdateImageURL(ctx, record.ID, out.URLs[0])
	if err != nil {
		mh.Log.Errorw("Failed to store image url", "error", err.Error(), "message_id", record.ID)
		return nil, storeError(err, shared.ErrStorageWrite)
	}
	if matched == 0 {
		mh.Log.Warnw("Image url update matched no rows", "message_id", record.ID)
	}

	return out.Raw, nil
}
