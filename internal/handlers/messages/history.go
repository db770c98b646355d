package messages

import (
	"context"

	"llm-dispatch/internal/database"
	"llm-dispatch/internal/shared"
)

func databaseMessage(req *ChatRequest, responses []string) database.NewMessage {
	return database.NewMessage{
		Models:      req.Models,
		Messages:    req.Messages,
		Responses:   responses,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
}

func (mh *MessageHandler) ListMessages(ctx context.Context) ([]shared.Preview, error) {
	previews, err := mh.Store.ListPreviews(ctx)
	if err != nil {
		mh.Log.Errorw("Failed to list messages", "error", err.Error())
		return nil, storeError(err, shared.ErrStorageRead)
	}
	return previews, nil
}

func (mh *MessageHandler) GetMessage(ctx context.Context, id string) (*shared.ChatRecord, error) {
	record, err := mh.Store.GetMessage(ctx, id)
	if err != nil {
		return nil, storeError(err, shared.ErrStorageRead)
	}
	return record, nil
}

type DeleteMessageOutput struct {
	Message string `json:"message"`
}

func (mh *MessageHandler) DeleteMessage(ctx context.Context, id string) (*DeleteMessageOutput, error) {
	if err := mh.Store.DeleteMessage(ctx, id); err != nil {
		return nil, storeError(err, shared.ErrStorageWrite)
	}
	mh.Log.Infow("Message deleted", "message_id", id)
	return &DeleteMessageOutput{Message: "Message " + id + " deleted successfully"}, nil
}
