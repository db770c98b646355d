package messages

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"llm-dispatch/internal/database"
	"llm-dispatch/internal/shared"
)

type ChatRequest struct {
	Models      []string
	Messages    []shared.ChatMessage
	Temperature float64
	MaxTokens   *int
}

// chatRequestBody uses pointers so absent fields can get their defaults
type chatRequestBody struct {
	Models      *[]string            `json:"models"`
	Messages    []shared.ChatMessage `json:"messages"`
	Temperature *float64             `json:"temperature"`
	MaxTokens   *int                 `json:"max_tokens"`
}

type ImageRequest struct {
	Model     string `json:"model"`
	N         int    `json:"n"`
	Prompt    string `json:"prompt"`
	Steps     *int   `json:"steps"`
	MessageID string `json:"message_id"`
}

// MissingRolesError lists the required roles absent from a conversation
type MissingRolesError struct {
	Missing []shared.Role
}

func (e *MissingRolesError) Error() string {
	names := make([]string, len(e.Missing))
	for i, r := range e.Missing {
		names[i] = string(r)
	}
	return fmt.Sprintf("messages must include at least one 'system' and one 'user' message; missing role: %s", strings.Join(names, ", "))
}

// RequireRoles returns a *MissingRolesError naming every role in required
// that no message carries
func RequireRoles(messages []shared.ChatMessage, required ...shared.Role) error {
	present := map[shared.Role]bool{}
	for _, msg := range messages {
		present[msg.Role] = true
	}
	var missing []shared.Role
	for _, r := range required {
		if !present[r] {
			missing = append(missing, r)
		}
	}
	if len(missing) != 0 {
		return &MissingRolesError{Missing: missing}
	}
	return nil
}

// ParseChatRequest validates a send request. Nothing here touches the
// provider, so a rejected request never costs a model call.
func ParseChatRequest(body []byte) (*ChatRequest, error) {
	var payload chatRequestBody
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Join(shared.ErrInvalidRequest, err)
	}

	models := shared.DefaultModels
	if payload.Models != nil {
		models = *payload.Models
		if len(models) == 0 {
			return nil, shared.NewBadRequest(errors.New("models cannot be empty"))
		}
		for i, m := range models {
			if strings.TrimSpace(m) == "" {
				return nil, shared.NewBadRequest(fmt.Errorf("models[%d] cannot be empty", i))
			}
		}
	}

	if len(payload.Messages) == 0 {
		return nil, shared.NewBadRequest(errors.New("messages are required"))
	}
	for i, msg := range payload.Messages {
		if !msg.Role.Valid() {
			return nil, shared.NewBadRequest(fmt.Errorf("messages[%d].role must be 'system' or 'user', got %q", i, msg.Role))
		}
	}
	if err := RequireRoles(payload.Messages, shared.RoleSystem, shared.RoleUser); err != nil {
		return nil, shared.NewBadRequest(err)
	}

	temperature := shared.DefaultTemperature
	if payload.Temperature != nil {
		temperature = *payload.Temperature
	}

	return &ChatRequest{
		Models:      append([]string(nil), models...),
		Messages:    payload.Messages,
		Temperature: temperature,
		MaxTokens:   payload.MaxTokens,
	}, nil
}

// ParseImageRequest checks the message id format before anything else. Steps
// stays nil when absent so an explicit zero still reaches the provider.
func ParseImageRequest(body []byte) (*ImageRequest, error) {
	var req ImageRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, errors.Join(shared.ErrInvalidRequest, err)
	}
	if req.MessageID == "" {
		return nil, shared.NewBadRequest(errors.New("message_id is required"))
	}
	id, err := database.ParseID(req.MessageID)
	if err != nil {
		return nil, errors.Join(shared.ErrInvalidMessageID, err)
	}
	req.MessageID = id
	if strings.TrimSpace(req.Model) == "" {
		return nil, shared.NewBadRequest(errors.New("model is required"))
	}
	if req.N < 1 {
		return nil, shared.NewBadRequest(errors.New("n must be at least 1"))
	}
	return &req, nil
}
