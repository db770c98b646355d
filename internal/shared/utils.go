// Package shared
package shared

import (
	"fmt"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
)

func SafeEnv(env string) (string, error) {
	res, present := os.LookupEnv(env)
	if !present {
		return "", fmt.Errorf("missing environment variable %s", env)
	}
	return res, nil
}

func ExtractAPIKey(c echo.Context) (string, error) {
	auth := c.Request().Header.Get("Authorization")
	if auth == "" {
		return "", ErrMissingAuth
	}

	parts := strings.Split(auth, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", ErrInvalidFormat
	}
	return parts[1], nil
}

// SplitList splits a comma separated flag value, dropping empty entries
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// PreviewOf returns the first user message content cut to PreviewLength
// characters, or NoUserMessage when there is none
func PreviewOf(messages []ChatMessage) string {
	for _, msg := range messages {
		if msg.Role != RoleUser {
			continue
		}
		runes := []rune(msg.Content)
		if len(runes) > PreviewLength {
			runes = runes[:PreviewLength]
		}
		return string(runes)
	}
	return NoUserMessage
}
