package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aidarkhanov/nanoid"
)

const (
	hexAlphabet = "0123456789abcdef"
	idLength    = 24
)

var ErrInvalidID = errors.New("invalid message id")

// NewMessageID builds a 12 byte document key rendered as 24 hex characters:
// 4 bytes of unix seconds followed by 8 random bytes, so ids sort roughly by
// creation time.
func NewMessageID(now time.Time) (string, error) {
	suffix, err := nanoid.Generate(hexAlphabet, idLength-8)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%08x", uint32(now.Unix())) + suffix, nil
}

// ParseID validates an id received at the boundary and returns its canonical
// lowercase form
func ParseID(id string) (string, error) {
	if len(id) != idLength {
		return "", ErrInvalidID
	}
	id = strings.ToLower(id)
	for _, r := range id {
		if !strings.ContainsRune(hexAlphabet, r) {
			return "", ErrInvalidID
		}
	}
	return id, nil
}
