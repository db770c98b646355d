// Package database stores chat records in MySQL. Document shaped fields are
// kept in JSON columns; ids are opaque 24 hex character keys owned here.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"llm-dispatch/internal/shared"

	"github.com/go-sql-driver/mysql"
	"github.com/manifold-inc/manifold-sdk/lib/utils"
	"go.uber.org/zap"
)

var ErrNoDocument = errors.New("message not found")

// NewMessage is a chat record before it has an id or timestamp
type NewMessage struct {
	Models      []string
	Messages    []shared.ChatMessage
	Responses   []string
	Temperature float64
	MaxTokens   *int
}

type MessageStore struct {
	db  *sql.DB
	log *zap.SugaredLogger
	now func() time.Time
}

func NewMessageStore(db *sql.DB, log *zap.SugaredLogger) *MessageStore {
	return &MessageStore{db: db, log: log, now: time.Now}
}

// Open connects to MySQL. parseTime is forced on since created_at is scanned
// into time.Time.
// dsnConfig forces the driver options the store relies on. ClientFoundRows
// makes RowsAffected count matched rows, not changed ones.
func dsnConfig(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed parsing dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true
	return cfg, nil
}

func Open(dsn string) (*sql.DB, error) {
	cfg, err := dsnConfig(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed initializing sqlClient: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed ping to sql db: %w", err)
	}
	return db, nil
}

func (s *MessageStore) InsertMessage(ctx context.Context, msg NewMessage) (string, error) {
	now := s.now().UTC()
	id, err := NewMessageID(now)
	if err != nil {
		return "", fmt.Errorf("failed to generate message id: %w", err)
	}

	modelsJSON, err := json.Marshal(msg.Models)
	if err != nil {
		return "", err
	}
	messagesJSON, err := json.Marshal(msg.Messages)
	if err != nil {
		return "", err
	}
	responsesJSON, err := json.Marshal(msg.Responses)
	if err != nil {
		return "", err
	}

	var maxTokens sql.NullInt64
	if msg.MaxTokens != nil {
		maxTokens = sql.NullInt64{Int64: int64(*msg.MaxTokens), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (
			id,
			models,
			messages,
			responses,
			temperature,
			max_tokens,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		string(modelsJSON),
		string(messagesJSON),
		string(responsesJSON),
		msg.Temperature,
		maxTokens,
		now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert message: %w", err)
	}
	return id, nil
}

// ListPreviews reads only the columns needed for the list view
func (s *MessageStore) ListPreviews(ctx context.Context) ([]shared.Preview, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, messages, created_at
		FROM messages
		ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	previews := []shared.Preview{}
	for rows.Next() {
		var id string
		var messagesJSON []byte
		var createdAt time.Time
		if err := rows.Scan(&id, &messagesJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}

		var messages []shared.ChatMessage
		if err := json.Unmarshal(messagesJSON, &messages); err != nil {
			s.log.Warnw("Failed to decode stored messages", "error", err.Error(), "message_id", id)
		}
		previews = append(previews, shared.Preview{
			ID:        id,
			Preview:   shared.PreviewOf(messages),
			Timestamp: createdAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, utils.Wrap("Error iterating over message rows", err)
	}
	return previews, nil
}

func (s *MessageStore) GetMessage(ctx context.Context, id string) (*shared.ChatRecord, error) {
	id, err := ParseID(id)
	if err != nil {
		return nil, err
	}

	var record shared.ChatRecord
	var modelsJSON, messagesJSON, responsesJSON []byte
	var maxTokens sql.NullInt64
	var imageURL sql.NullString
	err = s.db.QueryRowContext(ctx, `
		SELECT id, models, messages, responses, temperature, max_tokens, image_url, created_at
		FROM messages
		WHERE id = ?`, id).Scan(
		&record.ID,
		&modelsJSON,
		&messagesJSON,
		&responsesJSON,
		&record.Temperature,
		&maxTokens,
		&imageURL,
		&record.Timestamp,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	if err := json.Unmarshal(modelsJSON, &record.Models); err != nil {
		return nil, fmt.Errorf("failed to decode models: %w", err)
	}
	if err := json.Unmarshal(messagesJSON, &record.Messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	if err := json.Unmarshal(responsesJSON, &record.Responses); err != nil {
		return nil, fmt.Errorf("failed to decode responses: %w", err)
	}
	if maxTokens.Valid {
		mt := int(maxTokens.Int64)
		record.MaxTokens = &mt
	}
	if imageURL.Valid {
		record.ImageURL = &imageURL.String
	}
	return &record, nil
}

// UpdateImageURL attaches url to the record and returns how many rows
// matched. Zero is not treated as an error.
func (s *MessageStore) UpdateImageURL(ctx context.Context, id string, url string) (int64, error) {
	id, err := ParseID(id)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE messages SET image_url = ? WHERE id = ?`, url, id)
	if err != nil {
		return 0, fmt.Errorf("failed to update image url: %w", err)
	}
	return res.RowsAffected()
}

func (s *MessageStore) DeleteMessage(ctx context.Context, id string) error {
	id, err := ParseID(id)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if affected == 0 {
		return ErrNoDocument
	}
	return nil
}
