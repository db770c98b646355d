package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"llm-dispatch/internal/shared"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newCachedStore(t *testing.T) (*CachedStore, sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()
	store, mock := newMockStore(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCachedStore(store, client, zap.NewNop().Sugar()), mock, mr
}

func TestCachedStore_GetServesSecondReadFromCache(t *testing.T) {
	cs, mock, mr := newCachedStore(t)
	id := "67d1708d69cb3b653a022f13"
	mock.ExpectQuery("SELECT id, models, messages, responses").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow(id, `["m1"]`, `[{"role":"user","content":"hi"}]`, `["hey"]`, 0.5, nil, nil, time.Now()))

	first, err := cs.GetMessage(context.Background(), id)
	if err != nil {
		t.Fatalf("first GetMessage() error: %v", err)
	}
	if !mr.Exists(messageCacheKey(id)) {
		t.Fatal("Expected record to be cached")
	}

	second, err := cs.GetMessage(context.Background(), id)
	if err != nil {
		t.Fatalf("second GetMessage() error: %v", err)
	}
	if second.ID != first.ID || second.Responses[0] != "hey" {
		t.Fatalf("Unexpected cached record %+v", second)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCachedStore_NotFoundIsNotCached(t *testing.T) {
	cs, mock, mr := newCachedStore(t)
	id := "67d1708d69cb3b653a022f13"
	mock.ExpectQuery("SELECT id, models, messages, responses").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(recordColumns))

	if _, err := cs.GetMessage(context.Background(), id); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("Expected ErrNoDocument, got %v", err)
	}
	if mr.Exists(messageCacheKey(id)) {
		t.Fatal("Expected nothing cached for a missing record")
	}
}

func TestCachedStore_WritesEvict(t *testing.T) {
	cs, mock, mr := newCachedStore(t)
	id := "67d1708d69cb3b653a022f13"
	key := messageCacheKey(id)

	_ = mr.Set(key, `{"_id":"`+id+`"}`)
	mock.ExpectExec("UPDATE messages SET image_url").WillReturnResult(sqlmock.NewResult(0, 1))
	if _, err := cs.UpdateImageURL(context.Background(), id, "https://img/1.png"); err != nil {
		t.Fatalf("UpdateImageURL() error: %v", err)
	}
	if got, _ := mr.Get(key); got != messageTombstone {
		t.Fatalf("Expected update to leave a tombstone, got %q", got)
	}

	_ = mr.Set(key, `{"_id":"`+id+`"}`)
	mock.ExpectExec("DELETE FROM messages").WillReturnResult(sqlmock.NewResult(0, 1))
	if err := cs.DeleteMessage(context.Background(), id); err != nil {
		t.Fatalf("DeleteMessage() error: %v", err)
	}
	if got, _ := mr.Get(key); got != messageTombstone {
		t.Fatalf("Expected delete to leave a tombstone, got %q", got)
	}
	if ttl := mr.TTL(key); ttl <= 0 || ttl > shared.MessageTombstoneTTL {
		t.Fatalf("Unexpected tombstone ttl %v", ttl)
	}
}

func TestCachedStore_FallsThroughWhenRedisDown(t *testing.T) {
	cs, mock, mr := newCachedStore(t)
	id := "67d1708d69cb3b653a022f13"
	mr.SetError("ERR server unavailable")

	mock.ExpectQuery("SELECT id, models, messages, responses").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow(id, `["m1"]`, `[]`, `["hey"]`, 0.5, nil, nil, time.Now()))

	record, err := cs.GetMessage(context.Background(), id)
	if err != nil {
		t.Fatalf("GetMessage() error: %v", err)
	}
	if record.ID != id {
		t.Fatalf("Unexpected record %+v", record)
	}
}

func TestCachedStore_DeleteDuringReadIsNotCached(t *testing.T) {
	cs, mock, mr := newCachedStore(t)
	id := "67d1708d69cb3b653a022f13"
	key := messageCacheKey(id)

	mock.ExpectQuery("SELECT id, models, messages, responses").
		WithArgs(id).
		WillDelayFor(200 * time.Millisecond).
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow(id, `["m1"]`, `[]`, `["hey"]`, 0.5, nil, nil, time.Now()))
	mock.ExpectExec("DELETE FROM messages").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id, models, messages, responses").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(recordColumns))

	done := make(chan error, 1)
	go func() {
		_, err := cs.GetMessage(context.Background(), id)
		done <- err
	}()

	// Let the read reach MySQL before deleting
	time.Sleep(50 * time.Millisecond)
	if err := cs.DeleteMessage(context.Background(), id); err != nil {
		t.Fatalf("DeleteMessage() error: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("in flight GetMessage() error: %v", err)
	}

	if got, _ := mr.Get(key); got != messageTombstone {
		t.Fatalf("Expected tombstone to survive the in flight read, got %q", got)
	}
	if _, err := cs.GetMessage(context.Background(), id); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("Expected ErrNoDocument after delete, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCachedStore_TombstoneSkipsCacheForRead(t *testing.T) {
	cs, mock, mr := newCachedStore(t)
	id := "67d1708d69cb3b653a022f13"
	key := messageCacheKey(id)
	_ = mr.Set(key, messageTombstone)

	mock.ExpectQuery("SELECT id, models, messages, responses").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow(id, `["m1"]`, `[]`, `["hey"]`, 0.5, nil, "https://img/1.png", time.Now()))

	record, err := cs.GetMessage(context.Background(), id)
	if err != nil {
		t.Fatalf("GetMessage() error: %v", err)
	}
	if record.ImageURL == nil || *record.ImageURL != "https://img/1.png" {
		t.Fatalf("Expected fresh record from MySQL, got %+v", record)
	}
	if got, _ := mr.Get(key); got != messageTombstone {
		t.Fatalf("Expected tombstone to be kept, got %q", got)
	}
}
