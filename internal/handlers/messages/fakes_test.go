package messages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"llm-dispatch/internal/database"
	"llm-dispatch/internal/provider"
	"llm-dispatch/internal/shared"

	"go.uber.org/zap"
)

// memoryStore keeps records in insertion order and applies the same id rules
// as the MySQL store
type memoryStore struct {
	mu      sync.Mutex
	order   []string
	records map[string]*shared.ChatRecord
	seq     int
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]*shared.ChatRecord{}}
}

func (s *memoryStore) InsertMessage(_ context.Context, msg database.NewMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.seq++
	id := fmt.Sprintf("%024x", s.seq)
	s.records[id] = &shared.ChatRecord{
		ID:          id,
		Models:      msg.Models,
		Messages:    msg.Messages,
		Responses:   msg.Responses,
		Timestamp:   time.Now(),
		Temperature: msg.Temperature,
		MaxTokens:   msg.MaxTokens,
	}
	s.order = append(s.order, id)
	return id, nil
}

func (s *memoryStore) ListPreviews(context.Context) ([]shared.Preview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := []shared.Preview{}
	for _, id := range s.order {
		r := s.records[id]
		out = append(out, shared.Preview{ID: id, Preview: shared.PreviewOf(r.Messages), Timestamp: r.Timestamp})
	}
	return out, nil
}

func (s *memoryStore) GetMessage(_ context.Context, id string) (*shared.ChatRecord, error) {
	id, err := database.ParseID(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	r, ok := s.records[id]
	if !ok {
		return nil, database.ErrNoDocument
	}
	copied := *r
	return &copied, nil
}

func (s *memoryStore) UpdateImageURL(_ context.Context, id string, url string) (int64, error) {
	id, err := database.ParseID(id)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return 0, nil
	}
	r.ImageURL = &url
	return 1, nil
}

func (s *memoryStore) DeleteMessage(_ context.Context, id string) error {
	id, err := database.ParseID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return database.ErrNoDocument
	}
	delete(s.records, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *memoryStore) put(r shared.ChatRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.ID] = &r
	s.order = append(s.order, r.ID)
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// stubProvider answers chat calls from replies keyed by model. A model listed
// in delays sleeps first, one listed in fail returns an error.
type stubProvider struct {
	replies    map[string]string
	delays     map[string]time.Duration
	fail       map[string]error
	chatCalls  atomic.Int32
	imageCalls atomic.Int32
	lastImage  provider.ImageInput
	imageOut   *provider.ImageOutput
	imageErr   error
	mu         sync.Mutex
}

func (p *stubProvider) ChatCompletion(ctx context.Context, in provider.ChatInput) (string, error) {
	p.chatCalls.Add(1)
	if d, ok := p.delays[in.Model]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err, ok := p.fail[in.Model]; ok {
		return "", err
	}
	reply, ok := p.replies[in.Model]
	if !ok {
		return "", errors.New("unknown model")
	}
	return reply, nil
}

func (p *stubProvider) GenerateImage(_ context.Context, in provider.ImageInput) (*provider.ImageOutput, error) {
	p.imageCalls.Add(1)
	p.mu.Lock()
	p.lastImage = in
	p.mu.Unlock()
	if p.imageErr != nil {
		return nil, p.imageErr
	}
	if p.imageOut != nil {
		return p.imageOut, nil
	}
	raw, _ := json.Marshal(map[string]any{
		"id":   "img-1",
		"data": []any{map[string]any{"index": 0, "url": "https://img.example/1.png"}},
	})
	return &provider.ImageOutput{Raw: raw, URLs: []string{"https://img.example/1.png"}}, nil
}

func newTestHandler(p *stubProvider) (*MessageHandler, *memoryStore) {
	store := newMemoryStore()
	return NewMessageHandler(store, p, zap.NewNop().Sugar()), store
}
