package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DraftsKey holds in-flight video jobs as messageId -> operation name.
const DraftsKey = "akbar-video-drafts"

// ErrCorruptDrafts is returned when the drafts record cannot be decoded.
var ErrCorruptDrafts = errors.New("corrupt drafts record")

// Draft is a persisted in-flight video job.
type Draft struct {
	MessageID string `json:"message_id"`
	Operation string `json:"operation"`
}

// DraftStore persists video job handles so polling survives a restart.
type DraftStore struct {
	mu sync.Mutex
	kv KV
}

// NewDraftStore wraps kv.
func NewDraftStore(kv KV) *DraftStore {
	return &DraftStore{kv: kv}
}

// Save records operation for messageID.
func (s *DraftStore) Save(ctx context.Context, messageID, operation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	drafts, err := s.load(ctx)
	if err != nil {
		return err
	}
	drafts[messageID] = operation
	return s.store(ctx, drafts)
}

// Delete forgets messageID. Deleting an unknown id is a no-op.
func (s *DraftStore) Delete(ctx context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	drafts, err := s.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := drafts[messageID]; !ok {
		return nil
	}
	delete(drafts, messageID)
	if len(drafts) == 0 {
		return s.kv.Delete(ctx, DraftsKey)
	}
	return s.store(ctx, drafts)
}

// All lists the persisted drafts ordered by message id. A record that
// cannot be decoded yields ErrCorruptDrafts and is left in place.
func (s *DraftStore) All(ctx context.Context) ([]Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drafts, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Draft, 0, len(drafts))
	for id, op := range drafts {
		out = append(out, Draft{MessageID: id, Operation: op})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MessageID < out[j].MessageID })
	return out, nil
}

// Clear removes every draft.
func (s *DraftStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Delete(ctx, DraftsKey)
}

func (s *DraftStore) load(ctx context.Context) (map[string]string, error) {
	data, ok, err := s.kv.Get(ctx, DraftsKey)
	if err != nil {
		return nil, fmt.Errorf("load drafts: %w", err)
	}
	drafts := make(map[string]string)
	if !ok || len(data) == 0 {
		return drafts, nil
	}
	if err := json.Unmarshal(data, &drafts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDrafts, err)
	}
	return drafts, nil
}

func (s *DraftStore) store(ctx context.Context, drafts map[string]string) error {
	data, err := json.Marshal(drafts)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, DraftsKey, data); err != nil {
		return fmt.Errorf("save drafts: %w", err)
	}
	return nil
}
