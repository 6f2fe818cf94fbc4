package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/saker-ai/akbar-server/internal/textutil"
	"github.com/saker-ai/akbar-server/internal/transcript"
)

// HistoryKey holds the saved transcript.
const HistoryKey = "akbar-chat-history"

// History persists the transcript on explicit save.
type History struct {
	kv KV
}

// NewHistory wraps kv.
func NewHistory(kv KV) *History {
	return &History{kv: kv}
}

// Load returns the saved transcript with markdown stripped from every text,
// writing the cleaned version back. A corrupt record is removed.
func (h *History) Load(ctx context.Context) ([]transcript.Message, error) {
	data, ok, err := h.kv.Get(ctx, HistoryKey)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if !ok || len(data) == 0 {
		return nil, nil
	}
	var messages []transcript.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		if delErr := h.kv.Delete(ctx, HistoryKey); delErr != nil {
			return nil, fmt.Errorf("drop corrupt history: %w", delErr)
		}
		return nil, fmt.Errorf("decode history: %w", err)
	}
	for i := range messages {
		if messages[i].Text != "" {
			messages[i].Text = textutil.StripMarkdown(messages[i].Text)
		}
	}
	if err := h.Save(ctx, messages); err != nil {
		return messages, err
	}
	return messages, nil
}

// Save overwrites the saved transcript.
func (h *History) Save(ctx context.Context, messages []transcript.Message) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	if err := h.kv.Set(ctx, HistoryKey, data); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// Clear removes the saved transcript.
func (h *History) Clear(ctx context.Context) error {
	return h.kv.Delete(ctx, HistoryKey)
}
