// Package transcript holds the ordered conversation shown to clients.
package transcript

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role is the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Status tracks a message that is still being generated.
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// FileInfo describes an attachment shown alongside a user message.
type FileInfo struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	URL      string `json:"url,omitempty"`
}

// Message is one transcript entry.
type Message struct {
	ID               string    `json:"id"`
	Role             Role      `json:"role"`
	Text             string    `json:"text,omitempty"`
	ImageURL         string    `json:"image_url,omitempty"`
	VideoURL         string    `json:"video_url,omitempty"`
	AudioURL         string    `json:"audio_url,omitempty"`
	File             *FileInfo `json:"file,omitempty"`
	Status           Status    `json:"status,omitempty"`
	StatusText       string    `json:"status_text,omitempty"`
	IsComicPanel     bool      `json:"is_comic_panel,omitempty"`
	PanelNumber      int       `json:"panel_number,omitempty"`
	ComicImagePrompt string    `json:"comic_image_prompt,omitempty"`
	IsStyleSelector  bool      `json:"is_style_selector,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewMessage returns a message with a fresh id and timestamp.
func NewMessage(role Role, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
}

// Transcript is an append-only list of messages guarded by a mutex.
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
	index    map[string]int
}

// New returns an empty transcript.
func New() *Transcript {
	return &Transcript{index: make(map[string]int)}
}

// Append adds msg at the end. A missing id or timestamp is filled in.
func (t *Transcript) Append(msg Message) Message {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.index[msg.ID] = len(t.messages)
	t.messages = append(t.messages, msg)
	return msg
}

// Update applies fn to the message with id and returns the result.
// It reports false when the message no longer exists.
func (t *Transcript) Update(id string, fn func(*Message)) (Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[id]
	if !ok {
		return Message{}, false
	}
	fn(&t.messages[i])
	t.messages[i].ID = id
	return t.messages[i], true
}

// Get returns the message with id.
func (t *Transcript) Get(id string) (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.index[id]
	if !ok {
		return Message{}, false
	}
	return t.messages[i], true
}

// Has reports whether a message with id exists.
func (t *Transcript) Has(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.index[id]
	return ok
}

// RemoveWhere deletes every message matching pred and returns the removed ids.
func (t *Transcript) RemoveWhere(pred func(Message) bool) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var removed []string
	kept := t.messages[:0]
	for _, msg := range t.messages {
		if pred(msg) {
			removed = append(removed, msg.ID)
			continue
		}
		kept = append(kept, msg)
	}
	t.messages = kept
	t.reindex()
	return removed
}

// All returns a copy of the messages in order.
func (t *Transcript) All() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Replace swaps the whole content, e.g. after loading persisted history.
func (t *Transcript) Replace(messages []Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append([]Message(nil), messages...)
	t.reindex()
}

// Reset removes every message.
func (t *Transcript) Reset() {
	t.Replace(nil)
}

// LastUser returns the most recent user message.
func (t *Transcript) LastUser() (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Role == RoleUser {
			return t.messages[i], true
		}
	}
	return Message{}, false
}

func (t *Transcript) reindex() {
	t.index = make(map[string]int, len(t.messages))
	for i, msg := range t.messages {
		t.index[msg.ID] = i
	}
}
