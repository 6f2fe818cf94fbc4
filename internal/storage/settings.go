package storage

import (
	"context"
	"strings"
)

// PersonaKey holds the chosen AI style.
const PersonaKey = "akbar-ai-style"

// Settings persists user preferences.
type Settings struct {
	kv KV
}

// NewSettings wraps kv.
func NewSettings(kv KV) *Settings {
	return &Settings{kv: kv}
}

// Persona returns the saved persona id, or "" when none was saved.
func (s *Settings) Persona(ctx context.Context) (string, error) {
	data, ok, err := s.kv.Get(ctx, PersonaKey)
	if err != nil || !ok {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// SetPersona saves id.
func (s *Settings) SetPersona(ctx context.Context, id string) error {
	return s.kv.Set(ctx, PersonaKey, []byte(id))
}
