// Package protocol defines the JSON messages exchanged with chat clients.
package protocol

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/saker-ai/akbar-server/internal/command"
	"github.com/saker-ai/akbar-server/internal/media"
	"github.com/saker-ai/akbar-server/internal/transcript"
)

// Incoming message types.
const (
	TypeTextInput          = "text-input"
	TypeSelectComicStyle   = "select-comic-style"
	TypeRetry              = "retry"
	TypeResubmitMessage    = "resubmit-message"
	TypeClearHistory       = "clear-history"
	TypeSaveHistory        = "save-history"
	TypeSetPersona         = "set-persona"
	TypeRegeneratePanel    = "regenerate-panel"
	TypeSavePanelEdit      = "save-panel-edit"
	TypeCredentialResponse = "credential-response"
	TypeFetchHistory       = "fetch-history"
	TypeHeartbeat          = "heartbeat"
)

// Outgoing message types.
const (
	TypeHistoryData       = "history-data"
	TypeMessageAppended   = "message-appended"
	TypeMessageUpdated    = "message-updated"
	TypeMessagesRemoved   = "messages-removed"
	TypeNotice            = "notice"
	TypePersona           = "persona"
	TypeCredentialRequest = "credential-request"
	TypePanelImage        = "panel-image"
	TypeError             = "error"
)

// ErrEmptyFile is returned for a file payload without data.
var ErrEmptyFile = errors.New("file payload has no data")

// FilePayload is an attachment sent inline. Data is base64 or a base64 data URL.
type FilePayload struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type,omitempty"`
	Data     string `json:"data"`
}

// Attachment decodes the payload.
func (f *FilePayload) Attachment() (*command.Attachment, error) {
	if f == nil {
		return nil, nil
	}
	raw := strings.TrimSpace(f.Data)
	if raw == "" {
		return nil, ErrEmptyFile
	}
	mimeType := f.MimeType
	var data []byte
	if strings.HasPrefix(raw, "data:") {
		declared, decoded, err := media.ParseDataURL(raw)
		if err != nil {
			return nil, err
		}
		if mimeType == "" {
			mimeType = declared
		}
		data = decoded
	} else {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("decode file %q: %w", f.Name, err)
		}
		data = decoded
	}
	return &command.Attachment{Name: f.Name, MimeType: mimeType, Data: data}, nil
}

// ClientCommand is a message sent by a client.
type ClientCommand struct {
	Type                 string       `json:"type"`
	Text                 string       `json:"text,omitempty"`
	File                 *FilePayload `json:"file,omitempty"`
	SkipListenSuggestion bool         `json:"skip_listen_suggestion,omitempty"`
	Style                string       `json:"style,omitempty"`
	MessageID            string       `json:"message_id,omitempty"`
	ImageURL             string       `json:"image_url,omitempty"`
	Persona              string       `json:"persona,omitempty"`
	RequestID            string       `json:"request_id,omitempty"`
	Success              *bool        `json:"success,omitempty"`
	APIKey               string       `json:"api_key,omitempty"`
}

// ServerMessage is a message pushed to clients. Only the fields of Type are set.
type ServerMessage struct {
	Type      string               `json:"type"`
	Message   *transcript.Message  `json:"message,omitempty"`
	Messages  []transcript.Message `json:"messages,omitempty"`
	IDs       []string             `json:"ids,omitempty"`
	Level     string               `json:"level,omitempty"`
	Text      string               `json:"text,omitempty"`
	Retryable bool                 `json:"retryable,omitempty"`
	Persona   string               `json:"persona,omitempty"`
	Session   string               `json:"session,omitempty"`
	RequestID string               `json:"request_id,omitempty"`
	MessageID string               `json:"message_id,omitempty"`
	ImageURL  string               `json:"image_url,omitempty"`
	Error     string               `json:"error,omitempty"`
}
