// Package gemini implements the generation back end on the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/saker-ai/akbar-server/internal/config"
	"github.com/saker-ai/akbar-server/internal/engine"
	"github.com/saker-ai/akbar-server/internal/session/fsm"
)

// ErrUnknownConversation is returned for a handle that was released or never created.
var ErrUnknownConversation = errors.New("unknown conversation handle")

// KeySource supplies the key used for video jobs.
type KeySource interface {
	Key() string
}

// Client talks to the Gemini API. It is safe for concurrent use.
type Client struct {
	genai      *genai.Client
	cfg        config.GeminiConfig
	outputRate int
	videoKeys  KeySource
	httpClient *http.Client
	logger     *zap.Logger

	// dial opens a client for a video key; nil means newGenaiClient.
	dial func(ctx context.Context, key string) (*genai.Client, error)

	mu           sync.Mutex
	chats        map[fsm.Handle]*genai.Chat
	videoClients map[string]*genai.Client
}

var _ engine.Generator = (*Client)(nil)

// New creates a client for the text, image and speech models. Video jobs
// use keys from videoKeys, falling back to cfg.VideoAPIKey and cfg.APIKey.
func New(ctx context.Context, cfg config.GeminiConfig, outputRate int, videoKeys KeySource, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	gc, err := newGenaiClient(ctx, cfg.APIKey)
	if err != nil {
		return nil, err
	}
	return &Client{
		genai:      gc,
		cfg:        cfg,
		outputRate: outputRate,
		videoKeys:  videoKeys,
		httpClient: &http.Client{},
		logger:     logger.Named("gemini"),
		chats:      make(map[fsm.Handle]*genai.Chat),
	}, nil
}

func newGenaiClient(ctx context.Context, key string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return client, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.RequestTimeout)
}

func systemInstruction(text string) *genai.Content {
	if text == "" {
		return nil
	}
	return genai.NewContentFromText(text, genai.RoleUser)
}

// GenerateText answers a single prompt, with an optional attachment.
func (c *Client) GenerateText(ctx context.Context, req engine.TextRequest) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	parts := []*genai.Part{}
	if req.Attachment != nil {
		parts = append(parts, genai.NewPartFromBytes(req.Attachment.Data, req.Attachment.MimeType))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	res, err := c.genai.Models.GenerateContent(ctx, c.cfg.TextModel, contents, &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction(req.SystemInstruction),
	})
	if err != nil {
		return "", fmt.Errorf("generate text: %w", err)
	}
	text := res.Text()
	if text == "" {
		return "", errors.New("model returned empty text")
	}
	return text, nil
}

// CreateConversation opens a chat with the persona instruction.
func (c *Client) CreateConversation(ctx context.Context, instruction string) (fsm.Handle, error) {
	return c.createChat(ctx, &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction(instruction),
	})
}

func (c *Client) createChat(ctx context.Context, cfg *genai.GenerateContentConfig) (fsm.Handle, error) {
	chat, err := c.genai.Chats.Create(ctx, c.cfg.TextModel, cfg, nil)
	if err != nil {
		return "", fmt.Errorf("create chat: %w", err)
	}
	h := fsm.Handle(uuid.NewString())
	c.mu.Lock()
	c.chats[h] = chat
	c.mu.Unlock()
	return h, nil
}

func (c *Client) chat(h fsm.Handle) (*genai.Chat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	chat, ok := c.chats[h]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownConversation, h)
	}
	return chat, nil
}

// ContinueConversation sends text on an open chat.
func (c *Client) ContinueConversation(ctx context.Context, h fsm.Handle, text string) (string, error) {
	chat, err := c.chat(h)
	if err != nil {
		return "", err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	res, err := chat.SendMessage(ctx, genai.Part{Text: text})
	if err != nil {
		return "", fmt.Errorf("continue chat: %w", err)
	}
	return res.Text(), nil
}

// ReleaseConversation drops the chat state for h.
func (c *Client) ReleaseConversation(h fsm.Handle) {
	if h == "" {
		return
	}
	c.mu.Lock()
	delete(c.chats, h)
	c.mu.Unlock()
}

var panelSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"image_prompt": {Type: genai.TypeString},
		"narrative":    {Type: genai.TypeString},
	},
	Required: []string{"image_prompt", "narrative"},
}

// StartComic opens a chat constrained to panel JSON.
func (c *Client) StartComic(ctx context.Context, instruction string) (fsm.Handle, error) {
	return c.createChat(ctx, &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction(instruction),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    panelSchema,
	})
}

// GenerateStructuredPanel asks a comic chat for the next panel and returns its raw JSON.
func (c *Client) GenerateStructuredPanel(ctx context.Context, h fsm.Handle, prompt string) (string, error) {
	return c.ContinueConversation(ctx, h, prompt)
}

// Close releases idle HTTP connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
	c.mu.Lock()
	c.chats = make(map[fsm.Handle]*genai.Chat)
	c.videoClients = nil
	c.mu.Unlock()
}

func elapsed(start time.Time) zap.Field {
	return zap.Duration("elapsed", time.Since(start))
}
