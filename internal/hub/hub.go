// Package hub tracks connected clients, fans engine events out to all of
// them and relays credential prompts.
package hub

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/saker-ai/akbar-server/internal/engine"
	"github.com/saker-ai/akbar-server/internal/persona"
	"github.com/saker-ai/akbar-server/internal/protocol"
	"github.com/saker-ai/akbar-server/internal/transcript"
)

// ErrNoClients is returned when a prompt has nobody to ask.
var ErrNoClients = errors.New("no connected client can pick a credential")

// Client is one connected peer.
type Client interface {
	ID() string
	Send(msg protocol.ServerMessage) error
}

// CredentialResponse answers a credential request.
type CredentialResponse struct {
	OK  bool
	Key string
}

// Hub is safe for concurrent use.
type Hub struct {
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[string]Client

	waitMu  sync.Mutex
	waiters map[string]chan CredentialResponse
}

// New returns an empty hub.
func New(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:  logger.Named("hub"),
		clients: make(map[string]Client),
		waiters: make(map[string]chan CredentialResponse),
	}
}

// Register adds c. A client with the same id is replaced.
func (h *Hub) Register(c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID()] = c
}

// Unregister removes the client with id and returns how many remain.
func (h *Hub) Unregister(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
	return len(h.clients)
}

// Clients returns the connected client ids, sorted.
func (h *Hub) Clients() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Broadcast sends msg to every client. Send failures are logged; the
// client's own read loop is responsible for leaving.
func (h *Hub) Broadcast(msg protocol.ServerMessage) {
	h.mu.RLock()
	clients := make([]Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.Send(msg); err != nil {
			h.logger.Warn("broadcast failed",
				zap.String("client_id", c.ID()),
				zap.String("type", msg.Type),
				zap.Error(err),
			)
		}
	}
}

func (h *Hub) MessageAppended(msg transcript.Message) {
	h.Broadcast(protocol.ServerMessage{Type: protocol.TypeMessageAppended, Message: &msg})
}

func (h *Hub) MessageUpdated(msg transcript.Message) {
	h.Broadcast(protocol.ServerMessage{Type: protocol.TypeMessageUpdated, Message: &msg})
}

func (h *Hub) MessagesRemoved(ids []string) {
	h.Broadcast(protocol.ServerMessage{Type: protocol.TypeMessagesRemoved, IDs: ids})
}

func (h *Hub) HistoryReplaced(msgs []transcript.Message) {
	h.Broadcast(protocol.ServerMessage{Type: protocol.TypeHistoryData, Messages: msgs})
}

func (h *Hub) PersonaChanged(id persona.ID) {
	h.Broadcast(protocol.ServerMessage{Type: protocol.TypePersona, Persona: string(id)})
}

func (h *Hub) Notice(n engine.Notice) {
	h.Broadcast(protocol.ServerMessage{
		Type:      protocol.TypeNotice,
		Level:     string(n.Level),
		Text:      n.Text,
		Retryable: n.Retryable,
	})
}

// RequestCredential asks every client to pick a key. The first answer wins.
func (h *Hub) RequestCredential(ctx context.Context) (string, bool, error) {
	if len(h.Clients()) == 0 {
		return "", false, ErrNoClients
	}
	id := uuid.NewString()
	ch := make(chan CredentialResponse, 1)
	h.waitMu.Lock()
	h.waiters[id] = ch
	h.waitMu.Unlock()
	defer func() {
		h.waitMu.Lock()
		delete(h.waiters, id)
		h.waitMu.Unlock()
	}()

	h.logger.Info("requesting credential", zap.String("request_id", id))
	h.Broadcast(protocol.ServerMessage{Type: protocol.TypeCredentialRequest, RequestID: id})

	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case resp := <-ch:
		return resp.Key, resp.OK, nil
	}
}

// Resolve delivers resp to the request with id. It reports false when the
// request is unknown or already answered.
func (h *Hub) Resolve(id string, resp CredentialResponse) bool {
	h.waitMu.Lock()
	ch, ok := h.waiters[id]
	if ok {
		delete(h.waiters, id)
	}
	h.waitMu.Unlock()
	if !ok {
		return false
	}
	ch <- resp
	return true
}
