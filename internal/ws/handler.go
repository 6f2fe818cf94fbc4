package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/saker-ai/akbar-server/internal/engine"
	"github.com/saker-ai/akbar-server/internal/hub"
	"github.com/saker-ai/akbar-server/internal/persona"
	"github.com/saker-ai/akbar-server/internal/protocol"
	"github.com/saker-ai/akbar-server/internal/session/fsm"
	"github.com/saker-ai/akbar-server/internal/transcript"
)

// Engine is the part of the orchestrator a websocket session drives.
type Engine interface {
	Submit(ctx context.Context, in engine.Input) engine.Outcome
	SelectComicStyle(ctx context.Context, style string) (engine.Outcome, error)
	Retry(ctx context.Context) (engine.Outcome, error)
	Resubmit(ctx context.Context, messageID string) (engine.Outcome, error)
	ClearHistory(ctx context.Context) error
	SaveHistory(ctx context.Context) error
	SetPersona(ctx context.Context, raw string) error
	RegeneratePanelImage(ctx context.Context, messageID string) (string, error)
	SavePanelEdit(ctx context.Context, messageID, text, imageURL string) error
	Messages() []transcript.Message
	Persona() persona.ID
	SessionState() fsm.State
}

// Handler upgrades /client-ws connections. All sessions share one engine.
type Handler struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader
	engine   Engine
	hub      *hub.Hub
}

type session struct {
	conn    *websocket.Conn
	sendMu  sync.Mutex
	logger  *zap.Logger
	handler *Handler
	id      string
	queue   chan protocol.ClientCommand
}

// NewHandler builds a handler around eng and the shared hub.
func NewHandler(logger *zap.Logger, eng Engine, h *hub.Hub) *Handler {
	return &Handler{
		logger: logger.Named("ws"),
		engine: eng,
		hub:    h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Handle(w, r)
}

// Handle serves one connection until the peer leaves.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageBytes)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess := &session{
		conn:    conn,
		logger:  h.logger,
		handler: h,
		id:      uuid.NewString(),
		queue:   make(chan protocol.ClientCommand, queueSize),
	}
	sess.logger.Info("ws session opened", zap.String("client_id", sess.id))

	h.hub.Register(sess)
	sess.sendHistory()

	done := make(chan struct{})
	go func() {
		defer close(done)
		sess.work(ctx)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			sess.logger.Debug("ws connection closed", zap.String("client_id", sess.id), zap.Error(err))
			break
		}
		var msg protocol.ClientCommand
		if err := json.Unmarshal(data, &msg); err != nil {
			sess.sendError("invalid json")
			continue
		}
		if msg.Type == protocol.TypeHeartbeat {
			continue
		}
		sess.logger.Debug("ws incoming message",
			zap.String("client_id", sess.id),
			zap.String("type", msg.Type),
		)
		// Credential answers arrive while a turn is blocked waiting for them.
		if msg.Type == protocol.TypeCredentialResponse {
			sess.onCredentialResponse(msg)
			continue
		}
		select {
		case sess.queue <- msg:
		default:
			sess.sendError("server busy, try again")
		}
	}

	cancel()
	<-done
	remaining := h.hub.Unregister(sess.id)
	sess.logger.Info("ws session closed", zap.String("client_id", sess.id), zap.Int("remaining", remaining))
}

// work runs queued commands one at a time.
func (s *session) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.queue:
			s.dispatchIncoming(ctx, msg)
		}
	}
}

// ID identifies the session in the hub.
func (s *session) ID() string {
	return s.id
}

// Send writes msg to the peer.
func (s *session) Send(msg protocol.ServerMessage) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(msg)
}

func (s *session) sendJSON(msg protocol.ServerMessage) {
	if err := s.Send(msg); err != nil {
		s.logger.Debug("ws send failed", zap.String("client_id", s.id), zap.Error(err))
	}
}

func (s *session) sendError(text string) {
	s.sendJSON(protocol.ServerMessage{Type: protocol.TypeError, Error: text})
}

func (s *session) sendHistory() {
	eng := s.handler.engine
	s.sendJSON(protocol.ServerMessage{
		Type:     protocol.TypeHistoryData,
		Messages: eng.Messages(),
		Persona:  string(eng.Persona()),
		Session:  string(eng.SessionState()),
	})
}

func (s *session) onCredentialResponse(msg protocol.ClientCommand) {
	ok := msg.Success != nil && *msg.Success
	if !s.handler.hub.Resolve(msg.RequestID, hub.CredentialResponse{OK: ok, Key: msg.APIKey}) {
		s.logger.Debug("stale credential response",
			zap.String("client_id", s.id),
			zap.String("request_id", msg.RequestID),
		)
	}
}
