package ws

import (
	"context"

	"go.uber.org/zap"

	"github.com/saker-ai/akbar-server/internal/engine"
	"github.com/saker-ai/akbar-server/internal/protocol"
)

func (s *session) dispatchIncoming(ctx context.Context, msg protocol.ClientCommand) {
	handlers := map[string]incomingHandler{
		protocol.TypeTextInput:        s.onTextInput,
		protocol.TypeSelectComicStyle: s.onSelectComicStyle,
		protocol.TypeRetry:            s.onRetry,
		protocol.TypeResubmitMessage:  s.onResubmitMessage,
		protocol.TypeClearHistory:     s.onClearHistory,
		protocol.TypeSaveHistory:      s.onSaveHistory,
		protocol.TypeSetPersona:       s.onSetPersona,
		protocol.TypeRegeneratePanel:  s.onRegeneratePanel,
		protocol.TypeSavePanelEdit:    s.onSavePanelEdit,
		protocol.TypeFetchHistory:     s.onFetchHistory,
	}

	if handler, ok := handlers[msg.Type]; ok {
		handler(ctx, msg)
		return
	}
	s.logger.Debug("ws unknown message type",
		zap.String("client_id", s.id),
		zap.String("type", msg.Type),
	)
}

func (s *session) onTextInput(ctx context.Context, msg protocol.ClientCommand) {
	file, err := msg.File.Attachment()
	if err != nil {
		s.sendError(err.Error())
		return
	}
	out := s.handler.engine.Submit(ctx, engine.Input{
		Text:                 msg.Text,
		File:                 file,
		SkipListenSuggestion: msg.SkipListenSuggestion,
	})
	s.logOutcome(msg.Type, out)
}

func (s *session) onSelectComicStyle(ctx context.Context, msg protocol.ClientCommand) {
	out, err := s.handler.engine.SelectComicStyle(ctx, msg.Style)
	if err != nil {
		s.sendError(err.Error())
		return
	}
	s.logOutcome(msg.Type, out)
}

func (s *session) onRetry(ctx context.Context, msg protocol.ClientCommand) {
	out, err := s.handler.engine.Retry(ctx)
	if err != nil {
		s.sendError(err.Error())
		return
	}
	s.logOutcome(msg.Type, out)
}

func (s *session) onResubmitMessage(ctx context.Context, msg protocol.ClientCommand) {
	out, err := s.handler.engine.Resubmit(ctx, msg.MessageID)
	if err != nil {
		s.sendError(err.Error())
		return
	}
	s.logOutcome(msg.Type, out)
}

func (s *session) onClearHistory(ctx context.Context, _ protocol.ClientCommand) {
	if err := s.handler.engine.ClearHistory(ctx); err != nil {
		s.sendError(err.Error())
	}
}

func (s *session) onSaveHistory(ctx context.Context, _ protocol.ClientCommand) {
	// Failures are already reported as a notice.
	_ = s.handler.engine.SaveHistory(ctx)
}

func (s *session) onSetPersona(ctx context.Context, msg protocol.ClientCommand) {
	if err := s.handler.engine.SetPersona(ctx, msg.Persona); err != nil {
		s.sendError(err.Error())
	}
}

func (s *session) onRegeneratePanel(ctx context.Context, msg protocol.ClientCommand) {
	url, err := s.handler.engine.RegeneratePanelImage(ctx, msg.MessageID)
	if err != nil {
		return
	}
	s.sendJSON(protocol.ServerMessage{Type: protocol.TypePanelImage, MessageID: msg.MessageID, ImageURL: url})
}

func (s *session) onSavePanelEdit(ctx context.Context, msg protocol.ClientCommand) {
	if err := s.handler.engine.SavePanelEdit(ctx, msg.MessageID, msg.Text, msg.ImageURL); err != nil {
		s.sendError(err.Error())
	}
}

func (s *session) onFetchHistory(_ context.Context, _ protocol.ClientCommand) {
	s.sendHistory()
}

func (s *session) logOutcome(kind string, out engine.Outcome) {
	fields := []zap.Field{
		zap.String("client_id", s.id),
		zap.String("type", kind),
		zap.String("kind", string(out.Kind)),
	}
	if out.Error != nil {
		fields = append(fields, zap.String("category", string(out.Error.Category)))
	}
	s.logger.Debug("ws turn finished", fields...)
}
