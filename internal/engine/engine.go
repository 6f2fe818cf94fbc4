// Package engine orchestrates user turns: it routes input, drives the
// session state machine, runs generation jobs and reports results.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/saker-ai/akbar-server/internal/comic"
	"github.com/saker-ai/akbar-server/internal/command"
	"github.com/saker-ai/akbar-server/internal/errclass"
	"github.com/saker-ai/akbar-server/internal/media"
	"github.com/saker-ai/akbar-server/internal/persona"
	"github.com/saker-ai/akbar-server/internal/session/fsm"
	"github.com/saker-ai/akbar-server/internal/storage"
	"github.com/saker-ai/akbar-server/internal/transcript"
)

var (
	// ErrCredentialRequired is reported when video generation has no key.
	ErrCredentialRequired = errors.New(textCredentialRequired)
	// ErrNoActiveComic is reported when a continuation has no live comic.
	ErrNoActiveComic = fsm.ErrNoActiveComic
	// ErrNoPendingComic is returned when a style is picked without a pending comic.
	ErrNoPendingComic = errors.New("no comic is waiting for a style")
	// ErrNothingToRetry is returned when nothing has been submitted yet.
	ErrNothingToRetry = errors.New("nothing to retry")
	// ErrMessageNotFound is returned for unknown or unsuitable message ids.
	ErrMessageNotFound = errors.New("message not found")
	// ErrPanelPromptMissing is returned when a panel has no stored image prompt.
	ErrPanelPromptMissing = errors.New(textPanelPromptMissing)
)

const defaultPollInterval = 5 * time.Second

// Options wires an Engine.
type Options struct {
	Generator   Generator
	Credentials Credentials
	Sink        Sink
	Saver       Saver
	// Store backs drafts, saved history and settings.
	Store          storage.KV
	Personas       *persona.Registry
	PollInterval   time.Duration
	MaxUploadBytes int64
	Logger         *zap.Logger
}

// Input is one user submission.
type Input struct {
	Text                 string
	File                 *command.Attachment
	SkipListenSuggestion bool
}

// State is the conversational state owned by the turn loop.
type State struct {
	Session        *fsm.Machine
	Persona        persona.ID
	LastSubmission *Input
}

// Outcome summarizes a turn.
type Outcome struct {
	Kind          command.Kind      `json:"kind,omitempty"`
	Error         *errclass.Message `json:"error,omitempty"`
	SuggestListen bool              `json:"suggest_listen,omitempty"`
}

type handler func(ctx context.Context, cmd command.Command) *errclass.Message

// Engine runs turns one at a time. Video jobs poll in the background.
type Engine struct {
	gen       Generator
	creds     Credentials
	sink      Sink
	saver     Saver
	drafts    *storage.DraftStore
	history   *storage.History
	settings  *storage.Settings
	personas  *persona.Registry
	interval  time.Duration
	maxUpload int64
	logger    *zap.Logger

	transcript *transcript.Transcript
	handlers   map[command.Kind]handler

	turnMu sync.Mutex
	state  State

	// mu guards state.Persona and lastError for readers outside a turn.
	mu        sync.RWMutex
	lastError *errclass.Message

	life    context.Context
	stop    context.CancelFunc
	pollers errgroup.Group
	pollMu  sync.Mutex
	polling map[string]struct{}
}

// New builds an engine. Call Start before serving turns.
func New(opts Options) (*Engine, error) {
	if opts.Generator == nil {
		return nil, errors.New("engine: generator is required")
	}
	if opts.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	if opts.Sink == nil {
		opts.Sink = nopSink{}
	}
	if opts.Personas == nil {
		opts.Personas = persona.NewRegistry()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	life, stop := context.WithCancel(context.Background())
	e := &Engine{
		gen:        opts.Generator,
		creds:      opts.Credentials,
		sink:       opts.Sink,
		saver:      opts.Saver,
		drafts:     storage.NewDraftStore(opts.Store),
		history:    storage.NewHistory(opts.Store),
		settings:   storage.NewSettings(opts.Store),
		personas:   opts.Personas,
		interval:   opts.PollInterval,
		maxUpload:  opts.MaxUploadBytes,
		logger:     opts.Logger.Named("engine"),
		transcript: transcript.New(),
		state:      State{Session: fsm.New(), Persona: persona.Default},
		life:       life,
		stop:       stop,
		polling:    make(map[string]struct{}),
	}
	e.handlers = map[command.Kind]handler{
		command.KindChat:           e.handleChat,
		command.KindHelp:           e.handleHelp,
		command.KindImage:          e.handleImage,
		command.KindWallpaper:      e.handleWallpaper,
		command.KindPlaceholder:    e.handlePlaceholder,
		command.KindFileAnalyze:    e.handleFileAnalyze,
		command.KindListen:         e.handleListen,
		command.KindVideo:          e.handleVideo,
		command.KindComicStart:     e.handleComicStart,
		command.KindComicStylePick: e.handleComicStylePick,
		command.KindComicContinue:  e.handleComicContinue,
	}
	return e, nil
}

// Start loads saved history and persona, then resumes every persisted
// video draft. A draft whose message is gone gets a placeholder message.
func (e *Engine) Start(ctx context.Context) error {
	e.turnMu.Lock()
	defer e.turnMu.Unlock()

	msgs, err := e.history.Load(ctx)
	if err != nil {
		e.logger.Warn("failed to load chat history", zap.Error(err))
	}
	e.transcript.Replace(msgs)

	if raw, err := e.settings.Persona(ctx); err != nil {
		e.logger.Warn("failed to load persona", zap.Error(err))
	} else if raw != "" {
		if id, err := e.personas.Parse(raw); err == nil {
			e.setPersona(id)
		} else {
			e.logger.Warn("ignoring saved persona", zap.String("persona", raw))
		}
	}

	drafts, err := e.drafts.All(ctx)
	if errors.Is(err, storage.ErrCorruptDrafts) {
		e.logger.Warn("dropping unreadable video drafts", zap.Error(err))
		if err := e.drafts.Clear(ctx); err != nil {
			return fmt.Errorf("clear video drafts: %w", err)
		}
		drafts, err = nil, nil
	}
	if err != nil {
		return fmt.Errorf("load video drafts: %w", err)
	}
	for _, d := range drafts {
		resume := func(m *transcript.Message) {
			m.Role = transcript.RoleModel
			m.Status = transcript.StatusGenerating
			if m.StatusText == "" {
				m.StatusText = statusInit
			}
		}
		if _, ok := e.transcript.Update(d.MessageID, resume); !ok {
			msg := transcript.Message{ID: d.MessageID}
			resume(&msg)
			e.transcript.Append(msg)
		}
		e.logger.Info("resuming video draft", zap.String("message_id", d.MessageID), zap.String("operation", d.Operation))
		e.spawnPoller(d.MessageID, d.Operation)
	}
	e.sink.HistoryReplaced(e.transcript.All())
	return nil
}

// Shutdown suspends video polling, keeping drafts for the next Start.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.stop()
	done := make(chan struct{})
	go func() {
		_ = e.pollers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every running video poller has finished.
func (e *Engine) Wait() {
	_ = e.pollers.Wait()
}

// Submit runs one user turn.
func (e *Engine) Submit(ctx context.Context, in Input) Outcome {
	e.turnMu.Lock()
	defer e.turnMu.Unlock()
	return e.submit(ctx, in)
}

func (e *Engine) submit(ctx context.Context, in Input) Outcome {
	if in.File != nil {
		file := *in.File
		file.MimeType = media.DetectMIME(file.Name, file.MimeType, file.Data)
		in.File = &file
		if file.IsImage() && strings.TrimSpace(in.Text) == "" && !in.SkipListenSuggestion {
			e.sink.Notice(Notice{Level: NoticeSuggestListen, Text: textSuggestListen})
			return Outcome{SuggestListen: true}
		}
	}
	last := in
	e.state.LastSubmission = &last

	cmd, err := command.Route(in.Text, in.File, e.state.Session.State())
	if cmd.ContextBreaking {
		e.breakContext()
	}
	if err != nil {
		if errors.Is(err, command.ErrEmptyInput) {
			return Outcome{}
		}
		return Outcome{Kind: cmd.Kind, Error: e.reject(err)}
	}
	if len(cmd.UnknownFlags) > 0 {
		e.logger.Warn("unknown flags left in prompt", zap.String("kind", string(cmd.Kind)), zap.Strings("flags", cmd.UnknownFlags))
	}
	e.logger.Info("turn", zap.String("kind", string(cmd.Kind)), zap.Bool("context_breaking", cmd.ContextBreaking))

	h, ok := e.handlers[cmd.Kind]
	if !ok {
		return Outcome{Kind: cmd.Kind, Error: e.fail(fmt.Errorf("no handler for %s", cmd.Kind), "")}
	}
	if msg := h(ctx, cmd); msg != nil {
		return Outcome{Kind: cmd.Kind, Error: msg}
	}
	return Outcome{Kind: cmd.Kind}
}

// breakContext ends the live session before a one-off command.
func (e *Engine) breakContext() {
	snap := e.state.Session.Snapshot()
	if e.state.Session.BreakContext() {
		e.appendModel(textComicInterrupted)
	}
	e.gen.ReleaseConversation(snap.Conversation)
}

func (e *Engine) resetSession() {
	snap := e.state.Session.Snapshot()
	e.state.Session.Reset()
	e.gen.ReleaseConversation(snap.Conversation)
}

// Retry replays the last submission. A video that failed on its key asks
// for a new key first.
func (e *Engine) Retry(ctx context.Context) (Outcome, error) {
	e.turnMu.Lock()
	defer e.turnMu.Unlock()
	last := e.state.LastSubmission
	if last == nil {
		return Outcome{}, ErrNothingToRetry
	}
	if isVideoCommand(last.Text) && e.lastErrorIsCredential() && e.creds != nil {
		ok, err := e.creds.RequestCredential(ctx)
		if err != nil || !ok {
			msg := errclass.Message{Category: errclass.CategoryCredential, Text: textCredentialRetry, Retryable: true}
			e.notifyError(msg)
			return Outcome{Kind: command.KindVideo, Error: &msg}, nil
		}
	}
	e.clearLastError()
	return e.submit(ctx, *last), nil
}

// Resubmit runs the text of an earlier user message again.
func (e *Engine) Resubmit(ctx context.Context, messageID string) (Outcome, error) {
	e.turnMu.Lock()
	defer e.turnMu.Unlock()
	msg, ok := e.transcript.Get(messageID)
	if !ok || msg.Role != transcript.RoleUser || strings.TrimSpace(msg.Text) == "" {
		return Outcome{}, ErrMessageNotFound
	}
	return e.submit(ctx, Input{Text: msg.Text}), nil
}

// SelectComicStyle answers the style picker and draws the first panel.
func (e *Engine) SelectComicStyle(ctx context.Context, style string) (Outcome, error) {
	e.turnMu.Lock()
	defer e.turnMu.Unlock()
	pending, ok := e.state.Session.TakePending()
	if !ok {
		return Outcome{}, ErrNoPendingComic
	}
	e.resetSession()
	if removed := e.transcript.RemoveWhere(func(m transcript.Message) bool { return m.IsStyleSelector }); len(removed) > 0 {
		e.sink.MessagesRemoved(removed)
	}
	e.appendUser(transcript.NewMessage(transcript.RoleUser, comic.StyleConfirmation(style)))
	if msg := e.startComic(ctx, pending.Seed, style); msg != nil {
		return Outcome{Kind: command.KindComicStart, Error: msg}, nil
	}
	return Outcome{Kind: command.KindComicStart}, nil
}

// RegeneratePanelImage draws a comic panel again from its stored prompt
// and returns the new image without touching the transcript.
func (e *Engine) RegeneratePanelImage(ctx context.Context, messageID string) (string, error) {
	msg, ok := e.transcript.Get(messageID)
	if !ok || msg.ComicImagePrompt == "" {
		e.notifyError(errclass.Message{Category: errclass.CategoryCommandLogic, Text: textPanelPromptMissing})
		return "", ErrPanelPromptMissing
	}
	art, err := e.gen.GenerateImage(ctx, ImageRequest{Prompt: imagePrompt(msg.ComicImagePrompt, nil)})
	if err != nil {
		classified := errclass.Classify(err)
		e.setLastError(classified)
		e.notifyError(classified)
		return "", err
	}
	return art.DataURL(), nil
}

// SavePanelEdit stores an edited narrative and image for a panel.
func (e *Engine) SavePanelEdit(ctx context.Context, messageID, text, imageURL string) error {
	ok := e.update(messageID, func(m *transcript.Message) {
		m.Text = text
		if imageURL != "" {
			m.ImageURL = imageURL
		}
	})
	if !ok {
		return ErrMessageNotFound
	}
	return nil
}

// ClearHistory drops the transcript, the session and every persisted draft.
func (e *Engine) ClearHistory(ctx context.Context) error {
	e.turnMu.Lock()
	defer e.turnMu.Unlock()
	e.resetSession()
	e.transcript.Reset()
	err := errors.Join(e.history.Clear(ctx), e.drafts.Clear(ctx))
	e.sink.HistoryReplaced(nil)
	e.sink.Notice(Notice{Level: NoticeInfo, Text: textHistoryCleared})
	return err
}

// SaveHistory persists the current transcript. An empty transcript is not saved.
func (e *Engine) SaveHistory(ctx context.Context) error {
	msgs := e.transcript.All()
	if len(msgs) == 0 {
		return nil
	}
	if err := e.history.Save(ctx, msgs); err != nil {
		e.logger.Error("failed to save chat history", zap.Error(err))
		e.sink.Notice(Notice{Level: NoticeError, Text: textHistorySaveFailed})
		return err
	}
	return nil
}

// SetPersona switches the AI style and starts a fresh conversation.
func (e *Engine) SetPersona(ctx context.Context, raw string) error {
	e.turnMu.Lock()
	defer e.turnMu.Unlock()
	id, err := e.personas.Parse(raw)
	if err != nil {
		return err
	}
	if id == e.Persona() {
		return nil
	}
	e.setPersona(id)
	if err := e.settings.SetPersona(ctx, string(id)); err != nil {
		e.logger.Warn("failed to persist persona", zap.Error(err))
	}
	e.resetSession()
	e.sink.PersonaChanged(id)
	e.sink.Notice(Notice{Level: NoticeInfo, Text: textPersonaChanged})
	return nil
}

// Persona returns the active persona.
func (e *Engine) Persona() persona.ID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Persona
}

func (e *Engine) setPersona(id persona.ID) {
	e.mu.Lock()
	e.state.Persona = id
	e.mu.Unlock()
}

// SessionState reports the live session state.
func (e *Engine) SessionState() fsm.State {
	return e.state.Session.State()
}

// Messages returns the transcript.
func (e *Engine) Messages() []transcript.Message {
	return e.transcript.All()
}

// Drafts lists in-flight video jobs.
func (e *Engine) Drafts(ctx context.Context) ([]storage.Draft, error) {
	return e.drafts.All(ctx)
}

func (e *Engine) instruction() string {
	return e.personas.Instruction(e.Persona())
}

// reject reports a routing failure as a notice only. Flag validation
// messages are reworded by the classifier; the others are shown verbatim.
func (e *Engine) reject(err error) *errclass.Message {
	var msg errclass.Message
	var verr *command.ValidationError
	var missing *command.MissingArgumentError
	switch {
	case errors.As(err, &verr), errors.Is(err, command.ErrMissingImageAttachment):
		msg = errclass.Classify(err)
	case errors.As(err, &missing), errors.Is(err, command.ErrAmbiguousIntent):
		msg = errclass.Message{Category: errclass.CategoryValidation, Text: err.Error()}
	default:
		msg = errclass.Message{Category: errclass.CategoryCommandLogic, Text: err.Error()}
	}
	e.logger.Info("command rejected", zap.String("category", string(msg.Category)), zap.Error(err))
	e.setLastError(msg)
	e.notifyError(msg)
	return &msg
}

// fail reports a generation failure as a model message, or as the error
// state of pendingID when set, plus an error notice.
func (e *Engine) fail(err error, pendingID string) *errclass.Message {
	msg := errclass.Classify(err)
	e.logger.Warn("generation failed",
		zap.String("category", string(msg.Category)),
		zap.String("message_id", pendingID),
		zap.Error(err))
	e.setLastError(msg)
	if pendingID != "" {
		e.update(pendingID, func(m *transcript.Message) {
			m.Status = transcript.StatusError
			m.StatusText = ""
			m.Text = msg.Text
		})
	} else {
		e.appendModel(msg.Text)
	}
	e.notifyError(msg)
	return &msg
}

func (e *Engine) notifyError(msg errclass.Message) {
	e.sink.Notice(Notice{Level: NoticeError, Text: msg.Text, Retryable: msg.Retryable})
}

func (e *Engine) setLastError(msg errclass.Message) {
	e.mu.Lock()
	e.lastError = &msg
	e.mu.Unlock()
}

func (e *Engine) clearLastError() {
	e.mu.Lock()
	e.lastError = nil
	e.mu.Unlock()
}

func (e *Engine) lastErrorIsCredential() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.lastError == nil {
		return false
	}
	lower := strings.ToLower(e.lastError.Text)
	return e.lastError.Category == errclass.CategoryCredential ||
		strings.Contains(lower, "kunci api") || strings.Contains(lower, "not found")
}

func isVideoCommand(text string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(text)), "/video")
}

func (e *Engine) appendUser(msg transcript.Message) transcript.Message {
	msg.Role = transcript.RoleUser
	return e.append(msg)
}

func (e *Engine) appendModel(text string) transcript.Message {
	return e.append(transcript.NewMessage(transcript.RoleModel, text))
}

func (e *Engine) append(msg transcript.Message) transcript.Message {
	msg = e.transcript.Append(msg)
	e.sink.MessageAppended(msg)
	return msg
}

// update changes a message and broadcasts it. Updates to removed messages are dropped.
func (e *Engine) update(id string, fn func(*transcript.Message)) bool {
	msg, ok := e.transcript.Update(id, fn)
	if !ok {
		return false
	}
	e.sink.MessageUpdated(msg)
	return true
}
