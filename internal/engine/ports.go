package engine

import (
	"context"

	"github.com/saker-ai/akbar-server/internal/command"
	"github.com/saker-ai/akbar-server/internal/media"
	"github.com/saker-ai/akbar-server/internal/persona"
	"github.com/saker-ai/akbar-server/internal/session/fsm"
	"github.com/saker-ai/akbar-server/internal/transcript"
)

// TextRequest is a one-off text generation.
type TextRequest struct {
	Prompt            string
	SystemInstruction string
	Attachment        *command.Attachment
}

// ImageRequest generates an image, or edits Source when it is set.
type ImageRequest struct {
	Prompt            string
	AspectRatio       string
	Source            *command.Attachment
	SystemInstruction string
}

// VideoRequest submits a video job.
type VideoRequest struct {
	Prompt      string
	AspectRatio string
	Resolution  string
	// Quality is "high" or "fast".
	Quality string
}

// Video job phases reported by the back end.
const (
	PhaseGeneratingPreview = "GENERATING_PREVIEW"
	PhaseUploadingVideo    = "UPLOADING_VIDEO"
)

// VideoStatus is one poll result.
type VideoStatus struct {
	Done       bool
	Phase      string
	Progress   float64
	PreviewURI string
	VideoURI   string
	// Error is the back end's failure message for a finished job.
	Error string
}

// Generator is the generation back end.
type Generator interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
	CreateConversation(ctx context.Context, systemInstruction string) (fsm.Handle, error)
	ContinueConversation(ctx context.Context, h fsm.Handle, text string) (string, error)
	GenerateImage(ctx context.Context, req ImageRequest) (media.Artifact, error)
	// StartComic opens a conversation that answers with panel JSON.
	StartComic(ctx context.Context, systemInstruction string) (fsm.Handle, error)
	GenerateStructuredPanel(ctx context.Context, h fsm.Handle, prompt string) (string, error)
	// ReleaseConversation forgets a chat or comic conversation.
	ReleaseConversation(h fsm.Handle)
	// SubmitVideoJob returns the operation name to poll.
	SubmitVideoJob(ctx context.Context, req VideoRequest) (string, error)
	PollVideoJob(ctx context.Context, operation string) (VideoStatus, error)
	FetchVideo(ctx context.Context, uri string) ([]byte, error)
	// GenerateAudioDescription narrates image as a WAV clip.
	GenerateAudioDescription(ctx context.Context, image *command.Attachment) (media.Artifact, error)
}

// Credentials gates paid video generation.
type Credentials interface {
	HasCredential(ctx context.Context) bool
	// RequestCredential prompts the user and reports whether a key was chosen.
	RequestCredential(ctx context.Context) (bool, error)
	// Invalidate drops the selected key after the back end rejected it.
	Invalidate()
}

// NoticeLevel classifies a transient notice.
type NoticeLevel string

const (
	NoticeError         NoticeLevel = "error"
	NoticeInfo          NoticeLevel = "info"
	NoticeSuggestListen NoticeLevel = "suggest-listen"
)

// Notice is a banner or toast outside the transcript.
type Notice struct {
	Level     NoticeLevel `json:"level"`
	Text      string      `json:"text"`
	Retryable bool        `json:"retryable,omitempty"`
}

// Sink receives every state change clients should render.
type Sink interface {
	MessageAppended(msg transcript.Message)
	MessageUpdated(msg transcript.Message)
	MessagesRemoved(ids []string)
	HistoryReplaced(msgs []transcript.Message)
	PersonaChanged(id persona.ID)
	Notice(n Notice)
}

// Saver stores downloaded artifacts and returns a URL for them.
type Saver interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

type nopSink struct{}

func (nopSink) MessageAppended(transcript.Message)   {}
func (nopSink) MessageUpdated(transcript.Message)    {}
func (nopSink) MessagesRemoved([]string)             {}
func (nopSink) HistoryReplaced([]transcript.Message) {}
func (nopSink) PersonaChanged(persona.ID)            {}
func (nopSink) Notice(Notice)                        {}
