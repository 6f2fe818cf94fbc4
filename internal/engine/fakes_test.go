package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/saker-ai/akbar-server/internal/command"
	"github.com/saker-ai/akbar-server/internal/media"
	"github.com/saker-ai/akbar-server/internal/persona"
	"github.com/saker-ai/akbar-server/internal/session/fsm"
	"github.com/saker-ai/akbar-server/internal/transcript"
)

type fakeGenerator struct {
	mu sync.Mutex

	textErr   error
	imageErr  error
	submitErr error
	fetchErr  error
	audioErr  error
	panels    []string
	panelErr  error
	polls     map[string][]VideoStatus
	pollErr   error
	pollCount map[string]int

	conversations int
	released      []fsm.Handle
	panelPrompts  []string
	imageReqs     []ImageRequest
	textReqs      []TextRequest
	videoReqs     []VideoRequest
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{polls: make(map[string][]VideoStatus), pollCount: make(map[string]int)}
}

func (g *fakeGenerator) GenerateText(_ context.Context, req TextRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.textReqs = append(g.textReqs, req)
	if g.textErr != nil {
		return "", g.textErr
	}
	return "jawaban: " + req.Prompt, nil
}

func (g *fakeGenerator) CreateConversation(context.Context, string) (fsm.Handle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.textErr != nil {
		return "", g.textErr
	}
	g.conversations++
	return fsm.Handle(fmt.Sprintf("chat-%d", g.conversations)), nil
}

func (g *fakeGenerator) ContinueConversation(_ context.Context, h fsm.Handle, text string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.textErr != nil {
		return "", g.textErr
	}
	return fmt.Sprintf("%s: %s", h, text), nil
}

func (g *fakeGenerator) GenerateImage(_ context.Context, req ImageRequest) (media.Artifact, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.imageReqs = append(g.imageReqs, req)
	if g.imageErr != nil {
		return media.Artifact{}, g.imageErr
	}
	return media.Artifact{MimeType: "image/jpeg", Data: []byte("jpeg")}, nil
}

func (g *fakeGenerator) StartComic(context.Context, string) (fsm.Handle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.conversations++
	return fsm.Handle(fmt.Sprintf("comic-%d", g.conversations)), nil
}

func (g *fakeGenerator) GenerateStructuredPanel(_ context.Context, _ fsm.Handle, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.panelPrompts = append(g.panelPrompts, prompt)
	if g.panelErr != nil {
		return "", g.panelErr
	}
	if len(g.panels) > 0 {
		raw := g.panels[0]
		g.panels = g.panels[1:]
		return raw, nil
	}
	n := len(g.panelPrompts)
	return fmt.Sprintf(`{"image_prompt":"panel %d scene","narrative":"panel %d text"}`, n, n), nil
}

func (g *fakeGenerator) ReleaseConversation(h fsm.Handle) {
	if h == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.released = append(g.released, h)
}

func (g *fakeGenerator) SubmitVideoJob(_ context.Context, req VideoRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.videoReqs = append(g.videoReqs, req)
	if g.submitErr != nil {
		return "", g.submitErr
	}
	return fmt.Sprintf("operations/%d", len(g.videoReqs)), nil
}

// PollVideoJob walks the scripted statuses of operation and then repeats
// the last one. An unscripted operation never finishes.
func (g *fakeGenerator) PollVideoJob(ctx context.Context, operation string) (VideoStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return VideoStatus{}, err
	}
	if g.pollErr != nil {
		return VideoStatus{}, g.pollErr
	}
	script := g.polls[operation]
	if len(script) == 0 {
		return VideoStatus{Progress: 10}, nil
	}
	i := g.pollCount[operation]
	g.pollCount[operation]++
	if i >= len(script) {
		i = len(script) - 1
	}
	return script[i], nil
}

func (g *fakeGenerator) FetchVideo(context.Context, string) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	return []byte("mp4"), nil
}

func (g *fakeGenerator) GenerateAudioDescription(_ context.Context, image *command.Attachment) (media.Artifact, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.audioErr != nil {
		return media.Artifact{}, g.audioErr
	}
	return media.Artifact{MimeType: "audio/wav", Data: []byte("RIFF")}, nil
}

func (g *fakeGenerator) releasedHandles() []fsm.Handle {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]fsm.Handle(nil), g.released...)
}

type fakeCredentials struct {
	mu       sync.Mutex
	has      bool
	grant    bool
	err      error
	requests int
	invalid  int
}

func (c *fakeCredentials) HasCredential(context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.has
}

func (c *fakeCredentials) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.has = false
	c.invalid++
}

func (c *fakeCredentials) snapshot() (has bool, requests, invalid int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.has, c.requests, c.invalid
}

func (c *fakeCredentials) RequestCredential(context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests++
	if c.err != nil {
		return false, c.err
	}
	if c.grant {
		c.has = true
	}
	return c.grant, nil
}

type recordingSink struct {
	mu       sync.Mutex
	appended []transcript.Message
	updated  []transcript.Message
	removed  []string
	replaced int
	personas []persona.ID
	notices  []Notice
}

func (s *recordingSink) MessageAppended(msg transcript.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appended = append(s.appended, msg)
}

func (s *recordingSink) MessageUpdated(msg transcript.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = append(s.updated, msg)
}

func (s *recordingSink) MessagesRemoved(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, ids...)
}

func (s *recordingSink) HistoryReplaced([]transcript.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaced++
}

func (s *recordingSink) PersonaChanged(id persona.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.personas = append(s.personas, id)
}

func (s *recordingSink) Notice(n Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, n)
}

func (s *recordingSink) noticeTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.notices))
	for _, n := range s.notices {
		out = append(out, n.Text)
	}
	return out
}

type memorySaver struct {
	mu    sync.Mutex
	files map[string][]byte
	err   error
}

func (s *memorySaver) Save(_ context.Context, name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	if s.files == nil {
		s.files = make(map[string][]byte)
	}
	s.files[name] = data
	return "/media/" + name, nil
}

var errBoom = errors.New("boom")
