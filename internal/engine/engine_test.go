package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/saker-ai/akbar-server/internal/comic"
	"github.com/saker-ai/akbar-server/internal/command"
	"github.com/saker-ai/akbar-server/internal/errclass"
	"github.com/saker-ai/akbar-server/internal/persona"
	"github.com/saker-ai/akbar-server/internal/session/fsm"
	"github.com/saker-ai/akbar-server/internal/storage"
	"github.com/saker-ai/akbar-server/internal/transcript"
)

func TestMain(m *testing.M) {
	// The firestore client linked through storage starts the opencensus
	// stats worker at init.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type harness struct {
	eng   *Engine
	gen   *fakeGenerator
	sink  *recordingSink
	saver *memorySaver
	kv    storage.KV
}

func newHarness(t *testing.T, kv storage.KV, creds *fakeCredentials) *harness {
	t.Helper()
	if kv == nil {
		kv = storage.NewMemoryKV()
	}
	h := &harness{gen: newFakeGenerator(), sink: &recordingSink{}, saver: &memorySaver{}, kv: kv}
	opts := Options{
		Generator:    h.gen,
		Sink:         h.sink,
		Saver:        h.saver,
		Store:        kv,
		PollInterval: 5 * time.Millisecond,
	}
	if creds != nil {
		opts.Credentials = creds
	}
	eng, err := New(opts)
	require.NoError(t, err)
	h.eng = eng
	t.Cleanup(func() { _ = eng.Shutdown(context.Background()) })
	return h
}

func (h *harness) started(t *testing.T) *harness {
	t.Helper()
	require.NoError(t, h.eng.Start(context.Background()))
	return h
}

func pngFile() *command.Attachment {
	return &command.Attachment{Name: "foto.png", MimeType: "image/png", Data: []byte("\x89PNG\r\n\x1a\n")}
}

func last(msgs []transcript.Message) transcript.Message {
	return msgs[len(msgs)-1]
}

func TestChatCreatesConversationOnce(t *testing.T) {
	h := newHarness(t, nil, nil).started(t)
	ctx := context.Background()

	out := h.eng.Submit(ctx, Input{Text: "halo"})
	assert.Nil(t, out.Error)
	assert.Equal(t, command.KindChat, out.Kind)
	h.eng.Submit(ctx, Input{Text: "apa kabar"})

	msgs := h.eng.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, transcript.RoleUser, msgs[2].Role)
	assert.Equal(t, "chat-1: apa kabar", msgs[3].Text)
	assert.Equal(t, 1, h.gen.conversations)
	assert.Equal(t, fsm.StateChat, h.eng.SessionState())
}

func TestEmptyInputIsIgnored(t *testing.T) {
	h := newHarness(t, nil, nil).started(t)
	out := h.eng.Submit(context.Background(), Input{Text: "   "})
	assert.Nil(t, out.Error)
	assert.Empty(t, h.eng.Messages())
	assert.Empty(t, h.sink.noticeTexts())
}

func TestHelpDoesNotBreakChat(t *testing.T) {
	h := newHarness(t, nil, nil).started(t)
	ctx := context.Background()
	h.eng.Submit(ctx, Input{Text: "halo"})
	h.eng.Submit(ctx, Input{Text: "/help"})

	assert.Equal(t, helpText, last(h.eng.Messages()).Text)
	assert.Equal(t, fsm.StateChat, h.eng.SessionState())
	assert.Empty(t, h.gen.releasedHandles())
}

func TestImageCommand(t *testing.T) {
	h := newHarness(t, nil, nil).started(t)
	out := h.eng.Submit(context.Background(), Input{Text: "/gambar kucing --style anime --quality 1 --aspect 16:9"})
	require.Nil(t, out.Error)

	msg := last(h.eng.Messages())
	assert.Equal(t, textImageDone, msg.Text)
	assert.Equal(t, "data:image/jpeg;base64,anBlZw==", msg.ImageURL)
	require.Len(t, h.gen.imageReqs, 1)
	assert.Equal(t, "kucing, in a anime style, high quality", h.gen.imageReqs[0].Prompt)
	assert.Equal(t, "16:9", h.gen.imageReqs[0].AspectRatio)
}

func TestImageFailureAppendsClassifiedMessage(t *testing.T) {
	h := newHarness(t, nil, nil).started(t)
	h.gen.imageErr = errors.New("request blocked by safety filters")
	out := h.eng.Submit(context.Background(), Input{Text: "/gambar sesuatu"})

	require.NotNil(t, out.Error)
	assert.Equal(t, errclass.CategorySafety, out.Error.Category)
	assert.Equal(t, out.Error.Text, last(h.eng.Messages()).Text)
	assert.Contains(t, h.sink.noticeTexts(), out.Error.Text)
}

func TestRouterErrorsOnlyNotify(t *testing.T) {
	cases := []struct {
		name     string
		in       Input
		category errclass.Category
		text     string
	}{
		{"ambiguous", Input{Text: "/gambar kucing", File: pngFile()}, errclass.CategoryValidation, command.ErrAmbiguousIntent.Error()},
		{"flag", Input{Text: "/gambar --quality 9 kucing"}, errclass.CategoryValidation, "Kualitas harus antara 1 dan 4, dasar!"},
		{"missing", Input{Text: "/video"}, errclass.CategoryValidation, "Perintah `/video` butuh deskripsi, jenius."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, nil, nil).started(t)
			out := h.eng.Submit(context.Background(), tc.in)
			require.NotNil(t, out.Error)
			assert.Equal(t, tc.category, out.Error.Category)
			assert.Equal(t, tc.text, out.Error.Text)
			assert.Empty(t, h.eng.Messages())
			assert.Equal(t, []string{tc.text}, h.sink.noticeTexts())
		})
	}
}

func TestBareImageSuggestsListen(t *testing.T) {
	h := newHarness(t, nil, nil).started(t)
	ctx := context.Background()

	out := h.eng.Submit(ctx, Input{File: pngFile()})
	assert.True(t, out.SuggestListen)
	assert.Empty(t, h.eng.Messages())
	require.Len(t, h.sink.notices, 1)
	assert.Equal(t, NoticeSuggestListen, h.sink.notices[0].Level)
	_, err := h.eng.Retry(ctx)
	assert.ErrorIs(t, err, ErrNothingToRetry)

	out = h.eng.Submit(ctx, Input{File: pngFile(), SkipListenSuggestion: true})
	require.Nil(t, out.Error)
	assert.Equal(t, command.KindFileAnalyze, out.Kind)
	msgs := h.eng.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, textDescribeImage, msgs[0].Text)
	assert.True(t, strings.HasPrefix(msgs[0].ImageURL, "data:image/png;base64,"))
	assert.Equal(t, textReimagineDone, msgs[1].Text)
	require.Len(t, h.gen.imageReqs, 1)
	assert.NotNil(t, h.gen.imageReqs[0].Source)
}

func TestFileAnalyzeTransformsImage(t *testing.T) {
	h := newHarness(t, nil, nil).started(t)
	out := h.eng.Submit(context.Background(), Input{Text: "jadikan malam hari", File: pngFile()})
	require.Nil(t, out.Error)
	assert.Equal(t, textTransformDone, last(h.eng.Messages()).Text)
	assert.True(t, strings.HasPrefix(h.gen.imageReqs[0].Prompt, "jadikan malam hari, "))
}

func TestFileAnalyzeSummarizesPDF(t *testing.T) {
	h := newHarness(t, nil, nil).started(t)
	file := &command.Attachment{Name: "laporan.pdf", MimeType: "application/pdf", Data: []byte("%PDF-1.4")}
	out := h.eng.Submit(context.Background(), Input{File: file})
	require.Nil(t, out.Error)

	msgs := h.eng.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, `Ringkasin isi dokumen "laporan.pdf" ini. Cepat, gue gak punya banyak waktu.`, msgs[0].Text)
	require.NotNil(t, msgs[0].File)
	assert.Equal(t, "application/pdf", msgs[0].File.MimeType)
	require.Len(t, h.gen.textReqs, 1)
	assert.Equal(t, file.Data, h.gen.textReqs[0].Attachment.Data)
}

func TestFileAnalyzeRejectsUnsupportedType(t *testing.T) {
	h := newHarness(t, nil, nil).started(t)
	file := &command.Attachment{Name: "arsip.zip", MimeType: "application/zip", Data: []byte("PK")}
	out := h.eng.Submit(context.Background(), Input{File: file})

	require.NotNil(t, out.Error)
	assert.Equal(t, errclass.CategoryFileHandling, out.Error.Category)
	msgs := h.eng.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "arsip.zip", msgs[0].Text)
	assert.Equal(t, out.Error.Text, msgs[1].Text)
}

func TestListenSavesAudio(t *testing.T) {
	h := newHarness(t, nil, nil).started(t)
	out := h.eng.Submit(context.Background(), Input{Text: "/dengarkan", File: pngFile()})
	require.Nil(t, out.Error)

	msgs := h.eng.Messages()
	require.Len(t, msgs, 2)
	assert.NotEmpty(t, msgs[0].ImageURL)
	assert.Equal(t, transcript.StatusComplete, msgs[1].Status)
	assert.Equal(t, textListenDone, msgs[1].Text)
	assert.True(t, strings.HasPrefix(msgs[1].AudioURL, "/media/akbar-audio-"))
}

func TestListenFailureMarksPendingMessage(t *testing.T) {
	h := newHarness(t, nil, nil).started(t)
	h.gen.audioErr = errBoom
	out := h.eng.Submit(context.Background(), Input{Text: "/dengarkan", File: pngFile()})
	require.NotNil(t, out.Error)

	msgs := h.eng.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, transcript.StatusError, msgs[1].Status)
	assert.Equal(t, errclass.Fallback, msgs[1].Text)
}

func TestComicPanelsAdvance(t *testing.T) {
	h := newHarness(t, nil, nil).started(t)
	ctx := context.Background()

	h.eng.Submit(ctx, Input{Text: "/komik kucing astronot"})
	assert.Equal(t, fsm.StateComicPending, h.eng.SessionState())
	picker := last(h.eng.Messages())
	assert.True(t, picker.IsStyleSelector)

	out, err := h.eng.SelectComicStyle(ctx, "anime")
	require.NoError(t, err)
	require.Nil(t, out.Error)
	assert.Equal(t, fsm.StateComicActive, h.eng.SessionState())
	assert.Contains(t, h.sink.removed, picker.ID)
	for _, m := range h.eng.Messages() {
		assert.False(t, m.IsStyleSelector)
	}
	panel := last(h.eng.Messages())
	assert.True(t, panel.IsComicPanel)
	assert.Equal(t, 1, panel.PanelNumber)
	assert.Equal(t, "panel 1 text", panel.Text)
	assert.Equal(t, "panel 1 scene", panel.ComicImagePrompt)
	assert.Equal(t, comic.StartPrompt("kucing astronot"), h.gen.panelPrompts[0])

	h.eng.Submit(ctx, Input{Text: "lanjut"})
	out = h.eng.Submit(ctx, Input{Text: "terus dong"})
	require.Nil(t, out.Error)
	assert.Equal(t, command.KindComicContinue, out.Kind)
	assert.Equal(t, 3, h.eng.state.Session.Snapshot().PanelCount)
	assert.Equal(t, 3, last(h.eng.Messages()).PanelNumber)
	assert.Equal(t, comic.ContinuePrompt, h.gen.panelPrompts[2])
}

func TestSelectStyleWithoutPendingComic(t *testing.T) {
	h := newHarness(t, nil, nil).started(t)
	_, err := h.eng.SelectComicStyle(context.Background(), "anime")
	assert.ErrorIs(t, err, ErrNoPendingComic)
}

func TestChatDuringComicKeepsSession(t *testing.T) {
	h := newHarness(t, nil, nil).started(t)
	ctx := context.Background()
	h.eng.Submit(ctx, Input{Text: "/komik --style cyberpunk kota hujan"})
	require.Equal(t, fsm.StateComicActive, h.eng.SessionState())

	out := h.eng.Submit(ctx, Input{Text: "siapa tokoh utamanya?"})
	require.Nil(t, out.Error)
	assert.Equal(t, command.KindChat, out.Kind)
	assert.Equal(t, fsm.StateComicActive, h.eng.SessionState())
	assert.Equal(t, 1, h.gen.conversations)
	assert.Equal(t, "jawaban: siapa tokoh utamanya?", last(h.eng.Messages()).Text)
}

func TestSlashCommandInterruptsComic(t *testing.T) {
	h := newHarness(t, nil, nil).started(t)
	ctx := context.Background()
	h.eng.Submit(ctx, Input{Text: "/komik --style anime robot"})
	require.Equal(t, fsm.StateComicActive, h.eng.SessionState())

	h.eng.Submit(ctx, Input{Text: "/gambar kucing"})
	assert.Equal(t, fsm.StateNone, h.eng.SessionState())
	assert.Contains(t, h.gen.releasedHandles(), fsm.Handle("comic-1"))

	msgs := h.eng.Messages()
	require.GreaterOrEqual(t, len(msgs), 3)
	assert.Equal(t, textComicInterrupted, msgs[len(msgs)-3].Text)
	assert.Equal(t, "/gambar kucing", msgs[len(msgs)-2].Text)
}

func TestFailedSlashCommandStillInterruptsComic(t *testing.T) {
	for _, text := range []string{"/gambar", "/gambar naga --style bogus", "/video --aspect 4:3 kota"} {
		t.Run(text, func(t *testing.T) {
			h := newHarness(t, nil, nil).started(t)
			ctx := context.Background()
			h.eng.Submit(ctx, Input{Text: "/komik --style anime robot"})
			require.Equal(t, fsm.StateComicActive, h.eng.SessionState())

			out := h.eng.Submit(ctx, Input{Text: text})
			require.NotNil(t, out.Error)
			assert.Equal(t, fsm.StateNone, h.eng.SessionState())
			assert.Contains(t, h.gen.releasedHandles(), fsm.Handle("comic-1"))
			assert.Equal(t, textComicInterrupted, last(h.eng.Messages()).Text)
		})
	}
}

func TestComicFailureEndsSession(t *testing.T) {
	h := newHarness(t, nil, nil).started(t)
	ctx := context.Background()
	h.gen.panels = []string{"bukan json"}

	out := h.eng.Submit(ctx, Input{Text: "/komik --style anime robot"})
	require.NotNil(t, out.Error)
	assert.Equal(t, comic.ErrMalformedJSON.Error(), out.Error.Text)
	assert.Equal(t, fsm.StateNone, h.eng.SessionState())
	assert.Contains(t, h.gen.releasedHandles(), fsm.Handle("comic-1"))

	h.eng.Submit(ctx, Input{Text: "/komik --style anime robot"})
	require.Equal(t, fsm.StateComicActive, h.eng.SessionState())
	h.gen.imageErr = errBoom
	out = h.eng.Submit(ctx, Input{Text: "lanjutkan"})
	require.NotNil(t, out.Error)
	assert.Equal(t, fsm.StateNone, h.eng.SessionState())
}

func TestRegenerateAndEditPanel(t *testing.T) {
	h := newHarness(t, nil, nil).started(t)
	ctx := context.Background()
	h.eng.Submit(ctx, Input{Text: "/komik --style anime robot"})
	msgs := h.eng.Messages()
	panel := last(msgs)

	url, err := h.eng.RegeneratePanelImage(ctx, panel.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"))

	_, err = h.eng.RegeneratePanelImage(ctx, msgs[0].ID)
	assert.ErrorIs(t, err, ErrPanelPromptMissing)
	assert.Contains(t, h.sink.noticeTexts(), textPanelPromptMissing)

	require.NoError(t, h.eng.SavePanelEdit(ctx, panel.ID, "narasi baru", url))
	assert.Equal(t, "narasi baru", last(h.eng.Messages()).Text)
	assert.ErrorIs(t, h.eng.SavePanelEdit(ctx, "missing", "x", ""), ErrMessageNotFound)
}

func TestVideoCredentialDeclined(t *testing.T) {
	creds := &fakeCredentials{}
	h := newHarness(t, nil, creds).started(t)

	out := h.eng.Submit(context.Background(), Input{Text: "/video kucing terbang"})
	require.NotNil(t, out.Error)
	assert.Equal(t, errclass.CategoryCredential, out.Error.Category)
	assert.Equal(t, textCredentialRequired, out.Error.Text)
	assert.Empty(t, h.eng.Messages())
	assert.Empty(t, h.gen.videoReqs)
	assert.Equal(t, 1, creds.requests)
}

func TestVideoCompletes(t *testing.T) {
	creds := &fakeCredentials{grant: true}
	h := newHarness(t, nil, creds).started(t)
	h.gen.polls["operations/1"] = []VideoStatus{
		{Progress: 50},
		{Phase: PhaseGeneratingPreview, PreviewURI: "https://preview"},
		{Done: true, VideoURI: "https://video"},
	}
	ctx := context.Background()

	out := h.eng.Submit(ctx, Input{Text: "/video --aspect 9:16 --res 1080p --quality fast kucing terbang"})
	require.Nil(t, out.Error)
	assert.Equal(t, 1, creds.requests)
	require.Len(t, h.gen.videoReqs, 1)
	assert.Equal(t, VideoRequest{Prompt: "kucing terbang", AspectRatio: "9:16", Resolution: "1080p", Quality: "fast"}, h.gen.videoReqs[0])

	h.eng.Wait()
	msg := last(h.eng.Messages())
	assert.Equal(t, transcript.StatusComplete, msg.Status)
	assert.Equal(t, textVideoDone, msg.Text)
	assert.True(t, strings.HasPrefix(msg.VideoURL, "/media/akbar-video-"))

	drafts, err := h.eng.Drafts(ctx)
	require.NoError(t, err)
	assert.Empty(t, drafts)

	var sawPreview bool
	for _, m := range h.sink.updated {
		if m.StatusText == statusPreview && m.VideoURL == "https://preview" {
			sawPreview = true
		}
	}
	assert.True(t, sawPreview)
}

func TestVideoJobFailure(t *testing.T) {
	h := newHarness(t, nil, nil).started(t)
	h.gen.polls["operations/1"] = []VideoStatus{{Done: true, Error: "quota exceeded"}}

	h.eng.Submit(context.Background(), Input{Text: "/video kucing"})
	h.eng.Wait()

	msg := last(h.eng.Messages())
	assert.Equal(t, transcript.StatusError, msg.Status)
	assert.Contains(t, msg.Text, "Kuota lo abis")
	drafts, _ := h.eng.Drafts(context.Background())
	assert.Empty(t, drafts)
}

func TestConcurrentVideoJobsFinishIndependently(t *testing.T) {
	h := newHarness(t, nil, nil).started(t)
	h.gen.polls["operations/1"] = []VideoStatus{{Progress: 30}, {Done: true, Error: "quota exceeded"}}
	h.gen.polls["operations/2"] = []VideoStatus{{Progress: 30}, {Progress: 80}, {Done: true, VideoURI: "https://video"}}
	ctx := context.Background()

	h.eng.Submit(ctx, Input{Text: "/video kucing"})
	h.eng.Submit(ctx, Input{Text: "/video anjing"})
	require.Len(t, h.gen.videoReqs, 2)

	h.eng.Wait()
	msgs := h.eng.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, transcript.StatusError, msgs[1].Status)
	assert.Contains(t, msgs[1].Text, "Kuota lo abis")
	assert.Equal(t, transcript.StatusComplete, msgs[3].Status)
	assert.Equal(t, textVideoDone, msgs[3].Text)

	drafts, err := h.eng.Drafts(ctx)
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestRejectedKeyIsAskedForAgain(t *testing.T) {
	creds := &fakeCredentials{has: true, grant: true}
	h := newHarness(t, nil, creds).started(t)
	h.gen.polls["operations/1"] = []VideoStatus{{Done: true, Error: "permission denied"}}
	h.gen.polls["operations/2"] = []VideoStatus{{Done: true, VideoURI: "https://video"}}
	ctx := context.Background()

	h.eng.Submit(ctx, Input{Text: "/video kucing"})
	h.eng.Wait()
	has, requests, invalid := creds.snapshot()
	assert.False(t, has)
	assert.Equal(t, 0, requests)
	assert.Equal(t, 1, invalid)

	out := h.eng.Submit(ctx, Input{Text: "/video kucing"})
	require.Nil(t, out.Error)
	h.eng.Wait()
	has, requests, invalid = creds.snapshot()
	assert.True(t, has)
	assert.Equal(t, 1, requests)
	assert.Equal(t, 1, invalid)
	assert.Equal(t, transcript.StatusComplete, last(h.eng.Messages()).Status)
}

func TestQuotaFailureKeepsKey(t *testing.T) {
	creds := &fakeCredentials{has: true}
	h := newHarness(t, nil, creds).started(t)
	h.gen.polls["operations/1"] = []VideoStatus{{Done: true, Error: "quota exceeded"}}

	h.eng.Submit(context.Background(), Input{Text: "/video kucing"})
	h.eng.Wait()
	has, _, invalid := creds.snapshot()
	assert.True(t, has)
	assert.Equal(t, 0, invalid)
}

func TestVideoSubmitFailure(t *testing.T) {
	h := newHarness(t, nil, nil).started(t)
	h.gen.submitErr = errors.New("400 invalid argument")
	out := h.eng.Submit(context.Background(), Input{Text: "/video kucing"})

	require.NotNil(t, out.Error)
	assert.Equal(t, errclass.CategoryValidation, out.Error.Category)
	msgs := h.eng.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, transcript.StatusError, msgs[1].Status)
	drafts, _ := h.eng.Drafts(context.Background())
	assert.Empty(t, drafts)
}

func TestRetryAfterRejectedKeyAsksForNewKey(t *testing.T) {
	creds := &fakeCredentials{has: true}
	h := newHarness(t, nil, creds).started(t)
	h.gen.pollErr = errors.New("rpc error: code = NotFound desc = model not found")
	ctx := context.Background()

	h.eng.Submit(ctx, Input{Text: "/video kucing"})
	h.eng.Wait()
	msg := last(h.eng.Messages())
	assert.Equal(t, transcript.StatusError, msg.Status)
	assert.Contains(t, msg.Text, "Kunci API lo bermasalah")

	out, err := h.eng.Retry(ctx)
	require.NoError(t, err)
	require.NotNil(t, out.Error)
	assert.Equal(t, textCredentialRetry, out.Error.Text)
	assert.Equal(t, 1, creds.requests)
	assert.Len(t, h.gen.videoReqs, 1)
}

func TestRetryReplaysLastSubmission(t *testing.T) {
	h := newHarness(t, nil, nil).started(t)
	ctx := context.Background()
	h.gen.imageErr = errBoom
	h.eng.Submit(ctx, Input{Text: "/gambar kucing"})

	h.gen.mu.Lock()
	h.gen.imageErr = nil
	h.gen.mu.Unlock()
	out, err := h.eng.Retry(ctx)
	require.NoError(t, err)
	assert.Nil(t, out.Error)
	assert.Equal(t, textImageDone, last(h.eng.Messages()).Text)
}

func TestResubmit(t *testing.T) {
	h := newHarness(t, nil, nil).started(t)
	ctx := context.Background()
	h.eng.Submit(ctx, Input{Text: "halo"})
	msgs := h.eng.Messages()

	_, err := h.eng.Resubmit(ctx, msgs[0].ID)
	require.NoError(t, err)
	assert.Len(t, h.eng.Messages(), 4)

	_, err = h.eng.Resubmit(ctx, msgs[1].ID)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestDraftResumesOnStart(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	require.NoError(t, storage.NewDraftStore(kv).Save(ctx, "msg-1", "operations/resume"))

	h := newHarness(t, kv, nil)
	h.gen.polls["operations/resume"] = []VideoStatus{{Done: true, VideoURI: "https://video"}}
	h.started(t)
	h.eng.Wait()

	msgs := h.eng.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "msg-1", msgs[0].ID)
	assert.Equal(t, transcript.StatusComplete, msgs[0].Status)
	drafts, err := h.eng.Drafts(ctx)
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestDraftResumeFailureRemovesDraft(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	require.NoError(t, storage.NewHistory(kv).Save(ctx, []transcript.Message{
		{ID: "msg-1", Role: transcript.RoleModel, Status: transcript.StatusPending},
	}))
	require.NoError(t, storage.NewDraftStore(kv).Save(ctx, "msg-1", "operations/resume"))

	h := newHarness(t, kv, nil)
	h.gen.polls["operations/resume"] = []VideoStatus{{Done: true, Error: "boom"}}
	h.started(t)
	h.eng.Wait()

	msgs := h.eng.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, transcript.StatusError, msgs[0].Status)
	assert.True(t, strings.HasPrefix(msgs[0].Text, "Gagal total bikin video."))
	drafts, _ := h.eng.Drafts(ctx)
	assert.Empty(t, drafts)
}

func TestStartClearsUnreadableDrafts(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(ctx, storage.DraftsKey, []byte("{not json")))

	h := newHarness(t, kv, nil).started(t)
	assert.Empty(t, h.eng.Messages())
	_, ok, err := kv.Get(ctx, storage.DraftsKey)
	require.NoError(t, err)
	assert.False(t, ok)

	h.eng.Submit(ctx, Input{Text: "/video kucing"})
	drafts, err := h.eng.Drafts(ctx)
	require.NoError(t, err)
	assert.Len(t, drafts, 1)
}

func TestShutdownKeepsDraft(t *testing.T) {
	h := newHarness(t, nil, nil).started(t)
	ctx := context.Background()
	h.eng.Submit(ctx, Input{Text: "/video kucing"})

	require.NoError(t, h.eng.Shutdown(ctx))
	drafts, err := h.eng.Drafts(ctx)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "operations/1", drafts[0].Operation)
	assert.NotEqual(t, transcript.StatusError, last(h.eng.Messages()).Status)
}

func TestClearHistoryDropsEverything(t *testing.T) {
	h := newHarness(t, nil, nil).started(t)
	ctx := context.Background()
	h.eng.Submit(ctx, Input{Text: "halo"})
	require.NoError(t, h.eng.SaveHistory(ctx))
	h.eng.Submit(ctx, Input{Text: "/video kucing"})

	require.NoError(t, h.eng.ClearHistory(ctx))
	assert.Empty(t, h.eng.Messages())
	assert.Equal(t, fsm.StateNone, h.eng.SessionState())
	saved, err := storage.NewHistory(h.kv).Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, saved)
	drafts, _ := h.eng.Drafts(ctx)
	assert.Empty(t, drafts)
	assert.Contains(t, h.sink.noticeTexts(), textHistoryCleared)
}

func TestSaveHistorySkipsEmptyTranscript(t *testing.T) {
	h := newHarness(t, nil, nil).started(t)
	ctx := context.Background()
	require.NoError(t, h.eng.SaveHistory(ctx))
	_, ok, err := h.kv.Get(ctx, storage.HistoryKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetPersonaStartsFreshConversation(t *testing.T) {
	kv := storage.NewMemoryKV()
	h := newHarness(t, kv, nil).started(t)
	ctx := context.Background()
	h.eng.Submit(ctx, Input{Text: "halo"})

	require.NoError(t, h.eng.SetPersona(ctx, "Assistant"))
	assert.Equal(t, persona.Assistant, h.eng.Persona())
	assert.Equal(t, fsm.StateNone, h.eng.SessionState())
	assert.Equal(t, []fsm.Handle{"chat-1"}, h.gen.releasedHandles())
	assert.Equal(t, []persona.ID{persona.Assistant}, h.sink.personas)

	require.NoError(t, h.eng.SetPersona(ctx, "assistant"))
	assert.Len(t, h.sink.personas, 1)
	assert.Error(t, h.eng.SetPersona(ctx, "pirate"))

	again := newHarness(t, kv, nil).started(t)
	assert.Equal(t, persona.Assistant, again.eng.Persona())
}
