package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/saker-ai/akbar-server/internal/command"
	"github.com/saker-ai/akbar-server/internal/errclass"
	"github.com/saker-ai/akbar-server/internal/transcript"
)

const (
	errVideoKeyRejected = "Gagal memproses video. Kunci API yang dipilih mungkin tidak valid atau tidak memiliki akses. Silakan coba lagi untuk memilih kunci yang benar."
	errVideoNoResult    = "Gagal bikin video. Server tidak memberikan hasil."
)

func (e *Engine) handleVideo(ctx context.Context, cmd command.Command) *errclass.Message {
	return e.dispatchVideo(ctx, cmd, true)
}

// dispatchVideo asks for a key when none is selected, then submits the job.
// A declined or failed request aborts without a transcript entry.
func (e *Engine) dispatchVideo(ctx context.Context, cmd command.Command, allowPrompt bool) *errclass.Message {
	if e.creds != nil && !e.creds.HasCredential(ctx) {
		if !allowPrompt {
			return e.rejectCredential(ErrCredentialRequired)
		}
		ok, err := e.creds.RequestCredential(ctx)
		if err != nil || !ok {
			if err != nil {
				e.logger.Info("credential request failed", zap.Error(err))
			}
			return e.rejectCredential(ErrCredentialRequired)
		}
		return e.dispatchVideo(ctx, cmd, false)
	}
	return e.submitVideo(ctx, cmd)
}

func (e *Engine) rejectCredential(err error) *errclass.Message {
	msg := errclass.Message{Category: errclass.CategoryCredential, Text: err.Error(), Retryable: true}
	e.setLastError(msg)
	e.notifyError(msg)
	return &msg
}

func (e *Engine) submitVideo(ctx context.Context, cmd command.Command) *errclass.Message {
	e.appendUser(transcript.NewMessage(transcript.RoleUser, userText(cmd)))
	pending := transcript.NewMessage(transcript.RoleModel, "")
	pending.Status = transcript.StatusPending
	pending.StatusText = statusInit
	pending = e.append(pending)

	req := VideoRequest{Prompt: cmd.Prompt}
	if f := cmd.Video; f != nil {
		req.AspectRatio = f.Aspect
		req.Resolution = f.Resolution
		req.Quality = f.Quality
	}
	op, err := e.gen.SubmitVideoJob(ctx, req)
	if err != nil {
		err = fmt.Errorf("Gagal memulai video: %w", err)
		e.invalidateRejectedKey(err)
		return e.fail(err, pending.ID)
	}
	if err := e.drafts.Save(ctx, pending.ID, op); err != nil {
		e.logger.Warn("failed to persist video draft", zap.String("message_id", pending.ID), zap.Error(err))
	}
	e.spawnPoller(pending.ID, op)
	return nil
}

// spawnPoller starts polling operation for messageID unless a poller for
// it already runs.
func (e *Engine) spawnPoller(messageID, operation string) {
	e.pollMu.Lock()
	if _, running := e.polling[messageID]; running {
		e.pollMu.Unlock()
		return
	}
	e.polling[messageID] = struct{}{}
	e.pollMu.Unlock()

	e.pollers.Go(func() error {
		defer func() {
			e.pollMu.Lock()
			delete(e.polling, messageID)
			e.pollMu.Unlock()
		}()
		e.pollVideo(e.life, messageID, operation)
		return nil
	})
}

// pollVideo polls until the job ends or ctx is cancelled. Cancellation
// keeps the draft so the job resumes on the next start.
func (e *Engine) pollVideo(ctx context.Context, messageID, operation string) {
	logger := e.logger.With(zap.String("message_id", messageID), zap.String("operation", operation))
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("video polling suspended")
			return
		case <-ticker.C:
		}

		st, err := e.gen.PollVideoJob(ctx, operation)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("video polling suspended")
				return
			}
			e.finishVideo(ctx, messageID, pollError(err))
			return
		}
		if !st.Done {
			e.update(messageID, func(m *transcript.Message) {
				m.Status = transcript.StatusGenerating
				m.StatusText = videoProgressText(st)
				if st.PreviewURI != "" {
					m.VideoURL = st.PreviewURI
				}
			})
			continue
		}

		switch {
		case st.Error != "":
			e.finishVideo(ctx, messageID, fmt.Errorf("Gagal bikin video. %s", st.Error))
		case st.VideoURI == "":
			e.finishVideo(ctx, messageID, errors.New(errVideoNoResult))
		default:
			err := e.downloadVideo(ctx, messageID, st.VideoURI)
			if err != nil && ctx.Err() != nil {
				logger.Info("video download suspended")
				return
			}
			e.finishVideo(ctx, messageID, err)
		}
		return
	}
}

func pollError(err error) error {
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "not found") || strings.Contains(lower, "permission") {
		return fmt.Errorf("%s (%w)", errVideoKeyRejected, err)
	}
	return fmt.Errorf("Gagal memproses video. Terjadi kesalahan saat memeriksa status: %w", err)
}

func (e *Engine) downloadVideo(ctx context.Context, messageID, uri string) error {
	e.update(messageID, func(m *transcript.Message) {
		m.StatusText = statusDownloading
	})
	data, err := e.gen.FetchVideo(ctx, uri)
	if err != nil {
		return err
	}
	url := uri
	if e.saver != nil {
		name := fmt.Sprintf("akbar-video-%d.mp4", time.Now().UnixMilli())
		if url, err = e.saver.Save(ctx, name, data); err != nil {
			return fmt.Errorf("Gagal bikin video. Gagal menyimpan video: %w", err)
		}
	}
	e.update(messageID, func(m *transcript.Message) {
		m.Status = transcript.StatusComplete
		m.StatusText = ""
		m.Text = textVideoDone
		m.VideoURL = url
	})
	return nil
}

// finishVideo removes the draft of a finished job and reports err, if any,
// on the job's message.
func (e *Engine) finishVideo(ctx context.Context, messageID string, err error) {
	if derr := e.drafts.Delete(context.WithoutCancel(ctx), messageID); derr != nil {
		e.logger.Warn("failed to delete video draft", zap.String("message_id", messageID), zap.Error(derr))
	}
	if err == nil {
		e.logger.Info("video job complete", zap.String("message_id", messageID))
		return
	}
	e.invalidateRejectedKey(err)
	if !e.transcript.Has(messageID) {
		e.logger.Info("video job failed after its message was removed", zap.String("message_id", messageID), zap.Error(err))
		return
	}
	e.fail(err, messageID)
}

// invalidateRejectedKey makes the next /video ask for a key again when err
// means the selected key was refused.
func (e *Engine) invalidateRejectedKey(err error) {
	if e.creds == nil || errclass.Classify(err).Category != errclass.CategoryCredential {
		return
	}
	e.creds.Invalidate()
	e.logger.Info("video credential invalidated", zap.Error(err))
}
