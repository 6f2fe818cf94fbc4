package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/saker-ai/akbar-server/internal/command"
	"github.com/saker-ai/akbar-server/internal/errclass"
	"github.com/saker-ai/akbar-server/internal/media"
	"github.com/saker-ai/akbar-server/internal/persona"
	"github.com/saker-ai/akbar-server/internal/transcript"
)

func userText(cmd command.Command) string {
	return strings.TrimSpace(cmd.Raw)
}

func fileInfo(a *command.Attachment) *transcript.FileInfo {
	if a == nil {
		return nil
	}
	return &transcript.FileInfo{Name: a.Name, MimeType: a.MimeType}
}

func (e *Engine) handleChat(ctx context.Context, cmd command.Command) *errclass.Message {
	e.appendUser(transcript.NewMessage(transcript.RoleUser, userText(cmd)))

	// An active comic keeps its conversation; chat answers one-off.
	if _, _, err := e.state.Session.ComicHandle(); err == nil {
		reply, err := e.gen.GenerateText(ctx, TextRequest{Prompt: cmd.Prompt, SystemInstruction: e.instruction()})
		if err != nil {
			return e.fail(err, "")
		}
		e.appendModel(reply)
		return nil
	}

	h, ok := e.state.Session.ChatHandle()
	if !ok {
		created, err := e.gen.CreateConversation(ctx, e.instruction())
		if err != nil {
			return e.fail(err, "")
		}
		if err := e.state.Session.StartChat(created); err != nil {
			e.gen.ReleaseConversation(created)
			return e.fail(err, "")
		}
		h = created
	}
	reply, err := e.gen.ContinueConversation(ctx, h, cmd.Prompt)
	if err != nil {
		return e.fail(err, "")
	}
	e.appendModel(reply)
	return nil
}

func (e *Engine) handleHelp(_ context.Context, cmd command.Command) *errclass.Message {
	e.appendUser(transcript.NewMessage(transcript.RoleUser, userText(cmd)))
	e.appendModel(helpText)
	return nil
}

func (e *Engine) handleImage(ctx context.Context, cmd command.Command) *errclass.Message {
	e.appendUser(transcript.NewMessage(transcript.RoleUser, userText(cmd)))
	return e.renderImage(ctx, ImageRequest{
		Prompt:      imagePrompt(cmd.Prompt, cmd.Image),
		AspectRatio: imageAspect(cmd.Image),
	}, textImageDone)
}

func (e *Engine) handleWallpaper(ctx context.Context, cmd command.Command) *errclass.Message {
	e.appendUser(transcript.NewMessage(transcript.RoleUser, userText(cmd)))
	aspect := "16:9"
	if cmd.Wallpaper != nil && cmd.Wallpaper.Aspect != "" {
		aspect = cmd.Wallpaper.Aspect
	}
	return e.renderImage(ctx, ImageRequest{
		Prompt:      wallpaperPrompt(cmd.Prompt, aspect),
		AspectRatio: aspect,
	}, textWallpaperDone)
}

func (e *Engine) handlePlaceholder(ctx context.Context, cmd command.Command) *errclass.Message {
	e.appendUser(transcript.NewMessage(transcript.RoleUser, userText(cmd)))
	flags := cmd.Placeholder
	if flags == nil {
		flags = &command.PlaceholderFlags{}
	}
	return e.renderImage(ctx, ImageRequest{
		Prompt:      placeholderPrompt(cmd.Prompt, flags),
		AspectRatio: "16:9",
	}, textPlaceholderDone)
}

func (e *Engine) renderImage(ctx context.Context, req ImageRequest, done string) *errclass.Message {
	art, err := e.gen.GenerateImage(ctx, req)
	if err != nil {
		return e.fail(err, "")
	}
	msg := transcript.NewMessage(transcript.RoleModel, done)
	msg.ImageURL = art.DataURL()
	e.append(msg)
	return nil
}

// handleFileAnalyze edits an attached image or summarizes a PDF.
func (e *Engine) handleFileAnalyze(ctx context.Context, cmd command.Command) *errclass.Message {
	file := cmd.Attachment
	user := transcript.NewMessage(transcript.RoleUser, cmd.Prompt)
	user.File = fileInfo(file)

	if err := media.ValidateUpload(file.MimeType, int64(len(file.Data)), e.maxUpload); err != nil {
		if user.Text == "" {
			user.Text = file.Name
		}
		e.appendUser(user)
		return e.fail(err, "")
	}

	if file.IsImage() {
		if user.Text == "" {
			user.Text = textDescribeImage
		}
		user.ImageURL = media.DataURL(file.MimeType, file.Data)
		e.appendUser(user)

		prompt, done := cmd.Prompt, textTransformDone
		if prompt == "" {
			prompt, done = textReimaginePrompt, textReimagineDone
		}
		return e.renderImage(ctx, ImageRequest{
			Prompt:            imagePrompt(prompt, nil),
			Source:            file,
			SystemInstruction: e.personas.Instruction(persona.Akbar),
		}, done)
	}

	summary := fmt.Sprintf(textSummarizePDF, file.Name)
	if user.Text == "" {
		user.Text = summary
	}
	e.appendUser(user)
	prompt := cmd.Prompt
	if prompt == "" {
		prompt = summary
	}
	reply, err := e.gen.GenerateText(ctx, TextRequest{
		Prompt:            prompt,
		SystemInstruction: e.instruction(),
		Attachment:        file,
	})
	if err != nil {
		return e.fail(err, "")
	}
	e.appendModel(reply)
	return nil
}

// handleListen narrates an attached image as audio.
func (e *Engine) handleListen(ctx context.Context, cmd command.Command) *errclass.Message {
	file := cmd.Attachment
	user := transcript.NewMessage(transcript.RoleUser, userText(cmd))
	user.ImageURL = media.DataURL(file.MimeType, file.Data)
	user.File = fileInfo(file)
	e.appendUser(user)

	pending := transcript.NewMessage(transcript.RoleModel, "")
	pending.Status = transcript.StatusPending
	pending.StatusText = statusAnalyzing
	pending = e.append(pending)

	if err := media.ValidateUpload(file.MimeType, int64(len(file.Data)), e.maxUpload); err != nil {
		return e.fail(err, pending.ID)
	}
	art, err := e.gen.GenerateAudioDescription(ctx, file)
	if err != nil {
		return e.fail(err, pending.ID)
	}
	audioURL := art.DataURL()
	if e.saver != nil {
		name := fmt.Sprintf("akbar-audio-%d.wav", user.CreatedAt.UnixMilli())
		if url, err := e.saver.Save(ctx, name, art.Data); err != nil {
			e.logger.Warn("failed to save audio, inlining it", zap.Error(err))
		} else {
			audioURL = url
		}
	}
	e.update(pending.ID, func(m *transcript.Message) {
		m.Status = transcript.StatusComplete
		m.StatusText = ""
		m.Text = textListenDone
		m.AudioURL = audioURL
	})
	return nil
}
