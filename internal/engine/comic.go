package engine

import (
	"context"
	"fmt"

	"github.com/saker-ai/akbar-server/internal/comic"
	"github.com/saker-ai/akbar-server/internal/command"
	"github.com/saker-ai/akbar-server/internal/errclass"
	"github.com/saker-ai/akbar-server/internal/media"
	"github.com/saker-ai/akbar-server/internal/session/fsm"
	"github.com/saker-ai/akbar-server/internal/transcript"
)

func (e *Engine) handleComicStylePick(_ context.Context, cmd command.Command) *errclass.Message {
	e.appendUser(transcript.NewMessage(transcript.RoleUser, userText(cmd)))
	e.state.Session.AwaitStyle(cmd.Prompt)
	picker := transcript.NewMessage(transcript.RoleModel, textStylePicker)
	picker.IsStyleSelector = true
	e.append(picker)
	return nil
}

func (e *Engine) handleComicStart(ctx context.Context, cmd command.Command) *errclass.Message {
	e.appendUser(transcript.NewMessage(transcript.RoleUser, userText(cmd)))
	return e.startComic(ctx, cmd.Prompt, cmd.Comic.Style)
}

// startComic opens the comic conversation and draws panel one. Any
// failure leaves no comic session behind.
func (e *Engine) startComic(ctx context.Context, seed, style string) *errclass.Message {
	style, err := command.NormalizeImageStyle(style)
	if err != nil {
		return e.fail(err, "")
	}
	h, err := e.gen.StartComic(ctx, comic.SystemInstruction(style))
	if err != nil {
		e.state.Session.AbandonComic()
		return e.fail(fmt.Errorf("start comic: %w", err), "")
	}
	panel, art, err := e.nextPanel(ctx, h, comic.StartPrompt(seed))
	if err != nil {
		e.gen.ReleaseConversation(h)
		e.state.Session.AbandonComic()
		return e.fail(err, "")
	}
	e.state.Session.StartComic(h)
	e.appendPanel(panel, art.DataURL(), 1)
	return nil
}

func (e *Engine) handleComicContinue(ctx context.Context, cmd command.Command) *errclass.Message {
	e.appendUser(transcript.NewMessage(transcript.RoleUser, userText(cmd)))
	h, _, err := e.state.Session.ComicHandle()
	if err != nil {
		return e.fail(err, "")
	}
	panel, art, err := e.nextPanel(ctx, h, comic.ContinuePrompt)
	if err != nil {
		e.gen.ReleaseConversation(h)
		e.state.Session.AbandonComic()
		return e.fail(err, "")
	}
	n, err := e.state.Session.AdvanceComic()
	if err != nil {
		return e.fail(err, "")
	}
	e.appendPanel(panel, art.DataURL(), n)
	return nil
}

// nextPanel asks the comic conversation for one panel and draws it.
func (e *Engine) nextPanel(ctx context.Context, h fsm.Handle, prompt string) (comic.Panel, media.Artifact, error) {
	raw, err := e.gen.GenerateStructuredPanel(ctx, h, prompt)
	if err != nil {
		return comic.Panel{}, media.Artifact{}, err
	}
	panel, err := comic.ParsePanel(raw)
	if err != nil {
		return comic.Panel{}, media.Artifact{}, err
	}
	art, err := e.gen.GenerateImage(ctx, ImageRequest{Prompt: imagePrompt(panel.ImagePrompt, nil)})
	if err != nil {
		return comic.Panel{}, media.Artifact{}, err
	}
	return panel, art, nil
}

func (e *Engine) appendPanel(panel comic.Panel, imageURL string, number int) {
	msg := transcript.NewMessage(transcript.RoleModel, panel.Narrative)
	msg.ImageURL = imageURL
	msg.IsComicPanel = true
	msg.PanelNumber = number
	msg.ComicImagePrompt = panel.ImagePrompt
	e.append(msg)
}
