package command

import (
	"strings"

	"github.com/saker-ai/akbar-server/internal/session/fsm"
)

var continuationKeywords = []string{"lanjutkan", "next", "terus", "lagi", "lanjut"}

type resolver func(cmd *Command, body string) error

// Verbs are matched by prefix in this order.
var verbs = []struct {
	prefix  string
	resolve resolver
}{
	{"/wallpaper", resolveWallpaper},
	{"/komik", resolveComic},
	{"/video", resolveVideo},
	{"/dengarkan", resolveListen},
	{"/gambar", resolveImage},
	{"/placeholder", resolvePlaceholder},
}

// IsContinuation reports whether text asks an active comic for its next panel.
func IsContinuation(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range continuationKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// Route classifies text plus an optional attachment into a Command.
//
// Slash commands other than /help and any input with an attachment are
// context breaking. The returned Command carries ContextBreaking even when
// resolution fails, so the caller can end the previous session either way.
func Route(text string, file *Attachment, state fsm.State) (Command, error) {
	trimmed := strings.TrimSpace(text)
	cmd := Command{Raw: text, Attachment: file}

	if trimmed == "" && file == nil {
		return cmd, ErrEmptyInput
	}

	isSlash := strings.HasPrefix(trimmed, "/")

	if state == fsm.StateComicActive && file == nil && !isSlash && IsContinuation(trimmed) {
		cmd.Kind = KindComicContinue
		cmd.Prompt = trimmed
		return cmd, nil
	}

	if strings.EqualFold(trimmed, "/help") {
		cmd.Kind = KindHelp
		cmd.Attachment = nil
		return cmd, nil
	}

	if !isSlash && file == nil {
		cmd.Kind = KindChat
		cmd.Prompt = trimmed
		return cmd, nil
	}

	cmd.ContextBreaking = true
	for _, v := range verbs {
		if hasPrefixFold(trimmed, v.prefix) {
			return cmd, v.resolve(&cmd, trimmed[len(v.prefix):])
		}
	}

	cmd.Prompt = trimmed
	if file != nil {
		cmd.Kind = KindFileAnalyze
		return cmd, nil
	}
	cmd.Kind = KindChat
	return cmd, nil
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func parseBody(cmd *Command, body string, g Grammar) (Flags, error) {
	prompt, flags, err := ParseFlags(body, g)
	if err != nil {
		return Flags{}, err
	}
	cmd.Prompt = prompt
	cmd.UnknownFlags = flags.Unknown()
	return flags, nil
}

func resolveWallpaper(cmd *Command, body string) error {
	cmd.Kind = KindWallpaper
	cmd.Attachment = nil
	flags, err := parseBody(cmd, body, wallpaperGrammar)
	if err != nil {
		return err
	}
	if cmd.Prompt == "" {
		return &MissingArgumentError{Command: "/wallpaper"}
	}
	cmd.Wallpaper = decodeWallpaperFlags(flags)
	return nil
}

func resolveComic(cmd *Command, body string) error {
	cmd.Kind = KindComicStylePick
	cmd.Attachment = nil
	flags, err := parseBody(cmd, body, comicGrammar)
	if err != nil {
		return err
	}
	if cmd.Prompt == "" {
		return &MissingArgumentError{Command: "/komik"}
	}
	if flags.Has("style") {
		cmd.Kind = KindComicStart
		cmd.Comic = &ComicFlags{Style: flags.String("style")}
	}
	return nil
}

func resolveVideo(cmd *Command, body string) error {
	cmd.Kind = KindVideo
	cmd.Attachment = nil
	flags, err := parseBody(cmd, body, videoGrammar)
	if err != nil {
		return err
	}
	if cmd.Prompt == "" {
		return &MissingArgumentError{Command: "/video"}
	}
	cmd.Video = decodeVideoFlags(flags)
	return nil
}

func resolveListen(cmd *Command, body string) error {
	cmd.Kind = KindListen
	cmd.Prompt = strings.TrimSpace(body)
	if !cmd.Attachment.IsImage() {
		return ErrMissingImageAttachment
	}
	return nil
}

func resolveImage(cmd *Command, body string) error {
	cmd.Kind = KindImage
	if cmd.Attachment != nil {
		return ErrAmbiguousIntent
	}
	flags, err := parseBody(cmd, body, imageGrammar)
	if err != nil {
		return err
	}
	if cmd.Prompt == "" {
		return &MissingArgumentError{Command: "/gambar"}
	}
	cmd.Image = decodeImageFlags(flags)
	return nil
}

func resolvePlaceholder(cmd *Command, body string) error {
	cmd.Kind = KindPlaceholder
	cmd.Attachment = nil
	flags, err := parseBody(cmd, body, placeholderGrammar)
	if err != nil {
		return err
	}
	cmd.Placeholder = decodePlaceholderFlags(flags)
	return nil
}
