// Package command turns raw user input into validated, typed commands.
package command

import "strings"

// Kind identifies which generation path a Command takes.
type Kind string

const (
	KindChat           Kind = "chat"
	KindImage          Kind = "image"
	KindWallpaper      Kind = "wallpaper"
	KindComicStart     Kind = "comic-start"
	KindComicContinue  Kind = "comic-continue"
	KindComicStylePick Kind = "comic-style-pick"
	KindVideo          Kind = "video"
	KindListen         Kind = "listen"
	KindPlaceholder    Kind = "placeholder"
	KindFileAnalyze    Kind = "file-analyze"
	KindHelp           Kind = "help"
)

// Attachment is a user supplied file.
type Attachment struct {
	Name     string
	MimeType string
	Data     []byte
}

// IsImage reports whether the declared media type is an image.
func (a *Attachment) IsImage() bool {
	return a != nil && strings.HasPrefix(strings.ToLower(a.MimeType), "image/")
}

// IsPDF reports whether the declared media type is a PDF document.
func (a *Attachment) IsPDF() bool {
	return a != nil && strings.EqualFold(a.MimeType, "application/pdf")
}

// ImageFlags configures /gambar.
type ImageFlags struct {
	Style   string
	Quality int
	Width   string
	Height  string
	Aspect  string
}

// WallpaperFlags configures /wallpaper.
type WallpaperFlags struct {
	Aspect string
}

// ComicFlags configures /komik.
type ComicFlags struct {
	Style string
}

// PlaceholderFlags configures /placeholder.
type PlaceholderFlags struct {
	Subtitle     string
	Theme        string
	Style        string
	Icon         string
	Layout       string
	IconPosition string
}

// VideoFlags configures /video.
type VideoFlags struct {
	Aspect     string
	Resolution string
	Quality    string
}

// Command is a routed, validated request. Only the flag struct matching
// Kind is set.
type Command struct {
	Kind            Kind
	Raw             string
	Prompt          string
	Attachment      *Attachment
	ContextBreaking bool
	UnknownFlags    []string

	Image       *ImageFlags
	Wallpaper   *WallpaperFlags
	Comic       *ComicFlags
	Placeholder *PlaceholderFlags
	Video       *VideoFlags
}
