package command

import (
	"errors"
	"fmt"
)

// ErrAmbiguousIntent is returned for /gambar with an attached file.
var ErrAmbiguousIntent = errors.New("Gagal paham. Mau bikin gambar baru dari teks, atau mau ubah gambar yang ada? Kalau mau bikin, pakai `/gambar` aja. Kalau mau ubah, lampirin gambarnya tanpa `/gambar`. Jangan dua-dua-nya.")

// ErrMissingImageAttachment is returned for /dengarkan without an image.
var ErrMissingImageAttachment = errors.New("Perintah /dengarkan butuh gambar.")

// ErrEmptyInput is returned when there is neither text nor an attachment.
var ErrEmptyInput = errors.New("input kosong")

// ValidationError reports a recognized flag with an out-of-range value.
type ValidationError struct {
	Command string
	Flag    string
	Value   string
	Allowed []string
	message string
}

func (e *ValidationError) Error() string {
	return e.message
}

// MissingArgumentError reports a command whose body is empty after flags are removed.
type MissingArgumentError struct {
	Command string
}

func (e *MissingArgumentError) Error() string {
	if e.Command == "/komik" {
		return fmt.Sprintf("Perintah `%s` butuh ide cerita, jenius.", e.Command)
	}
	return fmt.Sprintf("Perintah `%s` butuh deskripsi, jenius.", e.Command)
}
