// Package media handles generated artifacts and user attachments.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnsupportedType is returned for attachments that are neither images nor PDF.
var ErrUnsupportedType = errors.New("Tipe file tidak didukung.")

// ErrTooLarge is returned when an attachment exceeds the upload limit.
var ErrTooLarge = errors.New("file too large")

const octetStream = "application/octet-stream"

// Artifact is generated or uploaded media.
type Artifact struct {
	MimeType string
	Data     []byte
	// URI is set when the bytes live remotely.
	URI string
}

// DataURL renders the artifact inline.
func (a Artifact) DataURL() string {
	return DataURL(a.MimeType, a.Data)
}

// DataURL renders data as a base64 data URL.
func DataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURL splits a base64 data URL into its type and bytes.
func ParseDataURL(raw string) (string, []byte, error) {
	if !strings.HasPrefix(raw, "data:") {
		return "", nil, fmt.Errorf("not a data url")
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return "", nil, fmt.Errorf("unsupported data url encoding")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data url: %w", err)
	}
	return strings.TrimSuffix(header, ";base64"), data, nil
}

var supported = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/webp":      {},
	"image/heic":      {},
	"image/heif":      {},
	"application/pdf": {},
}

var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
	".pdf":  "application/pdf",
}

// DetectMIME resolves the media type of an attachment. The declared type
// wins when present, then content sniffing, then the file extension.
func DetectMIME(name, declared string, data []byte) string {
	if declared = normalizeMIME(declared); declared != "" && declared != octetStream {
		return declared
	}
	if len(data) > 0 {
		if sniffed := normalizeMIME(mimetype.Detect(data).String()); sniffed != "" && sniffed != octetStream && sniffed != "text/plain" {
			return sniffed
		}
	}
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return octetStream
}

func normalizeMIME(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if i := strings.IndexByte(raw, ';'); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	if raw == "image/jpg" {
		return "image/jpeg"
	}
	return raw
}

// IsSupported reports whether mimeType can be analyzed.
func IsSupported(mimeType string) bool {
	_, ok := supported[normalizeMIME(mimeType)]
	return ok
}

// IsImage reports whether mimeType is an image type.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(normalizeMIME(mimeType), "image/")
}

// ValidateUpload checks the attachment size and type.
func ValidateUpload(mimeType string, size, maxBytes int64) error {
	if maxBytes > 0 && size > maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, size, maxBytes)
	}
	if !IsSupported(mimeType) {
		return ErrUnsupportedType
	}
	return nil
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_\-\.]+`)

// DiskSaver writes artifacts under dir and returns URLs under publicPath.
type DiskSaver struct {
	dir        string
	publicPath string
}

// NewDiskSaver returns a saver rooted at dir.
func NewDiskSaver(dir, publicPath string) *DiskSaver {
	if publicPath == "" {
		publicPath = "/media"
	}
	return &DiskSaver{dir: dir, publicPath: "/" + strings.Trim(publicPath, "/")}
}

// Dir returns the directory artifacts are written to.
func (s *DiskSaver) Dir() string {
	return s.dir
}

// Save writes data to name and returns its public URL.
func (s *DiskSaver) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name = unsafeNameChars.ReplaceAllString(filepath.Base(name), "_")
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("invalid artifact name")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	target := filepath.Join(s.dir, name)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("commit artifact: %w", err)
	}
	return path.Join(s.publicPath, name), nil
}
