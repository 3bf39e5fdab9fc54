// Package media downloads incoming Telegram attachments to local disk and
// produces the text injected into the tmux session for each one.
//
// Only photos and documents are accepted. Everything else (voice, video,
// stickers, ...) gets a refusal message naming the kind.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/groblegark/teleterm/internal/telegram"
)

// MaxFileSize is the Bot API download limit.
const MaxFileSize = 20 * 1024 * 1024

// ErrUnsupported means the message carried a media kind we refuse.
var ErrUnsupported = errors.New("unsupported media type")

// Fetcher is the slice of the Telegram client that media handling needs.
type Fetcher interface {
	GetFile(ctx context.Context, fileID string) (*telegram.File, error)
	DownloadFile(ctx context.Context, filePath string, w io.Writer) error
}

// Handler downloads attachments for one session into Dir.
type Handler struct {
	Client  Fetcher
	Dir     string
	Session string
}

// unsupported maps message fields to the name used in the refusal.
var unsupported = []struct {
	name    string
	present func(*telegram.Message) bool
}{
	{"Voice messages", func(m *telegram.Message) bool { return m.Voice != nil }},
	{"Videos", func(m *telegram.Message) bool { return m.Video != nil }},
	{"Video notes", func(m *telegram.Message) bool { return m.VideoNote != nil }},
	{"Audio files", func(m *telegram.Message) bool { return m.Audio != nil }},
	{"Stickers", func(m *telegram.Message) bool { return m.Sticker != nil }},
	{"Animations/GIFs", func(m *telegram.Message) bool { return m.Animation != nil }},
}

// HasMedia reports whether the message carries any attachment, supported
// or not.
func HasMedia(m *telegram.Message) bool {
	if len(m.Photo) > 0 || m.Document != nil {
		return true
	}
	for _, u := range unsupported {
		if u.present(m) {
			return true
		}
	}
	return false
}

// Handle processes one media message. On success it returns the text to
// inject into the session, e.g. "[Image: /tmp/teleterm/crew-a1b2.jpg] caption".
// Unsupported kinds return ErrUnsupported wrapped with a user-facing message.
func (h *Handler) Handle(ctx context.Context, m *telegram.Message) (string, error) {
	for _, u := range unsupported {
		if u.present(m) {
			return "", fmt.Errorf("%s not supported. Send photos or documents instead: %w", u.name, ErrUnsupported)
		}
	}

	switch {
	case len(m.Photo) > 0:
		// Largest size is last.
		photo := m.Photo[len(m.Photo)-1]
		if photo.FileSize > MaxFileSize {
			return "", fmt.Errorf("photo too large (%dMB), max 20MB", photo.FileSize>>20)
		}
		path, err := h.download(ctx, photo.FileID, "")
		if err != nil {
			return "", err
		}
		return withCaption(fmt.Sprintf("[Image: %s]", path), m.Caption), nil

	case m.Document != nil:
		doc := m.Document
		if doc.FileSize > MaxFileSize {
			return "", fmt.Errorf("document too large (%dMB), max 20MB", doc.FileSize>>20)
		}
		path, err := h.download(ctx, doc.FileID, doc.FileName)
		if err != nil {
			return "", err
		}
		return withCaption(fmt.Sprintf("[Document: %s]", path), m.Caption), nil
	}

	return "", errors.New("no media found in message")
}

func withCaption(text, caption string) string {
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return text
	}
	return text + " " + caption
}

// download fetches the file behind fileID into the handler's directory and
// returns the local path. originalName is empty for photos.
func (h *Handler) download(ctx context.Context, fileID, originalName string) (string, error) {
	if err := os.MkdirAll(h.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating media dir: %w", err)
	}

	info, err := h.Client.GetFile(ctx, fileID)
	if err != nil {
		return "", fmt.Errorf("resolving file: %w", err)
	}
	if info.FilePath == "" {
		return "", errors.New("telegram returned no file path")
	}

	var name string
	if originalName != "" {
		name = SanitizeFilename(originalName)
	} else {
		ext := filepath.Ext(info.FilePath)
		if ext == "" {
			ext = ".jpg"
		}
		name = "photo_" + uuid.NewString()[:8] + ext
	}

	local := filepath.Join(h.Dir, h.Session+"-"+name)
	f, err := os.Create(local)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", local, err)
	}
	defer f.Close()

	if err := h.Client.DownloadFile(ctx, info.FilePath, f); err != nil {
		os.Remove(local)
		return "", fmt.Errorf("downloading %s: %w", fileID, err)
	}
	return local, nil
}

// Cleanup removes this session's files from the media directory.
func (h *Handler) Cleanup() error {
	matches, err := filepath.Glob(filepath.Join(h.Dir, h.Session+"-*"))
	if err != nil {
		return err
	}
	var firstErr error
	for _, path := range matches {
		if err := os.Remove(path); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var (
	unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	unsafeExtRe  = regexp.MustCompile(`[^a-zA-Z0-9]`)
	underscoreRe = regexp.MustCompile(`_+`)
)

// SanitizeFilename strips anything but alphanumerics, underscore, hyphen,
// and period from a client-supplied filename, preserving the extension.
func SanitizeFilename(name string) string {
	if name == "" {
		return "unnamed"
	}

	ext := ""
	if i := strings.LastIndex(name, "."); i >= 0 {
		e := unsafeExtRe.ReplaceAllString(name[i+1:], "")
		if len(e) > 10 {
			e = e[:10]
		}
		ext = "." + e
		name = name[:i]
	}

	name = unsafeNameRe.ReplaceAllString(name, "_")
	name = underscoreRe.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "file"
	}
	if len(name) > 100 {
		name = name[:100]
	}
	return name + ext
}
