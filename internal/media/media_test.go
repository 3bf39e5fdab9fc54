package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/groblegark/teleterm/internal/telegram"
)

// fakeFetcher serves a fixed payload for any file id.
type fakeFetcher struct {
	payload string
	failGet bool
}

func (f *fakeFetcher) GetFile(_ context.Context, fileID string) (*telegram.File, error) {
	if f.failGet {
		return nil, errors.New("boom")
	}
	return &telegram.File{FileID: fileID, FilePath: "photos/remote_" + fileID + ".jpg"}, nil
}

func (f *fakeFetcher) DownloadFile(_ context.Context, _ string, w io.Writer) error {
	_, err := io.WriteString(w, f.payload)
	return err
}

func newHandler(t *testing.T) *Handler {
	t.Helper()
	return &Handler{
		Client:  &fakeFetcher{payload: "file-bytes"},
		Dir:     t.TempDir(),
		Session: "crew",
	}
}

func TestHandlePhoto(t *testing.T) {
	h := newHandler(t)
	msg := &telegram.Message{
		Photo: []telegram.PhotoSize{
			{FileID: "small", FileSize: 100},
			{FileID: "large", FileSize: 5000},
		},
	}

	text, err := h.Handle(context.Background(), msg)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !strings.HasPrefix(text, "[Image: ") || !strings.HasSuffix(text, "]") {
		t.Errorf("inject text = %q, want [Image: /path]", text)
	}

	path := strings.TrimSuffix(strings.TrimPrefix(text, "[Image: "), "]")
	if !strings.HasPrefix(filepath.Base(path), "crew-") {
		t.Errorf("file %q not prefixed with session name", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("downloaded file missing: %v", err)
	}
	if string(data) != "file-bytes" {
		t.Errorf("file content = %q", data)
	}
}

func TestHandleDocumentWithCaption(t *testing.T) {
	h := newHandler(t)
	msg := &telegram.Message{
		Document: &telegram.Document{FileID: "doc1", FileName: "notes v2.txt", FileSize: 42},
		Caption:  "read this",
	}

	text, err := h.Handle(context.Background(), msg)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !strings.Contains(text, "crew-notes_v2.txt") {
		t.Errorf("inject text = %q, want sanitized session-prefixed name", text)
	}
	if !strings.HasPrefix(text, "[Document: ") {
		t.Errorf("inject text = %q, want [Document: ...]", text)
	}
	if !strings.HasSuffix(text, "] read this") {
		t.Errorf("inject text = %q, caption not appended", text)
	}
}

func TestHandleUnsupportedKinds(t *testing.T) {
	h := newHandler(t)
	tests := []struct {
		name string
		msg  *telegram.Message
		want string
	}{
		{"voice", &telegram.Message{Voice: &telegram.MediaStub{FileID: "v"}}, "Voice messages"},
		{"video", &telegram.Message{Video: &telegram.MediaStub{FileID: "v"}}, "Videos"},
		{"sticker", &telegram.Message{Sticker: &telegram.MediaStub{FileID: "s"}}, "Stickers"},
		{"animation", &telegram.Message{Animation: &telegram.MediaStub{FileID: "a"}}, "Animations/GIFs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Handle(context.Background(), tt.msg)
			if !errors.Is(err, ErrUnsupported) {
				t.Fatalf("err = %v, want ErrUnsupported", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestHandleOversized(t *testing.T) {
	h := newHandler(t)
	msg := &telegram.Message{
		Document: &telegram.Document{FileID: "big", FileName: "big.bin", FileSize: MaxFileSize + 1},
	}
	if _, err := h.Handle(context.Background(), msg); err == nil {
		t.Fatal("oversized document accepted")
	}
}

func TestHandleGetFileError(t *testing.T) {
	h := newHandler(t)
	h.Client = &fakeFetcher{failGet: true}
	msg := &telegram.Message{Photo: []telegram.PhotoSize{{FileID: "p", FileSize: 1}}}
	if _, err := h.Handle(context.Background(), msg); err == nil {
		t.Fatal("expected error when getFile fails")
	}
}

func TestHasMedia(t *testing.T) {
	if HasMedia(&telegram.Message{Text: "hello"}) {
		t.Error("plain text counted as media")
	}
	if !HasMedia(&telegram.Message{Photo: []telegram.PhotoSize{{FileID: "p"}}}) {
		t.Error("photo not detected")
	}
	if !HasMedia(&telegram.Message{Voice: &telegram.MediaStub{FileID: "v"}}) {
		t.Error("voice not detected")
	}
}

func TestCleanupOnlyThisSession(t *testing.T) {
	h := newHandler(t)
	mine := filepath.Join(h.Dir, "crew-a.jpg")
	other := filepath.Join(h.Dir, "other-b.jpg")
	for _, p := range []string{mine, other} {
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	if err := h.Cleanup(); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if _, err := os.Stat(mine); !os.IsNotExist(err) {
		t.Error("session file survived cleanup")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("foreign session file removed")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"report.pdf", "report.pdf"},
		{"my file (1).txt", "my_file_1.txt"},
		{"no_ext", "no_ext"},
		{"résumé.pdf", "r_sum.pdf"},
		{"../../etc/passwd", "file.etcpasswd"},
		{"", "unnamed"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
