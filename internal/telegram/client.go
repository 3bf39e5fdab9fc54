// Package telegram is a minimal Telegram Bot API client covering what the
// relay uses: long-poll updates, topic-aware messages, reactions, and file
// transfer. It speaks the HTTP/JSON API directly because the relay depends
// on forum topics (message_thread_id) and setMessageReaction.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/groblegark/teleterm/internal/format"
)

const defaultBaseURL = "https://api.telegram.org"

// MaxMessageLen is the transport limit for one sendMessage call, with a
// little headroom under Telegram's hard 4096.
const MaxMessageLen = 4000

// ErrAPI wraps non-OK Bot API responses.
var ErrAPI = errors.New("telegram api error")

// Client talks to the Bot API for one bot token.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

// New creates a Client. The HTTP client timeout is generous because
// getUpdates long-polls; per-call deadlines come from the caller's context.
func New(token string) *Client {
	return &Client{
		token:   token,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 90 * time.Second},
	}
}

// NewWithBaseURL creates a Client against a non-default API endpoint.
// Used by tests and by self-hosted Bot API servers.
func NewWithBaseURL(token, baseURL string) *Client {
	c := New(token)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// call POSTs a form-encoded method call and decodes the envelope.
func (c *Client) call(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", method, err)
	}
	if !envelope.OK {
		return nil, fmt.Errorf("%w: %s: %s", ErrAPI, method, envelope.Description)
	}
	return envelope.Result, nil
}

// GetUpdates long-polls for new message updates after offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	params := url.Values{
		"timeout":         {strconv.Itoa(timeoutSec)},
		"allowed_updates": {`["message"]`},
	}
	if offset > 0 {
		params.Set("offset", strconv.FormatInt(offset, 10))
	}

	result, err := c.call(ctx, "getUpdates", params)
	if err != nil {
		return nil, err
	}
	var updates []Update
	if err := json.Unmarshal(result, &updates); err != nil {
		return nil, fmt.Errorf("decoding updates: %w", err)
	}
	return updates, nil
}

// SendMessage sends plain text to a chat, addressed to a forum topic when
// threadID > 0. Long text is split at newline or space boundaries and sent
// as consecutive messages.
func (c *Client) SendMessage(ctx context.Context, chatID, threadID int64, text string) error {
	return c.sendChunks(ctx, chatID, threadID, text, "")
}

// SendMessageHTML is SendMessage with HTML parse mode; the caller is
// responsible for entity escaping.
func (c *Client) SendMessageHTML(ctx context.Context, chatID, threadID int64, html string) error {
	return c.sendChunks(ctx, chatID, threadID, html, "HTML")
}

func (c *Client) sendChunks(ctx context.Context, chatID, threadID int64, text, parseMode string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil // Telegram rejects empty messages
	}
	chunks := format.Split(text, MaxMessageLen)
	for i, chunk := range chunks {
		params := url.Values{
			"chat_id": {strconv.FormatInt(chatID, 10)},
			"text":    {chunk},
		}
		if threadID > 0 {
			params.Set("message_thread_id", strconv.FormatInt(threadID, 10))
		}
		if parseMode != "" {
			params.Set("parse_mode", parseMode)
		}
		if _, err := c.call(ctx, "sendMessage", params); err != nil {
			return err
		}
		// Keep multi-chunk messages in order.
		if i < len(chunks)-1 {
			time.Sleep(100 * time.Millisecond)
		}
	}
	return nil
}

// React sets a single emoji reaction on a message; an empty emoji clears
// any existing reaction.
func (c *Client) React(ctx context.Context, chatID int64, messageID int64, emoji string) error {
	reaction := "[]"
	if emoji != "" {
		encoded, err := json.Marshal([]map[string]string{{"type": "emoji", "emoji": emoji}})
		if err != nil {
			return fmt.Errorf("encoding reaction: %w", err)
		}
		reaction = string(encoded)
	}
	params := url.Values{
		"chat_id":    {strconv.FormatInt(chatID, 10)},
		"message_id": {strconv.FormatInt(messageID, 10)},
		"reaction":   {reaction},
	}
	_, err := c.call(ctx, "setMessageReaction", params)
	return err
}

// GetFile resolves a file_id to a server-side path for download.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	result, err := c.call(ctx, "getFile", url.Values{"file_id": {fileID}})
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(result, &f); err != nil {
		return nil, fmt.Errorf("decoding file info: %w", err)
	}
	return &f, nil
}

// DownloadFile streams the file at filePath (from GetFile) into w.
func (c *Client) DownloadFile(ctx context.Context, filePath string, w io.Writer) error {
	endpoint := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, filePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building download request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", filePath, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: download %s: status %s", ErrAPI, filePath, resp.Status)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("writing download: %w", err)
	}
	return nil
}

// SendDocument uploads a local file to the chat (topic-aware).
func (c *Client) SendDocument(ctx context.Context, chatID, threadID int64, path, caption string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening document: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("chat_id", strconv.FormatInt(chatID, 10))
	if threadID > 0 {
		_ = mw.WriteField("message_thread_id", strconv.FormatInt(threadID, 10))
	}
	if caption != "" {
		_ = mw.WriteField("caption", caption)
	}
	part, err := mw.CreateFormFile("document", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("building upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("reading document: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("finishing upload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendDocument", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return fmt.Errorf("building sendDocument request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sendDocument: %w", err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decoding sendDocument response: %w", err)
	}
	if !envelope.OK {
		return fmt.Errorf("%w: sendDocument: %s", ErrAPI, envelope.Description)
	}
	return nil
}
