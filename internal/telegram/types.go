package telegram

import "encoding/json"

// Update is one item from getUpdates.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message is an incoming or outgoing chat message. MessageThreadID carries
// the forum topic the message belongs to (0 outside topics).
type Message struct {
	MessageID       int64       `json:"message_id"`
	MessageThreadID int64       `json:"message_thread_id,omitempty"`
	Chat            Chat        `json:"chat"`
	From            *User       `json:"from,omitempty"`
	Text            string      `json:"text,omitempty"`
	Caption         string      `json:"caption,omitempty"`
	Photo           []PhotoSize `json:"photo,omitempty"`
	Document        *Document   `json:"document,omitempty"`
	Voice           *MediaStub  `json:"voice,omitempty"`
	Video           *MediaStub  `json:"video,omitempty"`
	VideoNote       *MediaStub  `json:"video_note,omitempty"`
	Audio           *MediaStub  `json:"audio,omitempty"`
	Sticker         *MediaStub  `json:"sticker,omitempty"`
	Animation       *MediaStub  `json:"animation,omitempty"`
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"` // private, group, supergroup
}

// User is the sender of a message.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

// PhotoSize is one rendition of a photo; Telegram sends the renditions
// smallest first.
type PhotoSize struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size,omitempty"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Document is an attached file.
type Document struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

// MediaStub marks the presence of a media kind the relay does not accept;
// only existence matters, the payload is ignored.
type MediaStub struct {
	FileID string `json:"file_id"`
}

// File is the getFile result used to build a download URL.
type File struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size,omitempty"`
	FilePath string `json:"file_path,omitempty"`
}

// apiResponse is the Bot API envelope.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}
