package models

import (
	"time"

	"github.com/google/uuid"
)

const EventVideoTranscoded = "video.transcoded"

// WebSocket message envelope
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// VideoTranscoded is published after a notification has been reconciled.
type VideoTranscoded struct {
	VideoID       uuid.UUID `json:"video_id"`
	OwnerID       uuid.UUID `json:"owner_id"`
	AssemblyID    string    `json:"assembly_id"`
	TranscodedURL string    `json:"transcoded"`
	ThumbnailURL  string    `json:"thumbnail"`
	At            time.Time `json:"at"`
}

// API Error response
type APIError struct {
	Code      string              `json:"code"`
	Message   string              `json:"message"`
	Fields    map[string][]string `json:"fields,omitempty"`
	RequestID string              `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
