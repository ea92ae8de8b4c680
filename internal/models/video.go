package models

import (
	"time"

	"github.com/google/uuid"
)

// Video is an uploaded video and the URLs of its transcoded outputs.
// TranscodedURL and ThumbnailURL stay empty until the assembly completes.
type Video struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	AssemblyID    string    `json:"assembly_id"`
	UploadedAt    time.Time `json:"uploaded_at"`
	TranscodedURL string    `json:"transcoded"`
	ThumbnailURL  string    `json:"thumbnail"`
	OwnerID       uuid.UUID `json:"user"`
}

// Transcoded reports whether the video has been reconciled.
func (v *Video) Transcoded() bool {
	return v.TranscodedURL != ""
}

type CreateVideoRequest struct {
	Title      string `json:"title"`
	AssemblyID string `json:"assembly_id"`
}

// VideoDetail is the public JSON shape of a video. Untranscoded URLs are
// empty strings.
type VideoDetail struct {
	Title      string    `json:"title"`
	UploadedAt time.Time `json:"uploaded_at"`
	Transcoded string    `json:"transcoded"`
	Thumbnail  string    `json:"thumbnail"`
	User       uuid.UUID `json:"user"`
}

func NewVideoDetail(v *Video) VideoDetail {
	return VideoDetail{
		Title:      v.Title,
		UploadedAt: v.UploadedAt,
		Transcoded: v.TranscodedURL,
		Thumbnail:  v.ThumbnailURL,
		User:       v.OwnerID,
	}
}
