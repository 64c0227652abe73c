package domain

import (
	"path"
	"slices"
	"strings"
	"time"
)

// Media represents an uploaded file record
type Media struct {
	Id                   MediaId          `json:"id"`
	Name                 string           `json:"name"`
	FileName             string           `json:"file_name"`
	FilePath             string           `json:"-"`
	MimeType             string           `json:"mime_type"`
	SizeBytes            int64            `json:"size_bytes"`
	Disk                 string           `json:"disk"`
	GeneratedConversions []ConversionName `json:"generated_conversions"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

func (m Media) IsImage() bool {
	return strings.HasPrefix(m.MimeType, "image/")
}

// ConversionExt is the file extension of generated conversions: PNG for
// formats that may carry transparency, JPEG otherwise.
func (m Media) ConversionExt() string {
	switch m.MimeType {
	case "image/png", "image/gif", "image/webp":
		return ".png"
	}
	switch strings.ToLower(path.Ext(m.FilePath)) {
	case ".png", ".gif", ".webp":
		return ".png"
	}
	return ".jpg"
}

func (m Media) HasGeneratedConversion(name ConversionName) bool {
	return slices.Contains(m.GeneratedConversions, name)
}

// AttachedMedia is a media record as seen through an owner's association,
// carrying the channel stored on the pivot row.
type AttachedMedia struct {
	Media
	Channel ChannelName `json:"channel"`
}

// Association links one owner to one media record.
// There is at most one association per (Owner, MediaId).
type Association struct {
	Owner   Owner
	MediaId MediaId
	Channel ChannelName
}

// MediaCreationData holds everything needed to register an uploaded file.
type MediaCreationData struct {
	Name      string
	FileName  string
	FilePath  string
	MimeType  string
	SizeBytes int64
	Disk      string
}

// MediaUrls lists the public URL of the original and of every generated conversion.
type MediaUrls struct {
	Original    string            `json:"original"`
	Conversions map[string]string `json:"conversions"`
}
