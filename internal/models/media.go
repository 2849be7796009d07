package models

import (
	"mime"
	"strings"
)

// PendingImage is an in-memory image awaiting submission to the detection service.
type PendingImage struct {
	Data     []byte
	MIMEType string
	Name     string // upload filename; derived from MIMEType when empty
}

// NewPendingImage copies data so later mutation by the caller cannot alter the pending image.
func NewPendingImage(data []byte, mimeType, name string) *PendingImage {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &PendingImage{Data: buf, MIMEType: mimeType, Name: name}
}

// Filename returns the upload filename for the multipart form.
func (p *PendingImage) Filename() string {
	if p.Name != "" {
		return p.Name
	}

	switch strings.ToLower(p.MIMEType) {
	case "image/png":
		return "capture.png"
	case "image/jpeg", "image/jpg":
		return "capture.jpg"
	}

	if exts, err := mime.ExtensionsByType(p.MIMEType); err == nil && len(exts) > 0 {
		return "capture" + exts[0]
	}
	return "capture.png"
}

// Track is a single recommendation. Identity is its index in the [TrackList].
type Track struct {
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	AlbumArtURL string `json:"album_art_url,omitempty"`
	PreviewURL  string `json:"preview_url,omitempty"`
}

// HasPreview reports whether the track can be played.
func (t Track) HasPreview() bool { return t.PreviewURL != "" }

// TrackList is an ordered recommendation result, replaced wholesale and never mutated in place.
type TrackList []Track

// Len returns the number of tracks.
func (l TrackList) Len() int { return len(l) }

// Clone returns a copy that shares no backing array with l.
func (l TrackList) Clone() TrackList {
	if l == nil {
		return nil
	}
	out := make(TrackList, len(l))
	copy(out, l)
	return out
}

// Playable counts tracks that carry a preview URL.
func (l TrackList) Playable() int {
	n := 0
	for _, t := range l {
		if t.HasPreview() {
			n++
		}
	}
	return n
}
