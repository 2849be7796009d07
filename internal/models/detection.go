package models

import (
	"fmt"
	"strings"
)

// Detection is a stored detect-and-recommend result.
type Detection struct {
	base
	userID string
	label  string
	tracks TrackList
}

// NewDetection creates a [Detection] owned by userID, which may be empty when identity is not required.
func NewDetection(sequence int, userID, label string, tracks TrackList) *Detection {
	return &Detection{base: newBase(sequence), userID: userID, label: label, tracks: tracks.Clone()}
}

func (d *Detection) UserID() string    { return d.userID }
func (d *Detection) Label() string     { return d.label }
func (d *Detection) Tracks() TrackList { return d.tracks.Clone() }

// Validate requires a label.
func (d *Detection) Validate() error {
	if strings.TrimSpace(d.label) == "" {
		return fmt.Errorf("label is required")
	}
	return nil
}
