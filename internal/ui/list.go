package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/moodtunes/internal/models"
)

var _ list.Item = trackItem{}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	index int
	track models.Track
}

func (i trackItem) FilterValue() string { return i.track.Name }
func (i trackItem) Title() string       { return fmt.Sprintf("%d. %s", i.index+1, i.track.Name) }
func (i trackItem) Description() string {
	desc := i.track.Artist
	if !i.track.HasPreview() {
		desc = fmt.Sprintf("%s • no preview", desc)
	}
	return desc
}

func trackItems(tracks models.TrackList) []list.Item {
	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{index: i, track: t}
	}
	return items
}
