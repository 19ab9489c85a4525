package mirror

import (
	"time"

	"noteflow/internal/store"
)

// Stats are the per-user aggregates shown on the stats page.
type Stats struct {
	Total         int `json:"total"`
	Favorites     int `json:"favorites"`
	CreatedLast7d int `json:"createdLast7Days"`
}

// Favorites filters to favorite-flagged notes, preserving input order.
func Favorites(notes []store.Note) []store.Note {
	out := make([]store.Note, 0)
	for _, note := range notes {
		if note.IsFavorite {
			out = append(out, note)
		}
	}
	return out
}

// ComputeStats counts the collection as of now; the 7-day window is a
// trailing wall-clock window, evaluated at call time.
func ComputeStats(notes []store.Note, now time.Time) Stats {
	stats := Stats{Total: len(notes)}
	cutoff := now.AddDate(0, 0, -7)
	for _, note := range notes {
		if note.IsFavorite {
			stats.Favorites++
		}
		if note.CreatedAt.After(cutoff) {
			stats.CreatedLast7d++
		}
	}
	return stats
}
