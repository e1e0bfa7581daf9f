package attendance

import (
	"sort"
	"time"
)

// HistoryEntry is an immutable snapshot of one marking session.
type HistoryEntry struct {
	ID         string    `json:"id"`
	Date       string    `json:"date"`
	Course     string    `json:"course"`
	Present    int       `json:"present"`
	Absent     int       `json:"absent"`
	Total      int       `json:"total"`
	RecordedAt time.Time `json:"recorded_at"` // UTC
}

// History is append-only.
type History []HistoryEntry

// Recent returns at most n entries, latest session date first. n <= 0 returns them all.
func (h History) Recent(n int) History {
	out := make(History, len(h))
	copy(out, h)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
