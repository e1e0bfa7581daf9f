package attendance

import (
	"sort"

	"github.com/trezcool/portal/core"
)

// Attendance thresholds, in percent. Shared by every report.
const (
	LowThreshold      = 75.0
	CriticalThreshold = 60.0
)

type Standing string

const (
	Good     Standing = "good"
	AtRisk   Standing = "at-risk"
	Critical Standing = "critical"
)

// Classify places a percentage in a Standing: good ≥ 75, at-risk in [60, 75), critical < 60.
func Classify(percentage float64) Standing {
	switch {
	case percentage >= LowThreshold:
		return Good
	case percentage >= CriticalThreshold:
		return AtRisk
	default:
		return Critical
	}
}

// RosterEntry is a student flagged by LowAttendanceRoster.
type RosterEntry struct {
	StudentID string  `json:"student_id"`
	Summary   Summary `json:"summary"`
}

// LowAttendanceRoster returns the students of studentIDs attending less than threshold percent, in the given order.
// Students without any recorded session are never included.
func LowAttendanceRoster(studentIDs []string, l Ledger, threshold float64) []RosterEntry {
	roster := make([]RosterEntry, 0)
	for _, id := range studentIDs {
		sa, ok := l.Get(id)
		if !ok || !sa.Below(threshold) {
			continue
		}
		roster = append(roster, RosterEntry{StudentID: id, Summary: sa.summary(threshold)})
	}
	return roster
}

// TodaysPresencePercentage returns, among the students of studentIDs with at least one record,
// the percentage present at a session of today, rounded to a whole number. 0 when none has a record.
func TodaysPresencePercentage(studentIDs []string, l Ledger, today string) float64 {
	var withRecords, present int
	for _, id := range studentIDs {
		sa, ok := l.Get(id)
		if !ok || sa.Total == 0 {
			continue
		}
		withRecords++
		if sa.PresentOn(today) {
			present++
		}
	}
	if withRecords == 0 {
		return 0
	}
	return core.Round(float64(present)/float64(withRecords)*100, 0)
}

// StudentIDs returns the IDs of the ledger, sorted.
func (l Ledger) StudentIDs() []string {
	ids := make([]string, 0, len(l))
	for id := range l {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
