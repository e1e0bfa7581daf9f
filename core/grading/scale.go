package grading

import (
	"fmt"
	"math"

	"github.com/trezcool/portal/core"
)

// Band maps the closed interval [Min, Max] of totals to a letter grade.
type Band struct {
	Letter      string  `json:"letter"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	GPA         float64 `json:"gpa"`
	Description string  `json:"description"`
}

func (b Band) Contains(total float64) bool {
	return total >= b.Min && total <= b.Max
}

// Scale is an ordered list of bands, highest first.
// Adjacent bands share their boundary; the first band containing a total wins.
// The last band is the fallback for totals no band contains.
type Scale []Band

// DefaultScale returns the portal's A-F scale.
func DefaultScale() Scale {
	return Scale{
		{Letter: "A", Min: 90, Max: 100, GPA: 4.0, Description: "Excellent"},
		{Letter: "B", Min: 80, Max: 90, GPA: 3.0, Description: "Good"},
		{Letter: "C", Min: 70, Max: 80, GPA: 2.0, Description: "Average"},
		{Letter: "D", Min: 60, Max: 70, GPA: 1.0, Description: "Below Average"},
		{Letter: "F", Min: 0, Max: 60, GPA: 0.0, Description: "Fail"},
	}
}

// Validate checks that the bands are ordered, contiguous, cover [0,100] and have unique letters.
func (sc Scale) Validate() error {
	if len(sc) == 0 {
		return core.NewConfigurationError("scale", "no grade bands")
	}
	seen := make(map[string]bool, len(sc))
	for i, b := range sc {
		if b.Letter == "" {
			return core.NewConfigurationError("scale", fmt.Sprintf("band #%d has no letter", i))
		}
		if seen[b.Letter] {
			return core.NewConfigurationError("scale", fmt.Sprintf("duplicate letter %q", b.Letter))
		}
		seen[b.Letter] = true

		if math.IsNaN(b.Min) || math.IsNaN(b.Max) || b.Min > b.Max {
			return core.NewConfigurationError("scale", fmt.Sprintf("band %q has an invalid range", b.Letter))
		}
		if i > 0 && b.Max != sc[i-1].Min {
			return core.NewConfigurationError("scale", fmt.Sprintf("bands %q and %q are not contiguous", sc[i-1].Letter, b.Letter))
		}
	}
	if sc[0].Max < 100 || sc[len(sc)-1].Min > 0 {
		return core.NewConfigurationError("scale", "bands must cover [0,100]")
	}
	return nil
}

// GradeFor returns the letter of the first band containing total,
// or the letter of the last band when none does (e.g. negative totals).
func (sc Scale) GradeFor(total float64) string {
	if len(sc) == 0 {
		return ""
	}
	for _, b := range sc {
		if b.Contains(total) {
			return b.Letter
		}
	}
	return sc[len(sc)-1].Letter
}

// GPAFor returns the GPA of letter, 0 when the letter is unknown.
func (sc Scale) GPAFor(letter string) float64 {
	if b, ok := sc.Band(letter); ok {
		return b.GPA
	}
	return 0
}

func (sc Scale) Band(letter string) (Band, bool) {
	for _, b := range sc {
		if b.Letter == letter {
			return b, true
		}
	}
	return Band{}, false
}
