package timer

import (
	"fmt"
	"sort"
)

// WarningLevel escalates as the countdown approaches zero.
type WarningLevel string

const (
	WarningNone   WarningLevel = "none"
	WarningLow    WarningLevel = "low"
	WarningMedium WarningLevel = "medium"
	WarningHigh   WarningLevel = "high"
)

// Thresholds are the remaining-second boundaries of each warning band.
// Low > Medium > High.
type Thresholds struct {
	Low    int `yaml:"low"`
	Medium int `yaml:"medium"`
	High   int `yaml:"high"`
}

// DefaultThresholds warns at 60, 30 and 10 seconds.
var DefaultThresholds = Thresholds{Low: 60, Medium: 30, High: 10}

// ThresholdsFrom builds Thresholds from three values in any order.
func ThresholdsFrom(values []int) (Thresholds, error) {
	if len(values) != 3 {
		return Thresholds{}, fmt.Errorf("expected 3 warning thresholds, got %d", len(values))
	}
	sorted := append([]int(nil), values...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	t := Thresholds{Low: sorted[0], Medium: sorted[1], High: sorted[2]}
	return t, t.Validate()
}

// Validate checks that the bands are strictly ordered and non-negative.
func (t Thresholds) Validate() error {
	if t.High < 0 || t.Medium <= t.High || t.Low <= t.Medium {
		return fmt.Errorf("invalid warning thresholds %d/%d/%d", t.Low, t.Medium, t.High)
	}
	return nil
}

// LevelFor returns the most severe band remaining falls in.
func (t Thresholds) LevelFor(remaining int) WarningLevel {
	switch {
	case remaining <= t.High:
		return WarningHigh
	case remaining <= t.Medium:
		return WarningMedium
	case remaining <= t.Low:
		return WarningLow
	default:
		return WarningNone
	}
}

// FormatTime renders seconds as MM:SS. Negative values render as 00:00.
func FormatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
