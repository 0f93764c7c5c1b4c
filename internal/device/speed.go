package device

import (
	"math"
	"strconv"
)

// SpeedLevel is a fan speed step, from 0.0 up to 4.0 in steps of 0.5.
type SpeedLevel float64

var speedTable = []struct {
	level      SpeedLevel
	percentage int
}{
	{0.0, 0},
	{0.5, 15},
	{1.0, 30},
	{1.5, 45},
	{2.0, 60},
	{2.5, 75},
	{3.0, 85},
	{3.5, 95},
	{4.0, 100},
}

// SpeedLevels returns all supported speed levels, lowest first.
func SpeedLevels() []SpeedLevel {
	levels := make([]SpeedLevel, len(speedTable))
	for i, entry := range speedTable {
		levels[i] = entry.level
	}
	return levels
}

// Valid returns true if l is one of the supported speed levels.
func (l SpeedLevel) Valid() bool {
	_, ok := l.index()
	return ok
}

// Percentage returns the percentage associated with the speed level, or -1 if the level is not supported.
func (l SpeedLevel) Percentage() int {
	if i, ok := l.index(); ok {
		return speedTable[i].percentage
	}
	return -1
}

func (l SpeedLevel) String() string {
	return strconv.FormatFloat(float64(l), 'f', 1, 64)
}

func (l SpeedLevel) index() (int, bool) {
	for i, entry := range speedTable {
		if entry.level == l {
			return i, true
		}
	}
	return -1, false
}

// ParseSpeedLevel converts a reported speed into a SpeedLevel. Only exact levels are accepted.
func ParseSpeedLevel(value float64) (SpeedLevel, error) {
	if l := SpeedLevel(value); l.Valid() {
		return l, nil
	}
	return 0, &ValidationError{Field: "speed", Value: value, Reason: "not a supported speed level"}
}

// SnapPercentage returns the speed level whose percentage is nearest to p.
// Ties resolve to the lower level.
func SnapPercentage(p float64) (SpeedLevel, error) {
	if math.IsNaN(p) || p < 0 || p > 100 {
		return 0, &ValidationError{Field: "percentage", Value: p, Reason: "must be between 0 and 100"}
	}
	best := 0
	for i := 1; i < len(speedTable); i++ {
		if math.Abs(float64(speedTable[i].percentage)-p) < math.Abs(float64(speedTable[best].percentage)-p) {
			best = i
		}
	}
	return speedTable[best].level, nil
}
