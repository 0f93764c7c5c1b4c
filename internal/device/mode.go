package device

import (
	"github.com/clambin/go-common/set"
)

// Mode is the operating mode of a zone.
type Mode string

const (
	ModeVentilate             Mode = "ventilate"
	ModeVentilateHeatRecovery Mode = "ventilate_hr"
	ModeVentilateInverted     Mode = "ventilate_inv"
	ModeNight                 Mode = "night"
	ModeAuto                  Mode = "auto"
	ModeRush                  Mode = "rush"
	ModeRushHeatRecovery      Mode = "rush_hr"
	ModeRushInverted          Mode = "rush_inv"
)

var modes = set.New(
	ModeVentilate,
	ModeVentilateHeatRecovery,
	ModeVentilateInverted,
	ModeNight,
	ModeAuto,
	ModeRush,
	ModeRushHeatRecovery,
	ModeRushInverted,
)

// Modes returns all supported modes, sorted by name.
func Modes() []Mode {
	return modes.ListOrdered()
}

func (m Mode) Valid() bool {
	return modes.Contains(m)
}

// ParseMode validates a mode reported by the device or requested by a user.
func ParseMode(value string) (Mode, error) {
	if m := Mode(value); m.Valid() {
		return m, nil
	}
	return "", &ValidationError{Field: "mode", Value: value, Reason: "not a supported mode"}
}
