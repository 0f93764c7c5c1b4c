package device

import (
	"fmt"
	"time"
)

// ZoneCount is the number of zones managed by a single device.
const ZoneCount = 3

// SystemReadings holds the readings of the central unit. A nil reading is unavailable.
type SystemReadings struct {
	AirQualityPPM   *float64 `json:"air_quality_ppm,omitempty" yaml:"air_quality_ppm,omitempty"`
	IAQAccuracy     *int     `json:"iaq_accuracy,omitempty" yaml:"iaq_accuracy,omitempty"`
	PressureHPa     *float64 `json:"pressure_hpa,omitempty" yaml:"pressure_hpa,omitempty"`
	HumidityPct     *float64 `json:"humidity_pct,omitempty" yaml:"humidity_pct,omitempty"`
	TemperatureC    *float64 `json:"temperature_c,omitempty" yaml:"temperature_c,omitempty"`
	RuntimeHours    *float64 `json:"runtime_hours,omitempty" yaml:"runtime_hours,omitempty"`
	SystemType      string   `json:"system_type,omitempty" yaml:"system_type,omitempty"`
	FirmwareVersion string   `json:"firmware_version,omitempty" yaml:"firmware_version,omitempty"`

	ModeLock          *bool `json:"mode_lock,omitempty" yaml:"mode_lock,omitempty"`
	AutoUpdateEnabled *bool `json:"auto_update_enabled,omitempty" yaml:"auto_update_enabled,omitempty"`
}

// ZoneState holds the readings and control state of one zone.
// Readings are nil when unavailable. Control state is nil (or an empty Mode) until the device first reports it.
type ZoneState struct {
	Index   int    `json:"index" yaml:"index"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Name    string `json:"name" yaml:"name"`

	TemperatureC        *float64 `json:"temperature_c,omitempty" yaml:"temperature_c,omitempty"`
	HumidityPct         *float64 `json:"humidity_pct,omitempty" yaml:"humidity_pct,omitempty"`
	OutdoorTemperatureC *float64 `json:"outdoor_temperature_c,omitempty" yaml:"outdoor_temperature_c,omitempty"`
	OutdoorHumidityPct  *float64 `json:"outdoor_humidity_pct,omitempty" yaml:"outdoor_humidity_pct,omitempty"`
	RuntimeHours        *float64 `json:"runtime_hours,omitempty" yaml:"runtime_hours,omitempty"`
	FilterRuntimeHours  *float64 `json:"filter_runtime_hours,omitempty" yaml:"filter_runtime_hours,omitempty"`
	TargetHumidityLevel *float64 `json:"target_humidity_level,omitempty" yaml:"target_humidity_level,omitempty"`

	Speed              *SpeedLevel `json:"speed,omitempty" yaml:"speed,omitempty"`
	Mode               Mode        `json:"mode,omitempty" yaml:"mode,omitempty"`
	ModeDeadline       *time.Time  `json:"mode_deadline,omitempty" yaml:"mode_deadline,omitempty"`
	TargetTemperatureC *float64    `json:"target_temperature_c,omitempty" yaml:"target_temperature_c,omitempty"`
	AutoModeVOC        *bool       `json:"auto_mode_voc,omitempty" yaml:"auto_mode_voc,omitempty"`
	AutoModeSilent     *bool       `json:"auto_mode_silent,omitempty" yaml:"auto_mode_silent,omitempty"`
	TimeProfile        *int        `json:"time_profile,omitempty" yaml:"time_profile,omitempty"`
}

// SpeedPercentage returns the percentage of the current speed level, if known.
func (z ZoneState) SpeedPercentage() (int, bool) {
	if z.Speed == nil {
		return 0, false
	}
	return z.Speed.Percentage(), true
}

// Snapshot is the complete state of a device at a point in time.
type Snapshot struct {
	System    SystemReadings       `json:"system" yaml:"system"`
	Zones     [ZoneCount]ZoneState `json:"zones" yaml:"zones"`
	FetchedAt time.Time            `json:"fetched_at" yaml:"fetched_at"`
}

// Zone returns the state of the zone with the given (1-based) index.
func (s Snapshot) Zone(index int) (ZoneState, bool) {
	if index < 1 || index > ZoneCount {
		return ZoneState{}, false
	}
	return s.Zones[index-1], true
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	c := s
	c.System.AirQualityPPM = clonePtr(s.System.AirQualityPPM)
	c.System.IAQAccuracy = clonePtr(s.System.IAQAccuracy)
	c.System.PressureHPa = clonePtr(s.System.PressureHPa)
	c.System.HumidityPct = clonePtr(s.System.HumidityPct)
	c.System.TemperatureC = clonePtr(s.System.TemperatureC)
	c.System.RuntimeHours = clonePtr(s.System.RuntimeHours)
	c.System.ModeLock = clonePtr(s.System.ModeLock)
	c.System.AutoUpdateEnabled = clonePtr(s.System.AutoUpdateEnabled)
	for i := range c.Zones {
		c.Zones[i] = s.Zones[i].clone()
	}
	return c
}

func (z ZoneState) clone() ZoneState {
	c := z
	c.TemperatureC = clonePtr(z.TemperatureC)
	c.HumidityPct = clonePtr(z.HumidityPct)
	c.OutdoorTemperatureC = clonePtr(z.OutdoorTemperatureC)
	c.OutdoorHumidityPct = clonePtr(z.OutdoorHumidityPct)
	c.RuntimeHours = clonePtr(z.RuntimeHours)
	c.FilterRuntimeHours = clonePtr(z.FilterRuntimeHours)
	c.TargetHumidityLevel = clonePtr(z.TargetHumidityLevel)
	c.Speed = clonePtr(z.Speed)
	c.ModeDeadline = clonePtr(z.ModeDeadline)
	c.TargetTemperatureC = clonePtr(z.TargetTemperatureC)
	c.AutoModeVOC = clonePtr(z.AutoModeVOC)
	c.AutoModeSilent = clonePtr(z.AutoModeSilent)
	c.TimeProfile = clonePtr(z.TimeProfile)
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ValidateZone checks that index refers to one of the device's zones.
func ValidateZone(index int) error {
	if index < 1 || index > ZoneCount {
		return &ValidationError{Field: "zone", Value: index, Reason: fmt.Sprintf("must be between 1 and %d", ZoneCount)}
	}
	return nil
}

func defaultZoneName(index int) string {
	return fmt.Sprintf("Zone %d", index)
}
