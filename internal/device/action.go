package device

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// An Action changes the control state of a zone.
//
// Validate is called before any request is sent. Fields returns the properties to write to the device.
// Apply updates a zone's control state once the device has acknowledged the action.
type Action interface {
	Validate() error
	Fields() map[string]any
	Apply(*ZoneState)
	fmt.Stringer
}

var (
	_ Action = SetSpeed{}
	_ Action = SetSpeedLevel{}
	_ Action = SetMode{}
	_ Action = SetTargetTemperature{}
	_ Action = SetAutoModeVOC{}
	_ Action = SetAutoModeSilent{}
	_ Action = SetTimeProfile{}
	_ Action = ResetFilterRuntime{}
	_ Action = SetFilterRuntime{}
	_ Action = SetModeDeadline{}
	_ Action = SetZoneName{}

	_ SystemAction = SetAutoUpdate{}
)

// SetSpeed sets the speed of a zone to the level nearest to a percentage.
type SetSpeed struct {
	Percentage float64
}

func (a SetSpeed) Validate() error {
	_, err := SnapPercentage(a.Percentage)
	return err
}

func (a SetSpeed) Level() SpeedLevel {
	level, _ := SnapPercentage(a.Percentage)
	return level
}

func (a SetSpeed) Fields() map[string]any {
	return map[string]any{"speed": float64(a.Level())}
}

func (a SetSpeed) Apply(z *ZoneState) {
	level := a.Level()
	z.Speed = &level
}

func (a SetSpeed) String() string {
	return fmt.Sprintf("speed %g%% (level %s)", a.Percentage, a.Level())
}

// SetSpeedLevel sets the speed of a zone to an exact level.
type SetSpeedLevel struct {
	Level SpeedLevel
}

func (a SetSpeedLevel) Validate() error {
	_, err := ParseSpeedLevel(float64(a.Level))
	return err
}

func (a SetSpeedLevel) Fields() map[string]any {
	return map[string]any{"speed": float64(a.Level)}
}

func (a SetSpeedLevel) Apply(z *ZoneState) {
	level := a.Level
	z.Speed = &level
}

func (a SetSpeedLevel) String() string {
	return "speed level " + a.Level.String()
}

// SetMode sets the operating mode of a zone.
type SetMode struct {
	Mode Mode
}

func (a SetMode) Validate() error {
	_, err := ParseMode(string(a.Mode))
	return err
}

func (a SetMode) Fields() map[string]any {
	return map[string]any{"mode": string(a.Mode)}
}

func (a SetMode) Apply(z *ZoneState) {
	z.Mode = a.Mode
}

func (a SetMode) String() string {
	return "mode " + string(a.Mode)
}

const (
	MinTargetTemperature  = 10.0
	MaxTargetTemperature  = 30.0
	TargetTemperatureStep = 0.5
)

// SetTargetTemperature sets the target temperature of a zone.
type SetTargetTemperature struct {
	Celsius float64
}

func (a SetTargetTemperature) Validate() error {
	if math.IsNaN(a.Celsius) || a.Celsius < MinTargetTemperature || a.Celsius > MaxTargetTemperature {
		return &ValidationError{Field: "target temperature", Value: a.Celsius, Reason: fmt.Sprintf("must be between %g and %g", MinTargetTemperature, MaxTargetTemperature)}
	}
	if steps := a.Celsius / TargetTemperatureStep; steps != math.Trunc(steps) {
		return &ValidationError{Field: "target temperature", Value: a.Celsius, Reason: fmt.Sprintf("must be a multiple of %g", TargetTemperatureStep)}
	}
	return nil
}

func (a SetTargetTemperature) Fields() map[string]any {
	return map[string]any{"target_temp": a.Celsius}
}

func (a SetTargetTemperature) Apply(z *ZoneState) {
	celsius := a.Celsius
	z.TargetTemperatureC = &celsius
}

func (a SetTargetTemperature) String() string {
	return fmt.Sprintf("target temperature %g°C", a.Celsius)
}

// SetAutoModeVOC switches VOC-driven auto mode on or off.
type SetAutoModeVOC struct {
	Enabled bool
}

func (a SetAutoModeVOC) Validate() error { return nil }

func (a SetAutoModeVOC) Fields() map[string]any {
	return map[string]any{"auto_mode_voc": a.Enabled}
}

func (a SetAutoModeVOC) Apply(z *ZoneState) {
	enabled := a.Enabled
	z.AutoModeVOC = &enabled
}

func (a SetAutoModeVOC) String() string {
	return fmt.Sprintf("auto mode voc %t", a.Enabled)
}

// SetAutoModeSilent switches silent auto mode on or off.
type SetAutoModeSilent struct {
	Enabled bool
}

func (a SetAutoModeSilent) Validate() error { return nil }

func (a SetAutoModeSilent) Fields() map[string]any {
	return map[string]any{"auto_mode_silent": a.Enabled}
}

func (a SetAutoModeSilent) Apply(z *ZoneState) {
	enabled := a.Enabled
	z.AutoModeSilent = &enabled
}

func (a SetAutoModeSilent) String() string {
	return fmt.Sprintf("auto mode silent %t", a.Enabled)
}

// MaxTimeProfile is the highest time profile supported by the device. Profile 0 disables time profiles.
const MaxTimeProfile = 10

// SetTimeProfile selects the active time profile of a zone.
type SetTimeProfile struct {
	Profile int
}

func (a SetTimeProfile) Validate() error {
	if a.Profile < 0 || a.Profile > MaxTimeProfile {
		return &ValidationError{Field: "time profile", Value: a.Profile, Reason: fmt.Sprintf("must be between 0 and %d", MaxTimeProfile)}
	}
	return nil
}

func (a SetTimeProfile) Fields() map[string]any {
	return map[string]any{"time_profile": a.Profile}
}

func (a SetTimeProfile) Apply(z *ZoneState) {
	profile := a.Profile
	z.TimeProfile = &profile
}

func (a SetTimeProfile) String() string {
	return fmt.Sprintf("time profile %d", a.Profile)
}

// ResetFilterRuntime resets the filter runtime counter of a zone.
type ResetFilterRuntime struct{}

func (ResetFilterRuntime) Validate() error { return nil }

func (ResetFilterRuntime) Fields() map[string]any {
	return map[string]any{"last_filter_change": 0}
}

func (ResetFilterRuntime) Apply(z *ZoneState) {
	var zero float64
	z.FilterRuntimeHours = &zero
}

func (ResetFilterRuntime) String() string {
	return "reset filter runtime"
}

// MaxFilterRuntime is the highest filter runtime, in hours, that can be written to a zone.
const MaxFilterRuntime = 10000

// SetFilterRuntime sets the filter runtime counter of a zone to a whole number of hours.
type SetFilterRuntime struct {
	Hours float64
}

func (a SetFilterRuntime) Validate() error {
	if math.IsNaN(a.Hours) || a.Hours < 0 || a.Hours > MaxFilterRuntime {
		return &ValidationError{Field: "filter runtime", Value: a.Hours, Reason: fmt.Sprintf("must be between 0 and %d hours", MaxFilterRuntime)}
	}
	if a.Hours != math.Trunc(a.Hours) {
		return &ValidationError{Field: "filter runtime", Value: a.Hours, Reason: "must be a whole number of hours"}
	}
	return nil
}

func (a SetFilterRuntime) Fields() map[string]any {
	return map[string]any{"last_filter_change": a.Hours}
}

func (a SetFilterRuntime) Apply(z *ZoneState) {
	hours := a.Hours
	z.FilterRuntimeHours = &hours
}

func (a SetFilterRuntime) String() string {
	return fmt.Sprintf("filter runtime %gh", a.Hours)
}

const (
	// MaxModeDeadline is the latest deadline the device can store: it holds a 32-bit unix timestamp.
	MaxModeDeadline int64 = math.MaxInt32
	// MaxModeDuration is the longest duration accepted by ModeDeadlineIn.
	MaxModeDuration = 2 * time.Hour
)

// SetModeDeadline sets the time at which a zone leaves its current mode. A zero At clears the deadline.
type SetModeDeadline struct {
	At time.Time
}

// ModeDeadlineIn returns the action that ends the current mode of a zone after d. A zero d clears the deadline.
func ModeDeadlineIn(d time.Duration, now time.Time) (SetModeDeadline, error) {
	if d < 0 || d > MaxModeDuration {
		return SetModeDeadline{}, &ValidationError{Field: "mode duration", Value: d, Reason: fmt.Sprintf("must be between 0 and %s", MaxModeDuration)}
	}
	if d == 0 {
		return SetModeDeadline{}, nil
	}
	return SetModeDeadline{At: now.Add(d).Truncate(time.Second)}, nil
}

func (a SetModeDeadline) Validate() error {
	if a.At.IsZero() {
		return nil
	}
	if unix := a.At.Unix(); unix <= 0 || unix > MaxModeDeadline {
		return &ValidationError{Field: "mode deadline", Value: a.At, Reason: "out of range"}
	}
	return nil
}

func (a SetModeDeadline) Fields() map[string]any {
	var unix int64
	if !a.At.IsZero() {
		unix = a.At.Unix()
	}
	return map[string]any{"mode_deadline": unix}
}

func (a SetModeDeadline) Apply(z *ZoneState) {
	if a.At.IsZero() {
		z.ModeDeadline = nil
		return
	}
	at := time.Unix(a.At.Unix(), 0).UTC()
	z.ModeDeadline = &at
}

func (a SetModeDeadline) String() string {
	if a.At.IsZero() {
		return "clear mode deadline"
	}
	return "mode deadline " + a.At.UTC().Format(time.RFC3339)
}

// MaxZoneNameLength is the longest zone name, in characters, the device accepts.
const MaxZoneNameLength = 50

// SetZoneName renames a zone.
type SetZoneName struct {
	Name string
}

func (a SetZoneName) Validate() error {
	if n := utf8.RuneCountInString(strings.TrimSpace(a.Name)); n == 0 || n > MaxZoneNameLength {
		return &ValidationError{Field: "zone name", Value: a.Name, Reason: fmt.Sprintf("must be 1 to %d characters", MaxZoneNameLength)}
	}
	return nil
}

func (a SetZoneName) Fields() map[string]any {
	return map[string]any{"name": strings.TrimSpace(a.Name)}
}

func (a SetZoneName) Apply(z *ZoneState) {
	z.Name = strings.TrimSpace(a.Name)
}

func (a SetZoneName) String() string {
	return fmt.Sprintf("name %q", strings.TrimSpace(a.Name))
}

// A SystemAction changes a setting of the central unit.
type SystemAction interface {
	Validate() error
	Fields() map[string]any
	Apply(*SystemReadings)
	fmt.Stringer
}

// SetAutoUpdate switches automatic firmware updates on or off.
type SetAutoUpdate struct {
	Enabled bool
}

func (a SetAutoUpdate) Validate() error { return nil }

func (a SetAutoUpdate) Fields() map[string]any {
	return map[string]any{"auto_update_enabled": a.Enabled}
}

func (a SetAutoUpdate) Apply(s *SystemReadings) {
	enabled := a.Enabled
	s.AutoUpdateEnabled = &enabled
}

func (a SetAutoUpdate) String() string {
	return fmt.Sprintf("auto update %t", a.Enabled)
}
