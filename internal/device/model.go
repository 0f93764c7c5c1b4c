package device

import (
	"sync"
	"time"

	"github.com/clambin/go-common/set"
)

// Model holds the last known state of a device.
//
// Snapshots are replaced as a whole: readings missing from a new payload become unavailable,
// while control state and zone names carry over from the previous snapshot.
// All accessors return deep copies.
type Model struct {
	enabled     set.Set[int]
	snapshot    Snapshot
	hasSnapshot bool
	lock        sync.RWMutex
}

// NewModel returns a Model for a device with the given enabled zones.
func NewModel(enabled set.Set[int]) *Model {
	m := Model{enabled: enabled}
	for i := range m.snapshot.Zones {
		m.snapshot.Zones[i] = ZoneState{
			Index:   i + 1,
			Enabled: enabled.Contains(i + 1),
			Name:    defaultZoneName(i + 1),
		}
	}
	return &m
}

// Snapshot returns the current snapshot. The boolean is false until the first snapshot has been applied.
func (m *Model) Snapshot() (Snapshot, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.snapshot.Clone(), m.hasSnapshot
}

// SystemReadings returns the current system readings.
func (m *Model) SystemReadings() SystemReadings {
	s, _ := m.Snapshot()
	return s.System
}

// ZoneState returns the state of the zone with the given (1-based) index.
func (m *Model) ZoneState(index int) (ZoneState, error) {
	if err := ValidateZone(index); err != nil {
		return ZoneState{}, err
	}
	s, _ := m.Snapshot()
	return s.Zones[index-1], nil
}

// ApplySnapshot replaces the current snapshot with the one described by raw.
// raw is expected to have passed RawSnapshot.Validate.
func (m *Model) ApplySnapshot(raw RawSnapshot, fetchedAt time.Time) Snapshot {
	m.lock.Lock()
	defer m.lock.Unlock()

	next := Snapshot{
		System:    systemReadings(raw.System),
		FetchedAt: fetchedAt,
	}
	for i := range next.Zones {
		index := i + 1
		previous := m.snapshot.Zones[i]
		rawZone, ok := raw.Zones[index]
		if !ok {
			// not fetched: keep control state, drop readings
			rawZone = RawZone{}
		}
		next.Zones[i] = zoneState(index, m.enabled.Contains(index), rawZone, previous)
	}

	m.snapshot = next
	m.hasSnapshot = true
	return m.snapshot.Clone()
}

// ApplyCommandAck applies an acknowledged action to the control state of a zone.
func (m *Model) ApplyCommandAck(index int, action Action) (Snapshot, error) {
	if err := ValidateZone(index); err != nil {
		return Snapshot{}, err
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	action.Apply(&m.snapshot.Zones[index-1])
	return m.snapshot.Clone(), nil
}

// ApplySystemCommandAck applies an acknowledged action to the system settings.
func (m *Model) ApplySystemCommandAck(action SystemAction) Snapshot {
	m.lock.Lock()
	defer m.lock.Unlock()
	action.Apply(&m.snapshot.System)
	return m.snapshot.Clone()
}

func systemReadings(raw RawSystem) SystemReadings {
	s := SystemReadings{
		AirQualityPPM:     clonePtr(raw.AirQuality),
		IAQAccuracy:       clonePtr(raw.IAQAccuracy),
		PressureHPa:       clonePtr(raw.AirPressure),
		HumidityPct:       clonePtr(raw.Humidity),
		TemperatureC:      clonePtr(raw.Temperature),
		RuntimeHours:      clonePtr(raw.Runtime),
		ModeLock:          clonePtr(raw.ModeLock),
		AutoUpdateEnabled: clonePtr(raw.AutoUpdate),
	}
	if raw.SystemType != nil {
		s.SystemType = *raw.SystemType
	}
	if raw.FirmwareVersion != nil {
		s.FirmwareVersion = *raw.FirmwareVersion
	}
	return s
}

func zoneState(index int, enabled bool, raw RawZone, previous ZoneState) ZoneState {
	z := ZoneState{
		Index:               index,
		Enabled:             enabled,
		Name:                previous.Name,
		TemperatureC:        clonePtr(raw.Temperature),
		HumidityPct:         clonePtr(raw.Humidity),
		OutdoorTemperatureC: clonePtr(raw.OutdoorTemperature),
		OutdoorHumidityPct:  clonePtr(raw.OutdoorHumidity),
		RuntimeHours:        clonePtr(raw.Runtime),
		FilterRuntimeHours:  clonePtr(raw.LastFilterChange),
		TargetHumidityLevel: clonePtr(raw.TargetHumidityLevel),
		Speed:               clonePtr(previous.Speed),
		Mode:                previous.Mode,
		ModeDeadline:        clonePtr(previous.ModeDeadline),
		TargetTemperatureC:  clonePtr(previous.TargetTemperatureC),
		AutoModeVOC:         clonePtr(previous.AutoModeVOC),
		AutoModeSilent:      clonePtr(previous.AutoModeSilent),
		TimeProfile:         clonePtr(previous.TimeProfile),
	}
	if raw.Name != nil && *raw.Name != "" {
		z.Name = *raw.Name
	}
	if z.Name == "" {
		z.Name = defaultZoneName(index)
	}
	if raw.Speed != nil {
		if level, err := ParseSpeedLevel(*raw.Speed); err == nil {
			z.Speed = &level
		}
	}
	if raw.Mode != nil {
		if mode, err := ParseMode(*raw.Mode); err == nil {
			z.Mode = mode
		}
	}
	if raw.ModeDeadline != nil {
		z.ModeDeadline = nil
		if *raw.ModeDeadline > 0 {
			deadline := time.Unix(*raw.ModeDeadline, 0).UTC()
			z.ModeDeadline = &deadline
		}
	}
	if raw.TargetTemperature != nil {
		z.TargetTemperatureC = clonePtr(raw.TargetTemperature)
	}
	if raw.AutoModeVOC != nil {
		z.AutoModeVOC = clonePtr(raw.AutoModeVOC)
	}
	if raw.AutoModeSilent != nil {
		z.AutoModeSilent = clonePtr(raw.AutoModeSilent)
	}
	if raw.TimeProfile != nil {
		z.TimeProfile = clonePtr(raw.TimeProfile)
	}
	return z
}
