package device

import "fmt"

// RawSystem is the system payload as reported by the cloud service.
type RawSystem struct {
	AirQuality      *float64 `json:"air_quality"`
	IAQAccuracy     *int     `json:"iaq_accuracy"`
	AirPressure     *float64 `json:"air_pressure"`
	Humidity        *float64 `json:"humidity"`
	Temperature     *float64 `json:"temperature"`
	Runtime         *float64 `json:"runtime"`
	SystemType      *string  `json:"system_type"`
	FirmwareVersion *string  `json:"fw_version"`
	ModeLock        *bool    `json:"modelock"`
	AutoUpdate      *bool    `json:"auto_update_enabled"`
}

// RawZone is the zone payload as reported by the cloud service.
type RawZone struct {
	Name                *string  `json:"name"`
	Speed               *float64 `json:"speed"`
	Mode                *string  `json:"mode"`
	Temperature         *float64 `json:"temperature"`
	Humidity            *float64 `json:"humidity"`
	OutdoorTemperature  *float64 `json:"outdoor_temp"`
	OutdoorHumidity     *float64 `json:"outdoor_humidity"`
	Runtime             *float64 `json:"runtime"`
	LastFilterChange    *float64 `json:"last_filter_change"`
	TargetTemperature   *float64 `json:"target_temp"`
	TargetHumidityLevel *float64 `json:"target_hmdty_level"`
	AutoModeVOC         *bool    `json:"auto_mode_voc"`
	AutoModeSilent      *bool    `json:"auto_mode_silent"`
	ModeDeadline        *int64   `json:"mode_deadline"`
	TimeProfile         *int     `json:"time_profile"`
}

// Validate rejects zone payloads whose control state cannot be represented.
func (z RawZone) Validate() error {
	if z.Speed != nil {
		if _, err := ParseSpeedLevel(*z.Speed); err != nil {
			return err
		}
	}
	if z.Mode != nil {
		if _, err := ParseMode(*z.Mode); err != nil {
			return err
		}
	}
	return nil
}

// RawSnapshot combines the system payload with the payloads of the zones that were fetched.
// Zones are keyed by their 1-based index.
type RawSnapshot struct {
	System RawSystem
	Zones  map[int]RawZone
}

// Validate validates every zone payload.
func (r RawSnapshot) Validate() error {
	for index, zone := range r.Zones {
		if err := ValidateZone(index); err != nil {
			return err
		}
		if err := zone.Validate(); err != nil {
			return fmt.Errorf("zone %d: %w", index, err)
		}
	}
	return nil
}
