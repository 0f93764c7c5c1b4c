package mqttbridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/clambin/getair-monitor/internal/device"
)

type command struct {
	Speed             *float64 `json:"speed"`
	SpeedLevel        *float64 `json:"speed_level"`
	Mode              *string  `json:"mode"`
	TargetTemperature *float64 `json:"target_temperature"`
	AutoModeVOC       *bool    `json:"auto_mode_voc"`
	AutoModeSilent    *bool    `json:"auto_mode_silent"`
	TimeProfile       *int     `json:"time_profile"`
	ResetFilter       bool     `json:"reset_filter"`
	FilterRuntime     *float64 `json:"filter_runtime"`
	Name              *string  `json:"name"`
	ModeDeadline      *int64   `json:"mode_deadline"`
	ModeDuration      *float64 `json:"mode_duration"`
}

type systemCommand struct {
	AutoUpdate *bool `json:"auto_update"`
}

// ParseCommand decodes a zone command payload into the actions it requests, e.g. {"speed":42,"mode":"night"}.
// mode_deadline is a unix timestamp and mode_duration a number of minutes from now. For both, 0 clears the deadline.
// All actions are validated. Unknown keys are rejected.
func ParseCommand(payload []byte, now time.Time) ([]device.Action, error) {
	var cmd command
	if err := decode(payload, &cmd); err != nil {
		return nil, err
	}

	var actions []device.Action
	var err error
	if cmd.Name != nil {
		actions = append(actions, device.SetZoneName{Name: *cmd.Name})
	}
	if cmd.Speed != nil {
		actions = append(actions, device.SetSpeed{Percentage: *cmd.Speed})
	}
	if cmd.SpeedLevel != nil {
		actions = append(actions, device.SetSpeedLevel{Level: device.SpeedLevel(*cmd.SpeedLevel)})
	}
	if cmd.Mode != nil {
		actions = append(actions, device.SetMode{Mode: device.Mode(*cmd.Mode)})
	}
	if cmd.TargetTemperature != nil {
		actions = append(actions, device.SetTargetTemperature{Celsius: *cmd.TargetTemperature})
	}
	if cmd.AutoModeVOC != nil {
		actions = append(actions, device.SetAutoModeVOC{Enabled: *cmd.AutoModeVOC})
	}
	if cmd.AutoModeSilent != nil {
		actions = append(actions, device.SetAutoModeSilent{Enabled: *cmd.AutoModeSilent})
	}
	if cmd.TimeProfile != nil {
		actions = append(actions, device.SetTimeProfile{Profile: *cmd.TimeProfile})
	}
	if cmd.ResetFilter {
		actions = append(actions, device.ResetFilterRuntime{})
	}
	if cmd.FilterRuntime != nil {
		actions = append(actions, device.SetFilterRuntime{Hours: *cmd.FilterRuntime})
	}
	if cmd.ModeDeadline != nil {
		var deadline device.SetModeDeadline
		if *cmd.ModeDeadline != 0 {
			deadline.At = time.Unix(*cmd.ModeDeadline, 0).UTC()
		}
		actions = append(actions, deadline)
	}
	if cmd.ModeDuration != nil {
		deadline, derr := device.ModeDeadlineIn(time.Duration(*cmd.ModeDuration*float64(time.Minute)), now)
		if derr == nil {
			actions = append(actions, deadline)
		}
		err = errors.Join(err, derr)
	}
	if len(actions) == 0 && err == nil {
		return nil, errors.New("invalid command: no action requested")
	}

	for _, action := range actions {
		err = errors.Join(err, action.Validate())
	}
	return actions, err
}

// ParseSystemCommand decodes a system command payload, e.g. {"auto_update":true}.
func ParseSystemCommand(payload []byte) ([]device.SystemAction, error) {
	var cmd systemCommand
	if err := decode(payload, &cmd); err != nil {
		return nil, err
	}
	var actions []device.SystemAction
	if cmd.AutoUpdate != nil {
		actions = append(actions, device.SetAutoUpdate{Enabled: *cmd.AutoUpdate})
	}
	if len(actions) == 0 {
		return nil, errors.New("invalid command: no action requested")
	}
	var err error
	for _, action := range actions {
		err = errors.Join(err, action.Validate())
	}
	return actions, err
}

func decode(payload []byte, target any) error {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}
	return nil
}
