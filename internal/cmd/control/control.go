// Package control implements the "set" command: zone and system commands, sent directly to the device.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clambin/getair-monitor/internal/cmd/session"
	"github.com/clambin/getair-monitor/internal/coordinator"
	"github.com/clambin/getair-monitor/internal/device"
	"github.com/clambin/go-common/charmer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	zone          int
	speed         float64
	mode          string
	temperature   float64
	name          string
	filterRuntime float64
	modeDuration  time.Duration
	autoUpdate    bool

	Cmd = cobra.Command{
		Use:   "set",
		Short: "change the settings of a zone or of the central unit",
		RunE:  run,
	}
)

func init() {
	Cmd.Flags().IntVar(&zone, "zone", 1, "Zone (1-3)")
	Cmd.Flags().Float64Var(&speed, "speed", 0, "Speed, in percent (0-100). Set to the nearest speed level")
	Cmd.Flags().StringVar(&mode, "mode", "", "Mode")
	Cmd.Flags().Float64Var(&temperature, "temperature", 0, "Target temperature in degrees celsius")
	Cmd.Flags().StringVar(&name, "name", "", "Zone name")
	Cmd.Flags().Float64Var(&filterRuntime, "filter-runtime", 0, "Filter runtime, in hours. 0 resets the counter")
	Cmd.Flags().DurationVar(&modeDuration, "mode-duration", 0, "End the current mode after this duration (max 2h). 0 clears the deadline")
	Cmd.Flags().BoolVar(&autoUpdate, "auto-update", false, "Enable automatic firmware updates")
}

func run(cmd *cobra.Command, _ []string) error {
	var request Request
	if cmd.Flags().Changed("speed") {
		request.Speed = &speed
	}
	if cmd.Flags().Changed("mode") {
		request.Mode = &mode
	}
	if cmd.Flags().Changed("temperature") {
		request.TargetTemperature = &temperature
	}
	if cmd.Flags().Changed("name") {
		request.Name = &name
	}
	if cmd.Flags().Changed("filter-runtime") {
		request.FilterRuntime = &filterRuntime
	}
	if cmd.Flags().Changed("mode-duration") {
		request.ModeDuration = &modeDuration
	}
	if cmd.Flags().Changed("auto-update") {
		request.AutoUpdate = &autoUpdate
	}
	actions, system, err := request.Actions(time.Now())
	if err != nil {
		return err
	}

	logger := charmer.GetLogger(cmd)
	s, err := session.New(viper.GetViper(), nil, logger)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	return Apply(cmd.Context(), s.Client, zone, actions, system, logger)
}

// Request holds the requested changes. Nil fields are left unchanged.
type Request struct {
	Speed             *float64
	Mode              *string
	TargetTemperature *float64
	Name              *string
	FilterRuntime     *float64
	ModeDuration      *time.Duration
	AutoUpdate        *bool
}

// Actions validates the request and returns the zone actions and the system actions to perform.
func (r Request) Actions(now time.Time) ([]device.Action, []device.SystemAction, error) {
	var actions []device.Action
	var system []device.SystemAction
	var err error
	if r.Name != nil {
		actions = append(actions, device.SetZoneName{Name: *r.Name})
	}
	if r.Mode != nil {
		actions = append(actions, device.SetMode{Mode: device.Mode(*r.Mode)})
	}
	if r.ModeDuration != nil {
		deadline, derr := device.ModeDeadlineIn(*r.ModeDuration, now)
		if derr == nil {
			actions = append(actions, deadline)
		}
		err = errors.Join(err, derr)
	}
	if r.Speed != nil {
		actions = append(actions, device.SetSpeed{Percentage: *r.Speed})
	}
	if r.TargetTemperature != nil {
		actions = append(actions, device.SetTargetTemperature{Celsius: *r.TargetTemperature})
	}
	if r.FilterRuntime != nil {
		actions = append(actions, device.SetFilterRuntime{Hours: *r.FilterRuntime})
	}
	if r.AutoUpdate != nil {
		system = append(system, device.SetAutoUpdate{Enabled: *r.AutoUpdate})
	}
	if len(actions) == 0 && len(system) == 0 && err == nil {
		return nil, nil, errors.New("nothing to set. use --speed, --mode, --temperature, --name, --filter-runtime, --mode-duration or --auto-update")
	}
	for _, action := range actions {
		err = errors.Join(err, action.Validate())
	}
	for _, action := range system {
		err = errors.Join(err, action.Validate())
	}
	return actions, system, err
}

// Apply sends the actions to a zone, in order, followed by the system actions. It stops at the first failure.
func Apply(ctx context.Context, c coordinator.Commander, zone int, actions []device.Action, system []device.SystemAction, logger *slog.Logger) error {
	if len(actions) > 0 {
		if err := device.ValidateZone(zone); err != nil {
			return err
		}
	}
	for _, action := range actions {
		if err := c.SendCommand(ctx, zone, action); err != nil {
			return fmt.Errorf("zone %d: %s: %w", zone, action, err)
		}
		logger.Info("zone updated", "zone", zone, "action", action.String())
	}
	for _, action := range system {
		if err := c.SendSystemCommand(ctx, action); err != nil {
			return fmt.Errorf("system: %s: %w", action, err)
		}
		logger.Info("system updated", "action", action.String())
	}
	return nil
}
