package status

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/clambin/getair-monitor/internal/cmd/session"
	"github.com/clambin/getair-monitor/internal/device"
	"github.com/clambin/go-common/charmer"
	"github.com/clambin/go-common/set"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var Cmd = cobra.Command{
	Use:   "status",
	Short: "show the current state of the device",
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := session.New(viper.GetViper(), nil, charmer.GetLogger(cmd))
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		encoder := yaml.NewEncoder(os.Stdout)
		defer func() { _ = encoder.Close() }()
		return ShowStatus(cmd.Context(), s.Client, s.Zones, encoder)
	},
}

type Encoder interface {
	Encode(any) error
}

type Fetcher interface {
	FetchSnapshot(context.Context, set.Set[int]) (device.RawSnapshot, error)
}

type report struct {
	System device.SystemReadings `json:"system" yaml:"system"`
	Zones  []device.ZoneState    `json:"zones" yaml:"zones"`
}

// ShowStatus fetches the state of the device and writes the enabled zones to the encoder.
func ShowStatus(ctx context.Context, f Fetcher, zones set.Set[int], e Encoder) error {
	raw, err := f.FetchSnapshot(ctx, zones)
	if err != nil {
		return fmt.Errorf("getair: %w", err)
	}
	snapshot := device.NewModel(zones).ApplySnapshot(raw, time.Now())

	r := report{System: snapshot.System}
	for _, zone := range snapshot.Zones {
		if zone.Enabled {
			r.Zones = append(r.Zones, zone)
		}
	}
	return e.Encode(r)
}
