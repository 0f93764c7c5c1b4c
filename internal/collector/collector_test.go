package collector

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/clambin/getair-monitor/internal/coordinator"
	"github.com/clambin/getair-monitor/internal/coordinator/mocks"
	"github.com/clambin/getair-monitor/internal/device"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func testUpdate() coordinator.Update {
	speed := device.SpeedLevel(1.5)
	return coordinator.Update{
		HasSnapshot: true,
		Available:   true,
		Snapshot: device.Snapshot{
			System: device.SystemReadings{
				AirQualityPPM: ptr(612.0),
				PressureHPa:   ptr(1013.2),
				HumidityPct:   ptr(48.5),
				TemperatureC:  ptr(21.5),
			},
			Zones: [device.ZoneCount]device.ZoneState{
				{
					Index:               1,
					Enabled:             true,
					Name:                "Living room",
					TemperatureC:        ptr(22.0),
					HumidityPct:         ptr(51.0),
					OutdoorTemperatureC: ptr(12.5),
					OutdoorHumidityPct:  ptr(80.0),
					Speed:               &speed,
					Mode:                device.ModeVentilateHeatRecovery,
				},
				{
					Index:   2,
					Enabled: true,
					Name:    "Bedroom",
				},
				{
					Index:        3,
					Enabled:      false,
					Name:         "Zone 3",
					TemperatureC: ptr(19.0),
				},
			},
			FetchedAt: time.Date(2026, time.October, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestCollector(t *testing.T) {
	c := Collector{Logger: slog.New(slog.DiscardHandler)}

	assert.Zero(t, testutil.CollectAndCount(&c))

	c.process(testUpdate())

	require.NoError(t, testutil.CollectAndCompare(&c, strings.NewReader(`
# HELP getair_available 1 if the device is available
# TYPE getair_available gauge
getair_available 1

# HELP getair_consecutive_failures Number of consecutive failed polls
# TYPE getair_consecutive_failures gauge
getair_consecutive_failures 0

# HELP getair_snapshot_stale 1 if the reported readings are from an earlier poll
# TYPE getair_snapshot_stale gauge
getair_snapshot_stale 0

# HELP getair_system_air_quality_ppm Indoor air quality measured by the central unit
# TYPE getair_system_air_quality_ppm gauge
getair_system_air_quality_ppm 612

# HELP getair_system_humidity_percentage Relative humidity measured by the central unit
# TYPE getair_system_humidity_percentage gauge
getair_system_humidity_percentage 48.5

# HELP getair_system_pressure_hpa Air pressure in hPa
# TYPE getair_system_pressure_hpa gauge
getair_system_pressure_hpa 1013.2

# HELP getair_system_temperature_celsius Temperature measured by the central unit in degrees celsius
# TYPE getair_system_temperature_celsius gauge
getair_system_temperature_celsius 21.5

# HELP getair_zone_humidity_percentage Current humidity of this zone
# TYPE getair_zone_humidity_percentage gauge
getair_zone_humidity_percentage{zone="1",zone_name="Living room"} 51

# HELP getair_zone_mode Ventilation mode. Always 1. See label 'mode'
# TYPE getair_zone_mode gauge
getair_zone_mode{mode="ventilate_hr",zone="1",zone_name="Living room"} 1

# HELP getair_zone_outdoor_humidity_percentage Outdoor humidity measured by this zone's unit
# TYPE getair_zone_outdoor_humidity_percentage gauge
getair_zone_outdoor_humidity_percentage{zone="1",zone_name="Living room"} 80

# HELP getair_zone_outdoor_temperature_celsius Outdoor temperature measured by this zone's unit in degrees celsius
# TYPE getair_zone_outdoor_temperature_celsius gauge
getair_zone_outdoor_temperature_celsius{zone="1",zone_name="Living room"} 12.5

# HELP getair_zone_speed_level Fan speed level (0-4, in steps of 0.5)
# TYPE getair_zone_speed_level gauge
getair_zone_speed_level{zone="1",zone_name="Living room"} 1.5

# HELP getair_zone_speed_percentage Fan speed in percentage (0-100)
# TYPE getair_zone_speed_percentage gauge
getair_zone_speed_percentage{zone="1",zone_name="Living room"} 45

# HELP getair_zone_temperature_celsius Current temperature of this zone in degrees celsius
# TYPE getair_zone_temperature_celsius gauge
getair_zone_temperature_celsius{zone="1",zone_name="Living room"} 22
`)))
}

func TestCollector_Unavailable(t *testing.T) {
	c := Collector{Logger: slog.New(slog.DiscardHandler)}

	c.process(coordinator.Update{Available: false, ConsecutiveFailures: 5})

	require.NoError(t, testutil.CollectAndCompare(&c, strings.NewReader(`
# HELP getair_available 1 if the device is available
# TYPE getair_available gauge
getair_available 0

# HELP getair_consecutive_failures Number of consecutive failed polls
# TYPE getair_consecutive_failures gauge
getair_consecutive_failures 5

# HELP getair_snapshot_stale 1 if the reported readings are from an earlier poll
# TYPE getair_snapshot_stale gauge
getair_snapshot_stale 0
`)))
}

func TestCollector_Run(t *testing.T) {
	ch := make(chan coordinator.Update)
	p := mocks.NewPoller(t)
	p.EXPECT().Subscribe().Return(ch).Once()
	p.EXPECT().Unsubscribe(mock.Anything).Maybe()

	c := Collector{Poller: p, Logger: slog.New(slog.DiscardHandler)}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(t.Context())
	}()
	t.Cleanup(func() { <-done })

	ch <- testUpdate()

	assert.Eventually(t, func() bool {
		return testutil.CollectAndCount(&c, "getair_zone_temperature_celsius") == 1
	}, time.Second, 10*time.Millisecond)
}
