package collector

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/clambin/getair-monitor/internal/coordinator"
	"github.com/clambin/getair-monitor/internal/device"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	systemAirQuality = prometheus.NewDesc(
		prometheus.BuildFQName("getair", "system", "air_quality_ppm"),
		"Indoor air quality measured by the central unit",
		nil,
		nil,
	)
	systemPressure = prometheus.NewDesc(
		prometheus.BuildFQName("getair", "system", "pressure_hpa"),
		"Air pressure in hPa",
		nil,
		nil,
	)
	systemHumidity = prometheus.NewDesc(
		prometheus.BuildFQName("getair", "system", "humidity_percentage"),
		"Relative humidity measured by the central unit",
		nil,
		nil,
	)
	systemTemperature = prometheus.NewDesc(
		prometheus.BuildFQName("getair", "system", "temperature_celsius"),
		"Temperature measured by the central unit in degrees celsius",
		nil,
		nil,
	)

	zoneTemperature = prometheus.NewDesc(
		prometheus.BuildFQName("getair", "zone", "temperature_celsius"),
		"Current temperature of this zone in degrees celsius",
		[]string{"zone", "zone_name"},
		nil,
	)
	zoneHumidity = prometheus.NewDesc(
		prometheus.BuildFQName("getair", "zone", "humidity_percentage"),
		"Current humidity of this zone",
		[]string{"zone", "zone_name"},
		nil,
	)
	zoneOutdoorTemperature = prometheus.NewDesc(
		prometheus.BuildFQName("getair", "zone", "outdoor_temperature_celsius"),
		"Outdoor temperature measured by this zone's unit in degrees celsius",
		[]string{"zone", "zone_name"},
		nil,
	)
	zoneOutdoorHumidity = prometheus.NewDesc(
		prometheus.BuildFQName("getair", "zone", "outdoor_humidity_percentage"),
		"Outdoor humidity measured by this zone's unit",
		[]string{"zone", "zone_name"},
		nil,
	)
	zoneSpeedLevel = prometheus.NewDesc(
		prometheus.BuildFQName("getair", "zone", "speed_level"),
		"Fan speed level (0-4, in steps of 0.5)",
		[]string{"zone", "zone_name"},
		nil,
	)
	zoneSpeedPercentage = prometheus.NewDesc(
		prometheus.BuildFQName("getair", "zone", "speed_percentage"),
		"Fan speed in percentage (0-100)",
		[]string{"zone", "zone_name"},
		nil,
	)
	zoneMode = prometheus.NewDesc(
		prometheus.BuildFQName("getair", "zone", "mode"),
		"Ventilation mode. Always 1. See label 'mode'",
		[]string{"zone", "zone_name", "mode"},
		nil,
	)

	available = prometheus.NewDesc(
		prometheus.BuildFQName("getair", "", "available"),
		"1 if the device is available",
		nil,
		nil,
	)
	consecutiveFailures = prometheus.NewDesc(
		prometheus.BuildFQName("getair", "", "consecutive_failures"),
		"Number of consecutive failed polls",
		nil,
		nil,
	)
	snapshotStale = prometheus.NewDesc(
		prometheus.BuildFQName("getair", "", "snapshot_stale"),
		"1 if the reported readings are from an earlier poll",
		nil,
		nil,
	)
)

// Collector exports the last published Update as Prometheus metrics.
type Collector struct {
	Poller     coordinator.Poller
	Logger     *slog.Logger
	lock       sync.RWMutex
	lastUpdate *coordinator.Update
}

func (c *Collector) Run(ctx context.Context) error {
	c.Logger.Debug("started")
	defer c.Logger.Debug("stopped")

	ch := c.Poller.Subscribe()
	defer c.Poller.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-ch:
			c.process(update)
		}
	}
}

func (c *Collector) process(update coordinator.Update) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.lastUpdate = &update
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- systemAirQuality
	ch <- systemPressure
	ch <- systemHumidity
	ch <- systemTemperature
	ch <- zoneTemperature
	ch <- zoneHumidity
	ch <- zoneOutdoorTemperature
	ch <- zoneOutdoorHumidity
	ch <- zoneSpeedLevel
	ch <- zoneSpeedPercentage
	ch <- zoneMode
	ch <- available
	ch <- consecutiveFailures
	ch <- snapshotStale
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if c.lastUpdate == nil {
		return
	}
	c.collectAvailability(ch)
	if c.lastUpdate.HasSnapshot {
		c.collectSystem(ch, c.lastUpdate.Snapshot.System)
		for _, zone := range c.lastUpdate.Snapshot.Zones {
			if zone.Enabled {
				c.collectZone(ch, zone)
			}
		}
	}
}

func (c *Collector) collectAvailability(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(available, prometheus.GaugeValue, boolToFloat(c.lastUpdate.Available))
	ch <- prometheus.MustNewConstMetric(consecutiveFailures, prometheus.GaugeValue, float64(c.lastUpdate.ConsecutiveFailures))
	ch <- prometheus.MustNewConstMetric(snapshotStale, prometheus.GaugeValue, boolToFloat(c.lastUpdate.Stale))
}

func (c *Collector) collectSystem(ch chan<- prometheus.Metric, system device.SystemReadings) {
	collectReading(ch, systemAirQuality, system.AirQualityPPM)
	collectReading(ch, systemPressure, system.PressureHPa)
	collectReading(ch, systemHumidity, system.HumidityPct)
	collectReading(ch, systemTemperature, system.TemperatureC)
}

func (c *Collector) collectZone(ch chan<- prometheus.Metric, zone device.ZoneState) {
	labels := []string{strconv.Itoa(zone.Index), zone.Name}
	collectReading(ch, zoneTemperature, zone.TemperatureC, labels...)
	collectReading(ch, zoneHumidity, zone.HumidityPct, labels...)
	collectReading(ch, zoneOutdoorTemperature, zone.OutdoorTemperatureC, labels...)
	collectReading(ch, zoneOutdoorHumidity, zone.OutdoorHumidityPct, labels...)
	if zone.Speed != nil {
		ch <- prometheus.MustNewConstMetric(zoneSpeedLevel, prometheus.GaugeValue, float64(*zone.Speed), labels...)
	}
	if pct, ok := zone.SpeedPercentage(); ok && pct >= 0 {
		ch <- prometheus.MustNewConstMetric(zoneSpeedPercentage, prometheus.GaugeValue, float64(pct), labels...)
	}
	if zone.Mode != "" {
		ch <- prometheus.MustNewConstMetric(zoneMode, prometheus.GaugeValue, 1, append(labels, string(zone.Mode))...)
	}
}

func collectReading(ch chan<- prometheus.Metric, desc *prometheus.Desc, value *float64, labels ...string) {
	if value != nil {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, *value, labels...)
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
