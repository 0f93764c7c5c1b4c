// Package history records device snapshots in InfluxDB.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/clambin/getair-monitor/internal/coordinator"
	"github.com/clambin/getair-monitor/internal/device"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const (
	systemMeasurement = "getair_system"
	zoneMeasurement   = "getair_zone"
	pingTimeout       = 10 * time.Second
)

// PointWriter receives the points to store. The InfluxDB non-blocking WriteAPI implements it.
type PointWriter interface {
	WritePoint(point *write.Point)
}

type Config struct {
	URL       string
	Token     string
	Org       string
	Bucket    string
	BatchSize uint
}

// Connection is an open InfluxDB client.
type Connection struct {
	PointWriter
	client influxdb2.Client
	flush  func()
}

// Connect opens a connection to InfluxDB and verifies that the server is healthy.
// Asynchronous write errors are logged.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Connection, error) {
	batchSize := cfg.BatchSize
	if batchSize == 0 {
		batchSize = 100
	}
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, influxdb2.DefaultOptions().SetBatchSize(batchSize))

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	healthy, err := client.Ping(ctx)
	if err == nil && !healthy {
		err = errors.New("server not healthy")
	}
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("influxdb: %w", err)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	go func() {
		for err := range writeAPI.Errors() {
			logger.Warn("failed to write to influxdb", "err", err)
		}
	}()
	return &Connection{PointWriter: writeAPI, client: client, flush: writeAPI.Flush}, nil
}

// Close flushes any pending points and closes the client.
func (c *Connection) Close() {
	c.flush()
	c.client.Close()
}

// Recorder writes every new snapshot as a set of points.
type Recorder struct {
	Poller   coordinator.Poller
	Writer   PointWriter
	DeviceID string
	Logger   *slog.Logger
	last     time.Time
}

func (r *Recorder) Run(ctx context.Context) error {
	r.Logger.Debug("started")
	defer r.Logger.Debug("stopped")

	ch := r.Poller.Subscribe()
	defer r.Poller.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-ch:
			r.process(update)
		}
	}
}

func (r *Recorder) process(update coordinator.Update) {
	if !update.HasSnapshot || update.Stale || !update.Snapshot.FetchedAt.After(r.last) {
		return
	}
	r.last = update.Snapshot.FetchedAt
	points := Points(r.DeviceID, update.Snapshot)
	for _, point := range points {
		r.Writer.WritePoint(point)
	}
	r.Logger.Debug("snapshot recorded", "points", len(points))
}

// Points converts a snapshot into one system point and one point per enabled zone.
// Unavailable readings are left out. A point without any fields is not returned.
func Points(deviceID string, snapshot device.Snapshot) []*write.Point {
	points := make([]*write.Point, 0, 1+device.ZoneCount)

	fields := make(map[string]any)
	addField(fields, "air_quality", snapshot.System.AirQualityPPM)
	addField(fields, "pressure", snapshot.System.PressureHPa)
	addField(fields, "humidity", snapshot.System.HumidityPct)
	addField(fields, "temperature", snapshot.System.TemperatureC)
	addField(fields, "runtime", snapshot.System.RuntimeHours)
	if snapshot.System.IAQAccuracy != nil {
		fields["iaq_accuracy"] = int64(*snapshot.System.IAQAccuracy)
	}
	if len(fields) > 0 {
		points = append(points, write.NewPoint(systemMeasurement, map[string]string{"device_id": deviceID}, fields, snapshot.FetchedAt))
	}

	for _, zone := range snapshot.Zones {
		if !zone.Enabled {
			continue
		}
		fields = make(map[string]any)
		addField(fields, "temperature", zone.TemperatureC)
		addField(fields, "humidity", zone.HumidityPct)
		addField(fields, "outdoor_temperature", zone.OutdoorTemperatureC)
		addField(fields, "outdoor_humidity", zone.OutdoorHumidityPct)
		addField(fields, "target_temperature", zone.TargetTemperatureC)
		if zone.Speed != nil {
			fields["speed"] = float64(*zone.Speed)
			fields["speed_percentage"] = int64(zone.Speed.Percentage())
		}
		if len(fields) == 0 {
			continue
		}
		tags := map[string]string{
			"device_id": deviceID,
			"zone":      strconv.Itoa(zone.Index),
			"name":      zone.Name,
		}
		if zone.Mode != "" {
			tags["mode"] = string(zone.Mode)
		}
		points = append(points, write.NewPoint(zoneMeasurement, tags, fields, snapshot.FetchedAt))
	}
	return points
}

func addField(fields map[string]any, name string, value *float64) {
	if value != nil {
		fields[name] = *value
	}
}
