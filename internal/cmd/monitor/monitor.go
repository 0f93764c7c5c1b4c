package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/clambin/getair-monitor/internal/cmd/session"
	"github.com/clambin/getair-monitor/internal/collector"
	"github.com/clambin/getair-monitor/internal/coordinator"
	"github.com/clambin/getair-monitor/internal/getair"
	"github.com/clambin/getair-monitor/internal/health"
	"github.com/clambin/getair-monitor/internal/history"
	"github.com/clambin/getair-monitor/internal/mqttbridge"
	"github.com/clambin/getair-monitor/internal/notifier"
	"github.com/clambin/go-common/charmer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/slack-go/slack"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var (
	Cmd = cobra.Command{
		Use:   "monitor",
		Short: "poll the device and publish its state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Run(cmd.Context(), viper.GetViper(), prometheus.DefaultRegisterer, charmer.GetLogger(cmd))
		},
	}

	args = charmer.Arguments{
		"poller.interval":         {Default: coordinator.DefaultInterval, Help: "Poller interval (10s - 1h)"},
		"poller.failureThreshold": {Default: coordinator.DefaultFailureThreshold, Help: "Failed polls before the device is reported unavailable"},
		"exporter.addr":           {Default: ":9090", Help: "Address of Prometheus exporter"},
		"health.addr":             {Default: ":8080", Help: "Address of /health endpoint"},
		"slack.token":             {Default: "", Help: "Slack token"},
		"mqtt.broker":             {Default: "", Help: "MQTT broker (e.g. tcp://localhost:1883)"},
		"mqtt.clientID":           {Default: "getair-monitor", Help: "MQTT client ID"},
		"mqtt.username":           {Default: "", Help: "MQTT username"},
		"mqtt.password":           {Default: "", Help: "MQTT password"},
		"mqtt.prefix":             {Default: "getair", Help: "MQTT topic prefix"},
		"influxdb.url":            {Default: "", Help: "InfluxDB URL"},
		"influxdb.token":          {Default: "", Help: "InfluxDB token"},
		"influxdb.org":            {Default: "", Help: "InfluxDB organization"},
		"influxdb.bucket":         {Default: "getair", Help: "InfluxDB bucket"},
	}
)

func init() {
	_ = charmer.SetPersistentFlags(&Cmd, viper.GetViper(), args)
}

type task interface {
	Run(ctx context.Context) error
}

// Run polls the device until ctx is canceled. It returns immediately if the credentials are rejected.
func Run(ctx context.Context, v *viper.Viper, r prometheus.Registerer, logger *slog.Logger) error {
	s, err := session.New(v, r, logger)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if _, err = s.Tokens.EnsureValid(ctx); err != nil {
		if getair.IsFatal(err) {
			return fmt.Errorf("getair: %w", err)
		}
		logger.Warn("initial authentication failed. retrying at next poll", "err", err)
	}

	c := coordinator.New(s.Client, coordinator.Config{
		Interval:         v.GetDuration("poller.interval"),
		FailureThreshold: v.GetInt("poller.failureThreshold"),
		Zones:            s.Zones,
	}, logger.With("component", "coordinator"))

	tasks, closer, err := makeTasks(ctx, v, c, s.Client.DeviceID(), r, logger)
	if err != nil {
		return err
	}
	defer closer()

	logger.Info("getair-monitor started", "device", s.Client.DeviceID(), "zones", s.Zones.ListOrdered())
	defer logger.Info("getair-monitor stopped")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Run(ctx) })
	for _, t := range tasks {
		g.Go(func() error { return t.Run(ctx) })
	}
	return g.Wait()
}

func makeTasks(ctx context.Context, v *viper.Viper, c *coordinator.Coordinator, deviceID string, r prometheus.Registerer, l *slog.Logger) ([]task, func(), error) {
	var tasks []task
	var closers []func()
	closer := func() {
		for _, f := range closers {
			f()
		}
	}

	// Collector
	coll := &collector.Collector{Poller: c, Logger: l.With("component", "collector")}
	if err := r.Register(coll); err != nil {
		return nil, closer, fmt.Errorf("collector: %w", err)
	}
	tasks = append(tasks, coll)

	// Prometheus server
	if addr := v.GetString("exporter.addr"); addr != "" {
		m := http.NewServeMux()
		m.Handle("/metrics", promhttp.Handler())
		tasks = append(tasks, &httpServer{addr: addr, handler: m, logger: l.With("component", "exporter")})
	}

	// Health endpoint
	if addr := v.GetString("health.addr"); addr != "" {
		h := health.New(c, l.With("component", "health"))
		m := http.NewServeMux()
		m.Handle("/health", h)
		tasks = append(tasks, h, &httpServer{addr: addr, handler: m, logger: l.With("component", "health")})
	}

	// Notifications
	notifiers := notifier.Notifiers{notifier.SLogNotifier{Logger: l.With("component", "notifier")}}
	if token := v.GetString("slack.token"); token != "" {
		notifiers = append(notifiers, &notifier.SlackNotifier{SlackSender: slack.New(token), Logger: l.With("component", "slack")})
	}
	tasks = append(tasks, &notifier.Watcher{Poller: c, Notifier: notifiers, DeviceID: deviceID, Logger: l.With("component", "watcher")})

	// MQTT
	if broker := v.GetString("mqtt.broker"); broker != "" {
		topics := mqttbridge.Topics{Prefix: v.GetString("mqtt.prefix"), DeviceID: deviceID}
		client, err := mqttbridge.Connect(mqttbridge.Config{
			Broker:   broker,
			ClientID: v.GetString("mqtt.clientID"),
			Username: v.GetString("mqtt.username"),
			Password: v.GetString("mqtt.password"),
		}, topics)
		if err != nil {
			return nil, closer, err
		}
		closers = append(closers, func() { client.Disconnect(250) })
		tasks = append(tasks, &mqttbridge.Bridge{Client: client, Poller: c, Commander: c, Topics: topics, Logger: l.With("component", "mqtt")})
	}

	// History
	if url := v.GetString("influxdb.url"); url != "" {
		conn, err := history.Connect(ctx, history.Config{
			URL:    url,
			Token:  v.GetString("influxdb.token"),
			Org:    v.GetString("influxdb.org"),
			Bucket: v.GetString("influxdb.bucket"),
		}, l.With("component", "influxdb"))
		if err != nil {
			return nil, closer, err
		}
		closers = append(closers, conn.Close)
		tasks = append(tasks, &history.Recorder{Poller: c, Writer: conn, DeviceID: deviceID, Logger: l.With("component", "history")})
	}

	return tasks, closer, nil
}

type httpServer struct {
	addr    string
	handler http.Handler
	logger  *slog.Logger
}

func (s *httpServer) Run(ctx context.Context) error {
	server := http.Server{Addr: s.addr, Handler: s.handler, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		s.logger.Debug("http server started", "addr", s.addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server %s: %w", s.addr, err)
		}
		s.logger.Debug("http server stopped", "addr", s.addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := server.Shutdown(shutdownCtx)
	// ListenAndServe may still be starting up: wait for it to return
	return errors.Join(err, <-errCh)
}
