package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clambin/getair-monitor/internal/coordinator"
)

// Watcher sends an Event whenever the device becomes unavailable or recovers.
type Watcher struct {
	Poller   coordinator.Poller
	Notifier Notifier
	Logger   *slog.Logger
	DeviceID string
}

func (w *Watcher) Run(ctx context.Context) error {
	w.Logger.Debug("started")
	defer w.Logger.Debug("stopped")

	ch := w.Poller.Subscribe()
	defer w.Poller.Unsubscribe(ch)

	available := true
	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-ch:
			if update.Available == available {
				continue
			}
			available = update.Available
			w.Notifier.Notify(w.event(update))
		}
	}
}

func (w *Watcher) event(update coordinator.Update) Event {
	if update.Available {
		return Event{
			Severity: Info,
			Title:    w.DeviceID + ": device available again",
		}
	}
	var text string
	if update.Err != nil {
		text = update.Err.Error()
	}
	return Event{
		Severity: Alert,
		Title:    fmt.Sprintf("%s: device unavailable after %d failed polls", w.DeviceID, update.ConsecutiveFailures),
		Text:     text,
	}
}
