package notifier

import (
	"context"
	"log/slog"
)

type SLogNotifier struct {
	Logger *slog.Logger
}

var _ Notifier = &SLogNotifier{}

func (s SLogNotifier) Notify(event Event) {
	level := slog.LevelInfo
	if event.Severity != Info {
		level = slog.LevelWarn
	}
	s.Logger.Log(context.Background(), level, event.Title, "details", event.Text)
}
