// Package notifier reports changes in device availability.
package notifier

// Severity of an Event. It determines the color of Slack attachments.
type Severity string

const (
	Info    Severity = "good"
	Warning Severity = "warning"
	Alert   Severity = "danger"
)

type Event struct {
	Severity Severity
	Title    string
	Text     string
}

type Notifier interface {
	Notify(Event)
}

type Notifiers []Notifier

func (n Notifiers) Notify(event Event) {
	for _, l := range n {
		l.Notify(event)
	}
}
