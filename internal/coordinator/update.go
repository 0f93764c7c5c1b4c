package coordinator

import (
	"encoding/json"

	"github.com/clambin/getair-monitor/internal/device"
)

// Update is published whenever the device state, or the coordinator's view of it, changes.
type Update struct {
	Snapshot            device.Snapshot
	HasSnapshot         bool
	Stale               bool
	Available           bool
	ConsecutiveFailures int
	Err                 error
}

func (u Update) clone() Update {
	u.Snapshot = u.Snapshot.Clone()
	return u
}

func (u Update) MarshalJSON() ([]byte, error) {
	type update struct {
		Snapshot            *device.Snapshot `json:"snapshot,omitempty"`
		Stale               bool             `json:"stale"`
		Available           bool             `json:"available"`
		ConsecutiveFailures int              `json:"consecutive_failures"`
		LastError           string           `json:"last_error,omitempty"`
	}
	out := update{
		Stale:               u.Stale,
		Available:           u.Available,
		ConsecutiveFailures: u.ConsecutiveFailures,
	}
	if u.HasSnapshot {
		out.Snapshot = &u.Snapshot
	}
	if u.Err != nil {
		out.LastError = u.Err.Error()
	}
	return json.Marshal(out)
}
