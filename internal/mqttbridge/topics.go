package mqttbridge

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	Online  = "online"
	Offline = "offline"
)

// Topics builds the topics of a single device: {prefix}/{deviceID}/...
type Topics struct {
	Prefix   string
	DeviceID string
}

func (t Topics) base() string {
	return strings.TrimSuffix(t.Prefix, "/") + "/" + t.DeviceID
}

func (t Topics) State() string {
	return t.base() + "/state"
}

func (t Topics) Availability() string {
	return t.base() + "/availability"
}

// Commands is the subscription filter for the command topics of all zones.
func (t Topics) Commands() string {
	return t.base() + "/zone/+/set"
}

// SystemCommand is the command topic of the central unit.
func (t Topics) SystemCommand() string {
	return t.base() + "/system/set"
}

func (t Topics) Command(zone int) string {
	return t.base() + "/zone/" + strconv.Itoa(zone) + "/set"
}

// ParseCommand returns the zone addressed by a command topic.
func (t Topics) ParseCommand(topic string) (int, error) {
	rest, ok := strings.CutPrefix(topic, t.base()+"/zone/")
	if !ok {
		return 0, fmt.Errorf("invalid command topic: %q", topic)
	}
	zone, ok := strings.CutSuffix(rest, "/set")
	if !ok {
		return 0, fmt.Errorf("invalid command topic: %q", topic)
	}
	index, err := strconv.Atoi(zone)
	if err != nil {
		return 0, fmt.Errorf("invalid zone in command topic %q: %w", topic, err)
	}
	return index, nil
}
