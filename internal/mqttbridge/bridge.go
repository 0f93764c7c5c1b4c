// Package mqttbridge publishes the device state to an MQTT broker and accepts zone and system commands from it.
package mqttbridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/clambin/getair-monitor/internal/coordinator"
	"github.com/clambin/getair-monitor/internal/device"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/sync/errgroup"
)

const commandTimeout = time.Minute

type Bridge struct {
	Client    Client
	Poller    coordinator.Poller
	Commander coordinator.Commander
	Topics    Topics
	Logger    *slog.Logger
	commands  chan pendingCommand
}

// pendingCommand holds the actions of one command message. System commands have no zone.
type pendingCommand struct {
	zone    int
	actions []device.Action
	system  []device.SystemAction
}

func (b *Bridge) Run(ctx context.Context) error {
	b.Logger.Debug("started")
	defer b.Logger.Debug("stopped")

	b.commands = make(chan pendingCommand, 16)
	for _, topic := range []string{b.Topics.Commands(), b.Topics.SystemCommand()} {
		if err := wait(b.Client.Subscribe(topic, qos, b.onCommand), publishTimeout); err != nil {
			return err
		}
	}
	defer b.Client.Unsubscribe(b.Topics.Commands(), b.Topics.SystemCommand())

	var g errgroup.Group
	g.Go(func() error { b.executeCommands(ctx); return nil })
	g.Go(func() error { b.publishUpdates(ctx); return nil })
	_ = g.Wait()

	b.publish(b.Topics.Availability(), Offline)
	return nil
}

func (b *Bridge) publishUpdates(ctx context.Context) {
	ch := b.Poller.Subscribe()
	defer b.Poller.Unsubscribe(ch)

	var lastAvailability string
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-ch:
			if update.HasSnapshot {
				b.publishState(update)
			}
			// online only once there is state to show
			availability := Offline
			if update.Available && update.HasSnapshot {
				availability = Online
			}
			if availability != lastAvailability {
				b.publish(b.Topics.Availability(), availability)
				lastAvailability = availability
			}
		}
	}
}

func (b *Bridge) publishState(update coordinator.Update) {
	payload, err := json.Marshal(update)
	if err != nil {
		b.Logger.Error("failed to encode state", "err", err)
		return
	}
	b.publish(b.Topics.State(), payload)
}

func (b *Bridge) publish(topic string, payload any) {
	if err := wait(b.Client.Publish(topic, qos, true, payload), publishTimeout); err != nil {
		b.Logger.Warn("failed to publish", "topic", topic, "err", err)
	}
}

func (b *Bridge) onCommand(_ mqtt.Client, msg mqtt.Message) {
	l := b.Logger.With("topic", msg.Topic())
	cmd, err := b.parse(msg)
	if err != nil {
		l.Warn("ignoring command", "payload", string(msg.Payload()), "err", err)
		return
	}
	select {
	case b.commands <- cmd:
	default:
		l.Warn("too many pending commands. dropping command")
	}
}

func (b *Bridge) parse(msg mqtt.Message) (pendingCommand, error) {
	if msg.Topic() == b.Topics.SystemCommand() {
		system, err := ParseSystemCommand(msg.Payload())
		return pendingCommand{system: system}, err
	}
	zone, err := b.Topics.ParseCommand(msg.Topic())
	if err != nil {
		return pendingCommand{}, err
	}
	actions, err := ParseCommand(msg.Payload(), time.Now())
	return pendingCommand{zone: zone, actions: actions}, err
}

func (b *Bridge) executeCommands(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-b.commands:
			b.execute(ctx, cmd)
		}
	}
}

// execute runs the actions of a command in order. It stops at the first failure.
func (b *Bridge) execute(ctx context.Context, cmd pendingCommand) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	for _, action := range cmd.actions {
		l := b.Logger.With("zone", cmd.zone, "action", action.String())
		if err := b.Commander.SendCommand(ctx, cmd.zone, action); err != nil {
			l.Warn("command failed", "err", err)
			return
		}
		l.Info("command executed")
	}
	for _, action := range cmd.system {
		l := b.Logger.With("action", action.String())
		if err := b.Commander.SendSystemCommand(ctx, action); err != nil {
			l.Warn("command failed", "err", err)
			return
		}
		l.Info("command executed")
	}
}
