// Package coordinator polls a getAir device and executes commands against it.
//
// All calls to the device run on a single goroutine, in the order they were requested.
// Every change to the device state is published as an Update.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/clambin/getair-monitor/internal/device"
	"github.com/clambin/getair-monitor/pkg/pubsub"
	"github.com/clambin/go-common/set"
)

const (
	MinInterval             = 10 * time.Second
	MaxInterval             = time.Hour
	DefaultInterval         = time.Minute
	DefaultFailureThreshold = 5
)

// ClampInterval limits the polling interval to [MinInterval, MaxInterval].
func ClampInterval(interval time.Duration) time.Duration {
	return min(max(interval, MinInterval), MaxInterval)
}

// Poller is the interface offered to consumers of updates.
type Poller interface {
	Subscribe() <-chan Update
	Unsubscribe(<-chan Update)
	Refresh()
}

// Commander executes zone and system commands.
type Commander interface {
	SendCommand(ctx context.Context, zone int, action device.Action) error
	SendSystemCommand(ctx context.Context, action device.SystemAction) error
}

// DeviceClient is the getAir API, as used by the Coordinator.
type DeviceClient interface {
	FetchSnapshot(ctx context.Context, zones set.Set[int]) (device.RawSnapshot, error)
	Commander
}

// ErrStopped is returned for commands that were still queued when the coordinator stopped.
var ErrStopped = errors.New("coordinator stopped")

var (
	_ Poller    = &Coordinator{}
	_ Commander = &Coordinator{}
)

type Config struct {
	// Interval between polls. It is clamped to [MinInterval, MaxInterval].
	Interval time.Duration
	// FailureThreshold is the number of consecutive failed polls after which the device is reported unavailable.
	FailureThreshold int
	// Zones are the zones to poll and to accept commands for.
	Zones set.Set[int]
}

type Coordinator struct {
	*pubsub.Publisher[Update]
	client    DeviceClient
	model     *device.Model
	zones     set.Set[int]
	interval  time.Duration
	threshold int
	logger    *slog.Logger
	now       func() time.Time

	// queue holds pending operations in the order they were requested. A nil entry is a poll.
	queueLock sync.Mutex
	queue     []*command
	wake      chan struct{}

	lock  sync.RWMutex
	state Update

	runLock sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

type command struct {
	ctx    context.Context
	zone   int
	action device.Action
	system device.SystemAction
	result chan error
}

func (c *command) String() string {
	if c.system != nil {
		return c.system.String()
	}
	return c.action.String()
}

func New(client DeviceClient, cfg Config, logger *slog.Logger) *Coordinator {
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	return &Coordinator{
		Publisher: pubsub.New[Update](logger.With(slog.String("component", "publisher"))),
		client:    client,
		model:     device.NewModel(cfg.Zones),
		zones:     cfg.Zones,
		interval:  ClampInterval(cfg.Interval),
		threshold: cfg.FailureThreshold,
		logger:    logger,
		wake:      make(chan struct{}, 1),
		now:       time.Now,
		state:     Update{Available: true},
	}
}

// Run polls the device, and executes queued commands, until ctx is done. The first poll starts immediately.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Debug("started", slog.Duration("interval", c.interval))
	defer c.logger.Debug("stopped")
	defer c.abortPending()

	timer := time.NewTimer(c.interval)
	defer timer.Stop()
	c.enqueue(nil)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			c.enqueue(nil)
		case <-c.wake:
		}

		for ctx.Err() == nil {
			cmd, ok := c.dequeue()
			if !ok {
				break
			}
			if cmd == nil {
				c.poll(ctx)
				timer.Reset(c.interval)
				continue
			}
			err := c.execute(ctx, cmd)
			cmd.result <- err
			if err == nil {
				// poll to pick up the command's effects
				c.enqueue(nil)
			}
		}
	}
}

// enqueue adds an operation to the queue. A poll is merged into a poll already waiting at the tail.
func (c *Coordinator) enqueue(cmd *command) {
	c.queueLock.Lock()
	if cmd != nil || len(c.queue) == 0 || c.queue[len(c.queue)-1] != nil {
		c.queue = append(c.queue, cmd)
	}
	c.queueLock.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Coordinator) dequeue() (*command, bool) {
	c.queueLock.Lock()
	defer c.queueLock.Unlock()
	if len(c.queue) == 0 {
		return nil, false
	}
	cmd := c.queue[0]
	c.queue[0] = nil
	c.queue = c.queue[1:]
	return cmd, true
}

func (c *Coordinator) abortPending() {
	c.queueLock.Lock()
	defer c.queueLock.Unlock()
	for _, cmd := range c.queue {
		if cmd != nil {
			cmd.result <- ErrStopped
		}
	}
	c.queue = nil
}

// Start runs the coordinator in the background until Stop is called or ctx is done.
func (c *Coordinator) Start(ctx context.Context) {
	c.runLock.Lock()
	defer c.runLock.Unlock()
	if c.cancel != nil {
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		_ = c.Run(ctx)
	}()
}

// Stop stops a coordinator started with Start and waits for it to finish.
// Pending timers and waits are aborted and queued commands fail with ErrStopped.
// A request already on the wire completes or times out.
func (c *Coordinator) Stop() {
	c.runLock.Lock()
	defer c.runLock.Unlock()
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.cancel = nil
}

// Refresh queues a poll. It runs after the operations that are already queued.
func (c *Coordinator) Refresh() {
	c.enqueue(nil)
}

// SendCommand queues an action for a zone and waits until it has been executed, or ctx is done.
// Invalid zones and actions are rejected with a device.ValidationError before they are queued.
// A command whose ctx is done before its turn comes is not sent.
func (c *Coordinator) SendCommand(ctx context.Context, zone int, action device.Action) error {
	if err := device.ValidateZone(zone); err != nil {
		return err
	}
	if !c.zones.Contains(zone) {
		return &device.ValidationError{Field: "zone", Value: zone, Reason: "zone is not enabled"}
	}
	if action == nil {
		return &device.ValidationError{Field: "action", Value: nil, Reason: "missing"}
	}
	if err := action.Validate(); err != nil {
		return err
	}

	return c.submit(ctx, &command{ctx: ctx, zone: zone, action: action, result: make(chan error, 1)})
}

// SendSystemCommand queues an action for the central unit and waits until it has been executed, or ctx is done.
func (c *Coordinator) SendSystemCommand(ctx context.Context, action device.SystemAction) error {
	if action == nil {
		return &device.ValidationError{Field: "action", Value: nil, Reason: "missing"}
	}
	if err := action.Validate(); err != nil {
		return err
	}
	return c.submit(ctx, &command{ctx: ctx, system: action, result: make(chan error, 1)})
}

func (c *Coordinator) submit(ctx context.Context, cmd *command) error {
	c.enqueue(cmd)
	select {
	case err := <-cmd.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FetchSnapshot returns the last known snapshot. The boolean is false if no poll has succeeded yet.
func (c *Coordinator) FetchSnapshot() (device.Snapshot, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.state.Snapshot.Clone(), c.state.HasSnapshot
}

// Available returns false once the number of consecutive failed polls reaches the failure threshold.
func (c *Coordinator) Available() bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.state.Available
}

func (c *Coordinator) execute(ctx context.Context, cmd *command) error {
	if err := cmd.ctx.Err(); err != nil {
		return err
	}
	l := c.logger.With("action", cmd.String())
	var err error
	if cmd.system != nil {
		err = c.client.SendSystemCommand(ctx, cmd.system)
	} else {
		l = l.With("zone", cmd.zone)
		err = c.client.SendCommand(ctx, cmd.zone, cmd.action)
	}
	if err != nil {
		l.Warn("command failed", "err", err)
		return err
	}
	l.Info("command executed")

	if _, ok := c.model.Snapshot(); !ok {
		return nil
	}
	var snapshot device.Snapshot
	if cmd.system != nil {
		snapshot = c.model.ApplySystemCommandAck(cmd.system)
	} else if snapshot, err = c.model.ApplyCommandAck(cmd.zone, cmd.action); err != nil {
		return err
	}
	c.lock.Lock()
	c.state.Snapshot = snapshot
	update := c.state.clone()
	c.lock.Unlock()
	c.Publish(update)
	return nil
}

func (c *Coordinator) poll(ctx context.Context) {
	start := time.Now()
	raw, err := c.client.FetchSnapshot(ctx, c.zones)
	if err != nil && ctx.Err() != nil {
		// stopping
		return
	}

	c.lock.Lock()
	if err == nil {
		c.state.Snapshot = c.model.ApplySnapshot(raw, c.now())
		c.state.HasSnapshot = true
		c.state.Stale = false
		c.state.ConsecutiveFailures = 0
		c.state.Err = nil
		if !c.state.Available {
			c.state.Available = true
			c.logger.Info("device available again")
		}
		c.logger.Debug("poll completed", slog.Duration("duration", time.Since(start)))
	} else {
		c.state.ConsecutiveFailures++
		c.state.Stale = c.state.HasSnapshot
		c.state.Err = err
		l := c.logger.With("failures", c.state.ConsecutiveFailures, "err", err)
		if c.state.ConsecutiveFailures >= c.threshold && c.state.Available {
			c.state.Available = false
			l.Error("device unavailable")
		} else {
			l.Warn("poll failed")
		}
	}
	update := c.state.clone()
	c.lock.Unlock()

	c.Publish(update)
}
