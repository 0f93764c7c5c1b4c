// Package pubsub provides a basic Publish/Subscribe implementation.
//
// Publish never blocks: each subscriber holds at most one pending value and a slow subscriber
// only sees the most recent one.
package pubsub

import (
	"log/slog"
	"sync"
)

// Publisher allows clients to subscribe and sends them the information provided by Publish.
type Publisher[T any] struct {
	clients map[chan T]struct{}
	logger  *slog.Logger
	lock    sync.RWMutex
}

// New returns a new Publisher
func New[T any](logger *slog.Logger) *Publisher[T] {
	return &Publisher[T]{
		clients: make(map[chan T]struct{}),
		logger:  logger,
	}
}

// Subscribe registers the caller and returns a new channel on which it will publish updates.
func (p *Publisher[T]) Subscribe() <-chan T {
	p.lock.Lock()
	defer p.lock.Unlock()
	ch := make(chan T, 1)
	p.clients[ch] = struct{}{}
	p.logger.Debug("subscriber added", slog.Int("subscribers", len(p.clients)))
	return ch
}

// Unsubscribe removes the registered client/channel.
func (p *Publisher[T]) Unsubscribe(ch <-chan T) {
	p.lock.Lock()
	defer p.lock.Unlock()
	for client := range p.clients {
		if (<-chan T)(client) == ch {
			delete(p.clients, client)
		}
	}
	p.logger.Debug("subscriber removed", slog.Int("subscribers", len(p.clients)))
}

// Publish sends info to all registered clients. A value the client has not yet received is replaced.
func (p *Publisher[T]) Publish(info T) {
	// write lock: the drain and the send must not interleave with another Publish
	p.lock.Lock()
	defer p.lock.Unlock()
	for ch := range p.clients {
		select {
		case ch <- info:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- info
		}
	}
}

// Subscribers returns the current number of subscribers
func (p *Publisher[T]) Subscribers() int {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return len(p.clients)
}
