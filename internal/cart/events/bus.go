// Package events is the in-process publish/subscribe layer that fans cart state
// out to independent widgets.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	errx "github.com/wtf-storefront/cart-core/internal/core/error"
	logx "github.com/wtf-storefront/cart-core/pkg/logger"
)

// Topic binds a broadcast name to its payload type.
type Topic[T any] struct {
	name string
}

// NewTopic declares a typed topic.
func NewTopic[T any](name string) Topic[T] {
	return Topic[T]{name: name}
}

// Name returns the wire name of the topic (e.g. "cart:update").
func (t Topic[T]) Name() string {
	return t.name
}

// Listener reacts to one payload. Returning an error or panicking is reported
// as a listener failure and never affects sibling listeners.
type Listener[T any] func(ctx context.Context, payload T) error

type subscriber struct {
	id   uint64
	name string
	call func(ctx context.Context, payload any) error
}

// Bus delivers payloads synchronously, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]subscriber
	nextID atomic.Uint64

	published atomic.Uint64
	failures  atomic.Uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscriber)}
}

// Subscribe registers fn under topic and returns a function that removes it.
// name identifies the listener in logs.
func Subscribe[T any](b *Bus, topic Topic[T], name string, fn Listener[T]) (unsubscribe func()) {
	id := b.nextID.Add(1)
	sub := subscriber{
		id:   id,
		name: name,
		call: func(ctx context.Context, payload any) error {
			return fn(ctx, payload.(T))
		},
	}

	b.mu.Lock()
	b.subs[topic.name] = append(b.subs[topic.name], sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic.name, id) })
	}
}

// Publish hands payload to every listener of topic before returning.
// The returned error joins every listener failure; they have already been logged.
func Publish[T any](ctx context.Context, b *Bus, topic Topic[T], payload T) error {
	b.mu.RLock()
	subs := append([]subscriber(nil), b.subs[topic.name]...)
	b.mu.RUnlock()

	b.published.Add(1)
	logx.Debug().Str("topic", topic.name).Int("listeners", len(subs)).Msg("publish")

	var errs []error
	for _, sub := range subs {
		if err := deliver(ctx, topic.name, sub, payload); err != nil {
			b.failures.Add(1)
			logx.Error().Err(err).Str("topic", topic.name).Str("listener", sub.name).Msg("listener failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func deliver(ctx context.Context, topic string, sub subscriber, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errx.Listener(topic, sub.name, fmt.Errorf("panic: %v", r))
		}
	}()
	if cerr := sub.call(ctx, payload); cerr != nil {
		return errx.Listener(topic, sub.name, cerr)
	}
	return nil
}

func (b *Bus) remove(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[topic]
	for i, s := range subs {
		if s.id == id {
			b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
}

// Listeners reports how many listeners are registered on the named topic.
func (b *Bus) Listeners(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Stats holds bus counters.
type Stats struct {
	Published uint64
	Failures  uint64
	Topics    int
}

// Stats returns current counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	topics := len(b.subs)
	b.mu.RUnlock()
	return Stats{
		Published: b.published.Load(),
		Failures:  b.failures.Load(),
		Topics:    topics,
	}
}
