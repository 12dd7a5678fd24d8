package analytics

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeBackend struct {
	mu     sync.Mutex
	events []string
	failOn string
}

func (f *fakeBackend) Track(event string, params Params) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	if event == f.failOn {
		return errors.New("sdk rejected event")
	}
	return nil
}

func (f *fakeBackend) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func TestBufferingQueuesUntilAdopt(t *testing.T) {
	c := NewClient()
	assert.Equal(t, Buffering, c.State())

	c.Track(EventViewItem, Params{})
	c.Track(EventAddToCart, Params{Value: decimal.NewFromInt(8)})
	c.Track(EventCartView, Params{})
	assert.Equal(t, 3, c.Pending())

	backend := &fakeBackend{}
	require.True(t, c.Adopt(backend))

	assert.Equal(t, Connected, c.State())
	assert.Equal(t, 0, c.Pending())
	assert.Equal(t, []string{EventViewItem, EventAddToCart, EventCartView}, backend.seen())

	c.Track(EventPurchase, Params{})
	assert.Equal(t, []string{EventViewItem, EventAddToCart, EventCartView, EventPurchase}, backend.seen())
}

func TestReplayContinuesPastFailures(t *testing.T) {
	c := NewClient()
	c.Track(EventViewItem, Params{})
	c.Track(EventAddToCart, Params{})
	c.Track(EventCartView, Params{})

	backend := &fakeBackend{failOn: EventAddToCart}
	c.Adopt(backend)

	assert.Equal(t, []string{EventViewItem, EventAddToCart, EventCartView}, backend.seen())
}

func TestAdoptOnlyOnce(t *testing.T) {
	c := NewClient()
	first, second := &fakeBackend{}, &fakeBackend{}

	assert.False(t, c.Adopt(nil))
	assert.True(t, c.Adopt(first))
	assert.False(t, c.Adopt(second))

	c.Track(EventCartView, Params{})
	assert.Len(t, first.seen(), 1)
	assert.Empty(t, second.seen())
}

func TestAwaitBackendAdoptsWhenResolved(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewClient()
	c.Track(EventCartView, Params{})

	backend := &fakeBackend{}
	var attempts atomic.Int32
	resolve := func() (Backend, bool) {
		if attempts.Add(1) < 3 {
			return nil, false
		}
		return backend, true
	}

	ok := c.AwaitBackend(context.Background(), resolve, AdoptPolicy{Interval: time.Millisecond, MaxAttempts: 40})
	require.True(t, ok)
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, Connected, c.State())
	assert.Equal(t, []string{EventCartView}, backend.seen())
}

func TestAwaitBackendGivesUpSilently(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewClient()
	c.Track(EventCartView, Params{})

	var attempts atomic.Int32
	resolve := func() (Backend, bool) {
		attempts.Add(1)
		return nil, false
	}

	ok := c.AwaitBackend(context.Background(), resolve, AdoptPolicy{Interval: time.Millisecond, MaxAttempts: 5})
	assert.False(t, ok)
	assert.Equal(t, int32(5), attempts.Load())
	assert.Equal(t, Buffering, c.State())
	assert.Equal(t, 1, c.Pending())
}

func TestAwaitBackendStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewClient()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool)
	go func() {
		done <- c.AwaitBackend(ctx, func() (Backend, bool) { return nil, false },
			AdoptPolicy{Interval: time.Hour, MaxAttempts: 40})
	}()
	cancel()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("AwaitBackend did not return after cancel")
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "buffering", Buffering.String())
	assert.Equal(t, "connected", Connected.String())
}

func TestLogBackend(t *testing.T) {
	assert.NoError(t, LogBackend{}.Track(EventCartView, Params{Currency: "USD", Value: decimal.NewFromInt(16)}))
}
