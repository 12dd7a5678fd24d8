// Package analytics buffers tracking calls until a real analytics backend is
// available, then replays them in order.
package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	logx "github.com/wtf-storefront/cart-core/pkg/logger"
)

// Event names sent by the storefront.
const (
	EventViewItem  = "view_item"
	EventCartView  = "cart_view"
	EventAddToCart = "add_to_cart"
	EventPurchase  = "purchase"
)

// Item is one product line in an analytics payload.
type Item struct {
	ItemID      int64           `json:"item_id"`
	ItemName    string          `json:"item_name"`
	ItemVariant string          `json:"item_variant,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// Params is the payload of a tracked event. Money is in major units.
type Params struct {
	Currency string          `json:"currency"`
	Value    decimal.Decimal `json:"value"`
	Items    []Item          `json:"items"`
}

// Backend is a connected analytics implementation.
type Backend interface {
	Track(event string, params Params) error
}

// Tracker is what widgets depend on.
type Tracker interface {
	Track(event string, params Params)
}

// State tags which variant the client is in.
type State int

const (
	// Buffering queues every call until a backend is adopted.
	Buffering State = iota
	// Connected forwards calls straight to the backend.
	Connected
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	default:
		return "buffering"
	}
}

type call struct {
	event  string
	params Params
}

// Client starts Buffering and becomes Connected once, on Adopt.
type Client struct {
	mu      sync.Mutex
	state   State
	queue   []call
	backend Backend
}

// NewClient returns a buffering client.
func NewClient() *Client {
	return &Client{state: Buffering}
}

// Track queues the call while buffering, or forwards it when connected.
func (c *Client) Track(event string, params Params) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Buffering {
		c.queue = append(c.queue, call{event: event, params: params})
		return
	}
	c.send(call{event: event, params: params})
}

// Adopt connects backend and replays queued calls FIFO. It reports false when
// the client was already connected or backend is nil.
func (c *Client) Adopt(backend Backend) bool {
	if backend == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Connected {
		return false
	}
	c.backend = backend
	c.state = Connected
	queued := c.queue
	c.queue = nil
	for _, q := range queued {
		c.send(q)
	}
	logx.Info().Int("replayed", len(queued)).Msg("analytics backend adopted")
	return true
}

// send must be called with mu held; ordering depends on it.
func (c *Client) send(q call) {
	if err := c.backend.Track(q.event, q.params); err != nil {
		logx.Warn().Err(err).Str("event", q.event).Msg("analytics method failed")
	}
}

// State returns the current variant.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending reports how many calls wait for a backend.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// ===================================
// Adoption
// ===================================

// Resolver looks up a backend that may load after the client was created.
type Resolver func() (Backend, bool)

// AdoptPolicy bounds how long AwaitBackend keeps looking.
type AdoptPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// AwaitBackend polls resolve every Interval, up to MaxAttempts times, and adopts
// the first backend it returns. Giving up is silent: the client stays buffering
// and AwaitBackend returns false.
func (c *Client) AwaitBackend(ctx context.Context, resolve Resolver, policy AdoptPolicy) bool {
	if resolve == nil || policy.MaxAttempts <= 0 {
		return false
	}
	interval := policy.Interval
	if interval <= 0 {
		interval = 125 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
		if c.State() == Connected {
			return true
		}
		if b, ok := resolve(); ok && b != nil {
			c.Adopt(b)
			return true
		}
		if attempt >= policy.MaxAttempts {
			logx.Debug().Int("attempts", attempt).Msg("analytics backend never loaded; staying buffered")
			return false
		}
	}
}

// ===================================
// Log backend
// ===================================

// LogBackend writes every event to the structured log.
type LogBackend struct{}

func (LogBackend) Track(event string, params Params) error {
	logx.Info().Str("event", event).Str("currency", params.Currency).
		Str("value", params.Value.StringFixed(2)).Int("items", len(params.Items)).Msg("analytics")
	return nil
}
