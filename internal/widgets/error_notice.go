package widgets

import (
	"context"
	"sync"
	"time"

	"github.com/wtf-storefront/cart-core/internal/cart/events"
	"github.com/wtf-storefront/cart-core/internal/cart/model"
	"github.com/wtf-storefront/cart-core/internal/dom"
)

const defaultNoticeTTL = 5 * time.Second

// ErrorNotice shows the latest cart failure and hides it again after a while.
type ErrorNotice struct {
	el  dom.Element
	ttl time.Duration

	mu    sync.Mutex
	timer *time.Timer
	shown uint64
}

func NewErrorNotice(el dom.Element, cfg model.NoticeConfig) *ErrorNotice {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultNoticeTTL
	}
	return &ErrorNotice{el: el, ttl: ttl}
}

func (n *ErrorNotice) Attach(bus *events.Bus) func() {
	unsubscribe := events.Subscribe(bus, events.CartError, "error-notice", n.OnError)
	return func() {
		unsubscribe()
		n.Stop()
	}
}

func (n *ErrorNotice) OnError(ctx context.Context, failure model.CartFailure) error {
	if !dom.Present(n.el) {
		return nil
	}
	msg := failure.Message
	if msg == "" {
		msg = "Unable to update cart"
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	n.el.SetText(msg)
	n.el.SetHidden(false)
	if n.timer != nil {
		n.timer.Stop()
	}
	n.shown++
	gen := n.shown
	n.timer = time.AfterFunc(n.ttl, func() { n.hide(gen) })
	return nil
}

// Stop cancels a pending auto-hide.
func (n *ErrorNotice) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

// hide only acts for the latest message; an older timer that already fired
// must not hide a newer one.
func (n *ErrorNotice) hide(gen uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if gen != n.shown {
		return
	}
	n.el.SetHidden(true)
	n.timer = nil
}
