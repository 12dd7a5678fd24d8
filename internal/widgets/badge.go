package widgets

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/wtf-storefront/cart-core/internal/cart/events"
	"github.com/wtf-storefront/cart-core/internal/cart/model"
	"github.com/wtf-storefront/cart-core/internal/dom"
	logx "github.com/wtf-storefront/cart-core/pkg/logger"
)

const emptyClass = "is-empty"

// Badge is the header item counter.
type Badge struct {
	el dom.Element

	mu    sync.Mutex
	count int
}

// NewBadge renders the count already present in the server-rendered text.
func NewBadge(el dom.Element) *Badge {
	b := &Badge{el: el}
	initial := 0
	if dom.Present(el) {
		if n, err := strconv.Atoi(strings.TrimSpace(el.Text())); err == nil {
			initial = n
		}
	}
	b.Render(initial)
	return b
}

func (b *Badge) Attach(bus *events.Bus) func() {
	return events.Subscribe(bus, events.CartUpdate, "badge", b.OnUpdate)
}

func (b *Badge) OnUpdate(ctx context.Context, snap model.CartSnapshot) error {
	b.Render(snap.ItemCount)
	return nil
}

// Sync re-reads the cart, e.g. when the shopper returns to the tab. Failures
// leave the badge as it was.
func (b *Badge) Sync(ctx context.Context, fetcher CartFetcher) {
	snap, err := fetcher.FetchCart(ctx)
	if err != nil {
		logx.Debug().Err(err).Msg("badge sync skipped")
		return
	}
	b.Render(snap.ItemCount)
}

func (b *Badge) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *Badge) Render(count int) {
	if count < 0 {
		count = 0
	}
	b.mu.Lock()
	b.count = count
	b.mu.Unlock()

	if !dom.Present(b.el) {
		return
	}
	text := strconv.Itoa(count)
	b.el.SetText(text)
	b.el.SetAttr("data-cart-count", text)
	if count == 0 {
		b.el.AddClass(emptyClass)
		b.el.SetAttr("aria-hidden", "true")
		return
	}
	b.el.RemoveClass(emptyClass)
	b.el.RemoveAttr("aria-hidden")
}
