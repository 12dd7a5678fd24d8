package widgets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wtf-storefront/cart-core/internal/cart/events"
	"github.com/wtf-storefront/cart-core/internal/cart/model"
	"github.com/wtf-storefront/cart-core/internal/dom"
)

type stubFetcher struct {
	snap model.CartSnapshot
	err  error
}

func (s stubFetcher) FetchCart(ctx context.Context) (model.CartSnapshot, error) {
	return s.snap, s.err
}

func TestBadgeInitialRender(t *testing.T) {
	el := dom.NewNode("cart-count", " 3 ")
	b := NewBadge(el)

	assert.Equal(t, 3, b.Count())
	assert.Equal(t, "3", el.Text())
	count, _ := el.Attr("data-cart-count")
	assert.Equal(t, "3", count)
	assert.False(t, el.HasClass("is-empty"))

	blank := dom.NewNode("cart-count", "")
	NewBadge(blank)
	assert.Equal(t, "0", blank.Text())
	assert.True(t, blank.HasClass("is-empty"))
	hidden, ok := blank.Attr("aria-hidden")
	require.True(t, ok)
	assert.Equal(t, "true", hidden)
}

func TestBadgeFollowsUpdates(t *testing.T) {
	bus := events.NewBus()
	el := dom.NewNode("cart-count", "0")
	detach := NewBadge(el).Attach(bus)
	defer detach()

	require.NoError(t, events.Publish(context.Background(), bus, events.CartUpdate, model.CartSnapshot{ItemCount: 2}))
	assert.Equal(t, "2", el.Text())
	assert.False(t, el.HasClass("is-empty"))
	_, ok := el.Attr("aria-hidden")
	assert.False(t, ok)

	require.NoError(t, events.Publish(context.Background(), bus, events.CartUpdate, model.CartSnapshot{}))
	assert.Equal(t, "0", el.Text())
	assert.True(t, el.HasClass("is-empty"))
}

func TestBadgeWithoutElement(t *testing.T) {
	var missing *dom.Node
	assert.NotPanics(t, func() {
		b := NewBadge(missing)
		assert.NoError(t, b.OnUpdate(context.Background(), model.CartSnapshot{ItemCount: 4}))
		assert.Equal(t, 4, b.Count())

		NewBadge(nil).Render(1)
	})
}

func TestBadgeSync(t *testing.T) {
	el := dom.NewNode("cart-count", "1")
	b := NewBadge(el)

	b.Sync(context.Background(), stubFetcher{err: errors.New("offline")})
	assert.Equal(t, "1", el.Text(), "failed sync keeps the badge")

	b.Sync(context.Background(), stubFetcher{snap: model.CartSnapshot{ItemCount: 5}})
	assert.Equal(t, "5", el.Text())
}
