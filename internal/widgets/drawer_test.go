package widgets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wtf-storefront/cart-core/internal/cart/events"
	"github.com/wtf-storefront/cart-core/internal/cart/model"
	"github.com/wtf-storefront/cart-core/internal/dom"
)

func newDrawer() (*Drawer, DrawerElements) {
	els := DrawerElements{
		Panel:    dom.NewNode("cart-drawer", ""),
		Count:    dom.NewNode("drawer-count", ""),
		Subtotal: dom.NewNode("drawer-subtotal", ""),
		Empty:    dom.NewNode("drawer-empty", ""),
	}
	els.Panel.SetHidden(true)
	return NewDrawer(els, "USD"), els
}

func TestDrawerOpensOnAdd(t *testing.T) {
	bus := events.NewBus()
	d, els := newDrawer()
	defer d.Attach(bus)()

	ctx := context.Background()
	require.NoError(t, events.Publish(ctx, bus, events.CartUpdate, model.CartSnapshot{ItemCount: 1, TotalPrice: 800}))
	assert.False(t, d.IsOpen(), "updates alone do not open the drawer")

	require.NoError(t, events.Publish(ctx, bus, events.CartAdd, model.CartAdded{}))
	assert.True(t, d.IsOpen())
	assert.False(t, els.Panel.Hidden())
	assert.True(t, els.Panel.HasClass("is-open"))

	d.Close()
	assert.False(t, d.IsOpen())
	assert.True(t, els.Panel.Hidden())
}

func TestDrawerTotals(t *testing.T) {
	d, els := newDrawer()
	ctx := context.Background()

	require.NoError(t, d.OnUpdate(ctx, model.CartSnapshot{ItemCount: 2, TotalPrice: 1600}))
	assert.Equal(t, "2", els.Count.Text())
	assert.Equal(t, "$16.00", els.Subtotal.Text())
	assert.True(t, els.Empty.Hidden())
	assert.False(t, els.Panel.HasClass("is-empty"))

	require.NoError(t, d.OnUpdate(ctx, model.CartSnapshot{Currency: "EUR"}))
	assert.Equal(t, "€0.00", els.Subtotal.Text())
	assert.False(t, els.Empty.Hidden())
	assert.True(t, els.Panel.HasClass("is-empty"))
}

func TestDrawerWithoutElements(t *testing.T) {
	d := NewDrawer(DrawerElements{}, "USD")
	assert.NotPanics(t, func() {
		_ = d.OnUpdate(context.Background(), model.CartSnapshot{ItemCount: 1})
		_ = d.OnAdd(context.Background(), model.CartAdded{})
		d.Close()
	})
}
