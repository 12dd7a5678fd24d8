package widgets

import (
	"context"

	"github.com/wtf-storefront/cart-core/internal/analytics"
	"github.com/wtf-storefront/cart-core/internal/cart/events"
	"github.com/wtf-storefront/cart-core/internal/cart/model"
	"github.com/wtf-storefront/cart-core/pkg/money"
)

// AnalyticsBridge forwards cart broadcasts to the analytics client.
type AnalyticsBridge struct {
	tracker  analytics.Tracker
	currency string
}

func NewAnalyticsBridge(tracker analytics.Tracker, currency string) *AnalyticsBridge {
	return &AnalyticsBridge{tracker: tracker, currency: currency}
}

func (a *AnalyticsBridge) Attach(bus *events.Bus) func() {
	return detachAll(
		events.Subscribe(bus, events.CartUpdate, "analytics-cart-view", a.OnUpdate),
		events.Subscribe(bus, events.CartAdd, "analytics-add-to-cart", a.OnAdd),
	)
}

func (a *AnalyticsBridge) OnUpdate(ctx context.Context, snap model.CartSnapshot) error {
	items := make([]analytics.Item, 0, len(snap.Items))
	for _, li := range snap.Items {
		items = append(items, analyticsItem(li))
	}
	a.tracker.Track(analytics.EventCartView, analytics.Params{
		Currency: a.currencyOf(snap),
		Value:    money.Major(snap.TotalPrice),
		Items:    items,
	})
	return nil
}

func (a *AnalyticsBridge) OnAdd(ctx context.Context, added model.CartAdded) error {
	a.tracker.Track(analytics.EventAddToCart, analytics.Params{
		Currency: a.currencyOf(added.Cart),
		Value:    money.Major(added.Item.Price),
		Items:    []analytics.Item{analyticsItem(added.Item)},
	})
	return nil
}

func (a *AnalyticsBridge) currencyOf(snap model.CartSnapshot) string {
	if snap.Currency != "" {
		return snap.Currency
	}
	return a.currency
}

func analyticsItem(li model.LineItem) analytics.Item {
	qty := li.Quantity
	if qty <= 0 {
		qty = 1
	}
	return analytics.Item{
		ItemID:      li.VariantID,
		ItemName:    li.ProductTitle,
		ItemVariant: li.VariantTitle,
		Price:       money.Major(li.Price),
		Quantity:    qty,
	}
}
