package widgets

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/wtf-storefront/cart-core/internal/cart/events"
	"github.com/wtf-storefront/cart-core/internal/cart/model"
	"github.com/wtf-storefront/cart-core/internal/dom"
	"github.com/wtf-storefront/cart-core/pkg/money"
)

const openClass = "is-open"

// DrawerElements are the parts of the cart drawer. Any of them may be nil.
type DrawerElements struct {
	Panel    dom.Element
	Count    dom.Element
	Subtotal dom.Element
	Empty    dom.Element
}

// Drawer slides open when a line is added and mirrors the cart totals.
type Drawer struct {
	els      DrawerElements
	currency string
	open     atomic.Bool
}

func NewDrawer(els DrawerElements, currency string) *Drawer {
	return &Drawer{els: els, currency: currency}
}

func (d *Drawer) Attach(bus *events.Bus) func() {
	return detachAll(
		events.Subscribe(bus, events.CartUpdate, "drawer-totals", d.OnUpdate),
		events.Subscribe(bus, events.CartAdd, "drawer-open", d.OnAdd),
	)
}

func (d *Drawer) OnUpdate(ctx context.Context, snap model.CartSnapshot) error {
	currency := snap.Currency
	if currency == "" {
		currency = d.currency
	}
	if dom.Present(d.els.Count) {
		d.els.Count.SetText(strconv.Itoa(snap.ItemCount))
	}
	if dom.Present(d.els.Subtotal) {
		d.els.Subtotal.SetText(money.Format(snap.TotalPrice, currency))
	}
	empty := snap.IsEmpty()
	if dom.Present(d.els.Empty) {
		d.els.Empty.SetHidden(!empty)
	}
	if dom.Present(d.els.Panel) {
		if empty {
			d.els.Panel.AddClass(emptyClass)
		} else {
			d.els.Panel.RemoveClass(emptyClass)
		}
	}
	return nil
}

func (d *Drawer) OnAdd(ctx context.Context, added model.CartAdded) error {
	d.Open()
	return nil
}

func (d *Drawer) Open() {
	d.open.Store(true)
	if dom.Present(d.els.Panel) {
		d.els.Panel.SetHidden(false)
		d.els.Panel.AddClass(openClass)
		d.els.Panel.SetAttr("aria-expanded", "true")
	}
}

func (d *Drawer) Close() {
	d.open.Store(false)
	if dom.Present(d.els.Panel) {
		d.els.Panel.RemoveClass(openClass)
		d.els.Panel.SetAttr("aria-expanded", "false")
		d.els.Panel.SetHidden(true)
	}
}

func (d *Drawer) IsOpen() bool {
	return d.open.Load()
}
