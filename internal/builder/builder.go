// Package builder holds the pricing state of a build-your-own-drink widget.
package builder

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/wtf-storefront/cart-core/internal/cart/model"
	errx "github.com/wtf-storefront/cart-core/internal/core/error"
	"github.com/wtf-storefront/cart-core/internal/dom"
	logx "github.com/wtf-storefront/cart-core/pkg/logger"
	"github.com/wtf-storefront/cart-core/pkg/money"
)

const defaultMaxPumps = 12

// ErrTooManyFlavors is returned when a new option would exceed the configured
// number of flavor varieties.
var ErrTooManyFlavors = errors.New("cannot add more flavor varieties for this drink")

// Phase is the pricing state of a builder.
type Phase int

const (
	Idle Phase = iota
	Selecting
	Priced
)

func (p Phase) String() string {
	switch p {
	case Selecting:
		return "selecting"
	case Priced:
		return "priced"
	default:
		return "idle"
	}
}

// Adder submits the finished selection; the product form's per-control lock
// sits behind it.
type Adder interface {
	Add(ctx context.Context, req model.AddRequest) (model.AddResult, error)
}

// Display holds the elements a builder writes to. Either may be nil.
type Display struct {
	Price       dom.Element
	PumpSummary dom.Element
}

// Builder is created on widget mount and discarded on unmount.
type Builder struct {
	cfg      model.BuilderConfig
	currency string
	display  Display

	mu        sync.Mutex
	phase     Phase
	variantID int64
	basePrice int64
	size      string
	order     []string
	pumps     map[string]int
	total     int64
}

// New mounts a builder in the Idle phase.
func New(cfg model.BuilderConfig, currency string, display Display) *Builder {
	if cfg.MaxPumps <= 0 {
		cfg.MaxPumps = defaultMaxPumps
	}
	return &Builder{
		cfg:      cfg,
		currency: currency,
		display:  display,
		pumps:    map[string]int{},
	}
}

// SelectBase picks the base drink variant and its price.
func (b *Builder) SelectBase(variantID, price int64, size string) int64 {
	return b.transition(func() {
		b.variantID = variantID
		b.basePrice = price
		b.size = size
	})
}

// ToggleOption turns an option on with one pump, or off entirely.
func (b *Builder) ToggleOption(name string, on bool) (int64, error) {
	if name == "" {
		return b.Total(), errx.Validation("option name is required")
	}
	var err error
	total := b.transition(func() {
		_, selected := b.pumps[name]
		switch {
		case on && selected:
		case on:
			if b.cfg.MaxFlavors > 0 && b.activeLocked() >= b.cfg.MaxFlavors {
				err = ErrTooManyFlavors
				return
			}
			b.pumps[name] = b.clamp(1, 0)
			b.order = append(b.order, name)
		case selected:
			delete(b.pumps, name)
			b.order = slices.DeleteFunc(b.order, func(n string) bool { return n == name })
		}
	})
	return total, err
}

// AdjustPumps moves an option's pump count by delta, clamped to [0, MaxPumps].
// Adjusting an unselected option selects it first.
func (b *Builder) AdjustPumps(name string, delta int) (int, error) {
	if name == "" {
		return 0, errx.Validation("option name is required")
	}
	var (
		count int
		err   error
	)
	delta = b.clamp(delta, -b.cfg.MaxPumps)
	b.transition(func() {
		current, selected := b.pumps[name]
		count = current
		if !selected && delta <= 0 {
			return
		}
		// an option at zero pumps is not an active flavor, so raising it
		// counts against the limit again
		if current == 0 && delta > 0 && b.cfg.MaxFlavors > 0 && b.activeLocked() >= b.cfg.MaxFlavors {
			err = ErrTooManyFlavors
			return
		}
		if !selected {
			b.order = append(b.order, name)
		}
		count = b.clamp(current+delta, 0)
		b.pumps[name] = count
	})
	return count, err
}

// SetPumps sets an option's pump count directly, clamped to [0, MaxPumps].
func (b *Builder) SetPumps(name string, count int) (int, error) {
	count = b.clamp(count, 0)
	b.mu.Lock()
	current := b.pumps[name]
	b.mu.Unlock()
	return b.AdjustPumps(name, count-current)
}

// Reset returns the builder to Idle with nothing selected.
func (b *Builder) Reset() {
	b.mu.Lock()
	b.phase = Idle
	b.variantID, b.basePrice, b.size = 0, 0, ""
	b.order = nil
	b.pumps = map[string]int{}
	b.total = 0
	b.mu.Unlock()
	b.render(0, 0)
}

// Total returns the last computed price in minor units.
func (b *Builder) Total() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// Phase returns the pricing phase.
func (b *Builder) Phase() Phase {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase
}

// Pumps returns the pump count of one option.
func (b *Builder) Pumps(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pumps[name]
}

// Selection returns a copy of the current state.
func (b *Builder) Selection() model.BuilderSelection {
	b.mu.Lock()
	defer b.mu.Unlock()
	opts := make(map[string]int, len(b.pumps))
	for k, v := range b.pumps {
		opts[k] = v
	}
	return model.BuilderSelection{VariantID: b.variantID, BasePrice: b.basePrice, SelectedOptions: opts}
}

// Properties serializes the selection as line-item properties.
func (b *Builder) Properties() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var flavors []string
	for _, name := range b.order {
		n := b.pumps[name]
		if n <= 0 {
			continue
		}
		unit := "pump"
		if n > 1 {
			unit = "pumps"
		}
		flavors = append(flavors, fmt.Sprintf("%s (%d %s)", name, n, unit))
	}
	props := map[string]string{"Flavors": "None"}
	if len(flavors) > 0 {
		props["Flavors"] = strings.Join(flavors, ", ")
	}
	if b.size != "" {
		props["Size"] = b.size
	}
	return props
}

// AddRequest builds the cart request for the current selection.
func (b *Builder) AddRequest(quantity int) (model.AddRequest, error) {
	b.mu.Lock()
	variantID := b.variantID
	b.mu.Unlock()
	if variantID <= 0 {
		return model.AddRequest{}, errx.Validation("choose a drink size before adding to cart")
	}
	req := model.AddRequest{VariantID: variantID, Quantity: quantity, Properties: b.Properties()}
	if err := req.Validate(); err != nil {
		return model.AddRequest{}, err
	}
	return req, nil
}

// AddToCart submits the selection through adder. This is the only network
// call a builder ever triggers.
func (b *Builder) AddToCart(ctx context.Context, adder Adder, quantity int) (model.AddResult, error) {
	req, err := b.AddRequest(quantity)
	if err != nil {
		return model.AddResult{}, err
	}
	logx.Debug().Int64("variant_id", req.VariantID).Int64("price", b.Total()).Msg("builder add to cart")
	return adder.Add(ctx, req)
}

// transition applies change and reprices. It is synchronous and idempotent
// for identical inputs.
func (b *Builder) transition(change func()) int64 {
	b.mu.Lock()
	b.phase = Selecting
	change()
	total, pumps := b.priceLocked()
	b.total = total
	b.phase = Priced
	b.mu.Unlock()

	b.render(total, pumps)
	return total
}

func (b *Builder) priceLocked() (int64, int) {
	pumps := 0
	for _, n := range b.pumps {
		pumps += n
	}
	billable := pumps - b.cfg.IncludedPumps
	if billable < 0 {
		billable = 0
	}
	return b.basePrice + int64(billable)*b.cfg.PumpCost, pumps
}

func (b *Builder) activeLocked() int {
	n := 0
	for _, c := range b.pumps {
		if c > 0 {
			n++
		}
	}
	return n
}

func (b *Builder) clamp(n, floor int) int {
	return max(floor, min(b.cfg.MaxPumps, n))
}

func (b *Builder) render(total int64, pumps int) {
	if dom.Present(b.display.Price) {
		b.display.Price.SetText(money.Format(total, b.currency))
	}
	if dom.Present(b.display.PumpSummary) {
		b.display.PumpSummary.SetText(fmt.Sprintf("Total pumps: %d", pumps))
	}
}
