package builder

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wtf-storefront/cart-core/internal/cart/model"
	errx "github.com/wtf-storefront/cart-core/internal/core/error"
	"github.com/wtf-storefront/cart-core/internal/dom"
)

func newBuilder(cfg model.BuilderConfig) (*Builder, *dom.Node, *dom.Node) {
	price := dom.NewNode("builder-price", "")
	summary := dom.NewNode("pump-count-summary", "")
	return New(cfg, "USD", Display{Price: price, PumpSummary: summary}), price, summary
}

func TestPhases(t *testing.T) {
	b, _, _ := newBuilder(model.BuilderConfig{PumpCost: 50})
	assert.Equal(t, Idle, b.Phase())

	b.SelectBase(221, 900, "Regular")
	assert.Equal(t, Priced, b.Phase())

	b.Reset()
	assert.Equal(t, Idle, b.Phase())
	assert.Equal(t, int64(0), b.Total())
}

func TestPriceIsBasePlusPumps(t *testing.T) {
	b, price, summary := newBuilder(model.BuilderConfig{PumpCost: 50})

	b.SelectBase(221, 900, "Regular")
	_, err := b.ToggleOption("Mango", true)
	require.NoError(t, err)
	_, err = b.SetPumps("Mango", 3)
	require.NoError(t, err)
	_, err = b.AdjustPumps("Vanilla", 2)
	require.NoError(t, err)

	assert.Equal(t, int64(900+5*50), b.Total())
	assert.Equal(t, "$11.50", price.Text())
	assert.Equal(t, "Total pumps: 5", summary.Text())
}

func TestPumpClamp(t *testing.T) {
	b, _, _ := newBuilder(model.BuilderConfig{PumpCost: 50})
	b.SelectBase(221, 900, "Regular")

	n, err := b.AdjustPumps("Mango", 20)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.Equal(t, int64(900+12*50), b.Total())

	n, _ = b.AdjustPumps("Mango", 1)
	assert.Equal(t, 12, n, "stays at the ceiling")

	n, _ = b.AdjustPumps("Mango", -30)
	assert.Equal(t, 0, n)
	assert.Equal(t, int64(900), b.Total())

	n, _ = b.SetPumps("Mango", -4)
	assert.Equal(t, 0, n)
	n, _ = b.SetPumps("Mango", 99)
	assert.Equal(t, 12, n)
}

func TestPumpClampExtremeInputs(t *testing.T) {
	b, _, _ := newBuilder(model.BuilderConfig{PumpCost: 50})
	b.SelectBase(221, 900, "Regular")

	_, err := b.SetPumps("Mango", 1)
	require.NoError(t, err)
	n, err := b.AdjustPumps("Mango", math.MaxInt)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.Equal(t, int64(900+12*50), b.Total())

	n, _ = b.AdjustPumps("Mango", math.MinInt)
	assert.Equal(t, 0, n)

	n, _ = b.SetPumps("Lime", math.MaxInt)
	assert.Equal(t, 12, n)
	n, _ = b.SetPumps("Lime", math.MinInt)
	assert.Equal(t, 0, n)
	assert.Equal(t, int64(900), b.Total())
}

func TestTransitionsAreIdempotent(t *testing.T) {
	b, _, _ := newBuilder(model.BuilderConfig{PumpCost: 50})
	b.SelectBase(222, 1100, "Large")

	first, _ := b.SetPumps("Coconut", 4)
	total := b.Total()
	second, _ := b.SetPumps("Coconut", 4)
	assert.Equal(t, first, second)
	assert.Equal(t, total, b.Total())

	on1, _ := b.ToggleOption("Coconut", true)
	on2, _ := b.ToggleOption("Coconut", true)
	assert.Equal(t, on1, on2)
	assert.Equal(t, 4, b.Pumps("Coconut"))
}

func TestToggleOff(t *testing.T) {
	b, _, _ := newBuilder(model.BuilderConfig{PumpCost: 50})
	b.SelectBase(221, 900, "Regular")
	b.SetPumps("Mango", 2)

	total, err := b.ToggleOption("Mango", false)
	require.NoError(t, err)
	assert.Equal(t, int64(900), total)
	assert.NotContains(t, b.Selection().SelectedOptions, "Mango")
}

func TestIncludedPumps(t *testing.T) {
	b, _, _ := newBuilder(model.BuilderConfig{PumpCost: 75, IncludedPumps: 2})
	b.SelectBase(221, 900, "Regular")

	b.SetPumps("Mango", 2)
	assert.Equal(t, int64(900), b.Total())
	b.SetPumps("Lime", 1)
	assert.Equal(t, int64(975), b.Total())
}

func TestMaxFlavors(t *testing.T) {
	b, _, _ := newBuilder(model.BuilderConfig{PumpCost: 50, MaxFlavors: 2})
	b.SelectBase(221, 900, "Regular")

	_, err := b.ToggleOption("Mango", true)
	require.NoError(t, err)
	_, err = b.ToggleOption("Lime", true)
	require.NoError(t, err)
	_, err = b.ToggleOption("Berry", true)
	assert.ErrorIs(t, err, ErrTooManyFlavors)
	_, err = b.AdjustPumps("Berry", 1)
	assert.ErrorIs(t, err, ErrTooManyFlavors)

	n, err := b.AdjustPumps("Mango", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMaxFlavorsCountsReraisedOptions(t *testing.T) {
	b, _, _ := newBuilder(model.BuilderConfig{PumpCost: 50, MaxFlavors: 1})
	b.SelectBase(221, 900, "Regular")

	_, err := b.AdjustPumps("Mango", 1)
	require.NoError(t, err)
	_, err = b.AdjustPumps("Mango", -1)
	require.NoError(t, err)
	_, err = b.AdjustPumps("Coconut", 1)
	require.NoError(t, err)

	n, err := b.AdjustPumps("Mango", 1)
	assert.ErrorIs(t, err, ErrTooManyFlavors)
	assert.Equal(t, 0, n)
	_, err = b.SetPumps("Mango", 3)
	assert.ErrorIs(t, err, ErrTooManyFlavors)

	assert.Equal(t, "Coconut (1 pump)", b.Properties()["Flavors"])
	assert.Equal(t, int64(950), b.Total())
}

func TestPropertiesAndAddRequest(t *testing.T) {
	b, _, _ := newBuilder(model.BuilderConfig{PumpCost: 50})

	_, err := b.AddRequest(1)
	assert.ErrorIs(t, err, errx.ErrValidation, "no base selected")

	b.SelectBase(223, 4500, "Gallon")
	assert.Equal(t, map[string]string{"Flavors": "None", "Size": "Gallon"}, b.Properties())

	b.SetPumps("Mango", 2)
	b.SetPumps("Lime", 1)
	b.SetPumps("Berry", 0)

	req, err := b.AddRequest(2)
	require.NoError(t, err)
	assert.Equal(t, int64(223), req.VariantID)
	assert.Equal(t, 2, req.Quantity)
	assert.Equal(t, "Mango (2 pumps), Lime (1 pump)", req.Properties["Flavors"])

	_, err = b.AddRequest(0)
	assert.ErrorIs(t, err, errx.ErrValidation)
}

type stubAdder struct {
	reqs []model.AddRequest
}

func (s *stubAdder) Add(ctx context.Context, req model.AddRequest) (model.AddResult, error) {
	s.reqs = append(s.reqs, req)
	return model.AddResult{Item: model.LineItem{VariantID: req.VariantID, Quantity: req.Quantity}}, nil
}

func TestAddToCartDelegatesOnce(t *testing.T) {
	b, _, _ := newBuilder(model.BuilderConfig{PumpCost: 50})
	b.SelectBase(221, 900, "Regular")
	b.SetPumps("Mango", 1)

	adder := &stubAdder{}
	res, err := b.AddToCart(context.Background(), adder, 1)
	require.NoError(t, err)

	require.Len(t, adder.reqs, 1)
	assert.Equal(t, "Mango (1 pump)", adder.reqs[0].Properties["Flavors"])
	assert.Equal(t, int64(221), res.Item.VariantID)
}

func TestMissingDisplayIsNoop(t *testing.T) {
	b := New(model.BuilderConfig{PumpCost: 50}, "USD", Display{})
	assert.NotPanics(t, func() {
		b.SelectBase(221, 900, "Regular")
		b.SetPumps("Mango", 3)
	})
	assert.Equal(t, int64(1050), b.Total())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "selecting", Selecting.String())
	assert.Equal(t, "priced", Priced.String())
}
