package widgets

import (
	"context"
	"errors"
	"net/url"
	"sync/atomic"

	"github.com/wtf-storefront/cart-core/internal/cart/model"
	errx "github.com/wtf-storefront/cart-core/internal/core/error"
	"github.com/wtf-storefront/cart-core/internal/dom"
	"github.com/wtf-storefront/cart-core/internal/form"
	logx "github.com/wtf-storefront/cart-core/pkg/logger"
)

// ErrSubmitInFlight is returned when the form's own add is still running.
var ErrSubmitInFlight = errors.New("add to cart already in progress")

const defaultBusyLabel = "Adding..."

// ProductFormElements are the controls of one product form.
type ProductFormElements struct {
	Button dom.Element
	Error  dom.Element
}

// ProductForm submits add-to-cart requests with one call in flight at a time.
// The lock belongs to this form only; other forms submit independently.
type ProductForm struct {
	cart      CartAdder
	els       ProductFormElements
	busyLabel string

	inFlight atomic.Bool
}

func NewProductForm(cart CartAdder, els ProductFormElements) *ProductForm {
	return &ProductForm{cart: cart, els: els, busyLabel: defaultBusyLabel}
}

// Submit decodes a form post and adds it to the cart.
func (f *ProductForm) Submit(ctx context.Context, values url.Values) (model.AddResult, error) {
	req, err := form.DecodeAddRequest(values)
	if err != nil {
		f.showError(err)
		return model.AddResult{}, err
	}
	return f.Add(ctx, req)
}

// Add runs one add while the button is disabled. It satisfies builder.Adder.
func (f *ProductForm) Add(ctx context.Context, req model.AddRequest) (model.AddResult, error) {
	if !f.inFlight.CompareAndSwap(false, true) {
		return model.AddResult{}, ErrSubmitInFlight
	}
	defer f.inFlight.Store(false)

	restore := f.lock()
	defer restore()

	res, err := f.cart.Add(ctx, req)
	if err != nil {
		logx.Debug().Err(err).Int64("variant_id", req.VariantID).Msg("product form add failed")
		f.showError(err)
		return model.AddResult{}, err
	}
	return res, nil
}

func (f *ProductForm) InFlight() bool {
	return f.inFlight.Load()
}

func (f *ProductForm) lock() func() {
	f.clearError()
	if !dom.Present(f.els.Button) {
		return func() {}
	}
	label := f.els.Button.Text()
	f.els.Button.SetDisabled(true)
	f.els.Button.SetAttr("aria-busy", "true")
	f.els.Button.SetText(f.busyLabel)
	return func() {
		f.els.Button.SetText(label)
		f.els.Button.RemoveAttr("aria-busy")
		f.els.Button.SetDisabled(false)
	}
}

func (f *ProductForm) showError(err error) {
	if !dom.Present(f.els.Error) {
		return
	}
	f.els.Error.SetText(errx.UserMessage(err))
	f.els.Error.SetHidden(false)
}

func (f *ProductForm) clearError() {
	if !dom.Present(f.els.Error) {
		return
	}
	f.els.Error.SetText("")
	f.els.Error.SetHidden(true)
}
