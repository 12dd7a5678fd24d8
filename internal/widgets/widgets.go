// Package widgets holds the page fragments that react to cart broadcasts.
// Every widget renders only from the payload it receives and no-ops when its
// element is missing from the page.
package widgets

import (
	"context"

	"github.com/wtf-storefront/cart-core/internal/cart/model"
)

// CartFetcher reads the cart without broadcasting it.
type CartFetcher interface {
	FetchCart(ctx context.Context) (model.CartSnapshot, error)
}

// CartAdder adds a line through the cart bridge.
type CartAdder interface {
	Add(ctx context.Context, req model.AddRequest) (model.AddResult, error)
}

func detachAll(fns ...func()) func() {
	return func() {
		for _, fn := range fns {
			fn()
		}
	}
}
