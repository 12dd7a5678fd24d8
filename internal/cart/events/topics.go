package events

import "github.com/wtf-storefront/cart-core/internal/cart/model"

// Cart topics. The legacy names carry identical payloads for older subscribers
// and fire on every mutation right after their current counterparts.
var (
	CartUpdate = NewTopic[model.CartSnapshot]("cart:update")
	CartAdd    = NewTopic[model.CartAdded]("cart:add")

	LegacyCartUpdate = NewTopic[model.CartSnapshot]("cart:updated")
	LegacyCartAdd    = NewTopic[model.CartAdded]("cart:added")

	CartError = NewTopic[model.CartFailure]("cart:error")
)
