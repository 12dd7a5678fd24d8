package model

import (
	"sort"

	errx "github.com/wtf-storefront/cart-core/internal/core/error"
)

// ================ Cart ================

// CartSnapshot is the authoritative cart returned by the storefront.
// It is always replaced wholesale, never patched locally.
type CartSnapshot struct {
	Token      string            `json:"token,omitempty"`
	Note       string            `json:"note,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	ItemCount  int               `json:"item_count"`
	TotalPrice int64             `json:"total_price"`
	Currency   string            `json:"currency,omitempty"`
	Items      []LineItem        `json:"items"`
}

// LineItem is one purchasable entry within a cart.
type LineItem struct {
	Key          string            `json:"key,omitempty"`
	VariantID    int64             `json:"variant_id"`
	ProductTitle string            `json:"product_title"`
	VariantTitle string            `json:"variant_title,omitempty"`
	Price        int64             `json:"price"`
	LinePrice    int64             `json:"line_price,omitempty"`
	Quantity     int               `json:"quantity"`
	Properties   map[string]string `json:"properties,omitempty"`
}

// IsEmpty reports whether the cart holds no items.
func (c CartSnapshot) IsEmpty() bool {
	return c.ItemCount == 0
}

// QuantityTotal sums the quantity of every line.
func (c CartSnapshot) QuantityTotal() int {
	total := 0
	for _, it := range c.Items {
		total += it.Quantity
	}
	return total
}

// Consistent reports whether ItemCount equals the sum of line quantities.
func (c CartSnapshot) Consistent() bool {
	return c.ItemCount == c.QuantityTotal()
}

// Validate checks the structural bounds of a server response.
func (c CartSnapshot) Validate() error {
	if c.ItemCount < 0 {
		return errx.Validation("item_count must be >= 0, got %d", c.ItemCount)
	}
	if c.TotalPrice < 0 {
		return errx.Validation("total_price must be >= 0, got %d", c.TotalPrice)
	}
	for i, it := range c.Items {
		if it.Quantity < 1 {
			return errx.Validation("items[%d].quantity must be >= 1, got %d", i, it.Quantity)
		}
	}
	return nil
}

// Clone returns a deep copy so subscribers cannot mutate each other's payload.
func (c CartSnapshot) Clone() CartSnapshot {
	out := c
	out.Attributes = cloneMap(c.Attributes)
	if c.Items != nil {
		out.Items = make([]LineItem, len(c.Items))
		for i, it := range c.Items {
			out.Items[i] = it.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the line item.
func (l LineItem) Clone() LineItem {
	out := l
	out.Properties = cloneMap(l.Properties)
	return out
}

// ================ Requests ================

// AddRequest asks the storefront to add a variant to the cart.
type AddRequest struct {
	VariantID   int64             `json:"id"`
	Quantity    int               `json:"quantity"`
	Properties  map[string]string `json:"properties,omitempty"`
	SellingPlan int64             `json:"selling_plan,omitempty"`
}

// Validate fails fast before anything is sent over the network.
func (r AddRequest) Validate() error {
	if r.VariantID <= 0 {
		return errx.Validation("variant id must be a positive integer, got %d", r.VariantID)
	}
	if r.Quantity <= 0 {
		return errx.Validation("quantity must be a positive integer, got %d", r.Quantity)
	}
	if r.SellingPlan < 0 {
		return errx.Validation("selling plan must not be negative, got %d", r.SellingPlan)
	}
	return nil
}

// PropertyKeys returns the non-empty property keys in sorted order.
func (r AddRequest) PropertyKeys() []string {
	keys := make([]string, 0, len(r.Properties))
	for k, v := range r.Properties {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AddResult is the single logical result of an add: the new line and the fresh cart.
type AddResult struct {
	Item LineItem
	Cart CartSnapshot
}

// ================ Broadcast payloads ================

// CartAdded is the payload of the cart:add topic.
type CartAdded struct {
	Item LineItem     `json:"item"`
	Cart CartSnapshot `json:"cart"`
}

// CartFailure is the payload of the cart:error topic.
type CartFailure struct {
	Operation string    `json:"operation"`
	Kind      errx.Kind `json:"kind"`
	Message   string    `json:"message"`
}

// ================ Builder ================

// BuilderSelection is the pricing state of one product-builder instance.
type BuilderSelection struct {
	VariantID       int64          `json:"variant_id"`
	BasePrice       int64          `json:"base_price"`
	SelectedOptions map[string]int `json:"selected_options"`
}

func cloneMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
