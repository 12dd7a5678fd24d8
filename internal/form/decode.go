// Package form reads product-form submissions.
package form

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/wtf-storefront/cart-core/internal/cart/model"
	errx "github.com/wtf-storefront/cart-core/internal/core/error"
)

// DecodeAddRequest maps the fields of a product form (id, quantity,
// properties[Name], selling_plan) to an AddRequest. Quantity defaults to 1.
// Empty property values are dropped. Private properties (name starting with
// "__") are kept; the storefront hides them from the shopper, not the line.
func DecodeAddRequest(values url.Values) (model.AddRequest, error) {
	var req model.AddRequest

	rawID := strings.TrimSpace(values.Get("id"))
	if rawID == "" {
		return req, errx.Validation("Variant ID is required")
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return req, errx.Validation("variant id %q is not an integer", rawID)
	}
	req.VariantID = id

	req.Quantity = 1
	if rawQty := strings.TrimSpace(values.Get("quantity")); rawQty != "" {
		qty, err := strconv.Atoi(rawQty)
		if err != nil {
			return req, errx.Validation("quantity %q is not an integer", rawQty)
		}
		req.Quantity = qty
	}

	if rawPlan := strings.TrimSpace(values.Get("selling_plan")); rawPlan != "" {
		plan, err := strconv.ParseInt(rawPlan, 10, 64)
		if err != nil {
			return req, errx.Validation("selling plan %q is not an integer", rawPlan)
		}
		req.SellingPlan = plan
	}

	for key, vals := range values {
		name, ok := propertyName(key)
		if !ok || len(vals) == 0 {
			continue
		}
		v := strings.TrimSpace(vals[len(vals)-1])
		if v == "" {
			continue
		}
		if req.Properties == nil {
			req.Properties = map[string]string{}
		}
		req.Properties[name] = v
	}

	if err := req.Validate(); err != nil {
		return req, err
	}
	return req, nil
}

func propertyName(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, "properties[")
	if !ok {
		return "", false
	}
	name, ok := strings.CutSuffix(rest, "]")
	if !ok || name == "" {
		return "", false
	}
	return name, true
}
