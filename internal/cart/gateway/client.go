package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/wtf-storefront/cart-core/internal/cart/model"
	errx "github.com/wtf-storefront/cart-core/internal/core/error"
	logx "github.com/wtf-storefront/cart-core/pkg/logger"
)

const (
	pathCart   = "cart.js"
	pathAdd    = "cart/add.js"
	pathChange = "cart/change.js"
	pathUpdate = "cart/update.js"
	pathClear  = "cart/clear.js"

	defaultTimeout = 5 * time.Second
	maxErrorBody   = 64 << 10
)

// Generic messages used when the server does not describe the failure.
const (
	msgFetch      = "Failed to fetch cart"
	msgAdd        = "Failed to add item to cart"
	msgChange     = "Failed to update cart"
	msgClear      = "Failed to clear cart"
	msgAttributes = "Failed to update cart attributes"
	msgNote       = "Failed to update cart note"
)

// Client talks to the storefront's cart endpoints.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	reads   singleflight.Group
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is left untouched;
// the per-call deadline still applies.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New builds a client rooted at cfg.BaseURL.
func New(cfg model.GatewayConfig, opts ...Option) (*Client, error) {
	raw := cfg.BaseURL
	if raw == "" {
		raw = "/"
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse cart base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("cart base url %q must be absolute", cfg.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		base:    base,
		http:    &http.Client{Jar: jar},
		timeout: timeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ===================================
// Operations
// ===================================

// FetchCart returns the current cart. Concurrent callers share one in-flight
// request; the shared read runs detached from any single caller's cancellation
// and is bounded by the client timeout, while each caller stops waiting when its
// own ctx is done.
func (c *Client) FetchCart(ctx context.Context) (model.CartSnapshot, error) {
	shared := context.WithoutCancel(ctx)
	ch := c.reads.DoChan(pathCart, func() (any, error) {
		return c.fetch(shared)
	})
	select {
	case <-ctx.Done():
		return model.CartSnapshot{}, errx.Network(ctx.Err(), msgFetch)
	case res := <-ch:
		if res.Err != nil {
			return model.CartSnapshot{}, res.Err
		}
		return res.Val.(model.CartSnapshot).Clone(), nil
	}
}

// AddItem adds a variant, then reads the cart back so the caller gets the
// authoritative snapshot alongside the new line.
func (c *Client) AddItem(ctx context.Context, req model.AddRequest) (model.AddResult, error) {
	if err := req.Validate(); err != nil {
		return model.AddResult{}, err
	}

	form := url.Values{}
	form.Set("id", strconv.FormatInt(req.VariantID, 10))
	form.Set("quantity", strconv.Itoa(req.Quantity))
	for _, k := range req.PropertyKeys() {
		form.Set("properties["+k+"]", req.Properties[k])
	}
	if req.SellingPlan > 0 {
		form.Set("selling_plan", strconv.FormatInt(req.SellingPlan, 10))
	}

	var item model.LineItem
	err := c.do(ctx, http.MethodPost, pathAdd, "application/x-www-form-urlencoded; charset=UTF-8",
		strings.NewReader(form.Encode()), msgAdd, &item)
	if err != nil {
		return model.AddResult{}, err
	}

	// Not coalesced: a read that started before the add landed would be stale.
	cart, err := c.fetch(ctx)
	if err != nil {
		return model.AddResult{}, err
	}
	return model.AddResult{Item: item, Cart: cart}, nil
}

// ChangeLine sets the quantity of a 1-based line; quantity 0 removes it.
func (c *Client) ChangeLine(ctx context.Context, line, quantity int) (model.CartSnapshot, error) {
	if line < 1 {
		return model.CartSnapshot{}, errx.Validation("line must be >= 1, got %d", line)
	}
	if quantity < 0 {
		return model.CartSnapshot{}, errx.Validation("quantity must be >= 0, got %d", quantity)
	}
	body := map[string]int{"line": line, "quantity": quantity}
	return c.postSnapshot(ctx, pathChange, body, msgChange)
}

// ClearCart empties the cart and returns the fresh snapshot.
func (c *Client) ClearCart(ctx context.Context) (model.CartSnapshot, error) {
	if err := c.do(ctx, http.MethodPost, pathClear, "", nil, msgClear, nil); err != nil {
		return model.CartSnapshot{}, err
	}
	return c.fetch(ctx)
}

// UpdateAttributes merges cart attributes; an empty value removes the key.
func (c *Client) UpdateAttributes(ctx context.Context, attributes map[string]string) (model.CartSnapshot, error) {
	if len(attributes) == 0 {
		return model.CartSnapshot{}, errx.Validation("attributes must not be empty")
	}
	body := map[string]any{"attributes": attributes}
	return c.postSnapshot(ctx, pathUpdate, body, msgAttributes)
}

// UpdateNote replaces the cart note.
func (c *Client) UpdateNote(ctx context.Context, note string) (model.CartSnapshot, error) {
	body := map[string]any{"note": note}
	return c.postSnapshot(ctx, pathUpdate, body, msgNote)
}

// ===================================
// Transport
// ===================================

func (c *Client) fetch(ctx context.Context) (model.CartSnapshot, error) {
	var snap model.CartSnapshot
	if err := c.do(ctx, http.MethodGet, pathCart, "", nil, msgFetch, &snap); err != nil {
		return model.CartSnapshot{}, err
	}
	return checked(snap, pathCart)
}

func (c *Client) postSnapshot(ctx context.Context, path string, body any, genericMsg string) (model.CartSnapshot, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return model.CartSnapshot{}, fmt.Errorf("marshal %s body: %w", path, err)
	}
	var snap model.CartSnapshot
	if err := c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(b), genericMsg, &snap); err != nil {
		return model.CartSnapshot{}, err
	}
	return checked(snap, path)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, genericMsg string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.base.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logx.Warn().Err(err).Str("method", method).Str("path", path).Str("request_id", requestID).
			Dur("elapsed", time.Since(start)).Msg("cart request failed")
		return errx.Network(err, genericMsg)
	}
	defer resp.Body.Close()

	logx.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).
		Str("request_id", requestID).Dur("elapsed", time.Since(start)).Msg("cart request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := serverMessage(resp.Body)
		if msg == "" {
			msg = genericMsg
		}
		return errx.BadStatus(resp.StatusCode, msg)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errx.Network(err, genericMsg)
		}
		logx.Error().Err(err).Str("path", path).Str("request_id", requestID).Msg("failed to decode cart response")
		return errx.Malformed(err, genericMsg)
	}
	return nil
}

// serverMessage extracts the human-readable message from an error body,
// preferring description over message.
func serverMessage(r io.Reader) string {
	var payload struct {
		Description any    `json:"description"`
		Message     string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(r, maxErrorBody)).Decode(&payload); err != nil {
		return ""
	}
	if d, ok := payload.Description.(string); ok && d != "" {
		return d
	}
	return payload.Message
}

func checked(snap model.CartSnapshot, path string) (model.CartSnapshot, error) {
	if snap.Items == nil {
		snap.Items = []model.LineItem{}
	}
	if err := snap.Validate(); err != nil {
		logx.Error().Err(err).Str("path", path).Msg("cart response out of bounds")
		return model.CartSnapshot{}, errx.Malformed(err, msgFetch)
	}
	if !snap.Consistent() {
		// The server stays the source of truth; the mismatch is only reported.
		logx.Warn().Str("path", path).Int("item_count", snap.ItemCount).
			Int("quantity_total", snap.QuantityTotal()).Msg("cart item_count disagrees with line quantities")
	}
	return snap, nil
}
