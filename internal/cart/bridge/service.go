// Package bridge turns gateway results into cart broadcasts.
package bridge

import (
	"context"
	"sync"

	"github.com/wtf-storefront/cart-core/internal/cart/events"
	"github.com/wtf-storefront/cart-core/internal/cart/model"
	errx "github.com/wtf-storefront/cart-core/internal/core/error"
	logx "github.com/wtf-storefront/cart-core/pkg/logger"
)

// Gateway is the remote cart the bridge drives.
type Gateway interface {
	FetchCart(ctx context.Context) (model.CartSnapshot, error)
	AddItem(ctx context.Context, req model.AddRequest) (model.AddResult, error)
	ChangeLine(ctx context.Context, line, quantity int) (model.CartSnapshot, error)
	ClearCart(ctx context.Context) (model.CartSnapshot, error)
	UpdateAttributes(ctx context.Context, attributes map[string]string) (model.CartSnapshot, error)
	UpdateNote(ctx context.Context, note string) (model.CartSnapshot, error)
}

// Operation names carried by cart:error payloads.
const (
	OpRefresh    = "refresh"
	OpAdd        = "add"
	OpChange     = "change"
	OpClear      = "clear"
	OpAttributes = "attributes"
	OpNote       = "note"
)

// Service runs cart operations and broadcasts every successful result.
type Service struct {
	gw  Gateway
	bus *events.Bus

	mu       sync.RWMutex
	last     model.CartSnapshot
	haveLast bool
}

// NewService wires a gateway to a bus.
func NewService(gw Gateway, bus *events.Bus) *Service {
	return &Service{gw: gw, bus: bus}
}

// Refresh reads the cart and broadcasts it as an update.
func (s *Service) Refresh(ctx context.Context) (model.CartSnapshot, error) {
	snap, err := s.gw.FetchCart(ctx)
	if err != nil {
		return model.CartSnapshot{}, s.fail(ctx, OpRefresh, err)
	}
	s.broadcast(ctx, snap, nil)
	return snap, nil
}

// Add adds a line and broadcasts the fresh cart followed by the add event.
func (s *Service) Add(ctx context.Context, req model.AddRequest) (model.AddResult, error) {
	res, err := s.gw.AddItem(ctx, req)
	if err != nil {
		return model.AddResult{}, s.fail(ctx, OpAdd, err)
	}
	s.broadcast(ctx, res.Cart, &res.Item)
	return res, nil
}

// Change sets a line's quantity.
func (s *Service) Change(ctx context.Context, line, quantity int) (model.CartSnapshot, error) {
	return s.mutate(ctx, OpChange, func(ctx context.Context) (model.CartSnapshot, error) {
		return s.gw.ChangeLine(ctx, line, quantity)
	})
}

// Remove drops a 1-based line.
func (s *Service) Remove(ctx context.Context, line int) (model.CartSnapshot, error) {
	return s.Change(ctx, line, 0)
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context) (model.CartSnapshot, error) {
	return s.mutate(ctx, OpClear, s.gw.ClearCart)
}

// UpdateAttributes merges cart attributes.
func (s *Service) UpdateAttributes(ctx context.Context, attributes map[string]string) (model.CartSnapshot, error) {
	return s.mutate(ctx, OpAttributes, func(ctx context.Context) (model.CartSnapshot, error) {
		return s.gw.UpdateAttributes(ctx, attributes)
	})
}

// UpdateNote replaces the cart note.
func (s *Service) UpdateNote(ctx context.Context, note string) (model.CartSnapshot, error) {
	return s.mutate(ctx, OpNote, func(ctx context.Context) (model.CartSnapshot, error) {
		return s.gw.UpdateNote(ctx, note)
	})
}

// Last returns the last known-good snapshot. Failed operations never change it.
func (s *Service) Last() (model.CartSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.haveLast {
		return model.CartSnapshot{}, false
	}
	return s.last.Clone(), true
}

// FetchCart reads the cart without broadcasting, for widgets that resync on their own.
func (s *Service) FetchCart(ctx context.Context) (model.CartSnapshot, error) {
	return s.gw.FetchCart(ctx)
}

func (s *Service) mutate(ctx context.Context, op string, call func(context.Context) (model.CartSnapshot, error)) (model.CartSnapshot, error) {
	snap, err := call(ctx)
	if err != nil {
		return model.CartSnapshot{}, s.fail(ctx, op, err)
	}
	s.broadcast(ctx, snap, nil)
	return snap, nil
}

// broadcast publishes update, add, legacy update, legacy add. Listener failures
// are logged by the bus and dropped here.
func (s *Service) broadcast(ctx context.Context, snap model.CartSnapshot, item *model.LineItem) {
	s.mu.Lock()
	s.last = snap.Clone()
	s.haveLast = true
	s.mu.Unlock()

	_ = events.Publish(ctx, s.bus, events.CartUpdate, snap.Clone())
	if item != nil {
		_ = events.Publish(ctx, s.bus, events.CartAdd, model.CartAdded{Item: item.Clone(), Cart: snap.Clone()})
	}
	_ = events.Publish(ctx, s.bus, events.LegacyCartUpdate, snap.Clone())
	if item != nil {
		_ = events.Publish(ctx, s.bus, events.LegacyCartAdd, model.CartAdded{Item: item.Clone(), Cart: snap.Clone()})
	}
}

func (s *Service) fail(ctx context.Context, op string, err error) error {
	kind := errx.KindOf(err)
	logx.Warn().Err(err).Str("operation", op).Str("kind", string(kind)).Msg("cart operation failed")
	_ = events.Publish(ctx, s.bus, events.CartError, model.CartFailure{
		Operation: op,
		Kind:      kind,
		Message:   errx.UserMessage(err),
	})
	return err
}
