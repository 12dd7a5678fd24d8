package widgets

import (
	"context"
	"time"

	"github.com/wtf-storefront/cart-core/internal/cart/events"
	"github.com/wtf-storefront/cart-core/internal/cart/model"
	"github.com/wtf-storefront/cart-core/internal/cart/repo"
	logx "github.com/wtf-storefront/cart-core/pkg/logger"
)

// CartRestorer is the part of the cart bridge a restore needs.
type CartRestorer interface {
	CartFetcher
	CartAdder
}

// PersistentCart keeps a copy of the session's cart so a cart that expired on
// the storefront can be rebuilt on the next visit.
type PersistentCart struct {
	repo      repo.SnapshotRepository
	cart      CartRestorer
	sessionID string
	cfg       model.PersistConfig
	now       func() time.Time
}

func NewPersistentCart(r repo.SnapshotRepository, cart CartRestorer, sessionID string, cfg model.PersistConfig) *PersistentCart {
	return &PersistentCart{repo: r, cart: cart, sessionID: sessionID, cfg: cfg, now: time.Now}
}

func (p *PersistentCart) Attach(bus *events.Bus) func() {
	return events.Subscribe(bus, events.CartUpdate, "persistent-cart", p.OnUpdate)
}

// OnUpdate mirrors the storefront cart. An emptied cart clears the stored
// copy so removed lines are never restored.
func (p *PersistentCart) OnUpdate(ctx context.Context, snap model.CartSnapshot) error {
	if snap.IsEmpty() {
		return p.repo.Clear(ctx, p.sessionID)
	}
	return p.repo.Save(ctx, p.sessionID, snap)
}

// Restore re-adds the stored lines when the storefront cart is empty. It
// returns the number of lines restored. Stored carts older than the TTL are
// discarded.
func (p *PersistentCart) Restore(ctx context.Context) (int, error) {
	stored, err := p.repo.Load(ctx, p.sessionID)
	if err != nil || stored == nil {
		return 0, err
	}
	if p.cfg.TTL > 0 && stored.Age(p.now()) > p.cfg.TTL {
		logx.Info().Str("sessionID", p.sessionID).Msg("discarding expired persisted cart")
		return 0, p.repo.Clear(ctx, p.sessionID)
	}

	remote, err := p.cart.FetchCart(ctx)
	if err != nil {
		return 0, err
	}
	if !remote.IsEmpty() {
		return 0, nil
	}

	restored := 0
	var last model.CartSnapshot
	for i, li := range stored.Snapshot.Items {
		if i > 0 {
			if err := p.wait(ctx); err != nil {
				return restored, err
			}
		}
		res, err := p.cart.Add(ctx, model.AddRequest{
			VariantID:  li.VariantID,
			Quantity:   li.Quantity,
			Properties: li.Properties,
		})
		if err != nil {
			logx.Warn().Err(err).Int64("variant_id", li.VariantID).Msg("failed to restore cart line")
			continue
		}
		last = res.Cart
		restored++
	}

	if restored == 0 {
		return 0, p.repo.Clear(ctx, p.sessionID)
	}
	logx.Info().Str("sessionID", p.sessionID).Int("lines", restored).Msg("restored persisted cart")
	return restored, p.repo.Save(ctx, p.sessionID, last)
}

func (p *PersistentCart) wait(ctx context.Context) error {
	if p.cfg.RestoreDelay <= 0 {
		return nil
	}
	t := time.NewTimer(p.cfg.RestoreDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
