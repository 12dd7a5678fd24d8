// Package storefront wires the cart client, the broadcast bus and the page
// widgets into one explicitly owned application.
package storefront

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wtf-storefront/cart-core/internal/analytics"
	"github.com/wtf-storefront/cart-core/internal/builder"
	"github.com/wtf-storefront/cart-core/internal/cart/bridge"
	"github.com/wtf-storefront/cart-core/internal/cart/events"
	"github.com/wtf-storefront/cart-core/internal/cart/gateway"
	"github.com/wtf-storefront/cart-core/internal/cart/model"
	"github.com/wtf-storefront/cart-core/internal/cart/repo"
	"github.com/wtf-storefront/cart-core/internal/dom"
	"github.com/wtf-storefront/cart-core/internal/widgets"
	logx "github.com/wtf-storefront/cart-core/pkg/logger"
)

// ErrAlreadyStarted is returned when Start is called on a running App.
var ErrAlreadyStarted = errors.New("storefront already started")

// Page holds the elements the widgets render into. Missing elements are left nil.
type Page struct {
	Badge        dom.Element
	Drawer       widgets.DrawerElements
	ProductForm  widgets.ProductFormElements
	ErrorNotice  dom.Element
	BuilderPrice dom.Element
	PumpSummary  dom.Element
}

type Config struct {
	Gateway   model.GatewayConfig
	Persist   model.PersistConfig
	Analytics model.AnalyticsConfig
	Builder   model.BuilderConfig
	Notice    model.NoticeConfig

	// SessionID keys the persisted cart. A random one is generated when empty.
	SessionID string
	// Redis enables cart persistence when set.
	Redis redis.Cmdable
	// ResolveAnalytics finds the analytics backend once it has loaded.
	ResolveAnalytics analytics.Resolver
	HTTPClient       *http.Client

	Page Page
}

// App is created once at startup and lives for the whole page.
type App struct {
	cfg       Config
	sessionID string

	Bus       *events.Bus
	Gateway   *gateway.Client
	Cart      *bridge.Service
	Analytics *analytics.Client

	Badge       *widgets.Badge
	Drawer      *widgets.Drawer
	Tracking    *widgets.AnalyticsBridge
	Form        *widgets.ProductForm
	Notice      *widgets.ErrorNotice
	Persistence *widgets.PersistentCart

	detach  []func()
	started atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func Build(cfg Config) (*App, error) {
	var opts []gateway.Option
	if cfg.HTTPClient != nil {
		opts = append(opts, gateway.WithHTTPClient(cfg.HTTPClient))
	}
	gw, err := gateway.New(cfg.Gateway, opts...)
	if err != nil {
		return nil, err
	}

	sessionID := cfg.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	bus := events.NewBus()
	svc := bridge.NewService(gw, bus)
	tracker := analytics.NewClient()

	app := &App{
		cfg:       cfg,
		sessionID: sessionID,
		Bus:       bus,
		Gateway:   gw,
		Cart:      svc,
		Analytics: tracker,
		Badge:     widgets.NewBadge(cfg.Page.Badge),
		Drawer:    widgets.NewDrawer(cfg.Page.Drawer, cfg.Gateway.Currency),
		Tracking:  widgets.NewAnalyticsBridge(tracker, cfg.Gateway.Currency),
		Form:      widgets.NewProductForm(svc, cfg.Page.ProductForm),
		Notice:    widgets.NewErrorNotice(cfg.Page.ErrorNotice, cfg.Notice),
	}

	app.detach = append(app.detach,
		app.Badge.Attach(bus),
		app.Drawer.Attach(bus),
		app.Tracking.Attach(bus),
		app.Notice.Attach(bus),
	)

	if cfg.Redis != nil {
		store := repo.NewRedisSnapshotRepository(cfg.Redis, cfg.Persist.TTL)
		app.Persistence = widgets.NewPersistentCart(store, svc, sessionID, cfg.Persist)
		app.detach = append(app.detach, app.Persistence.Attach(bus))
	} else {
		logx.Info().Msg("redis not configured, cart persistence disabled")
	}

	return app, nil
}

func (a *App) SessionID() string {
	return a.sessionID
}

// Start restores a persisted cart, broadcasts the current cart and begins
// waiting for the analytics backend. A failed restore is logged and skipped.
func (a *App) Start(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	if a.Persistence != nil {
		n, err := a.Persistence.Restore(ctx)
		if err != nil {
			logx.Warn().Err(err).Str("sessionID", a.sessionID).Msg("failed to restore persisted cart")
		} else if n > 0 {
			logx.Info().Int("lines", n).Msg("persisted cart restored")
		}
	}

	if _, err := a.Cart.Refresh(ctx); err != nil {
		return err
	}

	resolve := a.resolver()
	if resolve == nil {
		return nil
	}
	adoptCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	policy := analytics.AdoptPolicy{
		Interval:    a.cfg.Analytics.AdoptInterval,
		MaxAttempts: a.cfg.Analytics.AdoptAttempts,
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if a.Analytics.AwaitBackend(adoptCtx, resolve, policy) {
			logx.Debug().Msg("analytics backend adopted")
		}
	}()
	return nil
}

// NewBuilder mounts a drink builder whose add goes through the product form lock.
func (a *App) NewBuilder() *builder.Builder {
	return builder.New(a.cfg.Builder, a.cfg.Gateway.Currency, builder.Display{
		Price:       a.cfg.Page.BuilderPrice,
		PumpSummary: a.cfg.Page.PumpSummary,
	})
}

// Close stops background work and unsubscribes every widget.
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	for _, fn := range a.detach {
		fn()
	}
	a.detach = nil
}

func (a *App) resolver() analytics.Resolver {
	if a.cfg.ResolveAnalytics != nil {
		return a.cfg.ResolveAnalytics
	}
	if a.cfg.Analytics.Debug {
		return func() (analytics.Backend, bool) { return analytics.LogBackend{}, true }
	}
	return nil
}
