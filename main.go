package main

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/wtf-storefront/cart-core/internal/cart/carttest"
	"github.com/wtf-storefront/cart-core/internal/cart/model"
	"github.com/wtf-storefront/cart-core/internal/core"
	"github.com/wtf-storefront/cart-core/internal/dom"
	"github.com/wtf-storefront/cart-core/internal/storefront"
	"github.com/wtf-storefront/cart-core/internal/widgets"
	logx "github.com/wtf-storefront/cart-core/pkg/logger"
	pkgredis "github.com/wtf-storefront/cart-core/pkg/redis"
)

// AppConfig defines all configurable parameters for the storefront demo,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Redis pkgredis.Config

	// Cart configs
	Gateway   model.GatewayConfig
	Persist   model.PersistConfig
	Analytics model.AnalyticsConfig
	Builder   model.BuilderConfig
	Notice    model.NoticeConfig

	SessionID string `envconfig:"CART_SESSION_ID"`
	// DemoFakeCart serves the cart from an in-memory storefront instead of CART_BASE_URL.
	DemoFakeCart bool `envconfig:"DEMO_FAKE_CART" default:"true"`
}

func main() {
	ctx := context.Background()
	// Load .env file
	envErr := godotenv.Load(".env")

	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		logx.Fatal().Err(err).Msg("failed to process environment config")
	}

	env := core.ParseEnvironment(envCfg.Environment)
	logx.Init(logx.LoggerOpts{Environment: env})
	if envErr != nil {
		logx.Warn().Err(envErr).Msg("could not load .env file")
	}
	// echo analytics payloads to the log outside production
	if env.Verbose() {
		envCfg.Analytics.Debug = true
	}

	cfg := storefront.Config{
		Gateway:   envCfg.Gateway,
		Persist:   envCfg.Persist,
		Analytics: envCfg.Analytics,
		Builder:   envCfg.Builder,
		Notice:    envCfg.Notice,
		SessionID: envCfg.SessionID,
		Page:      demoPage(),
	}

	rdb, err := envCfg.Redis.New()
	switch {
	case errors.Is(err, pkgredis.ErrDisabled):
	case err != nil:
		logx.Fatal().Err(err).Msg("failed to initialise redis client")
	default:
		defer rdb.Close()
		cfg.Redis = rdb
		logx.Info().Msg("connected to redis")
	}

	if envCfg.DemoFakeCart {
		srv := carttest.NewServer()
		defer srv.Close()
		cfg.Gateway.BaseURL = srv.BaseURL()
		logx.Info().Str("url", srv.BaseURL()).Msg("serving demo cart from memory")
	}

	app, err := storefront.Build(cfg)
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to build storefront")
	}
	defer app.Close()

	if err := app.Start(ctx); err != nil {
		logx.Fatal().Err(err).Msg("failed to load cart")
	}

	runSession(ctx, app, cfg.Page)
}

func demoPage() storefront.Page {
	return storefront.Page{
		Badge: dom.NewNode("cart-count", "0"),
		Drawer: widgets.DrawerElements{
			Panel:    dom.NewNode("cart-drawer", ""),
			Count:    dom.NewNode("drawer-count", ""),
			Subtotal: dom.NewNode("drawer-subtotal", ""),
			Empty:    dom.NewNode("drawer-empty", "Your cart is empty"),
		},
		ProductForm: widgets.ProductFormElements{
			Button: dom.NewNode("add-to-cart", "Add to cart"),
			Error:  dom.NewNode("product-form-error", ""),
		},
		ErrorNotice:  dom.NewNode("cart-errors", ""),
		BuilderPrice: dom.NewNode("builder-price", ""),
		PumpSummary:  dom.NewNode("pump-count-summary", ""),
	}
}

// runSession replays a short shopping trip and logs what each widget shows.
func runSession(ctx context.Context, app *storefront.App, page storefront.Page) {
	steps := []struct {
		description string
		run         func() error
	}{
		{
			description: "Add two mango kava shots from the product form",
			run: func() error {
				_, err := app.Form.Submit(ctx, url.Values{"id": {"111"}, "quantity": {"2"}})
				return err
			},
		},
		{
			description: "Build a large drink with mango and coconut",
			run: func() error {
				b := app.NewBuilder()
				b.SelectBase(222, 1100, "Large")
				if _, err := b.SetPumps("Mango", 2); err != nil {
					return err
				}
				if _, err := b.SetPumps("Coconut", 1); err != nil {
					return err
				}
				_, err := b.AddToCart(ctx, app.Form, 1)
				return err
			},
		},
		{
			description: "Try to add more kratom tea than is in stock",
			run: func() error {
				_, err := app.Form.Submit(ctx, url.Values{"id": {"331"}, "quantity": {"5"}})
				return err
			},
		},
		{
			description: "Drop the kava shots to one",
			run: func() error {
				_, err := app.Cart.Change(ctx, 1, 1)
				return err
			},
		},
		{
			description: "Leave a pickup note",
			run: func() error {
				_, err := app.Cart.UpdateNote(ctx, "Pickup at Cape Coral")
				return err
			},
		},
	}

	for i, step := range steps {
		err := step.run()
		evt := logx.Info()
		if err != nil {
			evt = logx.Warn().Err(err)
		}
		evt.Int("step", i+1).
			Str("badge", page.Badge.Text()).
			Str("subtotal", page.Drawer.Subtotal.Text()).
			Str("notice", page.ErrorNotice.Text()).
			Msg(step.description)
		time.Sleep(100 * time.Millisecond)
	}

	stats := app.Bus.Stats()
	logx.Info().
		Uint64("published", stats.Published).
		Uint64("listenerFailures", stats.Failures).
		Str("analytics", app.Analytics.State().String()).
		Msg("session finished")
}
