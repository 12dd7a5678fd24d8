package model

import "time"

// ================ Config ================

type GatewayConfig struct {
	BaseURL  string        `envconfig:"CART_BASE_URL" default:"http://127.0.0.1:9292/"`
	Timeout  time.Duration `envconfig:"CART_TIMEOUT" default:"5s"`
	Currency string        `envconfig:"CART_CURRENCY" default:"USD"`
}

type PersistConfig struct {
	TTL          time.Duration `envconfig:"CART_PERSIST_TTL" default:"168h"`
	RestoreDelay time.Duration `envconfig:"CART_RESTORE_DELAY" default:"100ms"`
}

type AnalyticsConfig struct {
	AdoptInterval time.Duration `envconfig:"ANALYTICS_ADOPT_INTERVAL" default:"125ms"`
	AdoptAttempts int           `envconfig:"ANALYTICS_ADOPT_ATTEMPTS" default:"40"`
	Debug         bool          `envconfig:"ANALYTICS_DEBUG" default:"false"`
}

type BuilderConfig struct {
	MaxPumps      int   `envconfig:"BUILDER_MAX_PUMPS" default:"12"`
	PumpCost      int64 `envconfig:"BUILDER_PUMP_COST" default:"50"`
	IncludedPumps int   `envconfig:"BUILDER_INCLUDED_PUMPS" default:"0"`
	MaxFlavors    int   `envconfig:"BUILDER_MAX_FLAVORS" default:"0"`
}

type NoticeConfig struct {
	TTL time.Duration `envconfig:"CART_ERROR_NOTICE_TTL" default:"5s"`
}
