package config

import (
	"fmt"
	"time"
)

type Config struct {
	Env              string                  `env:"ENV,default=local"`
	Logger           LoggerConfig            `env:",prefix=LOGGER_"`
	Observability    ObservabilityHTTPConfig `env:",prefix=OBSERVABILITY_"`
	API              APIHTTPConfig           `env:",prefix=API_"`
	ShutdownDuration time.Duration           `env:"SHUTDOWN_DURATION,default=30s"`
	DB               PostgresConfig          `env:",prefix=DB_"`
	YooKassa         YooKassaConfig          `env:",prefix=YOOKASSA_"`
	Reconcile        ReconcileConfig         `env:",prefix=RECONCILE_"`
}

type YooKassaConfig struct {
	// ShopID/SecretKey намеренно не required: без них процесс стартует, а
	// платёжные ручки отвечают ошибкой вместо падения.
	ShopID          string        `env:"SHOP_ID"`
	SecretKey       string        `env:"SECRET_KEY"`
	APIURL          string        `env:"API_URL,default=https://api.yookassa.ru/v3"`
	ReturnURL       string        `env:"RETURN_URL,default=https://intogame.ru/payment/return"`
	WebhookLogin    string        `env:"WEBHOOK_LOGIN"`
	WebhookPassword string        `env:"WEBHOOK_PASSWORD"`
	Timeout         time.Duration `env:"TIMEOUT,default=30s"`
	RateLimit       struct {
		Burst int     `env:"BURST,default=1"`
		RPS   float64 `env:"RPS,default=10.0"`
	} `env:",prefix=RATE_LIMIT_"`
}

// Configured reports whether the gateway credentials are present.
func (c YooKassaConfig) Configured() bool {
	return c.ShopID != "" && c.SecretKey != ""
}

type ReconcileConfig struct {
	Enabled       bool          `env:"ENABLED,default=true"`
	Interval      time.Duration `env:"INTERVAL,default=1m"`
	PendingMaxAge time.Duration `env:"PENDING_MAX_AGE,default=15m"`
}

type LoggerConfig struct {
	Level string `env:"LEVEL,default=debug"`
}

type APIHTTPConfig struct {
	Host         string        `env:"HOST,default=0.0.0.0"`
	Port         uint16        `env:"PORT,default=8080"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT,default=30s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT,default=30s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT,default=1m"`
}

func (a APIHTTPConfig) ADDR() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

type ObservabilityHTTPConfig struct {
	Host         string        `env:"HOST,default=127.0.0.1"`
	Port         uint16        `env:"PORT,default=8383"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT,default=30s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT,default=30s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT,default=1m"`
}

func (a ObservabilityHTTPConfig) ADDR() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

type PostgresConfig struct {
	DSN          string        `env:"DSN,default=postgres://localhost:5432/intogame?sslmode=disable"`
	MaxOpenConns int           `env:"MAX_OPEN_CONNS,default=25"`
	MaxIdleConns int           `env:"MAX_IDLE_CONNS,default=5"`
	MaxLifetime  time.Duration `env:"MAX_LIFETIME,default=5m"`
}
