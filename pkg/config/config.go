package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "expresspay"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	PayPal       PayPalConfig
	Checkout     CheckoutConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"EXPRESSPAY_APP_ENV" required:"true"`
	Port         string `envconfig:"EXPRESSPAY_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"EXPRESSPAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"EXPRESSPAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"EXPRESSPAY_DB_DSN"`
	Driver string `envconfig:"EXPRESSPAY_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"EXPRESSPAY_DB_HOST"`
	Port     int    `envconfig:"EXPRESSPAY_DB_PORT" default:"5432"`
	User     string `envconfig:"EXPRESSPAY_DB_USER"`
	Password string `envconfig:"EXPRESSPAY_DB_PASSWORD"`
	Name     string `envconfig:"EXPRESSPAY_DB_NAME"`
	SSLMode  string `envconfig:"EXPRESSPAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"EXPRESSPAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"EXPRESSPAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"EXPRESSPAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"EXPRESSPAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either EXPRESSPAY_DB_DSN or host/user/name settings are required")
	}
	d.DSN = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"EXPRESSPAY_REDIS_URL" required:"true"`
	Password     string        `envconfig:"EXPRESSPAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"EXPRESSPAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"EXPRESSPAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"EXPRESSPAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"EXPRESSPAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"EXPRESSPAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"EXPRESSPAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// PayPalConfig carries the NVP API credentials.
type PayPalConfig struct {
	User        string        `envconfig:"EXPRESSPAY_PAYPAL_USER" required:"true"`
	Password    string        `envconfig:"EXPRESSPAY_PAYPAL_PASSWORD" required:"true"`
	Signature   string        `envconfig:"EXPRESSPAY_PAYPAL_SIGNATURE" required:"true"`
	Environment string        `envconfig:"EXPRESSPAY_PAYPAL_ENV" default:"sandbox"`
	Timeout     time.Duration `envconfig:"EXPRESSPAY_PAYPAL_TIMEOUT" default:"30s"`
}

// CheckoutConfig holds the storefront URLs and hosted-page defaults.
type CheckoutConfig struct {
	// ReturnURL receives the processor callback (token/PayerID appended by the processor).
	ReturnURL string `envconfig:"EXPRESSPAY_CHECKOUT_RETURN_URL" required:"true"`
	// CancelURL receives the shopper when they abandon the hosted page.
	CancelURL string `envconfig:"EXPRESSPAY_CHECKOUT_CANCEL_URL" required:"true"`

	CheckoutPathPrefix  string `envconfig:"EXPRESSPAY_CHECKOUT_STATE_PATH_PREFIX" default:"/checkout"`
	OrderPathPrefix     string `envconfig:"EXPRESSPAY_CHECKOUT_ORDER_PATH_PREFIX" default:"/orders"`
	ShippingMethodLabel string `envconfig:"EXPRESSPAY_CHECKOUT_SHIPPING_METHOD_LABEL" default:"Shipping"`
}

func (c CheckoutConfig) validate() error {
	for name, raw := range map[string]string{
		"EXPRESSPAY_CHECKOUT_RETURN_URL": c.ReturnURL,
		"EXPRESSPAY_CHECKOUT_CANCEL_URL": c.CancelURL,
	} {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute URL", name)
		}
	}
	return nil
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"EXPRESSPAY_FEATURE_AUTO_MIGRATE" default:"false"`
}
