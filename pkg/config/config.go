package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix is the envconfig namespace for all settings.
	EnvPrefix = "GREENLEDGER"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Movement     MovementConfig
	Sequence     SequenceConfig
	Alerts       AlertsConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GREENLEDGER_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"GREENLEDGER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GREENLEDGER_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"GREENLEDGER_DB_DSN"`
	Driver string `envconfig:"GREENLEDGER_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"GREENLEDGER_DB_HOST"`
	Port     int    `envconfig:"GREENLEDGER_DB_PORT" default:"5432"`
	User     string `envconfig:"GREENLEDGER_DB_USER"`
	Password string `envconfig:"GREENLEDGER_DB_PASSWORD"`
	Name     string `envconfig:"GREENLEDGER_DB_NAME"`
	SSLMode  string `envconfig:"GREENLEDGER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GREENLEDGER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GREENLEDGER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GREENLEDGER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GREENLEDGER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// ensureDSN assembles a Postgres DSN from discrete fields when one is not
// provided directly.
func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either GREENLEDGER_DB_DSN or host/user/name must be set")
	}
	dsn := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	query := dsn.Query()
	query.Set("sslmode", d.SSLMode)
	dsn.RawQuery = query.Encode()
	d.DSN = dsn.String()
	return nil
}

// MovementConfig tunes the ledger write path.
type MovementConfig struct {
	SaveRetryAttempts  int           `envconfig:"GREENLEDGER_MOVEMENT_SAVE_RETRY_ATTEMPTS" default:"3"`
	SaveRetryBaseDelay time.Duration `envconfig:"GREENLEDGER_MOVEMENT_SAVE_RETRY_BASE_DELAY" default:"100ms"`
	SlowSaveThreshold  time.Duration `envconfig:"GREENLEDGER_MOVEMENT_SLOW_SAVE_THRESHOLD" default:"500ms"`
	LargeBatchSize     int           `envconfig:"GREENLEDGER_MOVEMENT_LARGE_BATCH_SIZE" default:"50"`
}

// SequenceConfig tunes identifier sequence allocation.
type SequenceConfig struct {
	BatchMax int64 `envconfig:"GREENLEDGER_SEQUENCE_BATCH_MAX" default:"9999"`
	UnitMax  int64 `envconfig:"GREENLEDGER_SEQUENCE_UNIT_MAX" default:"99999"`
	DailyMax int64 `envconfig:"GREENLEDGER_SEQUENCE_DAILY_MAX" default:"99999"`
}

// AlertsConfig tunes the request-time stock scans.
type AlertsConfig struct {
	ExpiryHorizon time.Duration `envconfig:"GREENLEDGER_ALERTS_EXPIRY_HORIZON" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GREENLEDGER_AUTO_MIGRATE" default:"false"`
}
