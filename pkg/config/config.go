package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Sweep        SweepConfig
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
	Env          string `envconfig:"OPENSHELF_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"OPENSHELF_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"OPENSHELF_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"OPENSHELF_SERVICE_KIND" default:"cron-worker"`
}

type DBConfig struct {
	DSN    string `envconfig:"OPENSHELF_DB_DSN"`
	Driver string `envconfig:"OPENSHELF_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"OPENSHELF_DB_HOST"`
	LegacyPort     int    `envconfig:"OPENSHELF_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"OPENSHELF_DB_USER"`
	LegacyPassword string `envconfig:"OPENSHELF_DB_PASSWORD"`
	LegacyName     string `envconfig:"OPENSHELF_DB_NAME"`
	LegacySSLMode  string `envconfig:"OPENSHELF_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"OPENSHELF_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"OPENSHELF_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"OPENSHELF_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"OPENSHELF_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"OPENSHELF_REDIS_URL" required:"true"`
	Address      string        `envconfig:"OPENSHELF_REDIS_ADDR"`
	Password     string        `envconfig:"OPENSHELF_REDIS_PASSWORD"`
	DB           int           `envconfig:"OPENSHELF_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"OPENSHELF_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"OPENSHELF_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"OPENSHELF_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"OPENSHELF_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"OPENSHELF_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SweepConfig controls the reservation expiry worker cadence.
type SweepConfig struct {
	Interval time.Duration `envconfig:"OPENSHELF_SWEEP_INTERVAL" default:"15m"`
	LockTTL  time.Duration `envconfig:"OPENSHELF_SWEEP_LOCK_TTL" default:"30m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"OPENSHELF_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"OPENSHELF_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
