package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "GITSAGE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "GITSAGE_DB_DSN"
	EnvDBHost = "GITSAGE_DB_HOST"
	EnvDBUser = "GITSAGE_DB_USER"
	EnvDBName = "GITSAGE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Cashfree     CashfreeConfig
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
	Env          string `envconfig:"GITSAGE_APP_ENV" required:"true"`
	Port         string `envconfig:"GITSAGE_APP_PORT" required:"true"`
	PublicURL    string `envconfig:"GITSAGE_APP_PUBLIC_URL" default:"http://localhost:3000"`
	LogLevel     string `envconfig:"GITSAGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GITSAGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"GITSAGE_DB_DSN"`
	Driver string `envconfig:"GITSAGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GITSAGE_DB_HOST"`
	LegacyPort     int    `envconfig:"GITSAGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GITSAGE_DB_USER"`
	LegacyPassword string `envconfig:"GITSAGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"GITSAGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"GITSAGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GITSAGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GITSAGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GITSAGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GITSAGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GITSAGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GITSAGE_REDIS_ADDR"`
	Password     string        `envconfig:"GITSAGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"GITSAGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GITSAGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GITSAGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GITSAGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GITSAGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GITSAGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"GITSAGE_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"GITSAGE_JWT_ISSUER" required:"true"`
}

type CashfreeConfig struct {
	AppID          string        `envconfig:"GITSAGE_CASHFREE_APP_ID" required:"true"`
	SecretKey      string        `envconfig:"GITSAGE_CASHFREE_SECRET_KEY" required:"true"`
	Env            string        `envconfig:"GITSAGE_CASHFREE_ENV" default:"sandbox"`
	APIVersion     string        `envconfig:"GITSAGE_CASHFREE_API_VERSION" default:"2023-08-01"`
	RequestTimeout time.Duration `envconfig:"GITSAGE_CASHFREE_REQUEST_TIMEOUT" default:"10s"`
	ReturnURL      string        `envconfig:"GITSAGE_CASHFREE_RETURN_URL"`
	NotifyURL      string        `envconfig:"GITSAGE_CASHFREE_NOTIFY_URL"`
}

// Environment returns the normalized Cashfree environment (sandbox/production).
func (c CashfreeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(c.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GITSAGE_AUTO_MIGRATE" default:"false"`
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
