package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix scopes every environment variable this service reads.
	EnvPrefix = "ARTVPP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "ARTVPP_DB_DSN"
	EnvDBHost = "ARTVPP_DB_HOST"
	EnvDBUser = "ARTVPP_DB_USER"
	EnvDBName = "ARTVPP_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	FeatureFlags FeatureFlagsConfig
	Books        BooksConfig
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
	Env          string `envconfig:"ARTVPP_APP_ENV" required:"true"`
	Port         string `envconfig:"ARTVPP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ARTVPP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ARTVPP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ARTVPP_DB_DSN"`
	Driver string `envconfig:"ARTVPP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ARTVPP_DB_HOST"`
	LegacyPort     int    `envconfig:"ARTVPP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ARTVPP_DB_USER"`
	LegacyPassword string `envconfig:"ARTVPP_DB_PASSWORD"`
	LegacyName     string `envconfig:"ARTVPP_DB_NAME"`
	LegacySSLMode  string `envconfig:"ARTVPP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ARTVPP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ARTVPP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ARTVPP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ARTVPP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ARTVPP_AUTO_MIGRATE" default:"false"`
}

// BooksConfig carries the financial defaults that are not stored in the
// financial_config table.
type BooksConfig struct {
	InvoiceDueDays     int    `envconfig:"ARTVPP_BOOKS_INVOICE_DUE_DAYS" default:"30"`
	SalesPrefix        string `envconfig:"ARTVPP_BOOKS_INVOICE_PREFIX_SALES" default:"INV"`
	PurchasePrefix     string `envconfig:"ARTVPP_BOOKS_INVOICE_PREFIX_PURCHASE" default:"PUR"`
	PaymentPrefix      string `envconfig:"ARTVPP_BOOKS_PAYMENT_PREFIX" default:"PAY"`
	TransactionPrefix  string `envconfig:"ARTVPP_BOOKS_TRANSACTION_PREFIX" default:"TXN"`
	DefaultTaxRate     string `envconfig:"ARTVPP_BOOKS_DEFAULT_TAX_RATE" default:"18"`
	Currency           string `envconfig:"ARTVPP_BOOKS_CURRENCY" default:"INR"`
	SequenceMaxRetries int    `envconfig:"ARTVPP_BOOKS_SEQUENCE_MAX_RETRIES" default:"3"`
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
