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
	JWT          JWTConfig
	Password     PasswordConfig
	Booking      BookingConfig
	Notify       NotifyConfig
	Mail         MailConfig
	Push         PushConfig
	SMS          SMSConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"NORDTOLK_APP_ENV" required:"true"`
	Port         string `envconfig:"NORDTOLK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"NORDTOLK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NORDTOLK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"NORDTOLK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"NORDTOLK_DB_DSN"`
	Driver string `envconfig:"NORDTOLK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"NORDTOLK_DB_HOST"`
	LegacyPort     int    `envconfig:"NORDTOLK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"NORDTOLK_DB_USER"`
	LegacyPassword string `envconfig:"NORDTOLK_DB_PASSWORD"`
	LegacyName     string `envconfig:"NORDTOLK_DB_NAME"`
	LegacySSLMode  string `envconfig:"NORDTOLK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NORDTOLK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NORDTOLK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NORDTOLK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NORDTOLK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NORDTOLK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"NORDTOLK_REDIS_ADDR"`
	Password     string        `envconfig:"NORDTOLK_REDIS_PASSWORD"`
	DB           int           `envconfig:"NORDTOLK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NORDTOLK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NORDTOLK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NORDTOLK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NORDTOLK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NORDTOLK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"NORDTOLK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"NORDTOLK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"NORDTOLK_JWT_EXPIRATION_MINUTES" required:"true"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"NORDTOLK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"NORDTOLK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"NORDTOLK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"NORDTOLK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"NORDTOLK_ARGON_KEY_LEN" default:"32"`
}

// BookingConfig groups the business-policy knobs for the booking lifecycle.
// Everything here is passed explicitly; nothing reads these at call sites via
// package globals.
type BookingConfig struct {
	ImmediateLeadMinutes       int    `envconfig:"NORDTOLK_BOOKING_IMMEDIATE_LEAD_MINUTES" default:"5"`
	WithdrawCutoffHours        int    `envconfig:"NORDTOLK_BOOKING_WITHDRAW_CUTOFF_HOURS" default:"24"`
	ExpiryGraceHours           int    `envconfig:"NORDTOLK_BOOKING_EXPIRY_GRACE_HOURS" default:"90"`
	ExpiryLongLeadCutoffHours  int    `envconfig:"NORDTOLK_BOOKING_EXPIRY_LONG_LEAD_CUTOFF_HOURS" default:"48"`
	SessionReminderLeadMinutes int    `envconfig:"NORDTOLK_BOOKING_REMINDER_LEAD_MINUTES" default:"100"`
	InterpreterRateSEKPerHour  string `envconfig:"NORDTOLK_BOOKING_INTERPRETER_RATE_SEK" default:"340"`
}

// NotifyConfig carries the delivery-policy settings for the dispatcher.
type NotifyConfig struct {
	NightStartHour       int    `envconfig:"NORDTOLK_NOTIFY_NIGHT_START_HOUR" default:"22"`
	NightEndHour         int    `envconfig:"NORDTOLK_NOTIFY_NIGHT_END_HOUR" default:"7"`
	BusinessDayStartHour int    `envconfig:"NORDTOLK_NOTIFY_BUSINESS_DAY_START_HOUR" default:"9"`
	AdminEmail           string `envconfig:"NORDTOLK_NOTIFY_ADMIN_EMAIL" default:"bokning@nordtolk.se"`
	AdminSenderEmail     string `envconfig:"NORDTOLK_NOTIFY_ADMIN_SENDER_EMAIL" default:"noreply@nordtolk.se"`
}

type MailConfig struct {
	BaseURL     string `envconfig:"NORDTOLK_MAIL_BASE_URL" default:"https://api.mailer.nordtolk.se"`
	APIKey      string `envconfig:"NORDTOLK_MAIL_API_KEY"`
	DefaultFrom string `envconfig:"NORDTOLK_MAIL_FROM_EMAIL" default:"noreply@nordtolk.se"`
	FromName    string `envconfig:"NORDTOLK_MAIL_FROM_NAME" default:"NordTolk"`
}

type PushConfig struct {
	BaseURL    string `envconfig:"NORDTOLK_PUSH_BASE_URL" default:"https://onesignal.com/api/v1"`
	AppID      string `envconfig:"NORDTOLK_PUSH_APP_ID"`
	RESTAPIKey string `envconfig:"NORDTOLK_PUSH_REST_API_KEY"`
}

type SMSConfig struct {
	BaseURL  string `envconfig:"NORDTOLK_SMS_BASE_URL" default:"https://api.46elks.com/a1"`
	Username string `envconfig:"NORDTOLK_SMS_USERNAME"`
	Password string `envconfig:"NORDTOLK_SMS_PASSWORD"`
	From     string `envconfig:"NORDTOLK_SMS_FROM" default:"NordTolk"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"NORDTOLK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON string `envconfig:"NORDTOLK_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	BookingTopic        string `envconfig:"NORDTOLK_PUBSUB_BOOKING_TOPIC" default:"nt-booking-events"`
	BookingSubscription string `envconfig:"NORDTOLK_PUBSUB_BOOKING_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"NORDTOLK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"NORDTOLK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"NORDTOLK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"NORDTOLK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"NORDTOLK_AUTO_MIGRATE" default:"false"`
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
