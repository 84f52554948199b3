package app

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port             int
	Env              string
	OtelCollectorUrl string
	CorsOrigins      []string
	DB               DBConfig
	Redis            RedisConfig
	SMTP             SMTPConfig
	Stripe           StripeConfig
	JWT              JWTConfig
	AMQP             AMQPConfig
	RateLimit        RateLimitConfig
	Scheduler        SchedulerConfig
}

type DBConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleTime  time.Duration
}

type RedisConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	Timeout       time.Duration
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type AMQPConfig struct {
	URL      string
	Exchange string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type SchedulerConfig struct {
	Enabled            bool
	ReminderSchedule   string
	CompletionSchedule string
	HoldSchedule       string
}

var configDefaults = map[string]any{
	"port":                      3000,
	"env":                       "dev",
	"otel-collector-url":        "",
	"cors-origins":              "http://localhost:5173",
	"db-dsn":                    "",
	"db-max-open-conns":         25,
	"db-max-idle-time":          15 * time.Minute,
	"redis-url":                 "localhost:6379",
	"redis-max-open-conns":      25,
	"redis-max-idle-conns":      10,
	"redis-max-idle-time":       2 * time.Minute,
	"smtp-host":                 "",
	"smtp-port":                 2525,
	"smtp-username":             "",
	"smtp-password":             "",
	"smtp-sender":               "SpaceHub <no-reply@spacehub.app>",
	"stripe-key":                "",
	"stripe-webhook-secret":     "",
	"stripe-currency":           "usd",
	"stripe-timeout":            15 * time.Second,
	"jwt-secret":                "",
	"jwt-issuer":                "spacehub",
	"amqp-url":                  "",
	"amqp-exchange":             "notifications",
	"rate-limit-requests":       10,
	"rate-limit-window":         time.Minute,
	"scheduler-enabled":         true,
	"scheduler-reminder-cron":   "*/30 * * * * *",
	"scheduler-completion-cron": "0 */5 * * * *",
	"scheduler-hold-cron":       "0 * * * * *",
}

// LoadConfig reads an optional .env file, seeds every flag default from the environment (flag
// "db-dsn" reads DB_DSN) and then parses args. Explicit flags win over the environment.
func LoadConfig(args []string) (Config, bool, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range configDefaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	fs := flag.NewFlagSet("rental-api", flag.ContinueOnError)

	fs.IntVar(&cfg.Port, "port", v.GetInt("port"), "server port")
	fs.StringVar(&cfg.Env, "env", v.GetString("env"), "Environment (dev|staging|prod)")
	fs.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", v.GetString("otel-collector-url"), "OpenTelemetry collector endpoint")
	corsOrigins := fs.String("cors-origins", v.GetString("cors-origins"), "Comma separated list of allowed CORS origins")

	fs.StringVar(&cfg.DB.DSN, "db-dsn", v.GetString("db-dsn"), "PostgreSQL DSN")
	fs.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", v.GetInt("db-max-open-conns"), "PostgreSQL max open connections")
	fs.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", v.GetDuration("db-max-idle-time"), "PostgreSQL max idle time for connections")

	fs.StringVar(&cfg.Redis.URL, "redis-url", v.GetString("redis-url"), "Redis address")
	fs.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", v.GetInt("redis-max-open-conns"), "Redis max open connections")
	fs.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", v.GetInt("redis-max-idle-conns"), "Redis max idle connections")
	fs.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", v.GetDuration("redis-max-idle-time"), "Redis max idle time for connections")

	fs.StringVar(&cfg.SMTP.Host, "smtp-host", v.GetString("smtp-host"), "SMTP host, email delivery is off when empty")
	fs.IntVar(&cfg.SMTP.Port, "smtp-port", v.GetInt("smtp-port"), "SMTP port")
	fs.StringVar(&cfg.SMTP.Username, "smtp-username", v.GetString("smtp-username"), "SMTP username")
	fs.StringVar(&cfg.SMTP.Password, "smtp-password", v.GetString("smtp-password"), "SMTP password")
	fs.StringVar(&cfg.SMTP.Sender, "smtp-sender", v.GetString("smtp-sender"), "SMTP sender")

	fs.StringVar(&cfg.Stripe.SecretKey, "stripe-key", v.GetString("stripe-key"), "Stripe secret key")
	fs.StringVar(&cfg.Stripe.WebhookSecret, "stripe-webhook-secret", v.GetString("stripe-webhook-secret"), "Stripe webhook secret")
	fs.StringVar(&cfg.Stripe.Currency, "stripe-currency", v.GetString("stripe-currency"), "Default payment currency")
	fs.DurationVar(&cfg.Stripe.Timeout, "stripe-timeout", v.GetDuration("stripe-timeout"), "Timeout of a single Stripe call")

	fs.StringVar(&cfg.JWT.Secret, "jwt-secret", v.GetString("jwt-secret"), "HS256 secret of bearer tokens")
	fs.StringVar(&cfg.JWT.Issuer, "jwt-issuer", v.GetString("jwt-issuer"), "Expected token issuer")

	fs.StringVar(&cfg.AMQP.URL, "amqp-url", v.GetString("amqp-url"), "RabbitMQ URL, event publishing is off when empty")
	fs.StringVar(&cfg.AMQP.Exchange, "amqp-exchange", v.GetString("amqp-exchange"), "RabbitMQ topic exchange for notification events")

	fs.IntVar(&cfg.RateLimit.Requests, "rate-limit-requests", v.GetInt("rate-limit-requests"), "Payment requests allowed per user and window")
	fs.DurationVar(&cfg.RateLimit.Window, "rate-limit-window", v.GetDuration("rate-limit-window"), "Rate limit window")

	fs.BoolVar(&cfg.Scheduler.Enabled, "scheduler-enabled", v.GetBool("scheduler-enabled"), "Run background jobs in this instance")
	fs.StringVar(&cfg.Scheduler.ReminderSchedule, "scheduler-reminder-cron", v.GetString("scheduler-reminder-cron"), "Reminder dispatch schedule (with seconds)")
	fs.StringVar(&cfg.Scheduler.CompletionSchedule, "scheduler-completion-cron", v.GetString("scheduler-completion-cron"), "Booking completion sweep schedule (with seconds)")
	fs.StringVar(&cfg.Scheduler.HoldSchedule, "scheduler-hold-cron", v.GetString("scheduler-hold-cron"), "Abandoned update hold release schedule (with seconds)")

	displayVersion := fs.Bool("version", false, "Display version and exit")

	if err := fs.Parse(args); err != nil {
		return Config{}, false, err
	}

	cfg.CorsOrigins = splitList(*corsOrigins)

	if *displayVersion {
		return cfg, true, nil
	}

	return cfg, false, cfg.validate()
}

func (cfg Config) validate() error {
	var missing []string

	if cfg.DB.DSN == "" {
		missing = append(missing, "db-dsn")
	}
	if cfg.Stripe.SecretKey == "" {
		missing = append(missing, "stripe-key")
	}
	if cfg.Stripe.WebhookSecret == "" {
		missing = append(missing, "stripe-webhook-secret")
	}
	if cfg.JWT.Secret == "" {
		missing = append(missing, "jwt-secret")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if cfg.RateLimit.Requests < 1 || cfg.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit must allow at least one request per positive window")
	}

	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	list := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}

	return list
}
