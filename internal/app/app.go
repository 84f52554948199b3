package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/spacehub/rental-api/api"
	"github.com/spacehub/rental-api/internal/auth"
	"github.com/spacehub/rental-api/internal/booking"
	"github.com/spacehub/rental-api/internal/checkout"
	"github.com/spacehub/rental-api/internal/domain"
	"github.com/spacehub/rental-api/internal/mailer"
	"github.com/spacehub/rental-api/internal/mq"
	"github.com/spacehub/rental-api/internal/notification"
	"github.com/spacehub/rental-api/internal/payment"
	"github.com/spacehub/rental-api/internal/ratelimit"
	"github.com/spacehub/rental-api/internal/refund"
	"github.com/spacehub/rental-api/internal/repository"
	"github.com/spacehub/rental-api/internal/scheduler"
	appvalidator "github.com/spacehub/rental-api/internal/validator"
	"github.com/spacehub/rental-api/internal/vcs"
	"github.com/spacehub/rental-api/internal/webhook"
	"github.com/stripe/stripe-go/v82"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
)

const serviceName = "rental-api"

var (
	version = vcs.Version()
)

type tokenVerifier interface {
	Verify(token string) (int, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, id string) (ratelimit.Result, error)
}

type Application struct {
	config    Config
	logger    *slog.Logger
	validator *validator.Validate
	verifier  tokenVerifier
	limiter   RateLimiter
	openapi   routers.Router
	metrics   *rentalMetrics

	bookings   *booking.Manager
	checkout   *checkout.Service
	refunds    *refund.Orchestrator
	reconciler *webhook.Reconciler
}

// NewApp assembles the HTTP application on top of already opened dependencies.
func NewApp(
	cfg Config,
	logger *slog.Logger,
	store domain.Store,
	gateway domain.PaymentGateway,
	notifier domain.Notifier,
	limiter RateLimiter) (*Application, error) {

	router, err := newOpenAPIRouter()
	if err != nil {
		return nil, err
	}

	metrics, err := newRentalMetrics(otel.Meter(instrumentationName))
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	app := &Application{
		config:    cfg,
		logger:    logger,
		validator: appvalidator.NewValidator(),
		verifier:  auth.NewVerifier(cfg.JWT.Secret, cfg.JWT.Issuer),
		limiter:   limiter,
		openapi:   router,
		metrics:   metrics,
	}

	app.bookings = booking.NewManager(store, notifier, logger)
	app.checkout = checkout.NewService(store, app.bookings, gateway, cfg.Stripe.Currency, logger)
	app.refunds = refund.NewOrchestrator(store, gateway, notifier, logger)
	app.reconciler = webhook.NewReconciler(store, gateway, app.bookings, notifier, logger)

	return app, nil
}

// Bookings exposes the lifecycle manager to background jobs.
func (app *Application) Bookings() *booking.Manager {
	return app.bookings
}

func Run() error {
	cfg, displayVersion, err := LoadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	if displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		return nil
	}

	stripe.Key = cfg.Stripe.SecretKey

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	shutdownTelemetry, err := InitTelemetry(cfg, logger)
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	if cfg.OtelCollectorUrl != "" {
		logger = slog.New(NewMultiHandler(logger.Handler(), otelslog.NewHandler(serviceName)))
	}

	db, err := NewDatabasePool(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := NewRedisClient(cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	store := repository.NewPostgresStore(db)

	channels := make([]notification.Channel, 0, 2)

	if cfg.SMTP.Host != "" {
		m := mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Sender)
		channels = append(channels, notification.NewEmailChannel(m))
	}

	if cfg.AMQP.URL != "" {
		publisher, err := mq.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
		if err != nil {
			return err
		}
		defer publisher.Close()

		channels = append(channels, notification.NewEventChannel(publisher))
	}

	notifier := notification.NewService(store.Notifications(), store.Users(), logger, channels...)
	gateway := payment.NewStripeGateway(cfg.Stripe.WebhookSecret, payment.WithTimeout(cfg.Stripe.Timeout))
	limiter := ratelimit.NewLimiter(redisClient, "payments", cfg.RateLimit.Requests, cfg.RateLimit.Window)

	app, err := NewApp(cfg, logger, store, gateway, notifier, limiter)
	if err != nil {
		return err
	}

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(
			notification.NewDispatcher(store.Notifications(), notifier, logger),
			app.Bookings(),
			logger,
			scheduler.Config{
				ReminderSchedule:   cfg.Scheduler.ReminderSchedule,
				CompletionSchedule: cfg.Scheduler.CompletionSchedule,
				HoldSchedule:       cfg.Scheduler.HoldSchedule,
			},
		)

		err = sched.Start()
		if err != nil {
			return err
		}
		defer func() {
			<-sched.Stop().Done()
		}()
	}

	return app.serve()
}

func newOpenAPIRouter() (routers.Router, error) {
	swagger, err := api.GetSwagger()
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}

	// Requests are matched by path only; the declared servers would pin the host.
	swagger.Servers = nil

	return gorillamux.NewRouter(swagger)
}

func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	opts := &redis.Options{Addr: cfg.URL}

	if strings.Contains(cfg.URL, "://") {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, err
		}
		opts = parsed
	}

	opts.MaxIdleConns = cfg.MaxIdleConns
	opts.MaxActiveConns = cfg.MaxOpenConns
	opts.ConnMaxIdleTime = cfg.MaxIdleTime

	rdb := redis.NewClient(opts)

	err := errors.Join(redisotel.InstrumentTracing(rdb), redisotel.InstrumentMetrics(rdb))
	if err != nil {
		rdb.Close()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = rdb.Ping(ctx).Err()
	if err != nil {
		rdb.Close()
		return nil, err
	}

	return rdb, nil
}

func NewDatabasePool(cfg DBConfig) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.MaxIdleTime
	config.MaxConns = int32(cfg.MaxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (app *Application) serve() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		shutdownError <- srv.Shutdown(ctx)
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}
