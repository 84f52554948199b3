package integration_test

import (
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spacehub/rental-api/internal/app"
	"github.com/spacehub/rental-api/internal/mailer"
	"github.com/spacehub/rental-api/internal/notification"
	"github.com/spacehub/rental-api/internal/payment"
	"github.com/spacehub/rental-api/internal/ratelimit"
	"github.com/spacehub/rental-api/internal/repository"
)

type TestApp struct {
	App         *app.Application
	DB          *pgxpool.Pool
	RedisClient *redis.Client
	Stripe      *payment.FakeStripe
	Mailer      *mailer.Outbox
	Dispatcher  *notification.Dispatcher
}

func newTestApp(cfg app.Config) (*TestApp, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	outbox := mailer.NewOutbox()
	fakeStripe := payment.NewFakeStripe()

	db, err := app.NewDatabasePool(cfg.DB)
	if err != nil {
		return nil, err
	}

	redisClient, err := app.NewRedisClient(cfg.Redis)
	if err != nil {
		db.Close()
		return nil, err
	}

	store := repository.NewPostgresStore(db)

	notifier := notification.NewService(
		store.Notifications(),
		store.Users(),
		logger,
		notification.NewEmailChannel(outbox),
	)

	gateway := payment.NewStripeGateway(
		cfg.Stripe.WebhookSecret,
		payment.WithStripeAPI(fakeStripe),
		payment.WithRetry(payment.Retry{Attempts: 1}),
	)

	limiter := ratelimit.NewLimiter(redisClient, "payments", cfg.RateLimit.Requests, cfg.RateLimit.Window)

	application, err := app.NewApp(cfg, logger, store, gateway, notifier, limiter)
	if err != nil {
		redisClient.Close()
		db.Close()
		return nil, err
	}

	return &TestApp{
		App:         application,
		DB:          db,
		RedisClient: redisClient,
		Stripe:      fakeStripe,
		Mailer:      outbox,
		Dispatcher:  notification.NewDispatcher(store.Notifications(), notifier, logger),
	}, nil
}

func (a *TestApp) Close() {
	a.RedisClient.Close()
	a.DB.Close()
}
