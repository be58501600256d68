package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/tokengate/modules/billing"
	feedmodule "github.com/dmitrymomot/tokengate/modules/feed"
	"github.com/dmitrymomot/tokengate/modules/gate"
	"github.com/dmitrymomot/tokengate/pkg/checkout"
	"github.com/dmitrymomot/tokengate/pkg/config"
	"github.com/dmitrymomot/tokengate/pkg/docstore"
	"github.com/dmitrymomot/tokengate/pkg/httpserver"
	"github.com/dmitrymomot/tokengate/pkg/identity"
	"github.com/dmitrymomot/tokengate/pkg/logger"
	"github.com/dmitrymomot/tokengate/pkg/notifications"
	"github.com/dmitrymomot/tokengate/pkg/plans"
	redisconn "github.com/dmitrymomot/tokengate/pkg/redis"
	"github.com/dmitrymomot/tokengate/pkg/siteconfig"
)

type appConfig struct {
	Log      logger.Config
	HTTP     httpserver.Config
	Mongo    docstore.Config
	Redis    redisconn.Config
	Checkout checkout.Config
	Billing  billing.Config
	Feed     feedmodule.Config
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.NewFromConfig(cfg.Log)
	logger.SetAsDefault(log)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("service stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	mongoClient, err := docstore.Connect(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	channel := docstore.NewMongoChannel(
		mongoClient.Database(cfg.Mongo.Database),
		docstore.WithMongoLogger(log),
	)

	rdb, err := redisconn.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	catalog := plans.NewCachedSource(
		plans.NewDocstoreSource(channel, plans.WithSourceLogger(log)),
		rdb,
		plans.WithCacheLogger(log),
	)

	ident := identity.NewService(identity.NewMemoryProvider(), channel, identity.WithServiceLogger(log))

	siteWatcher, err := siteconfig.NewWatcher(ctx, channel, siteconfig.WithWatcherLogger(log))
	if err != nil {
		return err
	}
	defer siteWatcher.Close()

	broker := checkout.NewBroker(channel, checkout.RedirectorFunc(func(ctx context.Context, sessionID string) error {
		// The handoff to the payment page happens in the billing module via
		// a 303; this hook only records that a session settled.
		log.InfoContext(ctx, "checkout session handed off", logger.CheckoutID(sessionID))
		return nil
	}), cfg.Checkout, checkout.WithLogger(log))

	billingSvc := billing.NewService(cfg.Billing, catalog, ident, broker, billing.WithLogger(log))
	feedSvc := feedmodule.NewService(cfg.Feed, notifications.NewFeed(channel, notifications.WithFeedLogger(log)), feedmodule.WithLogger(log))

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(gate.Middleware(ident.CurrentUser, siteWatcher.Current, log))

	r.Get("/healthz", httpserver.Healthcheck(log))
	r.Get("/readyz", httpserver.Healthcheck(log,
		docstore.Healthcheck(mongoClient),
		redisconn.Healthcheck(rdb),
	))

	r.Mount("/billing", billingSvc.Handler())
	r.Mount("/feed", feedSvc.Handler())
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		view, _ := gate.FromContext(r.Context())
		w.Write([]byte(string(view)))
	})

	return httpserver.New(cfg.HTTP, httpserver.WithLogger(log)).Run(ctx, r)
}
