// README: Entry point; loads config, wires stores and services, serves the HTTP API until signalled.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"taxibook/internal/config"
	"taxibook/internal/events"
	httptransport "taxibook/internal/http"
	"taxibook/internal/http/handlers"
	"taxibook/internal/infra"
	"taxibook/internal/logger"
	"taxibook/internal/maps"
	"taxibook/internal/modules/booking"
	"taxibook/internal/modules/pricing"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		fmt.Println(config.Usage())
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := logger.New(&cfg.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *pgxpool.Pool
	if cfg.DB.DSN != "" {
		db, err = infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			log.WithError(err).Fatal("connect db")
		}
		defer db.Close()
		if err := infra.Migrate(ctx, db, cfg.DB.MigrationsDir); err != nil {
			log.WithError(err).Fatal("apply migrations")
		}
	}

	rates, err := loadRates(ctx, cfg.Pricing, db, log)
	if err != nil {
		log.WithError(err).Fatal("load rate table")
	}
	pricingSvc := pricing.NewService(rates)

	var repo booking.Repository
	if db != nil {
		repo = booking.NewStore(db)
	} else {
		log.Warn("TAXI_DB_DSN not set; bookings are kept in memory")
		repo = booking.NewMemoryStore()
	}

	var distance maps.DistanceProvider
	var places handlers.PlaceFinder
	if cfg.Maps.APIKey != "" {
		routes, err := maps.NewRouteService(cfg.Maps.APIKey, cfg.Maps.Timeout)
		if err != nil {
			log.WithError(err).Fatal("maps route service")
		}
		distance = routes
		if cfg.Redis.Addr != "" {
			rdb, err := infra.NewRedis(ctx, cfg.Redis.Addr)
			if err != nil {
				log.WithError(err).Fatal("connect redis")
			}
			defer rdb.Close()
			distance = maps.NewCachedDistance(routes, rdb, cfg.Maps.DistanceCacheTTL, log)
		}
		placesSvc, err := maps.NewPlacesService(cfg.Maps.APIKey, cfg.Maps.Region, cfg.Maps.Timeout)
		if err != nil {
			log.WithError(err).Fatal("maps places service")
		}
		places = placesSvc
	} else {
		log.Warn("TAXI_MAPS_API_KEY not set; distance lookup and place search disabled")
	}

	var publisher booking.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := events.NewProducer(&cfg.Kafka, log)
		if err != nil {
			log.WithError(err).Fatal("kafka producer")
		}
		defer producer.Close()
		publisher = producer
	}

	deps := httptransport.ServerDeps{
		Pricing:  pricingSvc,
		Bookings: booking.NewService(repo, pricingSvc, distance, publisher, log),
		Places:   places,
		Log:      log,
	}
	if cfg.Firebase.ProjectID != "" {
		verifier, err := infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			log.WithError(err).Fatal("firebase init")
		}
		deps.Verifier = verifier
	} else {
		log.Warn("TAXI_FIREBASE_PROJECT_ID not set; booking routes are unauthenticated")
	}

	server := httptransport.NewServer(cfg.HTTP.Addr, deps)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Run() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Fatal("http server")
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("http shutdown")
		}
	}
}

// loadRates builds the rate table from the configured source. Environment
// overrides apply to the built-in table and to the db source, whose
// surcharges come from the built-in table.
func loadRates(ctx context.Context, cfg config.PricingConfig, db *pgxpool.Pool, log *logger.Logger) (*pricing.RateTable, error) {
	base := pricing.DefaultRateTableConfig()
	base.Currency = cfg.Currency
	base.Timezone = cfg.Timezone
	base.Surcharges.FreeWaitingMinutes = cfg.FreeWaitingMinutes

	switch strings.ToLower(cfg.RateSource) {
	case config.RateSourceFile:
		log.WithField("path", cfg.RateFile).Info("loading rate file")
		return pricing.LoadRateFile(cfg.RateFile)
	case config.RateSourceDB:
		store := pricing.NewStore(db)
		rates, err := store.LoadRateTable(ctx, base)
		if errors.Is(err, pricing.ErrNoRates) {
			log.Info("rate tables empty; seeding built-in tariff")
			if err := store.Seed(ctx, base); err != nil {
				return nil, err
			}
			return store.LoadRateTable(ctx, base)
		}
		return rates, err
	default:
		return pricing.NewRateTable(base)
	}
}
