package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"staynest/internal/app/commands"
	availabilityapp "staynest/internal/app/handlers/availability"
	bookingapp "staynest/internal/app/handlers/booking"
	"staynest/internal/app/middleware"
	appoutbox "staynest/internal/app/outbox"
	"staynest/internal/app/queries"
	"staynest/internal/app/uow"
	domainbooking "staynest/internal/domain/booking"
	"staynest/internal/domain/listings"
	"staynest/internal/domain/pricing"
	"staynest/internal/domain/shared/money"
	kafkabroker "staynest/internal/infra/broker/kafka"
	"staynest/internal/infra/config"
	mongodb "staynest/internal/infra/db/mongo"
	ginserver "staynest/internal/infra/http/gin"
	"staynest/internal/infra/obs"
	infraoutbox "staynest/internal/infra/outbox"
	"staynest/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("using fallback configuration", "error", err)
		cfg.Env = env
		cfg.HTTPAddr = getenv("HTTP_ADDR", ":8080")
		cfg.ServiceFeeBP = pricing.DefaultRates().ServiceFeeBP
		cfg.TaxRateBP = pricing.DefaultRates().TaxBP
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	fixturesPath := getenv("LISTINGS_FIXTURES", "")
	if fixturesPath == "" {
		fixturesPath = defaultListingFixturesPath()
	}
	if err := app.loadListingFixtures(ctx, fixturesPath, logger); err != nil {
		logger.Warn("listing fixtures load failed", "error", err, "path", fixturesPath)
	}

	if app.worker != nil {
		go func() {
			if err := app.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
	if app.closer != nil {
		app.closer()
	}
}

type application struct {
	handlers ginserver.Handlers
	listings listings.Repository
	worker   *infraoutbox.Worker
	ready    func() error
	closer   func()
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (application, error) {
	var (
		uowFactory uow.Factory
		outboxDest appoutbox.Outbox
		idStore    middleware.IdempotencyStore
		listRepo   listings.Repository
		ready      = func() error { return nil }
		closer     func()
		worker     *infraoutbox.Worker
	)

	if cfg.MongoURI != "" {
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return application{}, fmt.Errorf("mongo connect: %w", err)
		}
		listingsRepo := mongodb.NewListingRepository(client.DB)
		uowFactory = mongodb.Factory{
			DB:               client.DB,
			ListingsRepo:     listingsRepo,
			BookingRepo:      mongodb.NewBookingRepository(client.DB),
			AvailabilityRepo: mongodb.NewAvailabilityRepository(client.DB),
		}
		store := infraoutbox.NewStore(client.DB)
		outboxDest = store
		idStore = mongodb.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL)
		listRepo = listingsRepo
		ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}

		if len(cfg.KafkaBrokers) > 0 {
			producer, err := kafkabroker.NewProducer(cfg.KafkaBrokers, nil)
			if err != nil {
				return application{}, fmt.Errorf("kafka producer: %w", err)
			}
			worker = &infraoutbox.Worker{
				Store:       store,
				Producer:    producer,
				Interval:    cfg.OutboxPollInterval,
				TopicPrefix: cfg.KafkaTopicPrefix,
				Backoff:     cfg.RetryBackoff,
			}
			closer = func() {
				if err := producer.Close(); err != nil {
					logger.Warn("kafka producer close failed", "error", err)
				}
			}
		} else {
			logger.Info("kafka brokers not configured, outbox events stay queued")
		}
	} else {
		logger.Info("mongo not configured, using in-memory stores")
		factory := memory.NewFactory()
		uowFactory = factory
		outboxDest = memory.NewOutbox()
		idStore = memory.NewIdempotencyStore()
		listRepo = factory.ListingsRepo
	}

	rates := pricing.Rates{ServiceFeeBP: cfg.ServiceFeeBP, TaxBP: cfg.TaxRateBP}
	notice := domainbooking.NoticeRules{
		Flexible: cfg.NoticeFlexible,
		Moderate: cfg.NoticeModerate,
		Strict:   cfg.NoticeStrict,
	}
	encoder := appoutbox.JSONEventEncoder{}

	commandBus := commands.NewInMemoryBus()
	requestHandler := &bookingapp.RequestBookingHandler{
		UoWFactory: uowFactory,
		Rates:      rates,
		Outbox:     outboxDest,
		Encoder:    encoder,
	}
	commands.RegisterHandler(commandBus, bookingapp.RequestBookingCommand{}.Key(), requestHandler)
	cancelHandler := &bookingapp.CancelBookingHandler{
		UoWFactory: uowFactory,
		Notice:     notice,
		Outbox:     outboxDest,
		Encoder:    encoder,
	}
	commands.RegisterHandler(commandBus, bookingapp.CancelBookingCommand{}.Key(), cancelHandler)
	transitions := &bookingapp.TransitionHandler{
		UoWFactory: uowFactory,
		Outbox:     outboxDest,
		Encoder:    encoder,
	}
	commands.RegisterHandler(commandBus, bookingapp.ConfirmBookingCommand{}.Key(), transitions.ConfirmHandler())
	commands.RegisterHandler(commandBus, bookingapp.CompleteBookingCommand{}.Key(), transitions.CompleteHandler())
	commands.RegisterHandler(commandBus, bookingapp.RefundBookingCommand{}.Key(), transitions.RefundHandler())

	queryBus := queries.NewInMemoryBus()
	bookingQueries := &bookingapp.BookingQueryHandler{UoWFactory: uowFactory, Notice: notice}
	queries.RegisterHandler(queryBus, bookingapp.GetBookingQuery{}.Key(), bookingQueries.GetHandler())
	queries.RegisterHandler(queryBus, bookingapp.ListGuestBookingsQuery{}.Key(), bookingQueries.ListGuestHandler())
	queries.RegisterHandler(queryBus, bookingapp.ListHostBookingsQuery{}.Key(), bookingQueries.ListHostHandler())
	calendarHandler := &availabilityapp.GetCalendarHandler{UoWFactory: uowFactory}
	queries.RegisterHandler(queryBus, availabilityapp.GetCalendarQuery{}.Key(), calendarHandler)

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Idempotency(idStore, nil),
		middleware.Transaction(uowFactory, nil),
		middleware.OutboxFlush(outboxDest),
	)
	queryBusWithMiddleware := middleware.ChainQueries(queryBus)

	return application{
		handlers: ginserver.Handlers{
			Booking: ginserver.BookingHandler{
				Commands: commandBusWithMiddleware,
				Queries:  queryBusWithMiddleware,
			},
			Availability: ginserver.AvailabilityHandler{
				Queries: queryBusWithMiddleware,
			},
			AuthMiddleware: ginserver.HeaderAuthMiddleware{}.Handle,
		},
		listings: listRepo,
		worker:   worker,
		ready:    ready,
		closer:   closer,
	}, nil
}

type listingFixture struct {
	ID                 string `json:"id"`
	Host               string `json:"host_id"`
	Title              string `json:"title"`
	City               string `json:"city"`
	Country            string `json:"country"`
	MaxGuests          int    `json:"max_guests"`
	NightlyCents       int64  `json:"nightly_cents"`
	CleaningFeeCents   int64  `json:"cleaning_fee_cents"`
	Currency           string `json:"currency"`
	InstantBook        bool   `json:"instant_book"`
	CancellationPolicy string `json:"cancellation_policy"`
}

func (a application) loadListingFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	if a.listings == nil {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("listing fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("listing fixtures file empty", "path", path)
		return nil
	}

	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now().UTC()
	loaded := 0
	for _, fx := range fixtures {
		currency := fx.Currency
		if currency == "" {
			currency = "USD"
		}
		nightly, err := money.New(fx.NightlyCents, currency)
		if err != nil {
			logger.Warn("fixture skipped", "listing_id", fx.ID, "error", err)
			continue
		}
		cleaning, err := money.New(fx.CleaningFeeCents, currency)
		if err != nil {
			logger.Warn("fixture skipped", "listing_id", fx.ID, "error", err)
			continue
		}
		listing, err := listings.NewListing(listings.CreateParams{
			ID:                 listings.ListingID(fx.ID),
			Host:               listings.HostID(fx.Host),
			Title:              fx.Title,
			City:               fx.City,
			Country:            fx.Country,
			MaxGuests:          fx.MaxGuests,
			Nightly:            nightly,
			CleaningFee:        cleaning,
			InstantBook:        fx.InstantBook,
			CancellationPolicy: fx.CancellationPolicy,
			Now:                now,
		})
		if err != nil {
			logger.Warn("fixture skipped", "listing_id", fx.ID, "error", err)
			continue
		}
		if err := a.listings.Save(ctx, listing); err != nil {
			return fmt.Errorf("save fixture %s: %w", fx.ID, err)
		}
		loaded++
	}
	if loaded > 0 {
		logger.Info("listing fixtures loaded", "count", loaded)
	}
	return nil
}

func defaultListingFixturesPath() string {
	return filepath.Join("fixtures", "listings.json")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
