package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/rhum-atelier/internal/config"
	"github.com/iliyamo/rhum-atelier/internal/database"
	"github.com/iliyamo/rhum-atelier/internal/handler"
	"github.com/iliyamo/rhum-atelier/internal/middleware"
	"github.com/iliyamo/rhum-atelier/internal/notify"
	"github.com/iliyamo/rhum-atelier/internal/payment"
	"github.com/iliyamo/rhum-atelier/internal/queue"
	"github.com/iliyamo/rhum-atelier/internal/repository"
	"github.com/iliyamo/rhum-atelier/internal/router"
	"github.com/iliyamo/rhum-atelier/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DSN(), database.Pool{
		MaxOpen:     cfg.DBMaxOpenConns,
		MaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	cacheCfg := config.LoadCacheConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Data access
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	workshops := repository.NewWorkshopRepo(db)
	products := repository.NewProductRepo(db)
	orders := repository.NewOrderRepo(db)
	participants := repository.NewParticipantRepo(db)
	store := service.NewSQLStore(db)
	directory := service.UserDirectory{Users: users}

	// Payment confirmation pipeline
	var publisher service.EventPublisher
	if cfg.AMQPURL != "" {
		publisher = queue.NewPublisher(cfg.AMQPURL)
		notifier := &service.ConfirmationNotifier{
			Orders:  orders,
			Users:   users,
			Mailer:  notify.NewMailer(cfg.Mail.APIKey, cfg.Mail.From),
			BaseURL: cfg.PublicBaseURL,
		}
		go func() {
			if err := queue.NewConsumer(cfg.AMQPURL, notifier.HandleOrderConfirmed).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("order-consumer stopped: %v", err)
			}
		}()
	} else {
		log.Printf("RABBITMQ_URL not set; order confirmations are not emailed")
	}
	finalizer := service.NewFinalizer(store, publisher)

	sweeper := &service.Sweeper{Orders: orders, Tokens: tokens, TTL: cfg.PendingOrderTTL}
	go sweeper.Run(ctx)

	checkout := &service.CheckoutService{
		Catalog:   service.RepoCatalog{Workshops: workshops, Products: products},
		Directory: directory,
		Store:     store,
		Gateway:   payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.Currency, cfg.Stripe.SuccessURL, cfg.Stripe.CancelURL),
	}
	cohorts := service.NewCohortService(store, directory, participants)

	// HTTP
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger(), echomw.Recover())

	publicLimit := middleware.NewTokenBucket(config.LoadPublicRateLimitConfig(), rdb)
	apiLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret, publicLimit)
	router.RegisterCatalog(e, &handler.CatalogHandler{Workshops: workshops, Products: products},
		middleware.NewRedisCache(cacheCfg, rdb))
	cohortHandler := &handler.CohortHandler{Cohorts: cohorts, Users: users, Participants: participants, BaseURL: cfg.PublicBaseURL}
	router.RegisterPublicCertify(e, cohortHandler, publicLimit)
	router.RegisterCustomer(e, cfg.JWTSecret, apiLimit,
		&handler.MemberHandler{Directory: directory},
		&handler.CheckoutHandler{Checkout: checkout, Users: users},
		&handler.OrderHandler{Orders: orders, Users: users, BaseURL: cfg.PublicBaseURL},
		cohortHandler,
	)
	router.RegisterAdmin(e, &handler.AdminHandler{
		Users: users, Workshops: workshops, Products: products, Orders: orders,
		Redis: rdb, CachePrefix: cacheCfg.Prefix,
	}, cfg.JWTSecret)
	router.RegisterWebhook(e, &handler.WebhookHandler{
		Processor: payment.NewWebhookProcessor(cfg.Stripe.WebhookSecret),
		Finalizer: finalizer,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
