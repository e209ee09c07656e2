package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iliyamo/jikgumate/internal/config"
	"github.com/iliyamo/jikgumate/internal/database"
	"github.com/iliyamo/jikgumate/internal/handler"
	"github.com/iliyamo/jikgumate/internal/logging"
	"github.com/iliyamo/jikgumate/internal/middleware"
	"github.com/iliyamo/jikgumate/internal/queue"
	"github.com/iliyamo/jikgumate/internal/repository"
	"github.com/iliyamo/jikgumate/internal/router"
	"github.com/iliyamo/jikgumate/internal/service"
	"github.com/iliyamo/jikgumate/internal/utils"
)

func main() {
	_ = godotenv.Load() // .env is optional; real environment wins

	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("info", "json")
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, db, database.DialectMySQL); err != nil {
			log.Fatal().Err(err).Msg("migrate database")
		}
		log.Info().Msg("schema applied")
	}

	rdb := config.NewRedisClient(ctx, cfg.Redis)
	if rdb == nil {
		log.Warn().Msg("redis unavailable; rate limiting in-process, response cache off")
	} else {
		defer rdb.Close()
	}

	var pub queue.Publisher = queue.NoopPublisher{}
	if cfg.AMQP.PublishEnabled {
		pub = queue.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.OrderQueue)
	}
	if cfg.AMQP.ConsumerEnabled {
		go runConsumer(ctx, cfg.AMQP, log)
	}

	issuer := utils.NewTokenIssuer(cfg.Auth)
	sessions := service.NewSessionService(db, issuer, cfg.Auth, log)
	handlers := router.Handlers{
		Auth:     handler.NewAuthHandler(cfg.Auth, sessions),
		Users:    handler.NewUserHandler(sessions),
		Products: handler.NewProductHandler(repository.NewProductRepo(db), cfg.Cache, rdb, log),
		Carts:    handler.NewCartHandler(service.NewCartService(db)),
		Orders:   handler.NewOrderHandler(service.NewOrderService(db, pub, log)),
		Health:   handler.NewHealthHandler(db, rdb),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.Metrics())
	e.Use(middleware.NewTokenBucket(cfg.RateLimit, rdb, log))
	e.Use(echomw.ContextTimeout(cfg.RequestTimeout))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	router.Register(e, router.Routes(handlers, router.Options{
		AuthLimiter:  middleware.NewTokenBucket(cfg.RateLimit.ForAuth(), rdb, log),
		CatalogCache: middleware.NewRedisCache(cfg.Cache, rdb, log),
	}), issuer)

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// runConsumer appends order.placed events to the order log until ctx ends.
func runConsumer(ctx context.Context, cfg config.AMQPConfig, log zerolog.Logger) {
	err := queue.StartOrderConsumer(ctx, queue.ConsumerConfig{
		URL: cfg.URL, Queue: cfg.OrderQueue, LogDir: cfg.LogDir,
	}, log)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("order consumer stopped")
	}
}
