package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	glog "github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"

	"carrental/internal/cache"
	"carrental/internal/client"
	"carrental/internal/config"
	"carrental/internal/events"
	"carrental/internal/nav"
	"carrental/internal/resource"
	"carrental/internal/session"
	"carrental/internal/web"
)

const evictInterval = time.Minute

func main() {
	config.LoadDotEnv()
	cfg := config.LoadStorefront()

	// Money goes to the browser as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	logger := glog.New("storefront")
	logger.SetLevel(glog.INFO)

	api := client.New(cfg.BackendURL,
		client.WithTimeout(cfg.BackendTimeout),
		client.WithLogger(logger),
	)

	var storage session.Storage
	switch cfg.SessionStorage {
	case "memory":
		storage = session.NewMemoryStorage()
	default:
		cacheClient := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer cacheClient.Close()
		if err := cacheClient.Ping(context.Background()); err != nil {
			log.Printf("Warning: redis unavailable at %s, sessions will not persist: %v", cfg.Redis.Addr, err)
		}
		storage = session.NewRedisStorage(cacheClient.Redis(), cfg.SessionPrefix, cfg.SessionTTL)
	}

	manager := session.NewManager(storage, api, session.ManagerConfig{
		IdleTTL:         cfg.SessionIdleTTL,
		ValidateTTL:     cfg.TokenValidateTTL,
		ValidateTimeout: cfg.BackendTimeout,
		Logger:          logger,
	})

	sinks := []nav.Sink{nav.LogSink{Log: logger}}
	if cfg.RabbitMQURL != "" {
		publisher := events.NewPublisher(cfg.RabbitMQURL, events.DefaultExchange)
		defer publisher.Close()
		sinks = append(sinks, publisher)
	}
	navCtl := nav.New(logger, sinks...)

	registry := web.NewRegistry(manager, api, resource.Options{
		StaleTime: cfg.CacheStaleTime,
		Retry:     cfg.QueryRetry,
	}, logger)

	srv := web.New(registry, api, navCtl, web.Config{
		CookieSecure:    cfg.CookieSecure,
		LoginRatePerMin: cfg.LoginRatePerMin,
		Logger:          logger,
	})
	e := web.NewEcho(srv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go navCtl.Run(ctx, manager.Events())
	go registry.Run(ctx, evictInterval)

	go func() {
		addr := ":" + cfg.Port
		log.Printf("Storefront listening on %s (backend %s)", addr, cfg.BackendURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server start: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	manager.Close()
}
