package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"llm-dispatch/internal/database"
	"llm-dispatch/internal/handlers/messages"
	"llm-dispatch/internal/provider"
	"llm-dispatch/internal/routers"
	"llm-dispatch/internal/shared"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/manifold-inc/manifold-sdk/lib/eflag"
)

func main() {
	// Flags / ENV Variables
	dsn := flag.String("dsn", "", "MySQL DSN")
	redisAddr := flag.String("redis-addr", "", "Redis host:port, empty disables the record cache")
	togetherAPIKey := flag.String("together-api-key", "", "Together API key")
	togetherBaseURL := flag.String("together-base-url", shared.DefaultTogetherBaseURL, "Together API base url")
	providerTimeout := flag.Duration("provider-timeout", shared.DefaultProviderTimeout, "Per call provider timeout, 0 disables")
	corsOrigins := flag.String("cors-origins", strings.Join(shared.DefaultCORSOrigins, ","), "Comma separated allowed origins")
	metricsAPIKey := flag.String("metrics-api-key", "", "Metrics api key")
	listenAddr := flag.String("listen-addr", ":8000", "Listen address")
	debug := flag.Bool("debug", false, "Debug enabled")

	// .env is optional
	_ = godotenv.Load()
	err := eflag.SetFlagsFromEnvironment()
	if err != nil {
		panic(err)
	}
	flag.Parse()

	var logger *zap.Logger
	if *debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic("Failed init logger")
	}
	log := logger.Sugar()
	defer func() {
		_ = log.Sync()
	}()

	db, err := database.Open(*dsn)
	if err != nil {
		panic(fmt.Sprintf("failed opening sql db: %s", err))
	}
	defer func() {
		_ = db.Close()
	}()

	var store messages.Store = database.NewMessageStore(db, log)
	if *redisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     *redisAddr,
			Password: "",
			DB:       0,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			panic(fmt.Sprintf("failed ping to redis db: %s", err))
		}
		defer func() {
			_ = redisClient.Close()
		}()
		store = database.NewCachedStore(database.NewMessageStore(db, log), redisClient, log)
		log.Infow("Record cache enabled", "redis_addr", *redisAddr)
	}

	together, err := provider.NewTogetherClient(provider.Config{
		APIKey:  *togetherAPIKey,
		BaseURL: *togetherBaseURL,
		Timeout: *providerTimeout,
	}, log)
	if err != nil {
		panic(err)
	}

	e := routers.NewServer(routers.ServerConfig{
		Handler:       messages.NewMessageHandler(store, together, log),
		Log:           log,
		CORSOrigins:   shared.SplitList(*corsOrigins),
		MetricsAPIKey: *metricsAPIKey,
	})

	go func() {
		log.Infow("Listening", "addr", *listenAddr)
		if err := e.Start(*listenAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalw("shutting down the server", "error", err)
		}
	}()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), shared.DefaultShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Errorw("failed graceful shutdown", "error", err)
	}
}
