package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	sessionapi "go.pilab.hu/sessiongate/api/echo"
	"go.pilab.hu/sessiongate/cache"
	redisstore "go.pilab.hu/sessiongate/cache/redis"
	"go.pilab.hu/sessiongate/config"
	"go.pilab.hu/sessiongate/internal/auth"
	"go.pilab.hu/sessiongate/internal/metrics"
	"go.pilab.hu/sessiongate/internal/request"
	"go.pilab.hu/sessiongate/internal/server"
	"go.pilab.hu/sessiongate/log"
	gate "go.pilab.hu/sessiongate/middleware"
	"go.pilab.hu/sessiongate/mongodb"
	"go.pilab.hu/sessiongate/services"
	"go.pilab.hu/sessiongate/token"
	"go.pilab.hu/sessiongate/tracing"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	appLogger      log.Logger
	httpServer     *http.Server
	tracerProvider *sdktrace.TracerProvider
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		zerolog.New(os.Stdout).With().Timestamp().Logger().
			Fatal().Err(err).Msg("Failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)
	appLogger = log.NewZerologAdapter(logLevel, cfg.LogPretty)

	ctx := context.Background()
	appLogger.Info(ctx, "Starting sessiongate server...", map[string]interface{}{
		"http_port":     cfg.HTTPPort,
		"store_backend": cfg.SessionStoreBackend,
		"log_level":     logLevel.String(),
		"issuer":        cfg.Issuer,
	})

	tp, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize TracerProvider", err)
	}
	tracerProvider = tp

	metrics.InitCustomMetrics(prometheus.DefaultRegisterer)

	// User store
	if initErr := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); initErr != nil {
		appLogger.Fatal(ctx, "Failed to initialize MongoDB connection", initErr)
	}
	userRepo, err := mongodb.NewUserRepository(ctx, mongodb.GetDB())
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize UserRepository", err)
	}

	// Session store
	var sessionStore cache.SessionStore
	switch cfg.SessionStoreBackend {
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		if pingErr := client.Ping(ctx).Err(); pingErr != nil {
			appLogger.Fatal(ctx, "Failed to connect to Redis", pingErr)
		}
		sessionStore = redisstore.NewSessionStore(client, cfg.RedisKeyPrefix)
	default:
		sessionStore = cache.NewMemorySessionStore(cfg.AccessTokenTTL())
	}

	// Core services
	codec := token.NewCodec(cfg.SigningSecret, cfg.Issuer)
	hasher := auth.NewBcryptPasswordHasher(0)
	userService := services.NewUserService(userRepo, hasher)
	sessionService := services.NewSessionService(codec, sessionStore, userRepo, cfg.AccessTokenTTL())

	// HTTP surface
	resolver := request.NewResolver(cfg.CDNHosts)
	cookies := sessionapi.NewCookieStore(cfg.SecureCookies)
	api := sessionapi.NewSessionAPI(
		userService, sessionService, cookies, resolver,
		cfg.TokenCookieName, cfg.RefreshTokenCookieName,
	)

	skip := gate.NewSkipTable(api.SkipRoutes()...)
	skip.Add(http.MethodGet, "/healthz")
	skip.Add(http.MethodGet, "/metrics")

	authGate := gate.NewGate(
		codec, sessionStore, resolver, cookies,
		cfg.TokenCookieName, cfg.StoreTimeout(), skip,
	)

	httpServer = server.NewHTTPServer(cfg, api, authGate)

	go func() {
		appLogger.Info(ctx, "HTTP server listening", map[string]interface{}{"addr": httpServer.Addr})
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			appLogger.Fatal(ctx, "HTTP server failed", serveErr)
		}
	}()

	waitForShutdown(ctx)
}

func waitForShutdown(ctx context.Context) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info(ctx, "Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "HTTP server shutdown failed", err)
	}
	if err := mongodb.Disconnect(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "MongoDB disconnect failed", err)
	}
	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			zlog.Warn().Err(err).Msg("TracerProvider shutdown failed")
		}
	}
	appLogger.Info(shutdownCtx, "Shutdown complete.")
}
