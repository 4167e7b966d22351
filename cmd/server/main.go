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

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/lube-storefront/internal/apiclient"
	"github.com/iliyamo/lube-storefront/internal/booking"
	"github.com/iliyamo/lube-storefront/internal/cache"
	"github.com/iliyamo/lube-storefront/internal/config"
	"github.com/iliyamo/lube-storefront/internal/handler"
	"github.com/iliyamo/lube-storefront/internal/i18n"
	"github.com/iliyamo/lube-storefront/internal/metrics"
	"github.com/iliyamo/lube-storefront/internal/middleware"
	"github.com/iliyamo/lube-storefront/internal/notify"
	"github.com/iliyamo/lube-storefront/internal/obs"
	"github.com/iliyamo/lube-storefront/internal/queue"
	"github.com/iliyamo/lube-storefront/internal/router"
	"github.com/iliyamo/lube-storefront/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, cfg.Service, cfg.Env, cfg.OTLPEndpoint, logger)
	if err != nil {
		logger.Fatal("tracer init failed", zap.Error(err))
	}

	cacheCfg, err := config.LoadCacheConfig()
	if err != nil {
		logger.Fatal("cache config", zap.Error(err))
	}
	rlCfg, err := config.LoadRateLimitConfig()
	if err != nil {
		logger.Fatal("rate limit config", zap.Error(err))
	}
	redisCfg, err := config.LoadRedisConfig()
	if err != nil {
		logger.Fatal("redis config", zap.Error(err))
	}

	var rdb *redis.Client
	if cacheCfg.Backend == "redis" || cfg.SessionBackend == "redis" || rlCfg.Enabled {
		if rdb = config.NewRedisClient(redisCfg); rdb == nil {
			logger.Warn("redis unreachable, using in-process cache, sessions and rate limits", zap.String("addr", redisCfg.Address()))
		} else {
			defer func() { _ = rdb.Close() }()
		}
	}

	var store cache.Cache = cache.NewMemory()
	if cacheCfg.Backend == "redis" && rdb != nil {
		store = cache.NewRedis(rdb, cacheCfg.Prefix)
	}
	var sessStore session.Store = session.NewMemoryStore()
	if cfg.SessionBackend == "redis" && rdb != nil {
		sessStore = session.NewRedisStore(rdb, "session", cfg.SessionTTL)
	}

	sessions := session.NewProvider(sessStore, logger.Named("session"))
	hub := notify.NewHub(logger.Named("notify"))
	hub.OnPublish(func(s notify.Severity) { metrics.NotificationsPublished.WithLabelValues(string(s)).Inc() })
	go sessions.Watch(ctx, cfg.SessionCheckInterval)
	go followSessions(ctx, sessions, hub, cfg.Lang)

	api := apiclient.New(apiclient.Config{
		BaseURL:          cfg.APIBaseURL,
		Timeout:          cfg.APITimeout,
		Retries:          cfg.APIRetries,
		RetryDelay:       cfg.APIRetryDelay,
		ProductsTTL:      cacheCfg.ProductsTTL,
		AdminProductsTTL: cacheCfg.AdminProductsTTL,
	}, sessions, store, logger.Named("api"))

	var events booking.EventSink
	if cfg.AMQPURL != "" {
		events = queue.NewPublisher(cfg.AMQPURL, logger.Named("rabbitmq"))
		audit := queue.NewAuditConsumer(cfg.AMQPURL, "", logger.Named("audit"))
		go func() {
			if err := audit.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}

	renderer, err := handler.NewRenderer()
	if err != nil {
		logger.Fatal("templates", zap.Error(err))
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer

	checks := map[string]handler.Check{}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	router.RegisterRoutes(e, handler.New(api, sessions, hub, events, logger.Named("http")), router.Options{
		Identity: middleware.IdentityConfig{
			Cookie:      cfg.SessionCookie,
			TTL:         cfg.SessionTTL,
			Secure:      cfg.Production(),
			DefaultLang: cfg.Lang,
		},
		RateLimit: rlCfg,
		Redis:     rdb,
		CSRFKey:   []byte(cfg.CSRFKey),
		Secure:    cfg.Production(),
		Checks:    checks,
		Log:       logger.Named("http"),
	})

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("api", cfg.APIBaseURL))
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Error("tracer shutdown", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if cfg.Production() {
		zc = zap.NewProductionConfig()
	}
	lvl, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc.Level = lvl
	l, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return l.With(zap.String("service", cfg.Service)), nil
}

// followSessions counts cleared sessions, drops their pending confirmations
// and tells visitors whose session ran out in the background.
func followSessions(ctx context.Context, p *session.Provider, hub *notify.Hub, lang string) {
	events, cancel := p.Subscribe()
	defer cancel()
	printer := i18n.Printer(i18n.Match(lang))
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind != session.EventCleared {
				continue
			}
			metrics.SessionsCleared.WithLabelValues(ev.Reason).Inc()
			hub.Forget(ev.SID)
			if ev.Reason == session.ReasonExpired {
				n := notify.NewScope(hub, ev.SID, printer)
				n.Warning(n.T(i18n.MsgSessionExpired))
			}
		}
	}
}
