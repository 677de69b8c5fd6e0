package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	rdb "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/gmailbridge/internal/audit"
	"github.com/dropDatabas3/gmailbridge/internal/bridge"
	"github.com/dropDatabas3/gmailbridge/internal/cache"
	"github.com/dropDatabas3/gmailbridge/internal/cert"
	"github.com/dropDatabas3/gmailbridge/internal/config"
	"github.com/dropDatabas3/gmailbridge/internal/email"
	bridgectl "github.com/dropDatabas3/gmailbridge/internal/http/controllers/bridge"
	healthctl "github.com/dropDatabas3/gmailbridge/internal/http/controllers/health"
	"github.com/dropDatabas3/gmailbridge/internal/http/router"
	"github.com/dropDatabas3/gmailbridge/internal/keys"
	"github.com/dropDatabas3/gmailbridge/internal/metrics"
	"github.com/dropDatabas3/gmailbridge/internal/oauth"
	"github.com/dropDatabas3/gmailbridge/internal/oauth/google"
	"github.com/dropDatabas3/gmailbridge/internal/oauth/openid"
	"github.com/dropDatabas3/gmailbridge/internal/observability/logger"
	"github.com/dropDatabas3/gmailbridge/internal/proof"
	"github.com/dropDatabas3/gmailbridge/internal/rate"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "configs/config.yaml", "ruta del YAML de configuración")
	flag.Parse()

	// .env es opcional; en prod las vars vienen del entorno.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.L().Fatal("config load failed", logger.Err(err))
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.App.LogLevel,
		ServiceName: "gmailbridge",
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	// --- Backend de sesiones ---
	cacheClient, err := cache.New(cache.Config{
		Kind:     cfg.Cache.Kind,
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		log.Fatal("cache init failed", logger.Err(err))
	}
	defer func() { _ = cacheClient.Close() }()

	// --- Claves de firma ---
	km := keys.NewManager(keys.Config{
		PublicPath:   cfg.Keys.PublicPath,
		PrivatePath:  cfg.Keys.PrivatePath,
		WellKnownDir: cfg.Keys.WellKnownDir,
	})
	if _, err := km.Private(); err != nil {
		log.Fatal("signing keys unavailable", logger.Err(err))
	}
	defer km.Shutdown()

	// --- Provider upstream ---
	var provider oauth.Provider
	switch cfg.Provider.Kind {
	case "google_openid":
		provider = openid.New("", cfg.RedirectURL(), cfg.Provider.Timeout)
	default:
		provider = google.New(cfg.Provider.ClientID, cfg.Provider.ClientSecret,
			cfg.RedirectURL(), cfg.Provider.Timeout)
	}

	// --- Auditoría ---
	var recorder audit.Recorder
	if cfg.Audit.Driver == "postgres" {
		pg, err := audit.NewPGRecorder(context.Background(), cfg.Audit.DSN)
		if err != nil {
			log.Fatal("audit database unavailable", logger.Err(err))
		}
		recorder = pg
	} else {
		recorder = audit.NewLogRecorder()
	}
	defer recorder.Close()

	// --- Métricas ---
	metricsHandler, err := metrics.Register(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal("metrics registration failed", logger.Err(err))
	}

	// --- Orquestador ---
	norm := email.New(cfg.Bridge.RestrictToDomain)
	service := bridge.New(
		norm,
		provider,
		proof.New(cacheClient, norm, cfg.Session.TTL),
		cert.NewIssuer(cfg.Bridge.Issuer, km,
			cfg.Bridge.CertDefaultDuration, cfg.Bridge.CertMaxDuration, cfg.Bridge.ClockSkew),
		recorder,
		metrics.Flow{},
	)

	// --- Rate limiting ---
	var limiter rate.Limiter
	if cfg.Rate.Enabled {
		if cfg.Cache.Kind == "redis" {
			limiter = rate.NewRedisLimiter(rdb.NewClient(&rdb.Options{
				Addr:     cfg.Cache.Redis.Addr,
				Password: cfg.Cache.Redis.Password,
				DB:       cfg.Cache.Redis.DB,
			}), cfg.Cache.Redis.Prefix+":rl:", cfg.Rate.Max, cfg.Rate.Window)
		} else {
			limiter = rate.NewMemoryLimiter(cfg.Rate.Max, cfg.Rate.Window)
		}
	}

	handler := router.New(router.Config{
		Bridge:        bridgectl.NewControllers(service, km),
		Health:        healthctl.NewHealthController(cacheClient),
		SessionCookie: cfg.Session.CookieName,
		SessionTTL:    cfg.Session.TTL,
		SecureCookies: cfg.Session.Secure,
		Limiter:       limiter,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var metricsSrv *http.Server
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler)
		metricsSrv = &http.Server{
			Addr:              cfg.Server.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("bridge listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("public_url", cfg.Server.PublicURL),
			zap.String("provider", cfg.Provider.Kind))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if metricsSrv != nil {
		g.Go(func() error {
			log.Info("metrics listening", zap.String("addr", cfg.Server.MetricsAddr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", logger.Err(err))
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
