package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/MrSnakeDoc/sitewatch/internal/config"
	"github.com/MrSnakeDoc/sitewatch/internal/httpserver"
	"github.com/MrSnakeDoc/sitewatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/sitewatch/internal/index"
	"github.com/MrSnakeDoc/sitewatch/internal/logger"
	"github.com/MrSnakeDoc/sitewatch/internal/poller"
	"github.com/MrSnakeDoc/sitewatch/internal/probe"
	"github.com/MrSnakeDoc/sitewatch/internal/redis"
	"github.com/MrSnakeDoc/sitewatch/internal/scheduler"
	"github.com/MrSnakeDoc/sitewatch/internal/sources/roster"
	"github.com/MrSnakeDoc/sitewatch/internal/store/database"
	redisstore "github.com/MrSnakeDoc/sitewatch/internal/store/redis"
	"github.com/MrSnakeDoc/sitewatch/internal/telemetry"
	"github.com/MrSnakeDoc/sitewatch/internal/version"
	"github.com/MrSnakeDoc/sitewatch/internal/views"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	db          *database.Store
	memIndex    *index.MemoryIndex
	views       *views.Registry
	stopViews   context.CancelFunc
	reloader    *scheduler.RosterReloader
	reaper      *scheduler.ViewReaper
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Redis is optional: it mirrors the roster and caches reports
	var redisClient *goredis.Client
	var store *redisstore.Store
	if cfg.RedisEnabled() {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.Connect(context.Background(), redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
		}, loggerClient)
		if err != nil {
			loggerClient.Warn("redis unavailable, continuing without roster mirror and report cache",
				logger.Error(err))
		} else {
			redisClient = client
			store = redisstore.NewStore(client)
			loggerClient.Info("Redis initialized successfully")
		}
	} else {
		loggerClient.Info("redis not configured, roster mirror and report cache disabled")
	}

	memIndex := index.NewMemoryIndex()

	// Warm the index from the mirror so the dashboard has sites before the first load
	if store != nil {
		syncer := scheduler.NewRedisSyncer(store, memIndex, loggerClient)
		if err := syncer.Sync(context.Background()); err != nil {
			loggerClient.Warn("failed to sync from redis on startup, will load from roster source",
				logger.Error(err))
		}
	}

	var db *database.Store
	var source scheduler.RosterSource
	switch cfg.RosterSource {
	case config.RosterSourceDatabase:
		var err error
		db, err = openDatabase(cfg)
		if err != nil {
			loggerClient.Errorf("Failed to open roster database: %v", err)
			os.Exit(1)
		}
		source = db
		loggerClient.Info("roster source: database", logger.String("driver", db.Driver()))
	default:
		source = roster.NewFileSource(cfg.RosterFile)
		loggerClient.Info("roster source: file", logger.String("file", cfg.RosterFile))
	}

	// Create manual reload trigger channel
	reloadTrigger := make(chan struct{}, 1)

	// Interfaces get an untyped nil when Redis is off
	var rosterCache scheduler.RosterCache
	var reportCache telemetry.Cache
	if store != nil {
		rosterCache = store
		reportCache = store
	}

	reloader := scheduler.NewRosterReloader(
		source,
		rosterCache,
		memIndex,
		loggerClient,
		cfg.ReloadInterval,
		reloadTrigger,
	)

	// Loops live under this context; cancelling it stops every mounted view
	viewsCtx, stopViews := context.WithCancel(context.Background())
	prober := probe.NewHTTPProber(cfg.ProbeTimeout, loggerClient)
	registry := views.NewRegistry(viewsCtx, memIndex, prober, loggerClient, views.Settings{
		Detail: poller.SiteLoopConfig{
			Interval:      cfg.DetailInterval,
			Capacity:      cfg.DetailCapacity,
			TrackDowntime: true,
		},
		Compact: poller.SiteLoopConfig{
			Interval: cfg.CompactInterval,
			Capacity: cfg.CompactCapacity,
		},
		Aggregate: poller.AggregateConfig{
			Interval:       cfg.AggregateInterval,
			MaxConcurrency: cfg.AggregateConcurrency,
		},
	})

	reaper := scheduler.NewViewReaper(registry, loggerClient, cfg.ViewReapInterval, cfg.ViewIdleTTL)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		TimeNow:         time.Now,
		AllowedHosts:    cfg.AllowedHosts,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		RosterSource:    cfg.RosterSource,
		MemoryIndex:     memIndex,
		RedisClient:     redisClient,
		Views:           registry,
		Prober:          probe.NewHTTPProber(cfg.ProxyTimeout, loggerClient),
		Telemetry:       telemetry.NewClient(cfg.ProxyTimeout, reportCache, cfg.ReportCacheTTL, loggerClient),
		CheckRateBurst:  cfg.CheckRateBurst,
		CheckRatePerMin: cfg.CheckRatePerMin,
		ReloadTrigger:   reloadTrigger,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		db:          db,
		memIndex:    memIndex,
		views:       registry,
		stopViews:   stopViews,
		reloader:    reloader,
		reaper:      reaper,
	}
}

func openDatabase(cfg *config.Config) (*database.Store, error) {
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.Ping(ctx); err != nil {
		return nil, multierr.Append(err, db.Close())
	}
	if err := db.EnsureSchema(ctx); err != nil {
		return nil, multierr.Append(err, db.Close())
	}
	return db, nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Sitewatch v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load the roster and keep it fresh
	if err := a.reloader.Start(ctx); err != nil {
		if a.memIndex.SiteCount() == 0 {
			return multierr.Append(fmt.Errorf("failed to start roster reloader: %w", err), a.shutdown())
		}
		a.logger.Warn("initial roster load failed, serving the roster mirrored in redis",
			logger.Error(err))
	}
	a.logger.Info("roster reloader started",
		logger.Duration("interval", a.cfg.ReloadInterval),
		logger.Int("clients", a.memIndex.Count()),
		logger.Int("sites", a.memIndex.SiteCount()))

	a.reaper.Start(ctx)
	a.logger.Info("view reaper started",
		logger.Duration("interval", a.cfg.ViewReapInterval),
		logger.Duration("idle_ttl", a.cfg.ViewIdleTTL))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	return multierr.Append(runErr, a.shutdown())
}

func (a *App) shutdown() error {
	a.reloader.Stop()
	a.reaper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var errs error
	if err := a.server.Stop(shutdownCtx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("failed to stop server: %w", err))
	}

	a.views.Close()
	a.stopViews()

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to close redis: %w", err))
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if errs == nil {
		a.logger.Info("✅ Sitewatch stopped cleanly")
	}
	_ = a.logger.Sync()
	return errs
}
