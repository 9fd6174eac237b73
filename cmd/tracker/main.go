// Package main is the entry point of the Study Tracker Hub worker.
//
// The worker owns the whole tracking pipeline: session commands arrive over
// the HTTP API and hit the Postgres-backed store, ended sessions are committed
// into the daily, weekly and monthly leaderboards, and the scheduler keeps the
// live Telegram report fresh, rolls the day over, and sweeps day-spanning
// sessions.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/studyhub/study-tracker-hub/config"
	"github.com/studyhub/study-tracker-hub/internal/application/command"
	"github.com/studyhub/study-tracker-hub/internal/application/query"
	"github.com/studyhub/study-tracker-hub/internal/domain/stats"
	infracal "github.com/studyhub/study-tracker-hub/internal/infrastructure/calendar"
	"github.com/studyhub/study-tracker-hub/internal/infrastructure/external/telegram"
	"github.com/studyhub/study-tracker-hub/internal/infrastructure/metrics"
	"github.com/studyhub/study-tracker-hub/internal/infrastructure/persistence/postgres"
	"github.com/studyhub/study-tracker-hub/internal/infrastructure/persistence/redis"
	"github.com/studyhub/study-tracker-hub/internal/infrastructure/scheduler"
	"github.com/studyhub/study-tracker-hub/internal/infrastructure/scheduler/jobs"
	httpapi "github.com/studyhub/study-tracker-hub/internal/interface/http"
	"github.com/studyhub/study-tracker-hub/internal/interface/http/handlers"
	"github.com/studyhub/study-tracker-hub/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupSlog(cfg)
	appLog := logger.New(logger.Options{
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		Output:    os.Stdout,
		AddCaller: cfg.App.Debug,
	}).With(
		logger.String("app", cfg.App.Name),
		logger.String("env", string(cfg.App.Environment)),
	)

	log.Info("starting study tracker hub",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	log.Info("running database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (optional snapshot cache)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var snapshotCache stats.SnapshotCache
	if cfg.Features.SnapshotCache && !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		cache, err := redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, snapshot cache disabled", "error", err)
		} else {
			defer cache.Close()
			redisCache = cache
			snapshotCache = redis.NewSnapshotCache(cache, cfg.Tracker.SnapshotCacheTTL)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REPOSITORIES AND CALENDAR
	// ─────────────────────────────────────────────────────────────────────────
	sessionRepo := postgres.NewSessionRepository(dbConn, cfg.App.Timezone)
	statsRepo := postgres.NewStatsRepository(dbConn)
	userRepo := postgres.NewUserRepository(dbConn)
	anchorRepo := postgres.NewAnchorRepository(dbConn)
	resolver := infracal.NewPersianResolver(cfg.App.Location)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. METRICS
	// ─────────────────────────────────────────────────────────────────────────
	var collectors *metrics.Metrics
	var cmdRecorder command.Recorder
	var jobRecorder jobs.Recorder
	if cfg.Observability.MetricsEnabled {
		collectors = metrics.New()
		cmdRecorder = collectors
		jobRecorder = collectors
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. TELEGRAM PUBLISHER
	// ─────────────────────────────────────────────────────────────────────────
	tgConfig := telegram.DefaultClientConfig(cfg.Telegram.Token)
	tgConfig.BaseURL = cfg.Telegram.BaseURL
	tgConfig.Timeout = cfg.Telegram.RequestTimeout
	tgConfig.ParseMode = cfg.Telegram.ParseMode
	tgConfig.Logger = log
	publisher := telegram.NewClient(tgConfig)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	startHandler := command.NewStartSessionHandler(sessionRepo, userRepo, statsRepo, resolver, cmdRecorder, appLog)
	pauseHandler := command.NewPauseSessionHandler(sessionRepo, cmdRecorder, appLog)
	resumeHandler := command.NewResumeSessionHandler(sessionRepo, cmdRecorder, appLog)
	endHandler := command.NewEndSessionHandler(sessionRepo, statsRepo, resolver, snapshotCache, cmdRecorder, appLog, cfg.Tracker.MinSessionSeconds)
	presenceHandler := command.NewEnsurePresenceHandler(userRepo, statsRepo, resolver)
	snapshotHandler := query.NewRankedSnapshotHandler(sessionRepo, statsRepo, resolver, snapshotCache, appLog)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Scheduler.Enabled {
		sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
			Logger:   log,
			Timezone: cfg.App.Location,
		})

		if cfg.Features.LiveReport {
			// With Redis available the refresh ticks are serialized across
			// worker instances so only one edits the report message.
			var refreshLocker jobs.Locker
			if redisCache != nil {
				refreshLocker = redisCache
			}
			refreshJob := jobs.NewRefreshReportJob(snapshotHandler, anchorRepo, publisher, jobRecorder, refreshLocker, log, jobs.RefreshReportConfig{
				ChatID:  cfg.Tracker.ReportChatID,
				Timeout: cfg.Scheduler.JobTimeout,
			})
			if err := sched.Register(refreshJob, scheduler.NewIntervalSchedule(cfg.Scheduler.RefreshInterval)); err != nil {
				return fmt.Errorf("failed to register refresh job: %w", err)
			}
		}

		if cfg.Features.DailyReport {
			dailyJob := jobs.NewDailyReportJob(sessionRepo, snapshotHandler, anchorRepo, publisher, jobRecorder, log, jobs.DailyReportConfig{
				ChatID:   cfg.Tracker.ReportChatID,
				Location: cfg.App.Location,
				Timeout:  cfg.Scheduler.JobTimeout,
			})
			schedule := scheduler.NewDailySchedule(cfg.Scheduler.DailyReportHour, cfg.Scheduler.DailyReportMinute, cfg.App.Location)
			if err := sched.Register(dailyJob, schedule); err != nil {
				return fmt.Errorf("failed to register daily report job: %w", err)
			}
		}

		if cfg.Features.ExpirySweep {
			sweepJob := jobs.NewSweepExpiredJob(sessionRepo, jobRecorder, log, cfg.Scheduler.JobTimeout)
			if err := sched.Register(sweepJob, scheduler.NewIntervalSchedule(cfg.Scheduler.SweepInterval)); err != nil {
				return fmt.Errorf("failed to register sweep job: %w", err)
			}
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			log.Info("stopping scheduler...")
			_ = sched.Stop()
		}()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HTTP API (session commands, health, metrics)
	// ─────────────────────────────────────────────────────────────────────────
	var apiServer *httpapi.Server
	var apiErrCh <-chan error
	if cfg.HTTP.Enabled {
		checker := handlers.NewCompositeHealthChecker(cfg.App.Version)
		checker.AddCheck("postgres", handlers.PingCheck(dbConn))
		if redisCache != nil {
			checker.AddCheck("redis", handlers.PingCheck(redisCache))
		}

		httpCfg := httpapi.DefaultConfig()
		httpCfg.Host = cfg.HTTP.Host
		httpCfg.Port = cfg.HTTP.Port
		httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
		httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
		httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout

		deps := httpapi.Dependencies{
			StartSessionHandler:   startHandler,
			PauseSessionHandler:   pauseHandler,
			ResumeSessionHandler:  resumeHandler,
			EndSessionHandler:     endHandler,
			EnsurePresenceHandler: presenceHandler,
			Logger:                appLog,
			HealthChecker:         checker,
		}
		if collectors != nil {
			deps.MetricsHandler = collectors.Handler()
		}

		apiServer = httpapi.NewServer(httpCfg, deps)
		apiErrCh = apiServer.StartAsync()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. WAIT FOR SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("study tracker hub is running")

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-apiErrCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if apiServer != nil {
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http server shutdown failed", "error", err)
		}
	}

	return nil
}

// setupSlog builds the process-level slog logger from the observability
// settings.
func setupSlog(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Observability.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler).With(
		"app", cfg.App.Name,
		"env", string(cfg.App.Environment),
	)
	slog.SetDefault(log)

	return log
}
