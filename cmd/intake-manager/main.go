// cmd/intake-manager/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	awsclient "internship-intake/internal/common/aws"
	"internship-intake/internal/common/camunda"
	"internship-intake/internal/common/config"
	"internship-intake/internal/common/database"
	"internship-intake/internal/common/logger"
	"internship-intake/internal/common/observability"
	"internship-intake/internal/common/platform"
	"internship-intake/internal/intake/captcha"
	"internship-intake/internal/intake/catalog"
	"internship-intake/internal/intake/notify"
	"internship-intake/internal/intake/session"
	"internship-intake/internal/intake/submission"
	"internship-intake/internal/intake/wizard"
	"internship-intake/internal/server"
	so "internship-intake/internal/workers/intake/submit-onboarding"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting intake manager...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---
	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Warn("otel metrics unavailable", zap.Error(err))
	}
	if err := obs.EnableTracing(cfg.App.Name, cfg.Tracing.JaegerEndpoint, cfg.Tracing.SampleRatio); err != nil {
		zapLog.Warn("tracing disabled", zap.Error(err))
	}
	defer obs.Shutdown(context.Background())

	// --- Redis (catalog cache, sessions, submission ledger) ---
	var redis *database.RedisClient
	if cfg.Database.Redis.Address != "" {
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		zapLog.Info("Redis connected successfully")
	}

	// --- Platform client ---
	pl := platform.NewClient(cfg.Platform, log)

	// --- Catalog ---
	var source catalog.Source
	switch cfg.Catalog.Source {
	case config.CatalogSourceHTTP:
		source = catalog.NewHTTPSource(pl)
	case config.CatalogSourcePostgres:
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		zapLog.Info("PostgreSQL connected successfully")
		source = catalog.NewPostgresSource(pg)
	}
	if source != nil && redis != nil && cfg.Catalog.CacheTTL > 0 {
		source = catalog.NewCachedSource(source, redis.Client, config.GetSeconds(cfg.Catalog.CacheTTL), log)
	}
	options := catalog.New(source, log)

	// --- Sessions and submission ledger ---
	var (
		store     session.Store            = session.NewMemoryStore()
		ledger    submission.Ledger        = submission.NewMemoryLedger()
		snapshots submission.SnapshotStore = submission.NewMemorySnapshots()
	)
	if redis != nil {
		store = session.NewRedisStore(redis.Client)
		ledger = submission.NewRedisLedger(redis.Client, config.GetSeconds(cfg.Submission.LedgerTTL))
		snapshots = submission.NewRedisSnapshots(redis.Client, config.GetSeconds(cfg.Submission.LedgerTTL))
	} else {
		zapLog.Warn("redis not configured; sessions, submission ledger and re-drive snapshots are in-process only")
	}
	sessions := session.NewManager(store, config.GetSeconds(cfg.Session.TTL), log)

	pipeline := submission.NewForPlatform(pl, ledger,
		submission.Config{PhaseTimeout: config.GetDuration(cfg.Submission.PhaseTimeout)},
		log,
		submission.WithObservability(obs),
		submission.WithTracer(observability.Tracer()),
	)

	// --- Notifications ---
	var (
		email notify.EmailSender
		sms   notify.SMSSender
	)
	if cfg.Notifications.Email.Enabled {
		ses, err := awsclient.NewSESClient(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.Email.FromEmail)
		if err != nil {
			zapLog.Error("SES client unavailable, email disabled", zap.Error(err))
		} else {
			email = ses
		}
	}
	if cfg.Notifications.SMS.Enabled {
		sns, err := awsclient.NewSNSClient(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.SMS.SenderID)
		if err != nil {
			zapLog.Error("SNS client unavailable, SMS disabled", zap.Error(err))
		} else {
			sms = sns
		}
	}
	notifier := notify.New(email, sms, notify.Config{
		EmailEnabled: cfg.Notifications.Email.Enabled,
		SMSEnabled:   cfg.Notifications.SMS.Enabled,
	}, log)

	// --- Zeebe re-drive worker ---
	var redriver server.Redriver
	if cfg.Camunda.Enabled {
		zc, err := camunda.NewClient(ctx, camunda.DefaultClientConfig(cfg.Camunda.BrokerAddress))
		if err != nil {
			zapLog.Fatal("zeebe client failed", zap.Error(err))
		}
		defer zc.Close()
		zapLog.Info("Zeebe client connected successfully")
		redriver = zc

		handler, err := so.NewHandler(so.HandlerOptions{
			AppConfig:  cfg,
			Pipeline:   pipeline,
			Snapshots:  snapshots,
			OnComplete: notifier.OnComplete,
			Logger:     log,
		})
		if err != nil {
			zapLog.Fatal("failed to create submit-onboarding handler", zap.Error(err))
		}
		if handler.Config().Enabled {
			w := camunda.NewWorker(zc.GetClient(), so.TaskType, handler.Config().MaxJobsActive, handler, log)
			defer w.Stop()
		} else {
			zapLog.Info("worker disabled", zap.String("taskType", so.TaskType))
		}
	}

	// --- HTTP API ---
	srv, err := server.New(server.Options{
		Config:   cfg.Server,
		Sessions: sessions,
		Wizard: wizard.Dependencies{
			Identity:   pl,
			Resumes:    pl,
			Catalog:    options,
			Submitter:  pipeline,
			OnComplete: notifier.OnComplete,
		},
		Captcha: wizard.Config{Captcha: captcha.Config{
			Length:      cfg.Wizard.CaptchaLength,
			MaxAttempts: cfg.Wizard.CaptchaAttempts,
			TTL:         captcha.DefaultConfig().TTL,
		}},
		Redriver:  redriver,
		Snapshots: snapshots,
		Logger:    log,
	})
	if err != nil {
		zapLog.Fatal("failed to create server", zap.Error(err))
	}

	if err := srv.Start(ctx); err != nil {
		zapLog.Error("server stopped with error", zap.Error(err))
	}
	zapLog.Info("Intake manager stopped gracefully")
}
