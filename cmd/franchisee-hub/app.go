package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"franchisee-hub/internal/accounts"
	"franchisee-hub/internal/common/auth"
	"franchisee-hub/internal/common/camunda"
	"franchisee-hub/internal/common/config"
	"franchisee-hub/internal/common/database"
	"franchisee-hub/internal/common/logger"
	"franchisee-hub/internal/common/observability"
	"franchisee-hub/internal/common/validation"
	apihttp "franchisee-hub/internal/http"
	"franchisee-hub/internal/ledger"
	"franchisee-hub/internal/lifecycle"
	"franchisee-hub/internal/notification"
	"franchisee-hub/internal/search"
	"franchisee-hub/internal/store"

	car "franchisee-hub/internal/workers/application/create-application-record"
	sn "franchisee-hub/internal/workers/application/send-notification"
	ta "franchisee-hub/internal/workers/application/transition-application"
)

// app owns every long-lived resource of the process.
type app struct {
	cfg       *config.Config
	log       logger.Logger
	pg        *database.PostgresClient
	redis     *database.RedisClient
	zeebe     *camunda.Client
	obs       *observability.Observability
	server    *http.Server
	scheduler *lifecycle.Scheduler
	workers   []*camunda.Worker
	closeOnce sync.Once
}

func build(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}
	if err := a.init(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	cfg, log := a.cfg, a.log

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		log.Warn("otel exporter unavailable, operation metrics disabled", map[string]interface{}{"error": err})
	}
	a.obs = obs

	// --- PostgreSQL ---
	a.pg, err = database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return err
	}
	if err := database.ConnectWithRetry(ctx, "postgres connection", 15, 2*time.Second, log, a.pg.Ping); err != nil {
		return err
	}
	log.Info("postgres connected", nil)

	if cfg.Database.Postgres.AutoMigrate {
		if err := store.Migrate(ctx, a.pg.DB); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	sealer, err := auth.NewSealer(cfg.Auth.CredentialKey)
	if err != nil {
		return fmt.Errorf("credential key: %w", err)
	}
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, time.Duration(cfg.Auth.TokenTTL)*time.Minute)

	applicants := store.NewApplicantStore(a.pg.DB)
	credentials := store.NewCredentialStore(a.pg.DB, sealer)
	admins := store.NewAdminStore(a.pg.DB)
	sales := store.NewSalesStore(a.pg.DB)

	checks := []apihttp.Check{{Name: "postgres", Probe: a.pg.Ping}}

	// --- Redis (transition locks) ---
	var locker lifecycle.Locker = lifecycle.NopLocker{}
	if cfg.Database.Redis.Enabled {
		a.redis = database.NewRedis(cfg.Database.Redis)
		if err := database.ConnectWithRetry(ctx, "redis connection", 10, 2*time.Second, log, a.redis.Ping); err != nil {
			return err
		}
		locker = lifecycle.NewRedisLocker(a.redis.Client, config.GetDuration(cfg.Database.Redis.LockTTL), log)
		checks = append(checks, apihttp.Check{Name: "redis", Probe: a.redis.Ping})
		log.Info("redis connected", nil)
	}

	// --- Elasticsearch (applicant search) ---
	var index *search.Index
	if cfg.Database.Elasticsearch.Enabled {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		if err := database.ConnectWithRetry(ctx, "elasticsearch connection", 15, 2*time.Second, log, es.Ping); err != nil {
			return err
		}
		index = search.New(es.Client, cfg.Database.Elasticsearch.Index, log)
		if err := index.EnsureIndex(ctx); err != nil {
			log.Warn("search index not ready", map[string]interface{}{"error": err})
		}
		checks = append(checks, apihttp.Check{Name: "elasticsearch", Probe: es.Ping})
		log.Info("elasticsearch connected", nil)
	}

	// --- Zeebe ---
	var publisher lifecycle.Publisher
	if cfg.Camunda.Enabled {
		err := database.ConnectWithRetry(ctx, "zeebe connection", 10, 2*time.Second, log, func(ctx context.Context) error {
			c, err := camunda.NewClient(ctx, camunda.ConfigFrom(cfg.Camunda))
			if err != nil {
				return err
			}
			a.zeebe = c
			return nil
		})
		if err != nil {
			return err
		}
		publisher = a.zeebe
		checks = append(checks, apihttp.Check{Name: "zeebe", Probe: a.zeebe.HealthCheck})
		log.Info("zeebe connected", map[string]interface{}{"gateway": cfg.Camunda.BrokerAddress})
	}

	dispatcher, err := notification.NewFromConfig(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("notification dispatcher: %w", err)
	}
	checks = append(checks, apihttp.Check{Name: "notifications", Probe: dispatcher.Verify})

	wf := lifecycle.New(lifecycle.Dependencies{
		Applicants:  applicants,
		Credentials: credentials,
		Admins:      admins,
		Notifier:    dispatcher,
		Locker:      locker,
		Indexer:     index,
		Publisher:   publisher,
		Recorder:    a.obs,
		Logger:      log,
	})

	loc, err := time.LoadLocation(cfg.Ledger.Timezone)
	if err != nil {
		return fmt.Errorf("ledger timezone %q: %w", cfg.Ledger.Timezone, err)
	}

	validator, err := validation.New()
	if err != nil {
		return err
	}

	srv := apihttp.NewServer(apihttp.Dependencies{
		Lifecycle:  wf,
		Applicants: applicants,
		Search:     index,
		Accounts: accounts.New(accounts.Dependencies{
			Admins:      admins,
			Applicants:  applicants,
			Credentials: credentials,
			Tokens:      tokens,
			MinPassword: cfg.Auth.MinPassword,
			Logger:      log,
		}),
		Ledger:    ledger.New(sales, loc, log),
		Tokens:    tokens,
		Validator: validator,
		Checks:    checks,
		Logger:    log,
	})
	a.server = srv.NewHTTPServer(cfg.Server)

	if cfg.Reconcile.Enabled {
		a.scheduler, err = lifecycle.NewScheduler(wf, cfg.Reconcile.Schedule, log)
		if err != nil {
			return err
		}
	}

	if a.zeebe != nil {
		a.registerWorkers(wf, dispatcher, validator)
	}
	return nil
}

func (a *app) registerWorkers(wf *lifecycle.Workflow, dispatcher *notification.Dispatcher, validator *validation.Validator) {
	if wc := config.GetWorkerConfig(a.cfg, car.TaskType); wc.Enabled {
		handler := car.NewHandler(&car.Config{Timeout: config.GetDuration(wc.Timeout)}, wf, validator, a.log)
		a.workers = append(a.workers, camunda.NewWorker(a.zeebe.Raw(), car.TaskType, wc, handler, a.log))
	}

	if wc := config.GetWorkerConfig(a.cfg, ta.TaskType); wc.Enabled {
		handler := ta.NewHandler(
			&ta.Config{
				DefaultActor: ta.LoadConfig().DefaultActor,
				Timeout:      config.GetDuration(wc.Timeout),
			},
			wf, a.log,
		)
		a.workers = append(a.workers, camunda.NewWorker(a.zeebe.Raw(), ta.TaskType, wc, handler, a.log))
	}

	if wc := config.GetWorkerConfig(a.cfg, sn.TaskType); wc.Enabled {
		handler := sn.NewHandler(
			&sn.Config{
				RequireDelivery: wc.MaxRetries > 0,
				Timeout:         config.GetDuration(wc.Timeout),
			},
			dispatcher, a.log,
		)
		a.workers = append(a.workers, camunda.NewWorker(a.zeebe.Raw(), sn.TaskType, wc, handler, a.log))
	}
}

// run serves until ctx is cancelled, then drains in reverse start order.
func (a *app) run(ctx context.Context) error {
	for _, w := range a.workers {
		w.Start()
	}
	if a.scheduler != nil {
		a.scheduler.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", map[string]interface{}{"address": a.server.Addr})
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received", nil)
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(a.cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.Error("http shutdown failed", map[string]interface{}{"error": err})
	}
	if a.scheduler != nil {
		a.scheduler.Stop(shutdownCtx)
	}
	for _, w := range a.workers {
		w.Stop()
	}
	return serveErr
}

func (a *app) close() {
	a.closeOnce.Do(func() {
		if a.zeebe != nil {
			_ = a.zeebe.Close()
		}
		if a.redis != nil {
			_ = a.redis.Close()
		}
		if a.pg != nil {
			_ = a.pg.Close()
		}
		if err := a.obs.Shutdown(context.Background()); err != nil {
			a.log.Warn("otel shutdown failed", map[string]interface{}{"error": err})
		}
	})
}
