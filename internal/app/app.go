package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"ContentEnricher/internal/api"
	"ContentEnricher/internal/config"
	"ContentEnricher/internal/infrastructure/classify"
	"ContentEnricher/internal/infrastructure/document"
	"ContentEnricher/internal/infrastructure/images"
	"ContentEnricher/internal/infrastructure/keywords"
	"ContentEnricher/internal/infrastructure/llm"
	"ContentEnricher/internal/infrastructure/ml"
	"ContentEnricher/internal/infrastructure/objectstore"
	"ContentEnricher/internal/infrastructure/oembed"
	"ContentEnricher/internal/infrastructure/parser"
	"ContentEnricher/internal/infrastructure/queue"
	"ContentEnricher/internal/infrastructure/scheduler"
	"ContentEnricher/internal/infrastructure/search"
	"ContentEnricher/internal/infrastructure/sentiment"
	"ContentEnricher/internal/infrastructure/storage"
	"ContentEnricher/internal/infrastructure/telegram"
	"ContentEnricher/internal/logging"
	"ContentEnricher/internal/metrics"
	"ContentEnricher/internal/ports"
	"ContentEnricher/internal/stage"
	"ContentEnricher/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	db       *sql.DB
	repo     *storage.PostgresRepository
	queue    *queue.RedisQueue
	indexer  *search.Indexer
	registry *prometheus.Registry

	enricher   *usecase.Enricher
	dispatcher *usecase.Dispatcher
	worker     *usecase.Worker
	sweeper    *usecase.Sweeper
	cron       *scheduler.CronScheduler
	scheduler  *usecase.Scheduler
}

// New connects to storage and builds every component. Redis, Elasticsearch,
// object storage and Telegram are optional and skipped when unconfigured.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.db = db
	a.repo = storage.NewPostgresRepository(db)
	if cfg.Database.Migrate {
		if err := a.repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	var enrichQueue ports.EnrichmentQueue
	if cfg.Redis.Addr != "" {
		q, err := queue.NewRedisQueue(queue.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}, baseLogger.With("component", "queue"))
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		a.queue = q
		enrichQueue = q
	} else {
		baseLogger.Warn("redis not configured, triggers run synchronously")
	}

	var indexer ports.SearchIndexer
	if len(cfg.Elasticsearch.Addresses) > 0 {
		idx, err := search.NewIndexer(search.Config{
			Addresses:   cfg.Elasticsearch.Addresses,
			Username:    cfg.Elasticsearch.Username,
			Password:    cfg.Elasticsearch.Password,
			APIKey:      cfg.Elasticsearch.APIKey,
			Index:       cfg.Elasticsearch.Index,
			MaxAttempts: cfg.Elasticsearch.MaxAttempts,
		}, baseLogger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.indexer = idx
		indexer = idx
	}

	var notifier ports.Notifier
	tg := telegram.NewNotifier(cfg.Notifications.Telegram.BaseURL, cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	if tg.Configured() {
		notifier = tg
	}

	stages, err := buildStages(cfg, baseLogger)
	if err != nil {
		a.Close()
		return nil, err
	}

	m := metrics.New(a.registry)
	if a.queue != nil {
		metrics.RegisterQueueBacklog(a.registry, a.queue.Len)
	}
	a.enricher = usecase.NewEnricher(usecase.EnricherDeps{
		Repository: a.repo,
		Stages:     stages,
		Indexer:    indexer,
		Notifier:   notifier,
		Metrics:    m,
		Logger:     baseLogger.With("component", "enricher"),
	})
	a.dispatcher = usecase.NewDispatcher(a.enricher, enrichQueue, m)
	a.worker = usecase.NewWorker(enrichQueue, a.enricher, cfg.Queue.Workers, m, baseLogger.With("component", "worker"))
	a.sweeper = usecase.NewSweeper(a.repo, a.dispatcher, cfg.Scheduler.StaleAfter, baseLogger.With("component", "sweeper"))

	driver, err := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, scheduler.WithLocation(cfg.Scheduler.Location()))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.cron = driver
	a.scheduler = usecase.NewScheduler(driver, a.sweeper)

	return a, nil
}

// buildStages constructs every stage adapter and registers it under its name.
func buildStages(cfg config.Config, log *slog.Logger) (*stage.Registry, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	t := cfg.Timeouts
	httpClient := &http.Client{Timeout: t.Fetch}

	mlClient := ml.NewClient(cfg.ML.InferenceURL, cfg.ML.APIKey, ml.Options{
		Timeout:           t.Inference,
		RequestsPerSecond: cfg.ML.RequestsPerSecond,
		Burst:             cfg.ML.Burst,
	})

	models := classify.ModelChain{}
	if cfg.ML.InferenceURL != "" {
		models = append(models, mlClient)
	}
	if chat := llm.NewChatGPTClient(cfg.ChatGPT); chat.Configured() {
		models = append(models, chat)
	}
	var classModel ports.ContentTypeModel
	if len(models) > 0 {
		classModel = models
	}

	var store ports.ObjectStore
	if cfg.ObjectStore.Endpoint != "" {
		s, err := objectstore.NewMinioStore(objectstore.Config{
			Endpoint:      cfg.ObjectStore.Endpoint,
			AccessKey:     cfg.ObjectStore.AccessKey,
			SecretKey:     cfg.ObjectStore.SecretKey,
			Bucket:        cfg.ObjectStore.Bucket,
			Region:        cfg.ObjectStore.Region,
			UseSSL:        cfg.ObjectStore.UseSSL,
			PublicBaseURL: cfg.ObjectStore.PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		store = s
	}

	resolver := oembed.NewResolver(httpClient, oembed.Credentials{
		AppID:     cfg.OEmbed.FacebookAppID,
		AppSecret: cfg.OEmbed.FacebookAppSecret,
	}, log.With("component", "oembed"))

	registry := stage.NewRegistry()
	registry.Register(stage.NewMetadata(parser.NewMetadataScraper(httpClient, t.Fetch), resolver, oembed.NewFetcher(httpClient), t.Metadata))
	registry.Register(stage.NewReadable(parser.NewReadableExtractor(), t.Readable))
	registry.Register(stage.NewDocument(document.NewSummarizer(httpClient, mlClient, document.Config{FetchTimeout: t.Fetch}), t.Document))
	registry.Register(stage.NewImage(images.NewProcessor(httpClient, store, images.Config{FetchTimeout: t.Fetch}, log.With("component", "images")), t.Image))
	registry.Register(stage.NewTags(keywords.NewExtractor(cfg.ML.TagCount), t.Tags))
	registry.Register(stage.NewClassification(classify.NewClassifier(classModel, log), t.Classification))
	registry.Register(stage.NewSentiment(sentiment.NewScorer(mlClient, log), t.Sentiment))

	return registry, nil
}

// Serve runs the HTTP API, the queue workers and the sweep scheduler until
// ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(
		api.NewContentHandler(a.dispatcher, a.repo, a.logger.With("component", "api")),
		a.healthChecks(),
		a.registry,
	)
	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.worker.Run(gctx)
		return nil
	})

	g.Go(func() error {
		if err := a.scheduler.Start(gctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		a.logger.Info("stale sweep scheduled",
			"cron", a.cfg.Scheduler.CronExpression,
			"next", a.cron.Next(time.Now()))
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.scheduler.Stop(shutdownCtx); err != nil {
			a.logger.Warn("scheduler stop", "error", err)
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Enrich runs one pending item inline.
func (a *Application) Enrich(ctx context.Context, contentID string) (usecase.Outcome, error) {
	return a.enricher.Enrich(ctx, contentID)
}

// Retrigger resets an item and re-runs it inline.
func (a *Application) Retrigger(ctx context.Context, contentID string) (usecase.Outcome, error) {
	return a.enricher.Retrigger(ctx, contentID, "")
}

// Sweep re-submits stale pending items once.
func (a *Application) Sweep(ctx context.Context) (int, error) {
	return a.sweeper.Sweep(ctx, time.Now().In(a.cfg.Scheduler.Location()))
}

// Close releases connections.
func (a *Application) Close() {
	if a.queue != nil {
		if err := a.queue.Close(); err != nil {
			a.logger.Warn("close redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close database", "error", err)
		}
	}
}

func (a *Application) healthChecks() map[string]api.HealthCheck {
	checks := map[string]api.HealthCheck{
		"postgres": a.db.PingContext,
	}
	if a.queue != nil {
		checks["redis"] = a.queue.Ping
	}
	if a.indexer != nil {
		checks["elasticsearch"] = a.indexer.Ping
	}
	return checks
}
