package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/submission-gateway/internal/config"
	"github.com/kirillkom/submission-gateway/internal/core/ports"
	"github.com/kirillkom/submission-gateway/internal/core/usecase"
	"github.com/kirillkom/submission-gateway/internal/infrastructure/cache"
	"github.com/kirillkom/submission-gateway/internal/infrastructure/identity/lsri"
	"github.com/kirillkom/submission-gateway/internal/infrastructure/identity/webin"
	"github.com/kirillkom/submission-gateway/internal/infrastructure/queue/nats"
	"github.com/kirillkom/submission-gateway/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/submission-gateway/internal/infrastructure/resilience"
	"github.com/kirillkom/submission-gateway/internal/infrastructure/uploadarea/localfs"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.SubmissionRepository
	Resolver  ports.AccountResolver
	Device    ports.DeviceAuthenticator
	Lifecycle ports.SubmissionLifecycle
	Processor ports.SubmissionProcessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewSubmissionRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	uploads, err := localfs.New(cfg.UploadAreaPath)
	if err != nil {
		return nil, fmt.Errorf("init upload area: %w", err)
	}

	queueExecutor := resilience.NewExecutor(resilience.DefaultConfig())
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: queueExecutor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	identityTimeout := time.Duration(cfg.IdentityRequestTimeoutSeconds) * time.Second
	// Bearer lookups are single-shot; the breaker only sheds load when a
	// provider is down.
	identityExecutor := resilience.NewExecutor(resilience.SingleAttemptConfig())

	webinClient := webin.New(cfg.WebinAuthURL, webin.Options{
		RequestTimeout: identityTimeout,
		Executor:       identityExecutor,
	})
	lsriClient := lsri.New(cfg.LSRIAuthURL, lsri.Options{
		ClientID:       cfg.LSRIClientID,
		ClientSecret:   cfg.LSRIClientSecret,
		RequestTimeout: identityTimeout,
		PollInterval:   time.Duration(cfg.LSRIPollIntervalSeconds) * time.Second,
		Executor:       identityExecutor,
	})

	tokenCache := cache.NewTokenCache(time.Duration(cfg.TokenCacheTTLSeconds) * time.Second)

	// Webin first, LSRI second: the resolver short-circuits on the first
	// provider that recognizes the credential.
	resolver := usecase.NewResolveAccountUseCase(tokenCache, webinClient, lsriClient)
	lifecycle := usecase.NewSubmissionLifecycleUseCase(repo, uploads, queue)
	processor := usecase.NewProcessSubmissionUseCase(repo, uploads)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		Resolver:  resolver,
		Device:    lsriClient,
		Lifecycle: lifecycle,
		Processor: processor,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
