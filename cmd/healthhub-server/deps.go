package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/healthhub/api/internal/config"
	"github.com/healthhub/api/internal/domain/account"
	"github.com/healthhub/api/internal/domain/profile"
	"github.com/healthhub/api/internal/domain/summary"
	"github.com/healthhub/api/internal/platform/auth"
	"github.com/healthhub/api/internal/platform/db"
	"github.com/healthhub/api/internal/platform/events"
	"github.com/healthhub/api/internal/platform/idempotency"
	"github.com/healthhub/api/internal/platform/metrics"
	"github.com/healthhub/api/internal/platform/sandbox"
	"github.com/healthhub/api/internal/platform/store"
	"github.com/healthhub/api/internal/platform/store/memstore"
	"github.com/healthhub/api/internal/platform/store/pgstore"
)

// storeHandle is the relational store plus what /health/db needs. pinger is
// nil for the in-memory driver.
type storeHandle struct {
	db     store.Client
	pinger db.Pinger
	stats  func() *db.PoolStats
}

// deps are the process-wide collaborators handed to newServer.
type deps struct {
	store       storeHandle
	metrics     *metrics.Metrics
	publisher   events.Publisher
	idempotency *idempotency.Store
	revoked     *auth.Revocations
	authService account.AuthService
	summarizer  summary.Summarizer
	closers     []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func buildDeps(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*deps, error) {
	d := &deps{metrics: metrics.New()}

	handle, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	d.store = handle
	d.closers = append(d.closers, closeStore)

	pub, err := newPublisher(ctx, cfg)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.publisher = pub
	d.closers = append(d.closers, func() {
		if err := pub.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing event publisher")
		}
	})

	if cfg.IdempotencyEnabled() {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		d.idempotency = idempotency.NewStore(rdb, cfg.IdempotencyTTL)
		d.closers = append(d.closers, func() { _ = rdb.Close() })
		logger.Info().Str("addr", opts.Addr).Msg("idempotency keys enabled")
	}

	d.revoked = auth.NewRevocations(time.Minute)
	d.closers = append(d.closers, d.revoked.Close)

	d.authService = account.NewGoTrueClient(cfg.AuthServiceURL, cfg.AuthServiceKey, &http.Client{Timeout: 10 * time.Second})
	d.summarizer = summary.NewHTTPSummarizer(cfg.SummarizerURL, cfg.SummarizerTimeout, summary.WithLogger(logger))
	return d, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (storeHandle, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		mem := memstore.New()
		// The dev principal needs a profile to pass admin checks.
		if err := mem.Seed(profile.Table, []profile.Profile{{ID: auth.DevUserID, Name: "Developer", Role: auth.RoleAdmin}}); err != nil {
			return storeHandle{}, nil, fmt.Errorf("seed memory store: %w", err)
		}
		if cfg.SeedDemoData {
			res, err := sandbox.NewSeeder(mem, sandbox.DefaultSeedConfig()).Seed(ctx)
			if err != nil {
				return storeHandle{}, nil, err
			}
			logger.Info().Int("doctors", res.Doctors).Int("products", res.Products).Msg("seeded demo data")
		}
		logger.Warn().Msg("using in-memory store, data is lost on restart")
		return storeHandle{db: mem.Transactional()}, func() {}, nil
	default:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return storeHandle{}, nil, fmt.Errorf("connect to database: %w", err)
		}
		logger.Info().Msg("connected to database")
		return storeHandle{
			db:     pgstore.New(pool),
			pinger: pool,
			stats:  func() *db.PoolStats { return db.StatsFromPool(pool) },
		}, pool.Close, nil
	}
}

func newPublisher(ctx context.Context, cfg *config.Config) (events.Publisher, error) {
	switch cfg.EventsDriver {
	case config.EventsDriverKafka:
		return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic), nil
	case config.EventsDriverSQS:
		client, err := events.NewSQSClient(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, fmt.Errorf("sqs client: %w", err)
		}
		return events.NewSQSPublisher(client, cfg.SQSQueueURL), nil
	case config.EventsDriverWebhook:
		return events.NewWebhookPublisher(cfg.WebhookURL, cfg.WebhookSecret), nil
	default:
		return events.Noop{}, nil
	}
}
