package main

import (
	"context"
	"database/sql"
	"sync"

	"wisefido-ecg/internal/config"
	"wisefido-ecg/internal/consumer"
	"wisefido-ecg/internal/models"
	"wisefido-ecg/internal/repository"
	"wisefido-ecg/internal/source"
	"wisefido-ecg/pkg/database"
	redispkg "wisefido-ecg/pkg/redis"

	"go.uber.org/zap"
)

// backends connects Redis and Postgres on first use, so commands that never
// touch them do not need them running.
type backends struct {
	cfg    *config.Config
	logger *zap.Logger

	mu    sync.Mutex
	redis *redispkg.Client
	db    *sql.DB
}

func newBackends(cfg *config.Config, logger *zap.Logger) *backends {
	return &backends{cfg: cfg, logger: logger}
}

func (b *backends) cache(ctx context.Context) (*consumer.RecordingCache, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.redis == nil {
		client, err := redispkg.Connect(ctx, &b.cfg.Redis)
		if err != nil {
			return nil, err
		}
		b.logger.Info("Connected to Redis", zap.String("addr", b.cfg.Redis.Addr))
		b.redis = client
	}
	return consumer.NewRecordingCache(
		consumer.NewRedisKVStore(b.redis),
		b.cfg.Source.CacheKeyPrefix,
		b.cfg.Source.CacheTTL,
		b.logger,
	), nil
}

func (b *backends) repository(ctx context.Context) (*repository.RecordingRepository, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		db, err := database.NewPostgresDB(ctx, &b.cfg.Database)
		if err != nil {
			return nil, err
		}
		b.logger.Info("Connected to Postgres",
			zap.String("host", b.cfg.Database.Host),
			zap.String("database", b.cfg.Database.Database),
		)
		b.db = db
	}
	return repository.NewRecordingRepository(b.db, b.logger), nil
}

func (b *backends) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			b.logger.Warn("Failed to close Redis client", zap.Error(err))
		}
		b.redis = nil
	}
	if err := database.Close(b.db); err != nil {
		b.logger.Warn("Failed to close database", zap.Error(err))
	}
	b.db = nil
}

type sourceFunc func(ctx context.Context, ref string) (models.Recording, error)

func (f sourceFunc) Fetch(ctx context.Context, ref string) (models.Recording, error) {
	return f(ctx, ref)
}

// resolver builds the reference resolver: paths, http(s), cache:// and db://.
func (b *backends) resolver() *source.Resolver {
	l := newLoader(b.cfg, b.logger)
	r := source.NewResolver(
		source.NewFileSource(l),
		source.NewHTTPSource(source.HTTPOptions{
			Timeout: b.cfg.Source.HTTPTimeout,
			Retries: b.cfg.Source.HTTPRetries,
		}, l, b.logger),
	)
	if b.cfg.Redis.Enabled() {
		r.Register("cache", sourceFunc(func(ctx context.Context, id string) (models.Recording, error) {
			c, err := b.cache(ctx)
			if err != nil {
				return models.Recording{}, err
			}
			return c.Fetch(ctx, id)
		}))
	}
	if b.cfg.Database.Enabled() {
		r.Register("db", sourceFunc(func(ctx context.Context, id string) (models.Recording, error) {
			repo, err := b.repository(ctx)
			if err != nil {
				return models.Recording{}, err
			}
			return repo.Fetch(ctx, id)
		}))
	}
	return r
}
