package backend

import (
	"context"
	"fmt"

	"github.com/qodetech/pulsectl/config"
	"github.com/qodetech/pulsectl/db"
	"github.com/qodetech/pulsectl/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// OpenStore opens the token store selected by cfg.Store. The returned close
// function releases its connections and is never nil.
func OpenStore(ctx context.Context, cfg *config.Config) (store.KV, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store {
	case config.StoreMemory:
		log.Warn().Msg("Using in-memory token store, the session is lost on exit")
		return store.NewMemoryStore(), noop, nil

	case config.StoreKeyring:
		return store.NewKeyringStore(cfg.KeyringService), noop, nil

	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, noop, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return store.NewRedisStore(rdb, cfg.Redis.Prefix), rdb.Close, nil

	case config.StoreSQLite:
		if cfg.DBPath != "" {
			db.Path = cfg.DBPath
		}
		if err := db.InitDB(); err != nil {
			return nil, noop, fmt.Errorf("failed to initialize database: %w", err)
		}
		return store.NewDBStore(db.NewCredentialRepository(db.GetDB())), db.CloseDB, nil

	default:
		return nil, noop, fmt.Errorf("unsupported token store: %s", cfg.Store)
	}
}
