package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"shoplist/internal/auth"
	"shoplist/internal/backend/googletasks"
	"shoplist/internal/backend/rediscache"
	"shoplist/internal/backend/tables"
	"shoplist/internal/config"
	"shoplist/internal/store"
)

// ErrNoConnectionString is returned when the tables backend has no connection string.
var ErrNoConnectionString = errors.New("tables connection string not configured (set SHOPLIST_TABLES_CONNECTION_STRING)")

// DefaultFactory builds the gate for cfg.Mode and the store for cfg.Backend,
// wrapped in the Redis query cache when a Redis URL is configured.
func DefaultFactory(ctx context.Context, cfg *config.Config, logger log.FieldLogger, notice io.Writer) (*Backend, error) {
	var (
		b  Backend
		st store.ItemStore
	)

	switch cfg.Mode {
	case config.ModeShared:
		gate, err := auth.NewSharedSecretGate(cfg.FamilyPassword, auth.FileFlag{Path: cfg.SessionFlagPath()})
		if err != nil {
			return nil, fmt.Errorf("%w (set family_password in %s or SHOPLIST_FAMILY_PASSWORD)", err, cfg.FilePath())
		}
		b.Gate = gate
	case config.ModeOAuth:
		opts := []auth.OAuthOption{auth.WithNotice(notice)}
		if cfg.Backend == config.BackendTasks {
			opts = append(opts, auth.WithScopes(auth.TasksScope))
		}
		gate := auth.NewOAuthGate(cfg, opts...)
		b.Gate = gate
		if cfg.Backend == config.BackendTasks {
			client, err := googletasks.New(ctx, gate.TokenSource(ctx), cfg.Tasks.List)
			if err != nil {
				return nil, err
			}
			st = client
		}
	default:
		return nil, fmt.Errorf("invalid mode: %s", cfg.Mode)
	}

	if cfg.Backend == config.BackendTables {
		if cfg.Tables.ConnectionString == "" {
			return nil, ErrNoConnectionString
		}
		ts, err := tables.New(cfg.Tables.ConnectionString, cfg.Tables.Table)
		if err != nil {
			return nil, err
		}
		st = ts
	}
	if st == nil {
		return nil, fmt.Errorf("invalid backend: %s", cfg.Backend)
	}

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		st = rediscache.New(st, redis.NewClient(opts), cfg.Redis.TTL, logger)
		logger.WithField("ttl", cfg.Redis.TTL).Debug("query cache enabled")
	}

	b.Store = st
	return &b, nil
}
