// Package storage provides persistent storage for the regional sync
// daemon, backed by Postgres via pgxpool.
package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/regiond/regiond/internal/config"
)

// Storage wraps a pgxpool.Pool shared by the Consumer Loop and the
// outward read API, per spec.md §5.
type Storage struct {
	Pool *pgxpool.Pool
}

// poolMaxConns, poolMaxConnIdle and poolConnectTimeout are the connection
// pool parameters recommended by spec.md §5 and reused verbatim from
// the teacher's storage.New (which sets SetMaxOpenConns/
// SetMaxIdleConns/SetConnMaxLifetime on a *sql.DB; here the pgxpool
// equivalents).
const (
	poolMaxConns       = 20
	poolMaxConnIdle    = 30 * time.Second
	poolConnectTimeout = 2 * time.Second
)

// New opens the Postgres connection pool described by cfg and pings
// it once. A failure here is fatal at startup per spec.md §6.
func New(ctx context.Context, cfg *config.Config) (*Storage, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	poolCfg.MaxConns = poolMaxConns
	poolCfg.MaxConnIdleTime = poolMaxConnIdle
	poolCfg.ConnConfig.ConnectTimeout = poolConnectTimeout

	if cfg.NodeEnv == "production" {
		// Render PG convention: TLS required, certificate verification
		// off.
		poolCfg.ConnConfig.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, poolConnectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping sink: %w", err)
	}

	return &Storage{Pool: pool}, nil
}

// Close releases the pool.
func (s *Storage) Close() {
	s.Pool.Close()
}

func dsn(cfg *config.Config) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName,
	)
}
