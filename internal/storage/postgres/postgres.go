package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ErrConflictCode = "23505"

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Storage struct {
	Conn *pgxpool.Pool
}

func New(ctx context.Context, dsn string, maxConns int, maxConnIdleTime time.Duration) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = int32(maxConns)
	cfg.MaxConnIdleTime = maxConnIdleTime
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Storage{Conn: pool}, nil
}

// Migrate applies the embedded schema files in name order. They are idempotent.
func (s *Storage) Migrate(ctx context.Context) error {
	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, name := range files {
		sql, err := migrationsFS.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := s.Conn.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

func (s *Storage) Close() {
	s.Conn.Close()
}
