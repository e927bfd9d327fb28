package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"

	"docuchat/internal/config"
)

var (
	// ErrNotFound is returned for an unknown document or analysis id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a status update would move a
	// document backwards. Status only flows uploaded -> processing ->
	// ready | failed; re-ingestion is the single sanctioned way back.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ConnectDB opens the configured database. SQLite is the default, single-file
// deployment; Postgres is available for shared setups.
func ConnectDB(cfg *config.DatabaseConfig) (*bun.DB, error) {
	var db *bun.DB
	switch cfg.Driver {
	case "postgres":
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
		db = bun.NewDB(sqldb, pgdialect.New())
	case "sqlite", "":
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return nil, err
		}
		// Single writer keeps sqlite happy under concurrent ingestion.
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db, nil
}

// Store persists document records. It is an explicitly constructed instance:
// tests create their own against throwaway databases.
type Store struct {
	db *bun.DB
}

func New(db *bun.DB) *Store {
	return &Store{db: db}
}

// Init creates the schema if it does not exist.
func (s *Store) Init(ctx context.Context) error {
	models := []any{
		(*documentRow)(nil),
		(*documentContentRow)(nil),
		(*analysisRow)(nil),
	}
	for _, m := range models {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
