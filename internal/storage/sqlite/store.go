// Package sqlite implements the persistence access layer over a local
// SQLite database. Writes notify a change hub; Watch reads re-query and
// emit a fresh snapshot whenever a write touches their tables.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sqlitedb "github.com/agalitsyn/sqlite"
	"github.com/jmoiron/sqlx"

	"github.com/agalitsyn/task-planner-bot/internal/storage/sqlite/migrations"
)

type DB struct {
	db  *sqlx.DB
	hub *hub
}

// Open connects to the database at path, applies pending migrations and
// returns a ready store handle. Callers own the handle and must Close it.
func Open(path string) (*DB, error) {
	db, err := sqlitedb.Connect(path)
	if err != nil {
		return nil, fmt.Errorf("could not connect: %w", err)
	}

	// SQLite serializes writers anyway; a single pooled connection also
	// keeps :memory: databases stable across calls.
	db.SetMaxOpenConns(1)

	if err := sqlitedb.MigrateUp(db, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not migrate: %w", err)
	}

	return &DB{
		db:  sqlx.NewDb(db, "sqlite"),
		hub: newHub(),
	}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not start transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// watch emits an initial snapshot immediately, then a fresh one after every
// broadcast touching the given tables. The returned channel carries at most
// one pending snapshot: a newer one replaces it. It is closed when ctx ends.
func watch[S any](ctx context.Context, d *DB, query func(context.Context) (S, error), tables ...string) (<-chan S, error) {
	sub := d.hub.subscribe(tables...)

	snapshot, err := query(ctx)
	if err != nil {
		d.hub.unsubscribe(sub)
		return nil, err
	}

	out := make(chan S, 1)
	out <- snapshot

	go func() {
		defer close(out)
		defer d.hub.unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.ch:
			}

			next, err := query(ctx)
			if err != nil {
				// Keep the subscription; the last good snapshot stands.
				slog.Error("watch query failed", "tables", tables, "err", err)
				continue
			}

			select {
			case <-out:
			default:
			}
			select {
			case out <- next:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Instants are stored as signed 64-bit Unix millisecond timestamps.

func toMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64)
	return &t
}
