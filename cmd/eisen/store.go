package main

import (
	"context"
	"strings"

	"github.com/nick-dorsch/eisen/internal/db"
	"github.com/nick-dorsch/eisen/internal/escalation"
	"github.com/nick-dorsch/eisen/internal/pgstore"
	"github.com/nick-dorsch/eisen/internal/server"
)

// taskStore is what the commands need from either backend.
type taskStore interface {
	server.Store
	escalation.Store
}

func isPostgresDSN(s string) bool {
	return strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://")
}

// openStore opens the configured backend and makes sure its schema exists.
// The SQLite backend also refreshes the snapshot after every write.
func (c *cli) openStore(ctx context.Context, cfg config) (taskStore, func(), error) {
	if isPostgresDSN(cfg.Database) {
		store, err := pgstore.Open(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		c.logger.Debug("using postgres task store")
		return store, store.Close, nil
	}

	path := c.dbPath
	if cfg.Database != "" {
		path = cfg.Database
	}

	database, err := db.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Init(ctx); err != nil {
		database.Close()
		return nil, nil, err
	}

	if c.snapshotPath != "" {
		database.EnableAutoSnapshot(c.snapshotPath, c.logger)
	}

	c.logger.Debug("using sqlite task store", "path", path)
	return database, func() { database.Close() }, nil
}
