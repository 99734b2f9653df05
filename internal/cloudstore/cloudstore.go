// ABOUTME: Backend selection for the ledger: embedded badger or PostgreSQL.
// ABOUTME: Backend bundles the item store and link store behind one Close.
package cloudstore

import (
	"context"
	"fmt"

	"github.com/harperreed/healthlink/internal/ledger"
	"github.com/harperreed/healthlink/internal/links"
)

// Backend is a store usable by both the ledger and the link registry.
type Backend interface {
	ledger.ItemStore
	links.Store
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	// Kind is "badger" or "postgres".
	Kind        string
	DataDir     string
	DatabaseURL string
	MaxConns    int32
	MinConns    int32
}

type postgresBackend struct {
	*Postgres
}

func (p postgresBackend) Close() error {
	p.Postgres.Close()
	return nil
}

// Open opens the configured backend. Postgres schemas are created if missing.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Kind {
	case "", "badger":
		if opts.DataDir == "" {
			return OpenBadgerInMemory()
		}
		return OpenBadger(opts.DataDir)
	case "postgres":
		pool, err := NewPool(ctx, opts.DatabaseURL, opts.MaxConns, opts.MinConns)
		if err != nil {
			return nil, err
		}
		pg := NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return postgresBackend{pg}, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", opts.Kind)
	}
}
