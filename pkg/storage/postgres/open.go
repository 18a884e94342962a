package postgres

import (
	"context"

	"github.com/dmitrymomot/billingkit/pkg/pg"
)

// Open connects to PostgreSQL with the given configuration, applies the
// embedded migrations, and returns a ready adapter. Hosts that manage their
// own pool can use NewAdapter and Migrate directly instead.
func Open(ctx context.Context, cfg pg.Config) (*Adapter, error) {
	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return NewAdapter(pool), nil
}
