// Package pg provides PostgreSQL connectivity helpers on the pgx/v5 driver:
// an env-driven Config, a Connect function with retry, health checks, and
// common error classification helpers.
//
// It pairs with pkg/storage/postgres, which implements the billing
// persistence adapter and owns the schema migrations:
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		// handle error, probably terminate the application
//	}
//	defer pool.Close()
//
//	if err := postgres.Migrate(ctx, pool); err != nil {
//		// schema is not up to date
//	}
//	adapter := postgres.NewAdapter(pool)
package pg
