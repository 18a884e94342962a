// Package postgres provides a PostgreSQL-backed storage.Adapter using a
// single jsonb document table, plus embedded goose migrations.
//
// The schema includes a partial unique index enforcing at most one live
// paid subscription per reference at the storage layer, closing the window
// the application-level read-then-write check leaves open under concurrent
// create-or-update requests.
package postgres
