package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no record matches the given conditions.
var ErrNotFound = errors.New("storage: record not found")

// Where is an equality condition on a top-level document field. Values are
// compared by their JSON text representation, which keeps adapters for
// document and SQL backends interchangeable.
type Where struct {
	Field string
	Value any
}

// Eq is shorthand for a single equality condition.
func Eq(field string, value any) Where {
	return Where{Field: field, Value: value}
}

// Adapter is the persistence boundary consumed by the billing core: generic
// CRUD over named models with schemaless documents. Implementations own
// identifier generation — Create must return the stored document including
// its assigned "id" field when the caller did not supply one.
type Adapter interface {
	// FindOne returns the first record matching all conditions, or
	// ErrNotFound.
	FindOne(ctx context.Context, model string, where ...Where) (map[string]any, error)

	// FindMany returns all records matching all conditions. An empty result
	// is not an error.
	FindMany(ctx context.Context, model string, where ...Where) ([]map[string]any, error)

	// Create stores a new record and returns it as persisted.
	Create(ctx context.Context, model string, values map[string]any) (map[string]any, error)

	// Update merges values into the first record matching all conditions and
	// returns the updated record, or ErrNotFound.
	Update(ctx context.Context, model string, where []Where, values map[string]any) (map[string]any, error)
}
