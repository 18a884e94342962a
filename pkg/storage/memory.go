package storage

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/google/uuid"
)

// MemoryAdapter is a thread-safe in-memory Adapter for tests and
// single-process deployments. Documents are deep-copied on every boundary
// crossing so callers cannot mutate stored state.
type MemoryAdapter struct {
	mu     sync.RWMutex
	models map[string][]map[string]any
}

// NewMemoryAdapter creates an empty in-memory adapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		models: make(map[string][]map[string]any),
	}
}

func (a *MemoryAdapter) FindOne(_ context.Context, model string, where ...Where) (map[string]any, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, rec := range a.models[model] {
		if matches(rec, where) {
			return maps.Clone(rec), nil
		}
	}
	return nil, ErrNotFound
}

func (a *MemoryAdapter) FindMany(_ context.Context, model string, where ...Where) ([]map[string]any, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []map[string]any
	for _, rec := range a.models[model] {
		if matches(rec, where) {
			out = append(out, maps.Clone(rec))
		}
	}
	return out, nil
}

func (a *MemoryAdapter) Create(_ context.Context, model string, values map[string]any) (map[string]any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec := maps.Clone(values)
	if rec == nil {
		rec = make(map[string]any)
	}
	if id, ok := rec["id"].(string); !ok || id == "" {
		rec["id"] = uuid.NewString()
	}
	a.models[model] = append(a.models[model], rec)
	return maps.Clone(rec), nil
}

func (a *MemoryAdapter) Update(_ context.Context, model string, where []Where, values map[string]any) (map[string]any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, rec := range a.models[model] {
		if matches(rec, where) {
			for k, v := range values {
				if v == nil {
					delete(rec, k)
					continue
				}
				rec[k] = v
			}
			return maps.Clone(rec), nil
		}
	}
	return nil, ErrNotFound
}

// matches compares by string representation so numeric JSON round-trips
// (int vs float64) do not break equality.
func matches(rec map[string]any, where []Where) bool {
	for _, w := range where {
		v, ok := rec[w.Field]
		if !ok {
			return false
		}
		if fmt.Sprint(v) != fmt.Sprint(w.Value) {
			return false
		}
	}
	return true
}
