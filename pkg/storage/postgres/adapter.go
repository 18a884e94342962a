package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/billingkit/pkg/storage"
)

// Adapter implements storage.Adapter on PostgreSQL using a single jsonb
// document table. Field conditions compare the text projection of the
// document field, matching the semantics of the in-memory adapter.
type Adapter struct {
	pool *pgxpool.Pool
}

// NewAdapter creates a Postgres-backed adapter. Panics on a nil pool to
// fail fast during initialization.
func NewAdapter(pool *pgxpool.Pool) *Adapter {
	if pool == nil {
		panic("postgres: connection pool is required")
	}
	return &Adapter{pool: pool}
}

func (a *Adapter) FindOne(ctx context.Context, model string, where ...storage.Where) (map[string]any, error) {
	cond, args := buildConditions(model, where)
	query := "SELECT data FROM billing_records WHERE " + cond + " LIMIT 1"

	var raw []byte
	if err := a.pool.QueryRow(ctx, query, args...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: find one %s: %w", model, err)
	}
	return decodeDoc(raw)
}

func (a *Adapter) FindMany(ctx context.Context, model string, where ...storage.Where) ([]map[string]any, error) {
	cond, args := buildConditions(model, where)
	query := "SELECT data FROM billing_records WHERE " + cond + " ORDER BY created_at"

	rows, err := a.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: find many %s: %w", model, err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("postgres: scan %s: %w", model, err)
		}
		doc, err := decodeDoc(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (a *Adapter) Create(ctx context.Context, model string, values map[string]any) (map[string]any, error) {
	doc := make(map[string]any, len(values)+1)
	for k, v := range values {
		doc[k] = v
	}
	id, _ := doc["id"].(string)
	if id == "" {
		id = uuid.NewString()
		doc["id"] = id
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode %s: %w", model, err)
	}

	var stored []byte
	err = a.pool.QueryRow(ctx,
		"INSERT INTO billing_records (model, id, data) VALUES ($1, $2, $3) RETURNING data",
		model, id, raw,
	).Scan(&stored)
	if err != nil {
		return nil, fmt.Errorf("postgres: create %s: %w", model, err)
	}
	return decodeDoc(stored)
}

func (a *Adapter) Update(ctx context.Context, model string, where []storage.Where, values map[string]any) (map[string]any, error) {
	sets := make(map[string]any, len(values))
	removals := []string{} // non-nil so pgx encodes an empty array, not NULL
	for k, v := range values {
		if v == nil {
			removals = append(removals, k)
			continue
		}
		sets[k] = v
	}

	patch, err := json.Marshal(sets)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode %s patch: %w", model, err)
	}

	cond, args := buildConditions(model, where)
	args = append(args, patch, removals)
	query := fmt.Sprintf(`
		UPDATE billing_records
		SET data = (data - $%d::text[]) || $%d::jsonb, updated_at = now()
		WHERE ctid = (SELECT ctid FROM billing_records WHERE %s LIMIT 1)
		RETURNING data`,
		len(args), len(args)-1, cond)

	var stored []byte
	if err := a.pool.QueryRow(ctx, query, args...).Scan(&stored); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: update %s: %w", model, err)
	}
	return decodeDoc(stored)
}

func buildConditions(model string, where []storage.Where) (string, []any) {
	parts := []string{"model = $1"}
	args := []any{model}
	for _, w := range where {
		args = append(args, fmt.Sprint(w.Value))
		parts = append(parts, fmt.Sprintf("data->>%s = $%d", quoteLiteral(w.Field), len(args)))
	}
	return strings.Join(parts, " AND "), args
}

// quoteLiteral quotes a json field name for use as the ->> operand. Field
// names come from code, not user input, but quoting keeps the contract
// explicit.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func decodeDoc(raw []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("postgres: decode document: %w", err)
	}
	return doc, nil
}
