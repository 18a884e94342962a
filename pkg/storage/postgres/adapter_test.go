package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/storage"
)

func TestBuildConditions(t *testing.T) {
	t.Parallel()

	t.Run("model only", func(t *testing.T) {
		t.Parallel()
		cond, args := buildConditions("subscription", nil)
		assert.Equal(t, "model = $1", cond)
		assert.Equal(t, []any{"subscription"}, args)
	})

	t.Run("fields compare text projections", func(t *testing.T) {
		t.Parallel()
		cond, args := buildConditions("subscription", []storage.Where{
			storage.Eq("referenceId", "user-1"),
			storage.Eq("seats", 3),
		})
		assert.Equal(t, "model = $1 AND data->>'referenceId' = $2 AND data->>'seats' = $3", cond)
		require.Len(t, args, 3)
		assert.Equal(t, "user-1", args[1])
		assert.Equal(t, "3", args[2], "non-string values compare by text form")
	})
}

func TestQuoteLiteral(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "'plan'", quoteLiteral("plan"))
	assert.Equal(t, "'it''s'", quoteLiteral("it's"))
}
