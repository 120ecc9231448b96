// ABOUTME: Tests for per-tenant activation state
// ABOUTME: Covers idempotency, unknown-category rejection, and concurrent activation

package catalog

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivate(t *testing.T) {
	t.Run("first activation", func(t *testing.T) {
		state := NewActivationState()
		outcome, err := state.Activate("alice", "devices")
		require.NoError(t, err)
		assert.False(t, outcome.AlreadyActive)
		assert.Equal(t, "devices", outcome.Category.Name)
		assert.True(t, state.IsActive("alice", "devices"))
	})

	t.Run("repeat activation is idempotent", func(t *testing.T) {
		state := NewActivationState()
		_, err := state.Activate("alice", "alerts")
		require.NoError(t, err)

		outcome, err := state.Activate("alice", "alerts")
		require.NoError(t, err)
		assert.True(t, outcome.AlreadyActive)
		assert.Len(t, state.Activated("alice"), 1)
	})

	t.Run("unknown category leaves state untouched", func(t *testing.T) {
		state := NewActivationState()
		_, err := state.Activate("alice", "telepathy")
		require.ErrorIs(t, err, ErrUnknownCategory)

		var unknownErr *UnknownCategoryError
		require.ErrorAs(t, err, &unknownErr)
		assert.Equal(t, "telepathy", unknownErr.Name)

		assert.Empty(t, state.Activated("alice"))
		assert.Equal(t, 0, state.ActiveTenantCount())
	})

	t.Run("tenants do not share activations", func(t *testing.T) {
		state := NewActivationState()
		_, err := state.Activate("alice", "devices")
		require.NoError(t, err)
		assert.False(t, state.IsActive("bob", "devices"))
	})
}

func TestActivatedSorted(t *testing.T) {
	state := NewActivationState()
	for _, cat := range []string{"streams", "alerts", "devices"} {
		_, err := state.Activate("alice", cat)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"alerts", "devices", "streams"}, state.Activated("alice"))
}

func TestActivateConcurrent(t *testing.T) {
	state := NewActivationState()
	cats := Categories()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tenant := fmt.Sprintf("tenant-%d", i%8)
			cat := cats[i%len(cats)].Name
			_, err := state.Activate(tenant, cat)
			assert.NoError(t, err, "Activate(%s, %s)", tenant, cat)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 8, state.ActiveTenantCount())
}
