package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personet/doppel/internal/core/model"
)

func TestUpsertComparisonConcurrentCallersConverge(t *testing.T) {
	st := NewMemory()

	const callers = 16
	ids := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = st.UpsertComparison(context.Background(), &model.Comparison{
				UUID:         fmt.Sprintf("candidate-%d", i),
				NodeA:        "u1",
				NodeB:        "u2",
				UserDecision: model.DecisionPending,
				CreatedAt:    time.Now().UTC(),
			}, false)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
	}

	// Every caller must land on the same comparison.
	for i := 1; i < callers; i++ {
		assert.Equal(t, ids[0], ids[i])
	}

	got, err := st.ComparisonsForNode(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ids[0], got[0].UUID)

	byPair, err := st.ComparisonByPair(context.Background(), "u2", "u1")
	require.NoError(t, err)
	require.NotNil(t, byPair)
	assert.Equal(t, ids[0], byPair.UUID)
}
