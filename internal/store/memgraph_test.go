package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personet/doppel/internal/core/model"
)

type MockDriver struct {
	Errs    []error // consumed one per call; nil entries succeed
	Results []neo4j.EagerResult
	Queries []string
	calls   int
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	i := m.calls
	m.calls++
	m.Queries = append(m.Queries, query)
	if i < len(m.Errs) && m.Errs[i] != nil {
		return neo4j.EagerResult{}, m.Errs[i]
	}
	if i < len(m.Results) {
		return m.Results[i], nil
	}
	return neo4j.EagerResult{}, nil
}

func (m *MockDriver) BuildIndices(ctx context.Context) error {
	return nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	return nil
}

func uuidResult(uuid string) neo4j.EagerResult {
	return neo4j.EagerResult{
		Keys: []string{"uuid"},
		Records: []*neo4j.Record{
			{Keys: []string{"uuid"}, Values: []interface{}{uuid}},
		},
	}
}

func TestUpsertComparisonRetriesAfterConstraintConflict(t *testing.T) {
	// The losing side of a racing upsert aborts on the pair_key unique
	// constraint; the retry must land on the winner's record.
	mock := &MockDriver{
		Errs:    []error{errors.New("unable to commit due to unique constraint violation on :Comparison(pair_key)")},
		Results: []neo4j.EagerResult{{}, uuidResult("winner-id")},
	}
	st := NewMemgraph(mock)

	id, err := st.UpsertComparison(context.Background(), &model.Comparison{
		UUID:         "loser-id",
		NodeA:        "u1",
		NodeB:        "u2",
		UserDecision: model.DecisionPending,
		CreatedAt:    time.Now().UTC(),
	}, false)

	require.NoError(t, err)
	assert.Equal(t, "winner-id", id)
	assert.Len(t, mock.Queries, 2)
	assert.Equal(t, mock.Queries[0], mock.Queries[1])
}

func TestUpsertComparisonSurfacesPersistentErrors(t *testing.T) {
	boom := errors.New("connection lost")
	mock := &MockDriver{Errs: []error{boom, boom}}
	st := NewMemgraph(mock)

	_, err := st.UpsertComparison(context.Background(), &model.Comparison{
		UUID:         "c1",
		NodeA:        "u1",
		NodeB:        "u2",
		UserDecision: model.DecisionPending,
		CreatedAt:    time.Now().UTC(),
	}, false)

	assert.ErrorIs(t, err, boom)
}
