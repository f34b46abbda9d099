package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personet/doppel/internal/core/model"
	"github.com/personet/doppel/internal/store"
)

type stubScorer struct {
	score model.Score
	err   error
	calls int
}

func (s *stubScorer) Score(ctx context.Context, a, b model.Snapshot) (model.Score, error) {
	s.calls++
	if s.err != nil {
		return model.Score{}, s.err
	}
	return s.score, nil
}

func newTestEngine() (*Engine, *store.Memory, *stubScorer) {
	st := store.NewMemory()
	scorer := &stubScorer{score: model.Score{
		SimilarityScore: 0.8,
		Confidence:      model.ConfidenceHigh,
		Reasoning:       "Names and companies line up.",
	}}
	return NewEngine(st, scorer), st, scorer
}

func snapshotsFor(first1, first2 string) (model.Snapshot, model.Snapshot) {
	return model.Snapshot{"firstName": first1}, model.Snapshot{"firstName": first2}
}

func TestCompareNodesRejectsSelfPair(t *testing.T) {
	e, _, _ := newTestEngine()
	_, err := e.CompareNodes(context.Background(), "u1", "u1", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidPair)
}

func TestCompareNodesCreatesPendingComparison(t *testing.T) {
	e, _, _ := newTestEngine()
	a, b := snapshotsFor("Jon", "John")

	id, err := e.CompareNodes(context.Background(), "u1", "u2", a, b)
	require.NoError(t, err)

	c, err := e.ComparisonDetails(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, model.DecisionPending, c.UserDecision)
	assert.False(t, c.Scored())
	assert.Equal(t, "u1", c.NodeA)
	assert.Equal(t, "u2", c.NodeB)
}

func TestCompareNodesPairUniquenessEitherOrder(t *testing.T) {
	e, _, _ := newTestEngine()
	a, b := snapshotsFor("Jon", "John")

	id1, err := e.CompareNodes(context.Background(), "u2", "u1", b, a)
	require.NoError(t, err)
	id2, err := e.CompareNodes(context.Background(), "u1", "u2", a, b)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)

	c, err := e.ComparisonForPair(context.Background(), "u2", "u1")
	require.NoError(t, err)
	require.NotNil(t, c)
	// Canonical order regardless of call argument order.
	assert.Equal(t, "u1", c.NodeA)
	assert.Equal(t, "u2", c.NodeB)
	assert.Equal(t, "Jon", c.NodeAInfo.Text("firstName"))

	all, err := e.ComparisonsForNode(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCompareNodesPreFilterRejectsCreatesNothing(t *testing.T) {
	e, _, _ := newTestEngine()
	a, b := snapshotsFor("Zed", "Amy")

	_, err := e.CompareNodes(context.Background(), "u1", "u2", a, b)
	assert.ErrorIs(t, err, ErrNoSimilarity)

	c, err := e.ComparisonForPair(context.Background(), "u1", "u2")
	require.NoError(t, err)
	assert.Nil(t, c)

	pending, err := e.PendingComparisons(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCompareNodesPreFilterRejectionReturnsExisting(t *testing.T) {
	e, _, _ := newTestEngine()
	a, b := snapshotsFor("Jon", "John")

	id, err := e.CompareNodes(context.Background(), "u1", "u2", a, b)
	require.NoError(t, err)

	// New, dissimilar evidence: the existing comparison is returned unchanged.
	za, zb := snapshotsFor("Zed", "Amy")
	id2, err := e.CompareNodes(context.Background(), "u1", "u2", za, zb)
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	c, err := e.ComparisonDetails(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Jon", c.NodeAInfo.Text("firstName"))
}

func TestCompareNodesFastPathSharedProfile(t *testing.T) {
	e, _, scorer := newTestEngine()
	a := model.Snapshot{"firstName": "Jane", "profileUrl": "https://www.linkedin.com/in/jdoe"}
	b := model.Snapshot{"firstName": "J.", "profileUrl": "linkedin.com/in/jdoe"}

	id, err := e.CompareNodes(context.Background(), "u1", "u2", a, b)
	require.NoError(t, err)

	c, err := e.ComparisonDetails(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, c.SimilarityScore)
	assert.Equal(t, 1.0, *c.SimilarityScore)
	assert.Equal(t, model.ConfidenceHigh, c.Confidence)
	assert.Equal(t, model.DecisionPending, c.UserDecision)
	assert.Zero(t, scorer.calls)

	// Already certain: analyze is a no-op, the scorer is never charged.
	require.NoError(t, e.AnalyzeComparison(context.Background(), id))
	assert.Zero(t, scorer.calls)
}

func TestAnalyzeComparisonScoresOnce(t *testing.T) {
	e, _, scorer := newTestEngine()
	a, b := snapshotsFor("Jon", "John")
	id, err := e.CompareNodes(context.Background(), "u1", "u2", a, b)
	require.NoError(t, err)

	require.NoError(t, e.AnalyzeComparison(context.Background(), id))
	require.NoError(t, e.AnalyzeComparison(context.Background(), id))
	require.NoError(t, e.AnalyzeComparison(context.Background(), id))
	assert.Equal(t, 1, scorer.calls)

	c, err := e.ComparisonDetails(context.Background(), id)
	require.NoError(t, err)
	require.True(t, c.Scored())
	assert.Equal(t, 0.8, *c.SimilarityScore)
	assert.Equal(t, model.ConfidenceHigh, c.Confidence)
	assert.Equal(t, "Names and companies line up.", c.Reasoning)
	// Scoring never touches the decision.
	assert.Equal(t, model.DecisionPending, c.UserDecision)
}

func TestAnalyzeComparisonNotFound(t *testing.T) {
	e, _, _ := newTestEngine()
	err := e.AnalyzeComparison(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrComparisonNotFound)
}

func TestAnalyzeComparisonRequiresSnapshots(t *testing.T) {
	e, _, scorer := newTestEngine()
	id, err := e.CompareNodes(context.Background(), "u1", "u2", nil, nil)
	require.NoError(t, err)

	err = e.AnalyzeComparison(context.Background(), id)
	assert.ErrorIs(t, err, ErrMissingInfo)
	assert.Zero(t, scorer.calls)
}

func TestAnalyzeComparisonScorerFailureLeavesUnscored(t *testing.T) {
	e, _, scorer := newTestEngine()
	scorer.err = errors.New("llm timeout")
	a, b := snapshotsFor("Jon", "John")
	id, err := e.CompareNodes(context.Background(), "u1", "u2", a, b)
	require.NoError(t, err)

	err = e.AnalyzeComparison(context.Background(), id)
	require.Error(t, err)

	c, err := e.ComparisonDetails(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, c.Scored())

	// A later retry succeeds.
	scorer.err = nil
	require.NoError(t, e.AnalyzeComparison(context.Background(), id))
	c, _ = e.ComparisonDetails(context.Background(), id)
	assert.True(t, c.Scored())
}

func TestConfirmComparison(t *testing.T) {
	e, _, _ := newTestEngine()
	a, b := snapshotsFor("Jon", "John")
	id, err := e.CompareNodes(context.Background(), "u1", "u2", a, b)
	require.NoError(t, err)

	require.NoError(t, e.ConfirmComparison(context.Background(), id, model.DecisionSame))

	c, err := e.ComparisonDetails(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionSame, c.UserDecision)
	assert.NotNil(t, c.ConfirmedAt)

	// Second confirmation fails, first decision stays intact.
	err = e.ConfirmComparison(context.Background(), id, model.DecisionDifferent)
	assert.ErrorIs(t, err, ErrAlreadyDecided)
	c, _ = e.ComparisonDetails(context.Background(), id)
	assert.Equal(t, model.DecisionSame, c.UserDecision)
}

func TestConfirmComparisonValidation(t *testing.T) {
	e, _, _ := newTestEngine()
	a, b := snapshotsFor("Jon", "John")
	id, err := e.CompareNodes(context.Background(), "u1", "u2", a, b)
	require.NoError(t, err)

	assert.ErrorIs(t, e.ConfirmComparison(context.Background(), id, "maybe"), ErrInvalidDecision)
	assert.ErrorIs(t, e.ConfirmComparison(context.Background(), id, model.DecisionPending), ErrInvalidDecision)
	assert.ErrorIs(t, e.ConfirmComparison(context.Background(), "missing", model.DecisionSame), ErrComparisonNotFound)
}

func TestCompareNodesReopensDecidedComparison(t *testing.T) {
	e, _, _ := newTestEngine()
	a, b := snapshotsFor("Jon", "John")
	id, err := e.CompareNodes(context.Background(), "u1", "u2", a, b)
	require.NoError(t, err)
	require.NoError(t, e.AnalyzeComparison(context.Background(), id))
	require.NoError(t, e.ConfirmComparison(context.Background(), id, model.DecisionDifferent))

	// Fresh evidence reopens the question but keeps the existing score.
	a2 := model.Snapshot{"firstName": "Jon", "currentCompany": "Acme"}
	b2 := model.Snapshot{"firstName": "John", "currentCompany": "Acme"}
	id2, err := e.CompareNodes(context.Background(), "u1", "u2", a2, b2)
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	c, err := e.ComparisonDetails(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionPending, c.UserDecision)
	assert.True(t, c.Scored())
	assert.Equal(t, "Acme", c.NodeAInfo.Text("currentCompany"))
}

func TestCancelComparison(t *testing.T) {
	e, _, _ := newTestEngine()
	a, b := snapshotsFor("Jon", "John")
	id, err := e.CompareNodes(context.Background(), "u1", "u2", a, b)
	require.NoError(t, err)

	require.NoError(t, e.CancelComparison(context.Background(), id))

	// Cancelled comparisons vanish from every query.
	c, err := e.ComparisonDetails(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, c)
	byPair, _ := e.ComparisonForPair(context.Background(), "u1", "u2")
	assert.Nil(t, byPair)
	forNode, _ := e.ComparisonsForNode(context.Background(), "u1")
	assert.Empty(t, forNode)

	assert.ErrorIs(t, e.CancelComparison(context.Background(), id), ErrComparisonNotFound)
}

func TestCancelComparisonRequiresPending(t *testing.T) {
	e, _, _ := newTestEngine()
	a, b := snapshotsFor("Jon", "John")
	id, err := e.CompareNodes(context.Background(), "u1", "u2", a, b)
	require.NoError(t, err)
	require.NoError(t, e.ConfirmComparison(context.Background(), id, model.DecisionSame))

	assert.ErrorIs(t, e.CancelComparison(context.Background(), id), ErrNotCancellable)
}

func TestMergeNodes(t *testing.T) {
	e, _, _ := newTestEngine()
	a, b := snapshotsFor("Jon", "John")
	id, err := e.CompareNodes(context.Background(), "u1", "u2", a, b)
	require.NoError(t, err)
	require.NoError(t, e.ConfirmComparison(context.Background(), id, model.DecisionSame))

	m, err := e.MergeNodes(context.Background(), id, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u2", m.Absorbed)
	assert.Equal(t, "u1", m.Canonical)
	assert.Equal(t, id, m.Comparison)
	assert.Equal(t, model.MergedByUser, m.MergedBy)

	merges, err := e.MergesForNode(context.Background(), "u2")
	require.NoError(t, err)
	require.Len(t, merges, 1)
	assert.Equal(t, m.UUID, merges[0].UUID)
}

func TestMergeNodesRequiresSameDecision(t *testing.T) {
	e, _, _ := newTestEngine()
	a, b := snapshotsFor("Jon", "John")

	id, err := e.CompareNodes(context.Background(), "u1", "u2", a, b)
	require.NoError(t, err)

	// Still pending.
	_, err = e.MergeNodes(context.Background(), id, "u1")
	assert.ErrorIs(t, err, ErrWrongDecision)

	require.NoError(t, e.ConfirmComparison(context.Background(), id, model.DecisionDifferent))
	_, err = e.MergeNodes(context.Background(), id, "u1")
	assert.ErrorIs(t, err, ErrWrongDecision)

	merges, err := e.MergesForNode(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, merges)
}

func TestMergeNodesValidatesKeepNode(t *testing.T) {
	e, _, _ := newTestEngine()
	a, b := snapshotsFor("Jon", "John")
	id, err := e.CompareNodes(context.Background(), "u1", "u2", a, b)
	require.NoError(t, err)
	require.NoError(t, e.ConfirmComparison(context.Background(), id, model.DecisionSame))

	_, err = e.MergeNodes(context.Background(), id, "u3")
	assert.ErrorIs(t, err, ErrInvalidKeepNode)

	_, err = e.MergeNodes(context.Background(), "missing", "u1")
	assert.ErrorIs(t, err, ErrComparisonNotFound)
}
