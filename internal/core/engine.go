// Package core implements the disambiguation engine: the comparison
// lifecycle, the merge recorder, and the read queries callers use to review
// open questions. Persistence and scoring sit behind interfaces so every
// operation stays a short, independent unit of work.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/personet/doppel/internal/core/model"
	"github.com/personet/doppel/internal/core/similarity"
	"github.com/personet/doppel/internal/store"
)

// Scorer produces a similarity assessment for two snapshots. Kept narrow so
// tests can swap in a deterministic stub.
type Scorer interface {
	Score(ctx context.Context, a, b model.Snapshot) (model.Score, error)
}

// profileMatchReasoning is the fixed rationale written by the fast path.
const profileMatchReasoning = "Both nodes have the same LinkedIn profile URL, confirming they are the same person."

type Engine struct {
	store  store.Store
	scorer Scorer
}

func NewEngine(st store.Store, scorer Scorer) *Engine {
	return &Engine{
		store:  st,
		scorer: scorer,
	}
}

// CompareNodes opens (or refreshes) the comparison for an unordered node
// pair. A shared profile identifier short-circuits to a scored certainty
// record; otherwise the pre-filter decides whether the pair is worth
// tracking at all. Scoring is never triggered here; that is
// AnalyzeComparison's job. Returns the comparison id.
func (e *Engine) CompareNodes(ctx context.Context, nodeA, nodeB string, infoA, infoB model.Snapshot) (string, error) {
	if nodeA == nodeB {
		return "", ErrInvalidPair
	}

	a, b := model.CanonicalPair(nodeA, nodeB)
	ia, ib := infoA, infoB
	if a != nodeA {
		ia, ib = infoB, infoA
	}
	now := time.Now().UTC()

	if ia != nil && ib != nil {
		// Identity fast path: equal normalized profile URLs are a
		// certainty, no LLM needed. The decision is still left pending;
		// the engine never self-confirms.
		if similarity.SharedProfileHandle(ia, ib) != "" {
			score := 1.0
			return e.store.UpsertComparison(ctx, &model.Comparison{
				UUID:            uuid.New().String(),
				NodeA:           a,
				NodeB:           b,
				SimilarityScore: &score,
				Confidence:      model.ConfidenceHigh,
				Reasoning:       profileMatchReasoning,
				UserDecision:    model.DecisionPending,
				CreatedAt:       now,
				NodeAInfo:       ia,
				NodeBInfo:       ib,
			}, true)
		}

		if !similarity.WorthComparing(ia, ib) {
			existing, err := e.store.ComparisonByPair(ctx, a, b)
			if err != nil {
				return "", err
			}
			if existing != nil {
				return existing.UUID, nil
			}
			return "", ErrNoSimilarity
		}
	}

	return e.store.UpsertComparison(ctx, &model.Comparison{
		UUID:         uuid.New().String(),
		NodeA:        a,
		NodeB:        b,
		UserDecision: model.DecisionPending,
		CreatedAt:    now,
		NodeAInfo:    ia,
		NodeBInfo:    ib,
	}, false)
}

// AnalyzeComparison populates the scoring fields on demand. Idempotent: a
// scored comparison is a successful no-op, so the external scorer is charged
// at most once per comparison. A scoring failure leaves the comparison
// unscored for a later retry by the caller.
func (e *Engine) AnalyzeComparison(ctx context.Context, id string) error {
	c, err := e.store.ComparisonByID(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("%w: %s", ErrComparisonNotFound, id)
	}
	if c.Scored() {
		return nil
	}
	if c.NodeAInfo == nil || c.NodeBInfo == nil {
		return fmt.Errorf("cannot analyze comparison %s: %w", id, ErrMissingInfo)
	}

	score, err := e.scorer.Score(ctx, c.NodeAInfo, c.NodeBInfo)
	if err != nil {
		return err
	}

	// False means a concurrent analyze won the write; either outcome
	// leaves the comparison scored exactly once.
	_, err = e.store.SetScore(ctx, id, score)
	return err
}

// ConfirmComparison records the user's decision on a pending comparison.
func (e *Engine) ConfirmComparison(ctx context.Context, id string, decision model.Decision) error {
	if !decision.Final() {
		return ErrInvalidDecision
	}

	c, err := e.store.ComparisonByID(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("%w: %s", ErrComparisonNotFound, id)
	}
	if c.UserDecision != model.DecisionPending {
		return fmt.Errorf("%w: %s is %q", ErrAlreadyDecided, id, c.UserDecision)
	}

	ok, err := e.store.SetDecision(ctx, id, decision, time.Now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		// Raced with another confirmation.
		return fmt.Errorf("%w: %s", ErrAlreadyDecided, id)
	}
	return nil
}

// CancelComparison deletes a pending comparison entirely. No tombstone:
// cancellation means the question should not have been asked.
func (e *Engine) CancelComparison(ctx context.Context, id string) error {
	c, err := e.store.ComparisonByID(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("%w: %s", ErrComparisonNotFound, id)
	}
	if c.UserDecision != model.DecisionPending {
		return fmt.Errorf("%w: %s is %q", ErrNotCancellable, id, c.UserDecision)
	}

	ok, err := e.store.DeletePendingComparison(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotCancellable, id)
	}
	return nil
}

// MergeNodes converts a confirmed "same" decision into an immutable merge
// record. It does not touch the graph engine's storage; the caller applies
// the (absorbed, canonical) result there afterwards.
func (e *Engine) MergeNodes(ctx context.Context, comparisonID, keepNode string) (*model.Merge, error) {
	c, err := e.store.ComparisonByID(ctx, comparisonID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrComparisonNotFound, comparisonID)
	}
	if c.UserDecision != model.DecisionSame {
		return nil, fmt.Errorf("%w: %s is %q", ErrWrongDecision, comparisonID, c.UserDecision)
	}
	if !c.Involves(keepNode) {
		return nil, fmt.Errorf("%w: %s is neither %s nor %s", ErrInvalidKeepNode, keepNode, c.NodeA, c.NodeB)
	}

	m := &model.Merge{
		UUID:       uuid.New().String(),
		Absorbed:   c.OtherNode(keepNode),
		Canonical:  keepNode,
		Comparison: c.UUID,
		MergedAt:   time.Now().UTC(),
		MergedBy:   model.MergedByUser,
	}
	if err := e.store.CreateMerge(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Read queries. All return empty results, never an error, when nothing
// matches — except ComparisonDetails, which reports nil for a missing id.

func (e *Engine) ComparisonForPair(ctx context.Context, nodeA, nodeB string) (*model.Comparison, error) {
	return e.store.ComparisonByPair(ctx, nodeA, nodeB)
}

func (e *Engine) ComparisonsForNode(ctx context.Context, node string) ([]model.Comparison, error) {
	return e.store.ComparisonsForNode(ctx, node)
}

func (e *Engine) PendingComparisons(ctx context.Context) ([]model.Comparison, error) {
	return e.store.PendingComparisons(ctx)
}

func (e *Engine) MergesForNode(ctx context.Context, node string) ([]model.Merge, error) {
	return e.store.MergesForNode(ctx, node)
}

func (e *Engine) ComparisonDetails(ctx context.Context, id string) (*model.Comparison, error) {
	return e.store.ComparisonByID(ctx, id)
}
