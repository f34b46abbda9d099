// Package store persists the engine's entities. The engine only ever talks
// to these interfaces; the Memgraph implementation backs the service and the
// in-memory one backs tests and local development.
package store

import (
	"context"
	"time"

	"github.com/personet/doppel/internal/core/model"
)

// Store owns Comparison and Merge records. Implementations must make
// UpsertComparison an atomic find-or-create on the canonical pair key and
// must re-check the documented precondition inside SetScore, SetDecision
// and DeletePendingComparison so concurrent callers converge.
type Store interface {
	// UpsertComparison writes c keyed by its canonical pair and returns the
	// stored comparison's id, which is the pre-existing id when the pair was
	// already tracked. With overwriteScore the scoring fields are written
	// wholesale (fast-path); otherwise existing scoring fields survive. In
	// both cases the stored decision comes back to pending.
	UpsertComparison(ctx context.Context, c *model.Comparison, overwriteScore bool) (string, error)

	// ComparisonByID returns nil without error when nothing matches.
	ComparisonByID(ctx context.Context, id string) (*model.Comparison, error)
	// ComparisonByPair expects nodeA, nodeB in any order.
	ComparisonByPair(ctx context.Context, nodeA, nodeB string) (*model.Comparison, error)
	ComparisonsForNode(ctx context.Context, node string) ([]model.Comparison, error)
	PendingComparisons(ctx context.Context) ([]model.Comparison, error)

	// SetScore populates the scoring fields if they are still unset.
	// Returns false when another caller scored the comparison first.
	SetScore(ctx context.Context, id string, score model.Score) (bool, error)
	// SetDecision finalizes a pending comparison. Returns false when the
	// comparison was no longer pending at write time.
	SetDecision(ctx context.Context, id string, decision model.Decision, at time.Time) (bool, error)
	// DeletePendingComparison removes a comparison only while pending.
	DeletePendingComparison(ctx context.Context, id string) (bool, error)

	CreateMerge(ctx context.Context, m *model.Merge) error
	MergesForNode(ctx context.Context, node string) ([]model.Merge, error)
}

// ConnectionStore is the import-pipeline boundary: raw connection records
// grouped by source account.
type ConnectionStore interface {
	SaveConnection(ctx context.Context, c *model.Connection) error
	Connections(ctx context.Context, account string) ([]model.Connection, error)
}

// Network is the graph-engine collaborator boundary. ApplyMerge is invoked
// by a caller after a successful merge record, never chained automatically.
type Network interface {
	AddNodeToNetwork(ctx context.Context, owner, node, source string) error
	ApplyMerge(ctx context.Context, absorbed, canonical string) error
}
