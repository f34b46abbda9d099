package store

import (
	"context"
	"sync"
	"time"

	"github.com/personet/doppel/internal/core/model"
)

// Memory is a mutex-guarded implementation of the store interfaces used by
// tests and local development. The single lock is what makes the
// find-or-create on the pair key atomic, mirroring the MERGE in the
// Memgraph implementation.
type Memory struct {
	mu          sync.Mutex
	comparisons map[string]*model.Comparison // by uuid
	pairs       map[string]string            // pair_key -> uuid
	merges      []model.Merge
	connections map[string][]model.Connection // by account
	memberships map[string]map[string]string  // owner -> node -> source
}

func NewMemory() *Memory {
	return &Memory{
		comparisons: make(map[string]*model.Comparison),
		pairs:       make(map[string]string),
		connections: make(map[string][]model.Connection),
		memberships: make(map[string]map[string]string),
	}
}

func (s *Memory) UpsertComparison(ctx context.Context, c *model.Comparison, overwriteScore bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := model.PairKey(c.NodeA, c.NodeB)
	if id, ok := s.pairs[key]; ok {
		existing := s.comparisons[id]
		existing.NodeAInfo = c.NodeAInfo
		existing.NodeBInfo = c.NodeBInfo
		existing.UserDecision = model.DecisionPending
		if overwriteScore {
			existing.SimilarityScore = c.SimilarityScore
			existing.Confidence = c.Confidence
			existing.Reasoning = c.Reasoning
		}
		return id, nil
	}

	stored := *c
	stored.UserDecision = model.DecisionPending
	s.comparisons[stored.UUID] = &stored
	s.pairs[key] = stored.UUID
	return stored.UUID, nil
}

func (s *Memory) ComparisonByID(ctx context.Context, id string) (*model.Comparison, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comparisons[id]
	if !ok {
		return nil, nil
	}
	out := *c
	return &out, nil
}

func (s *Memory) ComparisonByPair(ctx context.Context, nodeA, nodeB string) (*model.Comparison, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.pairs[model.PairKey(nodeA, nodeB)]
	if !ok {
		return nil, nil
	}
	out := *s.comparisons[id]
	return &out, nil
}

func (s *Memory) ComparisonsForNode(ctx context.Context, node string) ([]model.Comparison, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Comparison{}
	for _, c := range s.comparisons {
		if c.Involves(node) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *Memory) PendingComparisons(ctx context.Context) ([]model.Comparison, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Comparison{}
	for _, c := range s.comparisons {
		if c.UserDecision == model.DecisionPending {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *Memory) SetScore(ctx context.Context, id string, score model.Score) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comparisons[id]
	if !ok || c.SimilarityScore != nil {
		return false, nil
	}
	v := score.SimilarityScore
	c.SimilarityScore = &v
	c.Confidence = score.Confidence
	c.Reasoning = score.Reasoning
	return true, nil
}

func (s *Memory) SetDecision(ctx context.Context, id string, decision model.Decision, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comparisons[id]
	if !ok || c.UserDecision != model.DecisionPending {
		return false, nil
	}
	c.UserDecision = decision
	c.ConfirmedAt = &at
	return true, nil
}

func (s *Memory) DeletePendingComparison(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comparisons[id]
	if !ok || c.UserDecision != model.DecisionPending {
		return false, nil
	}
	delete(s.comparisons, id)
	delete(s.pairs, model.PairKey(c.NodeA, c.NodeB))
	return true, nil
}

func (s *Memory) CreateMerge(ctx context.Context, m *model.Merge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merges = append(s.merges, *m)
	return nil
}

func (s *Memory) MergesForNode(ctx context.Context, node string) ([]model.Merge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Merge{}
	for _, m := range s.merges {
		if m.Absorbed == node || m.Canonical == node {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Memory) SaveConnection(ctx context.Context, c *model.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conns := s.connections[c.Account]
	for i := range conns {
		if conns[i].UUID == c.UUID {
			conns[i] = *c
			return nil
		}
	}
	s.connections[c.Account] = append(conns, *c)
	return nil
}

func (s *Memory) Connections(ctx context.Context, account string) ([]model.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Connection, len(s.connections[account]))
	copy(out, s.connections[account])
	return out, nil
}

func (s *Memory) AddNodeToNetwork(ctx context.Context, owner, node, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.memberships[owner] == nil {
		s.memberships[owner] = make(map[string]string)
	}
	s.memberships[owner][node] = source
	return nil
}

func (s *Memory) ApplyMerge(ctx context.Context, absorbed, canonical string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, nodes := range s.memberships {
		if source, ok := nodes[absorbed]; ok {
			if _, exists := nodes[canonical]; !exists {
				nodes[canonical] = source
			}
			delete(nodes, absorbed)
		}
	}
	return nil
}

// NetworkNodes reports the nodes recorded for an owner. Test helper.
func (s *Memory) NetworkNodes(owner string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.memberships[owner]))
	for node, source := range s.memberships[owner] {
		out[node] = source
	}
	return out
}
