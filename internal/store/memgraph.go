package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/personet/doppel/internal/core/model"
	"github.com/personet/doppel/internal/driver"
)

// Memgraph implements Store, ConnectionStore and Network over the bolt
// driver. Snapshots and timestamps are stored as strings because bolt
// properties cannot hold nested maps.
type Memgraph struct {
	Driver driver.GraphDriver
}

func NewMemgraph(d driver.GraphDriver) *Memgraph {
	return &Memgraph{Driver: d}
}

func (s *Memgraph) UpsertComparison(ctx context.Context, c *model.Comparison, overwriteScore bool) (string, error) {
	params := map[string]interface{}{
		"pair_key":    model.PairKey(c.NodeA, c.NodeB),
		"uuid":        c.UUID,
		"created_at":  c.CreatedAt.Format(time.RFC3339),
		"node_a":      c.NodeA,
		"node_b":      c.NodeB,
		"node_a_info": marshalSnapshot(c.NodeAInfo),
		"node_b_info": marshalSnapshot(c.NodeBInfo),
	}

	query := driver.UpsertComparisonQuery
	if overwriteScore {
		query = driver.UpsertScoredComparisonQuery
		var score float64
		if c.SimilarityScore != nil {
			score = *c.SimilarityScore
		}
		params["similarity_score"] = score
		params["confidence"] = string(c.Confidence)
		params["reasoning"] = c.Reasoning
	}

	res, err := s.Driver.ExecuteQuery(ctx, query, params)
	if err != nil {
		// A racing upsert for the same pair can abort this one on the
		// pair_key unique constraint. The pair exists now, so one retry
		// turns the MERGE into a match and both callers converge on the
		// winner's record.
		res, err = s.Driver.ExecuteQuery(ctx, query, params)
		if err != nil {
			return "", err
		}
	}
	if len(res.Records) == 0 {
		return "", fmt.Errorf("comparison upsert returned no record")
	}
	return recordString(res.Records[0], "uuid"), nil
}

func (s *Memgraph) ComparisonByID(ctx context.Context, id string) (*model.Comparison, error) {
	return s.oneComparison(ctx, driver.GetComparisonQuery, map[string]interface{}{"uuid": id})
}

func (s *Memgraph) ComparisonByPair(ctx context.Context, nodeA, nodeB string) (*model.Comparison, error) {
	return s.oneComparison(ctx, driver.GetComparisonByPairQuery, map[string]interface{}{
		"pair_key": model.PairKey(nodeA, nodeB),
	})
}

func (s *Memgraph) ComparisonsForNode(ctx context.Context, node string) ([]model.Comparison, error) {
	return s.manyComparisons(ctx, driver.GetComparisonsForNodeQuery, map[string]interface{}{"node": node})
}

func (s *Memgraph) PendingComparisons(ctx context.Context) ([]model.Comparison, error) {
	return s.manyComparisons(ctx, driver.GetPendingComparisonsQuery, nil)
}

func (s *Memgraph) SetScore(ctx context.Context, id string, score model.Score) (bool, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.SetScoreQuery, map[string]interface{}{
		"uuid":             id,
		"similarity_score": score.SimilarityScore,
		"confidence":       string(score.Confidence),
		"reasoning":        score.Reasoning,
	})
	if err != nil {
		return false, err
	}
	return len(res.Records) > 0, nil
}

func (s *Memgraph) SetDecision(ctx context.Context, id string, decision model.Decision, at time.Time) (bool, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.SetDecisionQuery, map[string]interface{}{
		"uuid":         id,
		"decision":     string(decision),
		"confirmed_at": at.Format(time.RFC3339),
	})
	if err != nil {
		return false, err
	}
	return len(res.Records) > 0, nil
}

func (s *Memgraph) DeletePendingComparison(ctx context.Context, id string) (bool, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.DeletePendingComparisonQuery, map[string]interface{}{
		"uuid": id,
	})
	if err != nil {
		return false, err
	}
	return len(res.Records) > 0, nil
}

func (s *Memgraph) CreateMerge(ctx context.Context, m *model.Merge) error {
	_, err := s.Driver.ExecuteQuery(ctx, driver.CreateMergeQuery, map[string]interface{}{
		"uuid":       m.UUID,
		"absorbed":   m.Absorbed,
		"canonical":  m.Canonical,
		"comparison": m.Comparison,
		"merged_at":  m.MergedAt.Format(time.RFC3339),
		"merged_by":  string(m.MergedBy),
	})
	return err
}

func (s *Memgraph) MergesForNode(ctx context.Context, node string) ([]model.Merge, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.GetMergesForNodeQuery, map[string]interface{}{"node": node})
	if err != nil {
		return nil, err
	}
	merges := make([]model.Merge, 0, len(res.Records))
	for _, rec := range res.Records {
		merges = append(merges, model.Merge{
			UUID:       recordString(rec, "uuid"),
			Absorbed:   recordString(rec, "absorbed"),
			Canonical:  recordString(rec, "canonical"),
			Comparison: recordString(rec, "comparison"),
			MergedAt:   recordTime(rec, "merged_at"),
			MergedBy:   model.MergedBy(recordString(rec, "merged_by")),
		})
	}
	return merges, nil
}

func (s *Memgraph) SaveConnection(ctx context.Context, c *model.Connection) error {
	_, err := s.Driver.ExecuteQuery(ctx, driver.SaveConnectionQuery, map[string]interface{}{
		"uuid":        c.UUID,
		"account":     c.Account,
		"profile_url": c.ProfileURL,
		"attributes":  marshalSnapshot(c.Attributes),
	})
	return err
}

func (s *Memgraph) Connections(ctx context.Context, account string) ([]model.Connection, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.GetConnectionsQuery, map[string]interface{}{"account": account})
	if err != nil {
		return nil, err
	}
	conns := make([]model.Connection, 0, len(res.Records))
	for _, rec := range res.Records {
		conns = append(conns, model.Connection{
			UUID:       recordString(rec, "uuid"),
			Account:    recordString(rec, "account"),
			ProfileURL: recordString(rec, "profile_url"),
			Attributes: unmarshalSnapshot(rec, "attributes"),
		})
	}
	return conns, nil
}

func (s *Memgraph) AddNodeToNetwork(ctx context.Context, owner, node, source string) error {
	_, err := s.Driver.ExecuteQuery(ctx, driver.AddNodeToNetworkQuery, map[string]interface{}{
		"owner":  owner,
		"node":   node,
		"source": source,
	})
	return err
}

func (s *Memgraph) ApplyMerge(ctx context.Context, absorbed, canonical string) error {
	params := map[string]interface{}{
		"absorbed":  absorbed,
		"canonical": canonical,
	}
	if _, err := s.Driver.ExecuteQuery(ctx, driver.RepointMembershipQuery, params); err != nil {
		return fmt.Errorf("failed to repoint memberships: %w", err)
	}
	if _, err := s.Driver.ExecuteQuery(ctx, driver.DeleteAbsorbedQuery, params); err != nil {
		return fmt.Errorf("failed to delete absorbed node: %w", err)
	}
	return nil
}

func (s *Memgraph) oneComparison(ctx context.Context, query string, params map[string]interface{}) (*model.Comparison, error) {
	res, err := s.Driver.ExecuteQuery(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, nil
	}
	c := comparisonFromRecord(res.Records[0])
	return &c, nil
}

func (s *Memgraph) manyComparisons(ctx context.Context, query string, params map[string]interface{}) ([]model.Comparison, error) {
	res, err := s.Driver.ExecuteQuery(ctx, query, params)
	if err != nil {
		return nil, err
	}
	comparisons := make([]model.Comparison, 0, len(res.Records))
	for _, rec := range res.Records {
		comparisons = append(comparisons, comparisonFromRecord(rec))
	}
	return comparisons, nil
}

func comparisonFromRecord(rec *neo4j.Record) model.Comparison {
	c := model.Comparison{
		UUID:         recordString(rec, "uuid"),
		NodeA:        recordString(rec, "node_a"),
		NodeB:        recordString(rec, "node_b"),
		Reasoning:    recordString(rec, "reasoning"),
		Confidence:   model.Confidence(recordString(rec, "confidence")),
		UserDecision: model.Decision(recordString(rec, "user_decision")),
		CreatedAt:    recordTime(rec, "created_at"),
		NodeAInfo:    unmarshalSnapshot(rec, "node_a_info"),
		NodeBInfo:    unmarshalSnapshot(rec, "node_b_info"),
	}
	if v, ok := rec.Get("similarity_score"); ok && v != nil {
		if f, ok := v.(float64); ok {
			c.SimilarityScore = &f
		}
	}
	if v, ok := rec.Get("confirmed_at"); ok && v != nil {
		if s, ok := v.(string); ok {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				c.ConfirmedAt = &t
			}
		}
	}
	return c
}

func recordString(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.(string)
	return s
}

func recordTime(rec *neo4j.Record, key string) time.Time {
	t, _ := time.Parse(time.RFC3339, recordString(rec, key))
	return t
}

func marshalSnapshot(s model.Snapshot) interface{} {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	return string(data)
}

func unmarshalSnapshot(rec *neo4j.Record, key string) model.Snapshot {
	raw := recordString(rec, key)
	if raw == "" {
		return nil
	}
	var s model.Snapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil
	}
	return s
}
