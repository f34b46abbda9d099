package model

import (
	"fmt"
	"strings"
	"time"
)

type Decision string

const (
	DecisionPending   Decision = "pending"
	DecisionSame      Decision = "same"
	DecisionDifferent Decision = "different"
)

// Final reports whether the decision is one a user can hand to confirmComparison.
func (d Decision) Final() bool {
	return d == DecisionSame || d == DecisionDifferent
}

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

func (c Confidence) Valid() bool {
	return c == ConfidenceHigh || c == ConfidenceMedium || c == ConfidenceLow
}

// Snapshot is the attribute bag captured for a node at comparison time.
// Fields are whatever the import pipeline produced (firstName, lastName,
// currentCompany, location, profileUrl, ...); none are required.
type Snapshot map[string]any

// Text returns the named field coerced to a string, "" if absent or nil.
func (s Snapshot) Text(key string) string {
	if s == nil {
		return ""
	}
	v, ok := s[key]
	if !ok || v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

// Comparison tracks one disambiguation attempt between exactly two nodes.
// NodeA/NodeB are always in canonical order so a pair has at most one record.
type Comparison struct {
	UUID            string     `json:"uuid"`
	NodeA           string     `json:"node_a"`
	NodeB           string     `json:"node_b"`
	SimilarityScore *float64   `json:"similarity_score,omitempty"`
	Reasoning       string     `json:"reasoning,omitempty"`
	Confidence      Confidence `json:"confidence,omitempty"`
	UserDecision    Decision   `json:"user_decision"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	NodeAInfo       Snapshot   `json:"node_a_info,omitempty"`
	NodeBInfo       Snapshot   `json:"node_b_info,omitempty"`
}

// Scored reports whether the scoring fields have been populated.
// Score fields are monotonic: once set they are never unset.
func (c *Comparison) Scored() bool {
	return c.SimilarityScore != nil
}

func (c *Comparison) Involves(node string) bool {
	return c.NodeA == node || c.NodeB == node
}

// OtherNode returns the pair member that is not node, "" if node is neither.
func (c *Comparison) OtherNode(node string) string {
	switch node {
	case c.NodeA:
		return c.NodeB
	case c.NodeB:
		return c.NodeA
	}
	return ""
}

// Score is the outcome of one external scoring call.
type Score struct {
	SimilarityScore float64    `json:"similarity_score"`
	Confidence      Confidence `json:"confidence"`
	Reasoning       string     `json:"reasoning"`
}

// CanonicalPair orders an unordered node pair. Every read and write of a
// Comparison goes through this so (x,y) and (y,x) hit the same record.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// PairKey is the storage key for a canonical pair, suitable for a unique
// constraint or map key.
func PairKey(a, b string) string {
	a, b = CanonicalPair(a, b)
	return strings.Join([]string{a, b}, "|")
}
