// Package scoring wraps the external LLM call that produces a similarity
// assessment for a pair of node snapshots. It is a pure boundary: one call
// per invocation, bounded by a timeout, no retries, no caching. The
// lifecycle manager decides when to invoke it, which is what keeps the
// "score at most once per comparison" contract cheap to uphold.
package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/personet/doppel/internal/core/common"
	"github.com/personet/doppel/internal/core/model"
	"github.com/personet/doppel/internal/llm"
)

type Client struct {
	llm     llm.LLMClient
	prompt  string
	timeout time.Duration
}

// NewClient builds a scorer around llmClient. The prompt template takes two
// %s verbs (node A JSON, node B JSON). Credentials live inside llmClient;
// nothing here reads the environment.
func NewClient(llmClient llm.LLMClient, prompt string, timeout time.Duration) *Client {
	return &Client{
		llm:     llmClient,
		prompt:  prompt,
		timeout: timeout,
	}
}

// Score asks the LLM whether the two snapshots describe the same entity.
// The response is parsed leniently: prose and markdown around the JSON are
// tolerated, the score is clamped to [0,1] and defaults to 0.5, confidence
// defaults to medium, reasoning to a placeholder. Transport failures,
// timeouts, empty bodies and unparsable payloads are all returned as errors
// and leave nothing behind for the caller to clean up.
func (c *Client) Score(ctx context.Context, a, b model.Snapshot) (model.Score, error) {
	prompt := fmt.Sprintf(c.prompt, describe(a, "node 1"), describe(b, "node 2"))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	response, err := c.llm.Generate(ctx, prompt)
	if err != nil {
		return model.Score{}, fmt.Errorf("llm analysis failed: %w", err)
	}
	if strings.TrimSpace(response) == "" {
		return model.Score{}, fmt.Errorf("no response from llm")
	}

	raw, err := common.ParseJSON[map[string]any](response)
	if err != nil {
		return model.Score{}, fmt.Errorf("could not parse llm response: %w", err)
	}

	return normalize(raw), nil
}

func describe(s model.Snapshot, label string) string {
	if s == nil {
		return fmt.Sprintf("No information provided for %s", label)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Sprintf("No information provided for %s", label)
	}
	return string(data)
}

func normalize(raw map[string]any) model.Score {
	score := model.Score{
		SimilarityScore: 0.5,
		Confidence:      model.ConfidenceMedium,
		Reasoning:       "No reasoning provided",
	}

	if v, ok := raw["similarityScore"].(float64); ok {
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		score.SimilarityScore = v
	}
	if v, ok := raw["confidence"].(string); ok {
		if conf := model.Confidence(v); conf.Valid() {
			score.Confidence = conf
		}
	}
	if v, ok := raw["reasoning"].(string); ok {
		score.Reasoning = v
	}

	return score
}
