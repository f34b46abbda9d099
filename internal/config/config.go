package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type LLMConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type DisambiguationConfig struct {
	// Prompt is the scoring prompt template. It takes two %s verbs: the
	// JSON snapshot of node A and of node B.
	Prompt string `toml:"prompt"`
	// ScoreTimeoutSeconds bounds a single external scoring call.
	ScoreTimeoutSeconds int `toml:"score_timeout_seconds"`
}

type Config struct {
	LLM            LLMConfig            `toml:"llm"`
	Memgraph       MemgraphConfig       `toml:"memgraph"`
	Disambiguation DisambiguationConfig `toml:"disambiguation"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills anything the file left blank.
func (c *Config) ApplyDefaults() {
	if c.Disambiguation.Prompt == "" {
		c.Disambiguation.Prompt = DefaultScoringPrompt
	}
	if c.Disambiguation.ScoreTimeoutSeconds <= 0 {
		c.Disambiguation.ScoreTimeoutSeconds = 60
	}
	if c.Memgraph.URI == "" {
		c.Memgraph.URI = "bolt://localhost:7687"
	}
}

// DefaultScoringPrompt is used when the config file does not override it.
const DefaultScoringPrompt = `You are an entity disambiguation assistant. Your task is to determine whether two nodes in a network represent the same real-world person or entity.

Node 1 Information:
%s

Node 2 Information:
%s

Analyze the information provided and determine:
1. Whether these two nodes likely represent the same person/entity
2. Your confidence level (high, medium, or low)
3. Your reasoning for the decision

Consider factors such as:
- Name similarity (including variations, nicknames, abbreviations)
- Location/affiliation overlap
- Professional information (companies, positions, education)
- Any other identifying information

Return ONLY a JSON object with the following structure:
{
  "similarityScore": <number between 0.0 and 1.0, where 1.0 means definitely the same>,
  "confidence": <"high" | "medium" | "low">,
  "reasoning": <string explaining your analysis>
}`
