package common

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSON unmarshals the first JSON object found in response into T.
// LLM responses routinely wrap the payload in prose or markdown fences;
// everything outside the outermost {...} is discarded.
func ParseJSON[T any](response string) (T, error) {
	var zero T

	start := strings.IndexByte(response, '{')
	end := strings.LastIndexByte(response, '}')
	if start == -1 || end == -1 || end < start {
		return zero, fmt.Errorf("no JSON object found in response")
	}
	jsonStr := response[start : end+1]

	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal JSON: %w\nData: %s", err, jsonStr)
	}

	return result, nil
}
