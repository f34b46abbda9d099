// Package similarity holds the cheap deterministic heuristics that gate the
// comparison pipeline: a string-similarity pre-filter that decides whether a
// pair of node snapshots is worth sending to the LLM at all, and the
// profile-URL normalization behind the exact-identifier fast path.
package similarity

import (
	"regexp"
	"strings"

	"github.com/personet/doppel/internal/core/model"
)

// Thresholds per field. The combined name gets a low bar because partial
// positional overlap on "Jon Smith" vs "John Smith" already lands well below
// the per-field bars.
const (
	fullNameThreshold = 0.3
	nameThreshold     = 0.5
	companyThreshold  = 0.6
	locationThreshold = 0.6
)

var profileHandleRe = regexp.MustCompile(`linkedin\.com/in/([^/?]+)`)

// NormalizeProfileURL reduces a profile URL to its canonical identifier:
// lowercased, scheme and leading www stripped, and for linkedin.com URLs just
// the /in/ handle. Returns "" for an empty input.
func NormalizeProfileURL(url string) string {
	if url == "" {
		return ""
	}
	normalized := strings.ToLower(strings.TrimSpace(url))
	normalized = strings.TrimPrefix(normalized, "https://")
	normalized = strings.TrimPrefix(normalized, "http://")
	normalized = strings.TrimPrefix(normalized, "www.")
	if m := profileHandleRe.FindStringSubmatch(normalized); m != nil {
		return m[1]
	}
	return normalized
}

// SharedProfileHandle returns the common normalized profile identifier when
// both snapshots carry one and they match, "" otherwise. A match is a
// certainty signal: two snapshots pointing at the same profile are the same
// person.
func SharedProfileHandle(a, b model.Snapshot) string {
	ha := NormalizeProfileURL(a.Text("profileUrl"))
	hb := NormalizeProfileURL(b.Text("profileUrl"))
	if ha != "" && ha == hb {
		return ha
	}
	return ""
}

// WorthComparing reports whether two snapshots have enough lexical overlap to
// justify LLM analysis. Pure function; crossing any single field threshold is
// enough.
func WorthComparing(a, b model.Snapshot) bool {
	if a == nil || b == nil {
		return false
	}

	name1 := joinName(a)
	name2 := joinName(b)
	if name1 != "" && name2 != "" && ratio(name1, name2) > fullNameThreshold {
		return true
	}

	fields := []struct {
		key       string
		threshold float64
	}{
		{"firstName", nameThreshold},
		{"lastName", nameThreshold},
		{"currentCompany", companyThreshold},
		{"location", locationThreshold},
	}
	for _, f := range fields {
		v1 := normalize(a.Text(f.key))
		v2 := normalize(b.Text(f.key))
		if v1 != "" && v2 != "" && ratio(v1, v2) > f.threshold {
			return true
		}
	}

	return false
}

func joinName(s model.Snapshot) string {
	var parts []string
	for _, key := range []string{"firstName", "lastName"} {
		if v := s.Text(key); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ratio is a positional character-match ratio over the shorter string,
// normalized by the longer length. Containment short-circuits to a fixed
// high score so "Jon"/"Jonathan" style prefixes pass the name thresholds.
func ratio(s1, s2 string) float64 {
	s1 = normalize(s1)
	s2 = normalize(s2)
	if s1 == "" || s2 == "" {
		return 0
	}
	if s1 == s2 {
		return 1
	}
	if strings.Contains(s1, s2) || strings.Contains(s2, s1) {
		return 0.7
	}

	// Compare runes, not bytes, so accented names are not penalized for
	// their multibyte encoding.
	r1 := []rune(s1)
	r2 := []rune(s2)
	minLen := len(r1)
	if len(r2) < minLen {
		minLen = len(r2)
	}
	matches := 0
	for i := 0; i < minLen; i++ {
		if r1[i] == r2[i] {
			matches++
		}
	}
	maxLen := len(r1)
	if len(r2) > maxLen {
		maxLen = len(r2)
	}
	return float64(matches) / float64(maxLen)
}
