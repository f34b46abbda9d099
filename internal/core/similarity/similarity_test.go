package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/personet/doppel/internal/core/model"
)

func TestNormalizeProfileURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"full url", "https://www.linkedin.com/in/jdoe", "jdoe"},
		{"bare host", "linkedin.com/in/jdoe", "jdoe"},
		{"http no www", "http://linkedin.com/in/jdoe", "jdoe"},
		{"trailing path", "https://linkedin.com/in/jdoe/details", "jdoe"},
		{"query string", "https://www.linkedin.com/in/jdoe?trk=profile", "jdoe"},
		{"mixed case", "HTTPS://WWW.LinkedIn.com/in/JDoe", "jdoe"},
		{"non-linkedin", "https://www.example.com/profile/1", "example.com/profile/1"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeProfileURL(tt.url))
		})
	}
}

func TestSharedProfileHandle(t *testing.T) {
	a := model.Snapshot{"profileUrl": "https://www.linkedin.com/in/jdoe"}
	b := model.Snapshot{"profileUrl": "linkedin.com/in/jdoe"}
	assert.Equal(t, "jdoe", SharedProfileHandle(a, b))

	c := model.Snapshot{"profileUrl": "linkedin.com/in/other"}
	assert.Equal(t, "", SharedProfileHandle(a, c))

	// Two missing URLs must never count as a match.
	assert.Equal(t, "", SharedProfileHandle(model.Snapshot{}, model.Snapshot{}))
}

func TestWorthComparing(t *testing.T) {
	tests := []struct {
		name string
		a, b model.Snapshot
		want bool
	}{
		{
			"near-identical first names",
			model.Snapshot{"firstName": "Jon"},
			model.Snapshot{"firstName": "John"},
			true,
		},
		{
			"unrelated names",
			model.Snapshot{"firstName": "Zed"},
			model.Snapshot{"firstName": "Amy"},
			false,
		},
		{
			"same last name different first",
			model.Snapshot{"firstName": "Alice", "lastName": "Smith"},
			model.Snapshot{"firstName": "Bob", "lastName": "Smith"},
			true,
		},
		{
			"company containment",
			model.Snapshot{"currentCompany": "Acme"},
			model.Snapshot{"currentCompany": "Acme Corp"},
			true,
		},
		{
			"same location only",
			model.Snapshot{"location": "Boston, MA"},
			model.Snapshot{"location": "Boston, MA"},
			true,
		},
		{
			"disjoint everything",
			model.Snapshot{"firstName": "Xu", "currentCompany": "Initech"},
			model.Snapshot{"firstName": "Omar", "currentCompany": "Globex"},
			false,
		},
		{
			"case and whitespace ignored",
			model.Snapshot{"lastName": "  GARCIA "},
			model.Snapshot{"lastName": "garcia"},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WorthComparing(tt.a, tt.b))
		})
	}
}

func TestRatioCountsRunes(t *testing.T) {
	// "renée" and "renee" differ in exactly one of five characters. A
	// bytewise comparison would see the accented e as two mismatched bytes
	// and divide by the byte length, landing at 0.5 instead.
	assert.InDelta(t, 0.8, ratio("Renée", "Renee"), 1e-9)

	// Fully multibyte strings still hit the exact-match short-circuit.
	assert.Equal(t, 1.0, ratio("渡辺", "渡辺"))
	assert.InDelta(t, 0.5, ratio("渡辺", "渡部"), 1e-9)
}

func TestWorthComparingNilSnapshots(t *testing.T) {
	assert.False(t, WorthComparing(nil, model.Snapshot{"firstName": "Jon"}))
	assert.False(t, WorthComparing(model.Snapshot{"firstName": "Jon"}, nil))
}
