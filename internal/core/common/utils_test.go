package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Score float64 `json:"score"`
	Note  string  `json:"note"`
}

func TestParseJSONPlain(t *testing.T) {
	got, err := ParseJSON[payload](`{"score": 0.7, "note": "ok"}`)
	require.NoError(t, err)
	assert.Equal(t, 0.7, got.Score)
	assert.Equal(t, "ok", got.Note)
}

func TestParseJSONStripsPreamble(t *testing.T) {
	response := "Sure! Here you go:\n```json\n{\"score\": 1, \"note\": \"wrapped\"}\n```\nAnything else?"
	got, err := ParseJSON[payload](response)
	require.NoError(t, err)
	assert.Equal(t, "wrapped", got.Note)
}

func TestParseJSONNoObject(t *testing.T) {
	_, err := ParseJSON[payload]("no json here")
	assert.Error(t, err)
}

func TestParseJSONMalformed(t *testing.T) {
	_, err := ParseJSON[payload](`{"score": }`)
	assert.Error(t, err)
}
