package main

import (
	"bytes"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.Bytes(), err
}

func TestGenerateIsReproducible(t *testing.T) {
	first, err := runRoot(t, "generate", "violin", "--seed", "17", "--gene", "lag3")
	require.NoError(t, err)
	second, err := runRoot(t, "generate", "violin", "--seed", "17", "--gene", "lag3")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var payload struct {
		Kind    string        `json:"kind"`
		Seed    uint64        `json:"seed"`
		Gene    string        `json:"gene"`
		Samples []interface{} `json:"samples"`
	}
	require.NoError(t, json.Unmarshal(first, &payload))
	assert.Equal(t, "violin", payload.Kind)
	assert.Equal(t, uint64(17), payload.Seed)
	assert.Equal(t, "LAG3", payload.Gene)
	assert.Len(t, payload.Samples, 200)
}

func TestGenerateRisk(t *testing.T) {
	out, err := runRoot(t, "generate", "risk", "--seed", "3", "--patient", "P002", "--timepoint", "week8")
	require.NoError(t, err)

	var payload struct {
		Risk   []map[string]interface{} `json:"risk"`
		Active struct {
			Label string `json:"label"`
		} `json:"active"`
		Interpretation string `json:"interpretation"`
	}
	require.NoError(t, json.Unmarshal(out, &payload))
	assert.Len(t, payload.Risk, 5)
	assert.Equal(t, "week8", payload.Active.Label)
	assert.NotEmpty(t, payload.Interpretation)
}

func TestGenerateRejectsUnknownKind(t *testing.T) {
	_, err := runRoot(t, "generate", "tiles")
	assert.Error(t, err)
}
