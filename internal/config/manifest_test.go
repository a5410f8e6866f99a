package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqilarik/grouping/grouping"
)

const sampleManifest = `
strategies:
  - id: message
    version: "1.0"
    applicable: 'message != nil'
  - id: stacktrace
    version: "2.0"
    priority: 50
    flavors: [platform:python, platform:generic]
    applicable: 'true'
    behavior: frames
lineage:
  platform:python: [stacktrace:1.0]
`

func behaviors() map[string]grouping.Strategy {
	return map[string]grouping.Strategy{
		"message": grouping.StrategyFunc(func(in grouping.Interfaces, _ string, h *grouping.Hasher) error {
			if m, ok := in["message"].(string); ok {
				h.ContributeValue(m)
			}
			return nil
		}),
		"frames": grouping.StrategyFunc(func(_ grouping.Interfaces, _ string, h *grouping.Hasher) error {
			h.ContributeValue("frame")
			return nil
		}),
	}
}

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	require.NoError(t, err)
	require.Len(t, m.Strategies, 2)
	assert.Equal(t, "message", m.Strategies[0].ID)
	require.NotNil(t, m.Strategies[1].Priority)
	assert.Equal(t, 50, *m.Strategies[1].Priority)
	assert.Equal(t, "frames", m.Strategies[1].Behavior)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing-id", "strategies:\n  - version: \"1.0\"\n"},
		{"missing-version", "strategies:\n  - id: message\n"},
		{"unknown-field", "strategies:\n  - id: message\n    version: \"1.0\"\n    colour: red\n"},
		{"not-yaml", "strategies: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte(strings.Repeat("#", MaxManifestSize+1)))
	assert.Error(t, err)
}

func TestParse_Empty(t *testing.T) {
	m, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, m.Strategies)
}

func TestManifest_Apply(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	require.NoError(t, err)

	r := grouping.NewRegistry()
	require.NoError(t, m.Apply(r, behaviors()))

	d, ok := r.Lookup("stacktrace", "2.0")
	require.True(t, ok)
	assert.Equal(t, 50, d.Priority)
	assert.Equal(t, []string{"platform:python", "platform:generic"}, d.Flavors)
	assert.Equal(t, "true", d.Condition())

	d, ok = r.Lookup("message", "1.0")
	require.True(t, ok)
	assert.Equal(t, grouping.DefaultPriority, d.Priority)
	assert.True(t, d.IsApplicable(grouping.Event{"message": "boom"}))
	assert.False(t, d.IsApplicable(grouping.Event{}))
}

func TestManifest_ApplyUnknownBehavior(t *testing.T) {
	m := &Manifest{Strategies: []StrategyYAML{{ID: "native", Version: "1.0"}}}
	err := m.Apply(grouping.NewRegistry(), behaviors())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown behavior "native"`)
}

func TestManifest_ApplyBadCondition(t *testing.T) {
	m := &Manifest{Strategies: []StrategyYAML{{ID: "message", Version: "1.0", Applicable: "1 +"}}}
	assert.Error(t, m.Apply(grouping.NewRegistry(), behaviors()))
}

func TestManifest_LineageLock(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	require.NoError(t, err)

	lock, err := m.LineageLock()
	require.NoError(t, err)
	v, ok := lock.Version("platform:python", "stacktrace")
	require.True(t, ok)
	assert.Equal(t, "1.0", v)

	bad := &Manifest{Lineage: map[string][]string{"platform:python": {"stacktrace"}}}
	_, err = bad.LineageLock()
	assert.Error(t, err)

	bad = &Manifest{Lineage: map[string][]string{"platform:python": {"stacktrace:one"}}}
	_, err = bad.LineageLock()
	assert.ErrorIs(t, err, grouping.ErrMalformedVersion)
}

func TestManifest_EndToEnd(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	require.NoError(t, err)
	r := grouping.NewRegistry()
	require.NoError(t, m.Apply(r, behaviors()))
	lock, err := m.LineageLock()
	require.NoError(t, err)

	nodes, err := r.Resolve(grouping.Event{"platform": "python", "message": "boom"}, lock).
		EvaluateAll(grouping.Interfaces{"message": "boom"})
	require.NoError(t, err)
	require.Len(t, nodes, 1, "stacktrace is locked to an unregistered version")
	assert.Equal(t, "message:1.0", nodes[0].Strategy)
	assert.Equal(t, []any{"boom"}, nodes[0].Values)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "strategies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o600))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, m.Strategies, 2)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
