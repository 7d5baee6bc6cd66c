package report_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomrford/mint/report"
)

func TestNoopSink_Discards(t *testing.T) {
	var s report.NoopSink
	s.Record("anything", 42) // must not panic
}

func TestReporter_NestsByLayoutBlockAndDottedPath(t *testing.T) {
	r := report.NewReporter()
	sink := r.ForBlock("layout.toml", "config")

	sink.Record("device.id", uint64(0x1234))
	sink.Record("device.name", "UnitA")
	sink.Record("flags.EnableDebug", uint64(1))
	sink.Record("flags.RegionCode", uint64(7))
	sink.Record("flags.reserved_1_3", uint64(0))
	sink.Record("coeffs", []any{uint64(10), uint64(20), uint64(30)})

	data, err := r.MarshalJSON()
	require.NoError(t, err)

	var tree map[string]map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &tree))

	cfg := tree["layout.toml"]["config"]
	device := cfg["device"].(map[string]any)
	assert.Equal(t, float64(0x1234), device["id"])
	assert.Equal(t, "UnitA", device["name"])

	flags := cfg["flags"].(map[string]any)
	assert.Equal(t, float64(1), flags["EnableDebug"])
	assert.Equal(t, float64(7), flags["RegionCode"])
	assert.Equal(t, float64(0), flags["reserved_1_3"])

	coeffs := cfg["coeffs"].([]any)
	require.Len(t, coeffs, 3)
	assert.Equal(t, float64(10), coeffs[0])
}

func TestReporter_MultipleBlocksStayIndependent(t *testing.T) {
	r := report.NewReporter()
	r.ForBlock("layout.toml", "config").Record("counter", uint64(99))
	r.ForBlock("layout.toml", "data").Record("message", "Hi")

	data, err := r.MarshalJSON()
	require.NoError(t, err)

	var tree map[string]map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &tree))

	assert.Equal(t, float64(99), tree["layout.toml"]["config"]["counter"])
	assert.Equal(t, "Hi", tree["layout.toml"]["data"]["message"])
}

func TestReporter_WriteFile(t *testing.T) {
	r := report.NewReporter()
	r.ForBlock("layout.toml", "config").Record("id", uint64(1))

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, r.WriteFile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\"id\": 1")
}
