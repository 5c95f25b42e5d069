package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsCoverAllDimensions(t *testing.T) {
	tables := Defaults()

	assert.Equal(t, "vendor", tables.Vendor.Dimension)
	assert.Equal(t, "doc_type", tables.DocType.Dimension)
	assert.Equal(t, "topic", tables.Topic.Dimension)
	assert.Equal(t, "topology", tables.Topology.Dimension)

	assert.NotEmpty(t, tables.Vendor.Rules)
	assert.NotEmpty(t, tables.DocType.Rules)
	assert.NotEmpty(t, tables.Topic.Rules)
	assert.NotEmpty(t, tables.Topology.Rules)

	assert.Equal(t, "Unknown", tables.Vendor.Unknown)
	assert.Equal(t, "unknown", tables.DocType.Unknown)
}

func TestDefaultRulesAllHaveKeywords(t *testing.T) {
	// A rule without keywords can never score; unmatched input falls back
	// to the table's unknown label instead.
	tables := Defaults()
	for _, tbl := range []Table{tables.Vendor, tables.DocType, tables.Topic, tables.Topology} {
		for _, r := range tbl.Rules {
			assert.NotEmptyf(t, r.Keywords, "%s/%s has no keywords", tbl.Dimension, r.Label)
		}
	}
}

func TestLoadOverridesOneDimension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	yaml := `vendor:
  dimension: vendor
  unknown: nobody
  rules:
    - label: Acme
      keywords: [acme, acme corp]
      weight: 2.0
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	tables, err := Load(path)
	require.NoError(t, err)

	require.Len(t, tables.Vendor.Rules, 1)
	assert.Equal(t, "Acme", tables.Vendor.Rules[0].Label)
	assert.Equal(t, 2.0, tables.Vendor.Rules[0].Weight)
	assert.Equal(t, "nobody", tables.Vendor.Unknown)

	// Dimensions absent from the file keep the defaults.
	assert.Equal(t, Defaults().DocType, tables.DocType)
	assert.Equal(t, Defaults().Topology, tables.Topology)
}

func TestLoadMissingFile(t *testing.T) {
	tables, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	// Callers still get a usable table set.
	assert.NotEmpty(t, tables.Vendor.Rules)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vendor: [not a table"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parse rules file")
}
