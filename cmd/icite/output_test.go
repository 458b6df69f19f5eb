// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/icite/pkg/types"
)

func TestFormatFromFlags(t *testing.T) {
	f, err := formatFromFlags(false, false)
	require.NoError(t, err)
	assert.Equal(t, formatTable, f)

	f, err = formatFromFlags(true, false)
	require.NoError(t, err)
	assert.Equal(t, formatJSON, f)

	f, err = formatFromFlags(false, true)
	require.NoError(t, err)
	assert.Equal(t, formatYAML, f)

	_, err = formatFromFlags(true, true)
	assert.Error(t, err)
}

func TestPrintPapers(t *testing.T) {
	var buf bytes.Buffer
	printPapers(&buf, []types.Paper{
		{Identifier: "2101.00001", Title: "Graph Attention", Similarity: types.Float(0.91234)},
		{Identifier: "10.1000/x", Title: strings.Repeat("long ", 20)},
	})
	out := buf.String()
	assert.Contains(t, out, "0.9123")
	assert.Contains(t, out, "2101.00001")
	assert.Contains(t, out, "...")

	buf.Reset()
	printPapers(&buf, nil)
	assert.Equal(t, "No papers.\n", buf.String())
}

func TestEncodeYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, encode(&buf, formatYAML, types.Related{
		Papers:    []types.Paper{{Identifier: "P1", Title: "T"}},
		UsedEdges: []types.CitationEdge{{Source: "P1", CitedBy: "P2"}},
	}))
	assert.Contains(t, buf.String(), "doi: P1")
	assert.Contains(t, buf.String(), "source_paper: P1")
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", 10))
	assert.Equal(t, "abcdefg...", clip("abcdefghijklmnop", 10))
	assert.Equal(t, "ééééééé...", clip(strings.Repeat("é", 12), 10))
}
