package sbf

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var floatField = regexp.MustCompile(`^-?\d+\.\d{5}$`)

func TestWriteStats_Format(t *testing.T) {
	f, err := New(4, HashSHA1, 2, 2, zeroSaltFile(t, 2))
	require.NoError(t, err)

	require.NoError(t, f.Insert([]byte("first"), 1))
	require.NoError(t, f.Insert([]byte("second"), 2))

	var buf bytes.Buffer
	require.NoError(t, f.WriteStats(&buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 13+1+2)

	wantPrefix := []string{
		"hash_family;1",
		"hash_number;2",
		"area_number;2",
		"bit_mapping;4",
		"cells_number;16",
		"cell_size;1",
		"byte_size;16",
		"members;2",
	}
	for i, want := range wantPrefix {
		assert.Equal(t, want, lines[i])
	}

	assert.True(t, strings.HasPrefix(lines[8], "collisions;"))

	// Floats carry exactly five decimal places.
	for _, line := range []string{lines[9], lines[10], lines[11], lines[12]} {
		parts := strings.SplitN(line, ";", 2)
		require.Len(t, parts, 2, "line %q", line)
		assert.Regexp(t, floatField, parts[1], "line %q", line)
	}
	assert.True(t, strings.HasPrefix(lines[9], "sparsity;"))
	assert.True(t, strings.HasPrefix(lines[10], "a-priori fpp;"))
	assert.True(t, strings.HasPrefix(lines[11], "fpp;"))
	assert.True(t, strings.HasPrefix(lines[12], "a-priori safeness probability;"))

	assert.Equal(t, areaHeader, lines[13])

	for i, line := range lines[14:] {
		fields := strings.Split(line, ";")
		require.Len(t, fields, 13, "area row %q", line)
		assert.Equal(t, strconv.Itoa(i+1), fields[0])
		for _, field := range fields[5:] {
			assert.Regexp(t, floatField, field, "area row %q", line)
		}
	}
}

func TestWriteCells_OnePerLine(t *testing.T) {
	f := newTestFilter(t, 4, 1, 300)

	require.NoError(t, f.Insert([]byte{3}, 1))
	require.NoError(t, f.Insert([]byte{7}, 300))

	var buf bytes.Buffer
	require.NoError(t, f.WriteCells(&buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 16)

	nonzero := 0
	for i, line := range lines {
		label, err := strconv.Atoi(line)
		require.NoError(t, err, "line %d", i)
		if label != 0 {
			nonzero++
		}
	}

	assert.Equal(t, f.AreaCells(1)+f.AreaCells(300), nonzero)
	assert.Equal(t, "1", lines[3])
	assert.Equal(t, "300", lines[7])
}

func TestDump_Report(t *testing.T) {
	f := newTestFilter(t, 4, 1, 2)

	require.NoError(t, f.Insert([]byte{3}, 1))
	require.NoError(t, f.Insert([]byte{7}, 2))

	var buf bytes.Buffer
	require.NoError(t, f.Dump(&buf, true))

	out := buf.String()
	assert.Contains(t, out, "Spatial bloom filter details")
	assert.Contains(t, out, "Number of cells: 16")
	assert.Contains(t, out, "Area 1: 1 members")
	assert.Contains(t, out, "flotation safe")
	assert.Contains(t, out, "Filter cells content:")
}
