package writer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/submodel/internal/deck"
	"github.com/mvp-joe/submodel/internal/index"
	"github.com/mvp-joe/submodel/internal/resolver"
)

// Test Plan for Write:
// - The output contains every closure member and reparses cleanly
// - Node and element records reproduce their original text byte for byte
// - Element blocks emit only retained records under the original header
// - Sections, materials, and constraints of the closure appear once
// - Excluded sets and their records are absent
// - The heading names the requested sets and the source file
// - A failed write leaves nothing at the destination path

const writerDeck = `*Node
1, 0.10000, 0.0,  0.0
2, 1.0E+00, 0.0,  0.0
3, 2.50,    0.0,  0.0
4, 3.0,     0.0,  0.0
*Element, Type=T3D2, Elset=keep
1, 1, 2
2, 2, 3
*Element, Type=T3D2, Elset=drop
9, 3, 4
*Solid Section, Elset=keep, Material=STEEL
1.0
*Solid Section, Elset=drop, Material=ALU
1.0
*Material, Name=STEEL
*Elastic
210000.0, 0.3
*Material, Name=ALU
*Elastic
70000.0, 0.33
*Coupling, Constraint Name=c1, Ref Node=3, Nset=link
*Nset, Nset=link
4
`

func extractTo(t *testing.T, input string, targets []string, opts ...Option) string {
	t.Helper()
	blocks, warns, err := deck.Scan(strings.NewReader(input))
	require.NoError(t, err)
	require.Empty(t, warns)
	ix := index.Build(blocks)
	c, err := resolver.Resolve(ix, targets)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "out.inp")
	require.NoError(t, Write(ix, c, dest, opts...))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	return string(data)
}

func TestWrite_ClosureComplete(t *testing.T) {
	t.Parallel()

	out := extractTo(t, writerDeck, []string{"keep"})

	// Everything the retained elements depend on is present.
	assert.Contains(t, out, "*Element, Type=T3D2, Elset=keep")
	assert.Contains(t, out, "*Solid Section, Elset=keep, Material=STEEL")
	assert.Contains(t, out, "*Material, Name=STEEL")
	assert.Contains(t, out, "*Coupling, Constraint Name=c1, Ref Node=3, Nset=link")
	assert.Contains(t, out, "*Nset, Nset=link")

	// The output is itself a scannable deck.
	blocks, warns, err := deck.Scan(strings.NewReader(out))
	require.NoError(t, err)
	assert.Empty(t, warns)
	assert.NotEmpty(t, blocks)
}

func TestWrite_VerbatimRecords(t *testing.T) {
	t.Parallel()

	out := extractTo(t, writerDeck, []string{"keep"})

	// Numeric formatting and spacing survive exactly as written.
	assert.Contains(t, out, "1, 0.10000, 0.0,  0.0")
	assert.Contains(t, out, "2, 1.0E+00, 0.0,  0.0")
	assert.NotContains(t, out, "0.1,", "records are copied, never reformatted")
}

func TestWrite_ExcludedRecordsAbsent(t *testing.T) {
	t.Parallel()

	out := extractTo(t, writerDeck, []string{"keep"})

	// The "drop" chain stays out entirely: its element block header, record,
	// section, and material.
	assert.NotContains(t, out, "Elset=drop")
	assert.NotContains(t, out, "9, 3, 4")
	assert.NotContains(t, out, "ALU")

	// Node 4 joins through nset link via the coupling, without element 9.
	assert.Contains(t, out, "4, 3.0,     0.0,  0.0")
}

func TestWrite_RetainedRecordsOnlyUnderHeader(t *testing.T) {
	t.Parallel()

	deck2 := `*Node
1, 0.0, 0.0, 0.0
2, 1.0, 0.0, 0.0
3, 2.0, 0.0, 0.0
*Element, Type=T3D2
1, 1, 2
2, 2, 3
*Elset, Elset=half
1
*Solid Section, Elset=half, Material=M
1.0
*Material, Name=M
`
	out := extractTo(t, deck2, []string{"half"})

	assert.Contains(t, out, "*Element, Type=T3D2")
	assert.Contains(t, out, "1, 1, 2")
	assert.NotContains(t, out, "2, 2, 3", "unretained records under a shared header are dropped")
}

func TestWrite_MaterialEmittedOnce(t *testing.T) {
	t.Parallel()

	// Two sets share one material; its definition must not duplicate.
	deck2 := `*Node
1, 0.0, 0.0, 0.0
2, 1.0, 0.0, 0.0
*Element, Type=T3D2, Elset=a
1, 1, 2
*Element, Type=T3D2, Elset=b
2, 1, 2
*Solid Section, Elset=a, Material=M
1.0
*Solid Section, Elset=b, Material=M
1.0
*Material, Name=M
*Elastic
1.0, 0.3
`
	out := extractTo(t, deck2, []string{"a", "b"})
	assert.Equal(t, 1, strings.Count(out, "*Material, Name=M"))
	assert.Equal(t, 1, strings.Count(out, "*Elastic"))
}

func TestWrite_OwnerSetBlocksStayOut(t *testing.T) {
	t.Parallel()

	// BIG contains an extracted element but nothing references it. Emitting
	// it would define a set listing element ids absent from the output.
	deck2 := `*Node
1, 0.0, 0.0, 0.0
2, 1.0, 0.0, 0.0
3, 2.0, 0.0, 0.0
4, 3.0, 0.0, 0.0
*Element, Type=T3D2, Elset=A
1, 1, 2
*Element, Type=T3D2
2, 3, 4
*Elset, Elset=BIG
1, 2
`
	out := extractTo(t, deck2, []string{"A"})

	assert.NotContains(t, out, "Elset=BIG")
	assert.NotContains(t, out, "2, 3, 4")
	assert.NotContains(t, out, "3, 2.0")
}

func TestWrite_ReferencedSetSelfContained(t *testing.T) {
	t.Parallel()

	// A tie names BIG, so the output must define BIG and carry every element
	// its block lists.
	deck2 := `*Node
1, 0.0, 0.0, 0.0
2, 1.0, 0.0, 0.0
3, 2.0, 0.0, 0.0
4, 3.0, 0.0, 0.0
*Element, Type=T3D2, Elset=A
1, 1, 2
*Element, Type=T3D2
2, 3, 4
*Elset, Elset=BIG
1, 2
*Tie, Name=mount
BIG
`
	out := extractTo(t, deck2, []string{"A"})

	assert.Contains(t, out, "*Elset, Elset=BIG")
	assert.Contains(t, out, "2, 3, 4")
	assert.Contains(t, out, "4, 3.0, 0.0, 0.0")
}

func TestWrite_SetBlocksClosedUnderRefs(t *testing.T) {
	t.Parallel()

	// The emitted P block names CHILD verbatim; CHILD's definition must
	// follow it into the output.
	deck2 := `*Node
1, 0.0, 0.0, 0.0
2, 1.0, 0.0, 0.0
4, 3.0, 0.0, 0.0
*Element, Type=T3D2, Elset=A
1, 1, 2
*Nset, Nset=CHILD
4
*Nset, Nset=P
CHILD
*Coupling, Ref Node=1, Nset=P
`
	out := extractTo(t, deck2, []string{"A"})

	assert.Contains(t, out, "*Nset, Nset=P")
	assert.Contains(t, out, "*Nset, Nset=CHILD")
	assert.Contains(t, out, "4, 3.0, 0.0, 0.0")
}

func TestWrite_Heading(t *testing.T) {
	t.Parallel()

	out := extractTo(t, writerDeck, []string{"keep"}, WithHeading("model.inp", []string{"keep"}))

	lines := strings.Split(out, "\n")
	require.Greater(t, len(lines), 3)
	assert.Equal(t, "*HEADING", lines[0])
	assert.Contains(t, lines[1], "keep")
	assert.Equal(t, "** Source: model.inp", lines[2])
}

func TestWrite_FailureLeavesNoDest(t *testing.T) {
	t.Parallel()

	blocks, _, err := deck.Scan(strings.NewReader(writerDeck))
	require.NoError(t, err)
	ix := index.Build(blocks)
	c, err := resolver.Resolve(ix, []string{"keep"})
	require.NoError(t, err)

	// Destination directory cannot be created below an existing file.
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	dest := filepath.Join(blocker, "sub", "out.inp")

	require.Error(t, Write(ix, c, dest))
	_, statErr := os.Stat(dest)
	assert.Error(t, statErr, "nothing was created at the destination")
}
