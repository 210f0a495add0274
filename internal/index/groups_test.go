package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for group collection and expansion:
// - GENERATE ranges expand inclusively with the given step
// - Descending and non-positive-step ranges are rejected, not reversed
// - Nested set references expand to full transitive membership
// - Forward references resolve (definition order does not matter)
// - Duplicate set names extend membership
// - A reference cycle drops the offending set and warns, others survive
// - References to undefined sets warn and are skipped

func TestExpandRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		fields  []string
		want    []int
		wantErr bool
	}{
		{"step two", []string{"100", "110", "2"}, []int{100, 102, 104, 106, 108, 110}, false},
		{"default step", []string{"1", "4"}, []int{1, 2, 3, 4}, false},
		{"single id", []string{"7", "7"}, []int{7}, false},
		{"uneven step stops short", []string{"1", "10", "4"}, []int{1, 5, 9}, false},
		{"descending", []string{"110", "100", "2"}, nil, true},
		{"zero step", []string{"1", "10", "0"}, nil, true},
		{"negative step", []string{"10", "1", "-1"}, nil, true},
		{"too few fields", []string{"5"}, nil, true},
		{"non-integer", []string{"1", "ten"}, nil, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := expandRange(tt.fields)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGroups_GenerateBlock(t *testing.T) {
	t.Parallel()

	ix := Build(mustScan(t, `*Elset, Elset=rim, Generate
100, 110, 2
`))

	require.Contains(t, ix.Elsets, "rim")
	assert.Equal(t, []int{100, 102, 104, 106, 108, 110}, ix.Elsets["rim"].Members)
	assert.Empty(t, ix.Warnings)
}

func TestGroups_InvalidRangeWarnsAndEmpties(t *testing.T) {
	t.Parallel()

	ix := Build(mustScan(t, `*Elset, Elset=bad, Generate
110, 100, 2
*Elset, Elset=good
1, 2, 3
`))

	require.Len(t, ix.Warnings, 1)
	assert.Equal(t, WarnInvalidRange, ix.Warnings[0].Kind)

	require.Contains(t, ix.Elsets, "bad")
	assert.True(t, ix.Elsets["bad"].Invalid)
	assert.Empty(t, ix.Elsets["bad"].Members)
	assert.Equal(t, []int{1, 2, 3}, ix.Elsets["good"].Members)
}

func TestGroups_NestedExpansion(t *testing.T) {
	t.Parallel()

	// "all" references "axle" before axle is defined; axle itself nests "hub".
	ix := Build(mustScan(t, `*Elset, Elset=all
axle, 1
*Elset, Elset=axle
2, hub
*Elset, Elset=hub
3, 4
`))

	assert.Equal(t, []int{3, 4}, ix.Elsets["hub"].Members)
	assert.Equal(t, []int{2, 3, 4}, ix.Elsets["axle"].Members)
	assert.Equal(t, []int{1, 2, 3, 4}, ix.Elsets["all"].Members)
	assert.Empty(t, ix.Warnings)
}

func TestGroups_DuplicateNameExtends(t *testing.T) {
	t.Parallel()

	ix := Build(mustScan(t, `*Nset, Nset=fixed
1, 2
*Nset, Nset=fixed
3
`))

	require.Contains(t, ix.Nsets, "fixed")
	assert.Equal(t, []int{1, 2, 3}, ix.Nsets["fixed"].Members)
	assert.Len(t, ix.Nsets["fixed"].Blocks, 2)
}

func TestGroups_CycleDroppedOthersSurvive(t *testing.T) {
	t.Parallel()

	ix := Build(mustScan(t, `*Elset, Elset=a
1, b
*Elset, Elset=b
2, a
*Elset, Elset=c
3, a
`))

	var cyclic []string
	for name, g := range ix.Elsets {
		if g.Cyclic {
			cyclic = append(cyclic, name)
		}
	}
	require.Len(t, cyclic, 1, "exactly one set carries the cycle-closing edge")

	var warned bool
	for _, w := range ix.Warnings {
		if w.Kind == WarnCyclicGroup {
			warned = true
		}
	}
	assert.True(t, warned)

	// The set outside the cycle still expands through its non-cyclic part.
	require.Contains(t, ix.Elsets, "c")
	assert.Contains(t, ix.Elsets["c"].Members, 3)
	assert.False(t, ix.Elsets["c"].Cyclic)
}

func TestGroups_UnknownReferenceWarns(t *testing.T) {
	t.Parallel()

	ix := Build(mustScan(t, `*Nset, Nset=boundary
1, ghost-set
`))

	assert.Equal(t, []int{1}, ix.Nsets["boundary"].Members)
	require.Len(t, ix.Warnings, 1)
	assert.Equal(t, WarnUnresolvedRef, ix.Warnings[0].Kind)
	assert.Contains(t, ix.Warnings[0].Msg, "ghost-set")
}
