package index

import (
	"fmt"

	"github.com/mvp-joe/submodel/internal/deck"
)

// WarningKind classifies a recoverable condition hit while indexing.
type WarningKind string

const (
	WarnDuplicateID    WarningKind = "duplicate-id"
	WarnInvalidRange   WarningKind = "invalid-range"
	WarnCyclicGroup    WarningKind = "cyclic-group"
	WarnUnresolvedRef  WarningKind = "unresolved-ref"
	WarnMalformedField WarningKind = "malformed-field"
)

// Warning is a recoverable indexing diagnostic. Order is the source order of
// the block that produced it so reports are reproducible across runs.
type Warning struct {
	Kind  WarningKind `json:"kind"`
	Order int         `json:"order"`
	Msg   string      `json:"msg"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Kind, w.Msg)
}

// Node is one grid point. Raw keeps the verbatim deck line so coordinates
// are reproduced exactly as written.
type Node struct {
	ID    int     `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Raw   string  `json:"raw"`
	Block int     `json:"block"` // source order of the owning block
}

// Element is one finite element. Lines holds the verbatim record text,
// including continuation lines for elements whose node list spans lines.
type Element struct {
	ID    int      `json:"id"`
	Type  string   `json:"type"`
	Nodes []int    `json:"nodes"`
	Lines []string `json:"lines"`
	Block int      `json:"block"`
}

// GroupKind distinguishes element sets from node sets.
type GroupKind string

const (
	ElementSet GroupKind = "elset"
	NodeSet    GroupKind = "nset"
)

// Group is a named collection of nodes or elements. Members holds the fully
// expanded id list (explicit entries, GENERATE ranges, and nested set
// references flattened at build time). Names are case-sensitive as written.
// Membership is immutable after indexing.
type Group struct {
	Name    string    `json:"name"`
	Kind    GroupKind `json:"kind"`
	Members []int     `json:"members"`
	Refs    []string  `json:"refs"`   // nested set names, as written
	Blocks  []int     `json:"blocks"` // source orders of every defining block
	Cyclic  bool      `json:"cyclic"` // membership dropped due to a reference cycle
	Invalid bool      `json:"invalid"`
}

// Section links a material (and optionally a connector behavior) to the
// element set it governs.
type Section struct {
	Kind     string `json:"kind"` // "solid section", "shell section", ...
	Elset    string `json:"elset"`
	Material string `json:"material"`
	Behavior string `json:"behavior"`
	Block    int    `json:"block"`
}

// Material is a named property definition. Blocks lists the source orders of
// the material header block and every property sub-block attached to it.
type Material struct {
	Name   string `json:"name"`
	Blocks []int  `json:"blocks"`
}

// Behavior is a named connector behavior definition, structured like Material.
type Behavior struct {
	Name   string `json:"name"`
	Blocks []int  `json:"blocks"`
}

// Constraint couples nodes, sets, or surfaces. Participant fields differ per
// kind but are exposed uniformly: RefNames holds set/surface names as
// written, RefNodes holds bare node ids. Both are recorded uninterpreted;
// resolution happens at closure time.
type Constraint struct {
	Kind     string   `json:"kind"` // "tie", "coupling", "rigid body", ...
	RefNames []string `json:"ref_names"`
	RefNodes []int    `json:"ref_nodes"`
	Blocks   []int    `json:"blocks"`
}

// Surface is a named face collection defined over element sets or bare
// element ids. Element-based surfaces list ids directly in their records.
type Surface struct {
	Name        string   `json:"name"`
	RefNames    []string `json:"ref_names"`
	RefElements []int    `json:"ref_elements,omitempty"`
	Block       int      `json:"block"`
}

// Index is the queryable representation of one deck: entity tables plus
// reverse lookups. Built once per source file version and never mutated
// afterwards, so it is safe to share across concurrent resolves.
type Index struct {
	Blocks      []deck.Block         `json:"blocks"` // full scanned sequence, verbatim
	Nodes       map[int]Node         `json:"nodes"`
	Elements    map[int]Element      `json:"elements"`
	Elsets      map[string]*Group    `json:"elsets"`
	Nsets       map[string]*Group    `json:"nsets"`
	Surfaces    map[string]*Surface  `json:"surfaces"`
	Sections    map[string]*Section  `json:"sections"` // keyed by governing elset name
	Materials   map[string]*Material `json:"materials"`
	Behaviors   map[string]*Behavior `json:"behaviors"`
	Constraints []Constraint         `json:"constraints"`

	// ElementElsets maps element id -> names of elsets containing it.
	ElementElsets map[int][]string `json:"element_elsets"`

	Warnings []Warning `json:"warnings"`

	// ScanWarnings carries the scanner's diagnostics alongside the index so
	// a cache hit reports the same conditions as a fresh parse.
	ScanWarnings []deck.Warning `json:"scan_warnings,omitempty"`
}

// Counts returns table sizes for log reporting.
func (ix *Index) Counts() (nodes, elements, elsets, constraints int) {
	return len(ix.Nodes), len(ix.Elements), len(ix.Elsets), len(ix.Constraints)
}
