package index

import (
	"errors"
	"sort"
	"strconv"

	"github.com/dominikbraun/graph"
	"github.com/mvp-joe/submodel/internal/deck"
)

// groupDef accumulates the raw definition of one named set across every
// block that mentions it (duplicate blocks extend membership).
type groupDef struct {
	name    string
	kind    GroupKind
	ids     []int
	refs    []string
	blocks  []int
	cyclic  bool
	invalid bool
}

func (b *builder) groupDef(kind GroupKind, name string) *groupDef {
	def, ok := b.groupDefs[kind][name]
	if !ok {
		def = &groupDef{name: name, kind: kind}
		b.groupDefs[kind][name] = def
	}
	return def
}

// collectGroup records one ELSET or NSET block. GENERATE ranges expand to
// explicit membership immediately; nested set references are kept symbolic
// until expandGroups runs the fixpoint.
func (b *builder) collectGroup(blk *deck.Block, kind GroupKind, name string) {
	if name == "" {
		b.warnf(WarnMalformedField, blk.Order, "%s block has no %s option", blk.Keyword, blk.Keyword)
		return
	}
	def := b.groupDef(kind, name)
	def.blocks = append(def.blocks, blk.Order)

	if blk.HasParam("generate") {
		for _, line := range blk.DataLines() {
			ids, err := expandRange(deck.SplitFields(line))
			if err != nil {
				b.warnf(WarnInvalidRange, blk.Order, "%s %q: %v", blk.Keyword, name, err)
				def.invalid = true
				return
			}
			def.ids = append(def.ids, ids...)
		}
		return
	}

	for _, line := range blk.DataLines() {
		for _, f := range deck.SplitFields(line) {
			if id, err := strconv.Atoi(f); err == nil {
				def.ids = append(def.ids, id)
			} else {
				def.refs = append(def.refs, f)
			}
		}
	}
}

// expandRange expands a GENERATE data line (start, end[, step]) into the
// inclusive id list. Malformed, non-positive-step, and descending ranges are
// rejected rather than guessed.
func expandRange(fields []string) ([]int, error) {
	if len(fields) < 2 || len(fields) > 3 {
		return nil, errors.New("generate range needs (start, end[, step])")
	}
	vals := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, errors.New("generate range has non-integer field " + strconv.Quote(f))
		}
		vals[i] = v
	}
	start, end, step := vals[0], vals[1], 1
	if len(vals) == 3 {
		step = vals[2]
	}
	if step <= 0 {
		return nil, errors.New("generate range has non-positive step")
	}
	if end < start {
		return nil, errors.New("generate range is descending")
	}
	ids := make([]int, 0, (end-start)/step+1)
	for id := start; id <= end; id += step {
		ids = append(ids, id)
	}
	return ids, nil
}

// expandGroups resolves nested set references through an iterative fixpoint.
// The reference structure is held in a cycle-rejecting directed graph: the
// edge that would close a cycle is refused, the group introducing it is
// dropped with a cyclic-group error, and every other group still expands.
// Recursion is never used, so arbitrarily deep nesting cannot overflow.
func (b *builder) expandGroups() {
	for _, kind := range []GroupKind{ElementSet, NodeSet} {
		b.expandGroupKind(kind, b.groupDefs[kind])
	}
}

func (b *builder) expandGroupKind(kind GroupKind, defs map[string]*groupDef) {
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	for _, name := range names {
		_ = g.AddVertex(name)
	}
	for _, name := range names {
		def := defs[name]
		for _, ref := range def.refs {
			if _, known := defs[ref]; !known {
				b.warnf(WarnUnresolvedRef, firstBlock(def), "%s %q references unknown set %q", kind, name, ref)
				continue
			}
			err := g.AddEdge(name, ref)
			switch {
			case err == nil || errors.Is(err, graph.ErrEdgeAlreadyExists):
			case errors.Is(err, graph.ErrEdgeCreatesCycle):
				b.warnf(WarnCyclicGroup, firstBlock(def), "%s %q: reference to %q closes a membership cycle, set dropped", kind, name, ref)
				def.cyclic = true
			default:
				b.warnf(WarnUnresolvedRef, firstBlock(def), "%s %q: %v", kind, name, err)
			}
		}
	}

	// Monotone fixpoint over member sets. Terminates because membership only
	// grows and the id universe is finite.
	members := make(map[string]map[int]struct{}, len(defs))
	for _, name := range names {
		def := defs[name]
		set := make(map[int]struct{}, len(def.ids))
		if !def.cyclic && !def.invalid {
			for _, id := range def.ids {
				set[id] = struct{}{}
			}
		}
		members[name] = set
	}
	for changed := true; changed; {
		changed = false
		for _, name := range names {
			def := defs[name]
			if def.cyclic || def.invalid {
				continue
			}
			set := members[name]
			for _, ref := range def.refs {
				refSet, known := members[ref]
				if !known || defs[ref].cyclic {
					continue
				}
				for id := range refSet {
					if _, ok := set[id]; !ok {
						set[id] = struct{}{}
						changed = true
					}
				}
			}
		}
	}

	table := b.ix.Elsets
	if kind == NodeSet {
		table = b.ix.Nsets
	}
	for _, name := range names {
		def := defs[name]
		ids := make([]int, 0, len(members[name]))
		for id := range members[name] {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		table[name] = &Group{
			Name:    name,
			Kind:    kind,
			Members: ids,
			Refs:    def.refs,
			Blocks:  def.blocks,
			Cyclic:  def.cyclic,
			Invalid: def.invalid,
		}
	}
}

func firstBlock(def *groupDef) int {
	if len(def.blocks) == 0 {
		return 0
	}
	return def.blocks[0]
}
