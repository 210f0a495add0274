package index

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mvp-joe/submodel/internal/deck"
)

// sectionKinds are the section keywords that bind a material to an elset.
var sectionKinds = map[string]bool{
	"solid section":     true,
	"shell section":     true,
	"beam section":      true,
	"connector section": true,
	"membrane section":  true,
	"surface section":   true,
	"cohesive section":  true,
	"gasket section":    true,
	"truss section":     true,
	"frame section":     true,
}

// constraintKinds are the coupling keywords tracked in the constraint list.
var constraintKinds = map[string]bool{
	"coupling":                true,
	"kinematic":               true,
	"distributing":            true,
	"rigid body":              true,
	"mpc":                     true,
	"tie":                     true,
	"equation":                true,
	"embedded region":         true,
	"shell to solid coupling": true,
	"cyclic symmetry model":   true,
}

// analysisKinds are recognized only enough to be skipped; they never enter
// the dependency graph and they terminate material/behavior attachment.
var analysisKinds = map[string]bool{
	"step":               true,
	"end step":           true,
	"static":             true,
	"dynamic":            true,
	"frequency":          true,
	"buckle":             true,
	"boundary":           true,
	"cload":              true,
	"dload":              true,
	"dsload":             true,
	"amplitude":          true,
	"initial conditions": true,
	"output":             true,
	"node output":        true,
	"element output":     true,
	"contact output":     true,
	"field output":       true,
	"history output":     true,
	"restart":            true,
	"monitor":            true,
}

// surfaceSideTags are face identifiers in surface data lines, not set names.
var surfaceSideTags = map[string]bool{
	"s1": true, "s2": true, "s3": true, "s4": true, "s5": true, "s6": true,
	"spos": true, "sneg": true, "e1": true, "e2": true, "e3": true, "e4": true,
}

// constraintRefParams are the header options that name constraint
// participants. "ref node" may hold either a bare node id or an nset name.
var constraintRefParams = []string{
	"ref node", "nset", "tie nset", "elset", "surface", "master", "slave",
}

// builder accumulates tables during a single Build pass.
type builder struct {
	ix *Index

	// groupDefs collects raw set definitions per (kind, name); expansion to
	// explicit membership happens after all blocks are seen so forward and
	// nested references work.
	groupDefs map[GroupKind]map[string]*groupDef

	// attachTo is the material or behavior whose property sub-blocks are
	// being absorbed, nil when no definition is open.
	attachTo *[]int
}

// Build consumes the scanned block sequence and produces the structural
// index. Every malformed-input condition is recoverable at some granularity,
// so Build reports warnings on the index rather than returning an error.
func Build(blocks []deck.Block) *Index {
	b := &builder{
		ix: &Index{
			Blocks:        blocks,
			Nodes:         make(map[int]Node),
			Elements:      make(map[int]Element),
			Elsets:        make(map[string]*Group),
			Nsets:         make(map[string]*Group),
			Surfaces:      make(map[string]*Surface),
			Sections:      make(map[string]*Section),
			Materials:     make(map[string]*Material),
			Behaviors:     make(map[string]*Behavior),
			ElementElsets: make(map[int][]string),
		},
		groupDefs: map[GroupKind]map[string]*groupDef{
			ElementSet: {},
			NodeSet:    {},
		},
	}

	for i := range blocks {
		b.route(&blocks[i])
	}

	b.expandGroups()
	b.buildReverseLookups()
	b.checkReferences()

	sort.SliceStable(b.ix.Warnings, func(i, j int) bool {
		return b.ix.Warnings[i].Order < b.ix.Warnings[j].Order
	})
	return b.ix
}

func (b *builder) route(blk *deck.Block) {
	kw := blk.Keyword
	switch {
	case kw == "node":
		b.attachTo = nil
		b.indexNodes(blk)
	case kw == "element":
		b.attachTo = nil
		b.indexElements(blk)
	case kw == "elset":
		b.attachTo = nil
		b.collectGroup(blk, ElementSet, blk.Param("elset"))
	case kw == "nset":
		b.attachTo = nil
		b.collectGroup(blk, NodeSet, blk.Param("nset"))
	case kw == "surface":
		b.attachTo = nil
		b.indexSurface(blk)
	case sectionKinds[kw]:
		b.attachTo = nil
		b.indexSection(blk)
	case kw == "material":
		b.indexMaterial(blk)
	case kw == "connector behavior":
		b.indexBehavior(blk)
	case constraintKinds[kw]:
		b.attachTo = nil
		b.indexConstraint(blk)
	case analysisKinds[kw] || kw == "heading":
		b.attachTo = nil
	default:
		// Unrouted keyword. Property sub-blocks (ELASTIC, DENSITY,
		// CONNECTOR ELASTICITY, ...) belong to the open material or
		// behavior definition; anything else is ignored.
		if b.attachTo != nil {
			*b.attachTo = append(*b.attachTo, blk.Order)
		}
	}
}

func (b *builder) warnf(kind WarningKind, order int, format string, args ...any) {
	b.ix.Warnings = append(b.ix.Warnings, Warning{
		Kind:  kind,
		Order: order,
		Msg:   fmt.Sprintf(format, args...),
	})
}

func (b *builder) indexNodes(blk *deck.Block) {
	for _, line := range blk.DataLines() {
		fields := deck.SplitFields(line)
		if len(fields) == 0 {
			continue
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			b.warnf(WarnMalformedField, blk.Order, "node record %q: bad id", line)
			continue
		}
		n := Node{ID: id, Raw: line, Block: blk.Order}
		for i, dst := range []*float64{&n.X, &n.Y, &n.Z} {
			if i+1 < len(fields) {
				*dst, _ = strconv.ParseFloat(fields[i+1], 64)
			}
		}
		if _, dup := b.ix.Nodes[id]; dup {
			b.warnf(WarnDuplicateID, blk.Order, "node %d redefined, keeping latest", id)
		}
		b.ix.Nodes[id] = n
	}
}

func (b *builder) indexElements(blk *deck.Block) {
	elType := blk.Param("type")
	elset := blk.Param("elset")
	var ids []int

	lines := blk.DataLines()
	for i := 0; i < len(lines); {
		recLines := []string{lines[i]}
		fields := deck.SplitFields(lines[i])
		// A record whose node list continues is written with a trailing comma.
		for strings.HasSuffix(strings.TrimSpace(lines[i]), ",") && i+1 < len(lines) {
			i++
			recLines = append(recLines, lines[i])
			fields = append(fields, deck.SplitFields(lines[i])...)
		}
		i++

		if len(fields) == 0 {
			continue
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			b.warnf(WarnMalformedField, blk.Order, "element record %q: bad id", recLines[0])
			continue
		}
		nodes := make([]int, 0, len(fields)-1)
		for _, f := range fields[1:] {
			if nid, err := strconv.Atoi(f); err == nil {
				nodes = append(nodes, nid)
			}
		}
		if _, dup := b.ix.Elements[id]; dup {
			b.warnf(WarnDuplicateID, blk.Order, "element %d redefined, keeping latest", id)
		}
		b.ix.Elements[id] = Element{
			ID:    id,
			Type:  elType,
			Nodes: nodes,
			Lines: recLines,
			Block: blk.Order,
		}
		ids = append(ids, id)
	}

	// An ELSET option on an element block registers the block's elements as
	// (part of) that set. Target lists are written against these names.
	if elset != "" && len(ids) > 0 {
		def := b.groupDef(ElementSet, elset)
		def.ids = append(def.ids, ids...)
		def.blocks = append(def.blocks, blk.Order)
	}
}

func (b *builder) indexSurface(blk *deck.Block) {
	name := blk.Param("name")
	if name == "" {
		b.warnf(WarnMalformedField, blk.Order, "surface block has no NAME option")
		return
	}
	s := &Surface{Name: name, Block: blk.Order}
	for _, line := range blk.DataLines() {
		for _, f := range deck.SplitFields(line) {
			// Element-based surfaces reference elements by id.
			if id, err := strconv.Atoi(f); err == nil {
				s.RefElements = append(s.RefElements, id)
				continue
			}
			if surfaceSideTags[strings.ToLower(f)] {
				continue
			}
			s.RefNames = append(s.RefNames, f)
		}
	}
	b.ix.Surfaces[name] = s
}

func (b *builder) indexSection(blk *deck.Block) {
	elset := blk.Param("elset")
	if elset == "" {
		b.warnf(WarnMalformedField, blk.Order, "%s block has no ELSET option", blk.Keyword)
		return
	}
	b.ix.Sections[elset] = &Section{
		Kind:     blk.Keyword,
		Elset:    elset,
		Material: blk.Param("material"),
		Behavior: blk.Param("behavior"),
		Block:    blk.Order,
	}
}

func (b *builder) indexMaterial(blk *deck.Block) {
	name := blk.Param("name")
	if name == "" {
		b.warnf(WarnMalformedField, blk.Order, "material block has no NAME option")
		b.attachTo = nil
		return
	}
	m := &Material{Name: name, Blocks: []int{blk.Order}}
	b.ix.Materials[name] = m
	b.attachTo = &m.Blocks
}

func (b *builder) indexBehavior(blk *deck.Block) {
	name := blk.Param("name")
	if name == "" {
		b.warnf(WarnMalformedField, blk.Order, "connector behavior block has no NAME option")
		b.attachTo = nil
		return
	}
	bh := &Behavior{Name: name, Blocks: []int{blk.Order}}
	b.ix.Behaviors[name] = bh
	b.attachTo = &bh.Blocks
}

func (b *builder) indexConstraint(blk *deck.Block) {
	c := Constraint{Kind: blk.Keyword, Blocks: []int{blk.Order}}

	for _, p := range constraintRefParams {
		v := blk.Param(p)
		if v == "" {
			continue
		}
		if id, err := strconv.Atoi(v); err == nil {
			c.RefNodes = append(c.RefNodes, id)
		} else {
			c.RefNames = append(c.RefNames, v)
		}
	}

	// Data-line participants: integer tokens are node ids, everything else
	// is a set or surface name. Floats (equation coefficients, offsets) are
	// neither and are skipped.
	for _, line := range blk.DataLines() {
		for _, f := range deck.SplitFields(line) {
			if id, err := strconv.Atoi(f); err == nil {
				c.RefNodes = append(c.RefNodes, id)
				continue
			}
			if _, err := strconv.ParseFloat(f, 64); err == nil {
				continue
			}
			c.RefNames = append(c.RefNames, f)
		}
	}

	b.ix.Constraints = append(b.ix.Constraints, c)
}

// buildReverseLookups fills ElementElsets from the expanded group tables.
func (b *builder) buildReverseLookups() {
	names := make([]string, 0, len(b.ix.Elsets))
	for name := range b.ix.Elsets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, id := range b.ix.Elsets[name].Members {
			b.ix.ElementElsets[id] = append(b.ix.ElementElsets[id], name)
		}
	}
}

// checkReferences records unresolved-reference warnings for names the index
// can already prove dangling: section materials and behaviors, and section
// elsets. Constraint and surface names stay uninterpreted until resolve time.
func (b *builder) checkReferences() {
	elsets := make([]string, 0, len(b.ix.Sections))
	for elset := range b.ix.Sections {
		elsets = append(elsets, elset)
	}
	sort.Strings(elsets)
	for _, elset := range elsets {
		sec := b.ix.Sections[elset]
		if _, ok := b.ix.Elsets[elset]; !ok {
			b.warnf(WarnUnresolvedRef, sec.Block, "%s references unknown elset %q", sec.Kind, elset)
		}
		if sec.Material != "" {
			if _, ok := b.ix.Materials[sec.Material]; !ok {
				b.warnf(WarnUnresolvedRef, sec.Block, "%s for %q references unknown material %q", sec.Kind, elset, sec.Material)
			}
		}
		if sec.Behavior != "" {
			if _, ok := b.ix.Behaviors[sec.Behavior]; !ok {
				b.warnf(WarnUnresolvedRef, sec.Block, "%s for %q references unknown behavior %q", sec.Kind, elset, sec.Behavior)
			}
		}
	}
}
