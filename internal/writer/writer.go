// Package writer emits the extracted sub-deck: only closure members, each
// retained record reproduced from its original captured text so numeric
// formatting survives exactly as written.
package writer

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mvp-joe/submodel/internal/deck"
	"github.com/mvp-joe/submodel/internal/index"
	"github.com/mvp-joe/submodel/internal/resolver"
)

// options configure the output heading.
type options struct {
	source  string
	targets []string
}

// Option configures a Write call.
type Option func(*options)

// WithHeading records the source file and requested sets in the output's
// heading comment.
func WithHeading(source string, targets []string) Option {
	return func(o *options) {
		o.source = source
		o.targets = targets
	}
}

// Write emits the sub-deck for closure to dest. The file is written to a
// temporary sibling and renamed into place on success; any failure removes
// the temporary so a crash never leaves a partial, syntactically invalid
// deck at dest.
//
// Output order follows the deck convention: nodes, elements, node sets,
// element sets, surfaces, sections, materials, connector behaviors,
// constraints, each kind internally in first-occurrence source order.
func Write(ix *index.Index, c *resolver.Closure, dest string, opts ...Option) (err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".submodel-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriter(tmp)
	emit := &emitter{ix: ix, c: c, w: w}
	emit.heading(o)
	emit.nodes()
	emit.elements()
	emit.groups(index.NodeSet)
	emit.groups(index.ElementSet)
	emit.surfaces()
	emit.sections()
	emit.materials()
	emit.behaviors()
	emit.constraints()
	if emit.err != nil {
		err = fmt.Errorf("write output: %w", emit.err)
		return err
	}

	if err = w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err = os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

// emitter writes deck text, latching the first error.
type emitter struct {
	ix  *index.Index
	c   *resolver.Closure
	w   *bufio.Writer
	err error
}

func (e *emitter) line(s string) {
	if e.err != nil {
		return
	}
	if _, err := e.w.WriteString(s); err != nil {
		e.err = err
		return
	}
	e.err = e.w.WriteByte('\n')
}

func (e *emitter) heading(o options) {
	e.line("*HEADING")
	label := "Extracted sub-model"
	if len(o.targets) > 0 {
		shown := o.targets
		extra := 0
		if len(shown) > 3 {
			shown, extra = shown[:3], len(shown)-3
		}
		label += " - sets: " + strings.Join(shown, ", ")
		if extra > 0 {
			label += fmt.Sprintf(" and %d more", extra)
		}
	}
	e.line(label)
	if o.source != "" {
		e.line("** Source: " + o.source)
	}
	e.line("**")
}

// nodes writes all retained nodes under one header, sorted by id, each line
// verbatim.
func (e *emitter) nodes() {
	if len(e.c.Nodes) == 0 {
		return
	}
	ids := make([]int, 0, len(e.c.Nodes))
	for id := range e.c.Nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	e.line("*NODE")
	for _, id := range ids {
		if n, ok := e.ix.Nodes[id]; ok {
			e.line(n.Raw)
		}
	}
}

// elements walks element blocks in source order, emitting each block's
// verbatim header followed by only its retained records.
func (e *emitter) elements() {
	// Element ids per owning block, in record order.
	perBlock := make(map[int][]int)
	for id := range e.c.Elements {
		el, ok := e.ix.Elements[id]
		if !ok {
			continue
		}
		perBlock[el.Block] = append(perBlock[el.Block], id)
	}
	for _, ids := range perBlock {
		sort.Ints(ids)
	}

	for bi := range e.ix.Blocks {
		blk := &e.ix.Blocks[bi]
		ids := perBlock[blk.Order]
		if blk.Keyword != "element" || len(ids) == 0 {
			continue
		}
		e.line(blk.Header)
		for _, id := range ids {
			for _, l := range e.ix.Elements[id].Lines {
				e.line(l)
			}
		}
	}
}

// groups writes the defining blocks of every retained set of the given kind,
// verbatim, in source order. Element blocks carrying an ELSET option are
// skipped here; their membership was already emitted in the element section.
func (e *emitter) groups(kind index.GroupKind) {
	table, keyword := e.ix.Nsets, "nset"
	included := e.c.Nsets
	if kind == index.ElementSet {
		table, keyword = e.ix.Elsets, "elset"
		included = e.c.Elsets
	}

	var orders []int
	for name := range included {
		g, ok := table[name]
		if !ok || g.Cyclic || g.Invalid {
			continue
		}
		for _, order := range g.Blocks {
			if e.ix.Blocks[order].Keyword == keyword {
				orders = append(orders, order)
			}
		}
	}
	e.emitBlocks(orders, false)
}

func (e *emitter) surfaces() {
	var orders []int
	for name := range e.c.Surfaces {
		if s, ok := e.ix.Surfaces[name]; ok {
			orders = append(orders, s.Block)
		}
	}
	e.emitBlocks(orders, false)
}

func (e *emitter) sections() {
	var orders []int
	for elset := range e.c.Sections {
		if sec, ok := e.ix.Sections[elset]; ok {
			orders = append(orders, sec.Block)
		}
	}
	e.emitBlocks(orders, false)
}

func (e *emitter) materials() {
	var orders []int
	for name := range e.c.Materials {
		if m, ok := e.ix.Materials[name]; ok {
			orders = append(orders, m.Blocks...)
		}
	}
	e.emitBlocks(orders, false)
}

func (e *emitter) behaviors() {
	var orders []int
	for name := range e.c.Behaviors {
		if b, ok := e.ix.Behaviors[name]; ok {
			orders = append(orders, b.Blocks...)
		}
	}
	e.emitBlocks(orders, false)
}

// constraints keep their comment lines: annotation comments are how decks
// label constraint names.
func (e *emitter) constraints() {
	var orders []int
	for i := range e.c.Constraints {
		orders = append(orders, e.ix.Constraints[i].Blocks...)
	}
	e.emitBlocks(orders, true)
}

// emitBlocks writes whole blocks verbatim in source order, deduplicated.
// keepComments controls whether comment lines inside the block survive.
func (e *emitter) emitBlocks(orders []int, keepComments bool) {
	sort.Ints(orders)
	prev := -1
	for _, order := range orders {
		if order == prev || order < 0 || order >= len(e.ix.Blocks) {
			continue
		}
		prev = order
		blk := &e.ix.Blocks[order]
		e.line(blk.Header)
		for _, l := range blk.Lines {
			if !keepComments && deck.IsComment(l) {
				continue
			}
			e.line(l)
		}
	}
}
