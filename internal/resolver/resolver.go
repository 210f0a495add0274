// Package resolver computes the transitive dependency closure of a set of
// requested element sets: elements, their nodes, governing sections and
// materials, and every constraint that touches anything already included,
// which can in turn pull nodes and sets from outside the original targets.
package resolver

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mvp-joe/submodel/internal/index"
)

// ErrNoTargets is returned when every requested set name is missing from the
// index. A partially valid request is not an error; the misses are reported
// in Closure.Missing instead.
var ErrNoTargets = errors.New("none of the requested sets exist")

// Closure is the full set of entities an extraction must include to be
// self-contained. It is a plain value computed per request, read-only once
// returned, and never cached (recomputation is cheap next to parsing).
type Closure struct {
	Elements    map[int]bool
	Nodes       map[int]bool
	Elsets      map[string]bool
	Nsets       map[string]bool
	Surfaces    map[string]bool
	Sections    map[string]bool // keyed by governing elset name
	Materials   map[string]bool
	Behaviors   map[string]bool
	Constraints map[int]bool // indexes into Index.Constraints

	// Missing lists requested names absent from the index, in request order.
	Missing []string
	// Warnings records dangling references skipped during resolution,
	// ordered by source position for reproducible diagnostics.
	Warnings []index.Warning
}

// resolution carries the mutable state of one Resolve call.
type resolution struct {
	ix *index.Index
	c  *Closure

	// owners are elsets that contain an included element without having been
	// pulled in themselves. A constraint naming one touches the closure; its
	// inclusion then expands the set in full. Until that happens the set stays
	// out of the closure entirely, so the output never defines a set whose
	// members it does not carry.
	owners map[string]bool
	warned map[string]bool
}

// Resolve computes the closure of targets over idx. Each target may be a
// literal elset name or a glob pattern. Names that match nothing are
// reported in Closure.Missing; if every name misses, the call fails with
// ErrNoTargets listing them all.
//
// The closure grows monotonically over a finite universe, so the fixpoint
// terminates; final membership is independent of traversal order.
func Resolve(idx *index.Index, targets []string) (*Closure, error) {
	matched, missing := matchTargets(idx, targets)
	if len(matched) == 0 && len(targets) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTargets, strings.Join(missing, ", "))
	}

	r := &resolution{
		ix: idx,
		c: &Closure{
			Elements:    make(map[int]bool),
			Nodes:       make(map[int]bool),
			Elsets:      make(map[string]bool),
			Nsets:       make(map[string]bool),
			Surfaces:    make(map[string]bool),
			Sections:    make(map[string]bool),
			Materials:   make(map[string]bool),
			Behaviors:   make(map[string]bool),
			Constraints: make(map[int]bool),
			Missing:     missing,
		},
		owners: make(map[string]bool),
		warned: make(map[string]bool),
	}

	// Seed: resolved membership of each valid target set.
	for _, name := range matched {
		r.includeElset(name)
	}

	// Cross-linking fixpoint: constraints touching the closure join it and
	// contribute all of their participants, possibly enabling further
	// constraints on the next pass.
	for changed := true; changed; {
		changed = false
		for i := range idx.Constraints {
			if r.c.Constraints[i] {
				continue
			}
			if r.constraintTouchesClosure(&idx.Constraints[i]) {
				r.includeConstraint(i)
				changed = true
			}
		}
	}

	sort.SliceStable(r.c.Warnings, func(i, j int) bool {
		if r.c.Warnings[i].Order != r.c.Warnings[j].Order {
			return r.c.Warnings[i].Order < r.c.Warnings[j].Order
		}
		return r.c.Warnings[i].Msg < r.c.Warnings[j].Msg
	})
	return r.c, nil
}

// constraintTouchesClosure reports whether any participant of c is already
// included: a bare node id in the node set, or a reference name matching an
// included elset, nset, or surface, or an elset containing an included
// element.
func (r *resolution) constraintTouchesClosure(c *index.Constraint) bool {
	for _, id := range c.RefNodes {
		if r.c.Nodes[id] {
			return true
		}
	}
	for _, name := range c.RefNames {
		if r.c.Elsets[name] || r.c.Nsets[name] || r.c.Surfaces[name] || r.owners[name] {
			return true
		}
	}
	return false
}

// includeConstraint adds the constraint and every one of its participants.
// Participation is never partial: a Tie that references two sides always
// pulls in both.
func (r *resolution) includeConstraint(i int) {
	r.c.Constraints[i] = true
	con := &r.ix.Constraints[i]
	for _, id := range con.RefNodes {
		r.includeNode(id, con.Blocks[0])
	}
	for _, name := range con.RefNames {
		r.includeName(name, con.Blocks[0])
	}
}

// includeName resolves a constraint or surface reference name against the
// set and surface tables. Bare names can denote an elset, nset, or surface;
// all matches are expanded (the tables are separate namespaces, and pulling
// each is the always-both-sides rule applied to name collisions). A name
// found nowhere is a dangling reference: warned, never fabricated.
func (r *resolution) includeName(name string, order int) {
	found := false
	if _, ok := r.ix.Elsets[name]; ok {
		r.includeElset(name)
		found = true
	}
	if _, ok := r.ix.Nsets[name]; ok {
		r.includeNset(name)
		found = true
	}
	if s, ok := r.ix.Surfaces[name]; ok {
		r.includeSurface(name, s)
		found = true
	}
	if !found {
		r.warnUnresolved(order, "reference to unknown set %q skipped", name)
	}
}

// includeElset pulls a set in full: every member element plus every nested
// set name the defining blocks mention. Set blocks are emitted verbatim, so
// any name a block lists must itself be defined in the output.
func (r *resolution) includeElset(name string) {
	if r.c.Elsets[name] {
		return
	}
	r.c.Elsets[name] = true
	g := r.ix.Elsets[name]
	for _, id := range g.Members {
		r.includeElement(id, firstOrder(g.Blocks))
	}
	for _, ref := range g.Refs {
		r.includeName(ref, firstOrder(g.Blocks))
	}
}

func (r *resolution) includeNset(name string) {
	if r.c.Nsets[name] {
		return
	}
	r.c.Nsets[name] = true
	g := r.ix.Nsets[name]
	for _, id := range g.Members {
		r.includeNode(id, firstOrder(g.Blocks))
	}
	for _, ref := range g.Refs {
		r.includeName(ref, firstOrder(g.Blocks))
	}
}

func (r *resolution) includeSurface(name string, s *index.Surface) {
	if r.c.Surfaces[name] {
		return
	}
	r.c.Surfaces[name] = true
	for _, id := range s.RefElements {
		r.includeElement(id, s.Block)
	}
	for _, ref := range s.RefNames {
		r.includeName(ref, s.Block)
	}
}

// includeElement adds one element, its nodes, and its governing section with
// that section's material and behavior. Owning sets are noted so constraints
// naming them register as touching, but the sets themselves stay out of the
// closure until something references them.
func (r *resolution) includeElement(id, order int) {
	if r.c.Elements[id] {
		return
	}
	el, ok := r.ix.Elements[id]
	if !ok {
		r.warnUnresolved(order, "reference to unknown element %d skipped", id)
		return
	}
	r.c.Elements[id] = true
	for _, nid := range el.Nodes {
		r.includeNode(nid, el.Block)
	}
	for _, owner := range r.ix.ElementElsets[id] {
		if !r.c.Elsets[owner] {
			r.owners[owner] = true
		}
		r.includeSection(owner)
	}
}

// includeSection pulls the section governing elset (if any) plus its
// material and behavior. Section references may be forward or dangling;
// dangling ones were already warned at index build.
func (r *resolution) includeSection(elset string) {
	sec, ok := r.ix.Sections[elset]
	if !ok || r.c.Sections[elset] {
		return
	}
	r.c.Sections[elset] = true
	if sec.Material != "" {
		if _, ok := r.ix.Materials[sec.Material]; ok {
			r.c.Materials[sec.Material] = true
		}
	}
	if sec.Behavior != "" {
		if _, ok := r.ix.Behaviors[sec.Behavior]; ok {
			r.c.Behaviors[sec.Behavior] = true
		}
	}
}

func (r *resolution) includeNode(id, order int) {
	if r.c.Nodes[id] {
		return
	}
	if _, ok := r.ix.Nodes[id]; !ok {
		r.warnUnresolved(order, "reference to unknown node %d skipped", id)
		return
	}
	r.c.Nodes[id] = true
}

// warnUnresolved records a dangling-reference warning once per message.
func (r *resolution) warnUnresolved(order int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if r.warned[msg] {
		return
	}
	r.warned[msg] = true
	r.c.Warnings = append(r.c.Warnings, index.Warning{
		Kind:  index.WarnUnresolvedRef,
		Order: order,
		Msg:   msg,
	})
}

func firstOrder(blocks []int) int {
	if len(blocks) == 0 {
		return 0
	}
	return blocks[0]
}
