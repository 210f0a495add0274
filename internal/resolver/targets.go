package resolver

import (
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/mvp-joe/submodel/internal/index"
)

// globChars are the metacharacters that make a target a pattern rather than
// a literal set name.
const globChars = "*?[{"

// matchTargets maps requested names to element set names. Literal names look
// up exactly (set names are case-sensitive as written); names containing
// glob metacharacters match against the whole elset table. A literal that is
// absent, an unparseable pattern, and a pattern with zero matches all count
// as missing, reported per name, never fatal here.
func matchTargets(ix *index.Index, targets []string) (matched, missing []string) {
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			matched = append(matched, name)
		}
	}

	var sorted []string
	for _, t := range targets {
		if !strings.ContainsAny(t, globChars) {
			if _, ok := ix.Elsets[t]; ok {
				add(t)
			} else {
				missing = append(missing, t)
			}
			continue
		}

		g, err := glob.Compile(t)
		if err != nil {
			missing = append(missing, t)
			continue
		}
		if sorted == nil {
			sorted = make([]string, 0, len(ix.Elsets))
			for name := range ix.Elsets {
				sorted = append(sorted, name)
			}
			sort.Strings(sorted)
		}
		hit := false
		for _, name := range sorted {
			if g.Match(name) {
				add(name)
				hit = true
			}
		}
		if !hit {
			missing = append(missing, t)
		}
	}
	return matched, missing
}
