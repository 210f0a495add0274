package deck

import "strings"

// Block is one keyword-introduced unit of an input deck: the header line that
// names the keyword plus every line up to the next keyword line. Text is kept
// verbatim because extraction must reproduce numeric fields exactly as
// written. Blocks are immutable once scanned.
type Block struct {
	Keyword    string            `json:"keyword"`     // lower-cased keyword name, e.g. "elset"
	Params     map[string]string `json:"params"`      // lower-cased option name -> value as written
	ParamOrder []string          `json:"param_order"` // option names in header order
	Header     string            `json:"header"`      // verbatim header line
	Lines      []string          `json:"lines"`       // verbatim data lines (comments and blanks included)
	Order      int               `json:"order"`       // monotonic index of first appearance
	Line       int               `json:"line"`        // 1-based line number of the header
}

// Param returns the value of a header option, matched case-insensitively.
func (b *Block) Param(name string) string {
	return b.Params[strings.ToLower(name)]
}

// HasParam reports whether the header carries the option, with or without a value.
func (b *Block) HasParam(name string) bool {
	_, ok := b.Params[strings.ToLower(name)]
	return ok
}

// DataLines returns the block's lines with comments and blanks filtered out.
// The underlying verbatim lines are untouched.
func (b *Block) DataLines() []string {
	out := make([]string, 0, len(b.Lines))
	for _, line := range b.Lines {
		if IsComment(line) || strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// IsKeywordLine reports whether line starts a new block: a single marker,
// not the doubled marker that denotes a comment.
func IsKeywordLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "*") && !strings.HasPrefix(trimmed, "**")
}

// IsComment reports whether line is a comment line (doubled marker).
func IsComment(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "**")
}

// SplitFields splits a data line into trimmed fields. The deck format allows
// comma- or whitespace-separated values; empty trailing fields (continuation
// commas) are dropped.
func SplitFields(line string) []string {
	var raw []string
	if strings.ContainsRune(line, ',') {
		raw = strings.Split(line, ",")
	} else {
		raw = strings.Fields(line)
	}
	fields := make([]string, 0, len(raw))
	for _, f := range raw {
		f = strings.TrimSpace(f)
		if f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}
