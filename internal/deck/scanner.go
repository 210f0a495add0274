package deck

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Warning records a recoverable condition hit while scanning. Scanning never
// aborts on malformed input; the offending line is skipped and reported.
type Warning struct {
	Line int    `json:"line"` // 1-based line number
	Text string `json:"text"` // offending line, verbatim
	Msg  string `json:"msg"`
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Msg)
}

// ScanProgress receives progress callbacks during a scan. Callbacks arrive
// from the scanning goroutine only.
type ScanProgress interface {
	OnScanStart(totalBytes int64)
	OnScanRead(bytes int)
	OnScanComplete(blocks int)
}

// maxLineBytes bounds a single deck line. Real decks carry long generated
// set listings, so the default bufio limit is far too small.
const maxLineBytes = 4 * 1024 * 1024

type scanOptions struct {
	progress ScanProgress
	total    int64
}

// Option configures a scan.
type Option func(*scanOptions)

// WithProgress reports scan progress to p. totalBytes may be 0 when the
// input size is unknown (e.g. a pipe).
func WithProgress(p ScanProgress, totalBytes int64) Option {
	return func(o *scanOptions) {
		o.progress = p
		o.total = totalBytes
	}
}

// Scan consumes the deck text from r and returns the ordered block sequence.
// A line beginning with a single keyword marker starts a new block; comment
// and blank lines are accumulated on the current block so constraint blocks
// keep their annotation comments. Keyword and option names match
// case-insensitively; option values keep their original case. A header line
// that cannot be parsed yields a warning and is skipped.
func Scan(r io.Reader, opts ...Option) ([]Block, []Warning, error) {
	var o scanOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.progress != nil {
		o.progress.OnScanStart(o.total)
	}

	var (
		blocks   []Block
		warnings []Warning
		current  *Block
		lineNo   int
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if o.progress != nil {
			o.progress.OnScanRead(len(sc.Bytes()) + 1)
		}

		if !IsKeywordLine(line) {
			// Data, comment, or blank line: belongs to the current block.
			// Leading text before the first keyword is discarded, matching
			// the format's convention that a deck opens with a keyword.
			if current != nil {
				current.Lines = append(current.Lines, line)
			}
			continue
		}

		keyword, params, order, err := parseHeader(line)
		if err != nil {
			warnings = append(warnings, Warning{Line: lineNo, Text: line, Msg: err.Error()})
			continue
		}

		if current != nil {
			blocks = append(blocks, *current)
		}
		current = &Block{
			Keyword:    keyword,
			Params:     params,
			ParamOrder: order,
			Header:     line,
			Order:      len(blocks),
			Line:       lineNo,
		}
	}
	if err := sc.Err(); err != nil {
		return nil, warnings, fmt.Errorf("scan deck: %w", err)
	}
	if current != nil {
		blocks = append(blocks, *current)
	}

	if o.progress != nil {
		o.progress.OnScanComplete(len(blocks))
	}
	return blocks, warnings, nil
}

// ScanFile opens and scans path, wiring the file size into progress reporting.
func ScanFile(path string, progress ScanProgress) ([]Block, []Warning, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open deck: %w", err)
	}
	defer f.Close()

	var opts []Option
	if progress != nil {
		var total int64
		if fi, err := f.Stat(); err == nil {
			total = fi.Size()
		}
		opts = append(opts, WithProgress(progress, total))
	}
	return Scan(f, opts...)
}

// parseHeader splits a keyword line into its name and options.
// Example: "*Element, Type=C3D8R, Elset=wheel" -> "element",
// {"type":"C3D8R","elset":"wheel"}. Valueless options (e.g. GENERATE) are
// stored with an empty value.
func parseHeader(line string) (string, map[string]string, []string, error) {
	body := strings.TrimPrefix(strings.TrimSpace(line), "*")
	tokens := strings.Split(body, ",")

	keyword := strings.ToLower(strings.TrimSpace(tokens[0]))
	if keyword == "" {
		return "", nil, nil, fmt.Errorf("keyword line has no keyword name")
	}

	params := make(map[string]string)
	var order []string
	for _, tok := range tokens[1:] {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		name, value, _ := strings.Cut(tok, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return "", nil, nil, fmt.Errorf("malformed option %q", tok)
		}
		if _, seen := params[name]; !seen {
			order = append(order, name)
		}
		params[name] = strings.TrimSpace(value)
	}
	return keyword, params, order, nil
}
