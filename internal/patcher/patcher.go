package patcher

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Terminator is the line separator used to split and rejoin documents.
const Terminator = "\n"

// Reason explains why a request left a document unchanged.
type Reason string

const (
	ReasonOutOfRange     Reason = "index out of range"
	ReasonNotFound       Reason = "pattern not found"
	ReasonEmptySearch    Reason = "empty search text"
	ReasonAlreadyApplied Reason = "already applied"
	ReasonUnstable       Reason = "replacement not stable"
)

// Document is a file's content held as lines.
type Document struct {
	Lines      []string
	Terminator string
}

// Request replaces Search with Replace on the line at Index (0-based).
type Request struct {
	Index   int
	Search  string
	Replace string
}

// ForLine builds a request from a 1-based line number.
func ForLine(lineNumber int, search, replace string) Request {
	return Request{Index: lineNumber - 1, Search: search, Replace: replace}
}

// LineNumber returns the 1-based line number the request targets.
func (r Request) LineNumber() int {
	return r.Index + 1
}

// Result is the outcome of applying a single Request.
type Result struct {
	Changed bool
	Index   int
	OldLine string
	NewLine string
	Reason  Reason
}

// Parse splits content into a Document.
func Parse(content string) *Document {
	return &Document{
		Lines:      strings.Split(content, Terminator),
		Terminator: Terminator,
	}
}

// String rejoins the lines with the document's terminator.
func (d *Document) String() string {
	return strings.Join(d.Lines, d.terminator())
}

// Clone returns a copy that shares no line storage with d.
func (d *Document) Clone() *Document {
	lines := make([]string, len(d.Lines))
	copy(lines, d.Lines)
	return &Document{Lines: lines, Terminator: d.Terminator}
}

func (d *Document) terminator() string {
	if d.Terminator == "" {
		return Terminator
	}
	return d.Terminator
}

// Load reads the file at path into a Document.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(string(content)), nil
}

// Save overwrites the file at path with the document content. An existing
// file keeps its permission bits.
func Save(doc *Document, path string) error {
	perm := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to open %s for writing: %w", path, err)
	}
	defer f.Close()

	if _, err := io.WriteString(f, doc.String()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// Apply rewrites one line of doc in place. Requests that cannot or need not
// change anything are reported through Result.Reason, never as errors.
func Apply(doc *Document, req Request) Result {
	result := Result{Index: req.Index}
	if req.Index < 0 || req.Index >= len(doc.Lines) {
		result.Reason = ReasonOutOfRange
		return result
	}

	line := doc.Lines[req.Index]
	result.OldLine = line
	result.NewLine = line

	switch {
	case req.Search == "":
		result.Reason = ReasonEmptySearch
		return result
	case !strings.Contains(line, req.Search):
		result.Reason = ReasonNotFound
		return result
	}

	newLine := replaceLine(line, req.Search, req.Replace)
	switch {
	case newLine == line:
		result.Reason = ReasonAlreadyApplied
		return result
	case replaceLine(newLine, req.Search, req.Replace) != newLine:
		// A second run would rewrite the line again.
		result.Reason = ReasonUnstable
		return result
	}

	doc.Lines[req.Index] = newLine
	result.Changed = true
	result.NewLine = newLine
	return result
}

// replaceLine replaces every occurrence of search in line. When replace
// contains search, an occurrence of search that overlaps any occurrence of
// replace is left alone.
func replaceLine(line, search, replace string) string {
	if !strings.Contains(replace, search) {
		return strings.ReplaceAll(line, search, replace)
	}

	masked := make([]bool, len(line))
	for i := 0; i+len(replace) <= len(line); i++ {
		if strings.HasPrefix(line[i:], replace) {
			for j := i; j < i+len(replace); j++ {
				masked[j] = true
			}
		}
	}

	var b strings.Builder
	last := 0
	for i := 0; i+len(search) <= len(line); {
		if strings.HasPrefix(line[i:], search) && !anyMasked(masked[i:i+len(search)]) {
			b.WriteString(line[last:i])
			b.WriteString(replace)
			i += len(search)
			last = i
			continue
		}
		i++
	}
	b.WriteString(line[last:])
	return b.String()
}

func anyMasked(span []bool) bool {
	for _, m := range span {
		if m {
			return true
		}
	}
	return false
}
