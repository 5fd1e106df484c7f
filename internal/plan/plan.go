package plan

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/sokinpui/linepatch/model"
)

// Parse reads a JSON array of line edits:
//
//	[{"file": "src/a.ts", "line": 1032, "search": "x,", "replace": "y,"}]
//
// Entries keep their order.
func Parse(data []byte) ([]model.LineEdit, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid plan: malformed JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, fmt.Errorf("invalid plan: expected a JSON array of edits")
	}

	var edits []model.LineEdit
	var parseErr error
	i := -1
	root.ForEach(func(_, entry gjson.Result) bool {
		i++
		if !entry.IsObject() {
			parseErr = fmt.Errorf("invalid plan: entry %d is not an object", i)
			return false
		}

		file := entry.Get("file")
		line := entry.Get("line")
		search := entry.Get("search")
		replace := entry.Get("replace")

		switch {
		case file.String() == "":
			parseErr = fmt.Errorf("invalid plan: entry %d has no file", i)
		case line.Type != gjson.Number || line.Int() < 1 || line.Num != float64(line.Int()):
			parseErr = fmt.Errorf("invalid plan: entry %d needs a whole line number >= 1", i)
		case search.String() == "":
			parseErr = fmt.Errorf("invalid plan: entry %d has no search text", i)
		case !replace.Exists():
			parseErr = fmt.Errorf("invalid plan: entry %d has no replace text", i)
		}
		if parseErr != nil {
			return false
		}

		edits = append(edits, model.LineEdit{
			Path:    file.String(),
			Line:    int(line.Int()),
			Search:  search.String(),
			Replace: replace.String(),
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return edits, nil
}

// Load reads and parses a plan file.
func Load(path string) ([]model.LineEdit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan %s: %w", path, err)
	}
	return Parse(data)
}

// GroupByFile splits edits per file, keeping first-seen file order and the
// original order of edits within each file.
func GroupByFile(edits []model.LineEdit) (files []string, byFile map[string][]model.LineEdit) {
	byFile = make(map[string][]model.LineEdit)
	for _, e := range edits {
		if _, seen := byFile[e.Path]; !seen {
			files = append(files, e.Path)
		}
		byFile[e.Path] = append(byFile[e.Path], e)
	}
	return files, byFile
}
