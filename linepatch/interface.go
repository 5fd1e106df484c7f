package linepatch

import (
	"github.com/sokinpui/linepatch/internal/patcher"
)

// Result is the outcome of one line patch.
type Result = patcher.Result

// Reasons reported for patches that change nothing.
const (
	ReasonOutOfRange     = patcher.ReasonOutOfRange
	ReasonNotFound       = patcher.ReasonNotFound
	ReasonEmptySearch    = patcher.ReasonEmptySearch
	ReasonAlreadyApplied = patcher.ReasonAlreadyApplied
	ReasonUnstable       = patcher.ReasonUnstable
)

// PatchFile replaces every occurrence of search with replace on the given
// 1-based line of the file at path. The file is rewritten only when the
// line changed. An out-of-range line or absent search text is not an error.
func PatchFile(path string, lineNumber int, search, replace string) (Result, error) {
	doc, err := patcher.Load(path)
	if err != nil {
		return Result{}, err
	}

	res := patcher.Apply(doc, patcher.ForLine(lineNumber, search, replace))
	if !res.Changed {
		return res, nil
	}
	if err := patcher.Save(doc, path); err != nil {
		return res, err
	}
	return res, nil
}

// Apply is PatchFile for in-memory content.
func Apply(content string, lineNumber int, search, replace string) (string, Result) {
	doc := patcher.Parse(content)
	res := patcher.Apply(doc, patcher.ForLine(lineNumber, search, replace))
	return doc.String(), res
}
