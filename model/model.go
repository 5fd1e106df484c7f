package model

// LineEdit is one line patch addressed by file path and 1-based line number.
type LineEdit struct {
	Path    string
	Line    int
	Search  string
	Replace string
}

// LineOutcome records what happened to a single LineEdit.
type LineOutcome struct {
	Line    int
	Changed bool
	OldLine string
	NewLine string
	Reason  string
}

// Summary holds the results of an operation for display.
type Summary struct {
	Patched   []string
	Unchanged []string
	Failed    []string
	Outcomes  map[string][]LineOutcome
	Message   string
}
