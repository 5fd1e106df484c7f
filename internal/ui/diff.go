package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"
)

var (
	deletedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("197")).Strikethrough(true)
	insertedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78")).Bold(true)
)

// Highlight marks the characters removed from oldLine and the characters
// added in newLine.
func Highlight(oldLine, newLine string) (before, after string) {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(oldLine, newLine, false))

	var b, a strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			b.WriteString(d.Text)
			a.WriteString(d.Text)
		case diffmatchpatch.DiffDelete:
			b.WriteString(deletedStyle.Render(d.Text))
		case diffmatchpatch.DiffInsert:
			a.WriteString(insertedStyle.Render(d.Text))
		}
	}
	return b.String(), a.String()
}

// UnifiedDiff renders the change from before to after as a unified diff
// with three lines of context.
func UnifiedDiff(path, before, after string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	})
}
