package source

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
)

// StdinMarker is the argument value that asks for text from stdin.
const StdinMarker = "-"

// SourceProvider resolves search and replacement text that is not given
// literally on the command line.
type SourceProvider struct {
	stdin         io.Reader
	isPiped       func() bool
	readClipboard func() (string, error)
	stdinUsed     bool
}

// New creates a SourceProvider backed by os.Stdin and the system clipboard.
func New() *SourceProvider {
	return &SourceProvider{
		stdin:         os.Stdin,
		isPiped:       stdinIsPiped,
		readClipboard: clipboard.ReadAll,
	}
}

func stdinIsPiped() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// Resolve returns value unchanged unless it is StdinMarker, in which case
// the piped stdin content is returned without its final newline. Stdin can
// only be consumed once per run.
func (sp *SourceProvider) Resolve(value string) (string, error) {
	if value != StdinMarker {
		return value, nil
	}
	if sp.stdinUsed {
		return "", fmt.Errorf("stdin can only be used for one argument")
	}
	if !sp.isPiped() {
		return "", fmt.Errorf("'%s' requires text piped on stdin", StdinMarker)
	}
	sp.stdinUsed = true

	content, err := io.ReadAll(sp.stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read from stdin: %w", err)
	}
	return trimFinalNewline(string(content)), nil
}

// Clipboard returns the clipboard content without its final newline.
func (sp *SourceProvider) Clipboard() (string, error) {
	content, err := sp.readClipboard()
	if err != nil {
		return "", fmt.Errorf("failed to read from clipboard: %w", err)
	}
	return trimFinalNewline(content), nil
}

func trimFinalNewline(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}
