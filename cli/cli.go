package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"
)

// Config holds all the command-line flag and argument values.
type Config struct {
	File        string
	Line        int
	Search      string
	Replace     string
	Plan        string
	LookupDirs  []string
	Diff        bool
	DryRun      bool
	Interactive bool
	Clipboard   bool
	Nvim        bool
	Buffer      bool
	Undo        bool
	Redo        bool
}

// ParseFlags parses os.Args.
func ParseFlags() (*Config, error) {
	return Parse(os.Args[1:])
}

// Parse defines and parses command-line flags using pflag.
func Parse(args []string) (*Config, error) {
	cfg := &Config{}
	flags := pflag.NewFlagSet("linepatch", pflag.ContinueOnError)

	flags.StringVarP(&cfg.Plan, "plan", "p", "", "Apply the line edits listed in a JSON plan file.")
	flags.StringSliceVarP(&cfg.LookupDirs, "lookup-dir", "l", []string{}, "Directory to look for relative files in (default: current directory).")
	flags.BoolVarP(&cfg.Diff, "diff", "d", false, "Print a unified diff of each change.")
	flags.BoolVarP(&cfg.DryRun, "dry-run", "n", false, "Report what would change without writing anything.")
	flags.BoolVarP(&cfg.Interactive, "interactive", "i", false, "Confirm every change before it is written.")
	flags.BoolVarP(&cfg.Clipboard, "clipboard", "c", false, "Read REPLACEMENT from the clipboard.")
	flags.BoolVarP(&cfg.Nvim, "nvim", "v", false, "Apply changes through Neovim buffers.")
	flags.BoolVarP(&cfg.Buffer, "buffer", "b", false, "With --nvim, update buffers without saving them to disk.")

	// Mutually exclusive history group
	flags.BoolVarP(&cfg.Undo, "undo", "u", false, "Undo the last run.")
	flags.BoolVarP(&cfg.Redo, "redo", "r", false, "Redo the last undone run.")

	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: linepatch [flags] FILE LINE SEARCH REPLACEMENT")
		fmt.Fprintln(os.Stderr, "\nReplace SEARCH with REPLACEMENT on one line of FILE. LINE is 1-based.")
		fmt.Fprintln(os.Stderr, "SEARCH or REPLACEMENT may be '-' to read it from stdin.")
		fmt.Fprintln(os.Stderr, "\nExample: linepatch src/agent.ts 1033 'statementInfo,' 'processableStatementInfo,'")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	// Validate mutually exclusive flags
	if cfg.Undo && cfg.Redo {
		return nil, fmt.Errorf("--undo and --redo are mutually exclusive")
	}
	if cfg.Buffer && !cfg.Nvim {
		return nil, fmt.Errorf("--buffer requires --nvim")
	}

	positional := flags.Args()
	switch {
	case cfg.Undo || cfg.Redo || cfg.Plan != "":
		if len(positional) > 0 {
			return nil, fmt.Errorf("unexpected arguments: %v", positional)
		}
		if cfg.Plan != "" && (cfg.Undo || cfg.Redo) {
			return nil, fmt.Errorf("--plan cannot be combined with --undo or --redo")
		}
		return cfg, nil
	case cfg.Clipboard:
		if len(positional) != 3 {
			return nil, fmt.Errorf("with --clipboard, expected FILE LINE SEARCH, got %d argument(s)", len(positional))
		}
		positional = append(positional, "")
	case len(positional) != 4:
		flags.Usage()
		return nil, fmt.Errorf("expected FILE LINE SEARCH REPLACEMENT, got %d argument(s)", len(positional))
	}

	line, err := strconv.Atoi(positional[1])
	if err != nil || line < 1 {
		return nil, fmt.Errorf("invalid line number '%s': must be an integer >= 1", positional[1])
	}

	cfg.File = positional[0]
	cfg.Line = line
	cfg.Search = positional[2]
	cfg.Replace = positional[3]
	return cfg, nil
}
