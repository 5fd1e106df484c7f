package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/sokinpui/linepatch/cli"
	"github.com/sokinpui/linepatch/internal/ui"
	"github.com/sokinpui/linepatch/linepatch"
	"github.com/sokinpui/linepatch/model"
)

func main() {
	cfg, err := cli.ParseFlags()
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	app, err := linepatch.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	summary, err := app.Execute()
	if err != nil {
		var detailed *linepatch.DetailedError
		if errors.As(err, &detailed) {
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", detailed.Stack)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	reportSummary(cfg, summary)
}

func reportSummary(cfg *cli.Config, summary model.Summary) {
	if summary.Message != "" {
		ui.Info("%s", summary.Message)
	}
	// A single-line run already reported itself line by line.
	if cfg.Plan != "" || cfg.Undo || cfg.Redo {
		ui.PrintSummary(summary.Patched, summary.Unchanged, summary.Failed)
	}
}
