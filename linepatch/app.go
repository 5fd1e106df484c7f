package linepatch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/sokinpui/linepatch/cli"
	"github.com/sokinpui/linepatch/internal/fs"
	"github.com/sokinpui/linepatch/internal/nvim"
	"github.com/sokinpui/linepatch/internal/patcher"
	"github.com/sokinpui/linepatch/internal/plan"
	"github.com/sokinpui/linepatch/internal/source"
	"github.com/sokinpui/linepatch/internal/state"
	"github.com/sokinpui/linepatch/internal/tui"
	"github.com/sokinpui/linepatch/internal/ui"
	"github.com/sokinpui/linepatch/model"
)

const reasonDeclined patcher.Reason = "declined"

// ConfirmFunc decides whether a changed line may be written.
type ConfirmFunc func(path string, lineNumber int, res patcher.Result) (bool, error)

// App orchestrates the entire application logic.
type App struct {
	cfg            *cli.Config
	stateManager   *state.Manager
	pathResolver   *fs.PathResolver
	sourceProvider *source.SourceProvider
	out            io.Writer
	confirm        ConfirmFunc
}

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error {
	return e.Err
}

// New creates a new App instance.
func New(cfg *cli.Config) (*App, error) {
	stateManager, err := state.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize state manager: %w", err)
	}

	return &App{
		cfg:            cfg,
		stateManager:   stateManager,
		pathResolver:   fs.NewPathResolver(cfg.LookupDirs),
		sourceProvider: source.New(),
		out:            os.Stdout,
		confirm:        tui.Confirm,
	}, nil
}

// SetOutput redirects the per-line report, stdout by default.
func (a *App) SetOutput(w io.Writer) {
	a.out = w
}

// SetConfirmFunc replaces the interactive prompt used with --interactive.
func (a *App) SetConfirmFunc(fn ConfirmFunc) {
	a.confirm = fn
}

// Execute executes the main application logic based on parsed flags.
func (a *App) Execute() (summary model.Summary, err error) {
	// Centralized panic recovery.
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	switch {
	case a.cfg.Undo:
		return a.undoLastRun()
	case a.cfg.Redo:
		return a.redoLastRun()
	case a.cfg.Plan != "":
		return a.runPlan()
	default:
		return a.runSingle()
	}
}

// runSingle patches the one line named on the command line.
func (a *App) runSingle() (model.Summary, error) {
	search, err := a.sourceProvider.Resolve(a.cfg.Search)
	if err != nil {
		return model.Summary{}, err
	}

	var replace string
	if a.cfg.Clipboard {
		replace, err = a.sourceProvider.Clipboard()
	} else {
		replace, err = a.sourceProvider.Resolve(a.cfg.Replace)
	}
	if err != nil {
		return model.Summary{}, err
	}

	return a.applyEdits([]model.LineEdit{{
		Path:    a.cfg.File,
		Line:    a.cfg.Line,
		Search:  search,
		Replace: replace,
	}})
}

// runPlan patches every line listed in the plan file.
func (a *App) runPlan() (model.Summary, error) {
	edits, err := plan.Load(a.cfg.Plan)
	if err != nil {
		return model.Summary{}, err
	}
	if len(edits) == 0 {
		return model.Summary{Message: "Plan is empty. Nothing to do."}, nil
	}
	return a.applyEdits(edits)
}

// fileTarget is one file of a run, resolved and loaded before anything is
// written.
type fileTarget struct {
	name  string
	path  string
	edits []model.LineEdit
	doc   *patcher.Document
}

// applyEdits applies edits file by file and records the run in the history.
// Every file is resolved and loaded first, so a missing file aborts the run
// before anything is written.
func (a *App) applyEdits(edits []model.LineEdit) (model.Summary, error) {
	var manager *nvim.Manager
	if a.cfg.Nvim {
		var err error
		manager, err = nvim.New()
		if err != nil {
			return model.Summary{}, err
		}
		defer manager.Close()
	}

	targets, err := a.loadTargets(edits, manager)
	if err != nil {
		return model.Summary{}, err
	}

	summary := model.Summary{Outcomes: make(map[string][]model.LineOutcome)}
	var ops []state.Operation
	for _, target := range targets {
		outcomes, op, err := a.patchFile(target, manager)
		summary.Outcomes[target.name] = outcomes
		if err != nil {
			// Files already written stay undoable.
			a.recordHistory(ops)
			return summary, err
		}

		if anyChanged(outcomes) {
			summary.Patched = append(summary.Patched, target.path)
		} else {
			summary.Unchanged = append(summary.Unchanged, target.path)
		}
		if op != nil {
			ops = append(ops, *op)
		}
	}

	if manager != nil && !a.cfg.Buffer && !a.cfg.DryRun && len(summary.Patched) > 0 {
		if err := manager.SaveAllBuffers(); err != nil {
			return summary, err
		}
	}
	a.recordHistory(ops)

	ui.PrintDone(a.out)
	if a.cfg.DryRun {
		summary.Message = "Dry run: no files were written."
	}
	a.relativizeSummaryPaths(&summary)
	return summary, nil
}

// loadTargets resolves and loads every file named by edits, in plan order.
func (a *App) loadTargets(edits []model.LineEdit, manager *nvim.Manager) ([]fileTarget, error) {
	files, byFile := plan.GroupByFile(edits)
	targets := make([]fileTarget, 0, len(files))
	for _, file := range files {
		path, err := a.pathResolver.Resolve(file)
		if err != nil {
			return nil, err
		}

		var doc *patcher.Document
		if manager != nil {
			doc, err = manager.LoadBuffer(path)
		} else {
			doc, err = patcher.Load(path)
		}
		if err != nil {
			return nil, err
		}
		targets = append(targets, fileTarget{name: file, path: path, edits: byFile[file], doc: doc})
	}
	return targets, nil
}

func (a *App) recordHistory(ops []state.Operation) {
	if err := a.stateManager.Write(ops); err != nil {
		ui.Warning("Could not record history: %v", err)
	}
}

// patchFile applies the edits of one loaded file in order. It returns a
// history operation when the file on disk was changed.
func (a *App) patchFile(target fileTarget, manager *nvim.Manager) ([]model.LineOutcome, *state.Operation, error) {
	doc, path, displayPath := target.doc, target.path, target.name

	before := doc.String()
	outcomes := make([]model.LineOutcome, 0, len(target.edits))
	for _, edit := range target.edits {
		req := patcher.ForLine(edit.Line, edit.Search, edit.Replace)
		res := patcher.Apply(doc, req)

		if res.Changed && a.cfg.Interactive && !a.cfg.DryRun {
			ok, err := a.confirm(displayPath, edit.Line, res)
			if err != nil {
				return outcomes, nil, err
			}
			if !ok {
				doc.Lines[req.Index] = res.OldLine
				res = patcher.Result{Index: req.Index, OldLine: res.OldLine, NewLine: res.OldLine, Reason: reasonDeclined}
			}
		}

		ui.PrintResult(a.out, edit.Line, res)
		outcomes = append(outcomes, model.LineOutcome{
			Line:    edit.Line,
			Changed: res.Changed,
			OldLine: res.OldLine,
			NewLine: res.NewLine,
			Reason:  string(res.Reason),
		})

		if manager != nil && res.Changed && !a.cfg.DryRun {
			if err := manager.SetLine(path, req.Index, res.NewLine); err != nil {
				return outcomes, nil, err
			}
		}
	}
	after := doc.String()

	if a.cfg.Diff {
		diff, err := ui.UnifiedDiff(displayPath, before, after)
		if err != nil {
			return outcomes, nil, fmt.Errorf("failed to render diff for %s: %w", displayPath, err)
		}
		fmt.Fprint(a.out, diff)
	}

	// Neovim owns its own undo history; only disk writes are recorded.
	if a.cfg.DryRun || manager != nil {
		return outcomes, nil, nil
	}

	if err := patcher.Save(doc, path); err != nil {
		return outcomes, nil, err
	}
	if before == after {
		return outcomes, nil, nil
	}

	beforeHash, err := a.stateManager.StoreSnapshot([]byte(before))
	if err != nil {
		ui.Warning("Could not snapshot %s: %v", displayPath, err)
		return outcomes, nil, nil
	}
	afterHash, err := a.stateManager.StoreSnapshot([]byte(after))
	if err != nil {
		ui.Warning("Could not snapshot %s: %v", displayPath, err)
		return outcomes, nil, nil
	}
	return outcomes, &state.Operation{Path: path, BeforeHash: beforeHash, AfterHash: afterHash}, nil
}

func anyChanged(outcomes []model.LineOutcome) bool {
	for _, o := range outcomes {
		if o.Changed {
			return true
		}
	}
	return false
}

// undoLastRun restores every file of the last run to its content before
// the run.
func (a *App) undoLastRun() (model.Summary, error) {
	ops, err := a.stateManager.GetOperationsToUndo()
	if err != nil {
		return model.Summary{}, err
	}
	if len(ops) == 0 {
		return model.Summary{Message: "No run to undo."}, nil
	}

	summary := a.restoreAll(ops, func(op state.Operation) (string, string) {
		return op.AfterHash, op.BeforeHash
	})
	summary.Message = "Undid last run."
	return summary, nil
}

// redoLastRun reapplies the last undone run.
func (a *App) redoLastRun() (model.Summary, error) {
	ops, err := a.stateManager.GetOperationsToRedo()
	if err != nil {
		return model.Summary{}, err
	}
	if len(ops) == 0 {
		return model.Summary{Message: "No run to redo."}, nil
	}

	summary := a.restoreAll(ops, func(op state.Operation) (string, string) {
		return op.BeforeHash, op.AfterHash
	})
	summary.Message = "Redid last undone run."
	return summary, nil
}

// restoreAll replaces each file with a snapshot, but only when the file
// still has the content the history expects.
func (a *App) restoreAll(ops []state.Operation, hashes func(state.Operation) (expected, target string)) model.Summary {
	var summary model.Summary
	for _, op := range ops {
		expected, target := hashes(op)
		if err := a.restoreFile(op.Path, expected, target); err != nil {
			ui.Warning("  -> %v", err)
			summary.Failed = append(summary.Failed, op.Path)
			continue
		}
		summary.Patched = append(summary.Patched, op.Path)
	}
	a.relativizeSummaryPaths(&summary)
	return summary
}

func (a *App) restoreFile(path, expectedHash, targetHash string) error {
	current, err := fs.GetFileSHA256(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	// Core safety check: if the file has been changed since, leave it alone.
	if current != expectedHash {
		return fmt.Errorf("%s was modified since the recorded run, skipping", path)
	}

	content, err := a.stateManager.ReadSnapshot(targetHash)
	if err != nil {
		return err
	}
	return patcher.Save(patcher.Parse(string(content)), path)
}

// relativizeSummaryPaths converts absolute file paths in a summary to be
// relative to the current working directory for cleaner display.
func (a *App) relativizeSummaryPaths(summary *model.Summary) {
	wd, err := os.Getwd()
	if err != nil {
		return
	}

	makeRelative := func(absPaths []string) []string {
		if absPaths == nil {
			return nil
		}
		relPaths := make([]string, len(absPaths))
		for i, p := range absPaths {
			rel, err := filepath.Rel(wd, p)
			if err != nil {
				relPaths[i] = p // Fallback to absolute path
			} else {
				relPaths[i] = rel
			}
		}
		return relPaths
	}

	summary.Patched = makeRelative(summary.Patched)
	summary.Unchanged = makeRelative(summary.Unchanged)
	summary.Failed = makeRelative(summary.Failed)
}
