package linepatch_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sokinpui/linepatch/linepatch"
)

func TestPatchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creditCardAgent.ts")
	original := "a\n  foo(statementInfo,\nbar\n"
	if err := os.WriteFile(path, []byte(original), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	res, err := linepatch.PatchFile(path, 2, "statementInfo,", "processableStatementInfo,")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Changed || res.NewLine != "  foo(processableStatementInfo," {
		t.Fatalf("unexpected result %+v", res)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "a\n  foo(processableStatementInfo,\nbar\n" {
		t.Errorf("file content = %q", got)
	}

	// Second run is a no-op.
	res, err = linepatch.PatchFile(path, 2, "statementInfo,", "processableStatementInfo,")
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed || res.Reason != linepatch.ReasonNotFound {
		t.Errorf("second run = %+v", res)
	}

	res, err = linepatch.PatchFile(path, 40, "x", "y")
	if err != nil || res.Reason != linepatch.ReasonOutOfRange {
		t.Errorf("out of range = %+v, %v", res, err)
	}
}

func TestPatchFileMissing(t *testing.T) {
	if _, err := linepatch.PatchFile(filepath.Join(t.TempDir(), "nope.ts"), 1, "a", "b"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestApply(t *testing.T) {
	content := "a\n  foo(statementInfo,\nbar"
	got, res := linepatch.Apply(content, 2, "statementInfo,", "processableStatementInfo,")
	if got != "a\n  foo(processableStatementInfo,\nbar" {
		t.Errorf("Apply content = %q", got)
	}
	if !res.Changed {
		t.Errorf("Apply result = %+v", res)
	}

	got, res = linepatch.Apply(content, 6, "x", "y")
	if got != content || res.Reason != linepatch.ReasonOutOfRange {
		t.Errorf("out of range Apply = %q, %+v", got, res)
	}
}

func TestApplyRefusesUnstableReplacement(t *testing.T) {
	got, res := linepatch.Apply("baaba\n", 1, "ba", "bb")
	if got != "baaba\n" || res.Changed || res.Reason != linepatch.ReasonUnstable {
		t.Errorf("Apply = %q, %+v", got, res)
	}
}
