package patcher

import (
	"errors"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		req     Request
		want    []string
		changed bool
		reason  Reason
		wantOld string
		wantNew string
	}{
		{
			name:    "replaces on target line only",
			lines:   []string{"a", "  foo(statementInfo,", "bar"},
			req:     Request{Index: 1, Search: "statementInfo,", Replace: "processableStatementInfo,"},
			want:    []string{"a", "  foo(processableStatementInfo,", "bar"},
			changed: true,
			wantOld: "  foo(statementInfo,",
			wantNew: "  foo(processableStatementInfo,",
		},
		{
			name:   "index beyond length",
			lines:  []string{"a", "  foo(statementInfo,", "bar"},
			req:    Request{Index: 5, Search: "x", Replace: "y"},
			want:   []string{"a", "  foo(statementInfo,", "bar"},
			reason: ReasonOutOfRange,
		},
		{
			name:   "negative index",
			lines:  []string{"x"},
			req:    Request{Index: -1, Search: "x", Replace: "y"},
			want:   []string{"x"},
			reason: ReasonOutOfRange,
		},
		{
			name:    "pattern absent",
			lines:   []string{"one", "two"},
			req:     Request{Index: 0, Search: "three", Replace: "3"},
			want:    []string{"one", "two"},
			reason:  ReasonNotFound,
			wantOld: "one",
			wantNew: "one",
		},
		{
			name:    "empty search",
			lines:   []string{"abc"},
			req:     Request{Index: 0, Search: "", Replace: "-"},
			want:    []string{"abc"},
			reason:  ReasonEmptySearch,
			wantOld: "abc",
			wantNew: "abc",
		},
		{
			name:    "all occurrences on the line",
			lines:   []string{"statementInfo(statementInfo)", "statementInfo"},
			req:     Request{Index: 0, Search: "statementInfo", Replace: "query"},
			want:    []string{"query(query)", "statementInfo"},
			changed: true,
			wantOld: "statementInfo(statementInfo)",
			wantNew: "query(query)",
		},
		{
			name:    "replacement containing search is already applied",
			lines:   []string{"x(ab)"},
			req:     Request{Index: 0, Search: "a", Replace: "ab"},
			want:    []string{"x(ab)"},
			reason:  ReasonAlreadyApplied,
			wantOld: "x(ab)",
			wantNew: "x(ab)",
		},
		{
			name:    "replacement containing search patches bare occurrences",
			lines:   []string{"a ab"},
			req:     Request{Index: 0, Search: "a", Replace: "ab"},
			want:    []string{"ab ab"},
			changed: true,
			wantOld: "a ab",
			wantNew: "ab ab",
		},
		{
			name:    "bare occurrence inside a word",
			lines:   []string{"call(ab)"},
			req:     Request{Index: 0, Search: "a", Replace: "ab"},
			want:    []string{"cabll(ab)"},
			changed: true,
			wantOld: "call(ab)",
			wantNew: "cabll(ab)",
		},
		{
			name:    "occurrence overlapping a replacement is kept",
			lines:   []string{"aabbb"},
			req:     Request{Index: 0, Search: "ab", Replace: "bab"},
			want:    []string{"ababbb"},
			changed: true,
			wantOld: "aabbb",
			wantNew: "ababbb",
		},
		{
			name:    "replacement that creates a new match is refused",
			lines:   []string{"baaba"},
			req:     Request{Index: 0, Search: "ba", Replace: "bb"},
			want:    []string{"baaba"},
			reason:  ReasonUnstable,
			wantOld: "baaba",
			wantNew: "baaba",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &Document{Lines: append([]string(nil), tt.lines...), Terminator: Terminator}
			got := Apply(doc, tt.req)

			if got.Changed != tt.changed {
				t.Errorf("Changed = %v, want %v", got.Changed, tt.changed)
			}
			if got.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.reason)
			}
			if got.OldLine != tt.wantOld || got.NewLine != tt.wantNew {
				t.Errorf("got old=%q new=%q, want old=%q new=%q", got.OldLine, got.NewLine, tt.wantOld, tt.wantNew)
			}
			if !reflect.DeepEqual(doc.Lines, tt.want) {
				t.Errorf("lines = %q, want %q", doc.Lines, tt.want)
			}
		})
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	requests := []Request{
		{Index: 1, Search: "statementInfo,", Replace: "processableStatementInfo,"},
		{Index: 0, Search: "statementInfo", Replace: "query"},
		{Index: 2, Search: "a", Replace: "ab"},
		{Index: 2, Search: "x", Replace: "x"},
		{Index: 3, Search: "ab", Replace: "bab"},
		{Index: 4, Search: "ba", Replace: "bb"},
	}

	for _, req := range requests {
		once := Parse("statementInfo\n  foo(statementInfo,\na x a\naabbb\nbaaba\n")
		Apply(once, req)

		twice := once.Clone()
		second := Apply(twice, req)

		if second.Changed {
			t.Errorf("%+v: second application reported a change: %q -> %q", req, second.OldLine, second.NewLine)
		}
		if !reflect.DeepEqual(once.Lines, twice.Lines) {
			t.Errorf("%+v: second application altered document: %q vs %q", req, once.Lines, twice.Lines)
		}
	}
}

func TestApplyIsIdempotentRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	word := func(maxLen int) string {
		b := make([]byte, rng.Intn(maxLen+1))
		for i := range b {
			b[i] = "ab"[rng.Intn(2)]
		}
		return string(b)
	}

	for n := 0; n < 20000; n++ {
		line := word(8)
		search := word(3)
		if search == "" {
			search = "a"
		}
		req := Request{Index: 0, Search: search, Replace: word(3)}

		doc := &Document{Lines: []string{line}}
		first := Apply(doc, req)
		once := doc.Lines[0]
		second := Apply(doc, req)

		if second.Changed || doc.Lines[0] != once {
			t.Fatalf("search=%q replace=%q line=%q: once=%q twice=%q", req.Search, req.Replace, line, once, doc.Lines[0])
		}
		if first.Changed && !strings.Contains(req.Replace, req.Search) {
			if want := strings.ReplaceAll(line, req.Search, req.Replace); once != want {
				t.Fatalf("search=%q replace=%q line=%q: got %q, want %q", req.Search, req.Replace, line, once, want)
			}
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"\n",
		"one line without newline",
		"a\nb\nc\n",
		"crlf\r\nlines\r\n",
		"\n\nblank lines\n\n",
	}
	for _, in := range inputs {
		if got := Parse(in).String(); got != in {
			t.Errorf("round trip of %q produced %q", in, got)
		}
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.ts")
	original := "const a = 1;\r\n  foo(statementInfo,\n\ttrailing\n"
	if err := os.WriteFile(path, []byte(original), 0600); err != nil {
		t.Fatal(err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := Save(doc, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != original {
		t.Errorf("content changed: got %q, want %q", got, original)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("permissions changed to %v", info.Mode().Perm())
	}
}

func TestApplyThenReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.ts")
	original := "a\n  foo(statementInfo,\nbar\n"
	if err := os.WriteFile(path, []byte(original), 0644); err != nil {
		t.Fatal(err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	res := Apply(doc, ForLine(2, "statementInfo,", "processableStatementInfo,"))
	if !res.Changed {
		t.Fatalf("expected change, got %q", res.Reason)
	}
	if err := Save(doc, path); err != nil {
		t.Fatal(err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "  foo(processableStatementInfo,", "bar", ""}
	if !reflect.DeepEqual(reloaded.Lines, want) {
		t.Errorf("reloaded lines = %q, want %q", reloaded.Lines, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.ts"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestSaveToMissingDirectory(t *testing.T) {
	err := Save(Parse("x"), filepath.Join(t.TempDir(), "no", "such", "dir.txt"))
	if err == nil {
		t.Fatal("expected an error writing into a missing directory")
	}
}

func TestForLine(t *testing.T) {
	req := ForLine(1033, "s", "r")
	if req.Index != 1032 || req.LineNumber() != 1033 {
		t.Errorf("ForLine(1033) = %+v", req)
	}
}
