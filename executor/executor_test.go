package executor_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/skryldev/chainconv/core"
	"github.com/skryldev/chainconv/executor"
)

// stepHandler appends its output code as a byte marker to every file's
// content each time Convert runs, and counts its own invocations so
// tests can assert the prefix cache actually prevents recomputation.
// It declares one readable format (matching the previous hop's MIME)
// and one writable format (its own output), mirroring how a real
// handler only connects to its declared neighbours in the graph.
type stepHandler struct {
	name     string
	fromMIME string
	out      core.Format
	calls    int
}

func (s *stepHandler) Name() string  { return s.name }
func (s *stepHandler) Ready() bool   { return true }
func (s *stepHandler) Init(_ context.Context) error { return nil }
func (s *stepHandler) SupportsAnyInput() bool { return false }

func (s *stepHandler) SupportedFormats() []core.Format {
	return []core.Format{
		{Code: "in", MIME: s.fromMIME, From: true},
		s.out,
	}
}

func (s *stepHandler) Convert(_ context.Context, files []core.FileData, from, to core.Format) ([]core.FileData, error) {
	s.calls++
	out := make([]core.FileData, len(files))
	for i, f := range files {
		out[i] = core.FileData{Name: f.Name, Bytes: append(bytes.Clone(f.Bytes), to.Code[0])}
	}
	return out, nil
}

func outFmt(code, mime string) core.Format {
	return core.Format{Code: code, MIME: mime, Extension: code, To: true}
}

func TestAttempt_RunsEachHop(t *testing.T) {
	a := &stepHandler{name: "a", fromMIME: "mime/a", out: outFmt("b", "mime/b")}

	exec := executor.New(nil, nil, nil)
	input := core.Node{Format: core.Format{Code: "a", MIME: "mime/a"}}
	chain := core.Chain{input, {Handler: a, Format: a.out}}

	out, err := exec.Attempt(context.Background(), []core.FileData{{Name: "f", Bytes: []byte("x")}}, chain)
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if string(out[0].Bytes) != "xb" {
		t.Errorf("expected output bytes 'xb', got %q", out[0].Bytes)
	}
	if a.calls != 1 {
		t.Errorf("expected 1 call, got %d", a.calls)
	}
}

func TestAttempt_ReusesCommonPrefix(t *testing.T) {
	a := &stepHandler{name: "a", fromMIME: "mime/a", out: outFmt("b", "mime/b")}
	c := &stepHandler{name: "c", fromMIME: "mime/b", out: outFmt("d", "mime/d")}
	d := &stepHandler{name: "d", fromMIME: "mime/b", out: outFmt("e", "mime/e")}

	exec := executor.New(nil, nil, nil)
	input := core.Node{Format: core.Format{Code: "a", MIME: "mime/a"}}
	files := []core.FileData{{Name: "f", Bytes: []byte("x")}}

	first := core.Chain{input, {Handler: a, Format: a.out}, {Handler: c, Format: c.out}}
	if _, err := exec.Attempt(context.Background(), files, first); err != nil {
		t.Fatalf("first Attempt: %v", err)
	}

	second := core.Chain{input, {Handler: a, Format: a.out}, {Handler: d, Format: d.out}}
	if _, err := exec.Attempt(context.Background(), files, second); err != nil {
		t.Fatalf("second Attempt: %v", err)
	}

	if a.calls != 1 {
		t.Errorf("expected handler 'a' to run exactly once across both attempts (shared prefix), got %d", a.calls)
	}
	if d.calls != 1 {
		t.Errorf("expected handler 'd' (the diverging hop) to run once, got %d", d.calls)
	}
}

func TestAttempt_RejectsChainShorterThanTwoNodes(t *testing.T) {
	exec := executor.New(nil, nil, nil)
	input := core.Node{Format: core.Format{Code: "a", MIME: "mime/a"}}
	_, err := exec.Attempt(context.Background(), nil, core.Chain{input})
	if err == nil {
		t.Error("expected an error for a chain with fewer than two nodes")
	}
}

func TestAttempt_EmptyOutputIsAnError(t *testing.T) {
	empty := &stepHandler{name: "empty", fromMIME: "mime/a", out: outFmt("z", "mime/z")}
	exec := executor.New(nil, nil, nil)
	input := core.Node{Format: core.Format{Code: "a", MIME: "mime/a"}}
	chain := core.Chain{input, {Handler: empty, Format: empty.out}}

	_, err := exec.Attempt(context.Background(), nil, chain)
	if err == nil {
		t.Error("expected an error when Convert produces no files")
	}
}

func TestPrefixLenAndFiles(t *testing.T) {
	a := &stepHandler{name: "a", fromMIME: "mime/a", out: outFmt("b", "mime/b")}
	exec := executor.New(nil, nil, nil)
	input := core.Node{Format: core.Format{Code: "a", MIME: "mime/a"}}
	chain := core.Chain{input, {Handler: a, Format: a.out}}

	if exec.PrefixLen() != 0 {
		t.Fatalf("expected empty prefix before any Attempt, got %d", exec.PrefixLen())
	}
	if _, err := exec.Attempt(context.Background(), []core.FileData{{Bytes: []byte("x")}}, chain); err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if exec.PrefixLen() != 1 {
		t.Errorf("expected prefix length 1 after one hop, got %d", exec.PrefixLen())
	}
	if exec.PrefixFiles() == nil {
		t.Error("expected non-nil prefix files after a successful hop")
	}
}
