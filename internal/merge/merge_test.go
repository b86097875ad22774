package merge

import (
	"testing"

	"github.com/txtx-tools/doctor/internal/diagnostic"
)

func TestMergeLexicographicOrderAndBoundaries(t *testing.T) {
	files := map[string][]byte{
		"b.tx": []byte("line1\nline2\n"),
		"a.tx": []byte("first\n"),
	}
	m := Merge(files)
	if len(m.Boundaries) != 2 {
		t.Fatalf("expected 2 boundaries, got %d", len(m.Boundaries))
	}
	if m.Boundaries[0].File != "a.tx" {
		t.Fatalf("expected a.tx first (lexicographic order), got %s", m.Boundaries[0].File)
	}
	if m.Boundaries[1].File != "b.tx" {
		t.Fatalf("expected b.tx second, got %s", m.Boundaries[1].File)
	}
	if m.Boundaries[0].StartLine != 1 || m.Boundaries[0].EndLine != 2 {
		t.Fatalf("a.tx boundary wrong: %+v", m.Boundaries[0])
	}
	if m.Boundaries[1].StartLine != 2 || m.Boundaries[1].EndLine != 4 {
		t.Fatalf("b.tx boundary wrong: %+v", m.Boundaries[1])
	}
	expected := "first\nline1\nline2\n"
	if string(m.Source) != expected {
		t.Fatalf("expected merged source %q, got %q", expected, string(m.Source))
	}
}

func TestMergeInsertsSeparatorWhenMissingTrailingNewline(t *testing.T) {
	files := map[string][]byte{
		"a.tx": []byte("no newline at end"),
		"b.tx": []byte("second file\n"),
	}
	m := Merge(files)
	expected := "no newline at end\nsecond file\n"
	if string(m.Source) != expected {
		t.Fatalf("expected %q, got %q", expected, string(m.Source))
	}
}

func TestRemapSpanBackToOriginalFile(t *testing.T) {
	files := map[string][]byte{
		"a.tx": []byte("aaa\n"),
		"b.tx": []byte("bbb\n"),
	}
	m := Merge(files)
	// "bbb" starts at byte 4 in the merged source (after "aaa\n").
	remapped := m.RemapSpan(diagnostic.Span{Start: 4, End: 7})
	if remapped.File != "b.tx" {
		t.Fatalf("expected remap to b.tx, got %s", remapped.File)
	}
	if remapped.Start != 0 || remapped.End != 3 {
		t.Fatalf("expected file-relative span [0,3), got [%d,%d)", remapped.Start, remapped.End)
	}
}

func TestRemapDiagnosticsNeverReferencesMergedCoordinates(t *testing.T) {
	files := map[string][]byte{
		"a.tx": []byte("aaa\n"),
		"b.tx": []byte("bbb\n"),
	}
	m := Merge(files)
	result := diagnostic.NewValidationResult()
	result.AddError(diagnostic.New(diagnostic.Error, diagnostic.CategoryReference, "boom").
		WithSpan(diagnostic.Span{Start: 4, End: 7}))

	remapped := m.RemapDiagnostics(result)
	for _, d := range remapped.All() {
		if d.File == "" {
			t.Fatalf("expected a remapped file, got empty")
		}
		for _, b := range m.Boundaries {
			if d.File == b.File {
				continue
			}
		}
	}
	if remapped.All()[0].File != "b.tx" {
		t.Fatalf("expected remapped diagnostic to point at b.tx, got %s", remapped.All()[0].File)
	}
}

func TestMergeSingleFile(t *testing.T) {
	m := Merge(map[string][]byte{"only.tx": []byte("x = 1\n")})
	if len(m.Boundaries) != 1 || m.Boundaries[0].File != "only.tx" {
		t.Fatalf("unexpected boundaries: %+v", m.Boundaries)
	}
}
