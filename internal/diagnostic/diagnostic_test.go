package diagnostic

import "testing"

func TestLineIndexPositionFor(t *testing.T) {
	src := []byte("line one\nline two\nline three")
	idx := NewLineIndex(src)

	cases := []struct {
		offset int
		want   Position
	}{
		{0, Position{Line: 1, Column: 1}},
		{4, Position{Line: 1, Column: 5}},
		{9, Position{Line: 2, Column: 1}},
		{18, Position{Line: 3, Column: 1}},
	}
	for _, c := range cases {
		got := idx.PositionFor(c.offset)
		if got != c.want {
			t.Errorf("PositionFor(%d) = %+v, want %+v", c.offset, got, c.want)
		}
	}
}

func TestLineIndexUnicodeColumns(t *testing.T) {
	// "café" — é is 2 bytes in UTF-8 but one scalar value / one column.
	src := []byte("café bar")
	idx := NewLineIndex(src)
	// byte offset of 'b' in "bar" is 6 (c-a-f-é(2 bytes)- -b)
	pos := idx.PositionFor(6)
	if pos.Column != 6 {
		t.Errorf("expected column 6 (scalar-value count), got %d", pos.Column)
	}
}

func TestLineIndexOffsetForRoundTrips(t *testing.T) {
	src := []byte("line one\nline two\nline three")
	idx := NewLineIndex(src)
	for _, offset := range []int{0, 4, 9, 18, 23} {
		pos := idx.PositionFor(offset)
		if got := idx.OffsetFor(pos); got != offset {
			t.Errorf("OffsetFor(PositionFor(%d)) = %d, want %d", offset, got, offset)
		}
	}
}

func TestValidationResultDeduplicatesOnMerge(t *testing.T) {
	r1 := NewValidationResult()
	r1.AddError(New(Error, CategoryReference, "undefined input RPC_URL").WithSpan(Span{File: "r.tx", Start: 10, End: 20}))

	r2 := NewValidationResult()
	r2.AddError(New(Error, CategoryReference, "undefined input RPC_URL").WithSpan(Span{File: "r.tx", Start: 10, End: 20}))
	r2.AddWarning(New(Warning, CategoryStyle, "non-snake-case input"))

	r1.Merge(r2)
	if r1.Count() != 2 {
		t.Fatalf("expected 2 unique diagnostics after merge, got %d", r1.Count())
	}
}

func TestIsSuccess(t *testing.T) {
	r := NewValidationResult()
	if !r.IsSuccess() {
		t.Fatal("empty result should be success")
	}
	r.AddWarning(New(Warning, CategoryStyle, "cosmetic"))
	if !r.IsSuccess() {
		t.Fatal("warnings-only result should still be success")
	}
	r.AddError(New(Error, CategoryReference, "bad reference"))
	if r.IsSuccess() {
		t.Fatal("result with an error should not be success")
	}
}

func TestDiagnosticFallbackPosition(t *testing.T) {
	d := New(Error, CategoryManifest, "manifest missing")
	pos := d.Position(nil)
	if pos != (Position{Line: 1, Column: 1}) {
		t.Errorf("expected fallback (1,1), got %+v", pos)
	}
}
