// Package merge implements the multi-file runbook merger (C7): when a
// runbook declaration resolves to more than one file, their contents are
// concatenated into one synthetic source so the two-pass engine (C5) can
// run over it as a single unit, and every resulting diagnostic is then
// remapped back to its original file and line.
package merge

import (
	"sort"
	"strings"

	"github.com/txtx-tools/doctor/internal/diagnostic"
)

// Boundary is one entry of the file-boundary table: the half-open line
// range [StartLine, EndLine) of file, in merged-source coordinates.
// StartLine/EndLine are 1-based, matching spec.md §4.7.
type Boundary struct {
	File       string
	StartLine  int
	EndLine    int
	StartByte  int // byte offset of this file's first byte in the merged source
	StartIndex int // 0-based ordinal of this file among the merged set
}

// Merged is the result of merging a set of files: the synthetic source and
// the boundary table needed to remap diagnostics back.
type Merged struct {
	Source     []byte
	Boundaries []Boundary
}

// Merge concatenates files (path -> content) in lexicographic path order,
// separating adjacent files with a single "\n" when the preceding file's
// content doesn't already end with one, and builds the boundary table —
// spec.md §4.7 steps 1–3.
func Merge(files map[string][]byte) Merged {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var buf strings.Builder
	boundaries := make([]Boundary, 0, len(paths))
	line := 1
	byteOffset := 0

	for i, p := range paths {
		content := files[p]
		start := line
		startByte := byteOffset

		buf.Write(content)
		byteOffset += len(content)
		line += strings.Count(string(content), "\n")

		needsSeparator := len(content) > 0 && content[len(content)-1] != '\n'
		if needsSeparator && i != len(paths)-1 {
			buf.WriteByte('\n')
			byteOffset++
			line++
		}

		boundaries = append(boundaries, Boundary{
			File:       p,
			StartLine:  start,
			EndLine:    line,
			StartByte:  startByte,
			StartIndex: i,
		})
	}

	return Merged{Source: []byte(buf.String()), Boundaries: boundaries}
}

// boundaryForLine finds the boundary entry covering a 1-based merged-source
// line number.
func (m Merged) boundaryForLine(mergedLine int) (Boundary, bool) {
	for _, b := range m.Boundaries {
		if mergedLine >= b.StartLine && mergedLine < b.EndLine {
			return b, true
		}
	}
	return Boundary{}, false
}

// boundaryForByte finds the boundary entry covering a merged-source byte
// offset.
func (m Merged) boundaryForByte(offset int) (Boundary, bool) {
	for i, b := range m.Boundaries {
		next := len(m.Source)
		if i+1 < len(m.Boundaries) {
			next = m.Boundaries[i+1].StartByte
		}
		if offset >= b.StartByte && offset < next {
			return b, true
		}
		if i == len(m.Boundaries)-1 && offset >= b.StartByte {
			return b, true
		}
	}
	return Boundary{}, false
}

// RemapSpan rewrites a Span carrying merged-source byte offsets back to its
// original file and file-relative byte offsets — spec.md §4.7 step 6.
func (m Merged) RemapSpan(span diagnostic.Span) diagnostic.Span {
	b, ok := m.boundaryForByte(span.Start)
	if !ok {
		return span
	}
	return diagnostic.Span{
		File:  b.File,
		Start: span.Start - b.StartByte,
		End:   span.End - b.StartByte,
	}
}

// RemapDiagnostics returns a new result holding a copy of every diagnostic
// in result (which is left unchanged); in each copy the file path is
// replaced with the owning original file and the span's offsets become
// file-relative, per spec.md §4.7 step 5's invariant that after
// remap no diagnostic references merged coordinates.
func (m Merged) RemapDiagnostics(result *diagnostic.ValidationResult) *diagnostic.ValidationResult {
	remapped := diagnostic.NewValidationResult()
	for _, d := range result.All() {
		nd := *d
		if d.Span != nil {
			span := m.RemapSpan(*d.Span)
			nd.Span = &span
			nd.File = span.File
		}
		// Diagnostics with no span (e.g. the manifest-load info note) carry
		// no merged-source coordinates to begin with, so they pass through
		// unchanged.
		remapped.Add(&nd)
	}
	return remapped
}

// RemapPosition converts a 1-based merged-source line number into the
// original file and file-relative line number, preserving column —
// spec.md §4.7 step 5.
func (m Merged) RemapPosition(mergedLine, column int) (file string, line int, col int, ok bool) {
	b, found := m.boundaryForLine(mergedLine)
	if !found {
		return "", 0, 0, false
	}
	return b.File, mergedLine - b.StartLine + 1, column, true
}
