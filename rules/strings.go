//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// StringsCut flags HasPrefix/TrimPrefix pairs that strings.CutPrefix
// expresses in one call since Go 1.20.
//
// Old:
//
//	if strings.HasPrefix(name, prefix) {
//	    rest := strings.TrimPrefix(name, prefix)
//	    ...
//	}
//
// New:
//
//	if rest, ok := strings.CutPrefix(name, prefix); ok {
//	    ...
//	}
//
// See: https://pkg.go.dev/strings#CutPrefix
func StringsCut(m dsl.Matcher) {
	m.Match(
		`if strings.HasPrefix($s, $pre) { $x := strings.TrimPrefix($s, $pre); $*_ }`,
		`if strings.HasPrefix($s, $pre) { $x = strings.TrimPrefix($s, $pre); $*_ }`,
	).
		Report("use strings.CutPrefix($s, $pre) instead of HasPrefix followed by TrimPrefix (Go 1.20+)")

	m.Match(
		`if strings.HasSuffix($s, $suf) { $x := strings.TrimSuffix($s, $suf); $*_ }`,
		`if strings.HasSuffix($s, $suf) { $x = strings.TrimSuffix($s, $suf); $*_ }`,
	).
		Report("use strings.CutSuffix($s, $suf) instead of HasSuffix followed by TrimSuffix (Go 1.20+)")
}

// StringsSplitIteration flags strings.Split used only to feed a range
// loop, where strings.SplitSeq avoids the intermediate slice (Go 1.24+).
//
// Old:
//
//	for _, part := range strings.Split(s, ",") { ... }
//
// New:
//
//	for part := range strings.SplitSeq(s, ",") { ... }
//
// Keep Split when the slice itself is needed (indexing, len).
//
// See: https://pkg.go.dev/strings#SplitSeq
func StringsSplitIteration(m dsl.Matcher) {
	m.Match(
		`for $_, $part := range strings.Split($s, $sep) { $*body }`,
	).
		Report("use for $part := range strings.SplitSeq($s, $sep) when only iterating (Go 1.24+)")

	m.Match(
		`for $_, $field := range strings.Fields($s) { $*body }`,
	).
		Report("use for $field := range strings.FieldsSeq($s) when only iterating (Go 1.24+)")
}
