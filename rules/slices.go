//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// SortToSlices flags the pre-generics sort helpers that the slices
// package replaced in Go 1.21.
//
// Old:
//
//	sort.Strings(names)
//	sort.Slice(entries, func(i, j int) bool { return entries[i].Size < entries[j].Size })
//
// New:
//
//	slices.Sort(names)
//	slices.SortFunc(entries, func(a, b Entry) int { return cmp.Compare(a.Size, b.Size) })
//
// See: https://pkg.go.dev/slices#Sort
func SortToSlices(m dsl.Matcher) {
	m.Match(`sort.Ints($s)`).
		Report("use slices.Sort($s) instead of sort.Ints (Go 1.21+)").
		Suggest("slices.Sort($s)")

	m.Match(`sort.Strings($s)`).
		Report("use slices.Sort($s) instead of sort.Strings (Go 1.21+)").
		Suggest("slices.Sort($s)")

	m.Match(`sort.Float64s($s)`).
		Report("use slices.Sort($s) instead of sort.Float64s (Go 1.21+)").
		Suggest("slices.Sort($s)")

	m.Match(`sort.Slice($s, $less)`).
		Report("consider slices.SortFunc($s, ...) with a cmp comparison instead of sort.Slice (Go 1.21+)")
}

// ManualContains flags hand-written membership loops that
// slices.Contains covers.
//
// Old:
//
//	found := false
//	for _, v := range list {
//	    if v == want {
//	        found = true
//	        break
//	    }
//	}
//
// New:
//
//	found := slices.Contains(list, want)
//
// See: https://pkg.go.dev/slices#Contains
func ManualContains(m dsl.Matcher) {
	m.Match(
		`for _, $v := range $list { if $v == $want { $found = true; break } }`,
		`for _, $v := range $list { if $v == $want { $found = true } }`,
	).
		Report("use $found = slices.Contains($list, $want) instead of a manual loop (Go 1.21+)")

	m.Match(
		`for _, $v := range $list { if $v == $want { return true } }`,
	).
		Report("use slices.Contains($list, $want) instead of a manual loop (Go 1.21+)")
}
