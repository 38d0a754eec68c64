//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// TestingContext flags context.Background() inside tests, where
// t.Context() ties the context to the test lifetime (Go 1.24+).
//
// Old:
//
//	ctx := context.Background()
//
// New:
//
//	ctx := t.Context()
//
// See: https://pkg.go.dev/testing#T.Context
func TestingContext(m dsl.Matcher) {
	m.Match(
		`context.Background()`,
		`context.TODO()`,
	).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("use t.Context() in tests so the context is canceled when the test ends (Go 1.24+)")
}

// BenchmarkLoop flags the counted benchmark loop that b.Loop replaced
// in Go 1.24.
//
// Old:
//
//	for i := 0; i < b.N; i++ { ... }
//
// New:
//
//	for b.Loop() { ... }
//
// See: https://pkg.go.dev/testing#B.Loop
func BenchmarkLoop(m dsl.Matcher) {
	m.Match(
		`for $i := 0; $i < $b.N; $i++ { $*body }`,
	).
		Where(m["b"].Type.Is("*testing.B")).
		Report("use for $b.Loop() { ... } instead of counting to $b.N (Go 1.24+)")

	m.Match(
		`for range $b.N { $*body }`,
	).
		Where(m["b"].Type.Is("*testing.B")).
		Report("use for $b.Loop() { ... } instead of for range $b.N (Go 1.24+)").
		Suggest("for $b.Loop() { $body }")
}

// TestTempFiles flags os.MkdirTemp in tests, where t.TempDir handles
// cleanup automatically.
func TestTempFiles(m dsl.Matcher) {
	m.Match(
		`os.MkdirTemp($_, $_)`,
	).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("use t.TempDir() in tests; it is removed automatically when the test ends")
}
