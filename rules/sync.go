//go:build ruleguard

// Package gorules defines custom linter rules run through ruleguard.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// WaitGroupGo flags the manual Add/Done dance that wg.Go replaced in Go 1.25.
//
// Old:
//
//	wg.Add(1)
//	go func() {
//	    defer wg.Done()
//	    serve()
//	}()
//
// New:
//
//	wg.Go(func() {
//	    serve()
//	})
//
// See: https://pkg.go.dev/sync#WaitGroup.Go
func WaitGroupGo(m dsl.Matcher) {
	m.Match(
		`$wg.Add(1); go func() { defer $wg.Done(); $*body }()`,
	).
		Where(m["wg"].Type.Is("*sync.WaitGroup") || m["wg"].Type.Is("sync.WaitGroup")).
		Report("use $wg.Go(func() { $body }) instead of manual Add/Done (Go 1.25+)").
		Suggest("$wg.Go(func() { $body })")

	m.Match(
		`$wg.Add(1); go func($param $typ) { defer $param.Done(); $*body }($wg)`,
		`$wg.Add(1); go func($param $typ) { defer $param.Done(); $*body }(&$wg)`,
	).
		Where(m["wg"].Type.Is("*sync.WaitGroup") || m["wg"].Type.Is("sync.WaitGroup")).
		Report("use $wg.Go(func() { $body }) instead of manual Add/Done (Go 1.25+)")
}

// OnceValue flags a sync.Once guarding a single lazily computed value,
// which sync.OnceValue expresses directly since Go 1.21.
//
// Old:
//
//	var once sync.Once
//	var settings *Settings
//	once.Do(func() { settings = load() })
//
// New:
//
//	var settings = sync.OnceValue(load)
//
// See: https://pkg.go.dev/sync#OnceValue
func OnceValue(m dsl.Matcher) {
	m.Match(
		`$once.Do(func() { $x = $fn() })`,
	).
		Where(m["once"].Type.Is("*sync.Once") || m["once"].Type.Is("sync.Once")).
		Report("consider sync.OnceValue($fn) instead of a Once guarding one assignment (Go 1.21+)")
}
