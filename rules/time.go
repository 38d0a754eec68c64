//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// TimeFormatConstants flags magic reference-time strings that have had
// named constants since Go 1.20.
//
// Old:
//
//	t.Format("2006-01-02 15:04:05")
//
// New:
//
//	t.Format(time.DateTime)
//
// See: https://pkg.go.dev/time#pkg-constants
func TimeFormatConstants(m dsl.Matcher) {
	m.Match(`$t.Format("2006-01-02 15:04:05")`).
		Report(`use $t.Format(time.DateTime) instead of a magic format string (Go 1.20+)`).
		Suggest(`$t.Format(time.DateTime)`)

	m.Match(`$t.Format("2006-01-02")`).
		Report(`use $t.Format(time.DateOnly) instead of a magic format string (Go 1.20+)`).
		Suggest(`$t.Format(time.DateOnly)`)

	m.Match(`$t.Format("15:04:05")`).
		Report(`use $t.Format(time.TimeOnly) instead of a magic format string (Go 1.20+)`).
		Suggest(`$t.Format(time.TimeOnly)`)

	m.Match(`time.Parse("2006-01-02 15:04:05", $s)`).
		Report(`use time.Parse(time.DateTime, $s) instead of a magic format string (Go 1.20+)`).
		Suggest(`time.Parse(time.DateTime, $s)`)

	m.Match(`time.Parse("2006-01-02", $s)`).
		Report(`use time.Parse(time.DateOnly, $s) instead of a magic format string (Go 1.20+)`).
		Suggest(`time.Parse(time.DateOnly, $s)`)
}

// TimeSince flags time.Now().Sub, which time.Since spells directly.
func TimeSince(m dsl.Matcher) {
	m.Match(`time.Now().Sub($t)`).
		Report(`use time.Since($t) instead of time.Now().Sub($t)`).
		Suggest(`time.Since($t)`)
}

// DeferredTimeSince flags time.Since passed directly to a deferred call.
// The duration is computed when the defer statement runs, not at function
// exit, so the measurement is always near zero.
//
// Broken:
//
//	start := time.Now()
//	defer log.Info("batch done", "elapsed", time.Since(start))
//
// Correct:
//
//	start := time.Now()
//	defer func() { log.Info("batch done", "elapsed", time.Since(start)) }()
func DeferredTimeSince(m dsl.Matcher) {
	m.Match(
		`defer $fn(time.Since($start))`,
		`defer $fn(time.Since($start), $*_)`,
		`defer $fn($*_, time.Since($start))`,
	).
		Report("time.Since($start) is evaluated at defer time, not function exit; wrap the call in func() { ... }")
}
