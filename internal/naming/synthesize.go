// Package naming turns classifier descriptions into filesystem-safe
// filenames and guarantees batch-wide uniqueness through a shared
// reservation registry.
package naming

import (
	"strings"
	"unicode"

	"github.com/zhu-jl18/vidrename-go/internal/conf"
	"golang.org/x/text/unicode/norm"
)

const (
	defaultMaxStemLength = 60
	defaultFallback      = "未命名视频"
)

// knownVideoExtensions are suffixes the vision service sometimes appends to
// its suggestion. They are stripped before sanitization; the source file's
// real extension always wins.
var knownVideoExtensions = []string{
	".mp4", ".avi", ".mkv", ".mov", ".wmv", ".flv", ".ts", ".m4a",
	".webm", ".m4v", ".mpg", ".mpeg",
}

// Synthesizer builds candidate filenames from descriptions. Deterministic:
// the same description and extension always produce the same candidate.
type Synthesizer struct {
	MaxStemLength int
	Fallback      string
}

// NewSynthesizer creates a synthesizer from settings, normalizing unset
// values to the defaults.
func NewSynthesizer(settings *conf.NamingSettings) *Synthesizer {
	s := &Synthesizer{
		MaxStemLength: defaultMaxStemLength,
		Fallback:      defaultFallback,
	}
	if settings != nil {
		if settings.MaxLength > 0 {
			s.MaxStemLength = settings.MaxLength
		}
		if strings.TrimSpace(settings.Fallback) != "" {
			s.Fallback = settings.Fallback
		}
	}
	return s
}

// Synthesize produces a candidate filename from a description and the
// source file's extension. The extension is appended unchanged. An empty
// extension is a contract violation by the caller, not an input condition.
func (s *Synthesizer) Synthesize(description, originalExt string) string {
	if originalExt == "" {
		panic("naming: Synthesize called with empty extension")
	}

	stem := s.sanitizeStem(description)
	if stem == "" {
		stem = s.Fallback
	}

	return stem + originalExt
}

// sanitizeStem reduces a description to a safe filename stem: any appended
// video extension is dropped, characters other than Unicode letters,
// digits, spaces, hyphens, and underscores are replaced by spaces,
// whitespace is collapsed, and the result is truncated to MaxStemLength
// runes at a word boundary when one exists.
func (s *Synthesizer) sanitizeStem(description string) string {
	stem := norm.NFC.String(strings.TrimSpace(description))
	stem = stripServiceExtension(stem)

	var b strings.Builder
	b.Grow(len(stem))
	for _, r := range stem {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	stem = strings.Join(strings.Fields(b.String()), " ")
	return truncateAtWordBoundary(stem, s.MaxStemLength)
}

// stripServiceExtension removes one trailing known video extension,
// case-insensitively.
func stripServiceExtension(stem string) string {
	lower := strings.ToLower(stem)
	for _, ext := range knownVideoExtensions {
		if strings.HasSuffix(lower, ext) && len(stem) > len(ext) {
			return strings.TrimSpace(stem[:len(stem)-len(ext)])
		}
	}
	return stem
}

// truncateAtWordBoundary cuts the stem to at most maxRunes runes. When the
// cut lands inside a word and an earlier space exists, the cut moves back
// to that space so no word is split. Unspaced text is cut hard.
func truncateAtWordBoundary(stem string, maxRunes int) string {
	runes := []rune(stem)
	if len(runes) <= maxRunes {
		return stem
	}

	truncated := runes[:maxRunes]
	// A following space means the cut already sits on a boundary.
	if runes[maxRunes] == ' ' {
		return string(truncated)
	}

	if idx := lastIndexRune(truncated, ' '); idx > 0 {
		return string(truncated[:idx])
	}
	return string(truncated)
}

func lastIndexRune(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}
