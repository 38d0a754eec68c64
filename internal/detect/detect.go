// Package detect decides whether a filename is machine generated and worth
// renaming, or human readable and left alone.
package detect

import (
	"path/filepath"

	"github.com/google/uuid"
)

// Kind classifies a filename stem.
type Kind int

const (
	// KindReadable marks stems that look human made.
	KindReadable Kind = iota
	// KindHex marks long stems made only of hex digits, such as content
	// hashes produced by download tools.
	KindHex
	// KindUUID marks stems shaped like a UUID.
	KindUUID
)

func (k Kind) String() string {
	switch k {
	case KindHex:
		return "hex"
	case KindUUID:
		return "uuid"
	default:
		return "readable"
	}
}

// Detector reports whether filenames look machine generated.
//
// Two patterns count as machine generated: stems longer than the configured
// minimum consisting only of hex digits, and stems shaped like a UUID. Short
// hex words ("cafe", "deadbeef") stay readable so ordinary names are never
// touched.
type Detector struct {
	minHexLength int
}

// New returns a Detector. Stems must be strictly longer than minHexLength
// before the hex rule applies.
func New(minHexLength int) *Detector {
	return &Detector{minHexLength: minHexLength}
}

// Classify inspects the base filename (with extension) and reports what the
// stem looks like.
func (d *Detector) Classify(filename string) Kind {
	stem := stemOf(filename)
	if stem == "" {
		return KindReadable
	}

	if len(stem) > d.minHexLength && isHexString(stem) {
		return KindHex
	}

	// uuid.Parse accepts the canonical hyphenated form in any case, plus the
	// braced and urn variants. Plain 32 digit hex strings are caught by the
	// hex rule above so ordering keeps the classification stable.
	if _, err := uuid.Parse(stem); err == nil {
		return KindUUID
	}

	return KindReadable
}

// IsOpaque reports whether the filename is machine generated.
func (d *Detector) IsOpaque(filename string) bool {
	return d.Classify(filename) != KindReadable
}

// stemOf strips the extension from a base filename. Dotfiles like ".hidden"
// have no stem.
func stemOf(filename string) string {
	ext := filepath.Ext(filename)
	return filename[:len(filename)-len(ext)]
}

func isHexString(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
