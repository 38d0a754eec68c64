package classify

import (
	"strings"
	"unicode/utf8"

	"github.com/k3a/html2text"
	"github.com/zhu-jl18/vidrename-go/internal/errors"
	"golang.org/x/text/unicode/norm"
)

// maxDescriptionRunes bounds accepted descriptions. Anything longer is a
// rejected reply, not material for truncation; the service was asked for a
// short name and a long reply means it ignored the prompt.
const maxDescriptionRunes = 100

// illegalChars are characters that cannot appear in a filename on any
// supported platform. A description containing one is rejected here rather
// than silently stripped, so the sanitizer downstream never has to guess
// what the service meant.
const illegalChars = `<>:"/\|?*`

// quoteCutset covers ASCII and CJK quoting the service tends to wrap
// suggestions in.
const quoteCutset = "\"'`“”‘’「」『』《》【】〈〉"

// trailingPunct is sentence punctuation trimmed from the end of a reply.
const trailingPunct = "。，！？、；：…,.!?;:"

// Normalize cleans a raw service reply into a candidate description:
// HTML fragments are flattened to text, Unicode is NFC-composed,
// whitespace is collapsed, wrapping quotes and trailing sentence
// punctuation are removed.
func Normalize(raw string) string {
	s := raw

	// Some replies arrive wrapped in markup fragments.
	if strings.Contains(s, "<") && strings.Contains(s, ">") {
		s = html2text.HTML2Text(s)
	}

	s = norm.NFC.String(s)

	// Collapse runs of whitespace, including newlines, to single spaces.
	s = strings.Join(strings.Fields(s), " ")

	s = strings.Trim(s, quoteCutset)
	s = strings.TrimRight(s, trailingPunct)

	return strings.TrimSpace(s)
}

// Validate checks a normalized description against the reply contract.
// Failures are permanent: a reply that is empty, too long, or carries
// filename-illegal characters will not improve on retry.
func Validate(description string) error {
	if description == "" {
		return errors.Newf("service returned an empty description").
			Category(errors.CategoryClassification).
			Context("operation", "validate-description").
			Build()
	}

	if n := utf8.RuneCountInString(description); n > maxDescriptionRunes {
		return errors.Newf("description too long: %d runes (limit %d)", n, maxDescriptionRunes).
			Category(errors.CategoryClassification).
			Context("operation", "validate-description").
			Context("description_preview", preview(description)).
			Build()
	}

	if strings.ContainsAny(description, illegalChars) {
		return errors.Newf("description contains filename-illegal characters").
			Category(errors.CategoryClassification).
			Context("operation", "validate-description").
			Context("description_preview", preview(description)).
			Build()
	}

	return nil
}
