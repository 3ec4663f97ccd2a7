// Package normalize turns raw feed entry titles into clean display strings.
//
// The pipeline is five pure stages applied in a fixed order: markup removal,
// encoding repair, mojibake substitution, character filtering, and whitespace
// normalization. Later stages assume the output shape of earlier ones, so the
// order is part of the contract.
package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// tagPattern treats anything between angle brackets as markup, including
	// unterminated or malformed tags.
	tagPattern = regexp.MustCompile(`<[^>]+>`)

	// unwantedPattern keeps word characters, whitespace, the apostrophe-to-
	// left-curly-quote range, the remaining curly quotes, and the ampersand.
	// The '-“ range is deliberate: it is what admits :, ?, + and the dashes
	// while still dropping emoji and other symbol noise.
	unwantedPattern = regexp.MustCompile(`[^\w\s'-“”’&]`)

	spacePattern = regexp.MustCompile(`\s+`)
)

// mojibakeReplacements maps residual UTF-8-as-Latin-1 artifacts onto the
// punctuation they originally encoded. These catch titles where the encoding
// repair stage cannot run because the string also carries wide runes.
var mojibakeReplacements = []struct {
	seq string
	out string
}{
	{"\u00e2\u0080\u0099", "’"},
	{"\u00e2\u0080\u009c", "“"},
	{"\u00e2\u0080\u009d", "”"},
	{"\u00e2\u0080\u0093", "–"},
	{"\u00e2\u0080\u0094", "—"},
	{"\u00e2\u0080\u00a6", "…"},
}

// Title cleans a single raw entry title. It is total: any input, including
// the empty string or pure markup, yields a (possibly empty) string and never
// an error.
func Title(raw string) string {
	s := stripMarkup(raw)
	s = repairEncoding(s)
	s = replaceMojibake(s)
	s = filterCharacters(s)
	return collapseWhitespace(s)
}

func stripMarkup(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

// repairEncoding reverses the common mis-decode where UTF-8 bytes were read
// as a single-byte Western encoding. If every rune fits in one byte, the rune
// values are reinterpreted as raw bytes and re-decoded as UTF-8. Strings that
// contain wide runes, or whose bytes are not valid UTF-8, pass through
// unchanged, which keeps the stage a no-op on text that was never mangled.
func repairEncoding(s string) string {
	raw := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return s
		}
		raw = append(raw, byte(r))
	}
	if !utf8.Valid(raw) {
		return s
	}
	return string(raw)
}

func replaceMojibake(s string) string {
	for _, r := range mojibakeReplacements {
		s = strings.ReplaceAll(s, r.seq, r.out)
	}
	return s
}

func filterCharacters(s string) string {
	return unwantedPattern.ReplaceAllString(s, "")
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}
