package reading

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	katakanaFirst = 'ァ' // U+30A1
	katakanaLast  = 'ヶ' // U+30F6
	// iteration marks ヽ ヾ
	katakanaIterFirst = 'ヽ' // U+30FD
	katakanaIterLast  = 'ヾ' // U+30FE
	// distance between the katakana and hiragana blocks
	kanaOffset = 0x60
)

// Fold is the script-only normalization: NFKC (full-width ASCII to ASCII,
// half-width kana to full-width, voiced marks composed), lower case, then
// katakana to hiragana. Kanji are left as they are.
func Fold(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	out, _, err := transform.String(norm.NFKC, s)
	if err != nil {
		return "", fmt.Errorf("nfkc: %w", err)
	}
	out = strings.ToLower(out)
	return strings.TrimSpace(KatakanaToHiragana(out)), nil
}

// KatakanaToHiragana shifts every rune in ァ..ヶ and the iteration marks ヽ ヾ
// down by 0x60. The prolonged sound mark ー and anything outside those ranges
// is kept.
func KatakanaToHiragana(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= katakanaFirst && r <= katakanaLast) ||
			(r >= katakanaIterFirst && r <= katakanaIterLast) {
			r -= kanaOffset
		}
		b.WriteRune(r)
	}
	return b.String()
}

// truncateRunes cuts s to at most n runes. n <= 0 disables the cap.
func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
