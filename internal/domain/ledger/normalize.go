package ledger

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const tatweel = 'ـ'

// arabicFold maps letter variants onto one canonical letter. Hamza and madda
// carriers are already reduced to bare alef by decomposition.
var arabicFold = map[rune]rune{
	'ة': 'ه',
	'ى': 'ي',
	'ی': 'ي', // Farsi yeh
	'ک': 'ك', // Keheh
	'ٱ': 'ا', // Alef wasla
}

func newNormalizer() transform.Transformer {
	return transform.Chain(
		norm.NFKD,
		runes.Remove(runes.Predicate(func(r rune) bool {
			return r == tatweel || unicode.Is(unicode.Mn, r)
		})),
		runes.Map(func(r rune) rune {
			if f, ok := arabicFold[r]; ok {
				return f
			}
			return unicode.ToLower(r)
		}),
		norm.NFC,
	)
}

// Normalize folds free text for keyword matching.
//
// Compatibility forms (presentation-form letters, ligatures) decompose to
// their base letters, diacritics and tatweel are dropped, hamza/madda alef
// variants become bare alef, taa marbuta becomes haa, alef maqsura becomes
// yaa, and all whitespace is removed.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	out, _, err := transform.String(newNormalizer(), s)
	if err != nil {
		out = strings.ToLower(s)
	}
	return strings.Join(strings.Fields(out), "")
}
