package index

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DisplayName turns a raw Kanka name into its search key. Compatibility
// decomposition folds accented and styled variants onto their base letters,
// the combining marks are dropped, and the result is title-cased, so
// "ünïcode hero" and "Unicode HERO" share the key "Unicode Hero".
//
// The result depends on raw alone.
func DisplayName(raw string) string {
	folded, _, err := transform.String(foldChain(), raw)
	if err != nil {
		folded = norm.NFKD.String(raw)
	}
	folded = strings.Join(strings.Fields(folded), " ")
	return cases.Title(language.Und).String(folded)
}

// CategoryLabel renders a category slug such as "dice_rolls" as "Dice Rolls".
func CategoryLabel(slug string) string {
	return DisplayName(strings.ReplaceAll(slug, "_", " "))
}

// transform.Chain keeps state, so each call gets a fresh chain.
func foldChain() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
