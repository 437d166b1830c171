// Package search ranks cached display names against a free-text query.
package search

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Scorer returns a similarity between 0 and 100.
type Scorer func(query, choice string) int

// Normalize lower-cases s, turns everything that is not a letter or digit
// into a space and collapses runs of spaces.
func Normalize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

// Ratio is the edit-distance similarity of two whole strings.
func Ratio(a, b string) int {
	la, lb := runeLen(a), runeLen(b)
	longest := max(la, lb)
	if longest == 0 {
		return 100
	}
	if la == 0 || lb == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return round(100 * (1 - float64(dist)/float64(longest)))
}

// PartialRatio aligns the shorter string against every same-length window of
// the longer one and keeps the best Ratio.
func PartialRatio(a, b string) int {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		if len(long) == 0 {
			return 100
		}
		return 0
	}
	s := string(short)
	best := 0
	for start := 0; start+len(short) <= len(long); start++ {
		score := Ratio(s, string(long[start:start+len(short)]))
		if score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

// TokenSortRatio compares the strings after sorting their words.
func TokenSortRatio(a, b string) int {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

// PartialTokenSortRatio is TokenSortRatio scored with PartialRatio.
func PartialTokenSortRatio(a, b string) int {
	return PartialRatio(sortedTokens(a), sortedTokens(b))
}

// TokenSetRatio compares the shared words of both strings against each
// side's shared-plus-remaining words, so extra words on one side cost little.
func TokenSetRatio(a, b string) int {
	return tokenSet(a, b, Ratio, false)
}

// PartialTokenSetRatio is TokenSetRatio scored with PartialRatio. Any shared
// word is a perfect partial match.
func PartialTokenSetRatio(a, b string) int {
	return tokenSet(a, b, PartialRatio, true)
}

// WeightedRatio picks the best of the sub-scorers. When one string is much
// longer than the other the substring scorers take over, scaled down so that
// a whole-string match still ranks first.
func WeightedRatio(query, choice string) int {
	p1, p2 := Normalize(query), Normalize(choice)
	if p1 == "" || p2 == "" {
		return 0
	}

	base := float64(Ratio(p1, p2))
	l1, l2 := float64(runeLen(p1)), float64(runeLen(p2))
	lenRatio := math.Max(l1, l2) / math.Min(l1, l2)

	const unbaseScale = 0.95
	if lenRatio < 1.5 {
		tokenSort := float64(TokenSortRatio(p1, p2)) * unbaseScale
		tokenSet := float64(TokenSetRatio(p1, p2)) * unbaseScale
		return round(max(base, tokenSort, tokenSet))
	}

	partialScale := 0.9
	if lenRatio > 8 {
		partialScale = 0.6
	}
	partial := float64(PartialRatio(p1, p2)) * partialScale
	partialSort := float64(PartialTokenSortRatio(p1, p2)) * unbaseScale * partialScale
	partialSet := float64(PartialTokenSetRatio(p1, p2)) * unbaseScale * partialScale
	return round(max(base, partial, partialSort, partialSet))
}

func tokenSet(a, b string, score Scorer, partial bool) int {
	ta, tb := tokenSetOf(a), tokenSetOf(b)
	var shared, onlyA, onlyB []string
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			shared = append(shared, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range tb {
		if _, ok := ta[tok]; !ok {
			onlyB = append(onlyB, tok)
		}
	}
	if partial && len(shared) > 0 {
		return 100
	}
	sort.Strings(shared)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	sect := strings.Join(shared, " ")
	combinedA := strings.TrimSpace(sect + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(sect + " " + strings.Join(onlyB, " "))

	best := score(combinedA, combinedB)
	if sect != "" {
		best = max(best, score(sect, combinedA), score(sect, combinedB))
	}
	return best
}

func tokenSetOf(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		out[tok] = struct{}{}
	}
	return out
}

func sortedTokens(s string) string {
	toks := strings.Fields(s)
	sort.Strings(toks)
	return strings.Join(toks, " ")
}

func runeLen(s string) int {
	return len([]rune(s))
}

func round(f float64) int {
	return int(math.Round(f))
}
