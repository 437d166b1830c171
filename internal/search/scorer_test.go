package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "the iron keep", Normalize("  The IRON-Keep! "))
	assert.Equal(t, "", Normalize("!!!"))
}

func TestRatio(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 100, Ratio("hero", "hero"))
	assert.Equal(t, 75, Ratio("hero", "herb"))
	assert.Equal(t, 0, Ratio("", "hero"))
	assert.Equal(t, 100, Ratio("", ""))
}

func TestPartialRatio(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 100, PartialRatio("hero", "unicode hero"))
	assert.Equal(t, 100, PartialRatio("unicode hero", "hero"))
	assert.Less(t, PartialRatio("hero", "villain"), 50)
}

func TestTokenScorersIgnoreOrder(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 100, TokenSortRatio("keep iron", "iron keep"))
	assert.Equal(t, 100, TokenSetRatio("iron keep", "the iron keep iron"))
	assert.Equal(t, 100, PartialTokenSetRatio("keep", "iron keep"))
	assert.Equal(t, 100, PartialTokenSortRatio("keep iron", "the iron keep"))
}

func TestWeightedRatio(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 100, WeightedRatio("Unicode Hero", "unicode hero"))
	assert.Equal(t, 90, WeightedRatio("hero", "Unicode Hero"))
	assert.Equal(t, 95, WeightedRatio("hero unicode", "Unicode Hero"))
	assert.Equal(t, 0, WeightedRatio("", "Unicode Hero"))
	assert.Greater(t, WeightedRatio("hero", "Unicode Hero"), WeightedRatio("hero", "Villain"))
}

func FuzzWeightedRatioBounds(f *testing.F) {
	f.Add("hero", "Unicode Hero")
	f.Add("ünï", "x y z")
	f.Fuzz(func(t *testing.T, a, b string) {
		score := WeightedRatio(a, b)
		if score < 0 || score > 100 {
			t.Fatalf("WeightedRatio(%q, %q) = %d out of range", a, b, score)
		}
	})
}
