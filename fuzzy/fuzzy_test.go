package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatio(t *testing.T) {
	assert.Equal(t, 100, Ratio("Daft Punk - One More Time", "daft punk - one more time"))
	assert.Equal(t, 100, Ratio("", ""))
	assert.Equal(t, 0, Ratio("abc", ""))
	assert.Equal(t, 0, Ratio("abc", "xyz"))
	assert.Equal(t, 75, Ratio("abcd", "abce"))
	assert.Equal(t, 86, Ratio("abc", "abcd"))
	assert.Equal(t, 67, Ratio("abc", "abcdef"))
	assert.Less(t, Ratio("one more time", "time more one"), 100)
}

func TestRatioSymmetric(t *testing.T) {
	assert.Equal(t, Ratio("kitten", "sitting"), Ratio("sitting", "kitten"))
}

func TestPartialRatio(t *testing.T) {
	assert.Equal(t, 100, PartialRatio("I Love NYC", "04 - I Love NYC.mp3"))
	assert.Equal(t, 100, PartialRatio("04 - i love nyc.mp3", "I LOVE NYC"))
	assert.Equal(t, 100, PartialRatio("", ""))
	assert.Equal(t, 0, PartialRatio("", "abc"))
	assert.Greater(t, PartialRatio("andrew w.k. - i love nyc", "(04) andrew w.k. - i love nyc"), 95)
	assert.Less(t, PartialRatio("ready to die", "06. i love nyc"), 80)
}

func TestPartialRatioNeverBelowRatio(t *testing.T) {
	for _, pair := range [][2]string{
		{"song", "my song remastered"},
		{"abc", "abc"},
		{"hello world", "world hello"},
	} {
		assert.GreaterOrEqual(t, PartialRatio(pair[0], pair[1]), Ratio(pair[0], pair[1]))
	}
}
