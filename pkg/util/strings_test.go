package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSymbols(t *testing.T) {
	got := NormalizeSymbols([]string{"klto, abc", " $xyz ", "KLTO", "", "def\tghi"})
	assert.Equal(t, []string{"KLTO", "ABC", "XYZ", "DEF", "GHI"}, got)
	assert.Empty(t, NormalizeSymbols(nil))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, SplitList(" a:9092, ,b:9092 "))
}

func TestParseIntDefault(t *testing.T) {
	assert.Equal(t, 7, ParseIntDefault("", 7))
	assert.Equal(t, 7, ParseIntDefault("x", 7))
	assert.Equal(t, 12, ParseIntDefault("12", 7))
}
