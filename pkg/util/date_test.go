package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2026-10-19T13:30:00Z"
	got, ok := ParseTime(s)
	require.True(t, ok)
	assert.Equal(t, s, got.UTC().Format(time.RFC3339))
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2026, 10, 19, 13, 30, 0, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	require.True(t, ok)
	assert.Equal(t, ts, got.Unix())
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2026, 10, 19, 13, 30, 0, 0, time.UTC)
	assert.True(t, ParseTimeDefault("", def).Equal(def))
	assert.True(t, ParseTimeDefault("yesterday", def).Equal(def))
}

func TestParseInterval(t *testing.T) {
	d, err := ParseInterval("90")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	d, err = ParseInterval("2m")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, d)

	_, err = ParseInterval("soon")
	assert.Error(t, err)
}
