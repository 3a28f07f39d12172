package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hh, mm int) time.Time {
	return time.Date(2026, 1, 1, hh, mm, 0, 0, time.UTC)
}

// TestAlwaysOpenWindow covers boundary behavior B1: "00:00"-"00:00" is
// always open.
func TestAlwaysOpenWindow(t *testing.T) {
	w, err := ParseWindow(true, "00:00", "00:00")
	require.NoError(t, err)

	assert.True(t, w.IsOpen(at(0, 0)))
	assert.True(t, w.IsOpen(at(12, 30)))
	assert.True(t, w.IsOpen(at(23, 59)))
}

// TestWrappingWindow covers boundary behavior B2: "22:00"-"06:00" is
// open at 23:59 and 05:59, closed at 06:00.
func TestWrappingWindow(t *testing.T) {
	w, err := ParseWindow(true, "22:00", "06:00")
	require.NoError(t, err)

	assert.True(t, w.IsOpen(at(23, 59)))
	assert.False(t, w.IsOpen(at(6, 0)))
	assert.True(t, w.IsOpen(at(5, 59)))
	assert.False(t, w.IsOpen(at(12, 0)))
}

func TestNonWrappingWindow(t *testing.T) {
	w, err := ParseWindow(true, "09:00", "17:00")
	require.NoError(t, err)

	assert.True(t, w.IsOpen(at(9, 0)))
	assert.True(t, w.IsOpen(at(16, 59)))
	assert.False(t, w.IsOpen(at(17, 0)))
	assert.False(t, w.IsOpen(at(8, 59)))
}

func TestDisabledWindowIsAlwaysOpen(t *testing.T) {
	w, err := ParseWindow(false, "", "")
	require.NoError(t, err)
	assert.True(t, w.IsOpen(at(3, 0)))
}

func TestParseWindowRejectsMalformedTimes(t *testing.T) {
	_, err := ParseWindow(true, "25:00", "06:00")
	assert.Error(t, err)

	_, err = ParseWindow(true, "9am", "5pm")
	assert.Error(t, err)
}
