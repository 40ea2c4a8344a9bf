package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow_Contains(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	w := NewWindow(start, end)

	assert.True(t, w.Contains(start))
	assert.True(t, w.Contains(start.Add(time.Hour)))
	assert.False(t, w.Contains(end))
	assert.False(t, w.Contains(start.Add(-time.Second)))
}

func TestWindow_Split_CoversWholeWindow(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(10 * time.Hour)
	w := NewWindow(start, end)

	parts := w.Split(4)
	require.Len(t, parts, 4)

	assert.Equal(t, w.Start, parts[0].Start)
	assert.Equal(t, w.End, parts[len(parts)-1].End)
	for i := 1; i < len(parts); i++ {
		assert.Equal(t, parts[i-1].End, parts[i].Start)
	}
}

func TestWindow_Split_RemainderGoesToLastPart(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	w := NewWindow(start, start.Add(10*time.Second))

	parts := w.Split(3)
	require.Len(t, parts, 3)
	assert.Equal(t, w.End, parts[2].End)

	var total time.Duration
	for _, p := range parts {
		total += p.Duration()
	}
	assert.Equal(t, w.Duration(), total)
}

func TestWindow_Split_InvalidCountFallsBackToOne(t *testing.T) {
	w := NewWindow(time.Now(), time.Now().Add(time.Hour))

	parts := w.Split(0)
	require.Len(t, parts, 1)
	assert.Equal(t, w, parts[0])
}

func TestNewWindow_NormalisesToUTC(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, loc)

	w := NewWindow(start, start.Add(time.Hour))
	assert.Equal(t, time.UTC, w.Start.Location())
	assert.Equal(t, time.UTC, w.End.Location())
}
