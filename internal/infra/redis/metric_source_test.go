package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricSourceReadsUserHash(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	mr.HSet("metrics:u1", "streak_days", "4", "forum_posts", "12.5", "note", "n/a")

	src := NewMetricSource(newClient(mr), "metrics:")
	got, err := src.Metrics(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"streak_days": 4, "forum_posts": 12.5}, got)

	empty, err := src.Metrics(context.Background(), "u2")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
