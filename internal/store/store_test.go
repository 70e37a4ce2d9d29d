package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dotcommander/viralscore/internal/scoring"
	"github.com/dotcommander/viralscore/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "scores.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func output(videoID, version string, overall float64) *scoring.Output {
	hook := overall
	return &scoring.Output{
		VideoID:   videoID,
		Version:   version,
		Overall:   overall,
		Subscores: scoring.Subscores{types.FacetHook: &hook},
		Weights:   map[types.Facet]float64{types.FacetHook: 1},
		Diagnostics: scoring.Diagnostics{
			CompletenessPct: 12.5,
			Confidence:      types.ConfidenceLow,
		},
	}
}

func TestOpenMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	versions, err := s.Versions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestSaveAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	n, err := s.Save(ctx, "run-1", at, output("v1", "1.0.0", 61.2))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	r, err := s.Get(ctx, "v1", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "v1", r.VideoID)
	assert.Equal(t, 61.2, r.Overall)
	assert.Equal(t, types.ConfidenceLow, r.Confidence)
	assert.Equal(t, "run-1", r.RunID)
	assert.True(t, at.Equal(r.ScoredAt))

	out, err := r.Decode()
	require.NoError(t, err)
	assert.Equal(t, 61.2, *out.Subscores[types.FacetHook])
	assert.Nil(t, out.Subscores[types.FacetStory])

	_, err = s.Get(ctx, "v1", "2.0.0")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveReplacesSameVersion(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "run-1", time.Now(), output("v1", "1.0.0", 40))
	require.NoError(t, err)
	_, err = s.Save(ctx, "run-2", time.Now(), output("v1", "1.0.0", 55), output("v1", "1.1.0", 70))
	require.NoError(t, err)

	r, err := s.Get(ctx, "v1", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, 55.0, r.Overall)
	assert.Equal(t, "run-2", r.RunID)

	versions, err := s.Versions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0.0", "1.1.0"}, versions)
}

func TestRank(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "run", time.Now(),
		output("b", "1.0.0", 70),
		output("a", "1.0.0", 70),
		output("c", "1.0.0", 90),
		output("d", "1.0.0", 10),
		output("z", "2.0.0", 99),
	)
	require.NoError(t, err)

	records, err := s.Rank(ctx, "1.0.0", 0)
	require.NoError(t, err)
	var ids []string
	for _, r := range records {
		ids = append(ids, r.VideoID)
	}
	assert.Equal(t, []string{"c", "a", "b", "d"}, ids)

	top, err := s.Rank(ctx, "1.0.0", 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "c", top[0].VideoID)

	none, err := s.Rank(ctx, "9.9.9", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
