package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "github.com/Aman-CERP/docrag/internal/errors"
)

func TestCachedEmbedder_Embed_CachesByText(t *testing.T) {
	// Given a cached mock embedder
	mock := newCountingEmbedder(4)
	cached := NewCachedEmbedder(mock, 10)
	ctx := context.Background()

	// When the same text is embedded twice
	first, err := cached.Embed(ctx, "query")
	require.NoError(t, err)
	second, err := cached.Embed(ctx, "query")
	require.NoError(t, err)

	// Then the inner embedder is called once
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), mock.singles.Load())
	assert.Equal(t, 1, cached.Len())
}

func TestCachedEmbedder_EmbedBatch_OnlyMissesGoInner(t *testing.T) {
	mock := newCountingEmbedder(4)
	cached := NewCachedEmbedder(mock, 10)
	ctx := context.Background()

	_, err := cached.Embed(ctx, "bb")
	require.NoError(t, err)

	out, err := cached.EmbedBatch(ctx, []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, float32(1), out[0][0])
	assert.Equal(t, float32(2), out[1][0])
	assert.Equal(t, float32(3), out[2][0])
	assert.Equal(t, int64(1), mock.batches.Load())

	// All cached now: no further inner calls.
	_, err = cached.EmbedBatch(ctx, []string{"ccc", "a"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), mock.batches.Load())
}

func TestCachedEmbedder_Evicts(t *testing.T) {
	mock := newCountingEmbedder(4)
	cached := NewCachedEmbedder(mock, 2)
	ctx := context.Background()

	for _, s := range []string{"a", "b", "c"} {
		_, err := cached.Embed(ctx, s)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, cached.Len())

	_, err := cached.Embed(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(4), mock.singles.Load())
}

func TestCachedEmbedder_Passthrough(t *testing.T) {
	mock := newCountingEmbedder(8)
	cached := NewCachedEmbedder(mock, 0)

	assert.Equal(t, 8, cached.Dimensions())
	assert.Equal(t, "counting", cached.ModelName())
	assert.True(t, cached.Available(context.Background()))
	assert.Same(t, mock, cached.Inner())

	require.NoError(t, cached.Close())
	assert.True(t, mock.closed)
}

func TestCachedEmbedder_EmptyBatch(t *testing.T) {
	cached := NewCachedEmbedder(newCountingEmbedder(4), 10)
	out, err := cached.EmbedBatch(context.Background(), []string{})
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

// shortEmbedder drops the last vector of every batch.
type shortEmbedder struct{ *countingEmbedder }

func (s shortEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := s.countingEmbedder.EmbedBatch(ctx, texts)
	if err != nil || len(out) == 0 {
		return out, err
	}
	return out[:len(out)-1], nil
}

func TestCachedEmbedder_EmbedBatch_ShortReplyIsModelError(t *testing.T) {
	// Given an inner embedder that returns fewer vectors than texts
	cached := NewCachedEmbedder(shortEmbedder{newCountingEmbedder(4)}, 10)

	// When a batch of misses is embedded
	out, err := cached.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})

	// Then the mismatch is reported instead of indexing past the reply
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, derrors.IsModel(err))
	assert.Zero(t, cached.Len())
}
