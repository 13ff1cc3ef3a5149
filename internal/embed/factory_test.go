package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "github.com/Aman-CERP/docrag/internal/errors"
)

func TestNewEmbedder_StaticIsCachedByDefault(t *testing.T) {
	e, err := NewEmbedder(context.Background(), Options{Provider: ProviderStatic})
	require.NoError(t, err)
	defer e.Close()

	cached, ok := e.(*CachedEmbedder)
	require.True(t, ok)
	assert.IsType(t, &StaticEmbedder{}, cached.Inner())
	assert.Equal(t, DefaultDimensions, e.Dimensions())
}

func TestNewEmbedder_CacheDisabled(t *testing.T) {
	e, err := NewEmbedder(context.Background(), Options{Provider: ProviderStatic, Dimensions: 16, CacheSize: -1})
	require.NoError(t, err)
	defer e.Close()

	assert.IsType(t, &StaticEmbedder{}, e)
	assert.Equal(t, 16, e.Dimensions())
}

func TestNewEmbedder_Ollama(t *testing.T) {
	fake := &fakeOllama{models: []string{"all-minilm"}}
	host := newFakeOllama(t, fake)

	e, err := NewEmbedder(context.Background(), Options{Provider: ProviderOllama, OllamaHost: host})
	require.NoError(t, err)
	w := NewWorker(e, DefaultWorkerOptions())
	defer w.Close()

	info := GetInfo(context.Background(), w)
	assert.Equal(t, ProviderOllama, info.Provider)
	assert.Equal(t, 3, info.Dimensions)
	assert.True(t, info.Available)
}

func TestNewEmbedder_UnknownProvider(t *testing.T) {
	_, err := NewEmbedder(context.Background(), Options{Provider: "mlx"})
	require.Error(t, err)
	assert.Equal(t, derrors.ErrCodeConfigInvalid, derrors.GetCode(err))
}

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in   string
		want ProviderType
		ok   bool
	}{
		{"static", ProviderStatic, true},
		{"OLLAMA", ProviderOllama, true},
		{" ollama ", ProviderOllama, true},
		{"", ProviderStatic, true},
		{"mlx", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseProvider(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.True(t, IsValidProvider("static"))
	assert.False(t, IsValidProvider(""))
	assert.False(t, IsValidProvider("mlx"))
}

func TestGetInfo_Static(t *testing.T) {
	info := GetInfo(context.Background(), NewStaticEmbedder())
	assert.Equal(t, EmbedderInfo{
		Provider:   ProviderStatic,
		Model:      StaticModelName,
		Dimensions: DefaultDimensions,
		Available:  true,
	}, info)
}
