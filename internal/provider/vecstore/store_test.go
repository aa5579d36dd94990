package vecstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder maps known texts to fixed vectors.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[text], nil
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vectors[text]
	}
	return out, nil
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, Config{Dimensions: 3})
	require.Error(t, err)

	_, err = New(&fakeEmbedder{}, Config{Dimensions: 0})
	require.Error(t, err)
}

func TestSearch_EmptyStoreReturnsNoHits(t *testing.T) {
	store, err := New(&fakeEmbedder{vectors: map[string][]float32{
		"anything": {1, 0, 0},
	}}, Config{Dimensions: 3})
	require.NoError(t, err)

	hits, err := store.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestAddSearch_RanksByCosineSimilarity(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"Brake noise\nSquealing when braking at low speed":  {1, 0, 0},
		"Battery drain\nBattery dies overnight when parked": {0, 1, 0},
		"brake squeal":                                      {0.9, 0.1, 0},
	}}
	store, err := New(emb, Config{Dimensions: 3})
	require.NoError(t, err)

	require.NoError(t, store.Add(context.Background(), []Document{
		{ID: "d1", Title: "Brake noise", Content: "Squealing when braking at low speed", Category: "brakes"},
		{ID: "d2", Title: "Battery drain", Content: "Battery dies overnight when parked", Category: "electrical", OriginTag: "structured-origin"},
	}))
	assert.Equal(t, 2, store.Count())

	hits, err := store.Search(context.Background(), "brake squeal", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "Brake noise", hits[0].Title)
	assert.Equal(t, "brakes", hits[0].Category)
	assert.Greater(t, hits[0].Similarity, hits[1].Similarity)
	assert.Equal(t, "structured-origin", hits[1].OriginTag)

	for _, hit := range hits {
		assert.GreaterOrEqual(t, hit.Similarity, 0.0)
		assert.LessOrEqual(t, hit.Similarity, 1.0)
	}
}

func TestAdd_DimensionMismatch(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"Short\nvector": {1, 0},
	}}
	store, err := New(emb, Config{Dimensions: 3})
	require.NoError(t, err)

	err = store.Add(context.Background(), []Document{{ID: "d1", Title: "Short", Content: "vector"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestAdd_EmbedderFailurePropagates(t *testing.T) {
	store, err := New(&fakeEmbedder{err: errors.New("endpoint down")}, Config{Dimensions: 3})
	require.NoError(t, err)

	err = store.Add(context.Background(), []Document{{ID: "d1", Title: "t", Content: "c"}})
	require.Error(t, err)

	_, err = store.Search(context.Background(), "q", 3)
	require.Error(t, err)
}

func TestAdd_EmptyBatchIsNoop(t *testing.T) {
	store, err := New(&fakeEmbedder{}, Config{Dimensions: 3})
	require.NoError(t, err)

	require.NoError(t, store.Add(context.Background(), nil))
	assert.Equal(t, 0, store.Count())
}

func TestDistanceToSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		distance float32
		want     float64
	}{
		{"identical vectors", 0, 1.0},
		{"orthogonal vectors", 1, 0.5},
		{"opposite vectors", 2, 0.0},
		{"clamped below zero", 2.5, 0.0},
		{"clamped above one", -0.5, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, distanceToSimilarity(tt.distance), 1e-9)
		})
	}
}
