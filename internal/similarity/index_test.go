package similarity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smartinprabhu/newgpt/internal/storage"
	"github.com/smartinprabhu/newgpt/pkg/types"
)

// stubProvider returns canned embeddings keyed by input text.
type stubProvider struct {
	embeddings map[string][]float64
	err        error
}

func (s *stubProvider) Invoke(context.Context, types.StepName, string) (string, error) {
	return "", errors.New("not implemented")
}

func (s *stubProvider) Embed(_ context.Context, text string) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	if vec, ok := s.embeddings[text]; ok {
		return vec, nil
	}
	return []float64{0, 0, 1}, nil
}

func TestCosineSimilaritySelf(t *testing.T) {
	vec := []float64{0.3, 0.4, 0.5}
	require.InDelta(t, 1.0, CosineSimilarity(vec, vec), 1e-9)
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	require.Equal(t, 0.0, CosineSimilarity([]float64{0, 0, 0}, []float64{1, 2, 3}))
	require.Equal(t, 0.0, CosineSimilarity([]float64{1, 2, 3}, []float64{0, 0, 0}))
}

func TestCosineSimilarityClamped(t *testing.T) {
	// Opposite vectors would be -1 unclamped.
	require.Equal(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{-1, 0}))
}

func TestTopKReturnsSortedSubset(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	provider := &stubProvider{embeddings: map[string][]float64{
		"current query": {1, 0, 0},
	}}
	index := NewIndex(store, provider, 100, 3)

	// Five stored conversations with decreasing alignment to the query.
	stored := []struct {
		query string
		vec   []float64
	}{
		{"exact match", []float64{1, 0, 0}},
		{"close match", []float64{0.9, 0.1, 0}},
		{"medium match", []float64{0.5, 0.5, 0}},
		{"weak match", []float64{0.1, 0.9, 0}},
		{"orthogonal", []float64{0, 0, 1}},
	}
	for i, s := range stored {
		_, err := store.AppendConversation(ctx, &types.ConversationRecord{
			SessionID: "sess_k",
			Timestamp: int64(i),
			QueryText: s.query,
			Embedding: s.vec,
		})
		require.NoError(t, err)
	}

	results := index.TopK(ctx, "sess_k", "current query", 3)
	require.Len(t, results, 3)
	require.Equal(t, "exact match", results[0].Query)
	require.Equal(t, "close match", results[1].Query)
	require.Equal(t, "medium match", results[2].Query)
	require.True(t, results[0].Similarity >= results[1].Similarity)
	require.True(t, results[1].Similarity >= results[2].Similarity)
	require.InDelta(t, 1.0, results[0].Similarity, 1e-9)
}

func TestTopKEmbedFailureReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	provider := &stubProvider{err: errors.New("embedding service down")}
	index := NewIndex(store, provider, 100, 3)

	_, err := store.AppendConversation(ctx, &types.ConversationRecord{
		SessionID: "sess_f", Timestamp: 1, Embedding: []float64{1, 0, 0},
	})
	require.NoError(t, err)

	results := index.TopK(ctx, "sess_f", "anything", 3)
	require.Empty(t, results)
}

func TestTopKScopedToSession(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	provider := &stubProvider{embeddings: map[string][]float64{"q": {1, 0, 0}}}
	index := NewIndex(store, provider, 100, 3)

	_, err := store.AppendConversation(ctx, &types.ConversationRecord{
		SessionID: "sess_other", Timestamp: 1, QueryText: "other", Embedding: []float64{1, 0, 0},
	})
	require.NoError(t, err)

	results := index.TopK(ctx, "sess_mine", "q", 3)
	require.Empty(t, results)
}

func TestAppendFallsBackToZeroVector(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	provider := &stubProvider{err: errors.New("embedding service down")}
	index := NewIndex(store, provider, 100, 4)

	require.True(t, index.Append(ctx, "sess_z", "query", "response", nil))

	records, err := store.ListConversations(ctx, "sess_z")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, []float64{0, 0, 0, 0}, records[0].Embedding)
}

func TestTopKCapsScannedRecords(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	provider := &stubProvider{embeddings: map[string][]float64{"q": {1, 0, 0}}}
	index := NewIndex(store, provider, 2, 3)

	for i := 0; i < 5; i++ {
		_, err := store.AppendConversation(ctx, &types.ConversationRecord{
			SessionID: "sess_cap", Timestamp: int64(i), Embedding: []float64{1, 0, 0},
		})
		require.NoError(t, err)
	}

	// Only the two most recent records are considered.
	results := index.TopK(ctx, "sess_cap", "q", 10)
	require.Len(t, results, 2)
	require.Equal(t, int64(4), results[0].Timestamp)
}
