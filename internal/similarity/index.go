package similarity

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/smartinprabhu/newgpt/internal/capability"
	"github.com/smartinprabhu/newgpt/internal/logger"
	"github.com/smartinprabhu/newgpt/internal/storage"
	"github.com/smartinprabhu/newgpt/pkg/types"
)

// Index appends conversation records with embeddings and serves top-K
// nearest-neighbor queries scoped to a session. The scan is linear over the
// session's capped history; it is not a global vector index.
type Index struct {
	store    storage.Store
	provider capability.Provider
	scanCap  int
	embedDim int
	now      func() time.Time
}

func NewIndex(store storage.Store, provider capability.Provider, scanCap, embedDim int) *Index {
	if scanCap <= 0 {
		scanCap = 100
	}
	if embedDim <= 0 {
		embedDim = 1536
	}
	return &Index{
		store:    store,
		provider: provider,
		scanCap:  scanCap,
		embedDim: embedDim,
		now:      time.Now,
	}
}

// Append stores one immutable conversation record. Embedding failure falls
// back to a zero vector so the exchange is still recorded; the record simply
// never ranks in similarity queries.
func (ix *Index) Append(ctx context.Context, sessionID, query, response string, metadata map[string]string) bool {
	embedding := ix.embed(ctx, query)

	record := &types.ConversationRecord{
		SessionID:    sessionID,
		Timestamp:    ix.now().UTC().Unix(),
		QueryText:    query,
		ResponseText: response,
		Embedding:    embedding,
		Metadata:     metadata,
	}
	key, err := ix.store.AppendConversation(ctx, record)
	if err != nil {
		logger.Logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to store conversation")
		return false
	}
	logger.Logger.Debug().Str("key", key).Msg("stored conversation")
	return true
}

// TopK returns the k most similar prior conversations in the session, sorted
// descending by cosine similarity. Any failure degrades to an empty result:
// context enrichment is an optimization, not a correctness requirement.
func (ix *Index) TopK(ctx context.Context, sessionID, query string, k int) []types.SimilarConversation {
	if k <= 0 {
		return nil
	}

	queryEmbedding, err := ix.provider.Embed(ctx, query)
	if err != nil {
		logger.Logger.Warn().Err(err).Str("session_id", sessionID).Msg("embedding failed, skipping similarity search")
		return nil
	}

	records, err := ix.store.ListConversations(ctx, sessionID)
	if err != nil {
		logger.Logger.Warn().Err(err).Str("session_id", sessionID).Msg("conversation scan failed")
		return nil
	}
	if len(records) > ix.scanCap {
		records = records[:ix.scanCap]
	}

	results := make([]types.SimilarConversation, 0, len(records))
	for _, record := range records {
		results = append(results, types.SimilarConversation{
			Query:      record.QueryText,
			Response:   record.ResponseText,
			Similarity: CosineSimilarity(queryEmbedding, record.Embedding),
			Timestamp:  record.Timestamp,
			Metadata:   record.Metadata,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

func (ix *Index) embed(ctx context.Context, text string) []float64 {
	embedding, err := ix.provider.Embed(ctx, text)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("embedding failed, storing zero vector")
		return make([]float64, ix.embedDim)
	}
	return embedding
}

// CosineSimilarity computes dot(a,b)/(|a||b|) clamped to [0,1]. Either vector
// being all-zero yields 0, not an error.
func CosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, magA, magB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0.0
	}

	similarity := dot / (math.Sqrt(magA) * math.Sqrt(magB))
	return math.Max(0.0, math.Min(1.0, similarity))
}
