package retrieve

import (
	"context"
	"log/slog"
	"strings"

	"github.com/fixmate/kbsearch/internal/kberrors"
	"github.com/fixmate/kbsearch/internal/query"
)

// Bonus constants for vector hit scoring.
const (
	keywordBonusWeight    = 0.1
	structuredOriginBonus = 0.10
	webOriginBonus        = 0.05
	categoryHintBonus     = 0.15
)

// VectorRetriever wraps the nearest-neighbor similarity capability.
// It issues one similarity call per expanded query variant and pools
// the results; deduplication is the fusion engine's job.
type VectorRetriever struct {
	searcher VectorSearcher
	topK     int
	logger   *slog.Logger
}

// NewVectorRetriever creates a vector retriever. topK is how many
// neighbors each similarity call returns (default 10).
func NewVectorRetriever(searcher VectorSearcher, topK int) *VectorRetriever {
	if topK <= 0 {
		topK = 10
	}
	return &VectorRetriever{
		searcher: searcher,
		topK:     topK,
		logger:   slog.Default().With("component", "vector-retriever"),
	}
}

// Source returns the adapter's source tag.
func (r *VectorRetriever) Source() Source { return SourceVector }

// Retrieve runs one similarity call per expanded query and scores the
// pooled hits. Individual call failures are logged and skipped; the
// returned error is non-nil only when every call failed, so one flaky
// index query never discards partial results.
func (r *VectorRetriever) Retrieve(ctx context.Context, qc query.Context) ([]CandidateDocument, error) {
	var (
		docs     []CandidateDocument
		lastErr  error
		failures int
	)

	for _, variant := range qc.ExpandedQueries {
		select {
		case <-ctx.Done():
			// Timed out or cancelled: hand back whatever was pooled.
			return docs, nil
		default:
		}

		hits, err := r.searcher.Search(ctx, variant, r.topK)
		if err != nil {
			failures++
			lastErr = err
			r.logger.Warn("similarity search failed",
				slog.String("query", variant),
				slog.String("error", err.Error()))
			continue
		}

		for _, hit := range hits {
			docs = append(docs, r.scoreHit(hit, variant, qc))
		}
	}

	if failures == len(qc.ExpandedQueries) && failures > 0 {
		return nil, kberrors.TransientError("all similarity searches failed", lastErr)
	}
	return docs, nil
}

// scoreHit computes the source-local score:
//
//	score = similarity
//	      + 0.1 * (keyword matches in content / keyword count)
//	      + origin bonus (0.10 structured-origin, 0.05 web-origin)
//	      + 0.15 if the category hint matches the document category
//
// clamped to [0,1].
func (r *VectorRetriever) scoreHit(hit VectorHit, variant string, qc query.Context) CandidateDocument {
	score := hit.Similarity

	var matched []string
	if len(qc.Keywords) > 0 {
		lowerContent := strings.ToLower(hit.Content)
		for _, kw := range qc.Keywords {
			if strings.Contains(lowerContent, kw) {
				matched = append(matched, kw)
			}
		}
		score += keywordBonusWeight * float64(len(matched)) / float64(len(qc.Keywords))
	}

	switch hit.OriginTag {
	case "structured-origin":
		score += structuredOriginBonus
	case "web-origin":
		score += webOriginBonus
	}

	if qc.CategoryHint != "" && strings.EqualFold(qc.CategoryHint, hit.Category) {
		score += categoryHintBonus
	}

	return CandidateDocument{
		Source:    SourceVector,
		Title:     hit.Title,
		Content:   hit.Content,
		URL:       hit.URL,
		Category:  hit.Category,
		BaseScore: clamp01(score),
		Meta: VectorMeta{
			Query:           variant,
			Similarity:      hit.Similarity,
			MatchedKeywords: matched,
			OriginTag:       hit.OriginTag,
		},
	}
}
