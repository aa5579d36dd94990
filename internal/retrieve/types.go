// Package retrieve implements the three retrieval adapters of the
// lookup pipeline. Each adapter wraps one external capability (vector
// similarity search, web search, structured records) and returns a
// uniform CandidateDocument list with a source-local relevance score
// in [0,1].
package retrieve

import (
	"context"
	"time"
)

// Source identifies which retrieval adapter produced a candidate.
type Source string

const (
	SourceVector     Source = "vector"
	SourceWeb        Source = "web"
	SourceStructured Source = "structured"
)

// CandidateDocument is the unit flowing through the pipeline: a single
// scored result surfaced by one retrieval adapter before or after
// fusion. Owned exclusively by the request that created it; discarded
// after the response is returned.
type CandidateDocument struct {
	// Source is the adapter that produced this candidate.
	Source Source

	// Title is the display title.
	Title string

	// Content is the snippet or body text.
	Content string

	// URL is the source location. Structured records may have none.
	URL string

	// Category is the document category, when known.
	Category string

	// BaseScore is the source-local relevance in [0,1], comparable
	// only within one adapter.
	BaseScore float64

	// WeightedScore is BaseScore multiplied by the intent-dependent
	// source weight. Set by the fusion engine.
	WeightedScore float64

	// TotalScore is WeightedScore normalized against the batch maximum.
	// The value returned to callers; the best candidate of a non-empty
	// result set always scores 1.0.
	TotalScore float64

	// Meta carries per-source extra fields as a closed tagged variant.
	// The fusion engine only touches the common fields above.
	Meta Metadata
}

// Metadata is the closed set of per-source metadata variants.
// Exactly VectorMeta, WebMeta, and StructuredMeta implement it.
type Metadata interface {
	metaSource() Source
}

// VectorMeta carries vector-adapter extra fields.
type VectorMeta struct {
	// Query is the expanded query variant that surfaced this hit.
	Query string
	// Similarity is the raw nearest-neighbor similarity before bonuses.
	Similarity float64
	// MatchedKeywords are the query keywords found in the content.
	MatchedKeywords []string
	// OriginTag marks documents ingested from another source type
	// ("structured-origin", "web-origin", or empty).
	OriginTag string
}

func (VectorMeta) metaSource() Source { return SourceVector }

// WebMeta carries web-adapter extra fields.
type WebMeta struct {
	// SearchQuery is the optimized query string that produced this hit.
	SearchQuery string
	// Domain is the result host.
	Domain string
	// TrustScore is the domain-reputation heuristic tier.
	TrustScore float64
	// Relevance is the keyword-overlap relevance before trust blending.
	Relevance float64
	// MatchedKeywords are the query keywords found in title or snippet.
	MatchedKeywords []string
}

func (WebMeta) metaSource() Source { return SourceWeb }

// StructuredMeta carries structured-adapter extra fields.
type StructuredMeta struct {
	// RecordID is the stable record identifier.
	RecordID string
	// Collection is the record's collection name.
	Collection string
	// Status is the record status field, when present.
	Status string
	// RecencyBucket is the step-function decay value from last_modified.
	RecencyBucket float64
	// MatchedKeywords are the query keywords that matched the record.
	MatchedKeywords []string
	// Related holds relation-enriched records attached as metadata,
	// never as separate top-level candidates.
	Related []RelatedRecord
}

func (StructuredMeta) metaSource() Source { return SourceStructured }

// RelatedRecord is a relation-enriched neighbor of a top candidate.
type RelatedRecord struct {
	ID    string
	Title string
	Depth int
}

// VectorHit is one (document, similarity) pair from the vector
// similarity capability.
type VectorHit struct {
	Title      string
	Content    string
	Category   string
	URL        string
	OriginTag  string
	Similarity float64
}

// VectorSearcher is the nearest-neighbor similarity search capability.
// Implementations must be safe for concurrent use.
type VectorSearcher interface {
	Search(ctx context.Context, text string, k int) ([]VectorHit, error)
}

// WebHit is one raw result from the web search capability.
type WebHit struct {
	Title   string
	URL     string
	Snippet string
	Domain  string
}

// WebParams tunes one web search call.
type WebParams struct {
	// MaxResults caps raw results per call.
	MaxResults int
}

// WebSearcher is the web search capability. Rate-limited providers
// surface throttling as a retryable kberrors error; bad credentials as
// a configuration error.
type WebSearcher interface {
	Search(ctx context.Context, query string, params WebParams) ([]WebHit, error)
}

// Filter is one property predicate for a structured query.
type Filter struct {
	Property string
	Op       string // "contains" or "equals"
	Value    string
}

// Record is one structured record with its raw properties.
type Record struct {
	ID           string
	Collection   string
	Properties   map[string]string
	LastModified time.Time
}

// RecordStore is the structured record query capability.
type RecordStore interface {
	// Query returns records of a collection matching the filter.
	Query(ctx context.Context, collection string, filter Filter) ([]Record, error)

	// GetRelated returns records linked from id through the named
	// relation, one hop at a time.
	GetRelated(ctx context.Context, id, relation string) ([]Record, error)
}

// clamp01 bounds a score to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
