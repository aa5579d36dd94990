// Package fusion merges the three adapters' candidate lists into one
// coherent ranking: intent-dependent source weighting, two-stage
// deduplication, deterministic sorting, and max-normalization.
package fusion

import (
	"net/url"
	"sort"
	"strings"

	"github.com/fixmate/kbsearch/internal/kberrors"
	"github.com/fixmate/kbsearch/internal/query"
	"github.com/fixmate/kbsearch/internal/retrieve"
)

// DefaultDedupThreshold is the fuzzy content-similarity cutoff.
// An empirical constant with no derivation; tune per corpus.
const DefaultDedupThreshold = 0.85

// DefaultMaxResults is the final ranked-list cap.
const DefaultMaxResults = 10

// Weights is a source weight triple for one intent tag.
type Weights struct {
	Vector     float64
	Web        float64
	Structured float64
}

// forSource returns the weight applied to one source.
func (w Weights) forSource(s retrieve.Source) float64 {
	switch s {
	case retrieve.SourceVector:
		return w.Vector
	case retrieve.SourceWeb:
		return w.Web
	case retrieve.SourceStructured:
		return w.Structured
	default:
		return 0
	}
}

// defaultWeightsTable maps intent tags to weight triples. The triple is
// selected by the highest-priority intent present on the query.
var defaultWeightsTable = map[query.Intent]Weights{
	query.IntentUrgent:    {Structured: 1.0, Vector: 0.6, Web: 0.4},
	query.IntentPrice:     {Web: 1.0, Structured: 0.7, Vector: 0.5},
	query.IntentLatest:    {Web: 1.0, Structured: 0.8, Vector: 0.5},
	query.IntentRepair:    {Vector: 1.0, Structured: 0.9, Web: 0.5},
	query.IntentDiagnosis: {Vector: 1.0, Structured: 0.9, Web: 0.5},
	query.IntentShop:      {Structured: 1.0, Web: 0.8, Vector: 0.4},
	query.IntentReview:    {Web: 1.0, Structured: 0.7, Vector: 0.5},
	query.IntentDefault:   {Structured: 1.0, Vector: 0.8, Web: 0.6},
}

// Engine fuses adapter outputs. It has no external dependency and
// fails only on invalid input.
type Engine struct {
	weights        map[query.Intent]Weights
	dedupThreshold float64
}

// Option configures the fusion engine.
type Option func(*Engine)

// WithWeights overrides weight triples for specific intents. Intents
// absent from the override keep the built-in table.
func WithWeights(overrides map[query.Intent]Weights) Option {
	return func(e *Engine) {
		for intent, w := range overrides {
			e.weights[intent] = w
		}
	}
}

// WithDedupThreshold sets the fuzzy content-similarity cutoff.
func WithDedupThreshold(t float64) Option {
	return func(e *Engine) {
		if t > 0 && t <= 1 {
			e.dedupThreshold = t
		}
	}
}

// NewEngine creates a fusion engine with the built-in weight table.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		weights:        make(map[query.Intent]Weights, len(defaultWeightsTable)),
		dedupThreshold: DefaultDedupThreshold,
	}
	for intent, w := range defaultWeightsTable {
		e.weights[intent] = w
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fuse merges the three candidate lists into the final ranking:
//
//  1. select the weight triple for the query's primary intent
//  2. weighted_score = base_score * weight[source]
//  3. URL-exact dedup on normalized URLs
//  4. fuzzy content dedup (pairwise sequence similarity)
//  5. sort descending by weighted score (deterministic tie-breaks)
//  6. normalize total_score against the batch maximum
//  7. truncate to maxResults
//
// Adapter outputs are order-independent inputs: the ranking depends
// only on scores, never on which adapter returned first.
func (e *Engine) Fuse(qc query.Context, vectorDocs, webDocs, structuredDocs []retrieve.CandidateDocument, maxResults int) ([]retrieve.CandidateDocument, error) {
	if maxResults < 1 {
		return nil, kberrors.New(kberrors.ErrCodeInvalidLimit, "maxResults must be >= 1", nil)
	}

	weights := e.WeightsFor(qc)

	// Pool and weight. Candidates are copied so fusion never mutates
	// adapter-owned slices.
	pool := make([]retrieve.CandidateDocument, 0, len(vectorDocs)+len(webDocs)+len(structuredDocs))
	for _, docs := range [][]retrieve.CandidateDocument{vectorDocs, webDocs, structuredDocs} {
		for _, doc := range docs {
			doc.WeightedScore = doc.BaseScore * weights.forSource(doc.Source)
			pool = append(pool, doc)
		}
	}
	if len(pool) == 0 {
		return []retrieve.CandidateDocument{}, nil
	}

	pool = dedupByURL(pool)
	pool = e.dedupByContent(pool)

	sort.SliceStable(pool, func(i, j int) bool {
		return compare(pool[i], pool[j])
	})

	// Normalize: the batch maximum becomes exactly 1.0.
	maxScore := pool[0].WeightedScore
	for i := range pool {
		if maxScore > 0 {
			pool[i].TotalScore = pool[i].WeightedScore / maxScore
		} else {
			pool[i].TotalScore = 0
		}
	}

	if len(pool) > maxResults {
		pool = pool[:maxResults]
	}
	return pool, nil
}

// WeightsFor selects the weight triple for the query's highest-priority
// intent tag, falling back to the default triple.
func (e *Engine) WeightsFor(qc query.Context) Weights {
	for _, intent := range query.IntentPrecedence {
		if !qc.Has(intent) {
			continue
		}
		if w, ok := e.weights[intent]; ok {
			return w
		}
	}
	return e.weights[query.IntentDefault]
}

// compare implements the deterministic ranking order:
// weighted score desc, base score desc, title asc, source asc.
func compare(a, b retrieve.CandidateDocument) bool {
	if a.WeightedScore != b.WeightedScore {
		return a.WeightedScore > b.WeightedScore
	}
	if a.BaseScore != b.BaseScore {
		return a.BaseScore > b.BaseScore
	}
	if a.Title != b.Title {
		return a.Title < b.Title
	}
	return a.Source < b.Source
}

// dedupByURL collapses candidates sharing a normalized URL, keeping the
// highest weighted score per URL. Candidates without URLs pass through.
func dedupByURL(docs []retrieve.CandidateDocument) []retrieve.CandidateDocument {
	best := make(map[string]int, len(docs))
	var kept []retrieve.CandidateDocument

	for _, doc := range docs {
		key := NormalizeURL(doc.URL)
		if key == "" {
			kept = append(kept, doc)
			continue
		}
		if idx, ok := best[key]; ok {
			if doc.WeightedScore > kept[idx].WeightedScore {
				kept[idx] = doc
			}
			continue
		}
		kept = append(kept, doc)
		best[key] = len(kept) - 1
	}
	return kept
}

// NormalizeURL strips query string, fragment, and trailing slash, and
// lowercases scheme and host, so trivially different URLs of the same
// page collapse to one key. Returns "" for empty or unparseable URLs.
func NormalizeURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		// Unparseable URLs still dedup against exact copies.
		return strings.ToLower(strings.TrimSuffix(raw, "/"))
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

// dedupByContent collapses near-duplicate contents among the remaining
// candidates (including those without URLs) using a case-insensitive
// sequence-similarity ratio. Quadratic over the post-URL-dedup set,
// which the per-adapter caps keep small.
func (e *Engine) dedupByContent(docs []retrieve.CandidateDocument) []retrieve.CandidateDocument {
	removed := make([]bool, len(docs))

	for i := 0; i < len(docs); i++ {
		if removed[i] {
			continue
		}
		for j := i + 1; j < len(docs); j++ {
			if removed[j] {
				continue
			}
			if SimilarityRatio(docs[i].Content, docs[j].Content) < e.dedupThreshold {
				continue
			}
			// Duplicates: keep the higher weighted score.
			if docs[j].WeightedScore > docs[i].WeightedScore {
				removed[i] = true
				break
			}
			removed[j] = true
		}
	}

	kept := docs[:0]
	for i, doc := range docs {
		if !removed[i] {
			kept = append(kept, doc)
		}
	}
	return kept
}
