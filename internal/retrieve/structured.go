package retrieve

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/fixmate/kbsearch/internal/kberrors"
	"github.com/fixmate/kbsearch/internal/query"
)

// Scoring constants for structured records.
const (
	fullTitleBonus      = 0.5
	titleKeywordWeight  = 0.3
	contentFieldWeight  = 0.15
	categoryMatchBonus  = 0.2
	resolvedStatusBonus = 0.1
	recencyWeight       = 0.1
)

// relationEnrichTop is how many top-scored records get relation
// enrichment.
const relationEnrichTop = 3

// contentProperties are the record fields treated as content; only the
// best-matching one contributes to the score, not all cumulatively.
var contentProperties = []string{"content", "description", "notes"}

// StructuredRetrieverConfig tunes the structured adapter.
type StructuredRetrieverConfig struct {
	// Collections lists the record collections to search.
	Collections []string
	// SearchableProperties are the properties keyword queries run against.
	SearchableProperties []string
	// RelationName is the relation link followed during enrichment.
	RelationName string
	// RelationDepth bounds relation traversal. Zero disables enrichment.
	RelationDepth int
}

// DefaultStructuredRetrieverConfig returns the tuned defaults.
func DefaultStructuredRetrieverConfig() StructuredRetrieverConfig {
	return StructuredRetrieverConfig{
		Collections:          []string{"repairs", "shops", "parts"},
		SearchableProperties: []string{"title", "content", "category"},
		RelationName:         "related",
		RelationDepth:        1,
	}
}

// StructuredRetriever wraps the structured record capability with
// multi-keyword search, record-level dedup, heuristic scoring, and
// depth-bounded relation enrichment.
type StructuredRetriever struct {
	store  RecordStore
	config StructuredRetrieverConfig
	logger *slog.Logger
}

// NewStructuredRetriever creates a structured retriever.
func NewStructuredRetriever(store RecordStore, cfg StructuredRetrieverConfig) *StructuredRetriever {
	if len(cfg.Collections) == 0 {
		cfg.Collections = DefaultStructuredRetrieverConfig().Collections
	}
	if len(cfg.SearchableProperties) == 0 {
		cfg.SearchableProperties = DefaultStructuredRetrieverConfig().SearchableProperties
	}
	if cfg.RelationName == "" {
		cfg.RelationName = "related"
	}
	return &StructuredRetriever{
		store:  store,
		config: cfg,
		logger: slog.Default().With("component", "structured-retriever"),
	}
}

// Source returns the adapter's source tag.
func (r *StructuredRetriever) Source() Source { return SourceStructured }

// Retrieve issues one filtered query per (keyword, searchable property)
// pair across all configured collections, dedups matched records by ID,
// scores them, and enriches the top three with related records.
// Individual query failures are logged and skipped; an error is
// returned only when nothing was retrievable at all.
func (r *StructuredRetriever) Retrieve(ctx context.Context, qc query.Context) ([]CandidateDocument, error) {
	terms := qc.Keywords
	if len(terms) == 0 && qc.OriginalQuery != "" {
		// No dictionary hits: fall back to the raw query text so the
		// structured source still participates.
		terms = []string{strings.ToLower(qc.OriginalQuery)}
	}

	var (
		records  = make(map[string]Record)
		order    []string
		failures int
		attempts int
		lastErr  error
	)

	for _, collection := range r.config.Collections {
		for _, property := range r.config.SearchableProperties {
			for _, keyword := range terms {
				select {
				case <-ctx.Done():
					return r.scoreAll(ctx, records, order, qc), nil
				default:
				}

				attempts++
				matches, err := r.store.Query(ctx, collection, Filter{
					Property: property,
					Op:       "contains",
					Value:    keyword,
				})
				if err != nil {
					failures++
					lastErr = err
					r.logger.Warn("record query failed",
						slog.String("collection", collection),
						slog.String("property", property),
						slog.String("keyword", keyword),
						slog.String("error", err.Error()))
					continue
				}

				// Same record may match several keyword/property
				// pairs; dedup by stable ID before scoring.
				for _, rec := range matches {
					if _, ok := records[rec.ID]; !ok {
						records[rec.ID] = rec
						order = append(order, rec.ID)
					}
				}
			}
		}
	}

	if attempts > 0 && failures == attempts {
		return nil, kberrors.TransientError("all record queries failed", lastErr)
	}
	return r.scoreAll(ctx, records, order, qc), nil
}

// scoreAll scores the deduped records, sorts them, and enriches the
// top candidates with relation links.
func (r *StructuredRetriever) scoreAll(ctx context.Context, records map[string]Record, order []string, qc query.Context) []CandidateDocument {
	docs := make([]CandidateDocument, 0, len(order))
	for _, id := range order {
		docs = append(docs, r.scoreRecord(records[id], qc))
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].BaseScore > docs[j].BaseScore
	})

	r.enrichRelations(ctx, docs)
	return docs
}

// scoreRecord computes the source-local record score:
//
//	0.5          full original query substring found in title
//	0.3 * ratio  title keyword matches (only without a full-title hit)
//	0.15 * ratio best single content field's keyword matches
//	0.2          category field matches a keyword
//	0.1          status indicates completed/resolved
//	0.1 * bucket recency of last_modified
func (r *StructuredRetriever) scoreRecord(rec Record, qc query.Context) CandidateDocument {
	title := rec.Properties["title"]
	lowerTitle := strings.ToLower(title)
	lowerQuery := strings.ToLower(qc.OriginalQuery)

	var score float64
	var matched []string

	kwCount := float64(len(qc.Keywords))

	fullTitleHit := lowerQuery != "" && strings.Contains(lowerTitle, lowerQuery)
	if fullTitleHit {
		score += fullTitleBonus
	} else if kwCount > 0 {
		var titleHits int
		for _, kw := range qc.Keywords {
			if strings.Contains(lowerTitle, kw) {
				titleHits++
				matched = append(matched, kw)
			}
		}
		score += titleKeywordWeight * float64(titleHits) / kwCount
	}

	if kwCount > 0 {
		// Best matching content field only, not cumulative across fields.
		var bestHits int
		for _, prop := range contentProperties {
			field := strings.ToLower(rec.Properties[prop])
			if field == "" {
				continue
			}
			var hits int
			for _, kw := range qc.Keywords {
				if strings.Contains(field, kw) {
					hits++
				}
			}
			if hits > bestHits {
				bestHits = hits
			}
		}
		score += contentFieldWeight * float64(bestHits) / kwCount
	}

	category := strings.ToLower(rec.Properties["category"])
	for _, kw := range qc.Keywords {
		if category != "" && strings.Contains(category, kw) {
			score += categoryMatchBonus
			break
		}
	}

	status := strings.ToLower(rec.Properties["status"])
	if status == "completed" || status == "resolved" {
		score += resolvedStatusBonus
	}

	bucket := recencyBucket(rec.LastModified, time.Now())
	score += recencyWeight * bucket

	return CandidateDocument{
		Source:    SourceStructured,
		Title:     title,
		Content:   rec.Properties["content"],
		URL:       rec.Properties["url"],
		Category:  rec.Properties["category"],
		BaseScore: clamp01(score),
		Meta: StructuredMeta{
			RecordID:        rec.ID,
			Collection:      rec.Collection,
			Status:          status,
			RecencyBucket:   bucket,
			MatchedKeywords: matched,
		},
	}
}

// recencyBucket is the step-function decay over record age in days.
// A missing timestamp lands in the middle of the scale.
func recencyBucket(lastModified, now time.Time) float64 {
	if lastModified.IsZero() {
		return 0.5
	}
	age := now.Sub(lastModified).Hours() / 24
	switch {
	case age <= 7:
		return 1.0
	case age <= 30:
		return 0.8
	case age <= 90:
		return 0.6
	case age <= 180:
		return 0.4
	case age <= 365:
		return 0.2
	default:
		return 0.1
	}
}

// enrichRelations follows the configured relation link for the top
// scored records, attaching linked records as metadata only. Traversal
// is an explicit breadth-first walk with a visited set, so cyclic
// relation data still terminates.
func (r *StructuredRetriever) enrichRelations(ctx context.Context, docs []CandidateDocument) {
	if r.config.RelationDepth <= 0 {
		return
	}

	top := relationEnrichTop
	if top > len(docs) {
		top = len(docs)
	}

	for i := 0; i < top; i++ {
		meta, ok := docs[i].Meta.(StructuredMeta)
		if !ok {
			continue
		}

		visited := map[string]bool{meta.RecordID: true}
		frontier := []string{meta.RecordID}
		var related []RelatedRecord

		for depth := 1; depth <= r.config.RelationDepth && len(frontier) > 0; depth++ {
			var next []string
			for _, id := range frontier {
				select {
				case <-ctx.Done():
					return
				default:
				}

				links, err := r.store.GetRelated(ctx, id, r.config.RelationName)
				if err != nil {
					r.logger.Debug("relation lookup failed",
						slog.String("record", id),
						slog.String("error", err.Error()))
					continue
				}
				for _, link := range links {
					if visited[link.ID] {
						continue
					}
					visited[link.ID] = true
					next = append(next, link.ID)
					related = append(related, RelatedRecord{
						ID:    link.ID,
						Title: link.Properties["title"],
						Depth: depth,
					})
				}
			}
			frontier = next
		}

		meta.Related = related
		docs[i].Meta = meta
	}
}
