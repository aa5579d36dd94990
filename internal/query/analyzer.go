// Package query analyzes free-text lookup queries: intent classification,
// keyword extraction against a curated domain dictionary, and bounded
// synonym-based query expansion.
//
// Analysis is pure and total over any input string; the empty query
// yields the default intent and no keywords.
package query

import (
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxVariants caps expanded queries per request, original included.
const DefaultMaxVariants = 4

// DefaultCacheSize is the LRU cache size for analysis results.
const DefaultCacheSize = 1024

// Context is the immutable per-request analysis result. It is created
// once at request start and never mutated afterward.
type Context struct {
	// OriginalQuery is the raw query as the caller supplied it.
	OriginalQuery string

	// ExpandedQueries holds the query variants issued downstream.
	// Variant 0 is always the original query. Deterministic for a
	// given input.
	ExpandedQueries []string

	// Keywords are the dictionary terms found in the query, ordered by
	// their position in the query text.
	Keywords []string

	// Intents are the detected intent tags in precedence order.
	// Never empty: an unclassified query carries IntentDefault.
	Intents []Intent

	// CategoryHint optionally narrows retrieval to one category.
	CategoryHint string
}

// Has reports whether the context carries the given intent tag.
func (c Context) Has(intent Intent) bool {
	for _, tag := range c.Intents {
		if tag == intent {
			return true
		}
	}
	return false
}

// PrimaryIntent returns the highest-priority intent tag present.
func (c Context) PrimaryIntent() Intent {
	if len(c.Intents) == 0 {
		return IntentDefault
	}
	return c.Intents[0]
}

// KeywordSet returns the keywords as a lookup set.
func (c Context) KeywordSet() map[string]bool {
	set := make(map[string]bool, len(c.Keywords))
	for _, k := range c.Keywords {
		set[k] = true
	}
	return set
}

// Options carries caller-supplied signals that text analysis cannot
// derive on its own.
type Options struct {
	// Urgent marks the request as urgent. The urgent intent is driven
	// by this flag only, never by query text.
	Urgent bool

	// CategoryHint optionally narrows retrieval to one category.
	CategoryHint string
}

// Analyzer classifies intent, extracts keywords, and expands queries.
// Safe for concurrent use; analysis results are cached in an LRU.
type Analyzer struct {
	synonyms    map[string][]string
	maxVariants int
	cache       *lru.Cache[string, Context]
}

// AnalyzerOption configures the analyzer.
type AnalyzerOption func(*Analyzer)

// WithMaxVariants caps expanded queries per request (minimum 1).
func WithMaxVariants(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n >= 1 {
			a.maxVariants = n
		}
	}
}

// WithCacheSize sets the analysis LRU cache size.
func WithCacheSize(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			cache, _ := lru.New[string, Context](n)
			a.cache = cache
		}
	}
}

// WithSynonyms adds custom synonym mappings on top of the built-in
// dictionary.
func WithSynonyms(extra map[string][]string) AnalyzerOption {
	return func(a *Analyzer) {
		for k, v := range extra {
			a.synonyms[strings.ToLower(k)] = append(a.synonyms[strings.ToLower(k)], v...)
		}
	}
}

// NewAnalyzer creates an analyzer with the built-in domain dictionary.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		synonyms:    make(map[string][]string, len(Synonyms)),
		maxVariants: DefaultMaxVariants,
	}
	for k, v := range Synonyms {
		a.synonyms[k] = v
	}
	cache, _ := lru.New[string, Context](DefaultCacheSize)
	a.cache = cache

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze produces the query context for one request.
func (a *Analyzer) Analyze(rawQuery string, opts Options) Context {
	query := strings.TrimSpace(rawQuery)

	cacheKey := fmt.Sprintf("%s|urgent=%t|cat=%s", strings.ToLower(query), opts.Urgent, opts.CategoryHint)
	if ctx, ok := a.cache.Get(cacheKey); ok {
		return ctx
	}

	keywords := a.extractKeywords(query)

	ctx := Context{
		OriginalQuery:   query,
		ExpandedQueries: a.expand(query, keywords),
		Keywords:        keywords,
		Intents:         classifyIntents(query, opts.Urgent),
		CategoryHint:    opts.CategoryHint,
	}

	a.cache.Add(cacheKey, ctx)
	return ctx
}

// classifyIntents matches the query against the intent keyword tables.
// Multiple tags may apply; none matching yields IntentDefault.
func classifyIntents(query string, urgent bool) []Intent {
	lower := strings.ToLower(query)

	var tags []Intent
	if urgent {
		tags = append(tags, IntentUrgent)
	}

	for _, intent := range IntentPrecedence {
		terms, ok := intentKeywords[intent]
		if !ok {
			continue
		}
		for _, term := range terms {
			if strings.Contains(lower, term) {
				tags = append(tags, intent)
				break
			}
		}
	}

	if len(tags) == 0 {
		tags = append(tags, IntentDefault)
	}
	return tags
}

// extractKeywords returns every dictionary key found in the query,
// ordered by position of first occurrence (ties broken alphabetically
// for determinism).
func (a *Analyzer) extractKeywords(query string) []string {
	lower := strings.ToLower(query)

	type hit struct {
		keyword string
		pos     int
	}
	var hits []hit
	for keyword := range a.synonyms {
		if pos := strings.Index(lower, keyword); pos >= 0 {
			hits = append(hits, hit{keyword: keyword, pos: pos})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].pos != hits[j].pos {
			return hits[i].pos < hits[j].pos
		}
		return hits[i].keyword < hits[j].keyword
	})

	keywords := make([]string, len(hits))
	for i, h := range hits {
		keywords[i] = h.keyword
	}
	return keywords
}

// expand generates query variants by substituting each found keyword
// with its synonyms, preserving the rest of the query verbatim.
// Variant 0 is the original query; total variants are capped at
// maxVariants to bound downstream fan-out.
func (a *Analyzer) expand(query string, keywords []string) []string {
	variants := []string{query}
	if query == "" {
		return variants
	}

	seen := map[string]bool{strings.ToLower(query): true}

	for _, keyword := range keywords {
		for _, synonym := range a.synonyms[keyword] {
			if len(variants) >= a.maxVariants {
				return variants
			}
			variant := replaceFold(query, keyword, synonym)
			lowerVariant := strings.ToLower(variant)
			if !seen[lowerVariant] {
				variants = append(variants, variant)
				seen[lowerVariant] = true
			}
		}
	}

	return variants
}

// replaceFold replaces the first case-insensitive occurrence of old
// in s with repl. Returns s unchanged when old is absent.
func replaceFold(s, old, repl string) string {
	pos := strings.Index(strings.ToLower(s), strings.ToLower(old))
	if pos < 0 {
		return s
	}
	return s[:pos] + repl + s[pos+len(old):]
}

// Simplify maps known jargon terms to plain-language equivalents.
// Used only for display, never for retrieval. Longer jargon terms are
// replaced first so overlapping keys resolve deterministically.
func Simplify(text string) string {
	keys := make([]string, 0, len(jargonToPlain))
	for k := range jargonToPlain {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	for _, jargon := range keys {
		for {
			pos := strings.Index(strings.ToLower(text), jargon)
			if pos < 0 {
				break
			}
			text = text[:pos] + jargonToPlain[jargon] + text[pos+len(jargon):]
		}
	}
	return text
}
