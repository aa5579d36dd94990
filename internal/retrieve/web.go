package retrieve

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/fixmate/kbsearch/internal/kberrors"
	"github.com/fixmate/kbsearch/internal/query"
)

// Relevance formula weights for web results.
const (
	titleMatchWeight   = 0.5
	snippetMatchWeight = 0.3
	domainMatchWeight  = 0.2
	relevanceBlend     = 0.7
	trustBlend         = 0.3
)

// maxWebQueries caps optimized query variants per request.
const maxWebQueries = 3

// intentPhrases is the fixed phrase bank appended to the query per
// detected intent. The default entry is the domain qualifier applied
// when no other intent matched.
var intentPhrases = map[query.Intent]string{
	query.IntentPrice:     "price cost estimate",
	query.IntentLatest:    "2024 2025 latest",
	query.IntentParts:     "parts buy retailer",
	query.IntentShop:      "repair shop near",
	query.IntentReview:    "review rating comparison",
	query.IntentRepair:    "how to fix method",
	query.IntentDiagnosis: "symptom cause diagnosis",
	query.IntentDIY:       "DIY self method",
	query.IntentDefault:   "car repair",
}

// defaultTrustedDomains score full trust unless overridden by config.
var defaultTrustedDomains = []string{
	"nhtsa.gov",
	"carcomplaints.com",
	"repairpal.com",
	"aaa.com",
	"edmunds.com",
}

// defaultSpamKeywords discard a result when found in title+snippet.
var defaultSpamKeywords = []string{
	"casino", "lottery", "miracle cure", "click here", "limited offer",
	"free download", "crypto giveaway",
}

// domainCategoryTerms measure how automotive a result looks; used for
// the third relevance component.
var domainCategoryTerms = []string{
	"car", "auto", "vehicle", "repair", "garage", "mechanic",
	"maintenance", "engine", "dealer",
}

// WebRetrieverConfig tunes the web adapter.
type WebRetrieverConfig struct {
	// MinRelevance is the keep threshold for blended relevance*trust.
	MinRelevance float64
	// MaxResults caps the adapter's output after sorting.
	MaxResults int
	// TrustedDomains replace the built-in full-trust list when set.
	TrustedDomains []string
	// BlockedDomains are discarded outright.
	BlockedDomains []string
	// SpamKeywords extend the built-in spam list.
	SpamKeywords []string
	// Retry configures backoff for throttled calls.
	Retry kberrors.RetryConfig
}

// DefaultWebRetrieverConfig returns the tuned defaults.
func DefaultWebRetrieverConfig() WebRetrieverConfig {
	return WebRetrieverConfig{
		MinRelevance: 0.6,
		MaxResults:   10,
		Retry:        kberrors.DefaultRetryConfig(),
	}
}

// WebRetriever wraps the web search capability with intent-based query
// optimization, spam/trust filtering, and relevance scoring.
type WebRetriever struct {
	searcher WebSearcher
	config   WebRetrieverConfig
	trusted  []string
	spam     []string
	logger   *slog.Logger
}

// NewWebRetriever creates a web retriever.
func NewWebRetriever(searcher WebSearcher, cfg WebRetrieverConfig) *WebRetriever {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	if cfg.MinRelevance <= 0 {
		cfg.MinRelevance = 0.6
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry = kberrors.DefaultRetryConfig()
	}

	trusted := cfg.TrustedDomains
	if len(trusted) == 0 {
		trusted = defaultTrustedDomains
	}
	spam := append(append([]string{}, defaultSpamKeywords...), cfg.SpamKeywords...)

	return &WebRetriever{
		searcher: searcher,
		config:   cfg,
		trusted:  trusted,
		spam:     spam,
		logger:   slog.Default().With("component", "web-retriever"),
	}
}

// Source returns the adapter's source tag.
func (r *WebRetriever) Source() Source { return SourceWeb }

// Retrieve issues one optimized search per detected intent (at most 3),
// filters and scores the pooled hits, and keeps results above the
// relevance threshold. Throttling is retried with bounded backoff;
// authentication failures abort this adapter only.
func (r *WebRetriever) Retrieve(ctx context.Context, qc query.Context) ([]CandidateDocument, error) {
	queries := r.optimizeQueries(qc)

	var (
		docs    []CandidateDocument
		seen    = make(map[string]bool)
		lastErr error
	)

	for _, q := range queries {
		select {
		case <-ctx.Done():
			return docs, nil
		default:
		}

		hits, err := kberrors.RetryWithResult(ctx, r.config.Retry, func() ([]WebHit, error) {
			return r.searcher.Search(ctx, q, WebParams{MaxResults: r.config.MaxResults * 2})
		})
		if err != nil {
			if kberrors.IsFatal(err) {
				// Bad credentials: configuration error, no point in
				// trying the remaining query variants.
				r.logger.Error("web search configuration error",
					slog.String("error", err.Error()))
				return docs, err
			}
			lastErr = err
			r.logger.Warn("web search failed",
				slog.String("query", q),
				slog.String("error", err.Error()))
			continue
		}

		for _, hit := range hits {
			if seen[hit.URL] || !r.acceptable(hit) {
				continue
			}
			seen[hit.URL] = true
			docs = append(docs, r.scoreHit(hit, q, qc))
		}
	}

	if len(docs) == 0 && lastErr != nil {
		return nil, kberrors.TransientError("all web searches failed", lastErr)
	}

	// Threshold, sort, cap.
	kept := docs[:0]
	for _, d := range docs {
		if d.BaseScore >= r.config.MinRelevance {
			kept = append(kept, d)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].BaseScore > kept[j].BaseScore
	})
	if len(kept) > r.config.MaxResults {
		kept = kept[:r.config.MaxResults]
	}
	return kept, nil
}

// optimizeQueries builds one search string per detected intent by
// appending the intent's phrase bank entry, capped at three variants.
func (r *WebRetriever) optimizeQueries(qc query.Context) []string {
	var queries []string
	for _, intent := range qc.Intents {
		phrase, ok := intentPhrases[intent]
		if !ok {
			// urgent has no phrase entry; treat as default qualifier.
			phrase = intentPhrases[query.IntentDefault]
		}
		q := strings.TrimSpace(qc.OriginalQuery + " " + phrase)
		queries = append(queries, q)
		if len(queries) >= maxWebQueries {
			break
		}
	}
	if len(queries) == 0 {
		queries = append(queries, strings.TrimSpace(qc.OriginalQuery+" "+intentPhrases[query.IntentDefault]))
	}
	return queries
}

// acceptable rejects blocked domains and spam results.
func (r *WebRetriever) acceptable(hit WebHit) bool {
	domain := strings.ToLower(hit.Domain)
	for _, blocked := range r.config.BlockedDomains {
		if domain == blocked || strings.HasSuffix(domain, "."+blocked) {
			return false
		}
	}
	text := strings.ToLower(hit.Title + " " + hit.Snippet)
	for _, spam := range r.spam {
		if strings.Contains(text, spam) {
			return false
		}
	}
	return true
}

// trustScore assigns the domain-reputation tier: 1.0 for curated
// trusted domains, 0.9 for government/non-profit TLDs, 0.7 for generic
// commercial TLDs, 0.5 otherwise. Empirical tiers; configurable via
// the trusted-domain list.
func (r *WebRetriever) trustScore(domain string) float64 {
	domain = strings.ToLower(domain)
	for _, t := range r.trusted {
		if domain == t || strings.HasSuffix(domain, "."+t) {
			return 1.0
		}
	}
	switch {
	case strings.HasSuffix(domain, ".gov") || strings.HasSuffix(domain, ".org") ||
		strings.Contains(domain, ".go.") || strings.Contains(domain, ".or."):
		return 0.9
	case strings.HasSuffix(domain, ".com") || strings.HasSuffix(domain, ".net") ||
		strings.Contains(domain, ".co."):
		return 0.7
	default:
		return 0.5
	}
}

// scoreHit computes:
//
//	relevance = 0.5*(title matches / keywords)
//	          + 0.3*(snippet matches / keywords)
//	          + 0.2*min(domain category matches / 3, 1.0)
//	total     = relevance*0.7 + trust*0.3
func (r *WebRetriever) scoreHit(hit WebHit, searchQuery string, qc query.Context) CandidateDocument {
	lowerTitle := strings.ToLower(hit.Title)
	lowerSnippet := strings.ToLower(hit.Snippet)

	var relevance float64
	var matched []string
	if len(qc.Keywords) > 0 {
		var titleHits, snippetHits int
		for _, kw := range qc.Keywords {
			inTitle := strings.Contains(lowerTitle, kw)
			inSnippet := strings.Contains(lowerSnippet, kw)
			if inTitle {
				titleHits++
			}
			if inSnippet {
				snippetHits++
			}
			if inTitle || inSnippet {
				matched = append(matched, kw)
			}
		}
		kwCount := float64(len(qc.Keywords))
		relevance += titleMatchWeight * float64(titleHits) / kwCount
		relevance += snippetMatchWeight * float64(snippetHits) / kwCount
	}

	var categoryHits int
	haystack := lowerTitle + " " + lowerSnippet + " " + strings.ToLower(hit.Domain)
	for _, term := range domainCategoryTerms {
		if strings.Contains(haystack, term) {
			categoryHits++
		}
	}
	categoryRatio := float64(categoryHits) / 3.0
	if categoryRatio > 1.0 {
		categoryRatio = 1.0
	}
	relevance += domainMatchWeight * categoryRatio

	trust := r.trustScore(hit.Domain)
	total := relevance*relevanceBlend + trust*trustBlend

	return CandidateDocument{
		Source:    SourceWeb,
		Title:     hit.Title,
		Content:   hit.Snippet,
		URL:       hit.URL,
		Category:  "",
		BaseScore: clamp01(total),
		Meta: WebMeta{
			SearchQuery:     searchQuery,
			Domain:          hit.Domain,
			TrustScore:      trust,
			Relevance:       relevance,
			MatchedKeywords: matched,
		},
	}
}
