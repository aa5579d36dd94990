package retrieve

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixmate/kbsearch/internal/kberrors"
	"github.com/fixmate/kbsearch/internal/query"
)

// fakeWebSearcher returns canned hits, optionally failing the first N
// calls.
type fakeWebSearcher struct {
	hits      []WebHit
	err       error
	failFirst int
	calls     int
	queries   []string
}

func (f *fakeWebSearcher) Search(_ context.Context, q string, _ WebParams) ([]WebHit, error) {
	f.calls++
	f.queries = append(f.queries, q)
	if f.err != nil && f.calls <= f.failFirst {
		return nil, f.err
	}
	if f.err != nil && f.failFirst == 0 {
		return nil, f.err
	}
	return f.hits, nil
}

func fastRetry() kberrors.RetryConfig {
	return kberrors.RetryConfig{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func webQC(original string, intents ...query.Intent) query.Context {
	return query.Context{
		OriginalQuery:   original,
		ExpandedQueries: []string{original},
		Intents:         intents,
	}
}

// =============================================================================
// Query Optimization Tests
// =============================================================================

func TestWebOptimizeQueries(t *testing.T) {
	r := NewWebRetriever(nil, WebRetrieverConfig{Retry: fastRetry()})

	tests := []struct {
		name string
		qc   query.Context
		want []string
	}{
		{
			name: "one query per intent",
			qc:   webQC("brake noise", query.IntentRepair, query.IntentDiagnosis),
			want: []string{
				"brake noise how to fix method",
				"brake noise symptom cause diagnosis",
			},
		},
		{
			name: "capped at three",
			qc: webQC("brake noise",
				query.IntentPrice, query.IntentRepair, query.IntentDiagnosis, query.IntentReview),
			want: []string{
				"brake noise price cost estimate",
				"brake noise how to fix method",
				"brake noise symptom cause diagnosis",
			},
		},
		{
			name: "urgent uses the default qualifier",
			qc:   webQC("engine dead", query.IntentUrgent),
			want: []string{"engine dead car repair"},
		},
		{
			name: "no intents falls back to default qualifier",
			qc:   webQC("engine dead"),
			want: []string{"engine dead car repair"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.optimizeQueries(tt.qc))
		})
	}
}

// =============================================================================
// Trust and Filtering Tests
// =============================================================================

func TestWebTrustScore(t *testing.T) {
	r := NewWebRetriever(nil, WebRetrieverConfig{Retry: fastRetry()})

	tests := []struct {
		domain string
		want   float64
	}{
		{"nhtsa.gov", 1.0},
		{"www.repairpal.com", 1.0},
		{"transport.example.gov", 0.9},
		{"charity.org", 0.9},
		{"forum.example.com", 0.7},
		{"shop.example.net", 0.7},
		{"example.xyz", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			assert.InDelta(t, tt.want, r.trustScore(tt.domain), 1e-9)
		})
	}
}

func TestWebAcceptableFiltersSpamAndBlocked(t *testing.T) {
	r := NewWebRetriever(nil, WebRetrieverConfig{
		BlockedDomains: []string{"badsite.com"},
		SpamKeywords:   []string{"sponsored listicle"},
		Retry:          fastRetry(),
	})

	assert.False(t, r.acceptable(WebHit{Domain: "badsite.com", Title: "fine"}))
	assert.False(t, r.acceptable(WebHit{Domain: "sub.badsite.com", Title: "fine"}))
	assert.False(t, r.acceptable(WebHit{Domain: "ok.com", Title: "Casino bonus inside"}))
	assert.False(t, r.acceptable(WebHit{Domain: "ok.com", Snippet: "a sponsored listicle of parts"}))
	assert.True(t, r.acceptable(WebHit{Domain: "ok.com", Title: "Brake pad guide"}))
}

// =============================================================================
// Scoring Tests
// =============================================================================

func TestWebScoreHit(t *testing.T) {
	r := NewWebRetriever(nil, WebRetrieverConfig{Retry: fastRetry()})

	qc := query.Context{
		OriginalQuery: "brake noise",
		Keywords:      []string{"brake", "noise"},
	}

	// Both keywords in title, one in snippet, category terms
	// "car", "repair", "garage" cap the domain component.
	hit := WebHit{
		Title:   "Brake noise diagnosis",
		Snippet: "Common causes of brake squeal at the garage, car repair basics",
		URL:     "https://repairpal.com/brake-noise",
		Domain:  "repairpal.com",
	}

	docs := r.scoreHit(hit, "brake noise how to fix method", qc)

	meta, ok := docs.Meta.(WebMeta)
	require.True(t, ok)

	// relevance = 0.5*(2/2) + 0.3*(1/2) + 0.2*min(3/3,1) = 0.85
	assert.InDelta(t, 0.85, meta.Relevance, 1e-9)
	assert.InDelta(t, 1.0, meta.TrustScore, 1e-9)
	// total = 0.85*0.7 + 1.0*0.3
	assert.InDelta(t, 0.895, docs.BaseScore, 1e-9)
	assert.Equal(t, "brake noise how to fix method", meta.SearchQuery)
}

func TestWebScoreHitNoKeywords(t *testing.T) {
	r := NewWebRetriever(nil, WebRetrieverConfig{Retry: fastRetry()})

	hit := WebHit{
		Title:   "Random page",
		Snippet: "nothing automotive here",
		Domain:  "example.xyz",
	}
	doc := r.scoreHit(hit, "q", query.Context{OriginalQuery: "q"})

	// relevance = 0.2*min(1/3,1) from the lone "auto" in "automotive";
	// total = relevance*0.7 + 0.5*0.3
	assert.InDelta(t, (0.2/3.0)*0.7+0.15, doc.BaseScore, 1e-9)
}

// =============================================================================
// Retrieve Tests
// =============================================================================

func TestWebRetrieveFiltersAndSorts(t *testing.T) {
	searcher := &fakeWebSearcher{hits: []WebHit{
		{
			Title:   "Brake noise explained",
			Snippet: "brake noise causes and car repair advice from a mechanic",
			URL:     "https://repairpal.com/a",
			Domain:  "repairpal.com",
		},
		{
			Title:   "Unrelated gardening tips",
			Snippet: "flowers and soil",
			URL:     "https://garden.xyz/b",
			Domain:  "garden.xyz",
		},
	}}
	r := NewWebRetriever(searcher, WebRetrieverConfig{
		MinRelevance: 0.6,
		MaxResults:   10,
		Retry:        fastRetry(),
	})

	qc := webQC("brake noise", query.IntentDiagnosis)
	qc.Keywords = []string{"brake", "noise"}

	docs, err := r.Retrieve(context.Background(), qc)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Brake noise explained", docs[0].Title)
	assert.GreaterOrEqual(t, docs[0].BaseScore, 0.6)
}

func TestWebRetrieveDedupsAcrossQueries(t *testing.T) {
	searcher := &fakeWebSearcher{hits: []WebHit{{
		Title:   "Brake noise guide, car repair and maintenance",
		Snippet: "brake noise repair guide for any vehicle or engine",
		URL:     "https://repairpal.com/a",
		Domain:  "repairpal.com",
	}}}
	r := NewWebRetriever(searcher, WebRetrieverConfig{Retry: fastRetry()})

	qc := webQC("brake noise", query.IntentRepair, query.IntentDiagnosis)
	qc.Keywords = []string{"brake", "noise"}

	docs, err := r.Retrieve(context.Background(), qc)
	require.NoError(t, err)
	assert.Equal(t, 2, searcher.calls)
	assert.Len(t, docs, 1)
}

func TestWebRetrieveRetriesThrottling(t *testing.T) {
	searcher := &fakeWebSearcher{
		err:       kberrors.RateLimitError("throttled", nil),
		failFirst: 1,
		hits: []WebHit{{
			Title:   "Brake noise guide for car repair",
			Snippet: "brake noise and mechanic advice for your vehicle engine",
			URL:     "https://repairpal.com/a",
			Domain:  "repairpal.com",
		}},
	}
	r := NewWebRetriever(searcher, WebRetrieverConfig{Retry: fastRetry()})

	qc := webQC("brake noise", query.IntentRepair)
	qc.Keywords = []string{"brake", "noise"}

	docs, err := r.Retrieve(context.Background(), qc)
	require.NoError(t, err)
	assert.Equal(t, 2, searcher.calls)
	assert.Len(t, docs, 1)
}

func TestWebRetrieveFatalCredentialsAbort(t *testing.T) {
	searcher := &fakeWebSearcher{
		err: kberrors.New(kberrors.ErrCodeBadCredentials, "key rejected", nil),
	}
	r := NewWebRetriever(searcher, WebRetrieverConfig{Retry: fastRetry()})

	qc := webQC("brake noise", query.IntentRepair, query.IntentDiagnosis)

	_, err := r.Retrieve(context.Background(), qc)
	require.Error(t, err)
	assert.True(t, kberrors.IsFatal(err))
	// No retry and no second query variant after a config error.
	assert.Equal(t, 1, searcher.calls)
}

func TestWebRetrieveAllQueriesFailed(t *testing.T) {
	searcher := &fakeWebSearcher{err: kberrors.TransientError("unreachable", nil)}
	r := NewWebRetriever(searcher, WebRetrieverConfig{Retry: fastRetry()})

	_, err := r.Retrieve(context.Background(), webQC("brake noise", query.IntentRepair))
	require.Error(t, err)
	assert.True(t, kberrors.IsRetryable(err))
}
