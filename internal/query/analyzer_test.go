package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Intent Classification Tests
// =============================================================================

func TestClassifyIntents(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		urgent bool
		want   []Intent
	}{
		{
			name:  "price query",
			query: "how much does a brake pad replacement cost",
			want:  []Intent{IntentPrice, IntentRepair, IntentParts},
		},
		{
			name:  "repair query",
			query: "fix squealing noise when braking",
			want:  []Intent{IntentRepair, IntentDiagnosis},
		},
		{
			name:  "diagnosis query",
			query: "why does my engine make a ticking noise",
			want:  []Intent{IntentDiagnosis},
		},
		{
			name:  "shop query",
			query: "good mechanic near me",
			want:  []Intent{IntentShop},
		},
		{
			name:  "unclassified falls back to default",
			query: "toyota corolla 2019 oil viscosity",
			want:  []Intent{IntentDefault},
		},
		{
			name:   "urgent flag prepends urgent intent",
			query:  "car won't start",
			urgent: true,
			want:   []Intent{IntentUrgent, IntentRepair},
		},
		{
			name:   "urgent flag alone still gets urgent tag",
			query:  "strange smell inside cabin",
			urgent: true,
			want:   []Intent{IntentUrgent, IntentDiagnosis},
		},
		{
			name:  "empty query",
			query: "",
			want:  []Intent{IntentDefault},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyIntents(tt.query, tt.urgent)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyIntentsUrgentNeverFromText(t *testing.T) {
	// "urgent" in the query text must not trigger the urgent intent;
	// only the caller-supplied flag does.
	got := classifyIntents("urgent help needed", false)
	assert.NotContains(t, got, IntentUrgent)
}

// =============================================================================
// Keyword Extraction Tests
// =============================================================================

func TestExtractKeywords(t *testing.T) {
	a := NewAnalyzer()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "single keyword",
			query: "my battery died overnight",
			want:  []string{"battery"},
		},
		{
			name:  "keywords ordered by position",
			query: "oil leak near the engine",
			want:  []string{"oil", "leak", "engine"},
		},
		{
			name:  "case insensitive",
			query: "BRAKE noise on cold mornings",
			want:  []string{"brake", "noise"},
		},
		{
			name:  "no dictionary hits",
			query: "something is off",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.extractKeywords(tt.query)
			assert.Equal(t, tt.want, got)
		})
	}
}

// =============================================================================
// Query Expansion Tests
// =============================================================================

func TestExpandVariantZeroIsOriginal(t *testing.T) {
	a := NewAnalyzer()
	ctx := a.Analyze("battery not charging", Options{})

	require.NotEmpty(t, ctx.ExpandedQueries)
	assert.Equal(t, "battery not charging", ctx.ExpandedQueries[0])
}

func TestExpandCapsVariants(t *testing.T) {
	a := NewAnalyzer(WithMaxVariants(2))
	// Two keywords with several synonyms each would exceed the cap.
	ctx := a.Analyze("engine oil leak", Options{})

	assert.LessOrEqual(t, len(ctx.ExpandedQueries), 2)
	assert.Equal(t, "engine oil leak", ctx.ExpandedQueries[0])
}

func TestExpandSubstitutesSynonyms(t *testing.T) {
	a := NewAnalyzer(WithMaxVariants(10))
	ctx := a.Analyze("battery dead", Options{})

	// At least one variant replaces "battery" with a synonym.
	found := false
	for _, v := range ctx.ExpandedQueries[1:] {
		if v == "cell dead" || v == "accumulator dead" || v == "12v battery dead" {
			found = true
		}
	}
	assert.True(t, found, "expected a synonym-substituted variant, got %v", ctx.ExpandedQueries)
}

func TestExpandDeterministic(t *testing.T) {
	a := NewAnalyzer()
	first := a.Analyze("brake noise", Options{})
	second := a.Analyze("brake noise", Options{})

	assert.Equal(t, first.ExpandedQueries, second.ExpandedQueries)
}

func TestExpandEmptyQuery(t *testing.T) {
	a := NewAnalyzer()
	ctx := a.Analyze("", Options{})

	assert.Equal(t, []string{""}, ctx.ExpandedQueries)
	assert.Empty(t, ctx.Keywords)
	assert.Equal(t, []Intent{IntentDefault}, ctx.Intents)
}

// =============================================================================
// Analyze Tests
// =============================================================================

func TestAnalyzeCarriesOptions(t *testing.T) {
	a := NewAnalyzer()
	ctx := a.Analyze("engine overheat", Options{Urgent: true, CategoryHint: "engine"})

	assert.True(t, ctx.Has(IntentUrgent))
	assert.Equal(t, "engine", ctx.CategoryHint)
	assert.Equal(t, IntentUrgent, ctx.PrimaryIntent())
}

func TestAnalyzeCacheDistinguishesOptions(t *testing.T) {
	a := NewAnalyzer()

	plain := a.Analyze("engine stall", Options{})
	urgent := a.Analyze("engine stall", Options{Urgent: true})

	assert.False(t, plain.Has(IntentUrgent))
	assert.True(t, urgent.Has(IntentUrgent))
}

func TestContextHelpers(t *testing.T) {
	ctx := Context{
		Keywords: []string{"brake", "noise"},
		Intents:  []Intent{IntentRepair, IntentDiagnosis},
	}

	assert.True(t, ctx.Has(IntentRepair))
	assert.False(t, ctx.Has(IntentPrice))
	assert.Equal(t, IntentRepair, ctx.PrimaryIntent())
	assert.Equal(t, map[string]bool{"brake": true, "noise": true}, ctx.KeywordSet())

	empty := Context{}
	assert.Equal(t, IntentDefault, empty.PrimaryIntent())
}

// =============================================================================
// Simplify Tests
// =============================================================================

func TestSimplify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "single jargon term",
			in:   "check the ecu for fault codes",
			want: "check the engine computer for fault codes",
		},
		{
			name: "longest key replaced first",
			in:   "the sender unit reads low",
			want: "the measurement sensor reads low",
		},
		{
			name: "no jargon passes through",
			in:   "replace the air filter",
			want: "replace the air filter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Simplify(tt.in))
		})
	}
}
