package records

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixmate/kbsearch/internal/kberrors"
	"github.com/fixmate/kbsearch/internal/retrieve"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedRecords(t *testing.T, store *Store, recs ...retrieve.Record) {
	t.Helper()
	require.NoError(t, store.Upsert(context.Background(), recs))
}

// ============================================================================
// Open / Close
// ============================================================================

func TestOpen_CreatesFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "records.db")

	store, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	seedRecords(t, store, retrieve.Record{
		ID:         "r1",
		Collection: "repairs",
		Properties: map[string]string{"title": "Brake pad replacement"},
	})

	got, err := store.List(context.Background(), "repairs")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestClose_RejectsFurtherUse(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Close())
	// Idempotent.
	require.NoError(t, store.Close())

	_, err := store.Query(context.Background(), "repairs", retrieve.Filter{Property: "title", Op: "contains", Value: "x"})
	require.Error(t, err)

	err = store.Upsert(context.Background(), []retrieve.Record{{ID: "r1", Collection: "repairs"}})
	require.Error(t, err)
}

// ============================================================================
// Upsert
// ============================================================================

func TestUpsert_RoundtripsProperties(t *testing.T) {
	store := openTestStore(t)
	modified := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	seedRecords(t, store, retrieve.Record{
		ID:         "r1",
		Collection: "repairs",
		Properties: map[string]string{
			"title":    "Alternator replacement",
			"content":  "Replaced alternator and serpentine belt",
			"category": "electrical",
			"status":   "completed",
		},
		LastModified: modified,
	})

	got, err := store.List(context.Background(), "repairs")
	require.NoError(t, err)
	require.Len(t, got, 1)

	rec := got[0]
	assert.Equal(t, "r1", rec.ID)
	assert.Equal(t, "repairs", rec.Collection)
	assert.Equal(t, "Alternator replacement", rec.Properties["title"])
	assert.Equal(t, "electrical", rec.Properties["category"])
	assert.True(t, modified.Equal(rec.LastModified))

	// Empty properties are omitted, not stored as "".
	_, hasNotes := rec.Properties["notes"]
	assert.False(t, hasNotes)
}

func TestUpsert_ReplacesExistingRecord(t *testing.T) {
	store := openTestStore(t)

	seedRecords(t, store, retrieve.Record{
		ID:         "r1",
		Collection: "repairs",
		Properties: map[string]string{"title": "old title"},
	})
	seedRecords(t, store, retrieve.Record{
		ID:         "r1",
		Collection: "repairs",
		Properties: map[string]string{"title": "new title"},
	})

	got, err := store.List(context.Background(), "repairs")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new title", got[0].Properties["title"])
}

func TestUpsert_RequiresIDAndCollection(t *testing.T) {
	store := openTestStore(t)

	err := store.Upsert(context.Background(), []retrieve.Record{{ID: "", Collection: "repairs"}})
	require.Error(t, err)
	assert.Equal(t, kberrors.CategoryValidation, kberrors.GetCategory(err))

	err = store.Upsert(context.Background(), []retrieve.Record{{ID: "r1", Collection: ""}})
	require.Error(t, err)
}

func TestUpsert_EmptySliceIsNoop(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Upsert(context.Background(), nil))
}

// ============================================================================
// Query
// ============================================================================

func TestQuery_ContainsAndEquals(t *testing.T) {
	store := openTestStore(t)
	seedRecords(t, store,
		retrieve.Record{ID: "r1", Collection: "repairs", Properties: map[string]string{
			"title": "Brake pad replacement", "status": "completed"}},
		retrieve.Record{ID: "r2", Collection: "repairs", Properties: map[string]string{
			"title": "Oil change", "status": "open"}},
		retrieve.Record{ID: "s1", Collection: "shops", Properties: map[string]string{
			"title": "Brake specialists inc"}},
	)

	tests := []struct {
		name       string
		collection string
		filter     retrieve.Filter
		wantIDs    []string
	}{
		{
			name:       "contains matches substring",
			collection: "repairs",
			filter:     retrieve.Filter{Property: "title", Op: "contains", Value: "brake"},
			wantIDs:    []string{"r1"},
		},
		{
			name:       "contains scoped to collection",
			collection: "shops",
			filter:     retrieve.Filter{Property: "title", Op: "contains", Value: "brake"},
			wantIDs:    []string{"s1"},
		},
		{
			name:       "equals matches exactly",
			collection: "repairs",
			filter:     retrieve.Filter{Property: "status", Op: "equals", Value: "completed"},
			wantIDs:    []string{"r1"},
		},
		{
			name:       "equals does not match substring",
			collection: "repairs",
			filter:     retrieve.Filter{Property: "status", Op: "equals", Value: "comp"},
			wantIDs:    nil,
		},
		{
			name:       "no matches",
			collection: "repairs",
			filter:     retrieve.Filter{Property: "title", Op: "contains", Value: "transmission"},
			wantIDs:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(context.Background(), tt.collection, tt.filter)
			require.NoError(t, err)

			var ids []string
			for _, rec := range got {
				ids = append(ids, rec.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestQuery_RejectsUnknownPropertyAndOp(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Query(context.Background(), "repairs",
		retrieve.Filter{Property: "password", Op: "contains", Value: "x"})
	require.Error(t, err)
	assert.Equal(t, kberrors.CategoryValidation, kberrors.GetCategory(err))

	_, err = store.Query(context.Background(), "repairs",
		retrieve.Filter{Property: "title", Op: "regex", Value: "x"})
	require.Error(t, err)
	assert.Equal(t, kberrors.CategoryValidation, kberrors.GetCategory(err))
}

func TestQuery_EscapesLikeWildcards(t *testing.T) {
	store := openTestStore(t)
	seedRecords(t, store,
		retrieve.Record{ID: "r1", Collection: "repairs", Properties: map[string]string{
			"title": "50% off brake service"}},
		retrieve.Record{ID: "r2", Collection: "repairs", Properties: map[string]string{
			"title": "full price brake service"}},
	)

	// A literal % must not act as a wildcard.
	got, err := store.Query(context.Background(), "repairs",
		retrieve.Filter{Property: "title", Op: "contains", Value: "50% off"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)
}

// ============================================================================
// Relations
// ============================================================================

func TestRelate_GetRelated(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	seedRecords(t, store,
		retrieve.Record{ID: "r1", Collection: "repairs", Properties: map[string]string{"title": "Brake job"}},
		retrieve.Record{ID: "p1", Collection: "parts", Properties: map[string]string{"title": "Brake pads"}},
		retrieve.Record{ID: "p2", Collection: "parts", Properties: map[string]string{"title": "Rotors"}},
	)
	require.NoError(t, store.Relate(ctx, "r1", "related", "p1"))
	require.NoError(t, store.Relate(ctx, "r1", "related", "p2"))
	// Duplicate links are ignored.
	require.NoError(t, store.Relate(ctx, "r1", "related", "p1"))

	got, err := store.GetRelated(ctx, "r1", "related")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// Links are directional.
	back, err := store.GetRelated(ctx, "p1", "related")
	require.NoError(t, err)
	assert.Empty(t, back)

	// Unknown relation names yield nothing.
	none, err := store.GetRelated(ctx, "r1", "supersedes")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetRelated_SkipsDanglingLinks(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	seedRecords(t, store,
		retrieve.Record{ID: "r1", Collection: "repairs", Properties: map[string]string{"title": "Brake job"}})
	require.NoError(t, store.Relate(ctx, "r1", "related", "ghost"))

	got, err := store.GetRelated(ctx, "r1", "related")
	require.NoError(t, err)
	assert.Empty(t, got)
}
