package bookmark_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fTrestour/bookmarks/features/bookmark"
	"github.com/fTrestour/bookmarks/internal/testutils"
)

func TestBookmarkRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := testutils.NewIntegrationSuite(t)
	s.Setup()
	defer s.Teardown()

	const dim = 768
	repo := bookmark.NewPostgresRepo(s.DB, dim)
	ctx := context.Background()

	makeVec := func(seed float32) []float32 {
		vec := make([]float32, dim)
		vec[0] = seed
		vec[1] = 1
		return vec
	}

	// Insert and read back.
	first := &bookmark.Bookmark{ID: uuid.New().String(), URL: "https://example.com/a", Status: bookmark.StatusPending}
	require.NoError(t, repo.Insert(ctx, first))

	got, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.URL, got.URL)
	assert.Equal(t, bookmark.StatusPending, got.Status)
	assert.Nil(t, got.Title)
	assert.Nil(t, got.ProcessedAt)
	assert.False(t, got.CreatedAt.IsZero())

	// The unique index rejects a second row for the same URL.
	dup := &bookmark.Bookmark{ID: uuid.New().String(), URL: first.URL, Status: bookmark.StatusPending}
	assert.ErrorIs(t, repo.Insert(ctx, dup), bookmark.ErrDuplicateURL)

	// Enrich and complete the first bookmark.
	require.NoError(t, repo.UpdateEnrichment(ctx, first.ID, "content about go", "Go Article", makeVec(1)))
	require.NoError(t, repo.UpdateStatus(ctx, first.ID, bookmark.StatusCompleted, ""))

	got, err = repo.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, bookmark.StatusCompleted, got.Status)
	require.NotNil(t, got.Content)
	assert.Equal(t, "content about go", *got.Content)
	assert.Len(t, got.Embedding, dim)
	require.NotNil(t, got.ProcessedAt)
	firstProcessedAt := *got.ProcessedAt

	// processed_at is written once; a later terminal transition keeps it.
	require.NoError(t, repo.UpdateStatus(ctx, first.ID, bookmark.StatusFailed, "manual failure"))
	got, err = repo.Get(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ProcessedAt)
	assert.True(t, got.ProcessedAt.Equal(firstProcessedAt))
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "manual failure", *got.ErrorMessage)

	// Completing again clears the error message.
	require.NoError(t, repo.UpdateStatus(ctx, first.ID, bookmark.StatusCompleted, ""))
	got, err = repo.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ErrorMessage)

	// A second completed bookmark further from the query vector.
	second := &bookmark.Bookmark{ID: uuid.New().String(), URL: "https://example.com/b", Status: bookmark.StatusPending}
	require.NoError(t, repo.Insert(ctx, second))
	require.NoError(t, repo.UpdateEnrichment(ctx, second.ID, "content about cooking", "Cooking", makeVec(-1)))
	require.NoError(t, repo.UpdateStatus(ctx, second.ID, bookmark.StatusCompleted, ""))

	// A stuck bookmark never shows up in completed listings or search.
	stuckRow := &bookmark.Bookmark{ID: uuid.New().String(), URL: "https://example.com/c", Status: bookmark.StatusPending}
	require.NoError(t, repo.Insert(ctx, stuckRow))

	completed, err := repo.ListCompleted(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, completed, 2)

	stuck, err := repo.ListStuck(ctx)
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, stuckRow.ID, stuck[0].ID)

	// Cosine ranking puts the vector closest to the query first.
	ranked, err := repo.SearchByEmbedding(ctx, makeVec(1), 10)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, first.ID, ranked[0].ID)
	assert.Equal(t, second.ID, ranked[1].ID)

	ranked, err = repo.SearchByEmbedding(ctx, makeVec(1), 1)
	require.NoError(t, err)
	assert.Len(t, ranked, 1)

	// Unknown ids surface ErrNotFound on updates.
	assert.ErrorIs(t, repo.UpdateStatus(ctx, uuid.New().String(), bookmark.StatusCompleted, ""), bookmark.ErrNotFound)
}
