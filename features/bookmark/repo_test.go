package bookmark_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fTrestour/bookmarks/features/bookmark"
)

const testDim = 3

func newRepo(t *testing.T) (*bookmark.PostgresRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return bookmark.NewPostgresRepo(db, testDim), mock
}

func bookmarkRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "url", "title", "content", "embedding", "status", "error_message", "created_at", "processed_at"})
}

func TestPostgresRepo_Insert(t *testing.T) {
	repo, mock := newRepo(t)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookmarks (id, url, status) VALUES ($1, $2, $3)")).
			WithArgs("id-1", "https://example.com", "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Insert(context.Background(), &bookmark.Bookmark{
			ID:     "id-1",
			URL:    "https://example.com",
			Status: bookmark.StatusPending,
		})
		assert.NoError(t, err)
	})

	t.Run("DuplicateURL", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookmarks (id, url, status) VALUES ($1, $2, $3)")).
			WithArgs("id-2", "https://example.com", "pending").
			WillReturnError(&pq.Error{Code: "23505"})

		err := repo.Insert(context.Background(), &bookmark.Bookmark{
			ID:     "id-2",
			URL:    "https://example.com",
			Status: bookmark.StatusPending,
		})
		assert.ErrorIs(t, err, bookmark.ErrDuplicateURL)
	})
}

func TestPostgresRepo_Get(t *testing.T) {
	repo, mock := newRepo(t)

	t.Run("Found", func(t *testing.T) {
		now := time.Now()
		rows := bookmarkRows().
			AddRow("id-1", "https://example.com", "Title", "Some content", "[1,2,3]", "completed", nil, now, now)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, url, title, content, embedding, status, error_message, created_at, processed_at FROM bookmarks WHERE id = $1")).
			WithArgs("id-1").
			WillReturnRows(rows)

		b, err := repo.Get(context.Background(), "id-1")
		require.NoError(t, err)
		assert.Equal(t, "id-1", b.ID)
		assert.Equal(t, bookmark.StatusCompleted, b.Status)
		require.NotNil(t, b.Title)
		assert.Equal(t, "Title", *b.Title)
		assert.Equal(t, []float32{1, 2, 3}, b.Embedding)
		require.NotNil(t, b.ProcessedAt)
		assert.Nil(t, b.ErrorMessage)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, url, title, content, embedding, status, error_message, created_at, processed_at FROM bookmarks WHERE id = $1")).
			WithArgs("missing").
			WillReturnRows(bookmarkRows())

		_, err := repo.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, bookmark.ErrNotFound)
	})
}

func TestPostgresRepo_ListStuck(t *testing.T) {
	repo, mock := newRepo(t)

	rows := bookmarkRows().
		AddRow("id-1", "https://a.example", nil, nil, nil, "pending", nil, time.Now(), nil).
		AddRow("id-2", "https://b.example", nil, nil, nil, "processing", nil, time.Now(), nil)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status IN ('pending', 'processing') ORDER BY created_at ASC, id")).
		WillReturnRows(rows)

	stuck, err := repo.ListStuck(context.Background())
	require.NoError(t, err)
	require.Len(t, stuck, 2)
	assert.Equal(t, bookmark.StatusPending, stuck[0].Status)
	assert.Nil(t, stuck[0].Title)
	assert.Nil(t, stuck[0].Embedding)
}

func TestPostgresRepo_ListCompleted(t *testing.T) {
	repo, mock := newRepo(t)

	t.Run("NoLimit", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'completed' ORDER BY created_at DESC, id")).
			WillReturnRows(bookmarkRows())

		rows, err := repo.ListCompleted(context.Background(), 0)
		assert.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("WithLimit", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'completed' ORDER BY created_at DESC, id LIMIT $1")).
			WithArgs(5).
			WillReturnRows(bookmarkRows().AddRow("id-1", "https://a.example", "A", "text", "[1,2,3]", "completed", nil, time.Now(), time.Now()))

		rows, err := repo.ListCompleted(context.Background(), 5)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})
}

func TestPostgresRepo_SearchByEmbedding(t *testing.T) {
	repo, mock := newRepo(t)

	t.Run("WrongDimension", func(t *testing.T) {
		_, err := repo.SearchByEmbedding(context.Background(), []float32{1, 2}, 10)
		assert.ErrorIs(t, err, bookmark.ErrBadDimension)
	})

	t.Run("RankedByDistance", func(t *testing.T) {
		vec := []float32{1, 2, 3}
		mock.ExpectQuery(regexp.QuoteMeta("ORDER BY embedding <=> $1, id LIMIT $2")).
			WithArgs(pgvector.NewVector(vec), 10).
			WillReturnRows(bookmarkRows().
				AddRow("id-1", "https://a.example", "A", "text a", "[1,2,3]", "completed", nil, time.Now(), time.Now()).
				AddRow("id-2", "https://b.example", "B", "text b", "[3,2,1]", "completed", nil, time.Now(), time.Now()))

		rows, err := repo.SearchByEmbedding(context.Background(), vec, 10)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "id-1", rows[0].ID)
	})
}

func TestPostgresRepo_UpdateStatus(t *testing.T) {
	repo, mock := newRepo(t)

	t.Run("Completed", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE bookmarks SET status = $1, error_message = NULL, processed_at = COALESCE(processed_at, NOW()) WHERE id = $2")).
			WithArgs("completed", "id-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateStatus(context.Background(), "id-1", bookmark.StatusCompleted, "")
		assert.NoError(t, err)
	})

	t.Run("Failed", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE bookmarks SET status = $1, error_message = $2, processed_at = COALESCE(processed_at, NOW()) WHERE id = $3")).
			WithArgs("failed", "fetch: boom", "id-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateStatus(context.Background(), "id-1", bookmark.StatusFailed, "fetch: boom")
		assert.NoError(t, err)
	})

	t.Run("Processing", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE bookmarks SET status = $1, error_message = NULLIF($2, '') WHERE id = $3")).
			WithArgs("processing", "", "id-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateStatus(context.Background(), "id-1", bookmark.StatusProcessing, "")
		assert.NoError(t, err)
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		err := repo.UpdateStatus(context.Background(), "id-1", bookmark.Status("bogus"), "")
		assert.Error(t, err)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE bookmarks SET status = $1, error_message = NULL, processed_at = COALESCE(processed_at, NOW()) WHERE id = $2")).
			WithArgs("completed", "missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateStatus(context.Background(), "missing", bookmark.StatusCompleted, "")
		assert.ErrorIs(t, err, bookmark.ErrNotFound)
	})
}

func TestPostgresRepo_UpdateEnrichment(t *testing.T) {
	repo, mock := newRepo(t)

	t.Run("Success", func(t *testing.T) {
		vec := []float32{1, 2, 3}
		mock.ExpectExec(regexp.QuoteMeta("UPDATE bookmarks SET content = $1, title = $2, embedding = $3 WHERE id = $4")).
			WithArgs("clean text", "Title", pgvector.NewVector(vec), "id-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateEnrichment(context.Background(), "id-1", "clean text", "Title", vec)
		assert.NoError(t, err)
	})

	t.Run("WrongDimension", func(t *testing.T) {
		err := repo.UpdateEnrichment(context.Background(), "id-1", "text", "Title", []float32{1})
		assert.ErrorIs(t, err, bookmark.ErrBadDimension)
	})
}
