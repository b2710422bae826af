package bookmark

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PostgresRepo persists bookmarks in a single table with a pgvector embedding
// column. All enrichment fields are written by one statement so readers never
// observe a partially enriched row.
type PostgresRepo struct {
	db  *sql.DB
	dim int
}

func NewPostgresRepo(db *sql.DB, embeddingDim int) *PostgresRepo {
	return &PostgresRepo{db: db, dim: embeddingDim}
}

const bookmarkColumns = `id, url, title, content, embedding, status, error_message, created_at, processed_at`

func (r *PostgresRepo) Insert(ctx context.Context, b *Bookmark) error {
	query := `INSERT INTO bookmarks (id, url, status) VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, query, b.ID, b.URL, string(b.Status))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("%w: %s", ErrDuplicateURL, b.URL)
		}
		return err
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Bookmark, error) {
	query := `SELECT ` + bookmarkColumns + ` FROM bookmarks WHERE id = $1`
	b, err := scanBookmark(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return b, err
}

func (r *PostgresRepo) ListAll(ctx context.Context) ([]Bookmark, error) {
	query := `SELECT ` + bookmarkColumns + ` FROM bookmarks ORDER BY created_at ASC, id`
	return r.queryBookmarks(ctx, query)
}

func (r *PostgresRepo) ListStuck(ctx context.Context) ([]Bookmark, error) {
	query := `SELECT ` + bookmarkColumns + ` FROM bookmarks WHERE status IN ('pending', 'processing') ORDER BY created_at ASC, id`
	return r.queryBookmarks(ctx, query)
}

func (r *PostgresRepo) ListCompleted(ctx context.Context, limit int) ([]Bookmark, error) {
	query := `SELECT ` + bookmarkColumns + ` FROM bookmarks WHERE status = 'completed' ORDER BY created_at DESC, id`
	if limit > 0 {
		return r.queryBookmarks(ctx, query+` LIMIT $1`, limit)
	}
	return r.queryBookmarks(ctx, query)
}

// SearchByEmbedding returns completed bookmarks ordered by ascending cosine
// distance to the query embedding. The trailing id sort keeps rows with equal
// distance in one stable order across identical calls.
func (r *PostgresRepo) SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]Bookmark, error) {
	if len(embedding) != r.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrBadDimension, len(embedding), r.dim)
	}
	query := `SELECT ` + bookmarkColumns + ` FROM bookmarks
		WHERE status = 'completed' AND embedding IS NOT NULL
		ORDER BY embedding <=> $1, id LIMIT $2`
	return r.queryBookmarks(ctx, query, pgvector.NewVector(embedding), limit)
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, id string, status Status, errMsg string) error {
	var res sql.Result
	var err error
	// processed_at is written once, the first time a run reaches a terminal
	// status; completed always clears the error message.
	switch status {
	case StatusCompleted:
		query := `UPDATE bookmarks SET status = $1, error_message = NULL, processed_at = COALESCE(processed_at, NOW()) WHERE id = $2`
		res, err = r.db.ExecContext(ctx, query, string(status), id)
	case StatusFailed:
		query := `UPDATE bookmarks SET status = $1, error_message = $2, processed_at = COALESCE(processed_at, NOW()) WHERE id = $3`
		res, err = r.db.ExecContext(ctx, query, string(status), errMsg, id)
	case StatusPending, StatusProcessing:
		query := `UPDATE bookmarks SET status = $1, error_message = NULLIF($2, '') WHERE id = $3`
		res, err = r.db.ExecContext(ctx, query, string(status), errMsg, id)
	default:
		return fmt.Errorf("unknown status %q", status)
	}
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

// UpdateEnrichment writes content, title and embedding in a single statement.
func (r *PostgresRepo) UpdateEnrichment(ctx context.Context, id, content, title string, embedding []float32) error {
	if len(embedding) != r.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrBadDimension, len(embedding), r.dim)
	}
	query := `UPDATE bookmarks SET content = $1, title = $2, embedding = $3 WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, content, title, pgvector.NewVector(embedding), id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (r *PostgresRepo) queryBookmarks(ctx context.Context, query string, args ...any) ([]Bookmark, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookmarks []Bookmark
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, *b)
	}
	return bookmarks, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBookmark(row scanner) (*Bookmark, error) {
	var (
		b         Bookmark
		title     sql.NullString
		content   sql.NullString
		embedding sql.NullString
		status    string
		errMsg    sql.NullString
		processed sql.NullTime
	)
	if err := row.Scan(&b.ID, &b.URL, &title, &content, &embedding, &status, &errMsg, &b.CreatedAt, &processed); err != nil {
		return nil, err
	}
	if title.Valid {
		b.Title = &title.String
	}
	if content.Valid {
		b.Content = &content.String
	}
	if embedding.Valid {
		var vec pgvector.Vector
		if err := vec.Parse(embedding.String); err != nil {
			return nil, fmt.Errorf("parse embedding: %w", err)
		}
		b.Embedding = vec.Slice()
	}
	b.Status = Status(status)
	if errMsg.Valid {
		b.ErrorMessage = &errMsg.String
	}
	if processed.Valid {
		b.ProcessedAt = &processed.Time
	}
	return &b, nil
}
