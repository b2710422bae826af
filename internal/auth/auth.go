// Package auth answers "is this bearer token valid" against the
// active_tokens table. Token issuance, revocation and signature verification
// live in an external subsystem; what it shares with this service is the jti
// it stores on issuance and deletes on revocation.
package auth

import (
	"context"
	"database/sql"
)

type Validator interface {
	IsValid(ctx context.Context, token string) (bool, error)
}

type PostgresTokens struct {
	db *sql.DB
}

func NewPostgresTokens(db *sql.DB) *PostgresTokens {
	return &PostgresTokens{db: db}
}

// IsValid reports whether the token's jti is present in active_tokens.
func (r *PostgresTokens) IsValid(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM active_tokens WHERE jti = $1)`
	if err := r.db.QueryRowContext(ctx, query, token).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
