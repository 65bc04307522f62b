package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/neomorfeo/docsign/internal/domain"
)

var _ domain.AccessRevoker = (*AccessRevoker)(nil)

// AccessRevoker records revoked signer access links.
type AccessRevoker struct {
	db *sql.DB
}

func NewAccessRevoker(s *Store) *AccessRevoker {
	return &AccessRevoker{db: s.db}
}

func (a *AccessRevoker) Revoke(ctx context.Context, collectionID string, signerIDs []string) error {
	if len(signerIDs) == 0 {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	now := formatTime(time.Now())
	for _, id := range signerIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO signer_access_revocations (collection_id, signer_id, revoked_at)
			 VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
			collectionID, id, now,
		); err != nil {
			return fmt.Errorf("revoking signer %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing revocations: %w", err)
	}
	return nil
}

// Revoked reports whether the signer's access to the collection was revoked.
func (a *AccessRevoker) Revoked(ctx context.Context, collectionID, signerID string) (bool, error) {
	var one int
	err := a.db.QueryRowContext(ctx,
		`SELECT 1 FROM signer_access_revocations WHERE collection_id = ? AND signer_id = ?`,
		collectionID, signerID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading revocation: %w", err)
	}
	return true, nil
}
