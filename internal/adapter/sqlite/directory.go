package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/neomorfeo/docsign/internal/domain"
)

var _ domain.PartyDirectory = (*Directory)(nil)

// Directory implements domain.PartyDirectory. Contacts are owned by a user.
type Directory struct {
	db *sql.DB
}

func NewDirectory(s *Store) *Directory {
	return &Directory{db: s.db}
}

const contactColumns = `id, owner_id, name, email, phone, deleted`

// SaveContact inserts or replaces a contact.
func (d *Directory) SaveContact(ctx context.Context, c domain.Contact) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO contacts (`+contactColumns+`, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   owner_id = excluded.owner_id, name = excluded.name, email = excluded.email,
		   phone = excluded.phone, deleted = excluded.deleted`,
		c.ID, c.OwnerID, c.Name, c.Email, c.Phone, c.Deleted, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("saving contact: %w", err)
	}
	return nil
}

func (d *Directory) ResolveContact(ctx context.Context, contactID string) (domain.Contact, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = ?`, contactID)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Contact{}, domain.ErrInvalidContactID.With(contactID)
	}
	return c, err
}

func (d *Directory) ContactBelongsToCaller(ctx context.Context, caller domain.Caller, contactID string) (bool, error) {
	var owner string
	err := d.db.QueryRowContext(ctx,
		`SELECT owner_id FROM contacts WHERE id = ?`, contactID,
	).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading contact owner: %w", err)
	}
	return owner == caller.UserID, nil
}

// GetOrCreateContact returns the caller's contact c.ID when it is set.
// Otherwise it matches an active contact of the caller on the means method
// uses (phone for SMS, email otherwise), then on the other means, accepting
// only contacts reachable through method. A new contact is created when
// nothing matches.
func (d *Directory) GetOrCreateContact(
	ctx context.Context,
	caller domain.Caller,
	c domain.Contact,
	method domain.SendingMethod,
) (domain.Contact, error) {
	if c.ID != "" {
		return d.ownedContact(ctx, caller, c.ID)
	}
	if c.Email == "" && c.Phone == "" {
		return domain.Contact{}, domain.ErrInvalidContactID.With("contact has neither email nor phone")
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Contact{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, match := range matchOrder(c, method) {
		if match.value == "" {
			continue
		}
		rows, err := tx.QueryContext(ctx,
			`SELECT `+contactColumns+` FROM contacts
			 WHERE owner_id = ? AND deleted = 0 AND `+match.column+` = ?
			 ORDER BY created_at, rowid`,
			caller.UserID, match.value)
		if err != nil {
			return domain.Contact{}, fmt.Errorf("matching contact by %s: %w", match.column, err)
		}
		found, ok, err := firstReachable(rows, method)
		if err != nil {
			return domain.Contact{}, err
		}
		if ok {
			return found, nil
		}
	}

	created := domain.Contact{
		ID:      uuid.NewString(),
		OwnerID: caller.UserID,
		Name:    c.Name,
		Email:   c.Email,
		Phone:   c.Phone,
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO contacts (`+contactColumns+`, created_at) VALUES (?, ?, ?, ?, ?, 0, ?)`,
		created.ID, created.OwnerID, created.Name, created.Email, created.Phone, formatTime(time.Now()),
	)
	if err != nil {
		return domain.Contact{}, fmt.Errorf("inserting contact: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Contact{}, fmt.Errorf("committing contact: %w", err)
	}
	return created, nil
}

type contactMatch struct {
	column string
	value  string
}

func matchOrder(c domain.Contact, method domain.SendingMethod) []contactMatch {
	if method == domain.SendingMethodSMS {
		return []contactMatch{{"phone", c.Phone}, {"email", c.Email}}
	}
	return []contactMatch{{"email", c.Email}, {"phone", c.Phone}}
}

// firstReachable returns the first scanned contact that supports method. An
// empty method accepts any contact. rows is always closed.
func firstReachable(rows *sql.Rows, method domain.SendingMethod) (domain.Contact, bool, error) {
	defer rows.Close()
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return domain.Contact{}, false, err
		}
		if method == "" || c.Supports(method) {
			return c, true, nil
		}
	}
	return domain.Contact{}, false, rows.Err()
}

// ownedContact loads an active contact that belongs to the caller.
func (d *Directory) ownedContact(ctx context.Context, caller domain.Caller, id string) (domain.Contact, error) {
	c, err := d.ResolveContact(ctx, id)
	if err != nil {
		return domain.Contact{}, err
	}
	if c.OwnerID != caller.UserID {
		return domain.Contact{}, domain.ErrContactNotBelongToUser.With(id)
	}
	if c.Deleted {
		return domain.Contact{}, domain.ErrContactDeleted.With(id)
	}
	return c, nil
}

func scanContact(s scanner) (domain.Contact, error) {
	var c domain.Contact
	err := s.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Email, &c.Phone, &c.Deleted)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domain.Contact{}, fmt.Errorf("scanning contact: %w", err)
	}
	return c, err
}
