package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/neomorfeo/docsign/internal/domain"
)

var _ domain.ContactsGroupRepository = (*ContactsGroupRepository)(nil)

// ContactsGroupRepository implements domain.ContactsGroupRepository using SQLite.
type ContactsGroupRepository struct {
	db *sql.DB
}

func NewContactsGroupRepository(s *Store) *ContactsGroupRepository {
	return &ContactsGroupRepository{db: s.db}
}

func (r *ContactsGroupRepository) Create(ctx context.Context, g domain.ContactsGroup) error {
	members, err := encodeMembers(g.Members)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO contacts_groups (id, owner_id, name, members, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.OwnerID, g.Name, members, formatTime(g.CreatedAt), formatTime(g.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("contacts group %s already exists: %w", g.ID, err)
		}
		return fmt.Errorf("inserting contacts group: %w", err)
	}
	return nil
}

func (r *ContactsGroupRepository) GetByID(ctx context.Context, id string) (domain.ContactsGroup, error) {
	var (
		g                    domain.ContactsGroup
		members              string
		createdAt, updatedAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, members, created_at, updated_at FROM contacts_groups WHERE id = ?`, id,
	).Scan(&g.ID, &g.OwnerID, &g.Name, &members, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ContactsGroup{}, domain.ErrInvalidContactsGroupID.With(id)
	}
	if err != nil {
		return domain.ContactsGroup{}, fmt.Errorf("scanning contacts group: %w", err)
	}

	var recs []memberRecord
	if err := decodeJSON(members, &recs); err != nil {
		return domain.ContactsGroup{}, err
	}
	g.Members = make([]domain.ContactsGroupMember, len(recs))
	for i, m := range recs {
		g.Members[i] = domain.ContactsGroupMember(m)
	}

	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.ContactsGroup{}, err
	}
	if g.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.ContactsGroup{}, err
	}
	return g, nil
}

func (r *ContactsGroupRepository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contacts_groups WHERE owner_id = ?`, ownerID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting contacts groups: %w", err)
	}
	return n, nil
}

func (r *ContactsGroupRepository) Update(ctx context.Context, g domain.ContactsGroup) error {
	members, err := encodeMembers(g.Members)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE contacts_groups SET name = ?, members = ?, updated_at = ? WHERE id = ?`,
		g.Name, members, formatTime(g.UpdatedAt), g.ID,
	)
	if err != nil {
		return fmt.Errorf("updating contacts group: %w", err)
	}
	return expectOneRow(res, domain.ErrInvalidContactsGroupID.With(g.ID))
}

func (r *ContactsGroupRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contacts_groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting contacts group: %w", err)
	}
	return expectOneRow(res, domain.ErrInvalidContactsGroupID.With(id))
}

func encodeMembers(members []domain.ContactsGroupMember) (string, error) {
	recs := make([]memberRecord, len(members))
	for i, m := range members {
		recs[i] = memberRecord(m)
	}
	return encodeJSON(recs)
}

// expectOneRow returns notFound when the statement touched no row.
func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
