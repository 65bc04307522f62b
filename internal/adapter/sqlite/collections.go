package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/neomorfeo/docsign/internal/domain"
)

// Compile-time check: CollectionRepository implements domain.CollectionRepository.
var _ domain.CollectionRepository = (*CollectionRepository)(nil)

// CollectionRepository implements domain.CollectionRepository using SQLite.
type CollectionRepository struct {
	db *sql.DB
}

// NewCollectionRepository returns a collection repository backed by the store.
func NewCollectionRepository(s *Store) *CollectionRepository {
	return &CollectionRepository{db: s.db}
}

const collectionColumns = `id, account_id, group_id, user_id, name, mode, status,
	documents, signers, sender_appendices, fields, version, created_at, updated_at`

func (r *CollectionRepository) Create(ctx context.Context, c domain.DocumentCollection) error {
	cols, err := encodeCollection(c)
	if err != nil {
		return err
	}
	if c.Version == 0 {
		c.Version = 1
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO collections (`+collectionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.AccountID, c.GroupID, c.UserID, c.Name, string(c.Mode), string(c.Status),
		cols.documents, cols.signers, cols.appendices, cols.fields, c.Version,
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("collection %s already exists: %w", c.ID, err)
		}
		return fmt.Errorf("inserting collection: %w", err)
	}
	return nil
}

func (r *CollectionRepository) GetByID(ctx context.Context, id string) (domain.DocumentCollection, error) {
	return getCollection(ctx, r.db, id)
}

func (r *CollectionRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.DocumentCollection, error) {
	query := `SELECT ` + collectionColumns + ` FROM collections`
	var conditions []string
	var args []any

	if filter.GroupID != "" {
		conditions = append(conditions, "group_id = ?")
		args = append(args, filter.GroupID)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	defer rows.Close()

	var collections []domain.DocumentCollection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

// Update loads the collection, applies mutate and writes it back in one
// transaction. The write is guarded by the version read at the start, so a
// concurrent writer that slipped in between yields ErrConcurrentUpdate.
func (r *CollectionRepository) Update(ctx context.Context, id string, mutate func(*domain.DocumentCollection) error) (domain.DocumentCollection, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.DocumentCollection{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	c, err := getCollection(ctx, tx, id)
	if err != nil {
		return domain.DocumentCollection{}, err
	}

	version := c.Version
	if err := mutate(&c); err != nil {
		return domain.DocumentCollection{}, err
	}
	c.ID = id
	c.Version = version + 1

	cols, err := encodeCollection(c)
	if err != nil {
		return domain.DocumentCollection{}, err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE collections SET name = ?, mode = ?, status = ?, documents = ?, signers = ?,
		 sender_appendices = ?, fields = ?, version = ?, updated_at = ?
		 WHERE id = ? AND version = ?`,
		c.Name, string(c.Mode), string(c.Status), cols.documents, cols.signers,
		cols.appendices, cols.fields, c.Version, formatTime(c.UpdatedAt),
		id, version,
	)
	if err != nil {
		return domain.DocumentCollection{}, fmt.Errorf("updating collection: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return domain.DocumentCollection{}, fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return domain.DocumentCollection{}, domain.ErrConcurrentUpdate.With(id)
	}

	if err := tx.Commit(); err != nil {
		return domain.DocumentCollection{}, fmt.Errorf("committing collection update: %w", err)
	}
	return c, nil
}

func getCollection(ctx context.Context, q queryer, id string) (domain.DocumentCollection, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE id = ?`, id)

	c, err := scanCollection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DocumentCollection{}, domain.ErrInvalidDocumentCollectionID.With(id)
	}
	return c, err
}

type collectionJSON struct {
	documents  string
	signers    string
	appendices string
	fields     string
}

func encodeCollection(c domain.DocumentCollection) (collectionJSON, error) {
	var cols collectionJSON
	var err error
	if cols.documents, err = encodeJSON(toDocumentRecords(c.Documents)); err != nil {
		return cols, err
	}
	if cols.signers, err = encodeJSON(toSignerRecords(c.Signers)); err != nil {
		return cols, err
	}
	if cols.appendices, err = encodeJSON(toAppendixRecords(c.SenderAppendices)); err != nil {
		return cols, err
	}
	if cols.fields, err = encodeJSON(toFieldValueRecords(c.Fields)); err != nil {
		return cols, err
	}
	return cols, nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanCollection(s scanner) (domain.DocumentCollection, error) {
	var (
		c                    domain.DocumentCollection
		mode, status         string
		cols                 collectionJSON
		createdAt, updatedAt string
		documents            []documentRecord
		signers              []signerRecord
		appendices           []appendixRecord
		fields               []fieldValueRecord
	)

	err := s.Scan(&c.ID, &c.AccountID, &c.GroupID, &c.UserID, &c.Name, &mode, &status,
		&cols.documents, &cols.signers, &cols.appendices, &cols.fields, &c.Version,
		&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("scanning collection: %w", err)
	}

	c.Mode = domain.Mode(mode)
	c.Status = domain.Status(status)

	if err := decodeJSON(cols.documents, &documents); err != nil {
		return c, err
	}
	if err := decodeJSON(cols.signers, &signers); err != nil {
		return c, err
	}
	if err := decodeJSON(cols.appendices, &appendices); err != nil {
		return c, err
	}
	if err := decodeJSON(cols.fields, &fields); err != nil {
		return c, err
	}
	c.Documents = fromDocumentRecords(documents)
	c.Signers = fromSignerRecords(signers)
	c.SenderAppendices = fromAppendixRecords(appendices)
	c.Fields = fromFieldValueRecords(fields)

	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return c, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return c, err
	}
	return c, nil
}
