package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/neomorfeo/docsign/internal/domain"
)

var _ domain.TemplateStore = (*TemplateStore)(nil)

// TemplateStore implements domain.TemplateStore over the templates table.
type TemplateStore struct {
	db *sql.DB
}

func NewTemplateStore(s *Store) *TemplateStore {
	return &TemplateStore{db: s.db}
}

// SaveTemplate inserts or replaces template metadata.
func (t *TemplateStore) SaveTemplate(ctx context.Context, tpl domain.Template) error {
	recs := make([]fieldDefinitionRecord, len(tpl.Fields))
	for i, f := range tpl.Fields {
		recs[i] = fieldDefinitionRecord(f)
	}
	fields, err := encodeJSON(recs)
	if err != nil {
		return err
	}

	_, err = t.db.ExecContext(ctx,
		`INSERT INTO templates (id, group_id, name, fields) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   group_id = excluded.group_id, name = excluded.name, fields = excluded.fields`,
		tpl.ID, tpl.GroupID, tpl.Name, fields,
	)
	if err != nil {
		return fmt.Errorf("saving template: %w", err)
	}
	return nil
}

func (t *TemplateStore) ReadTemplate(ctx context.Context, templateID string) (domain.Template, error) {
	var (
		tpl    domain.Template
		fields string
	)
	err := t.db.QueryRowContext(ctx,
		`SELECT id, group_id, name, fields FROM templates WHERE id = ?`, templateID,
	).Scan(&tpl.ID, &tpl.GroupID, &tpl.Name, &fields)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Template{}, domain.ErrInvalidTemplateID.With(templateID)
	}
	if err != nil {
		return domain.Template{}, fmt.Errorf("scanning template: %w", err)
	}

	var recs []fieldDefinitionRecord
	if err := decodeJSON(fields, &recs); err != nil {
		return domain.Template{}, err
	}
	tpl.Fields = make([]domain.FieldDefinition, len(recs))
	for i, r := range recs {
		tpl.Fields[i] = domain.FieldDefinition(r)
	}
	return tpl, nil
}

func (t *TemplateStore) TemplateBelongsToGroup(ctx context.Context, templateID, groupID string) (bool, error) {
	var owner string
	err := t.db.QueryRowContext(ctx,
		`SELECT group_id FROM templates WHERE id = ?`, templateID,
	).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading template group: %w", err)
	}
	return owner == groupID, nil
}

func (t *TemplateStore) FieldCatalog(ctx context.Context, templateID string) ([]domain.FieldDefinition, error) {
	tpl, err := t.ReadTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	return tpl.Fields, nil
}
