package app

import (
	"context"
	"fmt"

	"github.com/neomorfeo/docsign/internal/domain"
)

// Distribute creates a batch of collections, typically one per recipient of the
// same template, and invites their signers.
//
// The batch is not atomic. Items are created in order and a failing item stops
// the batch: collections created before it stay committed and their ids are
// returned alongside a *domain.BatchError. One document unit is reserved per
// created collection, never for items that were not created.
//
// Program, quota and template checks run for the whole batch before any item:
// a batch larger than the remaining document or SMS quota fails without
// committing anything.
func (s *CollectionService) Distribute(
	ctx context.Context,
	caller domain.Caller,
	collections []domain.DocumentCollection,
) ([]string, error) {
	if collections == nil {
		return nil, domain.ErrNullInput.With("Null input")
	}
	if len(collections) == 0 {
		return []string{}, nil
	}

	if err := s.checkProgram(ctx, caller.AccountID); err != nil {
		return nil, err
	}
	if err := s.checkDocumentQuota(ctx, caller.AccountID, len(collections)); err != nil {
		return nil, err
	}
	sms := 0
	for _, c := range collections {
		sms += countSms(c.Signers)
	}
	if err := s.checkSmsQuota(ctx, caller.AccountID, sms); err != nil {
		return nil, err
	}

	templateID := representativeTemplate(collections)
	if templateID == "" {
		return nil, domain.ErrInvalidTemplateID.With("no document in the batch references a template")
	}
	if _, err := s.templateFields(ctx, caller, templateID); err != nil {
		return nil, err
	}

	catalogs := make(map[string][]domain.FieldDefinition)
	committed := make([]string, 0, len(collections))
	for i, item := range collections {
		c, err := s.distributeOne(ctx, caller, item, catalogs)
		if err != nil {
			s.logger.WarnContext(ctx, "distribution stopped",
				"index", i, "committed", len(committed), "error", err)
			return committed, &domain.BatchError{Index: i, Committed: committed, Err: err}
		}
		committed = append(committed, c.ID)
	}

	s.logger.InfoContext(ctx, "distribution completed",
		"account_id", caller.AccountID, "collections", len(committed))
	return committed, nil
}

func (s *CollectionService) distributeOne(
	ctx context.Context,
	caller domain.Caller,
	item domain.DocumentCollection,
	catalogs map[string][]domain.FieldDefinition,
) (domain.DocumentCollection, error) {
	mode := item.Mode
	if mode == "" {
		mode = domain.ModeGroupSign
	}
	policy, err := mode.Policy()
	if err != nil {
		return domain.DocumentCollection{}, err
	}
	if err := checkSignerCount(policy, len(item.Signers)); err != nil {
		return domain.DocumentCollection{}, err
	}

	// Units may have been consumed since the batch check.
	if err := s.checkDocumentQuota(ctx, caller.AccountID, 1); err != nil {
		return domain.DocumentCollection{}, err
	}

	defaults, err := s.seedFields(ctx, item.Documents, catalogs)
	if err != nil {
		return domain.DocumentCollection{}, err
	}

	signers := make([]domain.Signer, len(item.Signers))
	for i, in := range item.Signers {
		contact, err := s.directory.GetOrCreateContact(ctx, caller, in.Contact, in.SendingMethod)
		if err != nil {
			return domain.DocumentCollection{}, fmt.Errorf("resolving contact: %w", err)
		}
		if !contact.Supports(in.SendingMethod) {
			return domain.DocumentCollection{}, domain.ErrInvalidSendingMethod.With(
				fmt.Sprintf("contact %s has no %s", contact.ID, in.SendingMethod))
		}
		in.Contact = contact
		if len(in.Fields) == 0 {
			in.Fields = append([]domain.SignerField(nil), defaults...)
		}
		signers[i] = in
	}

	c := domain.NewCollection(newID(), caller, item.Name, mode)
	c.Documents = assignDocumentIDs(item.Documents)
	c.SenderAppendices = item.SenderAppendices
	c.Fields = item.Fields
	c.Signers = initSigners(policy, signers)
	c.SanitizeAppendices()

	if err := s.repo.Create(ctx, c); err != nil {
		return domain.DocumentCollection{}, fmt.Errorf("creating collection: %w", err)
	}
	if err := s.quota.AddDocument(ctx, caller.AccountID); err != nil {
		s.logger.WarnContext(ctx, "document reservation failed after create",
			"collection_id", c.ID, "account_id", caller.AccountID, "error", err)
	}

	if policy.Distributes {
		s.dispatch(ctx, c, 0)
	}
	return c, nil
}

// seedFields assigns every field of the documents' templates to a signer that
// brings no field assignment of its own.
func (s *CollectionService) seedFields(
	ctx context.Context,
	docs []domain.Document,
	catalogs map[string][]domain.FieldDefinition,
) ([]domain.SignerField, error) {
	var out []domain.SignerField
	for _, d := range docs {
		if d.TemplateID == "" {
			continue
		}
		defs, ok := catalogs[d.TemplateID]
		if !ok {
			var err error
			defs, err = s.templates.FieldCatalog(ctx, d.TemplateID)
			if err != nil {
				return nil, fmt.Errorf("reading field catalog: %w", err)
			}
			catalogs[d.TemplateID] = defs
		}
		for _, f := range defs {
			out = append(out, domain.SignerField{TemplateID: d.TemplateID, Name: f.Name})
		}
	}
	return out, nil
}

func representativeTemplate(collections []domain.DocumentCollection) string {
	for _, c := range collections {
		for _, d := range c.Documents {
			if d.TemplateID != "" {
				return d.TemplateID
			}
		}
	}
	return ""
}
