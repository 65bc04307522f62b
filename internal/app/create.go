package app

import (
	"context"
	"fmt"

	"github.com/neomorfeo/docsign/internal/domain"
)

// fieldCatalog maps a template id to the names of the fields it declares.
type fieldCatalog map[string]map[string]struct{}

func (fc fieldCatalog) has(templateID, name string) bool {
	fields, ok := fc[templateID]
	if !ok {
		return false
	}
	_, ok = fields[name]
	return ok
}

// CreateCollection validates and persists a new collection in Created state,
// reserves one document unit and, for distributing modes, invites the eligible signers.
func (s *CollectionService) CreateCollection(
	ctx context.Context,
	caller domain.Caller,
	draft domain.DocumentCollection,
	fields []domain.FieldValue,
) (domain.DocumentCollection, error) {
	policy, err := draft.Mode.Policy()
	if err != nil {
		return domain.DocumentCollection{}, err
	}
	if err := checkSignerCount(policy, len(draft.Signers)); err != nil {
		return domain.DocumentCollection{}, err
	}

	if err := s.checkProgram(ctx, caller.AccountID); err != nil {
		return domain.DocumentCollection{}, err
	}
	if err := s.checkDocumentQuota(ctx, caller.AccountID, 1); err != nil {
		return domain.DocumentCollection{}, err
	}

	catalog, err := s.resolveTemplates(ctx, caller, draft.Documents)
	if err != nil {
		return domain.DocumentCollection{}, err
	}

	signers := make([]domain.Signer, len(draft.Signers))
	for i, in := range draft.Signers {
		contact, err := s.resolveOwnedContact(ctx, caller, in.Contact.ID)
		if err != nil {
			return domain.DocumentCollection{}, err
		}
		if !contact.Supports(in.SendingMethod) {
			return domain.DocumentCollection{}, domain.ErrInvalidSendingMethod.With(
				fmt.Sprintf("contact %s has no %s", contact.ID, in.SendingMethod))
		}
		in.Contact = contact
		signers[i] = in
	}

	if err := validateFields(catalog, fields, signers); err != nil {
		return domain.DocumentCollection{}, err
	}

	if policy.Distributes {
		if err := s.checkSmsQuota(ctx, caller.AccountID, countSms(signers)); err != nil {
			return domain.DocumentCollection{}, err
		}
	}
	visual := countVisualIdentifications(signers)
	if err := s.checkVisualIdentificationQuota(ctx, caller.AccountID, visual); err != nil {
		return domain.DocumentCollection{}, err
	}

	c := domain.NewCollection(newID(), caller, draft.Name, draft.Mode)
	c.Documents = assignDocumentIDs(draft.Documents)
	c.SenderAppendices = draft.SenderAppendices
	c.Fields = fields
	c.Signers = initSigners(policy, signers)
	c.SanitizeAppendices()

	if err := s.repo.Create(ctx, c); err != nil {
		return domain.DocumentCollection{}, fmt.Errorf("creating collection: %w", err)
	}

	if err := s.quota.AddDocument(ctx, caller.AccountID); err != nil {
		s.logger.WarnContext(ctx, "document reservation failed after create",
			"collection_id", c.ID, "account_id", caller.AccountID, "error", err)
	}
	for range visual {
		if err := s.quota.AddVisualIdentification(ctx, caller.AccountID); err != nil {
			s.logger.WarnContext(ctx, "visual identification reservation failed after create",
				"collection_id", c.ID, "account_id", caller.AccountID, "error", err)
			break
		}
	}

	s.logger.InfoContext(ctx, "collection created",
		"collection_id", c.ID,
		"mode", c.Mode,
		"signers", len(c.Signers),
		"documents", len(c.Documents),
	)

	if policy.Distributes {
		s.dispatch(ctx, c, 0)
	}
	return c, nil
}

func checkSignerCount(policy domain.ModePolicy, n int) error {
	if n < policy.MinSigners || (policy.MaxSigners >= 0 && n > policy.MaxSigners) {
		return domain.ErrInvalidSignersCount.With(fmt.Sprintf("%d signers", n))
	}
	return nil
}

// resolveTemplates checks every document references a template owned by the
// caller's group and returns the field catalog of those templates.
func (s *CollectionService) resolveTemplates(ctx context.Context, caller domain.Caller, docs []domain.Document) (fieldCatalog, error) {
	catalog := make(fieldCatalog, len(docs))
	for _, d := range docs {
		if d.TemplateID == "" {
			return nil, domain.ErrInvalidTemplateID.With("document " + d.Name + " has no template")
		}
		if _, seen := catalog[d.TemplateID]; seen {
			continue
		}
		names, err := s.templateFields(ctx, caller, d.TemplateID)
		if err != nil {
			return nil, err
		}
		catalog[d.TemplateID] = names
	}
	return catalog, nil
}

func (s *CollectionService) templateFields(ctx context.Context, caller domain.Caller, templateID string) (map[string]struct{}, error) {
	if _, err := s.templates.ReadTemplate(ctx, templateID); err != nil {
		return nil, err
	}
	owned, err := s.templates.TemplateBelongsToGroup(ctx, templateID, caller.GroupID)
	if err != nil {
		return nil, fmt.Errorf("checking template ownership: %w", err)
	}
	if !owned {
		return nil, domain.ErrTemplateNotBelongToUserGroup.With(templateID)
	}
	defs, err := s.templates.FieldCatalog(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("reading field catalog: %w", err)
	}
	names := make(map[string]struct{}, len(defs))
	for _, f := range defs {
		names[f.Name] = struct{}{}
	}
	return names, nil
}

// resolveOwnedContact loads an active contact from the caller's directory.
func (s *CollectionService) resolveOwnedContact(ctx context.Context, caller domain.Caller, contactID string) (domain.Contact, error) {
	if contactID == "" {
		return domain.Contact{}, domain.ErrInvalidContactID.With("empty contact id")
	}
	contact, err := s.directory.ResolveContact(ctx, contactID)
	if err != nil {
		return domain.Contact{}, err
	}
	owned, err := s.directory.ContactBelongsToCaller(ctx, caller, contactID)
	if err != nil {
		return domain.Contact{}, fmt.Errorf("checking contact ownership: %w", err)
	}
	if !owned {
		return domain.Contact{}, domain.ErrContactNotBelongToUser.With(contactID)
	}
	if contact.Deleted {
		return domain.Contact{}, domain.ErrContactDeleted.With(contactID)
	}
	return contact, nil
}

func validateFields(catalog fieldCatalog, fields []domain.FieldValue, signers []domain.Signer) error {
	for _, f := range fields {
		if !catalog.has(f.TemplateID, f.Name) {
			return domain.ErrInvalidFieldName.With(f.TemplateID + "/" + f.Name)
		}
	}
	for _, s := range signers {
		for _, f := range s.Fields {
			if !catalog.has(f.TemplateID, f.Name) {
				return domain.ErrInvalidFieldName.With(f.TemplateID + "/" + f.Name)
			}
		}
	}
	return nil
}

func countSms(signers []domain.Signer) int {
	n := 0
	for _, s := range signers {
		if s.SendingMethod == domain.SendingMethodSMS {
			n++
		}
	}
	return n
}

func countVisualIdentifications(signers []domain.Signer) int {
	n := 0
	for _, s := range signers {
		if s.Authentication.Mode == domain.AuthVisualIdentification {
			n++
		}
	}
	return n
}

func assignDocumentIDs(docs []domain.Document) []domain.Document {
	out := make([]domain.Document, len(docs))
	for i, d := range docs {
		if d.ID == "" {
			d.ID = newID()
		}
		out[i] = d
	}
	return out
}

// initSigners gives every signer a fresh id and Created status. Under ordered
// signing a missing Order defaults to the signer's position.
func initSigners(policy domain.ModePolicy, in []domain.Signer) []domain.Signer {
	out := make([]domain.Signer, len(in))
	for i, s := range in {
		s.ID = newID()
		s.Status = domain.SignerStatusCreated
		if policy.Ordered && s.Order == 0 {
			s.Order = i + 1
		}
		if s.Authentication.Mode == "" {
			s.Authentication.Mode = domain.AuthNone
		}
		if s.Authentication.OTPMode == "" {
			s.Authentication.OTPMode = domain.OTPNone
		}
		out[i] = s
	}
	return out
}
