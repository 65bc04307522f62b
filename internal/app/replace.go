package app

import (
	"context"
	"fmt"
	"time"

	"github.com/neomorfeo/docsign/internal/domain"
)

// ReplaceSignerRequest describes the party taking over a signer's slot. When
// Contact.ID is set the contact is read from the caller's directory, otherwise it is
// matched or created by its communication means.
type ReplaceSignerRequest struct {
	Contact        domain.Contact
	SendingMethod  domain.SendingMethod
	Authentication domain.Authentication
}

// ReplaceSigner substitutes a fresh signer for one that has not signed yet. The
// replacement keeps the slot's position, Order and field assignment, starts over in
// Created state and is invited when it may act.
func (s *CollectionService) ReplaceSigner(
	ctx context.Context,
	caller domain.Caller,
	collectionID, signerID string,
	req ReplaceSignerRequest,
) (domain.DocumentCollection, error) {
	current, err := s.load(ctx, collectionID)
	if err != nil {
		return domain.DocumentCollection{}, err
	}
	if err := authorizeEdit(caller, current); err != nil {
		return domain.DocumentCollection{}, err
	}
	if err := checkReplaceable(current, signerID); err != nil {
		return domain.DocumentCollection{}, err
	}
	visual := req.Authentication.Mode == domain.AuthVisualIdentification
	if visual {
		if err := s.checkVisualIdentificationQuota(ctx, caller.AccountID, 1); err != nil {
			return domain.DocumentCollection{}, err
		}
	}
	if current.Status.Terminal() {
		return domain.DocumentCollection{}, domain.ErrCannotModifyFinalizedDocument.With(string(current.Status))
	}

	contact, err := s.replacementContact(ctx, caller, req.Contact, req.SendingMethod)
	if err != nil {
		return domain.DocumentCollection{}, err
	}
	if !contact.Supports(req.SendingMethod) {
		return domain.DocumentCollection{}, domain.ErrInvalidSendingMethod.With(
			fmt.Sprintf("contact %s has no %s", contact.ID, req.SendingMethod))
	}

	auth := req.Authentication
	if auth.Mode == "" {
		auth.Mode = domain.AuthNone
	}
	if auth.OTPMode == "" {
		auth.OTPMode = domain.OTPNone
	}

	newSignerID := newID()
	var replaced domain.Signer
	updated, err := s.repo.Update(ctx, collectionID, func(c *domain.DocumentCollection) error {
		if err := checkReplaceable(*c, signerID); err != nil {
			return err
		}
		if c.Status.Terminal() {
			return domain.ErrCannotModifyFinalizedDocument.With(string(c.Status))
		}
		idx := c.SignerIndex(signerID)
		old := c.Signers[idx]
		if _, err := s.validator.ApplySigner(ctx, old.Status, domain.SignerEventReplace); err != nil {
			return err
		}
		replaced = old
		c.Signers[idx] = domain.Signer{
			ID:             newSignerID,
			Contact:        contact,
			SendingMethod:  req.SendingMethod,
			Order:          old.Order,
			Status:         domain.SignerStatusCreated,
			Authentication: auth,
			Appendices:     old.Appendices,
			Fields:         old.Fields,
			UpdatedAt:      time.Now().UTC(),
		}
		c.SanitizeAppendices()
		touch(c)
		return nil
	})
	if err != nil {
		return domain.DocumentCollection{}, err
	}

	if visual {
		if err := s.quota.AddVisualIdentification(ctx, caller.AccountID); err != nil {
			s.logger.WarnContext(ctx, "visual identification reservation failed after replace",
				"collection_id", collectionID, "error", err)
		}
	}

	idx := updated.SignerIndex(newSignerID)
	s.logger.InfoContext(ctx, "signer replaced",
		"collection_id", collectionID,
		"replaced_signer_id", replaced.ID,
		"signer_id", newSignerID,
	)
	s.revoke(ctx, updated, []string{replaced.ID})
	s.notify(ctx, domain.NotifySignerReplaced, updated, &updated.Signers[idx])

	policy := updated.Mode.MustPolicy()
	if policy.Distributes && (!policy.Ordered || updated.PredecessorsSigned(updated.Signers[idx])) {
		s.invite(ctx, updated, updated.Signers[idx])
	}
	return updated, nil
}

// checkReplaceable verifies the target signer exists and has not signed.
func checkReplaceable(c domain.DocumentCollection, signerID string) error {
	idx := c.SignerIndex(signerID)
	if idx < 0 {
		return domain.ErrInvalidSignerID.With(signerID)
	}
	if c.Signers[idx].Status == domain.SignerStatusSigned {
		return domain.ErrDocumentAlreadySignedBySigner.With(signerID)
	}
	return nil
}

func (s *CollectionService) replacementContact(
	ctx context.Context,
	caller domain.Caller,
	in domain.Contact,
	method domain.SendingMethod,
) (domain.Contact, error) {
	if in.ID != "" {
		return s.resolveOwnedContact(ctx, caller, in.ID)
	}
	contact, err := s.directory.GetOrCreateContact(ctx, caller, in, method)
	if err != nil {
		return domain.Contact{}, fmt.Errorf("resolving contact: %w", err)
	}
	return contact, nil
}
