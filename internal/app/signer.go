package app

import (
	"context"
	"time"

	"github.com/neomorfeo/docsign/internal/domain"
)

var signerNotifications = map[domain.SignerEvent]domain.NotificationKind{
	domain.SignerEventDelivered: domain.NotifySignerDelivered,
	domain.SignerEventOpened:    domain.NotifySignerViewed,
	domain.SignerEventCompleted: domain.NotifySignerSigned,
	domain.SignerEventDeclined:  domain.NotifySignerDeclined,
}

// AdvanceSigner records a signer's progress and promotes the collection status
// accordingly. The completion check runs in the same unit of work as the signer
// change, so the Signed transition and its side effects fire once.
func (s *CollectionService) AdvanceSigner(
	ctx context.Context,
	collectionID, signerID string,
	event domain.SignerEvent,
) (domain.DocumentCollection, error) {
	kind, public := signerNotifications[event]

	var completed bool
	updated, err := s.repo.Update(ctx, collectionID, func(c *domain.DocumentCollection) error {
		if c.Status == domain.StatusDeleted {
			return domain.ErrInvalidDocumentCollectionID.With(collectionID)
		}
		idx := c.SignerIndex(signerID)
		if idx < 0 {
			return domain.ErrInvalidSignerID.With(signerID)
		}
		signer := &c.Signers[idx]

		if !public {
			return &domain.TransitionError{Event: string(event), Current: string(signer.Status)}
		}
		if event == domain.SignerEventCompleted && signer.Status == domain.SignerStatusSigned {
			return domain.ErrDocumentAlreadySignedBySigner.With(signerID)
		}
		if c.Status.Terminal() {
			return domain.ErrCannotModifyFinalizedDocument.With(string(c.Status))
		}

		policy, err := c.Mode.Policy()
		if err != nil {
			return err
		}
		if policy.Ordered && (event == domain.SignerEventDelivered || event == domain.SignerEventOpened) &&
			!c.PredecessorsSigned(*signer) {
			return domain.ErrSignerOrderViolation.With(signerID)
		}

		next, err := s.validator.ApplySigner(ctx, signer.Status, event)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		signer.Status = next
		signer.UpdatedAt = now

		completed, err = s.promote(ctx, c)
		if err != nil {
			return err
		}
		c.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.DocumentCollection{}, err
	}

	idx := updated.SignerIndex(signerID)
	s.logger.InfoContext(ctx, "signer advanced",
		"collection_id", collectionID,
		"signer_id", signerID,
		"event", event,
		"signer_status", updated.Signers[idx].Status,
		"collection_status", updated.Status,
	)
	s.notify(ctx, kind, updated, &updated.Signers[idx])

	switch {
	case completed:
		s.complete(ctx, updated)
	case event == domain.SignerEventCompleted && updated.Mode.MustPolicy().Ordered:
		s.dispatch(ctx, updated, updated.Signers[idx].Order+1)
	}
	return updated, nil
}

// CompleteIfReady re-evaluates the completion rule for a collection and moves it to
// Signed when every signer has signed. Calling it again after completion is a no-op.
func (s *CollectionService) CompleteIfReady(ctx context.Context, collectionID string) (bool, error) {
	var completed bool
	updated, err := s.repo.Update(ctx, collectionID, func(c *domain.DocumentCollection) error {
		completed = false
		if c.Status.Terminal() || !domain.ShouldComplete(*c) {
			return nil
		}
		next, err := s.validator.ApplyCollection(ctx, c.Status, domain.CollectionEventComplete)
		if err != nil {
			return err
		}
		c.Status = next
		touch(c)
		completed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if completed {
		s.complete(ctx, updated)
	}
	return completed, nil
}

// SelfSign lets the creator of a SelfSign collection act on it directly: Opened
// marks it Viewed, Completed marks it Signed and Declined marks it Declined.
func (s *CollectionService) SelfSign(
	ctx context.Context,
	caller domain.Caller,
	collectionID string,
	event domain.SignerEvent,
) (domain.DocumentCollection, error) {
	if err := s.checkProgram(ctx, caller.AccountID); err != nil {
		return domain.DocumentCollection{}, err
	}
	current, err := s.load(ctx, collectionID)
	if err != nil {
		return domain.DocumentCollection{}, err
	}
	if current.Mode != domain.ModeSelfSign {
		return domain.DocumentCollection{}, domain.ErrInvalidMode.With("collection is not self-signed")
	}
	if current.UserID != caller.UserID {
		return domain.DocumentCollection{}, domain.ErrDocumentNotBelongToUserGroup.With(collectionID)
	}

	var target domain.CollectionEvent
	switch event {
	case domain.SignerEventOpened:
		target = domain.CollectionEventView
	case domain.SignerEventCompleted:
		target = domain.CollectionEventComplete
	case domain.SignerEventDeclined:
		target = domain.CollectionEventDecline
	default:
		return domain.DocumentCollection{}, &domain.TransitionError{Event: string(event), Current: string(current.Status)}
	}

	var completed bool
	updated, err := s.repo.Update(ctx, collectionID, func(c *domain.DocumentCollection) error {
		completed = false
		switch {
		case target == domain.CollectionEventComplete && c.Status == domain.StatusSigned:
			return domain.ErrDocumentAlreadySignedBySigner.With(collectionID)
		case target == domain.CollectionEventView && c.Status == domain.StatusViewed:
			return nil
		case c.Status.Terminal():
			return domain.ErrCannotModifyFinalizedDocument.With(string(c.Status))
		}
		next, err := s.validator.ApplyCollection(ctx, c.Status, target)
		if err != nil {
			return err
		}
		completed = next == domain.StatusSigned
		c.Status = next
		touch(c)
		return nil
	})
	if err != nil {
		return domain.DocumentCollection{}, err
	}

	s.logger.InfoContext(ctx, "self-sign collection advanced",
		"collection_id", collectionID, "event", event, "status", updated.Status)
	if completed {
		s.complete(ctx, updated)
	}
	return updated, nil
}
