package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neomorfeo/docsign/internal/domain"
)

// Collaborators are the external systems the collection workflow consults.
type Collaborators struct {
	Quota      domain.QuotaService
	Directory  domain.PartyDirectory
	Templates  domain.TemplateStore
	Notifier   domain.Notifier
	Appendices domain.AppendixFinalizer
	Access     domain.AccessRevoker
	Blobs      domain.BlobStore
}

// CollectionService orchestrates the document collection signing workflow.
type CollectionService struct {
	repo       domain.CollectionRepository
	validator  domain.TransitionValidator
	quota      domain.QuotaService
	directory  domain.PartyDirectory
	templates  domain.TemplateStore
	notifier   domain.Notifier
	appendices domain.AppendixFinalizer
	access     domain.AccessRevoker
	blobs      domain.BlobStore
	logger     *slog.Logger
}

// NewCollectionService creates a service with the given adapters.
func NewCollectionService(
	repo domain.CollectionRepository,
	validator domain.TransitionValidator,
	collab Collaborators,
	logger *slog.Logger,
) *CollectionService {
	return &CollectionService{
		repo:       repo,
		validator:  validator,
		quota:      collab.Quota,
		directory:  collab.Directory,
		templates:  collab.Templates,
		notifier:   collab.Notifier,
		appendices: collab.Appendices,
		access:     collab.Access,
		blobs:      collab.Blobs,
		logger:     logger.With("service", "collections"),
	}
}

// ReadCollection returns a collection the caller may see.
func (s *CollectionService) ReadCollection(ctx context.Context, caller domain.Caller, id string) (domain.DocumentCollection, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return domain.DocumentCollection{}, err
	}
	if err := authorizeRead(caller, c); err != nil {
		return domain.DocumentCollection{}, err
	}
	return c, nil
}

// ListCollections returns the caller group's collections matching the filter.
func (s *CollectionService) ListCollections(ctx context.Context, caller domain.Caller, filter domain.ListFilter) ([]domain.DocumentCollection, error) {
	filter.GroupID = caller.GroupID
	return s.repo.List(ctx, filter)
}

// load fetches a collection, hiding soft-deleted ones.
func (s *CollectionService) load(ctx context.Context, id string) (domain.DocumentCollection, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.DocumentCollection{}, err
	}
	if c.Status == domain.StatusDeleted {
		return domain.DocumentCollection{}, domain.ErrInvalidDocumentCollectionID.With(id)
	}
	return c, nil
}

// authorizeRead enforces group ownership. SelfSign collections stay readable by
// their creator from any group.
func authorizeRead(caller domain.Caller, c domain.DocumentCollection) error {
	if c.OwnedBy(caller) {
		return nil
	}
	policy, err := c.Mode.Policy()
	if err != nil {
		return err
	}
	if policy.CreatorReadsAnyGroup && c.UserID == caller.UserID {
		return nil
	}
	return domain.ErrDocumentNotBelongToUserGroup.With(c.ID)
}

// authorizeEdit enforces the editor-or-admin role, then group ownership.
func authorizeEdit(caller domain.Caller, c domain.DocumentCollection) error {
	if !caller.CanEdit() {
		return domain.ErrOperationNotAllowedByUserRole
	}
	if !c.OwnedBy(caller) {
		return domain.ErrDocumentNotBelongToUserGroup.With(c.ID)
	}
	return nil
}

func (s *CollectionService) checkProgram(ctx context.Context, accountID string) error {
	expired, err := s.quota.ProgramExpired(ctx, accountID)
	if err != nil {
		return fmt.Errorf("checking program expiry: %w", err)
	}
	if expired {
		return domain.ErrUserProgramExpired.With(accountID)
	}
	return nil
}

func (s *CollectionService) checkDocumentQuota(ctx context.Context, accountID string, count int) error {
	ok, err := s.quota.CanAddDocument(ctx, accountID, count)
	if err != nil {
		return fmt.Errorf("checking document quota: %w", err)
	}
	if !ok {
		return domain.ErrDocumentsExceedLicenseLimit.With(fmt.Sprintf("%d requested", count))
	}
	return nil
}

func (s *CollectionService) checkSmsQuota(ctx context.Context, accountID string, count int) error {
	if count == 0 {
		return nil
	}
	ok, err := s.quota.CanAddSms(ctx, accountID, count)
	if err != nil {
		return fmt.Errorf("checking sms quota: %w", err)
	}
	if !ok {
		return domain.ErrSmsExceedLicenseLimit.With(fmt.Sprintf("%d requested", count))
	}
	return nil
}

func (s *CollectionService) checkVisualIdentificationQuota(ctx context.Context, accountID string, count int) error {
	if count == 0 {
		return nil
	}
	ok, err := s.quota.CanAddVisualIdentifications(ctx, accountID, count)
	if err != nil {
		return fmt.Errorf("checking visual identification quota: %w", err)
	}
	if !ok {
		return domain.ErrVisualIdentificationsExceedLimit.With(fmt.Sprintf("%d requested", count))
	}
	return nil
}

// notify reports a status change. Dispatch failures never fail the operation.
func (s *CollectionService) notify(ctx context.Context, kind domain.NotificationKind, c domain.DocumentCollection, signer *domain.Signer) {
	n := domain.Notification{Kind: kind, Collection: c, Signer: signer}
	if err := s.notifier.Notify(ctx, n); err != nil {
		attrs := []any{"kind", kind, "collection_id", c.ID, "error", err}
		if signer != nil {
			attrs = append(attrs, "signer_id", signer.ID)
		}
		s.logger.WarnContext(ctx, "notification dispatch failed", attrs...)
	}
}

func (s *CollectionService) revoke(ctx context.Context, c domain.DocumentCollection, signerIDs []string) {
	if len(signerIDs) == 0 {
		return
	}
	if err := s.access.Revoke(ctx, c.ID, signerIDs); err != nil {
		s.logger.ErrorContext(ctx, "revoking signer access failed",
			"collection_id", c.ID,
			"signers", signerIDs,
			"error", err,
		)
	}
}

// dispatch invites every signer that may act now and has not been invited yet.
// Under ordered signing only signers whose predecessors have all signed are
// eligible; after is the lowest Order considered, so already-invited peers are skipped.
func (s *CollectionService) dispatch(ctx context.Context, c domain.DocumentCollection, after int) {
	policy, err := c.Mode.Policy()
	if err != nil || !policy.Distributes || c.Status.Terminal() {
		return
	}

	for i := range c.Signers {
		signer := c.Signers[i]
		if signer.Status != domain.SignerStatusCreated || signer.Order < after {
			continue
		}
		if policy.Ordered && !c.PredecessorsSigned(signer) {
			continue
		}
		s.invite(ctx, c, signer)
	}
}

func (s *CollectionService) invite(ctx context.Context, c domain.DocumentCollection, signer domain.Signer) {
	if signer.SendingMethod == domain.SendingMethodSMS {
		if err := s.quota.AddSms(ctx, c.AccountID, 1); err != nil {
			s.logger.WarnContext(ctx, "sms reservation failed, signer not invited",
				"collection_id", c.ID,
				"signer_id", signer.ID,
				"error", err,
			)
			return
		}
	}
	s.notify(ctx, domain.NotifyDocumentSent, c, &signer)
}

// complete runs the post-completion side effects of a collection that has just
// reached Signed. Callers guarantee it runs once per collection.
func (s *CollectionService) complete(ctx context.Context, c domain.DocumentCollection) {
	s.logger.InfoContext(ctx, "collection signed", "collection_id", c.ID, "signers", len(c.Signers))
	s.notify(ctx, domain.NotifyAllSigned, c, nil)
	if err := s.appendices.FinalizeAppendices(ctx, c); err != nil {
		s.logger.ErrorContext(ctx, "appendix finalization failed", "collection_id", c.ID, "error", err)
	}
}

// promote applies the collection event implied by the signer states and reports
// whether the collection has just reached Signed. It must run inside a repository
// Update so the decision is made on the last writer's view of the signers.
func (s *CollectionService) promote(ctx context.Context, c *domain.DocumentCollection) (bool, error) {
	event := domain.PromotionEvent(*c)
	if event == "" {
		return false, nil
	}
	next, err := s.validator.ApplyCollection(ctx, c.Status, event)
	if err != nil {
		return false, err
	}
	completed := next == domain.StatusSigned && c.Status != domain.StatusSigned
	c.Status = next
	return completed, nil
}

func touch(c *domain.DocumentCollection) {
	c.UpdatedAt = time.Now().UTC()
}
