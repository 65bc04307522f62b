package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/neomorfeo/docsign/internal/domain"
)

// ContactsGroupService manages the caller's contacts groups and distributes
// documents to their members.
type ContactsGroupService struct {
	repo        domain.ContactsGroupRepository
	directory   domain.PartyDirectory
	collections *CollectionService
	logger      *slog.Logger
}

// NewContactsGroupService creates a service distributing through collections.
func NewContactsGroupService(
	repo domain.ContactsGroupRepository,
	directory domain.PartyDirectory,
	collections *CollectionService,
	logger *slog.Logger,
) *ContactsGroupService {
	return &ContactsGroupService{
		repo:        repo,
		directory:   directory,
		collections: collections,
		logger:      logger.With("service", "contacts_groups"),
	}
}

// CreateContactsGroup stores a new group owned by the caller.
func (s *ContactsGroupService) CreateContactsGroup(
	ctx context.Context,
	caller domain.Caller,
	name string,
	members []domain.ContactsGroupMember,
) (domain.ContactsGroup, error) {
	count, err := s.repo.CountByOwner(ctx, caller.UserID)
	if err != nil {
		return domain.ContactsGroup{}, fmt.Errorf("counting contacts groups: %w", err)
	}
	if count >= domain.MaxContactsGroupsPerOwner {
		return domain.ContactsGroup{}, domain.ErrContactsGroupsExceedLimit.With(
			fmt.Sprintf("at most %d groups allowed", domain.MaxContactsGroupsPerOwner))
	}

	now := time.Now().UTC()
	g := domain.ContactsGroup{
		ID:        newID(),
		OwnerID:   caller.UserID,
		Name:      name,
		Members:   normalizeMembers(members),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.validate(ctx, caller, g); err != nil {
		return domain.ContactsGroup{}, err
	}
	if err := s.repo.Create(ctx, g); err != nil {
		return domain.ContactsGroup{}, fmt.Errorf("creating contacts group: %w", err)
	}

	s.logger.InfoContext(ctx, "contacts group created", "group_id", g.ID, "members", len(g.Members))
	return g, nil
}

// ReadContactsGroup returns one of the caller's groups.
func (s *ContactsGroupService) ReadContactsGroup(ctx context.Context, caller domain.Caller, id string) (domain.ContactsGroup, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.ContactsGroup{}, err
	}
	if g.OwnerID != caller.UserID {
		return domain.ContactsGroup{}, domain.ErrContactsGroupNotBelongToUser.With(id)
	}
	return g, nil
}

// UpdateContactsGroup renames a group and replaces its membership.
func (s *ContactsGroupService) UpdateContactsGroup(
	ctx context.Context,
	caller domain.Caller,
	id, name string,
	members []domain.ContactsGroupMember,
) (domain.ContactsGroup, error) {
	g, err := s.ReadContactsGroup(ctx, caller, id)
	if err != nil {
		return domain.ContactsGroup{}, err
	}
	g.Name = name
	g.Members = normalizeMembers(members)
	g.UpdatedAt = time.Now().UTC()
	if err := s.validate(ctx, caller, g); err != nil {
		return domain.ContactsGroup{}, err
	}
	if err := s.repo.Update(ctx, g); err != nil {
		return domain.ContactsGroup{}, fmt.Errorf("updating contacts group: %w", err)
	}
	return g, nil
}

// DeleteContactsGroup removes one of the caller's groups.
func (s *ContactsGroupService) DeleteContactsGroup(ctx context.Context, caller domain.Caller, id string) error {
	if _, err := s.ReadContactsGroup(ctx, caller, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// DistributionRequest sends the same documents to every member of a contacts group.
type DistributionRequest struct {
	ContactsGroupID string
	Name            string
	Documents       []domain.Document
	SendingMethod   domain.SendingMethod
}

// DistributeToContactsGroup creates one collection per group member, in member
// order, and distributes them as a single batch.
func (s *ContactsGroupService) DistributeToContactsGroup(
	ctx context.Context,
	caller domain.Caller,
	req DistributionRequest,
) ([]string, error) {
	g, err := s.ReadContactsGroup(ctx, caller, req.ContactsGroupID)
	if err != nil {
		return nil, err
	}
	method := req.SendingMethod
	if method == "" {
		method = domain.SendingMethodEmail
	}

	batch := make([]domain.DocumentCollection, 0, len(g.Members))
	for _, m := range g.Members {
		contact, err := s.directory.ResolveContact(ctx, m.ContactID)
		if err != nil {
			return nil, err
		}
		if contact.Deleted {
			return nil, domain.ErrContactDeleted.With(m.ContactID)
		}
		docs := make([]domain.Document, len(req.Documents))
		copy(docs, req.Documents)
		batch = append(batch, domain.DocumentCollection{
			Name:      req.Name,
			Mode:      domain.ModeGroupSign,
			Documents: docs,
			Signers: []domain.Signer{{
				Contact:       contact,
				SendingMethod: method,
			}},
		})
	}

	return s.collections.Distribute(ctx, caller, batch)
}

// validate checks membership limits and that every member is an active contact
// from the caller's own directory.
func (s *ContactsGroupService) validate(ctx context.Context, caller domain.Caller, g domain.ContactsGroup) error {
	if err := g.ValidateMembers(); err != nil {
		return err
	}
	for _, m := range g.Members {
		contact, err := s.directory.ResolveContact(ctx, m.ContactID)
		if err != nil {
			return err
		}
		owned, err := s.directory.ContactBelongsToCaller(ctx, caller, m.ContactID)
		if err != nil {
			return fmt.Errorf("checking contact ownership: %w", err)
		}
		if !owned {
			return domain.ErrContactNotBelongToUser.With(m.ContactID)
		}
		if contact.Deleted {
			return domain.ErrContactDeleted.With(m.ContactID)
		}
	}
	return nil
}

// normalizeMembers orders members by their Order, keeping input order for ties,
// and renumbers them from 1.
func normalizeMembers(in []domain.ContactsGroupMember) []domain.ContactsGroupMember {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b domain.ContactsGroupMember) int {
		return a.Order - b.Order
	})
	for i := range out {
		out[i].Order = i + 1
	}
	return out
}
