package domain

import "context"

// CollectionRepository defines the persistence contract for document collections.
//
// Update is the only way to change a stored collection: the repository loads the
// aggregate, applies mutate and stores the result as one serialized unit, so
// concurrent callers never overwrite each other. If mutate returns an error
// nothing is written and that error is returned unchanged.
type CollectionRepository interface {
	Create(ctx context.Context, c DocumentCollection) error
	GetByID(ctx context.Context, id string) (DocumentCollection, error)
	List(ctx context.Context, filter ListFilter) ([]DocumentCollection, error)
	Update(ctx context.Context, id string, mutate func(*DocumentCollection) error) (DocumentCollection, error)
}

// ListFilter holds optional criteria for listing collections of one group.
type ListFilter struct {
	GroupID string
	Status  *Status
	Limit   int
	Offset  int
}

// ContactsGroupRepository persists contacts groups.
type ContactsGroupRepository interface {
	Create(ctx context.Context, g ContactsGroup) error
	GetByID(ctx context.Context, id string) (ContactsGroup, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	Update(ctx context.Context, g ContactsGroup) error
	Delete(ctx context.Context, id string) error
}

// QuotaService answers license questions for an account and records consumption.
// The Add methods reserve a unit and fail with a QuotaExceeded error when none is left.
type QuotaService interface {
	ProgramExpired(ctx context.Context, accountID string) (bool, error)
	CanAddDocument(ctx context.Context, accountID string, count int) (bool, error)
	CanAddSms(ctx context.Context, accountID string, count int) (bool, error)
	CanAddVisualIdentifications(ctx context.Context, accountID string, count int) (bool, error)
	AddDocument(ctx context.Context, accountID string) error
	AddSms(ctx context.Context, accountID string, count int) error
	AddVisualIdentification(ctx context.Context, accountID string) error
}

// PartyDirectory resolves signing parties.
type PartyDirectory interface {
	ResolveContact(ctx context.Context, contactID string) (Contact, error)
	ContactBelongsToCaller(ctx context.Context, caller Caller, contactID string) (bool, error)
	// GetOrCreateContact returns the caller's contact c.ID when set. Otherwise it
	// matches an active contact that can be reached through method, trying the
	// method's own means first, and creates one when none matches.
	GetOrCreateContact(ctx context.Context, caller Caller, c Contact, method SendingMethod) (Contact, error)
}

// FieldDefinition is a field declared by a template.
type FieldDefinition struct {
	Name     string
	Type     string
	Required bool
}

// Template is the metadata of a document template.
type Template struct {
	ID      string
	GroupID string
	Name    string
	Fields  []FieldDefinition
}

// TemplateStore resolves template metadata.
type TemplateStore interface {
	ReadTemplate(ctx context.Context, templateID string) (Template, error)
	TemplateBelongsToGroup(ctx context.Context, templateID, groupID string) (bool, error)
	FieldCatalog(ctx context.Context, templateID string) ([]FieldDefinition, error)
}

// NotificationKind names a status change reported to the notification dispatcher.
type NotificationKind string

const (
	NotifyDocumentSent     NotificationKind = "document_sent"
	NotifySignerDelivered  NotificationKind = "signer_delivered"
	NotifySignerViewed     NotificationKind = "signer_viewed"
	NotifySignerSigned     NotificationKind = "signer_signed"
	NotifySignerDeclined   NotificationKind = "signer_declined"
	NotifySignerReplaced   NotificationKind = "signer_replaced"
	NotifyDocumentCanceled NotificationKind = "document_canceled"
	NotifyDocumentDeleted  NotificationKind = "document_deleted"
	NotifyAllSigned        NotificationKind = "all_signed"
)

// Notification is one event for the dispatcher. Signer is nil for collection-wide events.
type Notification struct {
	Kind       NotificationKind
	Collection DocumentCollection
	Signer     *Signer
}

// Notifier dispatches notifications. Callers treat it as fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// AppendixFinalizer runs post-completion processing of a collection's appendices.
type AppendixFinalizer interface {
	FinalizeAppendices(ctx context.Context, c DocumentCollection) error
}

// AccessRevoker invalidates outstanding signer access to a collection.
type AccessRevoker interface {
	Revoke(ctx context.Context, collectionID string, signerIDs []string) error
}

// BlobStore reads stored files.
type BlobStore interface {
	// Get returns the blob content. Returns ErrFileNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// TransitionValidator applies state machine events.
type TransitionValidator interface {
	ApplyCollection(ctx context.Context, current Status, event CollectionEvent) (Status, error)
	ApplySigner(ctx context.Context, current SignerStatus, event SignerEvent) (SignerStatus, error)
}
