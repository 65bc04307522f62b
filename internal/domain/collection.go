package domain

import (
	"strings"
	"time"
	"unicode"
)

// Status represents the lifecycle state of a document collection.
type Status string

const (
	StatusCreated  Status = "created"
	StatusSent     Status = "sent"
	StatusViewed   Status = "viewed"
	StatusSigned   Status = "signed"
	StatusDeclined Status = "declined"
	StatusCanceled Status = "canceled"
	StatusDeleted  Status = "deleted"
)

// rank orders the forward progress states. Terminal states share the top rank.
func (s Status) rank() int {
	switch s {
	case StatusCreated:
		return 0
	case StatusSent:
		return 1
	case StatusViewed:
		return 2
	default:
		return 3
	}
}

// Terminal reports whether no further signer activity is accepted in this state.
func (s Status) Terminal() bool {
	switch s {
	case StatusSigned, StatusDeclined, StatusCanceled, StatusDeleted:
		return true
	}
	return false
}

// CollectionEvent triggers a collection-level state transition.
type CollectionEvent string

const (
	CollectionEventSend     CollectionEvent = "send"
	CollectionEventView     CollectionEvent = "view"
	CollectionEventComplete CollectionEvent = "complete"
	CollectionEventDecline  CollectionEvent = "decline"
	CollectionEventCancel   CollectionEvent = "cancel"
	CollectionEventDelete   CollectionEvent = "delete"
)

// SignerStatus represents one party's progress on a collection.
type SignerStatus string

const (
	SignerStatusCreated  SignerStatus = "created"
	SignerStatusSent     SignerStatus = "sent"
	SignerStatusViewed   SignerStatus = "viewed"
	SignerStatusSigned   SignerStatus = "signed"
	SignerStatusRejected SignerStatus = "rejected"
	SignerStatusReplaced SignerStatus = "replaced"
)

// SignerEvent is an action reported for a single signer.
type SignerEvent string

const (
	SignerEventDelivered SignerEvent = "delivered"
	SignerEventOpened    SignerEvent = "opened"
	SignerEventCompleted SignerEvent = "completed"
	SignerEventDeclined  SignerEvent = "declined"

	// SignerEventReplace is raised internally by signer replacement.
	SignerEventReplace SignerEvent = "replace"
)

// Transition defines a valid state change: an event moves an entity from Src to Dst.
type Transition[S ~string, E ~string] struct {
	Event E
	Src   S
	Dst   S
}

// CollectionTransitions defines all valid state changes of a document collection.
var CollectionTransitions = []Transition[Status, CollectionEvent]{
	{Event: CollectionEventSend, Src: StatusCreated, Dst: StatusSent},
	{Event: CollectionEventView, Src: StatusCreated, Dst: StatusViewed},
	{Event: CollectionEventView, Src: StatusSent, Dst: StatusViewed},
	{Event: CollectionEventComplete, Src: StatusCreated, Dst: StatusSigned},
	{Event: CollectionEventComplete, Src: StatusSent, Dst: StatusSigned},
	{Event: CollectionEventComplete, Src: StatusViewed, Dst: StatusSigned},
	{Event: CollectionEventDecline, Src: StatusCreated, Dst: StatusDeclined},
	{Event: CollectionEventDecline, Src: StatusSent, Dst: StatusDeclined},
	{Event: CollectionEventDecline, Src: StatusViewed, Dst: StatusDeclined},
	{Event: CollectionEventCancel, Src: StatusCreated, Dst: StatusCanceled},
	{Event: CollectionEventCancel, Src: StatusSent, Dst: StatusCanceled},
	{Event: CollectionEventCancel, Src: StatusViewed, Dst: StatusCanceled},
	{Event: CollectionEventDelete, Src: StatusCreated, Dst: StatusDeleted},
	{Event: CollectionEventDelete, Src: StatusSent, Dst: StatusDeleted},
	{Event: CollectionEventDelete, Src: StatusViewed, Dst: StatusDeleted},
	{Event: CollectionEventDelete, Src: StatusSigned, Dst: StatusDeleted},
	{Event: CollectionEventDelete, Src: StatusDeclined, Dst: StatusDeleted},
	{Event: CollectionEventDelete, Src: StatusCanceled, Dst: StatusDeleted},
}

// SignerTransitions defines all valid state changes of a signer.
var SignerTransitions = []Transition[SignerStatus, SignerEvent]{
	{Event: SignerEventDelivered, Src: SignerStatusCreated, Dst: SignerStatusSent},
	{Event: SignerEventOpened, Src: SignerStatusCreated, Dst: SignerStatusViewed},
	{Event: SignerEventOpened, Src: SignerStatusSent, Dst: SignerStatusViewed},
	{Event: SignerEventCompleted, Src: SignerStatusSent, Dst: SignerStatusSigned},
	{Event: SignerEventCompleted, Src: SignerStatusViewed, Dst: SignerStatusSigned},
	{Event: SignerEventDeclined, Src: SignerStatusSent, Dst: SignerStatusRejected},
	{Event: SignerEventDeclined, Src: SignerStatusViewed, Dst: SignerStatusRejected},
	{Event: SignerEventReplace, Src: SignerStatusCreated, Dst: SignerStatusReplaced},
	{Event: SignerEventReplace, Src: SignerStatusSent, Dst: SignerStatusReplaced},
	{Event: SignerEventReplace, Src: SignerStatusViewed, Dst: SignerStatusReplaced},
}

// SendingMethod is how a signer receives the signing link.
type SendingMethod string

const (
	SendingMethodEmail SendingMethod = "email"
	SendingMethodSMS   SendingMethod = "sms"
)

// AuthMode is the identity check a signer must pass before acting.
type AuthMode string

const (
	AuthNone                 AuthMode = "none"
	AuthOTP                  AuthMode = "otp"
	AuthVisualIdentification AuthMode = "visual_identification"
)

// OTPMode selects where a one-time password is delivered.
type OTPMode string

const (
	OTPNone  OTPMode = "none"
	OTPEmail OTPMode = "email"
	OTPSMS   OTPMode = "sms"
)

// Contact is a signing party as known to the party directory.
type Contact struct {
	ID      string
	OwnerID string
	Name    string
	Email   string
	Phone   string
	Deleted bool
}

// Supports reports whether the contact has the communication means the method needs.
func (c Contact) Supports(method SendingMethod) bool {
	switch method {
	case SendingMethodEmail:
		return strings.TrimSpace(c.Email) != ""
	case SendingMethodSMS:
		return strings.TrimSpace(c.Phone) != ""
	}
	return false
}

// Authentication is the identity check configured for a signer.
type Authentication struct {
	Mode    AuthMode
	OTPMode OTPMode
}

// Appendix is a supplementary attachment stored under BlobKey.
type Appendix struct {
	Name    string
	BlobKey string
}

// Document is one file within a collection.
type Document struct {
	ID         string
	TemplateID string
	Name       string
}

// BlobKey is where the rendered file for this document is stored.
func (d Document) BlobKey(collectionID string) string {
	return "collections/" + collectionID + "/" + d.ID + ".pdf"
}

// FieldValue is a value supplied for a named template field.
type FieldValue struct {
	TemplateID string
	Name       string
	Value      string
}

// SignerField assigns a template field to a signer.
type SignerField struct {
	TemplateID string
	Name       string
}

// Signer is one party's relationship to a document collection.
type Signer struct {
	ID             string
	Contact        Contact
	SendingMethod  SendingMethod
	Order          int
	Status         SignerStatus
	Authentication Authentication
	Appendices     []Appendix
	Fields         []SignerField
	UpdatedAt      time.Time
}

// DocumentCollection is the unit of one or more documents sent together for signature.
type DocumentCollection struct {
	ID               string
	AccountID        string
	GroupID          string
	UserID           string
	Name             string
	Mode             Mode
	Status           Status
	Documents        []Document
	Signers          []Signer
	SenderAppendices []Appendix
	Fields           []FieldValue
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewCollection creates a collection in the initial "created" state owned by the caller.
func NewCollection(id string, caller Caller, name string, mode Mode) DocumentCollection {
	now := time.Now().UTC()
	return DocumentCollection{
		ID:        id,
		AccountID: caller.AccountID,
		GroupID:   caller.GroupID,
		UserID:    caller.UserID,
		Name:      name,
		Mode:      mode,
		Status:    StatusCreated,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SignerIndex returns the position of the signer with the given id, or -1.
func (c *DocumentCollection) SignerIndex(signerID string) int {
	for i := range c.Signers {
		if c.Signers[i].ID == signerID {
			return i
		}
	}
	return -1
}

// PredecessorsSigned reports whether every signer with a strictly lower Order is Signed.
func (c *DocumentCollection) PredecessorsSigned(s Signer) bool {
	for _, other := range c.Signers {
		if other.Order < s.Order && other.Status != SignerStatusSigned {
			return false
		}
	}
	return true
}

// OwnedBy reports whether the caller's group owns the collection.
func (c *DocumentCollection) OwnedBy(caller Caller) bool {
	return c.GroupID == caller.GroupID
}

// SanitizeAppendixName replaces every whitespace character with an underscore.
// Applying it to an already sanitized name returns the name unchanged.
func SanitizeAppendixName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, name)
}

// SanitizeAppendices rewrites the names of the collection's sender and signer appendices in place.
func (c *DocumentCollection) SanitizeAppendices() {
	for i := range c.SenderAppendices {
		c.SenderAppendices[i].Name = SanitizeAppendixName(c.SenderAppendices[i].Name)
	}
	for i := range c.Signers {
		for j := range c.Signers[i].Appendices {
			c.Signers[i].Appendices[j].Name = SanitizeAppendixName(c.Signers[i].Appendices[j].Name)
		}
	}
}

// ShouldComplete is the completion rule: true iff every signer is Signed.
// A collection without signers is vacuously complete.
func ShouldComplete(c DocumentCollection) bool {
	for _, s := range c.Signers {
		if s.Status != SignerStatusSigned {
			return false
		}
	}
	return true
}

// PromotionEvent derives the collection event implied by the current signer states,
// or "" when the collection status already reflects them. Status never moves backwards.
func PromotionEvent(c DocumentCollection) CollectionEvent {
	if c.Status.Terminal() {
		return ""
	}

	var target Status
	var event CollectionEvent
	switch {
	case anySigner(c.Signers, SignerStatusRejected):
		return CollectionEventDecline
	case len(c.Signers) > 0 && ShouldComplete(c):
		return CollectionEventComplete
	case anySigner(c.Signers, SignerStatusViewed, SignerStatusSigned):
		target, event = StatusViewed, CollectionEventView
	case anySigner(c.Signers, SignerStatusSent):
		target, event = StatusSent, CollectionEventSend
	default:
		return ""
	}

	if target.rank() <= c.Status.rank() {
		return ""
	}
	return event
}

func anySigner(signers []Signer, statuses ...SignerStatus) bool {
	for _, s := range signers {
		for _, st := range statuses {
			if s.Status == st {
				return true
			}
		}
	}
	return false
}
