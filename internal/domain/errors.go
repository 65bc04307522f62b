package domain

import (
	"errors"
	"fmt"
)

// Kind groups error codes by the class of failure.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindOwnership        Kind = "ownership"
	KindForbidden        Kind = "forbidden"
	KindQuotaExceeded    Kind = "quota_exceeded"
	KindInvalidState     Kind = "invalid_state"
	KindValidationFailed Kind = "validation_failed"
	KindExpired          Kind = "expired"
	KindUpstream         Kind = "upstream"
)

// Code is a stable, machine-readable failure identifier for presentation layers.
type Code string

const (
	CodeInvalidDocumentCollectionID          Code = "InvalidDocumentCollectionId"
	CodeInvalidSignerID                      Code = "InvalidSignerId"
	CodeInvalidTemplateID                    Code = "InvalidTemplateId"
	CodeInvalidContactID                     Code = "InvalidContactId"
	CodeInvalidContactsGroupID               Code = "InvalidContactsGroupId"
	CodeDocumentNotBelongToUserGroup         Code = "DocumentNotBelongToUserGroup"
	CodeTemplateNotBelongToUserGroup         Code = "TemplateNotBelongToUserGroup"
	CodeContactNotBelongToUser               Code = "ContactNotBelongToUser"
	CodeContactsGroupNotBelongToUser         Code = "ContactsGroupNotBelongToUser"
	CodeOperationNotAllowedByUserRole        Code = "OperationNotAllowedByUserRole"
	CodeDocumentsExceedLicenseLimit          Code = "DocumentsExceedLicenseLimit"
	CodeSmsExceedLicenseLimit                Code = "SmsExceedLicenseLimit"
	CodeVisualIdentificationsExceedLimit     Code = "VisualIdentificationsExceedLicenseLimit"
	CodeDocumentAlreadySignedBySigner        Code = "DocumentAlreadySignedBySigner"
	CodeCannotCancelSignedDocument           Code = "CannotCancelSignedDocument"
	CodeDocumentAlreadyCanceled              Code = "DocumentAlreadyCanceled"
	CodeCannotDownloadUnsignedDocument       Code = "CannotDownloadUnsignedDocument"
	CodeCannotModifyFinalizedDocument        Code = "CannotModifyFinalizedDocument"
	CodeInvalidStateTransition               Code = "InvalidStateTransition"
	CodeConcurrentUpdate                     Code = "ConcurrentUpdate"
	CodeNullInput                            Code = "NullInput"
	CodeInvalidMode                          Code = "InvalidMode"
	CodeInvalidSendingMethod                 Code = "InvalidSendingMethod"
	CodeInvalidFieldName                     Code = "InvalidFieldName"
	CodeInvalidSignersCount                  Code = "InvalidSignersCount"
	CodeSignerOrderViolation                 Code = "SignerOrderViolation"
	CodeContactDeleted                       Code = "ContactDeleted"
	CodeDuplicateContactsGroupMember         Code = "DuplicateContactsGroupMember"
	CodeContactsGroupMembersExceedLimit      Code = "ContactsGroupMembersExceedLimit"
	CodeContactsGroupsExceedLimit            Code = "ContactsGroupsExceedLimit"
	CodeUserProgramExpired                   Code = "UserProgramExpired"
	CodeFileNotFound                         Code = "FileNotFound"
)

// Error is the typed failure returned by every core operation.
// Two errors are equal under errors.Is when their codes match.
type Error struct {
	Code   Code
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// With returns a copy of e carrying detail.
func (e *Error) With(detail string) *Error {
	return &Error{Code: e.Code, Kind: e.Kind, Detail: detail}
}

func newError(kind Kind, code Code) *Error {
	return &Error{Code: code, Kind: kind}
}

// Sentinel errors. Compare with errors.Is; attach context with With.
var (
	ErrInvalidDocumentCollectionID      = newError(KindNotFound, CodeInvalidDocumentCollectionID)
	ErrInvalidSignerID                  = newError(KindNotFound, CodeInvalidSignerID)
	ErrInvalidTemplateID                = newError(KindNotFound, CodeInvalidTemplateID)
	ErrInvalidContactID                 = newError(KindNotFound, CodeInvalidContactID)
	ErrInvalidContactsGroupID           = newError(KindNotFound, CodeInvalidContactsGroupID)
	ErrDocumentNotBelongToUserGroup     = newError(KindOwnership, CodeDocumentNotBelongToUserGroup)
	ErrTemplateNotBelongToUserGroup     = newError(KindOwnership, CodeTemplateNotBelongToUserGroup)
	ErrContactNotBelongToUser           = newError(KindOwnership, CodeContactNotBelongToUser)
	ErrContactsGroupNotBelongToUser     = newError(KindOwnership, CodeContactsGroupNotBelongToUser)
	ErrOperationNotAllowedByUserRole    = newError(KindForbidden, CodeOperationNotAllowedByUserRole)
	ErrDocumentsExceedLicenseLimit      = newError(KindQuotaExceeded, CodeDocumentsExceedLicenseLimit)
	ErrSmsExceedLicenseLimit            = newError(KindQuotaExceeded, CodeSmsExceedLicenseLimit)
	ErrVisualIdentificationsExceedLimit = newError(KindQuotaExceeded, CodeVisualIdentificationsExceedLimit)
	ErrDocumentAlreadySignedBySigner    = newError(KindInvalidState, CodeDocumentAlreadySignedBySigner)
	ErrCannotCancelSignedDocument       = newError(KindInvalidState, CodeCannotCancelSignedDocument)
	ErrDocumentAlreadyCanceled          = newError(KindInvalidState, CodeDocumentAlreadyCanceled)
	ErrCannotDownloadUnsignedDocument   = newError(KindInvalidState, CodeCannotDownloadUnsignedDocument)
	ErrCannotModifyFinalizedDocument    = newError(KindInvalidState, CodeCannotModifyFinalizedDocument)
	ErrConcurrentUpdate                 = newError(KindInvalidState, CodeConcurrentUpdate)
	ErrNullInput                        = newError(KindValidationFailed, CodeNullInput)
	ErrInvalidMode                      = newError(KindValidationFailed, CodeInvalidMode)
	ErrInvalidSendingMethod             = newError(KindValidationFailed, CodeInvalidSendingMethod)
	ErrInvalidFieldName                 = newError(KindValidationFailed, CodeInvalidFieldName)
	ErrInvalidSignersCount              = newError(KindValidationFailed, CodeInvalidSignersCount)
	ErrSignerOrderViolation             = newError(KindValidationFailed, CodeSignerOrderViolation)
	ErrContactDeleted                   = newError(KindValidationFailed, CodeContactDeleted)
	ErrDuplicateContactsGroupMember     = newError(KindValidationFailed, CodeDuplicateContactsGroupMember)
	ErrContactsGroupMembersExceedLimit  = newError(KindValidationFailed, CodeContactsGroupMembersExceedLimit)
	ErrContactsGroupsExceedLimit        = newError(KindValidationFailed, CodeContactsGroupsExceedLimit)
	ErrUserProgramExpired               = newError(KindExpired, CodeUserProgramExpired)
	ErrFileNotFound                     = newError(KindUpstream, CodeFileNotFound)
)

// TransitionError is returned when a state transition is not allowed.
type TransitionError struct {
	Event   string
	Current string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}

// Is lets errors.Is(err, &Error{Code: CodeInvalidStateTransition}) match transition failures.
func (e *TransitionError) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == CodeInvalidStateTransition
}

// BatchError reports a Distribute call that stopped partway. Committed holds the ids
// of the collections created before the failing item; they are not rolled back.
type BatchError struct {
	Index     int
	Committed []string
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("distribution stopped at item %d after %d committed: %v", e.Index, len(e.Committed), e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// CodeOf returns the stable code carried by err, or "" for untyped errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var tr *TransitionError
	if errors.As(err, &tr) {
		return CodeInvalidStateTransition
	}
	return ""
}

// KindOf returns the failure class of err. Untyped errors are reported as Upstream.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var tr *TransitionError
	if errors.As(err, &tr) {
		return KindInvalidState
	}
	return KindUpstream
}
