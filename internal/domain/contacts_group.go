package domain

import (
	"fmt"
	"time"
)

const (
	// MaxContactsGroupMembers is the largest membership a contacts group may have.
	MaxContactsGroupMembers = 25
	// MaxContactsGroupsPerOwner is how many contacts groups one owner may keep.
	MaxContactsGroupsPerOwner = 30
)

// ContactsGroupMember references a contact from the owner's directory.
type ContactsGroupMember struct {
	ContactID string
	Order     int
}

// ContactsGroup is a named, ordered list of signing parties used for distribution.
type ContactsGroup struct {
	ID        string
	OwnerID   string
	Name      string
	Members   []ContactsGroupMember
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateMembers checks membership size and uniqueness. Contact ownership and
// activity are checked against the party directory by the application layer.
func (g ContactsGroup) ValidateMembers() error {
	if len(g.Members) > MaxContactsGroupMembers {
		return ErrContactsGroupMembersExceedLimit.With(
			fmt.Sprintf("%d members, at most %d allowed", len(g.Members), MaxContactsGroupMembers))
	}
	seen := make(map[string]struct{}, len(g.Members))
	for _, m := range g.Members {
		if _, dup := seen[m.ContactID]; dup {
			return ErrDuplicateContactsGroupMember.With(m.ContactID)
		}
		seen[m.ContactID] = struct{}{}
	}
	return nil
}
