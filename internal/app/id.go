package app

import "github.com/google/uuid"

// newID produces a random identifier for collections, documents, signers and groups.
func newID() string {
	return uuid.NewString()
}
