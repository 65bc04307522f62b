package river

import (
	"context"
	"fmt"

	"github.com/neomorfeo/docsign/internal/domain"
)

var _ domain.AppendixFinalizer = (*Finalizer)(nil)

// FinalizeAppendicesArgs lists the appendix blobs of a completed collection.
type FinalizeAppendicesArgs struct {
	CollectionID string   `json:"collection_id"`
	BlobKeys     []string `json:"blob_keys"`
}

func (FinalizeAppendicesArgs) Kind() string { return "appendices.finalize" }

// Finalizer implements domain.AppendixFinalizer by enqueuing a River job.
type Finalizer struct {
	client *Client
}

func NewFinalizer(client *Client) *Finalizer {
	return &Finalizer{client: client}
}

func (f *Finalizer) FinalizeAppendices(ctx context.Context, c domain.DocumentCollection) error {
	args := FinalizeAppendicesArgs{CollectionID: c.ID, BlobKeys: appendixKeys(c)}
	if _, err := f.client.Insert(ctx, args, nil); err != nil {
		return fmt.Errorf("enqueuing appendix finalization job: %w", err)
	}
	return nil
}

// appendixKeys skips appendices that were never uploaded.
func appendixKeys(c domain.DocumentCollection) []string {
	keys := make([]string, 0, len(c.SenderAppendices))
	add := func(as []domain.Appendix) {
		for _, a := range as {
			if a.BlobKey != "" {
				keys = append(keys, a.BlobKey)
			}
		}
	}
	add(c.SenderAppendices)
	for _, s := range c.Signers {
		add(s.Appendices)
	}
	return keys
}
