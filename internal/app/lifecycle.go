package app

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/neomorfeo/docsign/internal/domain"
)

// CollectionPatch holds the mutable parts of a collection. Nil fields are left unchanged.
type CollectionPatch struct {
	Name             *string
	Documents        []domain.Document
	SenderAppendices []domain.Appendix
}

// File is a downloadable artifact.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// UpdateCollection applies a metadata patch and field overrides to a collection
// that has not reached a terminal state.
func (s *CollectionService) UpdateCollection(
	ctx context.Context,
	caller domain.Caller,
	id string,
	patch CollectionPatch,
	fields []domain.FieldValue,
) (domain.DocumentCollection, error) {
	current, err := s.ReadCollection(ctx, caller, id)
	if err != nil {
		return domain.DocumentCollection{}, err
	}

	docs := current.Documents
	if patch.Documents != nil {
		docs = patch.Documents
	}
	catalog, err := s.resolveTemplates(ctx, caller, docs)
	if err != nil {
		return domain.DocumentCollection{}, err
	}
	if err := validateFields(catalog, fields, current.Signers); err != nil {
		return domain.DocumentCollection{}, err
	}

	updated, err := s.repo.Update(ctx, id, func(c *domain.DocumentCollection) error {
		if c.Status.Terminal() {
			return domain.ErrCannotModifyFinalizedDocument.With(string(c.Status))
		}
		if patch.Name != nil {
			c.Name = *patch.Name
		}
		if patch.Documents != nil {
			c.Documents = assignDocumentIDs(patch.Documents)
		}
		if patch.SenderAppendices != nil {
			c.SenderAppendices = patch.SenderAppendices
		}
		if fields != nil {
			c.Fields = fields
		}
		c.SanitizeAppendices()
		touch(c)
		return nil
	})
	if err != nil {
		return domain.DocumentCollection{}, err
	}

	s.logger.InfoContext(ctx, "collection updated", "collection_id", id, "version", updated.Version)
	return updated, nil
}

// CancelCollection moves a collection to Canceled, revokes outstanding signer
// access and notifies every signer.
func (s *CollectionService) CancelCollection(ctx context.Context, caller domain.Caller, id string) error {
	current, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := authorizeEdit(caller, current); err != nil {
		return err
	}

	canceled, err := s.repo.Update(ctx, id, func(c *domain.DocumentCollection) error {
		switch c.Status {
		case domain.StatusSigned:
			return domain.ErrCannotCancelSignedDocument.With(c.ID)
		case domain.StatusCanceled:
			return domain.ErrDocumentAlreadyCanceled.With(c.ID)
		}
		next, err := s.validator.ApplyCollection(ctx, c.Status, domain.CollectionEventCancel)
		if err != nil {
			return err
		}
		c.Status = next
		touch(c)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "collection canceled", "collection_id", id)
	s.revoke(ctx, canceled, activeSignerIDs(canceled))
	for i := range canceled.Signers {
		s.notify(ctx, domain.NotifyDocumentCanceled, canceled, &canceled.Signers[i])
	}
	return nil
}

// DeleteCollection soft-deletes a collection. Stored document bytes are kept.
func (s *CollectionService) DeleteCollection(ctx context.Context, caller domain.Caller, id string) error {
	current, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := authorizeEdit(caller, current); err != nil {
		return err
	}

	deleted, err := s.repo.Update(ctx, id, func(c *domain.DocumentCollection) error {
		next, err := s.validator.ApplyCollection(ctx, c.Status, domain.CollectionEventDelete)
		if err != nil {
			return err
		}
		c.Status = next
		touch(c)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "collection deleted", "collection_id", id)
	s.revoke(ctx, deleted, activeSignerIDs(deleted))
	s.notify(ctx, domain.NotifyDocumentDeleted, deleted, nil)
	return nil
}

// DownloadCollection returns the collection's signed files. A single document is
// returned as its PDF, several are bundled in a zip archive.
func (s *CollectionService) DownloadCollection(ctx context.Context, caller domain.Caller, id string) (File, error) {
	if err := s.checkProgram(ctx, caller.AccountID); err != nil {
		return File{}, err
	}
	c, err := s.load(ctx, id)
	if err != nil {
		return File{}, err
	}
	policy, err := c.Mode.Policy()
	if err != nil {
		return File{}, err
	}
	if !policy.CanDownload(c.Status) {
		return File{}, domain.ErrCannotDownloadUnsignedDocument.With(string(c.Status))
	}
	if err := authorizeRead(caller, c); err != nil {
		return File{}, err
	}
	if len(c.Documents) == 0 {
		return File{}, domain.ErrFileNotFound.With("collection " + c.ID + " has no documents")
	}

	contents := make([][]byte, len(c.Documents))
	for i, doc := range c.Documents {
		data, err := s.blobs.Get(ctx, doc.BlobKey(c.ID))
		if err != nil {
			if errors.Is(err, domain.ErrFileNotFound) {
				return File{}, domain.ErrFileNotFound.With("document " + doc.ID)
			}
			return File{}, fmt.Errorf("reading document %s: %w", doc.ID, err)
		}
		contents[i] = data
	}

	if len(c.Documents) == 1 {
		return File{Name: c.Documents[0].Name + ".pdf", ContentType: "application/pdf", Data: contents[0]}, nil
	}

	archive, err := zipDocuments(c.Documents, contents)
	if err != nil {
		return File{}, fmt.Errorf("building archive: %w", err)
	}
	return File{Name: c.Name + ".zip", ContentType: "application/zip", Data: archive}, nil
}

func zipDocuments(docs []domain.Document, contents [][]byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	seen := make(map[string]int, len(docs))
	for i, doc := range docs {
		name := doc.Name
		if n := seen[name]; n > 0 {
			name = fmt.Sprintf("%s (%d)", name, n)
		}
		seen[doc.Name]++
		w, err := zw.Create(name + ".pdf")
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(contents[i]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// activeSignerIDs lists signers that may still hold access to the collection.
func activeSignerIDs(c domain.DocumentCollection) []string {
	ids := make([]string, 0, len(c.Signers))
	for _, s := range c.Signers {
		if s.Status == domain.SignerStatusReplaced {
			continue
		}
		ids = append(ids, s.ID)
	}
	return ids
}
