package app_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"github.com/neomorfeo/docsign/internal/adapter/fsm"
	"github.com/neomorfeo/docsign/internal/app"
	"github.com/neomorfeo/docsign/internal/domain"
)

// --- Fakes ---

type fakeRepo struct {
	mu          sync.Mutex
	collections map[string]domain.DocumentCollection
	order       []string
	createErr   func(c domain.DocumentCollection) error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{collections: make(map[string]domain.DocumentCollection)}
}

func (r *fakeRepo) Create(_ context.Context, c domain.DocumentCollection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		if err := r.createErr(c); err != nil {
			return err
		}
	}
	c.Version = 1
	r.collections[c.ID] = clone(c)
	r.order = append(r.order, c.ID)
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (domain.DocumentCollection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.collections[id]
	if !ok {
		return domain.DocumentCollection{}, domain.ErrInvalidDocumentCollectionID.With(id)
	}
	return clone(c), nil
}

func (r *fakeRepo) List(_ context.Context, filter domain.ListFilter) ([]domain.DocumentCollection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.DocumentCollection, 0, len(r.order))
	for _, id := range r.order {
		c := r.collections[id]
		if c.GroupID != filter.GroupID {
			continue
		}
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		out = append(out, clone(c))
	}
	return out, nil
}

func (r *fakeRepo) Update(_ context.Context, id string, mutate func(*domain.DocumentCollection) error) (domain.DocumentCollection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.collections[id]
	if !ok {
		return domain.DocumentCollection{}, domain.ErrInvalidDocumentCollectionID.With(id)
	}
	working := clone(stored)
	if err := mutate(&working); err != nil {
		return domain.DocumentCollection{}, err
	}
	working.Version = stored.Version + 1
	r.collections[id] = clone(working)
	return working, nil
}

// put stores a collection as-is, bypassing the service.
func (r *fakeRepo) put(c domain.DocumentCollection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collections[c.ID] = clone(c)
	r.order = append(r.order, c.ID)
}

func (r *fakeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.collections)
}

func clone(c domain.DocumentCollection) domain.DocumentCollection {
	c.Documents = slices.Clone(c.Documents)
	c.SenderAppendices = slices.Clone(c.SenderAppendices)
	c.Fields = slices.Clone(c.Fields)
	signers := make([]domain.Signer, len(c.Signers))
	for i, s := range c.Signers {
		s.Appendices = slices.Clone(s.Appendices)
		s.Fields = slices.Clone(s.Fields)
		signers[i] = s
	}
	if c.Signers == nil {
		signers = nil
	}
	c.Signers = signers
	return c
}

type fakeQuota struct {
	mu           sync.Mutex
	expired      bool
	docLimit     int
	docUsed      int
	smsLimit     int
	smsUsed      int
	visualLimit  int
	visualUsed   int
	afterAddDocs func(q *fakeQuota)
}

// newFakeQuota returns an unlimited, active license.
func newFakeQuota() *fakeQuota {
	return &fakeQuota{docLimit: -1, smsLimit: -1, visualLimit: -1}
}

func allows(limit, used, count int) bool {
	return limit < 0 || used+count <= limit
}

func (q *fakeQuota) ProgramExpired(context.Context, string) (bool, error) {
	return q.expired, nil
}

func (q *fakeQuota) CanAddDocument(_ context.Context, _ string, count int) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return allows(q.docLimit, q.docUsed, count), nil
}

func (q *fakeQuota) CanAddSms(_ context.Context, _ string, count int) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return allows(q.smsLimit, q.smsUsed, count), nil
}

func (q *fakeQuota) CanAddVisualIdentifications(_ context.Context, _ string, count int) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return allows(q.visualLimit, q.visualUsed, count), nil
}

func (q *fakeQuota) AddDocument(context.Context, string) error {
	q.mu.Lock()
	if !allows(q.docLimit, q.docUsed, 1) {
		q.mu.Unlock()
		return domain.ErrDocumentsExceedLicenseLimit
	}
	q.docUsed++
	hook := q.afterAddDocs
	q.mu.Unlock()
	if hook != nil {
		hook(q)
	}
	return nil
}

func (q *fakeQuota) AddSms(_ context.Context, _ string, count int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !allows(q.smsLimit, q.smsUsed, count) {
		return domain.ErrSmsExceedLicenseLimit
	}
	q.smsUsed += count
	return nil
}

func (q *fakeQuota) AddVisualIdentification(context.Context, string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !allows(q.visualLimit, q.visualUsed, 1) {
		return domain.ErrVisualIdentificationsExceedLimit
	}
	q.visualUsed++
	return nil
}

type fakeDirectory struct {
	mu       sync.Mutex
	contacts map[string]domain.Contact
	created  int
}

func newFakeDirectory(contacts ...domain.Contact) *fakeDirectory {
	d := &fakeDirectory{contacts: make(map[string]domain.Contact)}
	for _, c := range contacts {
		d.contacts[c.ID] = c
	}
	return d
}

func (d *fakeDirectory) ResolveContact(_ context.Context, id string) (domain.Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.contacts[id]
	if !ok {
		return domain.Contact{}, domain.ErrInvalidContactID.With(id)
	}
	return c, nil
}

func (d *fakeDirectory) ContactBelongsToCaller(_ context.Context, caller domain.Caller, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.contacts[id]
	return ok && c.OwnerID == caller.UserID, nil
}

func (d *fakeDirectory) GetOrCreateContact(
	_ context.Context,
	caller domain.Caller,
	in domain.Contact,
	method domain.SendingMethod,
) (domain.Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if in.ID != "" {
		c, ok := d.contacts[in.ID]
		if !ok {
			return domain.Contact{}, domain.ErrInvalidContactID.With(in.ID)
		}
		if c.OwnerID != caller.UserID {
			return domain.Contact{}, domain.ErrContactNotBelongToUser.With(in.ID)
		}
		return c, nil
	}
	for _, c := range d.contacts {
		if c.OwnerID != caller.UserID || c.Deleted || (method != "" && !c.Supports(method)) {
			continue
		}
		if (in.Email != "" && c.Email == in.Email) || (in.Phone != "" && c.Phone == in.Phone) {
			return c, nil
		}
	}
	d.created++
	in.ID = fmt.Sprintf("contact-new-%d", d.created)
	in.OwnerID = caller.UserID
	d.contacts[in.ID] = in
	return in, nil
}

type fakeTemplates struct {
	templates map[string]domain.Template
}

func newFakeTemplates(templates ...domain.Template) *fakeTemplates {
	f := &fakeTemplates{templates: make(map[string]domain.Template)}
	for _, t := range templates {
		f.templates[t.ID] = t
	}
	return f
}

func (f *fakeTemplates) ReadTemplate(_ context.Context, id string) (domain.Template, error) {
	t, ok := f.templates[id]
	if !ok {
		return domain.Template{}, domain.ErrInvalidTemplateID.With(id)
	}
	return t, nil
}

func (f *fakeTemplates) TemplateBelongsToGroup(_ context.Context, id, groupID string) (bool, error) {
	t, ok := f.templates[id]
	return ok && t.GroupID == groupID, nil
}

func (f *fakeTemplates) FieldCatalog(_ context.Context, id string) ([]domain.FieldDefinition, error) {
	t, ok := f.templates[id]
	if !ok {
		return nil, domain.ErrInvalidTemplateID.With(id)
	}
	return t.Fields, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
	err  error
}

func (n *fakeNotifier) Notify(_ context.Context, note domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
	return n.err
}

func (n *fakeNotifier) kinds() []domain.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.NotificationKind, len(n.sent))
	for i, note := range n.sent {
		out[i] = note.Kind
	}
	return out
}

func (n *fakeNotifier) count(kind domain.NotificationKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, note := range n.sent {
		if note.Kind == kind {
			c++
		}
	}
	return c
}

// invited returns the ids of signers that received a DocumentSent notification.
func (n *fakeNotifier) invited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var ids []string
	for _, note := range n.sent {
		if note.Kind == domain.NotifyDocumentSent && note.Signer != nil {
			ids = append(ids, note.Signer.ID)
		}
	}
	return ids
}

type fakeFinalizer struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeFinalizer) FinalizeAppendices(_ context.Context, c domain.DocumentCollection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c.ID)
	return nil
}

type fakeRevoker struct {
	revoked map[string][]string
}

func (f *fakeRevoker) Revoke(_ context.Context, collectionID string, signerIDs []string) error {
	if f.revoked == nil {
		f.revoked = make(map[string][]string)
	}
	f.revoked[collectionID] = append(f.revoked[collectionID], signerIDs...)
	return nil
}

type fakeBlobs struct {
	blobs map[string][]byte
}

func (f *fakeBlobs) Get(_ context.Context, key string) ([]byte, error) {
	b, ok := f.blobs[key]
	if !ok {
		return nil, domain.ErrFileNotFound.With(key)
	}
	return b, nil
}

func (f *fakeBlobs) Exists(_ context.Context, key string) (bool, error) {
	_, ok := f.blobs[key]
	return ok, nil
}

// --- Fixtures ---

var (
	editor = domain.Caller{AccountID: "acc-1", GroupID: "grp-1", UserID: "usr-1", Role: domain.RoleEditor}
	basic  = domain.Caller{AccountID: "acc-1", GroupID: "grp-1", UserID: "usr-2", Role: domain.RoleBasic}
	other  = domain.Caller{AccountID: "acc-2", GroupID: "grp-2", UserID: "usr-9", Role: domain.RoleAdmin}
)

var contractTemplate = domain.Template{
	ID:      "tpl-1",
	GroupID: "grp-1",
	Name:    "Contract",
	Fields:  []domain.FieldDefinition{{Name: "amount", Type: "text"}, {Name: "signature", Type: "signature", Required: true}},
}

func testContacts() []domain.Contact {
	return []domain.Contact{
		{ID: "c-alice", OwnerID: "usr-1", Name: "Alice", Email: "alice@example.com"},
		{ID: "c-bob", OwnerID: "usr-1", Name: "Bob", Email: "bob@example.com", Phone: "+34600000001"},
		{ID: "c-carol", OwnerID: "usr-1", Name: "Carol", Email: "carol@example.com"},
		{ID: "c-dave", OwnerID: "usr-1", Name: "Dave", Phone: "+34600000002"},
		{ID: "c-gone", OwnerID: "usr-1", Name: "Gone", Email: "gone@example.com", Deleted: true},
		{ID: "c-foreign", OwnerID: "usr-9", Name: "Eve", Email: "eve@example.com"},
	}
}

type harness struct {
	svc       *app.CollectionService
	repo      *fakeRepo
	quota     *fakeQuota
	directory *fakeDirectory
	templates *fakeTemplates
	notifier  *fakeNotifier
	finalizer *fakeFinalizer
	revoker   *fakeRevoker
	blobs     *fakeBlobs
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:      newFakeRepo(),
		quota:     newFakeQuota(),
		directory: newFakeDirectory(testContacts()...),
		templates: newFakeTemplates(contractTemplate),
		notifier:  &fakeNotifier{},
		finalizer: &fakeFinalizer{},
		revoker:   &fakeRevoker{},
		blobs:     &fakeBlobs{blobs: make(map[string][]byte)},
	}
	h.svc = app.NewCollectionService(h.repo, fsm.New(), app.Collaborators{
		Quota:      h.quota,
		Directory:  h.directory,
		Templates:  h.templates,
		Notifier:   h.notifier,
		Appendices: h.finalizer,
		Access:     h.revoker,
		Blobs:      h.blobs,
	}, discardLogger())
	return h
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signerFor(contactID string, method domain.SendingMethod) domain.Signer {
	return domain.Signer{Contact: domain.Contact{ID: contactID}, SendingMethod: method}
}

func contractDraft(mode domain.Mode, signers ...domain.Signer) domain.DocumentCollection {
	return domain.DocumentCollection{
		Name:      "Lease",
		Mode:      mode,
		Documents: []domain.Document{{TemplateID: "tpl-1", Name: "lease"}},
		Signers:   signers,
	}
}

// seeded stores a collection owned by editor whose signers have the given states and Orders 1..n.
func (h *harness) seeded(mode domain.Mode, statuses ...domain.SignerStatus) domain.DocumentCollection {
	c := domain.NewCollection(fmt.Sprintf("col-%d", h.repo.count()+1), editor, "Seeded", mode)
	c.Documents = []domain.Document{{ID: "doc-1", TemplateID: "tpl-1", Name: "lease"}}
	for i, st := range statuses {
		c.Signers = append(c.Signers, domain.Signer{
			ID:            fmt.Sprintf("s-%d", i+1),
			Contact:       testContacts()[0],
			SendingMethod: domain.SendingMethodEmail,
			Order:         i + 1,
			Status:        st,
		})
	}
	h.repo.put(c)
	return c
}

func (h *harness) stored(t *testing.T, id string) domain.DocumentCollection {
	t.Helper()
	c, err := h.repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("collection %s not stored: %v", id, err)
	}
	return c
}
