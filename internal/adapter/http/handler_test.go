package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	adapter "github.com/neomorfeo/docsign/internal/adapter/http"
	"github.com/neomorfeo/docsign/internal/adapter/fsm"
	"github.com/neomorfeo/docsign/internal/adapter/sqlite"
	"github.com/neomorfeo/docsign/internal/app"
	"github.com/neomorfeo/docsign/internal/domain"
)

// noopNotifier is a no-op Notifier for tests.
type noopNotifier struct{}

func (n *noopNotifier) Notify(_ context.Context, _ domain.Notification) error { return nil }

type noopFinalizer struct{}

func (f *noopFinalizer) FinalizeAppendices(_ context.Context, _ domain.DocumentCollection) error {
	return nil
}

// pdfBlobs serves the same bytes for every key under collections/.
type pdfBlobs struct{}

func (b *pdfBlobs) Get(_ context.Context, key string) ([]byte, error) {
	if !strings.HasPrefix(key, "collections/") {
		return nil, domain.ErrFileNotFound.With(key)
	}
	return []byte("%PDF-1.7 " + key), nil
}

func (b *pdfBlobs) Exists(_ context.Context, key string) (bool, error) {
	return strings.HasPrefix(key, "collections/"), nil
}

var (
	editor  = domain.Caller{AccountID: "acc-1", GroupID: "grp-1", UserID: "usr-1", Role: domain.RoleEditor}
	basic   = domain.Caller{AccountID: "acc-1", GroupID: "grp-1", UserID: "usr-1"}
	foreign = domain.Caller{AccountID: "acc-1", GroupID: "grp-2", UserID: "usr-2", Role: domain.RoleEditor}
)

// newTestServer creates a full-stack httptest.Server with SQLite in-memory.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	quota := sqlite.NewQuotaLedger(store)
	if err := quota.PutLicense(ctx, sqlite.License{
		AccountID:      "acc-1",
		ExpiresAt:      time.Now().Add(24 * time.Hour),
		DocumentsLimit: -1,
		SmsLimit:       -1,
		VisualLimit:    -1,
	}); err != nil {
		t.Fatalf("seeding license: %v", err)
	}

	templates := sqlite.NewTemplateStore(store)
	if err := templates.SaveTemplate(ctx, domain.Template{
		ID:      "tpl-1",
		GroupID: "grp-1",
		Name:    "Lease",
		Fields:  []domain.FieldDefinition{{Name: "rent", Type: "number"}},
	}); err != nil {
		t.Fatalf("seeding template: %v", err)
	}

	directory := sqlite.NewDirectory(store)
	for _, c := range []domain.Contact{
		{ID: "c-alice", OwnerID: "usr-1", Name: "Alice", Email: "alice@example.com"},
		{ID: "c-bob", OwnerID: "usr-1", Name: "Bob", Email: "bob@example.com", Phone: "+34600000001"},
	} {
		if err := directory.SaveContact(ctx, c); err != nil {
			t.Fatalf("seeding contact: %v", err)
		}
	}

	revoker := sqlite.NewAccessRevoker(store)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	collections := app.NewCollectionService(sqlite.NewCollectionRepository(store), fsm.New(), app.Collaborators{
		Quota:      quota,
		Directory:  directory,
		Templates:  templates,
		Notifier:   &noopNotifier{},
		Appendices: &noopFinalizer{},
		Access:     revoker,
		Blobs:      &pdfBlobs{},
	}, logger)
	groups := app.NewContactsGroupService(sqlite.NewContactsGroupRepository(store), directory, collections, logger)

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("docsign", "0.1.0"))
	adapter.Register(api, collections, groups, revoker)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv
}

// doRequest performs an HTTP request acting as the given caller. A zero caller
// sends no identity headers.
func doRequest(t *testing.T, method, url, body string, as domain.Caller) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, reader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if as.AccountID != "" {
		req.Header.Set("X-Account-ID", as.AccountID)
		req.Header.Set("X-Group-ID", as.GroupID)
		req.Header.Set("X-User-ID", as.UserID)
	}
	if as.Role != "" {
		req.Header.Set("X-Role", string(as.Role))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}

	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

// expectError asserts the status and the stable error code of a failed request.
func expectError(t *testing.T, resp *http.Response, status int, code domain.Code) {
	t.Helper()
	defer resp.Body.Close()

	if resp.StatusCode != status {
		t.Fatalf("status = %d, want %d", resp.StatusCode, status)
	}
	model := decode[huma.ErrorModel](t, resp)
	if len(model.Errors) == 0 {
		t.Fatalf("no error details in %+v", model)
	}
	if got := model.Errors[0].Value; got != string(code) {
		t.Errorf("code = %v, want %s", got, code)
	}
}

const groupSignBody = `{
	"name": "Lease 2026",
	"mode": "group_sign",
	"documents": [{"template_id": "tpl-1", "name": "lease"}],
	"signers": [{"contact": {"id": "c-alice"}, "sending_method": "email"}],
	"fields": [{"template_id": "tpl-1", "name": "rent", "value": "900"}]
}`

func mustCreateCollection(t *testing.T, srv *httptest.Server, body string) adapter.CollectionResponse {
	t.Helper()

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/collections", body, editor)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("create collection: status = %d, body = %s", resp.StatusCode, raw)
	}
	return decode[adapter.CollectionResponse](t, resp)
}

func postEvent(t *testing.T, srv *httptest.Server, collectionID, signerID, event string) *http.Response {
	t.Helper()
	url := fmt.Sprintf("%s/api/v1/collections/%s/signers/%s/events", srv.URL, collectionID, signerID)
	return doRequest(t, http.MethodPost, url, fmt.Sprintf(`{"event":%q}`, event), domain.Caller{})
}

// --- Create ---

func TestCreateCollection(t *testing.T) {
	srv := newTestServer(t)
	c := mustCreateCollection(t, srv, groupSignBody)

	if c.ID == "" {
		t.Error("ID should not be empty")
	}
	if c.Status != "created" {
		t.Errorf("Status = %q, want %q", c.Status, "created")
	}
	if c.GroupID != "grp-1" || c.UserID != "usr-1" {
		t.Errorf("owner = %s/%s, want grp-1/usr-1", c.GroupID, c.UserID)
	}
	if len(c.Documents) != 1 || c.Documents[0].ID == "" {
		t.Errorf("documents = %+v, want one with an assigned id", c.Documents)
	}
	if len(c.Signers) != 1 {
		t.Fatalf("signers = %d, want 1", len(c.Signers))
	}
	s := c.Signers[0]
	if s.ID == "" || s.Status != "created" || s.Contact.Email != "alice@example.com" {
		t.Errorf("signer = %+v", s)
	}
	if s.Authentication.Mode != "none" {
		t.Errorf("Authentication.Mode = %q, want none", s.Authentication.Mode)
	}
	if len(c.Fields) != 1 || c.Fields[0].Value != "900" {
		t.Errorf("fields = %+v", c.Fields)
	}
	if c.CreatedAt == "" {
		t.Error("CreatedAt should not be empty")
	}
}

func TestCreateCollection_MissingCallerHeaders(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/collections", groupSignBody, domain.Caller{})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestCreateCollection_InvalidMode(t *testing.T) {
	srv := newTestServer(t)

	body := strings.Replace(groupSignBody, `"group_sign"`, `"bulk"`, 1)
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/collections", body, editor)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestCreateCollection_DomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   domain.Code
	}{
		{
			name:   "unknown template",
			body:   strings.Replace(groupSignBody, `"template_id": "tpl-1", "name": "lease"`, `"template_id": "tpl-404", "name": "lease"`, 1),
			status: http.StatusNotFound,
			code:   domain.CodeInvalidTemplateID,
		},
		{
			name:   "field not in template",
			body:   strings.Replace(groupSignBody, `"name": "rent"`, `"name": "deposit"`, 1),
			status: http.StatusUnprocessableEntity,
			code:   domain.CodeInvalidFieldName,
		},
		{
			name:   "contact without phone for sms",
			body:   strings.Replace(groupSignBody, `"sending_method": "email"`, `"sending_method": "sms"`, 1),
			status: http.StatusUnprocessableEntity,
			code:   domain.CodeInvalidSendingMethod,
		},
		{
			name:   "online with two signers",
			body:   `{"name":"x","mode":"online","documents":[{"template_id":"tpl-1","name":"a"}],"signers":[{"contact":{"id":"c-alice"},"sending_method":"email"},{"contact":{"id":"c-bob"},"sending_method":"email"}]}`,
			status: http.StatusUnprocessableEntity,
			code:   domain.CodeInvalidSignersCount,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t)
			resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/collections", tc.body, editor)
			expectError(t, resp, tc.status, tc.code)
		})
	}
}

// --- Read / List ---

func TestGetCollection(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateCollection(t, srv, groupSignBody)

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/collections/"+created.ID, "", basic)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	got := decode[adapter.CollectionResponse](t, resp)
	if got.ID != created.ID || got.Name != "Lease 2026" {
		t.Errorf("got %+v", got)
	}
}

func TestGetCollection_Errors(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateCollection(t, srv, groupSignBody)

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/collections/missing", "", editor)
	expectError(t, resp, http.StatusNotFound, domain.CodeInvalidDocumentCollectionID)

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/v1/collections/"+created.ID, "", foreign)
	expectError(t, resp, http.StatusForbidden, domain.CodeDocumentNotBelongToUserGroup)
}

func TestListCollections(t *testing.T) {
	srv := newTestServer(t)
	mustCreateCollection(t, srv, groupSignBody)
	mustCreateCollection(t, srv, groupSignBody)
	mustCreateCollection(t, srv, groupSignBody)

	tests := []struct {
		name  string
		query string
		as    domain.Caller
		want  int
	}{
		{"all", "", editor, 3},
		{"paged", "?limit=2", editor, 2},
		{"offset", "?limit=2&offset=2", editor, 1},
		{"by status", "?status=signed", editor, 0},
		{"other group", "", foreign, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/collections"+tc.query, "", tc.as)
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
			}
			list := decode[[]adapter.CollectionResponse](t, resp)
			if len(list) != tc.want {
				t.Errorf("len = %d, want %d", len(list), tc.want)
			}
		})
	}
}

// --- Update ---

func TestUpdateCollection(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateCollection(t, srv, groupSignBody)

	resp := doRequest(t, http.MethodPatch, srv.URL+"/api/v1/collections/"+created.ID,
		`{"name":"Lease 2027","fields":[{"template_id":"tpl-1","name":"rent","value":"950"}]}`, editor)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	got := decode[adapter.CollectionResponse](t, resp)
	if got.Name != "Lease 2027" {
		t.Errorf("Name = %q, want %q", got.Name, "Lease 2027")
	}
	if len(got.Documents) != 1 || got.Documents[0].ID != created.Documents[0].ID {
		t.Errorf("documents changed: %+v", got.Documents)
	}
}

// --- Signer lifecycle ---

func TestSignerLifecycle_CompletesAndDownloads(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateCollection(t, srv, groupSignBody)
	signerID := created.Signers[0].ID

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/collections/"+created.ID+"/download", "", editor)
	expectError(t, resp, http.StatusConflict, domain.CodeCannotDownloadUnsignedDocument)

	for _, step := range []struct {
		event  string
		status string
	}{
		{"delivered", "sent"},
		{"opened", "viewed"},
		{"completed", "signed"},
	} {
		resp := postEvent(t, srv, created.ID, signerID, step.event)
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			t.Fatalf("%s: status = %d, want %d", step.event, resp.StatusCode, http.StatusOK)
		}
		got := decode[adapter.CollectionResponse](t, resp)
		resp.Body.Close()
		if got.Status != step.status {
			t.Errorf("%s: Status = %q, want %q", step.event, got.Status, step.status)
		}
	}

	resp = postEvent(t, srv, created.ID, signerID, "completed")
	expectError(t, resp, http.StatusConflict, domain.CodeDocumentAlreadySignedBySigner)

	resp = doRequest(t, http.MethodGet, srv.URL+"/api/v1/collections/"+created.ID+"/download", "", basic)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q, want application/pdf", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, `filename="lease.pdf"`) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	data, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(data), "%PDF") {
		t.Errorf("body = %q, want the stored pdf", data)
	}
}

func TestSignerEvent_Errors(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateCollection(t, srv, groupSignBody)

	expectError(t, postEvent(t, srv, created.ID, "s-404", "delivered"), http.StatusNotFound, domain.CodeInvalidSignerID)
	expectError(t, postEvent(t, srv, "missing", "s-1", "delivered"), http.StatusNotFound, domain.CodeInvalidDocumentCollectionID)
	expectError(t, postEvent(t, srv, created.ID, created.Signers[0].ID, "completed"), http.StatusConflict, domain.CodeInvalidStateTransition)

	resp := postEvent(t, srv, created.ID, created.Signers[0].ID, "replace")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("internal event: status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestReplaceSigner(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateCollection(t, srv, groupSignBody)
	oldID := created.Signers[0].ID

	url := fmt.Sprintf("%s/api/v1/collections/%s/signers/%s/replace", srv.URL, created.ID, oldID)
	resp := doRequest(t, http.MethodPost, url, `{"contact":{"id":"c-bob"},"sending_method":"sms"}`, editor)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	got := decode[adapter.CollectionResponse](t, resp)
	if len(got.Signers) != 1 {
		t.Fatalf("signers = %d, want 1", len(got.Signers))
	}
	replacement := got.Signers[0]
	if replacement.ID == oldID || replacement.Contact.ID != "c-bob" || replacement.SendingMethod != "sms" {
		t.Errorf("replacement = %+v", replacement)
	}

	expectError(t, postEvent(t, srv, created.ID, oldID, "opened"), http.StatusNotFound, domain.CodeInvalidSignerID)

	ok := postEvent(t, srv, created.ID, replacement.ID, "opened")
	defer ok.Body.Close()
	if ok.StatusCode != http.StatusOK {
		t.Errorf("replacement event: status = %d, want %d", ok.StatusCode, http.StatusOK)
	}
}

func TestReplaceSigner_BasicRoleForbidden(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateCollection(t, srv, groupSignBody)

	url := fmt.Sprintf("%s/api/v1/collections/%s/signers/%s/replace", srv.URL, created.ID, created.Signers[0].ID)
	resp := doRequest(t, http.MethodPost, url, `{"contact":{"id":"c-bob"},"sending_method":"email"}`, basic)
	expectError(t, resp, http.StatusForbidden, domain.CodeOperationNotAllowedByUserRole)
}

func TestSelfSign(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateCollection(t, srv,
		`{"name":"Own","mode":"self_sign","documents":[{"template_id":"tpl-1","name":"own"}]}`)

	url := srv.URL + "/api/v1/collections/" + created.ID + "/self-sign/events"
	resp := doRequest(t, http.MethodPost, url, `{"event":"completed"}`, basic)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if got := decode[adapter.CollectionResponse](t, resp); got.Status != "signed" {
		t.Errorf("Status = %q, want signed", got.Status)
	}

	other := domain.Caller{AccountID: "acc-1", GroupID: "grp-1", UserID: "usr-9"}
	expectError(t, doRequest(t, http.MethodPost, url, `{"event":"opened"}`, other),
		http.StatusForbidden, domain.CodeDocumentNotBelongToUserGroup)
}

// --- Cancel / Delete ---

func TestCancelThenDelete(t *testing.T) {
	srv := newTestServer(t)
	created := mustCreateCollection(t, srv, groupSignBody)
	base := srv.URL + "/api/v1/collections/" + created.ID

	expectError(t, doRequest(t, http.MethodPost, base+"/cancel", "", basic),
		http.StatusForbidden, domain.CodeOperationNotAllowedByUserRole)

	resp := doRequest(t, http.MethodPost, base+"/cancel", "", editor)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("cancel: status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	expectError(t, doRequest(t, http.MethodPost, base+"/cancel", "", editor),
		http.StatusConflict, domain.CodeDocumentAlreadyCanceled)
	expectError(t, postEvent(t, srv, created.ID, created.Signers[0].ID, "opened"),
		http.StatusNotFound, domain.CodeInvalidSignerID)

	resp = doRequest(t, http.MethodDelete, base, "", editor)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	expectError(t, doRequest(t, http.MethodGet, base, "", editor),
		http.StatusNotFound, domain.CodeInvalidDocumentCollectionID)
}

// --- Distribute ---

func TestDistribute(t *testing.T) {
	srv := newTestServer(t)

	body := `{"collections":[
		{"name":"Offer A","documents":[{"template_id":"tpl-1","name":"offer"}],"signers":[{"contact":{"email":"new@example.com"},"sending_method":"email"}]},
		{"name":"Offer B","documents":[{"template_id":"tpl-1","name":"offer"}],"signers":[{"contact":{"phone":"+34600000001"},"sending_method":"sms"}]}
	]}`
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/collections/distribute", body, editor)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body = %s", resp.StatusCode, raw)
	}
	out := decode[struct {
		IDs []string `json:"ids"`
	}](t, resp)
	if len(out.IDs) != 2 {
		t.Fatalf("ids = %v, want 2", out.IDs)
	}

	get := doRequest(t, http.MethodGet, srv.URL+"/api/v1/collections/"+out.IDs[0], "", editor)
	defer get.Body.Close()
	c := decode[adapter.CollectionResponse](t, get)
	if c.Mode != "group_sign" {
		t.Errorf("Mode = %q, want group_sign default", c.Mode)
	}
	if c.Signers[0].Contact.ID == "" || c.Signers[0].Contact.Email != "new@example.com" {
		t.Errorf("contact = %+v, want a created contact", c.Signers[0].Contact)
	}
}

func TestDistribute_NullInput(t *testing.T) {
	srv := newTestServer(t)
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/collections/distribute", `{}`, editor)
	expectError(t, resp, http.StatusUnprocessableEntity, domain.CodeNullInput)
}

func TestDistribute_PartialBatchReportsCommitted(t *testing.T) {
	srv := newTestServer(t)

	body := `{"collections":[
		{"name":"Ok","documents":[{"template_id":"tpl-1","name":"offer"}],"signers":[{"contact":{"email":"alice@example.com"},"sending_method":"email"}]},
		{"name":"No phone","documents":[{"template_id":"tpl-1","name":"offer"}],"signers":[{"contact":{"email":"alice@example.com"},"sending_method":"sms"}]}
	]}`
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/collections/distribute", body, editor)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
	model := decode[huma.ErrorModel](t, resp)

	var committed []any
	var index any
	for _, d := range model.Errors {
		switch d.Location {
		case "committed":
			committed = append(committed, d.Value)
		case "index":
			index = d.Value
		}
	}
	if model.Errors[0].Value != string(domain.CodeInvalidSendingMethod) {
		t.Errorf("code = %v, want %s", model.Errors[0].Value, domain.CodeInvalidSendingMethod)
	}
	if index != float64(1) {
		t.Errorf("index = %v, want 1", index)
	}
	if len(committed) != 1 {
		t.Errorf("committed = %v, want one id", committed)
	}
}

// --- Contacts groups ---

func TestContactsGroups_CRUDAndDistribute(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1/contacts-groups"

	resp := doRequest(t, http.MethodPost, base,
		`{"name":"Board","members":[{"contact_id":"c-bob","order":2},{"contact_id":"c-alice","order":1}]}`, editor)
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("create: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	g := decode[adapter.ContactsGroupResponse](t, resp)
	resp.Body.Close()
	if len(g.Members) != 2 || g.Members[0].ContactID != "c-alice" {
		t.Errorf("members = %+v, want ordered by Order", g.Members)
	}

	expectError(t, doRequest(t, http.MethodGet, base+"/"+g.ID, "", foreign),
		http.StatusForbidden, domain.CodeContactsGroupNotBelongToUser)

	resp = doRequest(t, http.MethodPut, base+"/"+g.ID,
		`{"name":"Board 2","members":[{"contact_id":"c-alice"},{"contact_id":"c-alice"}]}`, editor)
	expectError(t, resp, http.StatusUnprocessableEntity, domain.CodeDuplicateContactsGroupMember)

	resp = doRequest(t, http.MethodPost, base+"/"+g.ID+"/distribute",
		`{"name":"Minutes","documents":[{"template_id":"tpl-1","name":"minutes"}]}`, editor)
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		t.Fatalf("distribute: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	out := decode[struct {
		IDs []string `json:"ids"`
	}](t, resp)
	resp.Body.Close()
	if len(out.IDs) != 2 {
		t.Errorf("ids = %v, want one per member", out.IDs)
	}

	resp = doRequest(t, http.MethodDelete, base+"/"+g.ID, "", editor)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	expectError(t, doRequest(t, http.MethodGet, base+"/"+g.ID, "", editor),
		http.StatusNotFound, domain.CodeInvalidContactsGroupID)
}
