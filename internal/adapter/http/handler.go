package http

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/docsign/internal/app"
	"github.com/neomorfeo/docsign/internal/domain"
)

// AccessChecker reports whether a signer's access to a collection was revoked.
type AccessChecker interface {
	Revoked(ctx context.Context, collectionID, signerID string) (bool, error)
}

// --- Create Collection ---

type CreateCollectionInput struct {
	CallerHeaders
	Body CollectionBody
}

type CollectionOutput struct {
	Body CollectionResponse
}

// --- Get Collection ---

type GetCollectionInput struct {
	CallerHeaders
	ID string `path:"id" doc:"Collection ID"`
}

// --- List Collections ---

type ListCollectionsInput struct {
	CallerHeaders
	Status string `query:"status" required:"false" enum:"created,sent,viewed,signed,declined,canceled,deleted" doc:"Filter by status"`
	Limit  int    `query:"limit" required:"false" default:"50" minimum:"1" maximum:"500" doc:"Max results"`
	Offset int    `query:"offset" required:"false" default:"0" minimum:"0" doc:"Pagination offset"`
}

type ListCollectionsOutput struct {
	Body []CollectionResponse
}

// --- Update Collection ---

type UpdateCollectionInput struct {
	CallerHeaders
	ID   string `path:"id" doc:"Collection ID"`
	Body struct {
		Name             *string          `json:"name,omitempty" minLength:"1" maxLength:"255" doc:"New display name"`
		Documents        []DocumentBody   `json:"documents,omitempty" doc:"Replaces the document list"`
		SenderAppendices []AppendixBody   `json:"sender_appendices,omitempty" doc:"Replaces the sender appendices"`
		Fields           []FieldValueBody `json:"fields,omitempty" doc:"Field values to set or override"`
	}
}

// --- Cancel / Delete Collection ---

type CollectionActionInput struct {
	CallerHeaders
	ID string `path:"id" doc:"Collection ID"`
}

// --- Download Collection ---

type DownloadCollectionOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

// --- Distribute ---

type DistributeInput struct {
	CallerHeaders
	Body struct {
		Collections []CollectionBody `json:"collections,omitempty" doc:"Collections to create, one per recipient"`
	}
}

type DistributeOutput struct {
	Body struct {
		IDs []string `json:"ids" doc:"Identifiers of the created collections, in request order"`
	}
}

// --- Signers ---

type ReplaceSignerInput struct {
	CallerHeaders
	ID       string `path:"id" doc:"Collection ID"`
	SignerID string `path:"signerId" doc:"Signer being replaced"`
	Body     struct {
		Contact        ContactBody         `json:"contact"`
		SendingMethod  string              `json:"sending_method" enum:"email,sms"`
		Authentication *AuthenticationBody `json:"authentication,omitempty"`
	}
}

type SignerEventInput struct {
	ID       string `path:"id" doc:"Collection ID"`
	SignerID string `path:"signerId" doc:"Signer ID"`
	Body     struct {
		Event string `json:"event" enum:"delivered,opened,completed,declined" doc:"Signer event reported by the signing surface"`
	}
}

type SelfSignInput struct {
	CallerHeaders
	ID   string `path:"id" doc:"Collection ID"`
	Body struct {
		Event string `json:"event" enum:"opened,completed,declined" doc:"Action of the creator on the collection"`
	}
}

// --- Contacts Groups ---

type ContactsGroupBody struct {
	Name    string                    `json:"name" minLength:"1" maxLength:"255" doc:"Display name"`
	Members []ContactsGroupMemberBody `json:"members" doc:"Members in signing order"`
}

type CreateContactsGroupInput struct {
	CallerHeaders
	Body ContactsGroupBody
}

type ContactsGroupInput struct {
	CallerHeaders
	ID string `path:"id" doc:"Contacts group ID"`
}

type UpdateContactsGroupInput struct {
	CallerHeaders
	ID   string `path:"id" doc:"Contacts group ID"`
	Body ContactsGroupBody
}

type ContactsGroupOutput struct {
	Body ContactsGroupResponse
}

type DistributeToContactsGroupInput struct {
	CallerHeaders
	ID   string `path:"id" doc:"Contacts group ID"`
	Body struct {
		Name          string         `json:"name" minLength:"1" maxLength:"255" doc:"Name of every created collection"`
		Documents     []DocumentBody `json:"documents" minItems:"1"`
		SendingMethod string         `json:"sending_method,omitempty" enum:"email,sms" doc:"Defaults to email"`
	}
}

// Register adds the collection and contacts group routes to the Huma API.
// access may be nil, in which case signer events are not checked for revocation.
func Register(api huma.API, collections *app.CollectionService, groups *app.ContactsGroupService, access AccessChecker) {
	registerCollections(api, collections)
	registerSigners(api, collections, access)
	registerContactsGroups(api, groups)
}

func registerCollections(api huma.API, svc *app.CollectionService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-collection",
		Method:      http.MethodPost,
		Path:        "/api/v1/collections",
		Summary:     "Create a document collection",
		Tags:        []string{"Collections"},
	}, func(ctx context.Context, input *CreateCollectionInput) (*CollectionOutput, error) {
		draft := input.Body.toDomain()
		c, err := svc.CreateCollection(ctx, input.caller(), draft, draft.Fields)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CollectionOutput{Body: toCollectionResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "distribute-collections",
		Method:      http.MethodPost,
		Path:        "/api/v1/collections/distribute",
		Summary:     "Create and send a batch of collections",
		Description: "Items are processed in order. When one fails, the collections created before it stay committed and are listed in the error details.",
		Tags:        []string{"Collections"},
	}, func(ctx context.Context, input *DistributeInput) (*DistributeOutput, error) {
		var drafts []domain.DocumentCollection
		if input.Body.Collections != nil {
			drafts = make([]domain.DocumentCollection, len(input.Body.Collections))
			for i, b := range input.Body.Collections {
				drafts[i] = b.toDomain()
			}
		}
		ids, err := svc.Distribute(ctx, input.caller(), drafts)
		if err != nil {
			return nil, toHumaError(err)
		}
		out := &DistributeOutput{}
		out.Body.IDs = ids
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-collection",
		Method:      http.MethodGet,
		Path:        "/api/v1/collections/{id}",
		Summary:     "Get a collection by ID",
		Tags:        []string{"Collections"},
	}, func(ctx context.Context, input *GetCollectionInput) (*CollectionOutput, error) {
		c, err := svc.ReadCollection(ctx, input.caller(), input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CollectionOutput{Body: toCollectionResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-collections",
		Method:      http.MethodGet,
		Path:        "/api/v1/collections",
		Summary:     "List collections of the caller's group",
		Tags:        []string{"Collections"},
	}, func(ctx context.Context, input *ListCollectionsInput) (*ListCollectionsOutput, error) {
		filter := domain.ListFilter{
			Limit:  input.Limit,
			Offset: input.Offset,
		}
		if input.Status != "" {
			s := domain.Status(input.Status)
			filter.Status = &s
		}

		collections, err := svc.ListCollections(ctx, input.caller(), filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]CollectionResponse, len(collections))
		for i, c := range collections {
			resp[i] = toCollectionResponse(c)
		}
		return &ListCollectionsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-collection",
		Method:      http.MethodPatch,
		Path:        "/api/v1/collections/{id}",
		Summary:     "Update collection metadata and field values",
		Tags:        []string{"Collections"},
	}, func(ctx context.Context, input *UpdateCollectionInput) (*CollectionOutput, error) {
		patch := app.CollectionPatch{
			Name:             input.Body.Name,
			Documents:        toDocuments(input.Body.Documents),
			SenderAppendices: toAppendices(input.Body.SenderAppendices),
		}
		c, err := svc.UpdateCollection(ctx, input.caller(), input.ID, patch, toFieldValues(input.Body.Fields))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CollectionOutput{Body: toCollectionResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "cancel-collection",
		Method:        http.MethodPost,
		Path:          "/api/v1/collections/{id}/cancel",
		Summary:       "Cancel a collection",
		Tags:          []string{"Collections"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *CollectionActionInput) (*struct{}, error) {
		if err := svc.CancelCollection(ctx, input.caller(), input.ID); err != nil {
			return nil, toHumaError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-collection",
		Method:        http.MethodDelete,
		Path:          "/api/v1/collections/{id}",
		Summary:       "Delete a collection",
		Tags:          []string{"Collections"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *CollectionActionInput) (*struct{}, error) {
		if err := svc.DeleteCollection(ctx, input.caller(), input.ID); err != nil {
			return nil, toHumaError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "download-collection",
		Method:      http.MethodGet,
		Path:        "/api/v1/collections/{id}/download",
		Summary:     "Download the signed documents",
		Tags:        []string{"Collections"},
	}, func(ctx context.Context, input *CollectionActionInput) (*DownloadCollectionOutput, error) {
		f, err := svc.DownloadCollection(ctx, input.caller(), input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &DownloadCollectionOutput{
			ContentType:        f.ContentType,
			ContentDisposition: `attachment; filename="` + f.Name + `"`,
			Body:               f.Data,
		}, nil
	})
}

func registerSigners(api huma.API, svc *app.CollectionService, access AccessChecker) {
	huma.Register(api, huma.Operation{
		OperationID: "replace-signer",
		Method:      http.MethodPost,
		Path:        "/api/v1/collections/{id}/signers/{signerId}/replace",
		Summary:     "Replace a signer who has not signed yet",
		Tags:        []string{"Signers"},
	}, func(ctx context.Context, input *ReplaceSignerInput) (*CollectionOutput, error) {
		req := app.ReplaceSignerRequest{
			Contact:       input.Body.Contact.toDomain(),
			SendingMethod: domain.SendingMethod(input.Body.SendingMethod),
		}
		if input.Body.Authentication != nil {
			req.Authentication = input.Body.Authentication.toDomain()
		}
		c, err := svc.ReplaceSigner(ctx, input.caller(), input.ID, input.SignerID, req)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CollectionOutput{Body: toCollectionResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "signer-event",
		Method:      http.MethodPost,
		Path:        "/api/v1/collections/{id}/signers/{signerId}/events",
		Summary:     "Report a signer event",
		Tags:        []string{"Signers"},
	}, func(ctx context.Context, input *SignerEventInput) (*CollectionOutput, error) {
		if access != nil {
			revoked, err := access.Revoked(ctx, input.ID, input.SignerID)
			if err != nil {
				return nil, toHumaError(err)
			}
			if revoked {
				return nil, toHumaError(domain.ErrInvalidSignerID.With(input.SignerID))
			}
		}
		c, err := svc.AdvanceSigner(ctx, input.ID, input.SignerID, domain.SignerEvent(input.Body.Event))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CollectionOutput{Body: toCollectionResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "self-sign-event",
		Method:      http.MethodPost,
		Path:        "/api/v1/collections/{id}/self-sign/events",
		Summary:     "Act on a self-signed collection",
		Tags:        []string{"Signers"},
	}, func(ctx context.Context, input *SelfSignInput) (*CollectionOutput, error) {
		c, err := svc.SelfSign(ctx, input.caller(), input.ID, domain.SignerEvent(input.Body.Event))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CollectionOutput{Body: toCollectionResponse(c)}, nil
	})
}

func registerContactsGroups(api huma.API, svc *app.ContactsGroupService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-contacts-group",
		Method:      http.MethodPost,
		Path:        "/api/v1/contacts-groups",
		Summary:     "Create a contacts group",
		Tags:        []string{"Contacts groups"},
	}, func(ctx context.Context, input *CreateContactsGroupInput) (*ContactsGroupOutput, error) {
		g, err := svc.CreateContactsGroup(ctx, input.caller(), input.Body.Name, toMembers(input.Body.Members))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ContactsGroupOutput{Body: toContactsGroupResponse(g)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-contacts-group",
		Method:      http.MethodGet,
		Path:        "/api/v1/contacts-groups/{id}",
		Summary:     "Get a contacts group",
		Tags:        []string{"Contacts groups"},
	}, func(ctx context.Context, input *ContactsGroupInput) (*ContactsGroupOutput, error) {
		g, err := svc.ReadContactsGroup(ctx, input.caller(), input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ContactsGroupOutput{Body: toContactsGroupResponse(g)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-contacts-group",
		Method:      http.MethodPut,
		Path:        "/api/v1/contacts-groups/{id}",
		Summary:     "Rename a contacts group and replace its members",
		Tags:        []string{"Contacts groups"},
	}, func(ctx context.Context, input *UpdateContactsGroupInput) (*ContactsGroupOutput, error) {
		g, err := svc.UpdateContactsGroup(ctx, input.caller(), input.ID, input.Body.Name, toMembers(input.Body.Members))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ContactsGroupOutput{Body: toContactsGroupResponse(g)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-contacts-group",
		Method:        http.MethodDelete,
		Path:          "/api/v1/contacts-groups/{id}",
		Summary:       "Delete a contacts group",
		Tags:          []string{"Contacts groups"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *ContactsGroupInput) (*struct{}, error) {
		if err := svc.DeleteContactsGroup(ctx, input.caller(), input.ID); err != nil {
			return nil, toHumaError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "distribute-to-contacts-group",
		Method:      http.MethodPost,
		Path:        "/api/v1/contacts-groups/{id}/distribute",
		Summary:     "Send the same documents to every member of a group",
		Tags:        []string{"Contacts groups"},
	}, func(ctx context.Context, input *DistributeToContactsGroupInput) (*DistributeOutput, error) {
		ids, err := svc.DistributeToContactsGroup(ctx, input.caller(), app.DistributionRequest{
			ContactsGroupID: input.ID,
			Name:            input.Body.Name,
			Documents:       toDocuments(input.Body.Documents),
			SendingMethod:   domain.SendingMethod(input.Body.SendingMethod),
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		out := &DistributeOutput{}
		out.Body.IDs = ids
		return out, nil
	})
}
