package http

import (
	"github.com/neomorfeo/docsign/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z"

// --- Shared bodies ---

type DocumentBody struct {
	ID         string `json:"id,omitempty" doc:"Document identifier assigned on creation"`
	TemplateID string `json:"template_id" doc:"Template the document is rendered from"`
	Name       string `json:"name" doc:"Document name"`
}

type AppendixBody struct {
	Name    string `json:"name" doc:"File name"`
	BlobKey string `json:"blob_key" doc:"Storage key of the uploaded file"`
}

type FieldValueBody struct {
	TemplateID string `json:"template_id"`
	Name       string `json:"name"`
	Value      string `json:"value"`
}

type SignerFieldBody struct {
	TemplateID string `json:"template_id"`
	Name       string `json:"name"`
}

type ContactBody struct {
	ID    string `json:"id,omitempty" doc:"Existing contact; when empty the contact is matched or created by email or phone"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty" format:"email"`
	Phone string `json:"phone,omitempty"`
}

type AuthenticationBody struct {
	Mode    string `json:"mode,omitempty" enum:"none,otp,visual_identification"`
	OTPMode string `json:"otp_mode,omitempty" enum:"none,email,sms"`
}

type SignerBody struct {
	Contact        ContactBody         `json:"contact"`
	SendingMethod  string              `json:"sending_method" enum:"email,sms"`
	Order          int                 `json:"order,omitempty" minimum:"0"`
	Authentication *AuthenticationBody `json:"authentication,omitempty"`
	Appendices     []AppendixBody      `json:"appendices,omitempty"`
	Fields         []SignerFieldBody   `json:"fields,omitempty"`
}

// CollectionBody describes a collection to create or distribute.
type CollectionBody struct {
	Name             string           `json:"name" minLength:"1" maxLength:"255" doc:"Display name"`
	Mode             string           `json:"mode,omitempty" enum:"online,self_sign,group_sign,ordered_group_sign" doc:"Signing mode; distribution defaults to group_sign"`
	Documents        []DocumentBody   `json:"documents" minItems:"1"`
	Signers          []SignerBody     `json:"signers,omitempty"`
	SenderAppendices []AppendixBody   `json:"sender_appendices,omitempty"`
	Fields           []FieldValueBody `json:"fields,omitempty"`
}

// --- Responses ---

type SignerResponse struct {
	ID             string             `json:"id"`
	Contact        ContactBody        `json:"contact"`
	SendingMethod  string             `json:"sending_method"`
	Order          int                `json:"order"`
	Status         string             `json:"status"`
	Authentication AuthenticationBody `json:"authentication"`
	Appendices     []AppendixBody     `json:"appendices"`
	Fields         []SignerFieldBody  `json:"fields"`
}

// CollectionResponse is the API representation of a document collection.
type CollectionResponse struct {
	ID               string           `json:"id" doc:"Unique identifier"`
	GroupID          string           `json:"group_id"`
	UserID           string           `json:"user_id" doc:"Creator"`
	Name             string           `json:"name"`
	Mode             string           `json:"mode"`
	Status           string           `json:"status" doc:"Lifecycle state"`
	Version          int              `json:"version"`
	Documents        []DocumentBody   `json:"documents"`
	Signers          []SignerResponse `json:"signers"`
	SenderAppendices []AppendixBody   `json:"sender_appendices"`
	Fields           []FieldValueBody `json:"fields"`
	CreatedAt        string           `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt        string           `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

type ContactsGroupMemberBody struct {
	ContactID string `json:"contact_id" minLength:"1"`
	Order     int    `json:"order,omitempty" minimum:"0"`
}

type ContactsGroupResponse struct {
	ID        string                    `json:"id"`
	Name      string                    `json:"name"`
	Members   []ContactsGroupMemberBody `json:"members"`
	CreatedAt string                    `json:"created_at"`
	UpdatedAt string                    `json:"updated_at"`
}

// --- Conversions ---

func toCollectionResponse(c domain.DocumentCollection) CollectionResponse {
	resp := CollectionResponse{
		ID:               c.ID,
		GroupID:          c.GroupID,
		UserID:           c.UserID,
		Name:             c.Name,
		Mode:             string(c.Mode),
		Status:           string(c.Status),
		Version:          c.Version,
		Documents:        make([]DocumentBody, len(c.Documents)),
		Signers:          make([]SignerResponse, len(c.Signers)),
		SenderAppendices: toAppendixBodies(c.SenderAppendices),
		Fields:           make([]FieldValueBody, len(c.Fields)),
		CreatedAt:        c.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:        c.UpdatedAt.UTC().Format(timeFormat),
	}
	for i, d := range c.Documents {
		resp.Documents[i] = DocumentBody{ID: d.ID, TemplateID: d.TemplateID, Name: d.Name}
	}
	for i, f := range c.Fields {
		resp.Fields[i] = FieldValueBody(f)
	}
	for i, s := range c.Signers {
		fields := make([]SignerFieldBody, len(s.Fields))
		for j, f := range s.Fields {
			fields[j] = SignerFieldBody(f)
		}
		resp.Signers[i] = SignerResponse{
			ID: s.ID,
			Contact: ContactBody{
				ID:    s.Contact.ID,
				Name:  s.Contact.Name,
				Email: s.Contact.Email,
				Phone: s.Contact.Phone,
			},
			SendingMethod: string(s.SendingMethod),
			Order:         s.Order,
			Status:        string(s.Status),
			Authentication: AuthenticationBody{
				Mode:    string(s.Authentication.Mode),
				OTPMode: string(s.Authentication.OTPMode),
			},
			Appendices: toAppendixBodies(s.Appendices),
			Fields:     fields,
		}
	}
	return resp
}

func toAppendixBodies(as []domain.Appendix) []AppendixBody {
	out := make([]AppendixBody, len(as))
	for i, a := range as {
		out[i] = AppendixBody(a)
	}
	return out
}

func (b CollectionBody) toDomain() domain.DocumentCollection {
	c := domain.DocumentCollection{
		Name:             b.Name,
		Mode:             domain.Mode(b.Mode),
		Documents:        toDocuments(b.Documents),
		SenderAppendices: toAppendices(b.SenderAppendices),
		Fields:           toFieldValues(b.Fields),
	}
	if len(b.Signers) > 0 {
		c.Signers = make([]domain.Signer, len(b.Signers))
		for i, s := range b.Signers {
			c.Signers[i] = s.toDomain()
		}
	}
	return c
}

func (s SignerBody) toDomain() domain.Signer {
	signer := domain.Signer{
		Contact:       s.Contact.toDomain(),
		SendingMethod: domain.SendingMethod(s.SendingMethod),
		Order:         s.Order,
		Appendices:    toAppendices(s.Appendices),
	}
	if s.Authentication != nil {
		signer.Authentication = s.Authentication.toDomain()
	}
	if len(s.Fields) > 0 {
		signer.Fields = make([]domain.SignerField, len(s.Fields))
		for i, f := range s.Fields {
			signer.Fields[i] = domain.SignerField(f)
		}
	}
	return signer
}

func (c ContactBody) toDomain() domain.Contact {
	return domain.Contact{ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone}
}

func (a AuthenticationBody) toDomain() domain.Authentication {
	return domain.Authentication{Mode: domain.AuthMode(a.Mode), OTPMode: domain.OTPMode(a.OTPMode)}
}

func toDocuments(docs []DocumentBody) []domain.Document {
	if docs == nil {
		return nil
	}
	out := make([]domain.Document, len(docs))
	for i, d := range docs {
		out[i] = domain.Document{TemplateID: d.TemplateID, Name: d.Name}
	}
	return out
}

func toAppendices(as []AppendixBody) []domain.Appendix {
	if as == nil {
		return nil
	}
	out := make([]domain.Appendix, len(as))
	for i, a := range as {
		out[i] = domain.Appendix(a)
	}
	return out
}

func toFieldValues(fs []FieldValueBody) []domain.FieldValue {
	if fs == nil {
		return nil
	}
	out := make([]domain.FieldValue, len(fs))
	for i, f := range fs {
		out[i] = domain.FieldValue(f)
	}
	return out
}

func toContactsGroupResponse(g domain.ContactsGroup) ContactsGroupResponse {
	members := make([]ContactsGroupMemberBody, len(g.Members))
	for i, m := range g.Members {
		members[i] = ContactsGroupMemberBody(m)
	}
	return ContactsGroupResponse{
		ID:        g.ID,
		Name:      g.Name,
		Members:   members,
		CreatedAt: g.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt: g.UpdatedAt.UTC().Format(timeFormat),
	}
}

func toMembers(bodies []ContactsGroupMemberBody) []domain.ContactsGroupMember {
	out := make([]domain.ContactsGroupMember, len(bodies))
	for i, m := range bodies {
		out[i] = domain.ContactsGroupMember(m)
	}
	return out
}
