package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/neomorfeo/docsign/internal/domain"
)

// The nested parts of a collection are stored as JSON columns. These records
// pin the column format so renaming a domain field never breaks stored rows.

type documentRecord struct {
	ID         string `json:"id"`
	TemplateID string `json:"template_id"`
	Name       string `json:"name"`
}

type appendixRecord struct {
	Name    string `json:"name"`
	BlobKey string `json:"blob_key"`
}

type fieldValueRecord struct {
	TemplateID string `json:"template_id"`
	Name       string `json:"name"`
	Value      string `json:"value"`
}

type signerFieldRecord struct {
	TemplateID string `json:"template_id"`
	Name       string `json:"name"`
}

type contactRecord struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id,omitempty"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

type signerRecord struct {
	ID            string              `json:"id"`
	Contact       contactRecord       `json:"contact"`
	SendingMethod string              `json:"sending_method"`
	Order         int                 `json:"order"`
	Status        string              `json:"status"`
	AuthMode      string              `json:"auth_mode"`
	OTPMode       string              `json:"otp_mode"`
	Appendices    []appendixRecord    `json:"appendices,omitempty"`
	Fields        []signerFieldRecord `json:"fields,omitempty"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

type memberRecord struct {
	ContactID string `json:"contact_id"`
	Order     int    `json:"order"`
}

type fieldDefinitionRecord struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding json column: %w", err)
	}
	return string(b), nil
}

func decodeJSON(s string, v any) error {
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("decoding json column: %w", err)
	}
	return nil
}

func toDocumentRecords(docs []domain.Document) []documentRecord {
	out := make([]documentRecord, len(docs))
	for i, d := range docs {
		out[i] = documentRecord(d)
	}
	return out
}

func fromDocumentRecords(recs []documentRecord) []domain.Document {
	if len(recs) == 0 {
		return nil
	}
	out := make([]domain.Document, len(recs))
	for i, r := range recs {
		out[i] = domain.Document(r)
	}
	return out
}

func toAppendixRecords(as []domain.Appendix) []appendixRecord {
	if len(as) == 0 {
		return nil
	}
	out := make([]appendixRecord, len(as))
	for i, a := range as {
		out[i] = appendixRecord(a)
	}
	return out
}

func fromAppendixRecords(recs []appendixRecord) []domain.Appendix {
	if len(recs) == 0 {
		return nil
	}
	out := make([]domain.Appendix, len(recs))
	for i, r := range recs {
		out[i] = domain.Appendix(r)
	}
	return out
}

func toFieldValueRecords(fs []domain.FieldValue) []fieldValueRecord {
	out := make([]fieldValueRecord, len(fs))
	for i, f := range fs {
		out[i] = fieldValueRecord(f)
	}
	return out
}

func fromFieldValueRecords(recs []fieldValueRecord) []domain.FieldValue {
	if len(recs) == 0 {
		return nil
	}
	out := make([]domain.FieldValue, len(recs))
	for i, r := range recs {
		out[i] = domain.FieldValue(r)
	}
	return out
}

func toSignerRecords(signers []domain.Signer) []signerRecord {
	out := make([]signerRecord, len(signers))
	for i, s := range signers {
		fields := make([]signerFieldRecord, len(s.Fields))
		for j, f := range s.Fields {
			fields[j] = signerFieldRecord(f)
		}
		out[i] = signerRecord{
			ID: s.ID,
			Contact: contactRecord{
				ID:      s.Contact.ID,
				OwnerID: s.Contact.OwnerID,
				Name:    s.Contact.Name,
				Email:   s.Contact.Email,
				Phone:   s.Contact.Phone,
			},
			SendingMethod: string(s.SendingMethod),
			Order:         s.Order,
			Status:        string(s.Status),
			AuthMode:      string(s.Authentication.Mode),
			OTPMode:       string(s.Authentication.OTPMode),
			Appendices:    toAppendixRecords(s.Appendices),
			Fields:        fields,
			UpdatedAt:     s.UpdatedAt,
		}
	}
	return out
}

func fromSignerRecords(recs []signerRecord) []domain.Signer {
	if len(recs) == 0 {
		return nil
	}
	out := make([]domain.Signer, len(recs))
	for i, r := range recs {
		var fields []domain.SignerField
		if len(r.Fields) > 0 {
			fields = make([]domain.SignerField, len(r.Fields))
			for j, f := range r.Fields {
				fields[j] = domain.SignerField(f)
			}
		}
		out[i] = domain.Signer{
			ID: r.ID,
			Contact: domain.Contact{
				ID:      r.Contact.ID,
				OwnerID: r.Contact.OwnerID,
				Name:    r.Contact.Name,
				Email:   r.Contact.Email,
				Phone:   r.Contact.Phone,
			},
			SendingMethod: domain.SendingMethod(r.SendingMethod),
			Order:         r.Order,
			Status:        domain.SignerStatus(r.Status),
			Authentication: domain.Authentication{
				Mode:    domain.AuthMode(r.AuthMode),
				OTPMode: domain.OTPMode(r.OTPMode),
			},
			Appendices: fromAppendixRecords(r.Appendices),
			Fields:     fields,
			UpdatedAt:  r.UpdatedAt,
		}
	}
	return out
}
