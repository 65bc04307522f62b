package http

import "github.com/neomorfeo/docsign/internal/domain"

// CallerHeaders carries the acting user's identity. Authentication happens
// upstream; these headers are set by the gateway.
type CallerHeaders struct {
	AccountID string `header:"X-Account-ID" required:"true" doc:"Account holding the license"`
	GroupID   string `header:"X-Group-ID" required:"true" doc:"Group of the acting user"`
	UserID    string `header:"X-User-ID" required:"true" doc:"Acting user"`
	Role      string `header:"X-Role" required:"false" default:"basic" enum:"basic,editor,admin" doc:"Role of the acting user"`
}

func (h CallerHeaders) caller() domain.Caller {
	return domain.Caller{
		AccountID: h.AccountID,
		GroupID:   h.GroupID,
		UserID:    h.UserID,
		Role:      domain.Role(h.Role),
	}
}
