package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/docsign/internal/domain"
)

// Compile-time check: Notifier implements domain.Notifier.
var _ domain.Notifier = (*Notifier)(nil)

// NotificationJobArgs carries a snapshot of the collection and signer at the
// time of the status change, so the worker never needs to query the database.
type NotificationJobArgs struct {
	Event          string `json:"event"`
	CollectionID   string `json:"collection_id"`
	CollectionName string `json:"collection_name"`
	AccountID      string `json:"account_id"`
	Status         string `json:"status"`
	SignerID       string `json:"signer_id,omitempty"`
	SignerStatus   string `json:"signer_status,omitempty"`
	SendingMethod  string `json:"sending_method,omitempty"`
	Recipient      string `json:"recipient,omitempty"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (NotificationJobArgs) Kind() string { return "notification.dispatch" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Notifier implements domain.Notifier by enqueuing River jobs.
type Notifier struct {
	client *Client
}

func NewNotifier(client *Client) *Notifier {
	return &Notifier{client: client}
}

// Notify enqueues the notification for asynchronous delivery.
func (n *Notifier) Notify(ctx context.Context, note domain.Notification) error {
	args := NotificationJobArgs{
		Event:          string(note.Kind),
		CollectionID:   note.Collection.ID,
		CollectionName: note.Collection.Name,
		AccountID:      note.Collection.AccountID,
		Status:         string(note.Collection.Status),
	}
	if s := note.Signer; s != nil {
		args.SignerID = s.ID
		args.SignerStatus = string(s.Status)
		args.SendingMethod = string(s.SendingMethod)
		args.Recipient = recipient(*s)
	}

	if _, err := n.client.Insert(ctx, args, nil); err != nil {
		return fmt.Errorf("enqueuing notification job: %w", err)
	}
	return nil
}

func recipient(s domain.Signer) string {
	if s.SendingMethod == domain.SendingMethodSMS {
		return s.Contact.Phone
	}
	return s.Contact.Email
}
