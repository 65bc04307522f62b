package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/neomorfeo/docsign/internal/domain"
)

var _ domain.QuotaService = (*QuotaLedger)(nil)

// License is the quota row of one account. A negative limit means unlimited.
type License struct {
	AccountID      string
	ExpiresAt      time.Time
	DocumentsLimit int
	SmsLimit       int
	VisualLimit    int
}

// Usage reports the units consumed by an account.
type Usage struct {
	Documents int
	Sms       int
	Visual    int
}

// resource names the limit/used column pair of one quota. Column names are
// constants, never caller input.
type resource struct {
	limit    string
	used     string
	exceeded *domain.Error
}

var (
	documentsResource = resource{"documents_limit", "documents_used", domain.ErrDocumentsExceedLicenseLimit}
	smsResource       = resource{"sms_limit", "sms_used", domain.ErrSmsExceedLicenseLimit}
	visualResource    = resource{"visual_limit", "visual_used", domain.ErrVisualIdentificationsExceedLimit}
)

// QuotaLedger implements domain.QuotaService on the licenses table. Accounts
// without a license row are treated as expired with no units available.
type QuotaLedger struct {
	db  *sql.DB
	now func() time.Time
}

func NewQuotaLedger(s *Store) *QuotaLedger {
	return &QuotaLedger{db: s.db, now: time.Now}
}

// PutLicense creates or replaces the license of an account, keeping its usage.
func (l *QuotaLedger) PutLicense(ctx context.Context, lic License) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO licenses (account_id, expires_at, documents_limit, sms_limit, visual_limit)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (account_id) DO UPDATE SET
		   expires_at = excluded.expires_at,
		   documents_limit = excluded.documents_limit,
		   sms_limit = excluded.sms_limit,
		   visual_limit = excluded.visual_limit`,
		lic.AccountID, formatTime(lic.ExpiresAt), lic.DocumentsLimit, lic.SmsLimit, lic.VisualLimit,
	)
	if err != nil {
		return fmt.Errorf("saving license: %w", err)
	}
	return nil
}

// Usage returns the consumed units of an account.
func (l *QuotaLedger) Usage(ctx context.Context, accountID string) (Usage, error) {
	var u Usage
	err := l.db.QueryRowContext(ctx,
		`SELECT documents_used, sms_used, visual_used FROM licenses WHERE account_id = ?`, accountID,
	).Scan(&u.Documents, &u.Sms, &u.Visual)
	if errors.Is(err, sql.ErrNoRows) {
		return Usage{}, nil
	}
	if err != nil {
		return Usage{}, fmt.Errorf("reading usage: %w", err)
	}
	return u, nil
}

func (l *QuotaLedger) ProgramExpired(ctx context.Context, accountID string) (bool, error) {
	var expiresAt string
	err := l.db.QueryRowContext(ctx,
		`SELECT expires_at FROM licenses WHERE account_id = ?`, accountID,
	).Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading license: %w", err)
	}

	t, err := parseTime(expiresAt)
	if err != nil {
		return false, err
	}
	return !l.now().Before(t), nil
}

func (l *QuotaLedger) CanAddDocument(ctx context.Context, accountID string, count int) (bool, error) {
	return l.canAdd(ctx, accountID, documentsResource, count)
}

func (l *QuotaLedger) CanAddSms(ctx context.Context, accountID string, count int) (bool, error) {
	return l.canAdd(ctx, accountID, smsResource, count)
}

func (l *QuotaLedger) CanAddVisualIdentifications(ctx context.Context, accountID string, count int) (bool, error) {
	return l.canAdd(ctx, accountID, visualResource, count)
}

func (l *QuotaLedger) AddDocument(ctx context.Context, accountID string) error {
	return l.add(ctx, accountID, documentsResource, 1)
}

func (l *QuotaLedger) AddSms(ctx context.Context, accountID string, count int) error {
	return l.add(ctx, accountID, smsResource, count)
}

func (l *QuotaLedger) AddVisualIdentification(ctx context.Context, accountID string) error {
	return l.add(ctx, accountID, visualResource, 1)
}

func (l *QuotaLedger) canAdd(ctx context.Context, accountID string, r resource, count int) (bool, error) {
	var limit, used int
	err := l.db.QueryRowContext(ctx,
		`SELECT `+r.limit+`, `+r.used+` FROM licenses WHERE account_id = ?`, accountID,
	).Scan(&limit, &used)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", r.limit, err)
	}
	return limit < 0 || used+count <= limit, nil
}

// add reserves count units in a single conditional statement so two sessions
// can never both take the last unit.
func (l *QuotaLedger) add(ctx context.Context, accountID string, r resource, count int) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE licenses SET `+r.used+` = `+r.used+` + ?
		 WHERE account_id = ? AND (`+r.limit+` < 0 OR `+r.used+` + ? <= `+r.limit+`)`,
		count, accountID, count,
	)
	if err != nil {
		return fmt.Errorf("reserving %s: %w", r.used, err)
	}
	return expectOneRow(res, r.exceeded.With(fmt.Sprintf("account %s", accountID)))
}
