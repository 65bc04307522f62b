package otel_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"

	adapter "github.com/neomorfeo/docsign/internal/adapter/otel"
	"github.com/neomorfeo/docsign/internal/domain"
)

type mockNotifier struct {
	sent []domain.Notification
	err  error
}

func (m *mockNotifier) Notify(_ context.Context, n domain.Notification) error {
	m.sent = append(m.sent, n)
	return m.err
}

func TestTracingNotifier_Notify_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := &mockNotifier{}
	notifier := adapter.NewTracingNotifier(inner)

	c := sample("col-1")
	err := notifier.Notify(context.Background(), domain.Notification{
		Kind:       domain.NotifySignerSigned,
		Collection: c,
		Signer:     &c.Signers[0],
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "Notifier.Notify" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "Notifier.Notify")
	}
	assertAttribute(t, spans[0], "notification.kind", "signer_signed")
	assertAttribute(t, spans[0], "collection.id", "col-1")
	assertAttribute(t, spans[0], "signer.id", "s-1")

	if len(inner.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(inner.sent))
	}
}

func TestTracingNotifier_Notify_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)
	notifier := adapter.NewTracingNotifier(&mockNotifier{err: errors.New("queue unavailable")})

	err := notifier.Notify(context.Background(), domain.Notification{Kind: domain.NotifyAllSigned, Collection: sample("col-1")})
	if err == nil {
		t.Fatal("expected error")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}
}
