package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/docsign/internal/domain"
)

// TracingNotifier wraps a domain.Notifier with OpenTelemetry tracing.
type TracingNotifier struct {
	next   domain.Notifier
	tracer trace.Tracer
}

var _ domain.Notifier = (*TracingNotifier)(nil)

func NewTracingNotifier(next domain.Notifier) *TracingNotifier {
	return &TracingNotifier{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (n *TracingNotifier) Notify(ctx context.Context, note domain.Notification) error {
	ctx, span := n.tracer.Start(ctx, "Notifier.Notify",
		trace.WithAttributes(
			attribute.String("notification.kind", string(note.Kind)),
			attribute.String("collection.id", note.Collection.ID),
		),
	)
	defer span.End()

	if note.Signer != nil {
		span.SetAttributes(attribute.String("signer.id", note.Signer.ID))
	}

	err := n.next.Notify(ctx, note)
	recordError(span, err)
	return err
}
