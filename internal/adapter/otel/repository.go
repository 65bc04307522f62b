package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/docsign/internal/domain"
)

const tracerName = "github.com/neomorfeo/docsign/internal/adapter/otel"

// TracingRepository wraps a domain.CollectionRepository with OpenTelemetry tracing.
// Each method creates a span with semantic attributes and records errors.
type TracingRepository struct {
	next   domain.CollectionRepository
	tracer trace.Tracer
}

// Compile-time check: TracingRepository implements domain.CollectionRepository.
var _ domain.CollectionRepository = (*TracingRepository)(nil)

// NewTracingRepository creates a tracing decorator around the given repository.
func NewTracingRepository(next domain.CollectionRepository) *TracingRepository {
	return &TracingRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRepository) Create(ctx context.Context, c domain.DocumentCollection) error {
	ctx, span := r.tracer.Start(ctx, "CollectionRepository.Create",
		trace.WithAttributes(
			attribute.String("collection.id", c.ID),
			attribute.String("collection.mode", string(c.Mode)),
			attribute.Int("collection.signers", len(c.Signers)),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, c)
	recordError(span, err)
	return err
}

func (r *TracingRepository) GetByID(ctx context.Context, id string) (domain.DocumentCollection, error) {
	ctx, span := r.tracer.Start(ctx, "CollectionRepository.GetByID",
		trace.WithAttributes(attribute.String("collection.id", id)),
	)
	defer span.End()

	c, err := r.next.GetByID(ctx, id)
	recordError(span, err)
	return c, err
}

func (r *TracingRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.DocumentCollection, error) {
	ctx, span := r.tracer.Start(ctx, "CollectionRepository.List",
		trace.WithAttributes(
			attribute.String("filter.group_id", filter.GroupID),
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
		),
	)
	defer span.End()

	if filter.Status != nil {
		span.SetAttributes(attribute.String("filter.status", string(*filter.Status)))
	}

	collections, err := r.next.List(ctx, filter)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Int("result.count", len(collections)))
	}
	return collections, err
}

func (r *TracingRepository) Update(ctx context.Context, id string, mutate func(*domain.DocumentCollection) error) (domain.DocumentCollection, error) {
	ctx, span := r.tracer.Start(ctx, "CollectionRepository.Update",
		trace.WithAttributes(attribute.String("collection.id", id)),
	)
	defer span.End()

	c, err := r.next.Update(ctx, id, mutate)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(
			attribute.String("collection.status", string(c.Status)),
			attribute.Int("collection.version", c.Version),
		)
	}
	return c, err
}

// recordError marks the span failed. Domain errors also carry their stable code.
func recordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	if code := domain.CodeOf(err); code != "" {
		span.SetAttributes(attribute.String("error.code", string(code)))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
