// internal/policy/repository.go
package policy

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DocumentSource fetches raw policy and schedule documents. Unknown ids are
// reported with an error wrapping ErrDocumentNotFound.
type DocumentSource interface {
	GetLoanPolicy(ctx context.Context, id string) ([]byte, error)
	GetFixedDueDateSchedule(ctx context.Context, id string) ([]byte, error)
}

// Repository resolves a policy id into a LoanPolicy with both schedule sets attached.
type Repository struct {
	source DocumentSource
	tracer trace.Tracer
}

// NewRepository creates a repository reading from source.
func NewRepository(source DocumentSource) *Repository {
	return &Repository{
		source: source,
		tracer: otel.Tracer("libracirc/policy"),
	}
}

// Load fetches the policy document and the schedules it references.
func (r *Repository) Load(ctx context.Context, id string) (LoanPolicy, error) {
	ctx, span := r.tracer.Start(ctx, "policy.load",
		trace.WithAttributes(attribute.String("loan_policy.id", id)),
	)
	defer span.End()

	p, err := r.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load loan policy")
		return LoanPolicy{}, err
	}
	span.SetAttributes(
		attribute.String("loan_policy.profile", p.ProfileID()),
		attribute.Bool("schedules.configured", p.DueDateSchedules().IsConfigured()),
		attribute.Bool("alternate_schedules.configured", p.AlternateRenewalSchedules().IsConfigured()),
	)
	return p, nil
}

func (r *Repository) load(ctx context.Context, id string) (LoanPolicy, error) {
	raw, err := r.source.GetLoanPolicy(ctx, id)
	if err != nil {
		return LoanPolicy{}, fmt.Errorf("get loan policy %s: %w", id, err)
	}
	p, err := FromJSON(raw)
	if err != nil {
		return LoanPolicy{}, err
	}

	schedules, err := r.schedules(ctx, p.FixedDueDateScheduleID())
	if err != nil {
		return LoanPolicy{}, err
	}
	alternate, err := r.schedules(ctx, p.AlternateRenewalScheduleID())
	if err != nil {
		return LoanPolicy{}, err
	}

	return p.WithDueDateSchedules(schedules).WithAlternateRenewalSchedules(alternate), nil
}

// schedules resolves a schedule id. An empty or dangling id yields "no schedules".
func (r *Repository) schedules(ctx context.Context, id string) (FixedDueDateSchedules, error) {
	if id == "" {
		return NoFixedDueDateSchedules(), nil
	}
	raw, err := r.source.GetFixedDueDateSchedule(ctx, id)
	if errors.Is(err, ErrDocumentNotFound) {
		return NoFixedDueDateSchedules(), nil
	}
	if err != nil {
		return FixedDueDateSchedules{}, fmt.Errorf("get fixed due date schedule %s: %w", id, err)
	}
	doc, err := ParseScheduleDocument(raw)
	if err != nil {
		return FixedDueDateSchedules{}, err
	}
	return doc.FixedDueDateSchedules(), nil
}
