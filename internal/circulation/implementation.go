// internal/circulation/implementation.go
package circulation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"libracirc/internal/clients"
	"libracirc/internal/eventstore"
	"libracirc/internal/loan"
	"libracirc/internal/platform/logger"
	"libracirc/internal/policy"
	"libracirc/internal/rules"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Operations reported on the calculations counter.
const (
	opDueDate       = "due_date"
	opRenew         = "renew"
	opOverrideRenew = "override_renew"
	opRecall        = "recall"
)

// Deps are the collaborators of the circulation service. Events may be nil;
// a nil Meter uses the global meter provider.
type Deps struct {
	Items    ItemFetcher
	Users    UserFetcher
	Requests RequestFetcher
	Resolver PolicyResolver
	Policies PolicyLoader
	Events   EventLog
	Clock    Clock
	Meter    metric.Meter
}

// service implements the Service interface.
type service struct {
	Deps
	calculations metric.Int64Counter
}

// NewService creates a new circulation service instance.
func NewService(d Deps) (Service, error) {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Meter == nil {
		d.Meter = otel.Meter("libracirc/circulation")
	}
	counter, err := d.Meter.Int64Counter(
		"circulation.due_date.calculations",
		metric.WithDescription("Due date calculations by operation and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create calculations counter: %w", err)
	}
	return &service{Deps: d, calculations: counter}, nil
}

// loanContext is everything the engine needs besides the loan itself.
type loanContext struct {
	item   *clients.Item
	queue  *loan.RequestQueue
	policy policy.LoanPolicy
}

// load fetches the item, patron and request queue, then resolves and loads
// the loan policy. With keepPolicy the loan's own policy id is used when set.
func (s *service) load(ctx context.Context, l *loan.Loan, itemID uuid.UUID, keepPolicy bool) (*loanContext, error) {
	item, err := s.Items.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if l.ItemStatus == "" {
		l.ItemStatus = item.Status.Name
	}

	queue, err := s.Requests.GetRequestQueue(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get request queue: %w", err)
	}

	policyID := l.LoanPolicyID
	if !keepPolicy || policyID == "" {
		user, err := s.Users.GetUser(ctx, l.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		policyID, err = s.Resolver.Resolve(ctx, rules.Criteria{
			PatronGroupID:  user.PatronGroup,
			MaterialTypeID: item.MaterialTypeID,
			LoanTypeID:     item.LoanTypeID(),
			LocationID:     item.EffectiveLocationID,
		})
		if err != nil {
			return nil, err
		}
	}

	p, err := s.Policies.Load(ctx, policyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load loan policy: %w", err)
	}
	return &loanContext{item: item, queue: queue, policy: p}, nil
}

// DueDate calculates the due date of a new loan.
func (s *service) DueDate(ctx context.Context, l *loan.Loan, itemID uuid.UUID) (out *DueDate, err error) {
	defer func() { s.record(ctx, opDueDate, err) }()

	if itemID == uuid.Nil {
		itemID = l.ItemID
	}
	lc, err := s.load(ctx, l, itemID, false)
	if err != nil {
		return nil, err
	}

	result, err := initialDueDate(lc.policy, l, lc.queue, itemID.String())
	if err != nil {
		return nil, err
	}

	logger.C(ctx).Debug().
		Str("loan_policy_id", lc.policy.ID()).
		Str("strategy", result.Strategy.String()).
		Time("due_date", result.DueDate).
		Msg("due date calculated")

	return &DueDate{
		DueDate:             result.DueDate,
		LoanPolicyID:        lc.policy.ID(),
		LoanPolicyName:      lc.policy.Name(),
		AlternatePeriodUsed: result.AlternatePeriodUsed,
		Strategy:            result.Strategy.String(),
	}, nil
}

// initialDueDate uses the earliest matching schedule for fixed loans on items
// with a pending hold when the policy has no alternate loan period for holds.
func initialDueDate(p policy.LoanPolicy, l *loan.Loan, queue *loan.RequestQueue, itemID string) (policy.DueDateResult, error) {
	if p.IsFixed() && queue.HasOpenHoldFor(itemID) && !p.IsAlternatePeriodApplicable(queue, itemID) {
		s := p.SelectAlternateFixedCheckout()
		due, err := s.Calculate(l)
		if err != nil {
			return policy.DueDateResult{}, err
		}
		return policy.DueDateResult{DueDate: due, Strategy: s.Kind}, nil
	}
	return p.CalculateInitialDueDate(l, queue, itemID)
}

// Renew applies the regular renewal rules.
func (s *service) Renew(ctx context.Context, l *loan.Loan) (out *loan.Loan, err error) {
	defer func() { s.record(ctx, opRenew, err) }()

	lc, err := s.load(ctx, l, l.ItemID, false)
	if err != nil {
		return nil, err
	}

	renewed, err := lc.policy.Renew(l, s.Clock(), lc.queue)
	if err != nil {
		return nil, err
	}
	if err := s.publish(ctx, EventLoanRenewed, l.DueDate, renewed); err != nil {
		return nil, err
	}
	return renewed, nil
}

// OverrideRenew renews a loan the regular rules reject.
func (s *service) OverrideRenew(ctx context.Context, l *loan.Loan, dueDate *time.Time, comment string) (out *loan.Loan, err error) {
	defer func() { s.record(ctx, opOverrideRenew, err) }()

	lc, err := s.load(ctx, l, l.ItemID, false)
	if err != nil {
		return nil, err
	}

	renewed, err := lc.policy.OverrideRenewal(l, s.Clock(), dueDate, comment, lc.queue)
	if err != nil {
		return nil, err
	}
	if err := s.publish(ctx, EventLoanRenewalOverridden, l.DueDate, renewed); err != nil {
		return nil, err
	}
	return renewed, nil
}

// Recall shortens the loan for a recall request. Only the first recall moves the due date.
func (s *service) Recall(ctx context.Context, l *loan.Loan) (out *loan.Loan, err error) {
	defer func() { s.record(ctx, opRecall, err) }()

	lc, err := s.load(ctx, l, l.ItemID, true)
	if err != nil {
		return nil, err
	}

	alreadyRecalled := l.WasDueDateChangedByRecall()
	previous := l.DueDate
	recalled, err := lc.policy.Recall(l, s.Clock())
	if err != nil {
		return nil, err
	}
	if alreadyRecalled {
		return recalled, nil
	}
	if err := s.publish(ctx, EventLoanDueDateChangedByRecall, previous, recalled); err != nil {
		return nil, err
	}
	return recalled, nil
}

// GetPolicy loads and summarises a loan policy.
func (s *service) GetPolicy(ctx context.Context, id string) (*PolicySummary, error) {
	p, err := s.Policies.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PolicySummary{
		ID:                                  p.ID(),
		Name:                                p.Name(),
		ProfileID:                           p.ProfileID(),
		Loanable:                            p.IsLoanable(),
		Renewable:                           p.IsRenewable(),
		FixedDueDateScheduleID:              p.FixedDueDateScheduleID(),
		SchedulesConfigured:                 p.DueDateSchedules().IsConfigured(),
		AlternateRenewalScheduleID:          p.AlternateRenewalScheduleID(),
		AlternateRenewalSchedulesConfigured: p.AlternateRenewalSchedules().IsConfigured(),
		Document:                            p.Raw(),
	}, nil
}

// History returns the stored events of a loan.
func (s *service) History(ctx context.Context, loanID uuid.UUID) ([]HistoryEntry, error) {
	if s.Events == nil {
		return []HistoryEntry{}, nil
	}
	events, err := s.Events.LoadEvents(ctx, loanID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	out := make([]HistoryEntry, len(events))
	for i, e := range events {
		out[i] = HistoryEntry{Version: e.Version, Type: e.EventType, Data: e.EventData, CreatedAt: e.CreatedAt}
	}
	return out, nil
}

func (s *service) publish(ctx context.Context, eventType string, previousDueDate time.Time, l *loan.Loan) error {
	if s.Events == nil {
		return nil
	}
	if l.ID == uuid.Nil {
		logger.C(ctx).Warn().Str("event_type", eventType).Msg("loan has no id, event not recorded")
		return nil
	}

	data, err := codec.Marshal(LoanDueDateChanged{
		LoanID:          l.ID,
		ItemID:          l.ItemID,
		UserID:          l.UserID,
		LoanPolicyID:    l.LoanPolicyID,
		PreviousDueDate: previousDueDate,
		DueDate:         l.DueDate,
		RenewalCount:    l.RenewalCount,
		Comment:         l.ActionComment,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	version, err := s.Events.GetCurrentVersion(ctx, l.ID)
	if err != nil {
		return fmt.Errorf("failed to get loan version: %w", err)
	}
	event := eventstore.Event{
		AggregateID:   l.ID,
		AggregateType: aggregateLoan,
		EventType:     eventType,
		EventData:     data,
		Metadata:      map[string]interface{}{"request_id": logger.RequestID(ctx)},
	}
	if err := s.Events.AppendEvents(ctx, l.ID, aggregateLoan, version, []eventstore.Event{event}); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (s *service) record(ctx context.Context, op string, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case policy.IsValidation(err):
		outcome = "validation_failure"
	default:
		outcome = "error"
		logger.C(ctx).Error().Err(err).Str("operation", op).Msg("circulation operation failed")
	}
	s.calculations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}
