// internal/circulation/service.go
package circulation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"libracirc/internal/clients"
	"libracirc/internal/eventstore"
	"libracirc/internal/loan"
	"libracirc/internal/policy"
	"libracirc/internal/rules"
)

// Service defines the interface for the circulation service.
type Service interface {
	DueDate(ctx context.Context, l *loan.Loan, itemID uuid.UUID) (*DueDate, error)
	Renew(ctx context.Context, l *loan.Loan) (*loan.Loan, error)
	OverrideRenew(ctx context.Context, l *loan.Loan, dueDate *time.Time, comment string) (*loan.Loan, error)
	Recall(ctx context.Context, l *loan.Loan) (*loan.Loan, error)
	GetPolicy(ctx context.Context, id string) (*PolicySummary, error)
	History(ctx context.Context, loanID uuid.UUID) ([]HistoryEntry, error)
}

// ItemFetcher loads item records.
type ItemFetcher interface {
	GetItem(ctx context.Context, id uuid.UUID) (*clients.Item, error)
}

// UserFetcher loads patron records.
type UserFetcher interface {
	GetUser(ctx context.Context, id uuid.UUID) (*clients.User, error)
}

// RequestFetcher loads the request queue of an item.
type RequestFetcher interface {
	GetRequestQueue(ctx context.Context, itemID uuid.UUID) (*loan.RequestQueue, error)
}

// PolicyResolver picks the loan policy id for a loan.
type PolicyResolver interface {
	Resolve(ctx context.Context, c rules.Criteria) (string, error)
}

// PolicyLoader loads a loan policy with its schedules.
type PolicyLoader interface {
	Load(ctx context.Context, id string) (policy.LoanPolicy, error)
}

// EventLog records loan events.
type EventLog interface {
	AppendEvents(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, events []eventstore.Event) error
	LoadEvents(ctx context.Context, aggregateID uuid.UUID, fromVersion, toVersion int) ([]eventstore.Event, error)
	GetCurrentVersion(ctx context.Context, aggregateID uuid.UUID) (int, error)
}

// Clock returns the system date.
type Clock func() time.Time
