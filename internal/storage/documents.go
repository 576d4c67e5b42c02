// internal/storage/documents.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"libracirc/internal/policy"
)

const (
	tableLoanPolicies = "loan_policies"
	tableSchedules    = "fixed_due_date_schedules"
)

// Store reads and writes policy documents and circulation rules.
// It satisfies policy.DocumentSource and rules.Source.
type Store struct {
	db  *DB
	now func() time.Time
}

func NewStore(db *DB) *Store {
	return &Store{db: db, now: time.Now}
}

// GetLoanPolicy returns the raw loan policy document.
func (s *Store) GetLoanPolicy(ctx context.Context, id string) ([]byte, error) {
	return s.getDocument(ctx, tableLoanPolicies, id)
}

// GetFixedDueDateSchedule returns the raw fixed due date schedule document.
func (s *Store) GetFixedDueDateSchedule(ctx context.Context, id string) ([]byte, error) {
	return s.getDocument(ctx, tableSchedules, id)
}

// SaveLoanPolicy validates and stores a loan policy document, replacing any
// document with the same id.
func (s *Store) SaveLoanPolicy(ctx context.Context, raw []byte) (policy.Document, error) {
	if !policy.ValidJSON(raw) {
		return policy.Document{}, fmt.Errorf("%w: loan policy is not valid json", policy.ErrInvalidDocument)
	}
	doc, err := policy.ParseDocument(raw)
	if err != nil {
		return policy.Document{}, err
	}
	if err := s.putDocument(ctx, tableLoanPolicies, doc.ID, doc.Name, raw); err != nil {
		return policy.Document{}, err
	}
	return doc, nil
}

// SaveFixedDueDateSchedule validates and stores a schedule document.
func (s *Store) SaveFixedDueDateSchedule(ctx context.Context, raw []byte) (policy.ScheduleDocument, error) {
	if !policy.ValidJSON(raw) {
		return policy.ScheduleDocument{}, fmt.Errorf("%w: fixed due date schedule is not valid json", policy.ErrInvalidDocument)
	}
	doc, err := policy.ParseScheduleDocument(raw)
	if err != nil {
		return policy.ScheduleDocument{}, err
	}
	if err := s.putDocument(ctx, tableSchedules, doc.ID, doc.Name, raw); err != nil {
		return policy.ScheduleDocument{}, err
	}
	return doc, nil
}

func (s *Store) getDocument(ctx context.Context, table, id string) ([]byte, error) {
	query, args, err := s.db.Dialect.From(table).Prepared(true).
		Select("document").
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", table, err)
	}

	var raw []byte
	err = s.db.GetContext(ctx, &raw, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", table, id, policy.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s %s: %w", table, id, err)
	}
	return raw, nil
}

// putDocument updates the row for id or inserts it when absent.
func (s *Store) putDocument(ctx context.Context, table, id, name string, raw []byte) error {
	record := goqu.Record{"name": name, "document": string(raw), "updated_at": s.now().UTC()}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	update, args, err := s.db.Dialect.Update(table).Prepared(true).
		Set(record).
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build %s update: %w", table, err)
	}
	res, err := tx.ExecContext(ctx, update, args...)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if n == 0 {
		record["id"] = id
		insert, args, err := s.db.Dialect.Insert(table).Prepared(true).Rows(record).ToSQL()
		if err != nil {
			return fmt.Errorf("build %s insert: %w", table, err)
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return fmt.Errorf("insert %s %s: %w", table, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
