// internal/storage/rules.go
package storage

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"libracirc/internal/rules"
)

const tableRules = "circulation_rules"

var ruleColumns = []any{"id", "patron_group_id", "material_type_id", "loan_type_id", "location_id", "loan_policy_id", "priority"}

// ListRules returns every circulation rule, highest priority first.
func (s *Store) ListRules(ctx context.Context) ([]rules.Rule, error) {
	query, args, err := s.db.Dialect.From(tableRules).Prepared(true).
		Select(ruleColumns...).
		Order(goqu.C("priority").Desc(), goqu.C("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build rules query: %w", err)
	}

	var out []rules.Rule
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	return out, nil
}

// SaveRule replaces the rule with the same id.
func (s *Store) SaveRule(ctx context.Context, r rules.Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	del, args, err := s.db.Dialect.Delete(tableRules).Prepared(true).
		Where(goqu.C("id").Eq(r.ID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build rule delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, del, args...); err != nil {
		return fmt.Errorf("delete rule %s: %w", r.ID, err)
	}

	insert, args, err := s.db.Dialect.Insert(tableRules).Prepared(true).
		Rows(goqu.Record{
			"id":               r.ID,
			"patron_group_id":  r.PatronGroupID,
			"material_type_id": r.MaterialTypeID,
			"loan_type_id":     r.LoanTypeID,
			"location_id":      r.LocationID,
			"loan_policy_id":   r.LoanPolicyID,
			"priority":         r.Priority,
		}).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build rule insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
		return fmt.Errorf("insert rule %s: %w", r.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
