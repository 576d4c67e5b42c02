// internal/rules/rules.go

// Package rules maps an item and patron to the loan policy that governs the loan.
package rules

import (
	"context"
	"errors"
	"fmt"

	"libracirc/internal/platform/logger"
	"libracirc/internal/platform/validate"
)

var ErrNoMatchingRule = errors.New("no circulation rule matches")

// Rule selects a loan policy. Empty criteria fields match anything.
type Rule struct {
	ID             string `json:"id" yaml:"id" db:"id" validate:"required"`
	PatronGroupID  string `json:"patronGroupId,omitempty" yaml:"patronGroupId" db:"patron_group_id"`
	MaterialTypeID string `json:"materialTypeId,omitempty" yaml:"materialTypeId" db:"material_type_id"`
	LoanTypeID     string `json:"loanTypeId,omitempty" yaml:"loanTypeId" db:"loan_type_id"`
	LocationID     string `json:"locationId,omitempty" yaml:"locationId" db:"location_id"`
	LoanPolicyID   string `json:"loanPolicyId" yaml:"loanPolicyId" db:"loan_policy_id" validate:"required"`
	Priority       int    `json:"priority" yaml:"priority" db:"priority"`
}

// Criteria describes the loan being resolved.
type Criteria struct {
	PatronGroupID  string
	MaterialTypeID string
	LoanTypeID     string
	LocationID     string
}

// Validate checks the rule's required fields.
func (r Rule) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("rule %q: %w", r.ID, err)
	}
	return nil
}

// Matches reports whether every non-empty field of r equals the criteria.
func (r Rule) Matches(c Criteria) bool {
	return matchField(r.PatronGroupID, c.PatronGroupID) &&
		matchField(r.MaterialTypeID, c.MaterialTypeID) &&
		matchField(r.LoanTypeID, c.LoanTypeID) &&
		matchField(r.LocationID, c.LocationID)
}

// Specificity is the number of constrained fields.
func (r Rule) Specificity() int {
	n := 0
	for _, f := range []string{r.PatronGroupID, r.MaterialTypeID, r.LoanTypeID, r.LocationID} {
		if f != "" {
			n++
		}
	}
	return n
}

func matchField(rule, value string) bool {
	return rule == "" || rule == value
}

// Source lists the configured rules.
type Source interface {
	ListRules(ctx context.Context) ([]Rule, error)
}

// Resolver picks the loan policy for a loan from the rules in a Source.
type Resolver struct {
	source Source
}

func NewResolver(source Source) *Resolver {
	return &Resolver{source: source}
}

// Resolve returns the loan policy id of the best matching rule: the most
// specific one, then the highest priority, then the first listed.
func (r *Resolver) Resolve(ctx context.Context, c Criteria) (string, error) {
	rs, err := r.source.ListRules(ctx)
	if err != nil {
		return "", fmt.Errorf("list circulation rules: %w", err)
	}

	best, ok := Select(rs, c)
	if !ok {
		return "", fmt.Errorf("%w: patron group %q, material type %q, loan type %q, location %q",
			ErrNoMatchingRule, c.PatronGroupID, c.MaterialTypeID, c.LoanTypeID, c.LocationID)
	}

	logger.C(ctx).Debug().
		Str("rule_id", best.ID).
		Str("loan_policy_id", best.LoanPolicyID).
		Msg("circulation rule matched")
	return best.LoanPolicyID, nil
}

// Select returns the best matching rule of rs.
func Select(rs []Rule, c Criteria) (Rule, bool) {
	var (
		best  Rule
		found bool
	)
	for _, rule := range rs {
		if !rule.Matches(c) {
			continue
		}
		if !found || better(rule, best) {
			best, found = rule, true
		}
	}
	return best, found
}

func better(a, b Rule) bool {
	if a.Specificity() != b.Specificity() {
		return a.Specificity() > b.Specificity()
	}
	return a.Priority > b.Priority
}
