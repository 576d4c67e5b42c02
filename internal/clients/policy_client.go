// internal/clients/policy_client.go
package clients

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"libracirc/internal/policy"
)

// PolicyStorageClient reads policy documents from the policy storage
// services. It satisfies policy.DocumentSource.
type PolicyStorageClient struct {
	*Client
}

func NewPolicyStorageClient(c *Client) *PolicyStorageClient {
	return &PolicyStorageClient{Client: c}
}

func (c *PolicyStorageClient) GetLoanPolicy(ctx context.Context, id string) ([]byte, error) {
	return c.document(ctx, "clients.get_loan_policy", "/loan-policy-storage/loan-policies/"+url.PathEscape(id))
}

func (c *PolicyStorageClient) GetFixedDueDateSchedule(ctx context.Context, id string) ([]byte, error) {
	return c.document(ctx, "clients.get_fixed_due_date_schedule",
		"/fixed-due-date-schedule-storage/fixed-due-date-schedules/"+url.PathEscape(id))
}

func (c *PolicyStorageClient) document(ctx context.Context, span, path string) ([]byte, error) {
	body, err := c.get(ctx, span, path, nil)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", path, policy.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !policy.ValidJSON(body) {
		return nil, fmt.Errorf("%w: %s returned malformed json", policy.ErrInvalidDocument, path)
	}
	return body, nil
}
