// internal/clients/item_client.go
package clients

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Item is the part of an item record circulation needs.
type Item struct {
	ID                  uuid.UUID  `json:"id"`
	Barcode             string     `json:"barcode,omitempty"`
	Status              ItemStatus `json:"status"`
	MaterialTypeID      string     `json:"materialTypeId"`
	PermanentLoanTypeID string     `json:"permanentLoanTypeId"`
	TemporaryLoanTypeID string     `json:"temporaryLoanTypeId,omitempty"`
	EffectiveLocationID string     `json:"effectiveLocationId"`
}

type ItemStatus struct {
	Name string `json:"name"`
}

// LoanTypeID prefers the temporary loan type.
func (i Item) LoanTypeID() string {
	if i.TemporaryLoanTypeID != "" {
		return i.TemporaryLoanTypeID
	}
	return i.PermanentLoanTypeID
}

type ItemClient struct {
	*Client
}

func NewItemClient(c *Client) *ItemClient {
	return &ItemClient{Client: c}
}

func (c *ItemClient) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	var item Item
	if err := c.getJSON(ctx, "clients.get_item", fmt.Sprintf("/item-storage/items/%s", id), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}
