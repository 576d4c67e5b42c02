// internal/clients/request_client.go
package clients

import (
	"context"
	"net/url"
	"sort"

	"github.com/google/uuid"

	"libracirc/internal/loan"
)

type RequestClient struct {
	*Client
}

func NewRequestClient(c *Client) *RequestClient {
	return &RequestClient{Client: c}
}

// GetRequestQueue returns the open requests for an item ordered by queue position.
func (c *RequestClient) GetRequestQueue(ctx context.Context, itemID uuid.UUID) (*loan.RequestQueue, error) {
	query := url.Values{}
	query.Set("query", "itemId=="+itemID.String()+" and status=\"Open*\" sortBy position")
	query.Set("limit", "1000")

	var page struct {
		Requests     []loan.Request `json:"requests"`
		TotalRecords int            `json:"totalRecords"`
	}
	if err := c.getJSON(ctx, "clients.get_request_queue", "/request-storage/requests", query, &page); err != nil {
		return nil, err
	}

	sort.SliceStable(page.Requests, func(i, j int) bool {
		return page.Requests[i].Position < page.Requests[j].Position
	})
	return loan.NewRequestQueue(page.Requests), nil
}
