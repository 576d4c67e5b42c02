// internal/loan/request.go
package loan

import (
	"time"

	"github.com/google/uuid"
)

// RequestType is the kind of patron request placed on an item.
type RequestType string

const (
	RequestTypeHold   RequestType = "Hold"
	RequestTypeRecall RequestType = "Recall"
	RequestTypePage   RequestType = "Page"
)

// Request statuses.
const (
	RequestStatusOpenNotYetFilled   = "Open - Not yet filled"
	RequestStatusOpenAwaitingPickup = "Open - Awaiting pickup"
	RequestStatusOpenInTransit      = "Open - In transit"
	RequestStatusClosedFilled       = "Closed - Filled"
)

// Request is a hold, recall or page request in an item's queue.
type Request struct {
	ID          uuid.UUID   `json:"id"`
	RequestType RequestType `json:"requestType"`
	Status      string      `json:"status"`
	ItemID      *uuid.UUID  `json:"itemId,omitempty"`
	Position    int         `json:"position"`
	RequestDate time.Time   `json:"requestDate"`
}

// IsHold reports whether the request is a hold.
func (r *Request) IsHold() bool {
	return r != nil && r.RequestType == RequestTypeHold
}

// IsRecall reports whether the request is a recall.
func (r *Request) IsRecall() bool {
	return r != nil && r.RequestType == RequestTypeRecall
}

// IsOpenNotYetFilled reports whether the request is still waiting for an item.
func (r *Request) IsOpenNotYetFilled() bool {
	return r != nil && r.Status == RequestStatusOpenNotYetFilled
}

// AppliesToItem reports whether the request is title level or bound to the given item.
func (r *Request) AppliesToItem(itemID string) bool {
	if r.ItemID == nil {
		return true
	}
	return r.ItemID.String() == itemID
}

// RequestQueue is the ordered list of requests for an item.
type RequestQueue struct {
	Requests []Request `json:"requests"`
}

// NewRequestQueue builds a queue from requests already ordered by position.
func NewRequestQueue(requests []Request) *RequestQueue {
	return &RequestQueue{Requests: requests}
}

// First returns the head of the queue, or nil for an empty queue.
func (q *RequestQueue) First() *Request {
	if q == nil || len(q.Requests) == 0 {
		return nil
	}
	return &q.Requests[0]
}

// HasOpenHoldFor reports whether an unfilled hold applies to the item.
func (q *RequestQueue) HasOpenHoldFor(itemID string) bool {
	if q == nil {
		return false
	}
	for i := range q.Requests {
		r := &q.Requests[i]
		if r.IsHold() && r.IsOpenNotYetFilled() && r.AppliesToItem(itemID) {
			return true
		}
	}
	return false
}
