// internal/clients/user_client.go
package clients

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// User is a patron record.
type User struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username,omitempty"`
	Active      bool      `json:"active"`
	PatronGroup string    `json:"patronGroup"`
}

type UserClient struct {
	*Client
}

func NewUserClient(c *Client) *UserClient {
	return &UserClient{Client: c}
}

func (c *UserClient) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	var user User
	if err := c.getJSON(ctx, "clients.get_user", fmt.Sprintf("/users/%s", id), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
