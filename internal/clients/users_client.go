// internal/clients/users_client.go
package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

// ErrUserNotFound is returned when the user service has no such user.
var ErrUserNotFound = errors.New("user not found")

// User is the slice of the account record this core needs to attribute
// transactions and orders.
type User struct {
	ID     uuid.UUID `json:"id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	Status string    `json:"status"`
}

// UserClient talks to the user/auth service. Calls run through a circuit
// breaker so a dead collaborator fails fast instead of tying up requests.
type UserClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewUserClient(baseURL string) *UserClient {
	return &UserClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "user-service",
			Timeout: 30 * time.Second,
			// A missing user is an answer, not a service failure.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrUserNotFound)
			},
		}),
	}
}

func (c *UserClient) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/users/%s", c.baseURL, id), nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("user %s: %w", id, ErrUserNotFound)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("user service returned status %d", resp.StatusCode)
		}

		var user User
		if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
			return nil, err
		}
		return &user, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*User), nil
}
