package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// AdminClient talks to the identity provider's admin REST surface (user
// creation/deletion), shaped like the teacher's clients.NotificationClient
// and clients.VerificationClient: a bounded-timeout *http.Client plus a
// private makeRequest helper doing JSON marshal/unmarshal and bearer auth.
type AdminClient struct {
	baseURL        string
	serviceRoleKey string
	httpClient     *http.Client
	log            *logrus.Entry
}

// NewAdminClient builds an AdminClient against the identity provider's
// project URL and service-role key.
func NewAdminClient(baseURL, serviceRoleKey string) *AdminClient {
	return &AdminClient{
		baseURL:        baseURL,
		serviceRoleKey: serviceRoleKey,
		httpClient:     &http.Client{Timeout: 15 * time.Second},
		log:            logrus.WithField("component", "identity.AdminClient"),
	}
}

// CreateUserRequest is the payload for creating an identity-provider user.
type CreateUserRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	EmailConfirm bool   `json:"email_confirm"`
}

// CreateUserResponse carries the new user's id.
type CreateUserResponse struct {
	ID string `json:"id"`
}

// CreateUser provisions a new identity-provider user.
func (c *AdminClient) CreateUser(ctx context.Context, req CreateUserRequest) (string, error) {
	var resp CreateUserResponse
	if err := c.makeRequest(ctx, http.MethodPost, "/auth/v1/admin/users", req, &resp); err != nil {
		return "", fmt.Errorf("identity: create user: %w", err)
	}
	return resp.ID, nil
}

// DeleteUser removes an identity-provider user, used by the orchestrator's
// rollback path when tenant metadata persistence fails after user creation.
func (c *AdminClient) DeleteUser(ctx context.Context, userID string) error {
	path := fmt.Sprintf("/auth/v1/admin/users/%s", userID)
	if err := c.makeRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("identity: delete user: %w", err)
	}
	return nil
}

// GetUserResponse carries the identity-provider user's resolved email.
type GetUserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// GetUser resolves a user id to their identity-provider profile, used to
// recover a real recipient address for flows (like device confirmation)
// that only carry a user id and no authenticated Principal.
func (c *AdminClient) GetUser(ctx context.Context, userID string) (GetUserResponse, error) {
	path := fmt.Sprintf("/auth/v1/admin/users/%s", userID)
	var resp GetUserResponse
	if err := c.makeRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return GetUserResponse{}, fmt.Errorf("identity: get user: %w", err)
	}
	return resp, nil
}

func (c *AdminClient) makeRequest(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.serviceRoleKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceRoleKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		c.log.WithField("status", resp.StatusCode).Warnf("identity admin request failed: %s", string(payload))
		return fmt.Errorf("identity: admin request failed with status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
