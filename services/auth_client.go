// services/auth_client.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrInvalidToken = errors.New("invalid access token")

// AuthClient asks the auth service who owns an access token.
type AuthClient struct {
	BaseURL string
	http    *resty.Client
}

type ValidateResponse struct {
	UserID   string   `json:"user_id"`
	DeviceID string   `json:"device_id"`
	Roles    []string `json:"roles"`
}

// NewAuthClient returns nil when baseURL is empty.
func NewAuthClient(baseURL, serviceToken string) *AuthClient {
	if strings.TrimSpace(baseURL) == "" {
		return nil
	}
	return &AuthClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		http: resty.New().
			SetAuthToken(serviceToken).
			SetTimeout(10 * time.Second),
	}
}

// ValidateToken calls POST /auth/validate.
func (c *AuthClient) ValidateToken(ctx context.Context, accessToken, deviceID string) (*ValidateResponse, error) {
	var out ValidateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"access_token": accessToken, "device_id": deviceID}).
		SetResult(&out).
		Post(c.BaseURL + "/auth/validate")
	if err != nil {
		return nil, fmt.Errorf("auth service request failed: %w", err)
	}
	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return nil, ErrInvalidToken
	}
	if resp.IsError() {
		log.Printf("AuthService /validate returned %d: %s", resp.StatusCode(), resp.String())
		return nil, fmt.Errorf("auth validation failed: %d", resp.StatusCode())
	}
	if out.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &out, nil
}
