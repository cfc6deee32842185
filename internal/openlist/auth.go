package openlist

import (
	"context"
	"fmt"

	"github.com/cantoplayer/canto/internal/domain"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a token and starts using it
func (c *Client) Login(ctx context.Context, username, password string) (*domain.AuthResult, error) {
	var resp loginResponse
	if err := c.post(ctx, "/auth/login", nil, loginRequest{Username: username, Password: password}, &resp); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("login: empty token: %w", domain.ErrUnauthorized)
	}

	c.SetToken(resp.Token)
	c.logger.Info("logged in", "username", username)
	return &domain.AuthResult{Token: resp.Token, Username: username}, nil
}
