package api

import (
	"context"
	"net/http"

	"food-order-bot/models"
)

func (c *Client) Login(ctx context.Context, in models.LoginInput) (*models.AuthResult, error) {
	var out models.AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, in models.RegisterInput) (*models.AuthResult, error) {
	var out models.AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Profile(ctx context.Context, token string) (*models.User, error) {
	var out struct {
		User models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/profile", token, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// UpdateProfile returns the updated user when the backend echoes one, nil otherwise.
func (c *Client) UpdateProfile(ctx context.Context, token string, in models.ProfileUpdate) (*models.User, error) {
	var out struct {
		User *models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPut, "/auth/profile", token, in, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}
