package api

import (
	"context"
	"net/http"

	"food-order-bot/models"
)

func (c *Client) PlaceOrder(ctx context.Context, token string, lines []models.OrderLine) (*models.PlacedOrder, error) {
	in := struct {
		Items []models.OrderLine `json:"items"`
	}{Items: lines}
	var out models.PlacedOrder
	if err := c.do(ctx, http.MethodPost, "/orders", token, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Orders(ctx context.Context, token string) ([]models.Order, error) {
	var out struct {
		Orders []models.Order `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, "/orders", token, nil, &out); err != nil {
		return nil, err
	}
	return out.Orders, nil
}
