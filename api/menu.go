package api

import (
	"context"
	"net/http"
	"strconv"

	"food-order-bot/models"
)

func (c *Client) Menu(ctx context.Context) ([]models.MenuItem, error) {
	var out struct {
		Items []models.MenuItem `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/menu", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) MenuItem(ctx context.Context, id int64) (*models.MenuItem, error) {
	var out struct {
		Item models.MenuItem `json:"item"`
	}
	if err := c.do(ctx, http.MethodGet, "/menu/"+strconv.FormatInt(id, 10), "", nil, &out); err != nil {
		return nil, err
	}
	return &out.Item, nil
}
