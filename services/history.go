package services

import (
	"context"
	"time"

	"food-order-bot/models"
)

func (a *App) LoadOrders(ctx context.Context) ([]models.Order, error) {
	if !a.Session.Authenticated() {
		return nil, ErrUnauthenticated
	}
	orders, err := a.orders.Orders(ctx, a.Session.Token())
	if err != nil {
		a.Session.observe(ctx, err)
		return nil, err
	}
	return orders, nil
}

// StatusLabel projects a backend status onto completed/pending.
func StatusLabel(status string) string {
	if status == models.OrderStatusCompleted {
		return models.OrderStatusCompleted
	}
	return models.OrderStatusPending
}

var orderDateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"Mon, 02 Jan 2006 15:04:05 GMT",
}

// FormatOrderDate renders created_at as dd.mm.yyyy; unknown formats are returned as is.
func FormatOrderDate(createdAt string) string {
	for _, layout := range orderDateLayouts {
		if t, err := time.Parse(layout, createdAt); err == nil {
			return t.Format("02.01.2006")
		}
	}
	return createdAt
}
