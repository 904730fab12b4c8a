package services

import (
	"context"

	"food-order-bot/models"
)

// PlaceOrder submits the cart. Preconditions are checked in order and fail
// without any request: ErrUnauthenticated, then ErrEmptyCart.
// On success the cart is cleared; on any error it is left as is.
func (a *App) PlaceOrder(ctx context.Context) (*models.PlacedOrder, error) {
	if !a.Session.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if a.Cart.IsEmpty() {
		return nil, ErrEmptyCart
	}
	placed, err := a.orders.PlaceOrder(ctx, a.Session.Token(), a.Cart.OrderLines())
	if err != nil {
		a.Session.observe(ctx, err)
		return nil, err
	}
	a.Cart.Clear()
	return placed, nil
}
