package services

import (
	"food-order-bot/models"

	"github.com/shopspring/decimal"
)

// CartLine is a product snapshot taken when it was added. The price is only
// used for display; the backend re-prices on checkout.
type CartLine struct {
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds at most one line per product, each with quantity >= 1.
// Not safe for concurrent use; the owning App is driven from one goroutine at a time.
type Cart struct {
	lines []CartLine
}

func NewCart() *Cart {
	return &Cart{}
}

func (c *Cart) AddItem(productID int64, name string, unitPrice decimal.Decimal) {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines[i].Quantity++
			return
		}
	}
	c.lines = append(c.lines, CartLine{ProductID: productID, Name: name, UnitPrice: unitPrice, Quantity: 1})
}

// ChangeQuantity adds delta to the line at index. A result <= 0 removes the line.
// Out of range indexes are ignored.
func (c *Cart) ChangeQuantity(index, delta int) {
	if index < 0 || index >= len(c.lines) {
		return
	}
	q := c.lines[index].Quantity + delta
	if q <= 0 {
		c.RemoveItem(index)
		return
	}
	c.lines[index].Quantity = q
}

func (c *Cart) RemoveItem(index int) {
	if index < 0 || index >= len(c.lines) {
		return
	}
	c.lines = append(c.lines[:index], c.lines[index+1:]...)
}

func (c *Cart) Clear() {
	c.lines = nil
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Lines returns a copy of the lines in display order.
func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// OrderLines builds the place-order payload: product ids and quantities only.
func (c *Cart) OrderLines() []models.OrderLine {
	out := make([]models.OrderLine, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, models.OrderLine{ID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}
