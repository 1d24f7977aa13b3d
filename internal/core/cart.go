package core

import (
	"strconv"
	"strings"
)

// CartLine is one accumulated menu item in the cart. A cart holds at most
// one line per distinct name.
type CartLine struct {
	Name      string
	Quantity  int64
	UnitPrice Money
	Subtotal  Money
}

// Cart accumulates selected menu items before a payment commit. It lives
// purely in memory and is never persisted on its own.
type Cart struct {
	lines []CartLine
}

func NewCart() *Cart {
	return &Cart{}
}

// AddLine merges quantity units of name into the cart. If a line for the
// name already exists its quantity grows and the subtotal is recomputed,
// otherwise a new line is appended. Rejected input never mutates the cart.
func (c *Cart) AddLine(name string, quantity int64, unitPrice Money) (CartLine, error) {
	if strings.TrimSpace(name) == "" {
		return CartLine{}, ErrEmptyName
	}
	if quantity <= 0 {
		return CartLine{}, ErrInvalidQuantity
	}
	for i := range c.lines {
		if c.lines[i].Name == name {
			c.lines[i].Quantity += quantity
			c.lines[i].Subtotal = c.lines[i].UnitPrice.Mul(c.lines[i].Quantity)
			return c.lines[i], nil
		}
	}
	line := CartLine{
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Subtotal:  unitPrice.Mul(quantity),
	}
	c.lines = append(c.lines, line)
	return line, nil
}

// Lines returns a copy of the current lines in insertion order.
func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

// Clear empties the cart. Clearing an already empty cart is a no-op.
func (c *Cart) Clear() {
	c.lines = nil
}

// Total sums all line subtotals. An empty cart totals zero.
func (c *Cart) Total() Money {
	var total Money
	for _, l := range c.lines {
		total = total.Add(l.Subtotal)
	}
	return total
}

// Description renders the cart as the human-readable sale summary stored
// on the transaction record: `Name (xQty)` lines joined with ", ".
func (c *Cart) Description() string {
	parts := make([]string, len(c.lines))
	for i, l := range c.lines {
		parts[i] = l.Name + " (x" + strconv.FormatInt(l.Quantity, 10) + ")"
	}
	return strings.Join(parts, ", ")
}
