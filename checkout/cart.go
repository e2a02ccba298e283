// Package checkout turns a palm code plus a pending cart or top-up amount
// into exactly one authorization outcome against the ledger service.
package checkout

// Item is one cart line: a product at a unit price with a quantity.
type Item struct {
	Name  string
	Price int64
	Qty   int
}

// Cart is the pending purchase. It is a plain in-memory accumulator; nothing
// here persists.
type Cart struct {
	items []Item
}

func NewCart() *Cart {
	return &Cart{}
}

// Add merges qty of a product into the cart.
func (c *Cart) Add(name string, price int64, qty int) {
	if qty <= 0 {
		return
	}
	for i := range c.items {
		if c.items[i].Name == name {
			c.items[i].Qty += qty
			return
		}
	}
	c.items = append(c.items, Item{Name: name, Price: price, Qty: qty})
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
func (c *Cart) UpdateQuantity(name string, qty int) {
	for i := range c.items {
		if c.items[i].Name == name {
			if qty <= 0 {
				c.items = append(c.items[:i], c.items[i+1:]...)
			} else {
				c.items[i].Qty = qty
			}
			return
		}
	}
}

// Remove deletes a line.
func (c *Cart) Remove(name string) {
	c.UpdateQuantity(name, 0)
}

// Total is the sum of price×qty over all lines.
func (c *Cart) Total() int64 {
	var total int64
	for _, item := range c.items {
		total += item.Price * int64(item.Qty)
	}
	return total
}

// Len is the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.items)
}

// Empty reports whether the cart holds no lines.
func (c *Cart) Empty() bool {
	return len(c.items) == 0
}

// Items renders the cart as the name→quantity map the order payload carries.
func (c *Cart) Items() map[string]int {
	m := make(map[string]int, len(c.items))
	for _, item := range c.items {
		m[item.Name] = item.Qty
	}
	return m
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Item {
	return append([]Item(nil), c.items...)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
}
