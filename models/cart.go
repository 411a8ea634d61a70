package models

import "time"

type CartItem struct {
	ID          int64     `json:"id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	UnitPrice   int64     `json:"unit_price"`
	Quantity    int       `json:"quantity"`
	Color       string    `json:"color,omitempty"`
	Size        string    `json:"size,omitempty"`
	Note        string    `json:"note,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Cart struct {
	UserID  string     `json:"user_id"`
	Version int64      `json:"version"`
	Items   []CartItem `json:"items"`
}

// TotalAmount is the cart value in minor currency units.
func (c *Cart) TotalAmount() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

func (c *Cart) TotalItems() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// CartView is the wire shape of a cart, totals included.
type CartView struct {
	Version     int64      `json:"version"`
	Items       []CartItem `json:"items"`
	TotalAmount int64      `json:"total_amount"`
	TotalItems  int        `json:"total_items"`
}

func (c *Cart) View() CartView {
	items := c.Items
	if items == nil {
		items = []CartItem{}
	}
	return CartView{
		Version:     c.Version,
		Items:       items,
		TotalAmount: c.TotalAmount(),
		TotalItems:  c.TotalItems(),
	}
}

// NewCartLine is the input of add_to_cart.
type NewCartLine struct {
	ProductID   string `json:"product_id" validate:"required"`
	ProductName string `json:"product_name" validate:"required"`
	UnitPrice   int64  `json:"unit_price" validate:"gte=0"`
	Quantity    int    `json:"quantity" validate:"gte=1"`
	Color       string `json:"color"`
	Size        string `json:"size"`
	Note        string `json:"note"`
}
