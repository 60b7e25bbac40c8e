package backend

import (
	"time"

	"github.com/bluescreen10/shopx"
)

// Category groups products in the catalog. Inactive categories are hidden
// from shoppers but stay visible in the admin console.
type Category struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
}

// OrderItem is one ordered product with the price it was sold at.
type OrderItem struct {
	ProductID shopx.ProductID `json:"productId"`
	Name      string          `json:"name,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     float64         `json:"price"`
}

// Order is a placed order as the backend stores it.
type Order struct {
	ID            int64       `json:"id,omitempty"`
	CustomerName  string      `json:"customerName"`
	CustomerEmail string      `json:"customerEmail"`
	Address       string      `json:"address,omitempty"`
	Items         []OrderItem `json:"items"`
	Total         float64     `json:"total"`
	Status        string      `json:"status,omitempty"`
	CreatedAt     *time.Time  `json:"createdAt,omitempty"`
}

// NewOrder builds an order from the line items of a cart.
func NewOrder(name, email, address string, items []shopx.LineItem) Order {
	o := Order{CustomerName: name, CustomerEmail: email, Address: address}
	for _, item := range items {
		o.Items = append(o.Items, OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
		o.Total += item.Subtotal()
	}
	return o
}

// InventoryItem is the stock level of one product.
type InventoryItem struct {
	ID           int64           `json:"id"`
	ProductID    shopx.ProductID `json:"productId"`
	ProductName  string          `json:"productName,omitempty"`
	Quantity     int             `json:"quantity"`
	ReorderLevel int             `json:"reorderLevel,omitempty"`
}

// InventoryUpdate sets the stock level of a product.
type InventoryUpdate struct {
	Quantity     int `json:"quantity"`
	ReorderLevel int `json:"reorderLevel,omitempty"`
}

// LoginRequest carries the credentials of a login attempt.
type LoginRequest struct {
	Email    string `json:"email" form:"email" xml:"email"`
	Password string `json:"password" form:"password" xml:"password"`
}

// RegisterRequest creates a shopper account.
type RegisterRequest struct {
	Name     string `json:"name" form:"name" xml:"name"`
	Email    string `json:"email" form:"email" xml:"email"`
	Password string `json:"password" form:"password" xml:"password"`
}

// AuthResponse is what the auth endpoints return on success.
type AuthResponse struct {
	Token string     `json:"token"`
	Role  shopx.Role `json:"role"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
}

// Session converts the response into the record the login flow persists.
func (a *AuthResponse) Session() *shopx.SessionRecord {
	return &shopx.SessionRecord{
		Role:  a.Role,
		Name:  a.Name,
		Email: a.Email,
		Token: a.Token,
	}
}

// Product and ProductID are the catalog types shared with the cart.
type (
	Product   = shopx.Product
	ProductID = shopx.ProductID
)
