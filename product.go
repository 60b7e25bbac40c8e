package shopx

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ProductID identifies a product. The backend sends it either as a JSON
// number or as a string; both decode to the same ProductID.
type ProductID string

// UnmarshalJSON accepts both `42` and `"42"`.
func (id *ProductID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ProductID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("product id: %w", err)
	}
	*id = ProductID(n.String())
	return nil
}

// Product is the catalog view of a product as the backend returns it.
type Product struct {
	ID          ProductID `json:"id"`
	Name        string    `json:"name"`
	Brand       string    `json:"brand"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	ShortDesc   string    `json:"shortDesc"`
	Features    []string  `json:"features"`
	Images      []string  `json:"images"`
	LargeImages []string  `json:"largeImages,omitempty"`
	Stock       int       `json:"stock,omitempty"`
}

// LineItem is one product-and-quantity pairing in a cart. The display
// fields are a snapshot taken when the product was first added and are
// never refreshed from the catalog.
type LineItem struct {
	ProductID ProductID `json:"productId"`
	Name      string    `json:"name"`
	Brand     string    `json:"brand"`
	Category  string    `json:"category"`
	Price     float64   `json:"price"`
	ShortDesc string    `json:"shortDesc"`
	Features  []string  `json:"features"`
	ImageURL  string    `json:"imageUrl"`
	Quantity  int       `json:"quantity"`
}

// newLineItem snapshots p with a quantity of one. Only the first image is
// kept; secondary and large images are dropped to bound the persisted size.
func newLineItem(p Product) LineItem {
	item := LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		Brand:     p.Brand,
		Category:  p.Category,
		Price:     p.Price,
		ShortDesc: p.ShortDesc,
		Features:  append([]string(nil), p.Features...),
		Quantity:  1,
	}
	if len(p.Images) > 0 {
		item.ImageURL = p.Images[0]
	}
	return item
}

// Subtotal returns price times quantity.
func (i LineItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}
