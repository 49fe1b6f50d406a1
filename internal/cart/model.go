package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// LineItem is one product in a cart. PriceAtAdd is the display
// snapshot captured when the item was added; it is not the price the
// order will be charged at.
type LineItem struct {
	ID           string          `json:"lineItemId"`
	ProductID    string          `json:"productId"`
	Quantity     int             `json:"quantity"`
	PriceAtAdd   decimal.Decimal `json:"priceAtAdd"`
	DisplayImage string          `json:"displayImage"`
}

// Cart is the single aggregate: items and the derived total travel
// together and are written together. Version is the optimistic
// concurrency token checked by the store on every update.
type Cart struct {
	ID        string          `json:"cartId"`
	OwnerID   string          `json:"ownerId"`
	Status    Status          `json:"status"`
	Items     []LineItem      `json:"lineItems"`
	Total     decimal.Decimal `json:"totalAmount"`
	Version   int64           `json:"-"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// RecomputeTotal derives the total as a full sum over all lines; it is
// never patched incrementally. Lines with a negative price are skipped
// and their product ids returned so the caller can log them.
func (c *Cart) RecomputeTotal() []string {
	total := decimal.Zero
	var skipped []string
	for _, it := range c.Items {
		if it.PriceAtAdd.IsNegative() {
			skipped = append(skipped, it.ProductID)
			continue
		}
		total = total.Add(it.PriceAtAdd.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	c.Total = total
	return skipped
}

// Item returns the line with the given id, or nil.
func (c *Cart) Item(lineItemID string) *LineItem {
	for i := range c.Items {
		if c.Items[i].ID == lineItemID {
			return &c.Items[i]
		}
	}
	return nil
}

// ItemByProduct returns the line holding productID, or nil. Product
// ids are unique within a cart.
func (c *Cart) ItemByProduct(productID string) *LineItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// RemoveLine drops the line with the given id, preserving the order of
// the remaining lines. It reports whether the line existed.
func (c *Cart) RemoveLine(lineItemID string) bool {
	for i := range c.Items {
		if c.Items[i].ID == lineItemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}
