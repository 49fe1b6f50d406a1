package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is an immutable order line. PriceAtOrder is the binding price
// the catalog reported at creation time; it never changes afterwards.
type Item struct {
	ProductID    string          `json:"productId"`
	Quantity     int             `json:"quantity"`
	PriceAtOrder decimal.Decimal `json:"priceAtOrder"`
}

type ShippingInfo struct {
	FullName string `json:"fullName"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Email    string `json:"email,omitempty"`
}

type Order struct {
	ID            string          `json:"orderId"`
	OwnerID       string          `json:"ownerId"`
	Items         []Item          `json:"lineItems"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Shipping      ShippingInfo    `json:"shippingInfo"`
	PaymentMethod string          `json:"paymentMethod"`
	Notes         string          `json:"notes,omitempty"`
	Status        Status          `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}
