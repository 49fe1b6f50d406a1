package order

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/motorline/storefront-go/internal/apperr"
	"github.com/motorline/storefront-go/internal/catalog"
)

// ProductSource is the slice of the price oracle order assembly needs:
// the live catalog price that becomes the binding priceAtOrder.
type ProductSource interface {
	Current(ctx context.Context, productID string) (*catalog.Product, error)
}

// CartCompleter closes out the owner's active cart once an order is
// durable.
type CartCompleter interface {
	CompleteActive(ctx context.Context, ownerID string) ([]string, error)
}

// EventPublisher announces order lifecycle events. Publishing is
// best-effort; failures are logged, never surfaced to the caller.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, o *Order) error
	PublishOrderStatusChanged(ctx context.Context, orderID string, from, to Status) error
}

type RequestedItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// PlaceOrderCommand carries everything a checkout submits. Client
// prices and totals have no field here on purpose: the server prices
// every line from the catalog.
type PlaceOrderCommand struct {
	OwnerID       string
	Items         []RequestedItem
	Shipping      ShippingInfo
	PaymentMethod string
	Notes         string
}

// Service assembles immutable, server-priced orders and manages their
// administrative lifecycle.
type Service struct {
	orders   Repository
	carts    CartCompleter
	products ProductSource
	events   EventPublisher
	logger   *log.Logger
}

func NewService(orders Repository, carts CartCompleter, products ProductSource, events EventPublisher, logger *log.Logger) *Service {
	return &Service{orders: orders, carts: carts, products: products, events: events, logger: logger}
}

// PlaceOrder validates the shipping details, prices every submitted
// line from the catalog, persists the order, and then completes the
// owner's active cart. Invalid or unpriceable lines are dropped with a
// warning; the order fails only when nothing valid remains.
func (s *Service) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (*Order, error) {
	// Fail fast on the request shape, before any product lookups.
	switch {
	case cmd.OwnerID == "":
		return nil, apperr.InvalidRequest("ownerId is required")
	case cmd.Shipping.FullName == "":
		return nil, apperr.InvalidRequest("shippingInfo.fullName is required")
	case cmd.Shipping.Address == "":
		return nil, apperr.InvalidRequest("shippingInfo.address is required")
	case cmd.Shipping.Phone == "":
		return nil, apperr.InvalidRequest("shippingInfo.phone is required")
	case cmd.PaymentMethod == "":
		return nil, apperr.InvalidRequest("paymentMethod is required")
	}

	var items []Item
	total := decimal.Zero
	for _, req := range cmd.Items {
		if req.ProductID == "" || req.Quantity < 1 {
			s.logger.Printf("order for owner %s: dropping invalid line %+v", cmd.OwnerID, req)
			continue
		}

		p, err := s.products.Current(ctx, req.ProductID)
		if err != nil {
			// Drop-bad-items policy: a missing product or a lookup
			// timeout costs that line, not the whole order.
			s.logger.Printf("order for owner %s: dropping line %s: %v", cmd.OwnerID, req.ProductID, err)
			continue
		}

		items = append(items, Item{
			ProductID:    req.ProductID,
			Quantity:     req.Quantity,
			PriceAtOrder: p.Price,
		})
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(req.Quantity))))
	}

	if len(items) == 0 {
		return nil, apperr.InvalidRequest("no valid items")
	}

	o := &Order{
		OwnerID:       cmd.OwnerID,
		Items:         items,
		TotalAmount:   total,
		Shipping:      cmd.Shipping,
		PaymentMethod: cmd.PaymentMethod,
		Notes:         cmd.Notes,
		Status:        StatusPending,
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, apperr.Internal("save order", err)
	}

	if s.events != nil {
		if err := s.events.PublishOrderCreated(ctx, o); err != nil {
			s.logger.Printf("order %s: publish OrderCreated failed: %v", o.ID, err)
		}
	}

	// The order is durable; cart completion is secondary bookkeeping.
	if _, err := s.carts.CompleteActive(ctx, cmd.OwnerID); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			s.logger.Printf("order %s: owner %s had no active cart to complete", o.ID, cmd.OwnerID)
		} else {
			s.logger.Printf("order %s: completing cart for owner %s failed: %v", o.ID, cmd.OwnerID, err)
		}
	}

	return o, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperr.Internal("load order", err)
	}
	if o == nil {
		return nil, apperr.NotFound(fmt.Sprintf("order %s not found", orderID))
	}
	return o, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Order, error) {
	orders, err := s.orders.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.Internal("load orders", err)
	}
	return orders, nil
}

func (s *Service) List(ctx context.Context, f Filter) (*Page, error) {
	page, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal("load orders", err)
	}
	return page, nil
}

// UpdateStatus advances an order through the forward-only status
// machine. Setting the current status again is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, to Status) (*Order, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	from := o.Status
	if from == to {
		return o, nil
	}
	if !CanTransition(from, to) {
		return nil, apperr.InvalidRequest(fmt.Sprintf("order cannot move from %s to %s", from, to))
	}

	ok, err := s.orders.UpdateStatus(ctx, orderID, from, to)
	if err != nil {
		return nil, apperr.Internal("update order status", err)
	}
	if !ok {
		return nil, apperr.Conflict(fmt.Sprintf("order %s status changed concurrently", orderID))
	}

	if s.events != nil {
		if err := s.events.PublishOrderStatusChanged(ctx, orderID, from, to); err != nil {
			s.logger.Printf("order %s: publish OrderStatusChanged failed: %v", orderID, err)
		}
	}

	o.Status = to
	return o, nil
}

func (s *Service) Delete(ctx context.Context, orderID string) error {
	ok, err := s.orders.Delete(ctx, orderID)
	if err != nil {
		return apperr.Internal("delete order", err)
	}
	if !ok {
		return apperr.NotFound(fmt.Sprintf("order %s not found", orderID))
	}
	return nil
}
