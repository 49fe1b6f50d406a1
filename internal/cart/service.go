package cart

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/motorline/storefront-go/internal/apperr"
	"github.com/motorline/storefront-go/internal/catalog"
)

// ProductSource is the slice of the price oracle the cart needs: the
// display snapshot consulted at add-to-cart time.
type ProductSource interface {
	Snapshot(ctx context.Context, productID string) (*catalog.Product, error)
}

// maxWriteAttempts bounds the re-read/re-apply loop on version
// conflicts before the Conflict surfaces to the caller.
const maxWriteAttempts = 3

// Service applies cart mutations and repairs the singleton-active-cart
// invariant on every read. Each mutation is one logical
// read-modify-write: reconcile, apply in memory, recompute the total,
// version-checked write.
type Service struct {
	store    Store
	products ProductSource
	logger   *log.Logger
}

func NewService(store Store, products ProductSource, logger *log.Logger) *Service {
	return &Service{store: store, products: products, logger: logger}
}

// ActiveCart returns the owner's reconciled active cart, or nil when
// the owner has none.
func (s *Service) ActiveCart(ctx context.Context, ownerID string) (*Cart, error) {
	return s.reconcile(ctx, ownerID)
}

// reconcile restores the singleton invariant: when several active
// carts exist, the most recently updated one wins and the rest are
// abandoned. Repeated calls without intervening mutation return the
// same cart.
func (s *Service) reconcile(ctx context.Context, ownerID string) (*Cart, error) {
	carts, err := s.store.ActiveCarts(ctx, ownerID)
	if err != nil {
		return nil, apperr.Internal("load carts", err)
	}
	if len(carts) == 0 {
		return nil, nil
	}
	if len(carts) == 1 {
		return &carts[0], nil
	}

	// The store orders newest first; sort again so canonical choice
	// does not silently depend on SQL ordering.
	sort.SliceStable(carts, func(i, j int) bool {
		return carts[i].UpdatedAt.After(carts[j].UpdatedAt)
	})

	winner := carts[0]
	loserIDs := make([]string, 0, len(carts)-1)
	discarded := 0
	for _, c := range carts[1:] {
		loserIDs = append(loserIDs, c.ID)
		discarded += len(c.Items)
	}

	if err := s.store.MarkAbandoned(ctx, loserIDs); err != nil {
		return nil, apperr.Internal("abandon duplicate carts", err)
	}
	s.logger.Printf("owner %s had %d active carts; kept %s, abandoned %d (discarding %d line items)",
		ownerID, len(carts), winner.ID, len(loserIDs), discarded)

	return &winner, nil
}

// AddItem adds quantity of a product to the owner's active cart,
// creating the cart if the owner has none. An existing line for the
// product has its quantity incremented and its price snapshot
// overwritten with the current one (last-write-wins on price).
func (s *Service) AddItem(ctx context.Context, ownerID, productID string, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, apperr.InvalidRequest(fmt.Sprintf("quantity must be at least 1, got %d", quantity))
	}
	if productID == "" {
		return nil, apperr.InvalidRequest("productId is required")
	}

	p, err := s.products.Snapshot(ctx, productID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		c, err := s.reconcile(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			c = &Cart{ID: uuid.NewString(), OwnerID: ownerID, Total: decimal.Zero}
			if err := s.store.Create(ctx, c); err != nil {
				if apperr.KindOf(err) == apperr.KindConflict {
					// Lost the creation race; re-read and use the winner.
					continue
				}
				return nil, apperr.Internal("create cart", err)
			}
		}

		if line := c.ItemByProduct(productID); line != nil {
			line.Quantity += quantity
			line.PriceAtAdd = p.Price
			line.DisplayImage = p.DisplayImage
		} else {
			c.Items = append(c.Items, LineItem{
				ID:           uuid.NewString(),
				ProductID:    productID,
				Quantity:     quantity,
				PriceAtAdd:   p.Price,
				DisplayImage: p.DisplayImage,
			})
		}
		s.logSkipped(c, c.RecomputeTotal())

		err = s.store.Update(ctx, c)
		if err == nil {
			return c, nil
		}
		if apperr.KindOf(err) != apperr.KindConflict {
			return nil, apperr.Internal("save cart", err)
		}
		s.logger.Printf("cart %s write conflict on add, retrying", c.ID)
	}

	return nil, apperr.Conflict("cart is being modified concurrently, try again")
}

// UpdateQuantity replaces the stored quantity of a line item. A
// quantity of zero or less removes the item (explicit policy).
func (s *Service) UpdateQuantity(ctx context.Context, ownerID, lineItemID string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, ownerID, lineItemID)
	}

	return s.mutate(ctx, ownerID, func(c *Cart) error {
		line := c.Item(lineItemID)
		if line == nil {
			return apperr.NotFound(fmt.Sprintf("line item %s not found in active cart", lineItemID))
		}
		line.Quantity = quantity
		return nil
	})
}

// RemoveItem drops a line item from the owner's active cart. Removing
// an item that exists under a different owner fails Forbidden.
func (s *Service) RemoveItem(ctx context.Context, ownerID, lineItemID string) (*Cart, error) {
	return s.mutate(ctx, ownerID, func(c *Cart) error {
		if !c.RemoveLine(lineItemID) {
			itemOwner, err := s.store.LookupItemOwner(ctx, lineItemID)
			if err != nil {
				if apperr.KindOf(err) == apperr.KindNotFound {
					return err
				}
				return apperr.Internal("look up line item", err)
			}
			if itemOwner != ownerID {
				return apperr.Forbidden(fmt.Sprintf("line item %s belongs to another owner", lineItemID))
			}
			return apperr.NotFound(fmt.Sprintf("line item %s not found in active cart", lineItemID))
		}
		return nil
	})
}

// Clear empties the cart and marks it abandoned; the next AddItem
// starts a fresh cart.
func (s *Service) Clear(ctx context.Context, ownerID string) (*Cart, error) {
	return s.mutate(ctx, ownerID, func(c *Cart) error {
		c.Items = nil
		c.Status = StatusAbandoned
		return nil
	})
}

// CompleteActive transitions the owner's active cart(s) to completed.
// Called by order placement after the order is durable.
func (s *Service) CompleteActive(ctx context.Context, ownerID string) ([]string, error) {
	return s.store.CompleteActive(ctx, ownerID)
}

// mutate is the shared read-modify-write loop for operations that
// require an existing active cart.
func (s *Service) mutate(ctx context.Context, ownerID string, apply func(c *Cart) error) (*Cart, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		c, err := s.reconcile(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, apperr.NotFound(fmt.Sprintf("no active cart for owner %s", ownerID))
		}

		if err := apply(c); err != nil {
			return nil, err
		}
		s.logSkipped(c, c.RecomputeTotal())

		err = s.store.Update(ctx, c)
		if err == nil {
			return c, nil
		}
		if apperr.KindOf(err) != apperr.KindConflict {
			return nil, apperr.Internal("save cart", err)
		}
		s.logger.Printf("cart %s write conflict, retrying", c.ID)
	}

	return nil, apperr.Conflict("cart is being modified concurrently, try again")
}

func (s *Service) logSkipped(c *Cart, skipped []string) {
	for _, pid := range skipped {
		s.logger.Printf("cart %s: line for product %s has an invalid price, excluded from total", c.ID, pid)
	}
}
