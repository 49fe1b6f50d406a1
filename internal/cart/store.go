package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/motorline/storefront-go/internal/apperr"
)

// Store persists cart aggregates. Update is version-checked: a write
// against a stale version fails with a Conflict so the service can
// re-read and re-apply.
type Store interface {
	// ActiveCarts returns every active cart for the owner, newest
	// updated_at first, items loaded. More than one result means the
	// singleton invariant is violated and needs repair.
	ActiveCarts(ctx context.Context, ownerID string) ([]Cart, error)
	// Create inserts a new active cart. Conflict if the owner already
	// has one.
	Create(ctx context.Context, c *Cart) error
	// Update rewrites the cart row and its items, keyed by cart id.
	// Conflict if the stored version changed since the cart was read.
	Update(ctx context.Context, c *Cart) error
	// MarkAbandoned abandons the given carts if still active.
	MarkAbandoned(ctx context.Context, cartIDs []string) error
	// CompleteActive transitions the owner's active cart(s) to
	// completed, returning the ids transitioned. NotFound if none.
	CompleteActive(ctx context.Context, ownerID string) ([]string, error)
	// LookupItemOwner returns the owner of the cart holding the line
	// item, for distinguishing Forbidden from NotFound on removal.
	LookupItemOwner(ctx context.Context, lineItemID string) (string, error)
}

type store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) Store {
	return &store{db: db}
}

func (s *store) ActiveCarts(ctx context.Context, ownerID string) ([]Cart, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, status, total, version, created_at, updated_at
         FROM carts
         WHERE owner_id = $1 AND status = 'active'
         ORDER BY updated_at DESC, id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select carts: %w", err)
	}
	defer rows.Close()

	var carts []Cart
	for rows.Next() {
		var c Cart
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Status, &c.Total, &c.Version, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan cart: %w", err)
		}
		carts = append(carts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	for i := range carts {
		if err := s.loadItems(ctx, &carts[i]); err != nil {
			return nil, err
		}
	}

	return carts, nil
}

func (s *store) loadItems(ctx context.Context, c *Cart) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, product_id, quantity, price_at_add, display_image
         FROM cart_items WHERE cart_id = $1 ORDER BY position`,
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("select cart_items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Quantity, &it.PriceAtAdd, &it.DisplayImage); err != nil {
			return fmt.Errorf("scan cart_item: %w", err)
		}
		c.Items = append(c.Items, it)
	}
	return rows.Err()
}

func (s *store) Create(ctx context.Context, c *Cart) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Status = StatusActive
	c.Version = 1

	// Guarded insert instead of a unique index: a duplicate active
	// cart is a recoverable anomaly the reconciler repairs, not a
	// constraint the schema enforces.
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO carts (id, owner_id, status, total, version, created_at, updated_at)
         SELECT $1, $2, 'active', $3, 1, NOW(), NOW()
         WHERE NOT EXISTS (
             SELECT 1 FROM carts WHERE owner_id = $2 AND status = 'active'
         )`,
		c.ID, c.OwnerID, c.Total,
	)
	if err != nil {
		return fmt.Errorf("insert cart: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperr.Conflict(fmt.Sprintf("owner %s already has an active cart", c.OwnerID))
	}

	return s.refreshTimestamps(ctx, c)
}

func (s *store) Update(ctx context.Context, c *Cart) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE carts
         SET status = $1, total = $2, version = version + 1, updated_at = NOW()
         WHERE id = $3 AND version = $4`,
		c.Status, c.Total, c.ID, c.Version,
	)
	if err != nil {
		return fmt.Errorf("update cart: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperr.Conflict(fmt.Sprintf("cart %s was modified concurrently", c.ID))
	}

	// Rewrite items wholesale: the aggregate is the unit of write.
	if _, err = tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, c.ID); err != nil {
		return fmt.Errorf("delete cart_items: %w", err)
	}

	if len(c.Items) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO cart_items (id, cart_id, product_id, quantity, price_at_add, display_image, position)
             VALUES ($1, $2, $3, $4, $5, $6, $7)`)
		if perr != nil {
			err = perr
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for i := range c.Items {
			if c.Items[i].ID == "" {
				c.Items[i].ID = uuid.NewString()
			}
			it := c.Items[i]
			if _, err = stmt.ExecContext(ctx, it.ID, c.ID, it.ProductID, it.Quantity, it.PriceAtAdd, it.DisplayImage, i); err != nil {
				return fmt.Errorf("insert cart_item: %w", err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	c.Version++
	return s.refreshTimestamps(ctx, c)
}

func (s *store) refreshTimestamps(ctx context.Context, c *Cart) error {
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM carts WHERE id = $1`, c.ID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("select cart timestamps: %w", err)
	}
	return nil
}

func (s *store) MarkAbandoned(ctx context.Context, cartIDs []string) error {
	if len(cartIDs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE carts
         SET status = 'abandoned', version = version + 1, updated_at = NOW()
         WHERE id = ANY($1) AND status = 'active'`,
		pq.Array(cartIDs),
	)
	if err != nil {
		return fmt.Errorf("abandon carts: %w", err)
	}
	return nil
}

func (s *store) CompleteActive(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`UPDATE carts
         SET status = 'completed', version = version + 1, updated_at = NOW()
         WHERE owner_id = $1 AND status = 'active'
         RETURNING id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("complete carts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan cart id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if len(ids) == 0 {
		return nil, apperr.NotFound(fmt.Sprintf("no active cart for owner %s", ownerID))
	}
	return ids, nil
}

func (s *store) LookupItemOwner(ctx context.Context, lineItemID string) (string, error) {
	var ownerID string
	err := s.db.QueryRowContext(ctx,
		`SELECT c.owner_id
         FROM cart_items i
         JOIN carts c ON c.id = i.cart_id
         WHERE i.id = $1`,
		lineItemID,
	).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperr.NotFound(fmt.Sprintf("line item %s not found", lineItemID))
		}
		return "", fmt.Errorf("select item owner: %w", err)
	}
	return ownerID, nil
}
