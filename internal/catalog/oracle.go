package catalog

import (
	"context"
	"errors"
	"log"

	"golang.org/x/sync/singleflight"
)

// Oracle answers the two product questions the purchase lifetime asks.
//
// Snapshot is the add-to-cart read: it may serve a cached, slightly
// stale product, because the price it yields is only a display
// snapshot stored on the cart line.
//
// Current is the order-time read: it always queries the catalog,
// because its price is the binding one the order total is computed
// from. The two are separate methods on purpose and must never be
// conflated.
type Oracle struct {
	client *Client
	cache  ProductCache
	sfg    singleflight.Group
	logger *log.Logger
}

func NewOracle(client *Client, cache ProductCache, logger *log.Logger) *Oracle {
	return &Oracle{client: client, cache: cache, logger: logger}
}

func (o *Oracle) Snapshot(ctx context.Context, productID string) (*Product, error) {
	// singleflight collapses concurrent misses for the same product
	v, err, _ := o.sfg.Do(productID, func() (interface{}, error) {
		if o.cache != nil {
			p, err := o.cache.Get(ctx, productID)
			if err == nil {
				return p, nil
			}
			if !errors.Is(err, ErrCacheMiss) {
				o.logger.Printf("product cache get error: %v", err)
			}
		}

		p, err := o.client.GetProduct(ctx, productID)
		if err != nil {
			return nil, err
		}

		if o.cache != nil {
			if err := o.cache.Set(ctx, p); err != nil {
				o.logger.Printf("product cache set error: %v", err)
			}
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Product), nil
}

func (o *Oracle) Current(ctx context.Context, productID string) (*Product, error) {
	return o.client.GetProduct(ctx, productID)
}
