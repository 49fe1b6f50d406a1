package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motorline/storefront-go/internal/apperr"
	"github.com/motorline/storefront-go/internal/cart"
)

type fakeCartService struct {
	activeCartFunc func(ctx context.Context, ownerID string) (*cart.Cart, error)
	addItemFunc    func(ctx context.Context, ownerID, productID string, quantity int) (*cart.Cart, error)
	updateFunc     func(ctx context.Context, ownerID, lineItemID string, quantity int) (*cart.Cart, error)
	removeFunc     func(ctx context.Context, ownerID, lineItemID string) (*cart.Cart, error)
	clearFunc      func(ctx context.Context, ownerID string) (*cart.Cart, error)
}

func (f *fakeCartService) ActiveCart(ctx context.Context, ownerID string) (*cart.Cart, error) {
	if f.activeCartFunc != nil {
		return f.activeCartFunc(ctx, ownerID)
	}
	return nil, nil
}

func (f *fakeCartService) AddItem(ctx context.Context, ownerID, productID string, quantity int) (*cart.Cart, error) {
	if f.addItemFunc != nil {
		return f.addItemFunc(ctx, ownerID, productID, quantity)
	}
	return nil, nil
}

func (f *fakeCartService) UpdateQuantity(ctx context.Context, ownerID, lineItemID string, quantity int) (*cart.Cart, error) {
	if f.updateFunc != nil {
		return f.updateFunc(ctx, ownerID, lineItemID, quantity)
	}
	return nil, nil
}

func (f *fakeCartService) RemoveItem(ctx context.Context, ownerID, lineItemID string) (*cart.Cart, error) {
	if f.removeFunc != nil {
		return f.removeFunc(ctx, ownerID, lineItemID)
	}
	return nil, nil
}

func (f *fakeCartService) Clear(ctx context.Context, ownerID string) (*cart.Cart, error) {
	if f.clearFunc != nil {
		return f.clearFunc(ctx, ownerID)
	}
	return nil, nil
}

func TestGetCart_Success(t *testing.T) {
	svc := &fakeCartService{
		activeCartFunc: func(ctx context.Context, ownerID string) (*cart.Cart, error) {
			return &cart.Cart{
				ID:      "cart-1",
				OwnerID: ownerID,
				Status:  cart.StatusActive,
				Items: []cart.LineItem{
					{ID: "li-1", ProductID: "P1", Quantity: 2, PriceAtAdd: decimal.NewFromInt(100)},
				},
				Total: decimal.NewFromInt(200),
			}, nil
		},
	}
	handler := NewCartHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/carts/owner-1", nil)
	req.SetPathValue("ownerId", "owner-1")
	rr := httptest.NewRecorder()

	handler.GetCart(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp cart.Cart
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "cart-1", resp.ID)
	require.Len(t, resp.Items, 1)
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(200)))
}

func TestGetCart_NoActiveCart(t *testing.T) {
	handler := NewCartHandler(&fakeCartService{})

	req := httptest.NewRequest(http.MethodGet, "/api/carts/owner-1", nil)
	req.SetPathValue("ownerId", "owner-1")
	rr := httptest.NewRecorder()

	handler.GetCart(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetCart_MissingPathParam(t *testing.T) {
	handler := NewCartHandler(&fakeCartService{})

	req := httptest.NewRequest(http.MethodGet, "/api/carts/", nil)
	rr := httptest.NewRecorder()

	handler.GetCart(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAddItem_Success(t *testing.T) {
	var gotProduct string
	var gotQty int
	svc := &fakeCartService{
		addItemFunc: func(ctx context.Context, ownerID, productID string, quantity int) (*cart.Cart, error) {
			gotProduct, gotQty = productID, quantity
			return &cart.Cart{ID: "cart-1", OwnerID: ownerID}, nil
		},
	}
	handler := NewCartHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/carts/owner-1/items",
		strings.NewReader(`{"productId":"P1","quantity":2}`))
	req.SetPathValue("ownerId", "owner-1")
	rr := httptest.NewRecorder()

	handler.AddItem(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "P1", gotProduct)
	assert.Equal(t, 2, gotQty)
}

func TestAddItem_InvalidJSON(t *testing.T) {
	handler := NewCartHandler(&fakeCartService{})

	req := httptest.NewRequest(http.MethodPost, "/api/carts/owner-1/items", strings.NewReader("{"))
	req.SetPathValue("ownerId", "owner-1")
	rr := httptest.NewRecorder()

	handler.AddItem(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAddItem_ServiceErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.InvalidRequest("bad quantity"), http.StatusBadRequest},
		{apperr.NotFound("no such product"), http.StatusNotFound},
		{apperr.Conflict("try again"), http.StatusConflict},
		{apperr.Internal("store down", nil), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		svc := &fakeCartService{
			addItemFunc: func(ctx context.Context, ownerID, productID string, quantity int) (*cart.Cart, error) {
				return nil, tc.err
			},
		}
		handler := NewCartHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/carts/owner-1/items",
			strings.NewReader(`{"productId":"P1","quantity":1}`))
		req.SetPathValue("ownerId", "owner-1")
		rr := httptest.NewRecorder()

		handler.AddItem(rr, req)

		assert.Equalf(t, tc.want, rr.Code, "error %v", tc.err)
	}
}

func TestRemoveItem_Forbidden(t *testing.T) {
	svc := &fakeCartService{
		removeFunc: func(ctx context.Context, ownerID, lineItemID string) (*cart.Cart, error) {
			return nil, apperr.Forbidden("line item belongs to another owner")
		},
	}
	handler := NewCartHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/carts/owner-1/items/li-9", nil)
	req.SetPathValue("ownerId", "owner-1")
	req.SetPathValue("itemId", "li-9")
	rr := httptest.NewRecorder()

	handler.RemoveItem(rr, req)

	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestUpdateItem_PassesQuantity(t *testing.T) {
	var gotQty int
	svc := &fakeCartService{
		updateFunc: func(ctx context.Context, ownerID, lineItemID string, quantity int) (*cart.Cart, error) {
			gotQty = quantity
			return &cart.Cart{ID: "cart-1"}, nil
		},
	}
	handler := NewCartHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/carts/owner-1/items/li-1",
		strings.NewReader(`{"quantity":0}`))
	req.SetPathValue("ownerId", "owner-1")
	req.SetPathValue("itemId", "li-1")
	rr := httptest.NewRecorder()

	handler.UpdateItem(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, gotQty)
}

func TestClearCart_Success(t *testing.T) {
	svc := &fakeCartService{
		clearFunc: func(ctx context.Context, ownerID string) (*cart.Cart, error) {
			return &cart.Cart{ID: "cart-1", Status: cart.StatusAbandoned, Total: decimal.Zero}, nil
		},
	}
	handler := NewCartHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/carts/owner-1/clear", nil)
	req.SetPathValue("ownerId", "owner-1")
	rr := httptest.NewRecorder()

	handler.ClearCart(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp cart.Cart
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, cart.StatusAbandoned, resp.Status)
}
