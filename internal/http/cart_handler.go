package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/motorline/storefront-go/internal/cart"
)

// CartService is the slice of the cart service the handlers use.
type CartService interface {
	ActiveCart(ctx context.Context, ownerID string) (*cart.Cart, error)
	AddItem(ctx context.Context, ownerID, productID string, quantity int) (*cart.Cart, error)
	UpdateQuantity(ctx context.Context, ownerID, lineItemID string, quantity int) (*cart.Cart, error)
	RemoveItem(ctx context.Context, ownerID, lineItemID string) (*cart.Cart, error)
	Clear(ctx context.Context, ownerID string) (*cart.Cart, error)
}

type CartHandler struct {
	carts CartService
}

func NewCartHandler(carts CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ownerID := r.PathValue("ownerId")
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "missing ownerId")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.carts.ActiveCart(ctx, ownerID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "no active cart")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ownerID := r.PathValue("ownerId")
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "missing ownerId")
		return
	}

	var body struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c, err := h.carts.AddItem(ctx, ownerID, body.ProductID, body.Quantity)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ownerID := r.PathValue("ownerId")
	itemID := r.PathValue("itemId")
	if ownerID == "" || itemID == "" {
		writeError(w, http.StatusBadRequest, "missing ownerId or itemId")
		return
	}

	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.carts.UpdateQuantity(ctx, ownerID, itemID, body.Quantity)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ownerID := r.PathValue("ownerId")
	itemID := r.PathValue("itemId")
	if ownerID == "" || itemID == "" {
		writeError(w, http.StatusBadRequest, "missing ownerId or itemId")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.carts.RemoveItem(ctx, ownerID, itemID)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ownerID := r.PathValue("ownerId")
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "missing ownerId")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.carts.Clear(ctx, ownerID)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}
