package http

import (
	"encoding/json"
	"net/http"

	"github.com/motorline/storefront-go/internal/apperr"
)

func NewRouter(carts CartService, orders OrderService) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", healthHandler)

	ch := NewCartHandler(carts)
	mux.HandleFunc("GET /api/carts/{ownerId}", ch.GetCart)
	mux.HandleFunc("POST /api/carts/{ownerId}/items", ch.AddItem)
	mux.HandleFunc("PUT /api/carts/{ownerId}/items/{itemId}", ch.UpdateItem)
	mux.HandleFunc("DELETE /api/carts/{ownerId}/items/{itemId}", ch.RemoveItem)
	mux.HandleFunc("POST /api/carts/{ownerId}/clear", ch.ClearCart)

	oh := NewOrderHandler(orders)
	mux.HandleFunc("POST /api/users/{ownerId}/orders", oh.CreateOrder)
	mux.HandleFunc("GET /api/users/{ownerId}/orders", oh.ListOrdersByOwner)
	mux.HandleFunc("GET /api/orders", oh.ListOrders)
	mux.HandleFunc("GET /api/orders/{orderId}", oh.GetOrder)
	mux.HandleFunc("PUT /api/orders/{orderId}/status", oh.UpdateStatus)
	mux.HandleFunc("DELETE /api/orders/{orderId}", oh.DeleteOrder)

	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "storefront",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppError maps the error taxonomy onto HTTP status codes.
func writeAppError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindInvalidRequest:
		status = http.StatusBadRequest
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindForbidden:
		status = http.StatusForbidden
	}
	writeError(w, status, apperr.Message(err))
}
