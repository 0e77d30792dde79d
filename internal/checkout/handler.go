// internal/checkout/handler.go
package checkout

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bookmart/internal/catalog"
	"bookmart/internal/clients"
	"bookmart/internal/idempotency"
	"bookmart/internal/inventory"
)

type Handler struct {
	service Service
	idem    *idempotency.Store
}

// NewHandler creates a checkout handler. idem may be nil, in which case
// Idempotency-Key headers are ignored.
func NewHandler(service Service, idem *idempotency.Store) *Handler {
	return &Handler{service: service, idem: idem}
}

// Routes mounts the checkout endpoint.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/checkout", h.handleCheckout)
	return r
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	if h.idem != nil && key != "" {
		if record, err := h.idem.Get(key); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(record.Status)
			w.Write(record.Body)
			return
		}
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	receipt, err := h.service.PlaceOrder(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(receipt); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Only committed checkouts are stored: a failed attempt must stay
	// retryable under the same key.
	if h.idem != nil && key != "" {
		if _, err := h.idem.Put(idempotency.Record{
			Key:    key,
			Status: http.StatusCreated,
			Body:   body.Bytes(),
		}); err != nil {
			log.Printf("Failed to store idempotency record %q: %v", key, err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(body.Bytes())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrBookNotFound), errors.Is(err, clients.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrInvalidPrice),
		errors.Is(err, ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, ErrPriceMismatch), errors.Is(err, ErrTotalMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
