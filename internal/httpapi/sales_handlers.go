package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"sheetpos/backend/internal/domain"
)

func (a *API) handleCart(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"cart": a.services.Cart.View(r.Context())})
	case http.MethodDelete:
		a.services.Cart.Clear(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{"cart": a.services.Cart.View(r.Context())})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCartItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.CartLine
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	item, err := a.services.Cart.AddItem(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"item": item, "cart": a.services.Cart.View(r.Context())})
}

func (a *API) handleCartItemActions(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	cart := a.services.Cart
	switch r.Method {
	case http.MethodPatch:
		var req domain.CartQuantityRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		item, err := cart.UpdateQuantity(r.Context(), id, req.Quantity)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if item == nil {
			writeNotFound(w, "cart item")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"item": item, "cart": cart.View(r.Context())})
	case http.MethodDelete:
		cart.RemoveItem(r.Context(), id)
		writeJSON(w, http.StatusOK, map[string]any{"cart": cart.View(r.Context())})
	default:
		writeMethodNotAllowed(w)
	}
}

// handleCartItemStep serves the +/- buttons on a cart line.
func (a *API) handleCartItemStep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	id := r.PathValue("id")
	var item *domain.CartItem
	switch strings.ToLower(r.PathValue("step")) {
	case "increase":
		item = a.services.Cart.Increase(r.Context(), id)
	case "decrease":
		item = a.services.Cart.Decrease(r.Context(), id)
	default:
		writeError(w, http.StatusNotFound, errors.New("unknown cart action"))
		return
	}
	if item == nil {
		writeNotFound(w, "cart item")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": item, "cart": a.services.Cart.View(r.Context())})
}

func (a *API) handleCartDiscount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.CartDiscountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.services.Cart.SetDiscount(r.Context(), req.Amount); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cart": a.services.Cart.View(r.Context())})
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	checkout := a.services.Checkout
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"checkout": checkout.Preview(r.Context())})
	case http.MethodPatch:
		var patch domain.CheckoutFormPatch
		if err := decodeJSON(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if _, err := checkout.UpdateForm(r.Context(), patch); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"checkout": checkout.Preview(r.Context())})
	case http.MethodDelete:
		checkout.ResetForm(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{"checkout": checkout.Preview(r.Context())})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCheckoutCommit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	order, err := a.services.Checkout.Commit(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"order": order})
}

func (a *API) handleOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	query := r.URL.Query()
	from, err := parseDateParam(query.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	to, err := parseDateParam(query.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	orders := a.services.Checkout.ListOrders(r.Context(), domain.OrderFilter{
		From:          from,
		To:            to,
		CustomerPhone: strings.TrimSpace(query.Get("phone")),
		Limit:         parsePositiveLimit(query.Get("limit"), 50, 500),
	})
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (a *API) handleOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	order, err := a.services.Checkout.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (a *API) handleOrderReceipt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	receipt, err := a.services.Checkout.Receipt(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
