package handlers

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/shivcommunication/storefront/internal/logging"
	"github.com/shivcommunication/storefront/internal/middleware"
	"github.com/shivcommunication/storefront/internal/payment"
)

// PaymentHandler opens payment orders for phone-verified customers
type PaymentHandler struct {
	orders payment.OrderCreator
}

// NewPaymentHandler creates a new payment handler. A nil orders disables checkout.
func NewPaymentHandler(orders payment.OrderCreator) *PaymentHandler {
	return &PaymentHandler{orders: orders}
}

type createOrderRequest struct {
	Amount   int64  `json:"amount" validate:"gt=0"`
	Currency string `json:"currency" validate:"omitempty,len=3,uppercase"`
	Receipt  string `json:"receipt" validate:"max=40"`
}

type createOrderResponse struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
}

// HandleCreateOrder handles POST /payments/orders (phone-verified sessions only)
func (h *PaymentHandler) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	if h.orders == nil {
		respondWithError(w, http.StatusServiceUnavailable, payment.ErrNotConfigured.Error())
		return
	}

	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Currency = strings.TrimSpace(req.Currency)
	if err := validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid order: "+err.Error())
		return
	}
	if req.Currency == "" {
		req.Currency = payment.DefaultCurrency
	}

	sess := middleware.GetSession(r.Context())
	userID := sess.UserID().String()
	phone := sess.Phone()

	order, err := h.orders.CreateOrder(r.Context(), payment.OrderRequest{
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes: map[string]string{
			"user_id": userID,
			"phone":   phone,
		},
	})
	if err != nil {
		log.Error().Err(err).Str("phone", logging.MaskPhone(phone)).Msg("create payment order")
		respondWithError(w, http.StatusBadGateway, "failed to create order")
		return
	}

	log.Info().Str("order_id", order.ID).Str("user_id", userID).Msg("payment order created")
	respondJSON(w, http.StatusCreated, createOrderResponse{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		KeyID:    h.orders.KeyID(),
	})
}
