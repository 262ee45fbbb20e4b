package payment

import (
	"context"
	"errors"
	"fmt"

	rzpsdk "github.com/razorpay/razorpay-go"
)

const DefaultCurrency = "INR"

// ErrNotConfigured is returned when no gateway credentials are set
var ErrNotConfigured = errors.New("payments not configured")

// OrderRequest describes an order to open with the gateway. Amount is in minor units.
type OrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

// Order is the gateway's view of a created order
type Order struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
}

// OrderCreator opens payment orders
type OrderCreator interface {
	CreateOrder(ctx context.Context, req OrderRequest) (Order, error)
	KeyID() string
}

// RazorpayClient implements OrderCreator on the Razorpay Orders API
type RazorpayClient struct {
	client *rzpsdk.Client
	keyID  string
}

// NewRazorpayClient builds a client from API credentials
func NewRazorpayClient(keyID, keySecret string) (*RazorpayClient, error) {
	if keyID == "" || keySecret == "" {
		return nil, ErrNotConfigured
	}
	return &RazorpayClient{
		client: rzpsdk.NewClient(keyID, keySecret),
		keyID:  keyID,
	}, nil
}

// KeyID is the public key the checkout widget needs
func (c *RazorpayClient) KeyID() string {
	return c.keyID
}

// CreateOrder implements OrderCreator. The SDK is synchronous and ignores ctx.
func (c *RazorpayClient) CreateOrder(_ context.Context, req OrderRequest) (Order, error) {
	currency := req.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": currency,
	}
	if req.Receipt != "" {
		data["receipt"] = req.Receipt
	}
	if len(req.Notes) > 0 {
		notes := make(map[string]interface{}, len(req.Notes))
		for k, v := range req.Notes {
			notes[k] = v
		}
		data["notes"] = notes
	}

	body, err := c.client.Order.Create(data, nil)
	if err != nil {
		return Order{}, fmt.Errorf("razorpay create order: %w", err)
	}
	return orderFromResponse(body)
}

func orderFromResponse(body map[string]interface{}) (Order, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return Order{}, fmt.Errorf("razorpay create order: response has no id")
	}

	order := Order{ID: id}
	order.Currency, _ = body["currency"].(string)
	order.Receipt, _ = body["receipt"].(string)
	order.Status, _ = body["status"].(string)
	switch amount := body["amount"].(type) {
	case float64:
		order.Amount = int64(amount)
	case int64:
		order.Amount = amount
	case int:
		order.Amount = int64(amount)
	}
	return order, nil
}
