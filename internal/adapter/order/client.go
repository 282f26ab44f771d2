package order

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no order exists for the id.
var ErrNotFound = errors.New("order not found")

// RemoteError carries a non-2xx order-service response.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("orders: status %d: %s", e.Status, e.Message)
}

// ItemInput is one (productId, quantity) pair of a checkout submission.
type ItemInput struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

// CreateInput is the checkout submission payload.
type CreateInput struct {
	Items           []ItemInput `json:"items"`
	CustomerName    string      `json:"customerName,omitempty"`
	CustomerEmail   string      `json:"customerEmail,omitempty"`
	ShippingAddress string      `json:"shippingAddress,omitempty"`
}

// Item is one persisted order line, priced by the server.
type Item struct {
	ItemID   string          `json:"itemId"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Order is the persisted record the Order Service returns.
type Order struct {
	ID              string          `json:"_id"`
	Items           []Item          `json:"items"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Status          string          `json:"status"`
	CustomerName    string          `json:"customerName"`
	CustomerEmail   string          `json:"customerEmail"`
	ShippingAddress string          `json:"shippingAddress"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Client talks to the remote Order Service over HTTP/JSON.
type Client struct {
	base string
	hc   *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		hc:   &http.Client{Timeout: timeout},
	}
}

// Create submits a checkout and returns the persisted order.
func (c *Client) Create(ctx context.Context, in CreateInput) (Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodPost, "/orders", in, &out); err != nil {
		return Order{}, err
	}
	return out, nil
}

// Get looks up a persisted order for the confirmation view.
func (c *Client) Get(ctx context.Context, id string) (Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+id, nil, &out); err != nil {
		var re *RemoteError
		if errors.As(err, &re) && re.Status == http.StatusNotFound {
			return Order{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Order{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("orders request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Message string `json:"message"`
		}
		msg := http.StatusText(resp.StatusCode)
		if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Message != "" {
			msg = e.Message
		}
		return &RemoteError{Status: resp.StatusCode, Message: msg}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode orders response: %w", err)
		}
	}
	return nil
}
