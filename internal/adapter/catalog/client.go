package catalog

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

	"github.com/mercadito/storefront/internal/cart"
)

// ErrNotFound is returned when the catalog has no product for the id.
var ErrNotFound = errors.New("product not found")

// RemoteError carries a non-2xx catalog response, including the API's
// own message when it sent one.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("catalog: status %d: %s", e.Status, e.Message)
}

// Client talks to the remote Product Catalog Service over HTTP/JSON.
type Client struct {
	base string
	hc   *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		hc:   &http.Client{Timeout: timeout},
	}
}

// CreateInput is the payload of a new catalog product.
type CreateInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Active      bool            `json:"isActive"`
}

// Create registers a new product and returns the persisted record.
func (c *Client) Create(ctx context.Context, in CreateInput) (cart.Product, error) {
	var out cart.Product
	if err := c.do(ctx, http.MethodPost, "/products", in, &out); err != nil {
		return cart.Product{}, err
	}
	return out, nil
}

// List fetches every product in the catalog.
func (c *Client) List(ctx context.Context) ([]cart.Product, error) {
	var out []cart.Product
	if err := c.do(ctx, http.MethodGet, "/products", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one product by id.
func (c *Client) Get(ctx context.Context, id string) (cart.Product, error) {
	var out cart.Product
	if err := c.do(ctx, http.MethodGet, "/products/"+id, nil, &out); err != nil {
		var re *RemoteError
		if errors.As(err, &re) && re.Status == http.StatusNotFound {
			return cart.Product{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return cart.Product{}, err
	}
	return out, nil
}

// DecrementStock pushes a stock decrement for a product. Invoked once
// per distinct cart entry at successful checkout.
func (c *Client) DecrementStock(ctx context.Context, id string, qty int) error {
	body := map[string]int{"quantity": qty}
	return c.do(ctx, http.MethodPatch, "/products/"+id+"/stock", body, nil)
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
		return fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteError{Status: resp.StatusCode, Message: apiMessage(resp)}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode catalog response: %w", err)
		}
	}
	return nil
}

// apiMessage extracts the {"message": ...} field the API uses for errors.
func apiMessage(resp *http.Response) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Message != "" {
		return e.Message
	}
	return http.StatusText(resp.StatusCode)
}
