// Package api is the authenticated fetch layer: a typed client for the
// marketplace REST API. Responses are treated as binary success/failure and
// are never retried.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fairyhunter13/marketplace-client/internal/model"
)

// APIError is returned when the API responds with a non-2xx status.
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %d: %s", e.Status, e.Message)
}

// NetworkError is returned when the request never produced a response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Client is a typed client for the marketplace API.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithToken sets the bearer session token.
func WithToken(token string) Option {
	return func(c *Client) { c.Token = token }
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.HTTPClient.Timeout = d }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.HTTPClient = h }
}

// New creates a Client for the given API root.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type errEnvelope struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var env errEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Error != "" {
			return &APIError{Status: resp.StatusCode, Message: env.Error, Details: env.Details}
		}
		return &APIError{Status: resp.StatusCode, Message: "unknown error"}
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// ListProducts calls GET /products and returns the full catalog.
func (c *Client) ListProducts(ctx context.Context) ([]model.Product, error) {
	var out []model.Product
	err := c.do(ctx, http.MethodGet, "/products", nil, &out)
	return out, err
}

// Order is a purchase order as returned by the API.
type Order struct {
	ID     string           `json:"id"`
	Status string           `json:"status"`
	Lines  []model.CartLine `json:"lines"`
	Total  int64            `json:"total"`
}

type createOrderRequest struct {
	Lines []model.CartLine `json:"lines"`
}

// CreateOrder calls POST /orders with the given cart lines.
func (c *Client) CreateOrder(ctx context.Context, lines []model.CartLine) (*Order, error) {
	var out Order
	err := c.do(ctx, http.MethodPost, "/orders", createOrderRequest{Lines: lines}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOrders calls GET /orders for the authenticated buyer.
func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	var out []Order
	err := c.do(ctx, http.MethodGet, "/orders", nil, &out)
	return out, err
}
