// Package backend is a typed client for the storefront's REST backend.
//
// Every call goes through an OpenTelemetry instrumented transport and a
// circuit breaker. Once the backend keeps failing the breaker opens and
// calls fail fast with an error for which IsTransient reports true, so
// handlers can show a retry affordance instead of waiting on timeouts.
//
// Usage:
//
//	api := backend.New("http://localhost:8080/api", backend.WithLogger(logger))
//	products, err := api.Products(ctx)
//	if backend.IsTransient(err) {
//	    // render "try again"
//	}
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// DefaultURL is the base URL used when none is configured.
const DefaultURL = "http://localhost:8080/api"

// maxErrorBody bounds how much of an error response is kept in APIError.
const maxErrorBody = 4 << 10

type tokenKey struct{}

// WithToken returns a context whose backend calls carry token as a bearer
// credential.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// Client talks to the shop backend REST API. Calls go through a circuit
// breaker that opens after consecutive transient failures. It is safe for
// concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *zap.Logger

	failureThreshold uint32
	openTimeout      time.Duration
}

type clientConfig func(*Client)

// WithHTTPClient replaces the HTTP client. Its transport is still wrapped
// with otelhttp.
func WithHTTPClient(hc *http.Client) clientConfig {
	return clientConfig(func(c *Client) {
		c.http = hc
	})
}

// WithLogger sets the logger. (default no-op)
func WithLogger(logger *zap.Logger) clientConfig {
	return clientConfig(func(c *Client) {
		c.logger = logger
	})
}

// WithBreaker sets after how many consecutive failures the breaker opens
// and how long it stays open. (default 5 failures, 30s)
func WithBreaker(failures uint32, open time.Duration) clientConfig {
	return clientConfig(func(c *Client) {
		c.failureThreshold = failures
		c.openTimeout = open
	})
}

// New returns a client for the backend at baseURL.
func New(baseURL string, cfgs ...clientConfig) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}

	c := &Client{
		baseURL:          strings.TrimRight(baseURL, "/"),
		http:             &http.Client{Timeout: 10 * time.Second},
		logger:           zap.NewNop(),
		failureThreshold: 5,
		openTimeout:      30 * time.Second,
	}

	for _, cfg := range cfgs {
		cfg(c)
	}

	hc := *c.http
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc.Transport = otelhttp.NewTransport(base)
	c.http = &hc

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 1,
		Timeout:     c.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.failureThreshold
		},
		// client errors are the caller's fault, not the backend's
		IsSuccessful: func(err error) bool {
			return err == nil || !IsTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return c
}

// Products lists the catalog.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var out []Product
	return out, c.do(ctx, http.MethodGet, "/products", nil, &out)
}

// Product returns one product. A missing product yields an error matching
// ErrNotFound.
func (c *Client) Product(ctx context.Context, id ProductID) (*Product, error) {
	var out Product
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(string(id)), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateProduct(ctx context.Context, p Product) (*Product, error) {
	var out Product
	if err := c.do(ctx, http.MethodPost, "/products", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id ProductID, p Product) (*Product, error) {
	var out Product
	if err := c.do(ctx, http.MethodPut, "/products/"+url.PathEscape(string(id)), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id ProductID) error {
	return c.do(ctx, http.MethodDelete, "/products/"+url.PathEscape(string(id)), nil, nil)
}

// Categories lists every category, active or not.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	return out, c.do(ctx, http.MethodGet, "/categories", nil, &out)
}

// ActiveCategories lists the categories shown in the storefront.
func (c *Client) ActiveCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	return out, c.do(ctx, http.MethodGet, "/categories/active", nil, &out)
}

func (c *Client) CreateCategory(ctx context.Context, cat Category) (*Category, error) {
	var out Category
	if err := c.do(ctx, http.MethodPost, "/categories", cat, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCategory(ctx context.Context, id int64, cat Category) (*Category, error) {
	var out Category
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/categories/%d", id), cat, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/categories/%d", id), nil, nil)
}

// ToggleCategoryStatus flips the active flag of a category.
func (c *Client) ToggleCategoryStatus(ctx context.Context, id int64) (*Category, error) {
	var out Category
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/categories/%d/toggle-status", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Orders(ctx context.Context) ([]Order, error) {
	var out []Order
	return out, c.do(ctx, http.MethodGet, "/orders", nil, &out)
}

func (c *Client) Order(ctx context.Context, id int64) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder places an order. It is the only write the storefront makes
// on behalf of anonymous clients.
func (c *Client) CreateOrder(ctx context.Context, o Order) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodPost, "/orders", o, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateOrder(ctx context.Context, id int64, o Order) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/orders/%d", id), o, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteOrder(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/orders/%d", id), nil, nil)
}

func (c *Client) Inventory(ctx context.Context) ([]InventoryItem, error) {
	var out []InventoryItem
	return out, c.do(ctx, http.MethodGet, "/inventory", nil, &out)
}

func (c *Client) UpdateInventory(ctx context.Context, id int64, u InventoryUpdate) (*InventoryItem, error) {
	var out InventoryItem
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/inventory/%d", id), u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reports, SalesHistory and ProfitAnalytics return the backend's report
// documents untouched; query is forwarded as is.
func (c *Client) Reports(ctx context.Context, query url.Values) (json.RawMessage, error) {
	return c.raw(ctx, "/reports", query)
}

func (c *Client) SalesHistory(ctx context.Context, query url.Values) (json.RawMessage, error) {
	return c.raw(ctx, "/sales-history", query)
}

func (c *Client) ProfitAnalytics(ctx context.Context, query url.Values) (json.RawMessage, error) {
	return c.raw(ctx, "/profit-analytics", query)
}

// Login authenticates a user. Wrong credentials come back as an *APIError
// with a 4xx status.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) raw(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var out json.RawMessage
	return out, c.do(ctx, http.MethodGet, path, nil, &out)
}

// do sends in as JSON and decodes the response into out. Either may be nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, path, in)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			c.logger.Debug("backend call short-circuited", zap.String("method", method), zap.String("path", path))
		}
		return err
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("backend: decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, in any) ([]byte, error) {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("backend: encode %s %s: %w", method, path, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("backend: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := ctx.Value(tokenKey{}).(string); ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		// the caller gave up, which says nothing about the backend
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Warn("backend request failed",
			zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: reading %s %s: %v", ErrUnavailable, method, path, err)
	}
	return data, nil
}
