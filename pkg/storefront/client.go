package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	csrfHeader      = "X-CSRFToken"
	csrfCookie      = "csrftoken"
	requestIDHeader = "X-Request-ID"
)

// Client wraps the storefront REST API.
// It is safe for concurrent use; the only mutable state is the CSRF token.
type Client struct {
	baseURL  string
	http     *http.Client
	logger   zerolog.Logger
	onUnauth func()

	mu   sync.RWMutex
	csrf string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCookieJar sets the jar holding the server session cookies.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) { c.http.Jar = jar }
}

// WithTimeout sets a per-request timeout. Zero keeps the transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithUnauthenticatedHook registers fn to run on every 401/403 from a protected call.
func WithUnauthenticatedHook(fn func()) Option {
	return func(c *Client) { c.onUnauth = fn }
}

// NewClient creates a client for the API rooted at baseURL
// (for example "http://localhost:8000/api").
//
// Returns an error if baseURL is empty or not an absolute http(s) URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    &http.Client{},
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Bootstrap fetches the CSRF token once at startup.
// Callers should log a failure and carry on: reads work without a token and
// mutating calls fall back to the csrftoken cookie.
func (c *Client) Bootstrap(ctx context.Context) error {
	token, err := c.FetchCSRFToken(ctx)
	if err != nil {
		return err
	}
	c.SetCSRFToken(token)
	return nil
}

// SetCSRFToken overrides the token attached to mutating requests.
func (c *Client) SetCSRFToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.csrf = token
}

// CSRFToken returns the known token, falling back to the csrftoken cookie.
func (c *Client) CSRFToken() string {
	c.mu.RLock()
	token := c.csrf
	c.mu.RUnlock()
	if token != "" {
		return token
	}

	if c.http.Jar == nil {
		return ""
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	for _, cookie := range c.http.Jar.Cookies(u) {
		if cookie.Name == csrfCookie {
			return cookie.Value
		}
	}
	return ""
}

// FetchCSRFToken calls GET /auth/csrf/.
func (c *Client) FetchCSRFToken(ctx context.Context) (string, error) {
	var resp struct {
		Token string `json:"csrfToken"`
	}
	err := c.do(ctx, request{op: "fetch csrf token", method: http.MethodGet, path: "/auth/csrf/", public: true}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}

// ListProducts calls GET /productos/.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	err := c.do(ctx, request{op: "list products", method: http.MethodGet, path: "/productos/", public: true}, &products)
	return products, err
}

// GetProduct calls GET /productos/{id}/.
func (c *Client) GetProduct(ctx context.Context, id int) (*Product, error) {
	var product Product
	path := fmt.Sprintf("/productos/%d/", id)
	if err := c.do(ctx, request{op: "get product", method: http.MethodGet, path: path, public: true}, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProductsByCategory calls GET /productos/?categoria={id}.
func (c *Client) ListProductsByCategory(ctx context.Context, categoryID int) ([]Product, error) {
	var products []Product
	query := url.Values{"categoria": []string{strconv.Itoa(categoryID)}}
	err := c.do(ctx, request{op: "list products by category", method: http.MethodGet, path: "/productos/", query: query, public: true}, &products)
	return products, err
}

// ListCategories calls GET /categorias/.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	err := c.do(ctx, request{op: "list categories", method: http.MethodGet, path: "/categorias/", public: true}, &categories)
	return categories, err
}

// GetCart calls GET /cart/. An anonymous session gets its guest cart.
func (c *Client) GetCart(ctx context.Context) (Cart, error) {
	var items []CartItem
	if err := c.do(ctx, request{op: "get cart", method: http.MethodGet, path: "/cart/", public: true}, &items); err != nil {
		return Cart{}, err
	}
	return Cart{Items: items}, nil
}

// AddToCart calls POST /cart/. The server merges with an existing line for the
// same product and enforces stock.
func (c *Client) AddToCart(ctx context.Context, productID, quantity int) error {
	if quantity < 1 {
		return &ValidationError{Message: fmt.Sprintf("quantity must be a positive integer, got %d", quantity)}
	}
	body := map[string]int{"product_id": productID, "quantity": quantity}
	return c.do(ctx, request{op: "add to cart", method: http.MethodPost, path: "/cart/", body: body, public: true}, nil)
}

// CartItemUpdate is the server's answer to a quantity change.
type CartItemUpdate struct {
	ID       int             `json:"id"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// UpdateCartItem calls PATCH /cart/{id}/. Quantities below one are rejected
// locally: removal goes through RemoveCartItem, never through quantity 0.
func (c *Client) UpdateCartItem(ctx context.Context, itemID, quantity int) (*CartItemUpdate, error) {
	if quantity < 1 {
		return nil, &ValidationError{Message: fmt.Sprintf("quantity must be >= 1, got %d (use RemoveCartItem)", quantity)}
	}
	var update CartItemUpdate
	path := fmt.Sprintf("/cart/%d/", itemID)
	body := map[string]int{"quantity": quantity}
	if err := c.do(ctx, request{op: "update cart item", method: http.MethodPatch, path: path, body: body, public: true}, &update); err != nil {
		return nil, err
	}
	return &update, nil
}

// RemoveCartItem calls DELETE /cart/{id}/.
func (c *Client) RemoveCartItem(ctx context.Context, itemID int) error {
	path := fmt.Sprintf("/cart/%d/", itemID)
	return c.do(ctx, request{op: "remove cart item", method: http.MethodDelete, path: path, public: true}, nil)
}

// Register calls POST /auth/register/.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var result AuthResult
	if err := c.do(ctx, request{op: "register", method: http.MethodPost, path: "/auth/register/", body: req, public: true}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Login calls POST /auth/login/. Bad credentials come back as a ValidationError.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	var result AuthResult
	if err := c.do(ctx, request{op: "login", method: http.MethodPost, path: "/auth/login/", body: req, public: true}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Logout calls POST /auth/logout/.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, request{op: "logout", method: http.MethodPost, path: "/auth/logout/"}, nil)
}

// CheckAuth calls GET /auth/check/.
func (c *Client) CheckAuth(ctx context.Context) (*AuthStatus, error) {
	var status AuthStatus
	if err := c.do(ctx, request{op: "check auth", method: http.MethodGet, path: "/auth/check/", public: true}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetProfile calls GET /auth/profile/.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var profile Profile
	if err := c.do(ctx, request{op: "get profile", method: http.MethodGet, path: "/auth/profile/"}, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile calls PATCH /auth/profile/.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*Profile, error) {
	var profile Profile
	if err := c.do(ctx, request{op: "update profile", method: http.MethodPatch, path: "/auth/profile/", body: update}, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// OrderHistory calls GET /orders/history/.
func (c *Client) OrderHistory(ctx context.Context) ([]Order, error) {
	var orders []Order
	err := c.do(ctx, request{op: "order history", method: http.MethodGet, path: "/orders/history/"}, &orders)
	return orders, err
}

// CreateCheckoutSession calls POST /payments/checkout/create-session/.
// A 400 means the server-side cart is empty.
func (c *Client) CreateCheckoutSession(ctx context.Context) (*CheckoutSession, error) {
	var session CheckoutSession
	err := c.do(ctx, request{op: "create checkout session", method: http.MethodPost, path: "/payments/checkout/create-session/"}, &session)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) && verr.Status == http.StatusBadRequest {
			return nil, &EmptyResourceError{Resource: "cart"}
		}
		return nil, err
	}
	return &session, nil
}

// ConfirmPayment calls POST /payments/checkout/confirm/ and returns the
// materialized order. Rejections are reported as ConfirmationError; network
// failures and lost sessions keep their own types.
func (c *Client) ConfirmPayment(ctx context.Context, sessionID string) (*Order, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, &ConfirmationError{Message: "missing session token"}
	}
	var confirmation Confirmation
	body := map[string]string{"session_id": sessionID}
	err := c.do(ctx, request{op: "confirm payment", method: http.MethodPost, path: "/payments/checkout/confirm/", body: body}, &confirmation)
	if err != nil {
		if IsNetwork(err) || IsUnauthenticated(err) || ctx.Err() != nil {
			return nil, err
		}
		return nil, &ConfirmationError{SessionID: sessionID, Message: messageOf(err), Err: err}
	}
	return &confirmation.Order, nil
}

// request describes one API call.
type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	public bool // 401/403 on a public endpoint is not a lost session
}

func (r request) mutating() bool {
	switch r.method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// do executes the request and decodes a 2xx JSON body into out (when non-nil).
func (c *Client) do(ctx context.Context, r request, out any) error {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", r.op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", r.op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.mutating() {
		if token := c.CSRFToken(); token != "" {
			req.Header.Set(csrfHeader, token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", r.op, ctxErr)
		}
		c.logger.Debug().
			Str("request_id", requestID).
			Str("method", r.method).
			Str("path", r.path).
			Err(err).
			Msg("request failed")
		return &NetworkError{Op: r.op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: r.op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger.Debug().
		Str("request_id", requestID).
		Str("method", r.method).
		Str("path", r.path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request completed")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return &ServerError{Op: r.op, Status: resp.StatusCode, Message: fmt.Sprintf("undecodable response: %v", err)}
		}
		return nil
	}

	return c.statusError(r, resp.StatusCode, data)
}

func (c *Client) statusError(r request, status int, data []byte) error {
	message, fields := decodeErrorBody(data)

	switch {
	case status == http.StatusForbidden && isCSRFFailure(message):
		return &ValidationError{Status: status, Message: message, Fields: fields}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if r.public {
			if message == "" && status == http.StatusUnauthorized {
				message = "invalid credentials"
			} else if message == "" {
				message = http.StatusText(status)
			}
			return &ValidationError{Status: status, Message: message, Fields: fields}
		}
		if c.onUnauth != nil {
			c.onUnauth()
		}
		return &UnauthenticatedError{Op: r.op, Message: message}
	case status == http.StatusNotFound:
		return &NotFoundError{Op: r.op, Message: message}
	case status >= 400 && status < 500:
		if message == "" && len(fields) == 0 {
			message = http.StatusText(status)
		}
		return &ValidationError{Status: status, Message: message, Fields: fields}
	default:
		if message == "" {
			message = http.StatusText(status)
		}
		return &ServerError{Op: r.op, Status: status, Message: message}
	}
}

// isCSRFFailure recognizes the backend's CSRF rejection, which says nothing
// about whether the session is still logged in.
func isCSRFFailure(message string) bool {
	return strings.HasPrefix(strings.ToLower(message), "csrf failed")
}

// decodeErrorBody understands the backend's {"error": "..."}, {"detail": "..."}
// and {"field": ["msg", ...]} shapes.
func decodeErrorBody(data []byte) (string, map[string][]string) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return strings.TrimSpace(string(data)), nil
	}

	var message string
	fields := map[string][]string{}
	for key, value := range raw {
		switch key {
		case "error", "detail", "message":
			if s, ok := value.(string); ok && message == "" {
				message = s
			}
			continue
		}
		switch v := value.(type) {
		case string:
			fields[key] = append(fields[key], v)
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					fields[key] = append(fields[key], s)
				}
			}
		}
	}
	if len(fields) == 0 {
		fields = nil
	}
	return message, fields
}

func messageOf(err error) string {
	switch e := err.(type) {
	case *ValidationError:
		return e.Error()
	case *NotFoundError:
		if e.Message != "" {
			return e.Message
		}
		return "checkout session not found"
	case *ServerError:
		return e.Message
	default:
		return err.Error()
	}
}
