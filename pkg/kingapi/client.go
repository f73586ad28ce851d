package kingapi

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

	pkgerrors "github.com/kingshoppers/storefront/pkg/errors"
)

const (
	PathProducts         = "/products"
	PathBrands           = "/brands"
	PathHomepageSections = "/homepage-sections"
	PathCouponsValidate  = "/coupons/validate"
	PathSalesDashboard   = "/sales/dashboard"
	PathDeliveryStats    = "/delivery/stats"
	PathAuthMe           = "/auth/me"
	PathAuthLogout       = "/auth/logout"
	PathCart             = "/cart"
	PathOrders           = "/orders"

	// LoginRedirect is where an expired session is sent.
	LoginRedirect = "/login"

	defaultTimeout              = 10 * time.Second
	responseBodyReadLimit int64 = 1024
)

var errBaseURLRequired = errors.New("king api base url is required")

// Client talks to the King Shoppers API on behalf of the caller whose
// cookie travels in the request context.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds an API client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid king api base url: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type cookieKey struct{}

// WithCookie stores the caller's Cookie header for forwarding.
func WithCookie(ctx context.Context, header string) context.Context {
	return context.WithValue(ctx, cookieKey{}, header)
}

// CookieFromContext returns the forwarded Cookie header, if any.
func CookieFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	header, _ := ctx.Value(cookieKey{}).(string)
	return header
}

// ListProducts passes the storefront query straight through.
func (c *Client) ListProducts(ctx context.Context, query url.Values) (*ProductPage, error) {
	var page ProductPage
	if _, err := c.do(ctx, http.MethodGet, PathProducts, query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ProductsByIDs fetches the current snapshot of the given products.
func (c *Client) ProductsByIDs(ctx context.Context, ids []string) ([]Product, error) {
	if len(ids) == 0 {
		return []Product{}, nil
	}
	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("limit", fmt.Sprintf("%d", len(ids)))
	page, err := c.ListProducts(ctx, query)
	if err != nil {
		return nil, err
	}
	return page.Products, nil
}

func (c *Client) ListBrands(ctx context.Context) ([]Brand, error) {
	brands := []Brand{}
	if _, err := c.do(ctx, http.MethodGet, PathBrands, nil, nil, &brands); err != nil {
		return nil, err
	}
	return brands, nil
}

func (c *Client) HomepageSections(ctx context.Context) ([]HomepageSection, error) {
	sections := []HomepageSection{}
	if _, err := c.do(ctx, http.MethodGet, PathHomepageSections, nil, nil, &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

// TrackSectionClick records a click on a homepage section.
func (c *Client) TrackSectionClick(ctx context.Context, sectionID string) error {
	trimmed := strings.TrimSpace(sectionID)
	if trimmed == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "section id is required")
	}
	path := fmt.Sprintf("%s/%s/click", PathHomepageSections, url.PathEscape(trimmed))
	_, err := c.do(ctx, http.MethodPost, path, nil, struct{}{}, nil)
	return err
}

func (c *Client) ValidateCoupon(ctx context.Context, req CouponValidationRequest) (*CouponValidation, error) {
	if strings.TrimSpace(req.Code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	var out CouponValidation
	if _, err := c.do(ctx, http.MethodPost, PathCouponsValidate, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SalesDashboard(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if _, err := c.do(ctx, http.MethodGet, PathSalesDashboard, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeliveryStats(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if _, err := c.do(ctx, http.MethodGet, PathDeliveryStats, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Me looks up the signed-in user. An anonymous caller yields (nil, nil).
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	_, err := c.do(ctx, http.MethodGet, PathAuthMe, nil, nil, &user)
	if pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout ends the remote session and returns the cookies the API set so
// they can be relayed to the browser.
func (c *Client) Logout(ctx context.Context) ([]*http.Cookie, error) {
	header, err := c.do(ctx, http.MethodPost, PathAuthLogout, nil, struct{}{}, nil)
	if err != nil {
		return nil, err
	}
	return (&http.Response{Header: header}).Cookies(), nil
}

// SyncCart replaces the server-side cart mirror.
func (c *Client) SyncCart(ctx context.Context, req CartSyncRequest) error {
	_, err := c.do(ctx, http.MethodPut, PathCart, nil, req, nil)
	return err
}

func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	}
	var order Order
	if _, err := c.do(ctx, http.MethodPost, PathOrders, nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) (http.Header, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "king api client not configured")
	}

	target := c.buildURL(path)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal request "+path)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build request "+path)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie := CookieFromContext(ctx); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute request "+path)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, statusError(path, resp.StatusCode, raw)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.Header, nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read response "+path)
	}
	if err := json.Unmarshal(unwrapData(raw), out); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode response "+path)
	}
	return resp.Header, nil
}

// statusError maps a non-2xx response onto the error taxonomy. A 401 means
// the session expired, except on /auth/me where it just means nobody is
// signed in.
func statusError(path string, status int, raw []byte) error {
	cause := fmt.Errorf("%s status %d: %s", path, status, strings.TrimSpace(string(raw)))
	message := remoteMessage(raw)

	switch {
	case status == http.StatusUnauthorized && path == PathAuthMe:
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, cause, "not signed in")
	case status == http.StatusUnauthorized:
		return pkgerrors.Wrap(pkgerrors.CodeSessionExpired, cause, "session expired").
			WithDetails(map[string]string{"redirect": LoginRedirect})
	case status == http.StatusForbidden:
		return pkgerrors.Wrap(pkgerrors.CodeForbidden, cause, orDefault(message, "forbidden"))
	case status == http.StatusNotFound:
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, cause, orDefault(message, "not found"))
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, cause, orDefault(message, "request rejected"))
	case status == http.StatusConflict:
		return pkgerrors.Wrap(pkgerrors.CodeConflict, cause, orDefault(message, "conflict"))
	case status == http.StatusTooManyRequests:
		return pkgerrors.Wrap(pkgerrors.CodeRateLimit, cause, "king api rate limited")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "king api request failed")
	}
}

// unwrapData accepts both bare payloads and {"data": ...} envelopes.
func unwrapData(raw []byte) []byte {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	if err := json.Unmarshal(trimmed, &envelope); err == nil && len(envelope.Data) > 0 {
		return envelope.Data
	}
	return trimmed
}

func remoteMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
}
