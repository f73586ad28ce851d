package kingapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/kingshoppers/storefront/pkg/errors"
	"github.com/shopspring/decimal"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(server.URL+"/api", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	if _, err := NewClient("  ", time.Second); err == nil {
		t.Fatalf("expected error for empty base url")
	}
	if _, err := NewClient("not a url", time.Second); err == nil {
		t.Fatalf("expected error for invalid base url")
	}
}

func TestProductsByIDsForwardsCookieAndUnwrapsEnvelope(t *testing.T) {
	var gotPath, gotIDs, gotCookie string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotIDs = r.URL.Query().Get("ids")
		gotCookie = r.Header.Get("Cookie")
		_, _ = io.WriteString(w, `{"success":true,"data":{"products":[{"id":"p1","name":"Atta","gstPercent":5,"isActive":true,"variants":[{"id":"v1","packSize":"10 kg","price":"450.50","mrp":500,"stock":12,"moq":2,"isAvailable":true}]}],"total":1}}`)
	})

	ctx := WithCookie(context.Background(), "sid=abc")
	products, err := client.ProductsByIDs(ctx, []string{"p1", "p2"})
	if err != nil {
		t.Fatalf("products: %v", err)
	}
	if gotPath != "/api/products" || gotIDs != "p1,p2" {
		t.Fatalf("unexpected request path=%q ids=%q", gotPath, gotIDs)
	}
	if gotCookie != "sid=abc" {
		t.Fatalf("expected cookie forwarded, got %q", gotCookie)
	}
	if len(products) != 1 {
		t.Fatalf("expected one product, got %d", len(products))
	}
	variant, ok := products[0].Variant("v1")
	if !ok {
		t.Fatalf("expected variant v1")
	}
	if !variant.Price.Equal(decimal.RequireFromString("450.50")) || variant.MOQ != 2 || variant.Stock != 12 {
		t.Fatalf("unexpected variant %+v", variant)
	}
	if _, ok := products[0].Variant("missing"); ok {
		t.Fatalf("unexpected variant match")
	}
}

func TestProductsByIDsSkipsEmptyLookup(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		t.Fatalf("no request expected")
		return nil, nil
	})
	client, err := NewClient("http://api.test", time.Second, WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	products, err := client.ProductsByIDs(context.Background(), nil)
	if err != nil || len(products) != 0 {
		t.Fatalf("expected empty result, got %v %v", products, err)
	}
}

func TestUnauthorizedMapsToSessionExpired(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.ListBrands(context.Background())
	if !pkgerrors.Is(err, pkgerrors.CodeSessionExpired) {
		t.Fatalf("expected session expired, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok || details["redirect"] != LoginRedirect {
		t.Fatalf("expected login redirect details, got %#v", pkgerrors.As(err).Details())
	}
}

func TestMeTreatsUnauthorizedAsAnonymous(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/me" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusUnauthorized)
	})

	user, err := client.Me(context.Background())
	if err != nil || user != nil {
		t.Fatalf("expected anonymous, got user=%v err=%v", user, err)
	}
}

func TestMeReturnsUser(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"id":"u1","name":"Ravi","userType":"customer","isApproved":true,"hubId":"hub-3"}}`)
	})

	user, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if user == nil || user.ID != "u1" || user.UserType != "customer" || !user.IsApproved || user.HubID != "hub-3" {
		t.Fatalf("unexpected user %+v", user)
	}
	if user.Kind() != "customer" {
		t.Fatalf("expected kind customer, got %q", user.Kind())
	}
}

func TestUserKindFallsBackToRole(t *testing.T) {
	cases := []struct {
		user User
		want string
	}{
		{user: User{UserType: "delivery", Role: "customer"}, want: "delivery"},
		{user: User{Role: "admin"}, want: "admin"},
		{user: User{}, want: ""},
	}
	for _, tc := range cases {
		if got := tc.user.Kind(); got != tc.want {
			t.Fatalf("kind of %+v: expected %q got %q", tc.user, tc.want, got)
		}
	}
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   pkgerrors.Code
	}{
		{status: http.StatusBadRequest, want: pkgerrors.CodeValidation},
		{status: http.StatusUnprocessableEntity, want: pkgerrors.CodeValidation},
		{status: http.StatusForbidden, want: pkgerrors.CodeForbidden},
		{status: http.StatusNotFound, want: pkgerrors.CodeNotFound},
		{status: http.StatusConflict, want: pkgerrors.CodeConflict},
		{status: http.StatusTooManyRequests, want: pkgerrors.CodeRateLimit},
		{status: http.StatusBadGateway, want: pkgerrors.CodeDependency},
	}

	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, `{"message":"coupon expired"}`)
			})
			_, err := client.ValidateCoupon(context.Background(), CouponValidationRequest{Code: "SAVE10"})
			if !pkgerrors.Is(err, tc.want) {
				t.Fatalf("expected %s, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateCouponSendsBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["code"] != "SAVE10" {
			t.Fatalf("unexpected code %v", body["code"])
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Fatalf("missing content type")
		}
		_, _ = io.WriteString(w, `{"valid":true,"code":"SAVE10","discount":"32.50"}`)
	})

	out, err := client.ValidateCoupon(context.Background(), CouponValidationRequest{Code: "SAVE10", CartTotal: decimal.NewFromInt(325)})
	if err != nil {
		t.Fatalf("validate coupon: %v", err)
	}
	if !out.Valid || !out.Discount.Equal(decimal.RequireFromString("32.5")) {
		t.Fatalf("unexpected validation %+v", out)
	}

	if _, err := client.ValidateCoupon(context.Background(), CouponValidationRequest{}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected local validation error, got %v", err)
	}
}

func TestTrackSectionClickEscapesID(t *testing.T) {
	var gotPath, gotMethod string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.TrackSectionClick(context.Background(), "sec 1"); err != nil {
		t.Fatalf("click: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/homepage-sections/sec%201/click" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
}

func TestLogoutRelaysCookies(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "", MaxAge: -1, Path: "/"})
		w.WriteHeader(http.StatusOK)
	})

	cookies, err := client.Logout(context.Background())
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(cookies) != 1 || cookies[0].Name != "sid" {
		t.Fatalf("expected sid cookie relayed, got %v", cookies)
	}
}

func TestSyncCartAndPlaceOrder(t *testing.T) {
	var syncBody CartSyncRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/api/cart":
			if err := json.NewDecoder(r.Body).Decode(&syncBody); err != nil {
				t.Fatalf("decode sync: %v", err)
			}
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost && r.URL.Path == "/api/orders":
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"data":{"id":"o1","orderNumber":"KS-1001","status":"pending","total":420}}`)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	ctx := context.Background()
	err := client.SyncCart(ctx, CartSyncRequest{Version: 3, Items: []CartSyncItem{{ProductID: "p1", VariantID: "v1", Quantity: 2}}})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if syncBody.Version != 3 || len(syncBody.Items) != 1 {
		t.Fatalf("unexpected sync body %+v", syncBody)
	}

	order, err := client.PlaceOrder(ctx, OrderRequest{Items: []OrderItem{{ProductID: "p1", VariantID: "v1", Quantity: 2}}})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if order.OrderNumber != "KS-1001" || !order.Total.Equal(decimal.NewFromInt(420)) {
		t.Fatalf("unexpected order %+v", order)
	}

	if _, err := client.PlaceOrder(ctx, OrderRequest{}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty order, got %v", err)
	}
}

func TestTransportFailureIsDependencyError(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection reset")
	})
	client, err := NewClient("http://api.test", time.Second, WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.ListProducts(context.Background(), url.Values{"q": {"rice"}})
	if !pkgerrors.Is(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if !strings.Contains(err.Error(), "DEPENDENCY_ERROR") {
		t.Fatalf("unexpected error text %q", err.Error())
	}
}
