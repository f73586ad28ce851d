package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kingshoppers/storefront/internal/access"
	"github.com/kingshoppers/storefront/pkg/enums"
	pkgerrors "github.com/kingshoppers/storefront/pkg/errors"
	"github.com/kingshoppers/storefront/pkg/kingapi"
)

type stubIdentitySource struct {
	user  *kingapi.User
	err   error
	calls int
}

func (s *stubIdentitySource) Me(context.Context) (*kingapi.User, error) {
	s.calls++
	return s.user, s.err
}

func requestWithRemoteCookie() *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	return req.WithContext(kingapi.WithCookie(req.Context(), "connect.sid=abc"))
}

func TestResolveIdentitySkipsGuests(t *testing.T) {
	source := &stubIdentitySource{}
	var got *access.Identity
	handler := ResolveIdentity(source, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = IdentityFromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if source.calls != 0 {
		t.Fatalf("expected no lookup without remote cookies")
	}
	if got != nil {
		t.Fatalf("expected guest")
	}
}

func TestResolveIdentityAttachesUser(t *testing.T) {
	source := &stubIdentitySource{user: &kingapi.User{ID: "u1", Name: "Asha", UserType: "sales", IsApproved: true}}
	var got *access.Identity
	handler := ResolveIdentity(source, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = IdentityFromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), requestWithRemoteCookie())
	if got == nil || got.UserID != "u1" {
		t.Fatalf("expected identity u1, got %+v", got)
	}
	if got.UserType != enums.UserTypeSalesExecutive {
		t.Fatalf("expected sales executive, got %s", got.UserType)
	}
}

func TestResolveIdentityAnonymousSession(t *testing.T) {
	source := &stubIdentitySource{}
	called := false
	handler := ResolveIdentity(source, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if IdentityFromContext(r.Context()) != nil {
			t.Fatalf("expected no identity")
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), requestWithRemoteCookie())
	if !called || source.calls != 1 {
		t.Fatalf("expected lookup and pass-through")
	}
}

func TestResolveIdentityPropagatesRemoteFailure(t *testing.T) {
	source := &stubIdentitySource{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("boom"), "auth lookup")}
	handler := ResolveIdentity(source, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithRemoteCookie())
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestRequireArea(t *testing.T) {
	tests := []struct {
		name     string
		identity *access.Identity
		area     access.Area
		want     int
	}{
		{"guest cart", nil, access.AreaCart, http.StatusOK},
		{"guest checkout", nil, access.AreaCheckout, http.StatusUnauthorized},
		{"unapproved checkout", &access.Identity{UserID: "c", UserType: enums.UserTypeCustomer}, access.AreaCheckout, http.StatusForbidden},
		{"approved checkout", &access.Identity{UserID: "c", UserType: enums.UserTypeCustomer, IsApproved: true}, access.AreaCheckout, http.StatusOK},
		{"delivery sales", &access.Identity{UserID: "d", UserType: enums.UserTypeDelivery}, access.AreaSalesDashboard, http.StatusForbidden},
		{"admin delivery", &access.Identity{UserID: "a", UserType: enums.UserTypeAdmin}, access.AreaDeliveryDashboard, http.StatusOK},
	}

	for _, tt := range tests {
		handler := RequireArea(tt.area, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.identity != nil {
			req = req.WithContext(WithIdentity(req.Context(), tt.identity))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Fatalf("%s: expected %d got %d", tt.name, tt.want, rec.Code)
		}
	}
}

func TestSignedInCustomerReachesCart(t *testing.T) {
	var user kingapi.User
	if err := json.Unmarshal([]byte(`{"id":"c-7","name":"Meena","userType":"customer","isApproved":true}`), &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	source := &stubIdentitySource{user: &user}

	reached := false
	chain := ResolveIdentity(source, nil)(RequireArea(access.AreaCart, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		if id := IdentityFromContext(r.Context()); id == nil || id.UserType != enums.UserTypeCustomer {
			t.Fatalf("expected customer identity, got %+v", id)
		}
		w.WriteHeader(http.StatusOK)
	})))

	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, requestWithRemoteCookie())
	if rec.Code != http.StatusOK || !reached {
		t.Fatalf("expected customer to reach cart, got %d: %s", rec.Code, rec.Body.String())
	}
}
