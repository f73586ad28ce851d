package controllers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/kingshoppers/storefront/api/responses"
	"github.com/kingshoppers/storefront/api/validators"
	pkgerrors "github.com/kingshoppers/storefront/pkg/errors"
	"github.com/kingshoppers/storefront/pkg/kingapi"
	"github.com/kingshoppers/storefront/pkg/logger"
)

const maxProductPageSize = 100

// CatalogAPI is the slice of the remote API the catalog pages read.
type CatalogAPI interface {
	ListProducts(ctx context.Context, query url.Values) (*kingapi.ProductPage, error)
	ListBrands(ctx context.Context) ([]kingapi.Brand, error)
	HomepageSections(ctx context.Context) ([]kingapi.HomepageSection, error)
	TrackSectionClick(ctx context.Context, sectionID string) error
}

// ProductList proxies the product listing. page and limit are checked
// here so bad input never reaches the remote API.
func ProductList(api CatalogAPI, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if api == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		if _, err := validators.ParseQueryInt(r, "page", 1, 1, 100000); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := validators.ParseQueryInt(r, "limit", 20, 1, maxProductPageSize); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := api.ListProducts(r.Context(), r.URL.Query())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func BrandList(api CatalogAPI, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if api == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}
		brands, err := api.ListBrands(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, brands)
	}
}

func HomepageSections(api CatalogAPI, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if api == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}
		sections, err := api.HomepageSections(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sections)
	}
}

// HomepageSectionClick records a section click. Tracking failures are
// logged and swallowed so the page never breaks on analytics.
func HomepageSectionClick(api CatalogAPI, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if api == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}
		sectionID := chi.URLParam(r, "sectionId")
		if sectionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "section id is required"))
			return
		}
		if err := api.TrackSectionClick(r.Context(), sectionID); err != nil {
			if pkgerrors.Is(err, pkgerrors.CodeValidation) {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if logg != nil {
				logg.Warn(logg.WithField(r.Context(), "section_id", sectionID), "homepage section click not recorded")
			}
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}
