package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kingshoppers/storefront/api/responses"
	pkgerrors "github.com/kingshoppers/storefront/pkg/errors"
	"github.com/kingshoppers/storefront/pkg/logger"
)

// DashboardAPI returns server-computed dashboard aggregates.
type DashboardAPI interface {
	SalesDashboard(ctx context.Context) (json.RawMessage, error)
	DeliveryStats(ctx context.Context) (json.RawMessage, error)
}

func SalesDashboard(api DashboardAPI, logg *logger.Logger) http.HandlerFunc {
	return dashboardHandler(logg, api, func(ctx context.Context) (json.RawMessage, error) {
		return api.SalesDashboard(ctx)
	})
}

func DeliveryStats(api DashboardAPI, logg *logger.Logger) http.HandlerFunc {
	return dashboardHandler(logg, api, func(ctx context.Context) (json.RawMessage, error) {
		return api.DeliveryStats(ctx)
	})
}

func dashboardHandler(logg *logger.Logger, api DashboardAPI, fetch func(context.Context) (json.RawMessage, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if api == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard api unavailable"))
			return
		}
		data, err := fetch(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(data) == 0 {
			data = json.RawMessage("null")
		}
		responses.WriteSuccess(w, data)
	}
}
