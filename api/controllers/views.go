package controllers

import (
	"net/http"
	"strings"

	"github.com/amelbouzid/karakou-backend/api/middleware"
	"github.com/amelbouzid/karakou-backend/api/responses"
	"github.com/amelbouzid/karakou-backend/api/validators"
	"github.com/amelbouzid/karakou-backend/internal/views"
	"github.com/amelbouzid/karakou-backend/pkg/enums"
	"github.com/amelbouzid/karakou-backend/pkg/logger"
)

// ConfirmationQueue lists orders waiting on a call, oldest contact first.
func ConfirmationQueue(svc views.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ConfirmationQueue(r.Context(), middleware.RoleFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// DeliveryQueue lists orders at one logistics status.
func DeliveryQueue(svc views.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := enums.DeliveryStatus(strings.TrimSpace(r.URL.Query().Get("status")))
		if status == "" {
			status = enums.DeliveryStatusReady
		}

		list, err := svc.DeliveryQueue(r.Context(), middleware.RoleFromContext(r.Context()), status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// WilayaStats aggregates shipped parcels per destination wilaya.
func WilayaStats(svc views.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.WilayaStats(r.Context(), middleware.RoleFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"wilayas": stats})
	}
}
