package middleware

import (
	"net/http"

	"github.com/amelbouzid/karakou-backend/api/responses"
	"github.com/amelbouzid/karakou-backend/pkg/enums"
	pkgerrors "github.com/amelbouzid/karakou-backend/pkg/errors"
	"github.com/amelbouzid/karakou-backend/pkg/logger"
)

// RequireConfirmAccess limits a route to roles allowed on the confirmation track.
func RequireConfirmAccess(logg *logger.Logger) func(http.Handler) http.Handler {
	return requireCapability(logg, enums.StaffRole.CanConfirm, "confirmation access required")
}

// RequireDeliverAccess limits a route to roles allowed on the delivery track.
func RequireDeliverAccess(logg *logger.Logger) func(http.Handler) http.Handler {
	return requireCapability(logg, enums.StaffRole.CanDeliver, "delivery access required")
}

func requireCapability(logg *logger.Logger, allowed func(enums.StaffRole) bool, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed(RoleFromContext(r.Context())) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, message))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
