package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/amelbouzid/karakou-backend/pkg/enums"
)

func requestAs(role enums.StaffRole) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return req.WithContext(WithActor(req.Context(), uuid.New(), role))
}

func TestRequireConfirmAccess(t *testing.T) {
	cases := []struct {
		role   enums.StaffRole
		status int
	}{
		{enums.StaffRoleConfirmationAgent, http.StatusNoContent},
		{enums.StaffRoleAdmin, http.StatusNoContent},
		{enums.StaffRoleDeliveryCoordinator, http.StatusForbidden},
	}

	handler := RequireConfirmAccess(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, tc := range cases {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestAs(tc.role))
		if w.Code != tc.status {
			t.Fatalf("role %s: expected %d, got %d", tc.role, tc.status, w.Code)
		}
	}
}

func TestRequireDeliverAccess(t *testing.T) {
	cases := []struct {
		role   enums.StaffRole
		status int
	}{
		{enums.StaffRoleDeliveryCoordinator, http.StatusNoContent},
		{enums.StaffRoleAdmin, http.StatusNoContent},
		{enums.StaffRoleConfirmationAgent, http.StatusForbidden},
	}

	handler := RequireDeliverAccess(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, tc := range cases {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestAs(tc.role))
		if w.Code != tc.status {
			t.Fatalf("role %s: expected %d, got %d", tc.role, tc.status, w.Code)
		}
	}
}

func TestRequireAccessWithoutAuthContext(t *testing.T) {
	handler := RequireConfirmAccess(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached without an actor")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}
