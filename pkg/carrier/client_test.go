package carrier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/amelbouzid/karakou-backend/pkg/config"
	pkgerrors "github.com/amelbouzid/karakou-backend/pkg/errors"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient(
		config.CarrierConfig{BaseURL: "http://carrier.test", APIID: "id-123", APIToken: "tok-456", MaxAttempts: 3},
		WithHTTPClient(&http.Client{Transport: rt}),
		WithSleep(func(time.Duration) {}),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func TestCreateShipmentRequest(t *testing.T) {
	const expectedURL = "http://carrier.test/v1/parcels"

	var capturedURL string
	var capturedHeaders http.Header
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedHeaders = req.Header.Clone()

		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		var payload map[string]any
		if err := json.Unmarshal(bodyBytes, &payload); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}
		if payload["phone"] != "0550123456" {
			t.Fatalf("unexpected phone %q", payload["phone"])
		}
		if payload["weight_kg"] != float64(defaultParcelWeightKG) {
			t.Fatalf("expected default weight, got %v", payload["weight_kg"])
		}

		return jsonResponse(http.StatusCreated, `{"tracking":"YAL-998877"}`), nil
	})

	shipment, err := client.CreateShipment(context.Background(), ShipmentRequest{
		OrderNumber:   "KRK-000042",
		CustomerName:  "Nadia B",
		Phone:         "0550123456",
		Wilaya:        "Alger",
		StopDesk:      true,
		DeskCode:      "ALG-05",
		DeclaredValue: decimal.NewFromInt(12500),
	})
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}
	if shipment.TrackingID != "YAL-998877" {
		t.Fatalf("unexpected tracking %q", shipment.TrackingID)
	}
	if capturedURL != expectedURL {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedHeaders.Get(headerAPIID) != "id-123" || capturedHeaders.Get(headerAPIToken) != "tok-456" {
		t.Fatalf("auth headers missing: %+v", capturedHeaders)
	}
}

func TestCreateShipmentValidationNotRetried(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		attempts++
		return jsonResponse(http.StatusUnprocessableEntity, `{"error":"unknown commune"}`), nil
	})

	_, err := client.CreateShipment(context.Background(), ShipmentRequest{Phone: "0550123456"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeCarrierValidation) {
		t.Fatalf("expected carrier validation error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("validation failures must not be retried, got %d attempts", attempts)
	}
}

func TestCreateShipmentRetriesServerErrors(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		attempts++
		if attempts < 3 {
			return jsonResponse(http.StatusBadGateway, `oops`), nil
		}
		return jsonResponse(http.StatusCreated, `{"tracking":"YAL-1"}`), nil
	})

	shipment, err := client.CreateShipment(context.Background(), ShipmentRequest{Phone: "0550123456"})
	if err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if shipment.TrackingID != "YAL-1" {
		t.Fatalf("unexpected tracking %q", shipment.TrackingID)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestCreateShipmentExhaustsAttempts(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		attempts++
		return jsonResponse(http.StatusInternalServerError, `down`), nil
	})

	_, err := client.CreateShipment(context.Background(), ShipmentRequest{Phone: "0550123456"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeCarrierUnavailable) {
		t.Fatalf("expected carrier unavailable, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected bounded attempts, got %d", attempts)
	}
}

func TestGetTrackingParsesHistory(t *testing.T) {
	const expectedURL = "http://carrier.test/v1/parcels/YAL-998877/history"
	respBody := `{"events":[
		{"status":"Livré","sequence":4,"date":"2026-02-03T14:05:00Z","center":"Alger Centre"},
		{"status":"Sorti en livraison","sequence":3,"date":"2026-02-03T08:00:00Z","center":"Alger Centre"}
	]}`

	var capturedURL string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		return jsonResponse(http.StatusOK, respBody), nil
	})

	events, err := client.GetTracking(context.Background(), "YAL-998877")
	if err != nil {
		t.Fatalf("get tracking: %v", err)
	}
	if capturedURL != expectedURL {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Status != "Livré" || events[0].Sequence != 4 {
		t.Fatalf("unexpected first event %+v", events[0])
	}
	if events[0].Location != "Alger Centre" {
		t.Fatalf("unexpected location %q", events[0].Location)
	}
}

func TestGetTrackingRequiresID(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})
	if _, err := client.GetTracking(context.Background(), "  "); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
