package carrier

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

	"github.com/shopspring/decimal"

	"github.com/amelbouzid/karakou-backend/pkg/config"
	pkgerrors "github.com/amelbouzid/karakou-backend/pkg/errors"
)

const (
	defaultTimeout           = 10 * time.Second
	defaultMaxAttempts       = 3
	defaultBackoff           = 500 * time.Millisecond
	responseBodyReadLimit    = 2048
	defaultParcelWeightKG    = 1
	defaultParcelDescription = "traditional wear"
	headerAPIID              = "X-API-ID"
	headerAPIToken           = "X-API-TOKEN"
)

var errBaseURLRequired = errors.New("carrier base url is required")

// Client talks to the shipping provider's parcel API. Every call is a fresh
// bounded-timeout request; 5xx and transport failures are retried with backoff
// up to the configured attempt budget, carrier-side validation is not.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiID       string
	apiToken    string
	maxAttempts int
	backoff     time.Duration
	sleep       func(time.Duration)
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

// WithBaseURL overrides the configured carrier base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithSleep overrides the retry sleeper (tests).
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewClient builds the carrier client from configuration.
func NewClient(cfg config.CarrierConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	client := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		apiID:       strings.TrimSpace(cfg.APIID),
		apiToken:    strings.TrimSpace(cfg.APIToken),
		maxAttempts: attempts,
		backoff:     backoff,
		sleep:       time.Sleep,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// ShipmentRequest is the payload sent when handing a parcel to the carrier.
type ShipmentRequest struct {
	OrderNumber   string          `json:"order_number"`
	CustomerName  string          `json:"customer_name"`
	Phone         string          `json:"phone"`
	Wilaya        string          `json:"wilaya"`
	StopDesk      bool            `json:"stop_desk"`
	DeskCode      string          `json:"desk_code,omitempty"`
	Address       string          `json:"address,omitempty"`
	DeclaredValue decimal.Decimal `json:"declared_value"`
	WeightKG      int             `json:"weight_kg"`
	Description   string          `json:"description"`
}

// Shipment is the carrier's acknowledgment of a created parcel.
type Shipment struct {
	TrackingID string
}

// TrackingEvent is one carrier-side history entry.
type TrackingEvent struct {
	Status     string
	Sequence   int64
	OccurredAt time.Time
	Reason     string
	Location   string
}

// CreateShipment registers the parcel and returns its tracking identifier.
// Carrier-side field rejections surface as CARRIER_VALIDATION and must be
// fixed by a human, never retried here.
func (c *Client) CreateShipment(ctx context.Context, req ShipmentRequest) (*Shipment, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "carrier client not configured")
	}
	if strings.TrimSpace(req.Phone) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer phone is required")
	}
	if req.WeightKG <= 0 {
		req.WeightKG = defaultParcelWeightKG
	}
	if req.Description == "" {
		req.Description = defaultParcelDescription
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal shipment request")
	}

	var apiResp struct {
		Tracking string `json:"tracking"`
	}
	if err := c.do(ctx, http.MethodPost, "v1/parcels", payload, &apiResp); err != nil {
		return nil, err
	}
	if strings.TrimSpace(apiResp.Tracking) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "carrier returned no tracking identifier")
	}

	return &Shipment{TrackingID: apiResp.Tracking}, nil
}

// GetTracking fetches the parcel history, most recent first. Each call is a
// fresh finite fetch; there is no persistent stream to resume.
func (c *Client) GetTracking(ctx context.Context, trackingID string) ([]TrackingEvent, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "carrier client not configured")
	}
	trimmed := strings.TrimSpace(trackingID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking identifier is required")
	}

	var apiResp struct {
		Events []struct {
			Status   string `json:"status"`
			Sequence int64  `json:"sequence"`
			Date     string `json:"date"`
			Reason   string `json:"reason"`
			Center   string `json:"center"`
		} `json:"events"`
	}
	path := fmt.Sprintf("v1/parcels/%s/history", url.PathEscape(trimmed))
	if err := c.do(ctx, http.MethodGet, path, nil, &apiResp); err != nil {
		return nil, err
	}

	events := make([]TrackingEvent, 0, len(apiResp.Events))
	for _, e := range apiResp.Events {
		occurredAt, err := time.Parse(time.RFC3339, e.Date)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse carrier event date")
		}
		events = append(events, TrackingEvent{
			Status:     e.Status,
			Sequence:   e.Sequence,
			OccurredAt: occurredAt,
			Reason:     e.Reason,
			Location:   e.Center,
		})
	}

	return events, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, dest any) error {
	reqURL := c.buildURL(path)

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return pkgerrors.Wrap(pkgerrors.CodeCarrierUnavailable, ctx.Err(), "carrier request canceled")
			default:
			}
			c.sleep(c.backoff * time.Duration(attempt-1))
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		httpReq, err := http.NewRequestWithContext(ctx, method, reqURL, body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build carrier request")
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set(headerAPIID, c.apiID)
		httpReq.Header.Set(headerAPIToken, c.apiToken)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			lastErr = pkgerrors.Wrap(pkgerrors.CodeCarrierUnavailable, err, "execute carrier request")
			continue
		}

		retry, err := c.decodeResponse(resp, dest)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
	}

	return lastErr
}

// decodeResponse returns whether the failure is worth another attempt.
func (c *Client) decodeResponse(resp *http.Response, dest any) (bool, error) {
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		if dest == nil {
			return false, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode carrier response")
		}
		return false, nil
	case resp.StatusCode >= http.StatusInternalServerError:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return true, pkgerrors.Wrap(
			pkgerrors.CodeCarrierUnavailable,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"carrier request failed",
		)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return false, pkgerrors.New(pkgerrors.CodeCarrierValidation, "carrier rejected the shipment").
			WithDetails(map[string]any{"status": resp.StatusCode, "body": strings.TrimSpace(string(msg))})
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return false, pkgerrors.Wrap(
			pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"unexpected carrier response",
		)
	}
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
