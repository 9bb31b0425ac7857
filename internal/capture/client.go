// Package capture talks to the external lecture-capture service: it lists the
// capture resources installed in rooms and books recording series.
package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/example/capture-scheduler/internal/logging"
)

const (
	// DefaultTimeout bounds a single request to the capture service.
	DefaultTimeout = 30 * time.Second
	// DefaultTimezone is sent with bookings that do not name one.
	DefaultTimezone = "America/Los_Angeles"

	maxErrorBody = 4 << 10
)

// API is the subset of the capture service the scheduler uses.
type API interface {
	ListResources(ctx context.Context) ([]Resource, error)
	ScheduleRecording(ctx context.Context, booking Booking) (string, error)
}

// Config holds the connection settings for the capture service.
type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	Timezone     string
	// Optional: replaces the default transport, mostly for tests.
	Transport http.RoundTripper
}

// Client is an OAuth2 client-credentials client for the capture service.
type Client struct {
	config   Config
	http     *http.Client
	validate *validator.Validate
}

var _ API = (*Client)(nil)

// NewClient creates a capture service client.
func NewClient(config Config) *Client {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Timezone == "" {
		config.Timezone = DefaultTimezone
	}
	if config.Transport == nil {
		config.Transport = http.DefaultTransport
	}

	oauthConfig := &clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     config.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	// Token requests carry their own timeout, independent of the API call
	// that triggered them. The token is cached until it expires.
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{
		Timeout:   config.Timeout,
		Transport: config.Transport,
	})
	source := oauth2.ReuseTokenSource(nil, oauthConfig.TokenSource(tokenCtx))

	return &Client{
		config: config,
		http: &http.Client{
			Timeout: config.Timeout,
			Transport: &oauth2.Transport{
				Base:   config.Transport,
				Source: source,
			},
		},
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ListResources returns every capture resource known to the service.
func (c *Client) ListResources(ctx context.Context) ([]Resource, error) {
	ctx = logging.AppendCtx(ctx, slog.String("capture_operation", "list_resources"))

	var body ResourcesResponse
	if err := c.do(ctx, "list_resources", http.MethodGet, "/resources", nil, &body); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "retrieved capture resources", "resource_count", len(body.Objects))
	return body.Objects, nil
}

// ScheduleRecording books a recording series and returns its identifier.
func (c *Client) ScheduleRecording(ctx context.Context, booking Booking) (string, error) {
	ctx = logging.AppendCtx(ctx, slog.String("capture_operation", "schedule_recording"))
	ctx = logging.AppendCtx(ctx, slog.Int("resource_id", booking.ResourceID))

	if booking.Timezone == "" {
		booking.Timezone = c.config.Timezone
	}
	if err := c.validate.StructCtx(ctx, booking); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidBooking, err)
	}

	var body ScheduleResponse
	if err := c.do(ctx, "schedule_recording", http.MethodPost, "/schedules", booking, &body); err != nil {
		return "", err
	}
	if body.SeriesID == "" {
		return "", &ServiceError{Operation: "schedule_recording", StatusCode: http.StatusOK, Message: "response has no series_id"}
	}

	slog.InfoContext(ctx, "recording series booked", "series_id", body.SeriesID, "label", booking.Label)
	return body.SeriesID, nil
}

// do sends one request. Failures are reported once; retrying is left to the
// next scheduled run.
func (c *Client) do(ctx context.Context, operation, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(started)
	if err != nil {
		slog.ErrorContext(ctx, "capture request failed",
			"method", method,
			"path", path,
			"duration", duration.String(),
			logging.ErrKey, err,
		)
		return &ServiceError{Operation: operation, Message: "request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		svcErr := &ServiceError{Operation: operation, StatusCode: resp.StatusCode, Message: errorMessage(raw)}
		slog.ErrorContext(ctx, "capture service returned error",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"duration", duration.String(),
			logging.ErrKey, svcErr,
		)
		return svcErr
	}

	slog.DebugContext(ctx, "capture request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", duration.String(),
	)

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ServiceError{Operation: operation, StatusCode: resp.StatusCode, Message: "undecodable response", Err: err}
	}
	return nil
}

func errorMessage(body []byte) string {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		if errResp.Code != "" {
			return errResp.Code + ": " + errResp.Message
		}
		return errResp.Message
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "empty response body"
	}
	return msg
}
