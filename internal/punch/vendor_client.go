package punch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campus-dsi/pointage-api/internal/models"
	"github.com/campus-dsi/pointage-api/pkg/config"
	appErrors "github.com/campus-dsi/pointage-api/pkg/errors"
)

const (
	fetchAttempts = 3
	retryBackoff  = 500 * time.Millisecond
)

// VendorClient queries one tenant's biometric vendor API. Every call carries a
// per-request timeout; transient failures are retried with exponential backoff
// and a final failure surfaces as TENANT_UNAVAILABLE so the caller can skip
// the tenant without aborting the batch.
type VendorClient struct {
	base    string
	apiKey  string
	timeout time.Duration
	loc     *time.Location
	client  *http.Client
	logger  *zap.Logger
}

// NewVendorClient builds a client from the tenant's device API configuration.
func NewVendorClient(cfg config.TenantConfig, loc *time.Location, logger *zap.Logger) *VendorClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.DeviceAPITO
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &VendorClient{
		base:    strings.TrimRight(cfg.DeviceAPIBase, "/"),
		apiKey:  cfg.DeviceAPIKey,
		timeout: timeout,
		loc:     loc,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// vendorEvent is the raw wire row; timestamps arrive as local wall-clock
// strings and user references as matricules.
type vendorEvent struct {
	Matricule string `json:"matricule"`
	DeviceID  string `json:"device_id"`
	Timestamp string `json:"timestamp"`
}

type vendorPayload struct {
	Events []vendorEvent `json:"events"`
}

// FetchEvents implements Source.
func (c *VendorClient) FetchEvents(ctx context.Context, deviceIDs []string, window Window) ([]models.PunchEvent, Diagnostics, error) {
	var diag Diagnostics
	if c.base == "" {
		return nil, diag, appErrors.Clone(appErrors.ErrTenantUnavailable, "device API not configured")
	}

	q := url.Values{}
	q.Set("from", window.From.Format(time.RFC3339))
	q.Set("to", window.To.Format(time.RFC3339))
	q.Set("devices", strings.Join(deviceIDs, ","))
	endpoint := fmt.Sprintf("%s/v1/events?%s", c.base, q.Encode())

	payload, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, diag, appErrors.Wrap(err, appErrors.ErrTenantUnavailable.Code, appErrors.ErrTenantUnavailable.Status, "device API fetch failed")
	}

	events := make([]models.PunchEvent, 0, len(payload.Events))
	for _, raw := range payload.Events {
		ev, ok := c.normalize(raw)
		if !ok {
			diag.Malformed++
			continue
		}
		events = append(events, ev)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].At.Before(events[j].At) })
	return events, diag, nil
}

func (c *VendorClient) get(ctx context.Context, endpoint string) (*vendorPayload, error) {
	var lastErr error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		payload, err := c.getOnce(reqCtx, endpoint)
		cancel()
		if err == nil {
			return payload, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, lastErr
		}
		if attempt < fetchAttempts {
			delay := retryBackoff << (attempt - 1)
			c.logger.Sugar().Warnw("device API call failed, retrying", "attempt", attempt, "error", err)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}
	return nil, lastErr
}

func (c *VendorClient) getOnce(ctx context.Context, endpoint string) (*vendorPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("device API rejected credentials (status %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("device API returned status %d", resp.StatusCode)
	}

	var payload vendorPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode device API payload: %w", err)
	}
	return &payload, nil
}

// normalize validates one raw event. Events missing a student reference or
// carrying an unparseable timestamp are dropped.
func (c *VendorClient) normalize(raw vendorEvent) (models.PunchEvent, bool) {
	if strings.TrimSpace(raw.Matricule) == "" || raw.DeviceID == "" {
		return models.PunchEvent{}, false
	}
	at, err := c.parseTimestamp(raw.Timestamp)
	if err != nil {
		return models.PunchEvent{}, false
	}
	return models.PunchEvent{
		Matricule: strings.TrimSpace(raw.Matricule),
		DeviceID:  raw.DeviceID,
		At:        at,
	}, true
}

func (c *VendorClient) parseTimestamp(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(c.loc), nil
	}
	return time.ParseInLocation("2006-01-02 15:04:05", raw, c.loc)
}
