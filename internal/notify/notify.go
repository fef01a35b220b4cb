// Package notify pushes new leads to the business over a form-relay
// service (web3forms-compatible). Delivery is best effort: a failed
// notification never fails the appointment that triggered it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"estate-hub/internal/leads"
	"estate-hub/internal/metrics"
)

const channelFormRelay = "form_relay"

// Config holds form-relay client configuration.
type Config struct {
	Endpoint   string
	AccessKey  string
	AdminEmail string // fallback recipient when the dashboard has none
	Timeout    time.Duration
}

// Client submits lead notifications to the relay endpoint.
type Client struct {
	logger     *slog.Logger
	endpoint   string
	accessKey  string
	adminEmail string
	http       *http.Client
	metrics    *metrics.Metrics
}

// responseEnvelope mirrors the relay's standard response shape.
type responseEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// New creates a new form-relay client.
func New(cfg Config, logger *slog.Logger, metricRegistry *metrics.Metrics) *Client {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = "https://api.web3forms.com/submit"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		logger:     logger.With("component", "notify"),
		endpoint:   endpoint,
		accessKey:  cfg.AccessKey,
		adminEmail: cfg.AdminEmail,
		http:       &http.Client{Timeout: timeout},
		metrics:    metricRegistry,
	}
}

// Enabled reports whether an access key is configured.
func (c *Client) Enabled() bool {
	return c.accessKey != ""
}

// AdminEmail picks the notification recipient: the dashboard email when
// set, otherwise the configured default.
func (c *Client) AdminEmail(dashboardEmail string) string {
	if trimmed := strings.TrimSpace(dashboardEmail); trimmed != "" {
		return trimmed
	}
	return c.adminEmail
}

// SendAppointment submits the appointment as a multipart form to the
// relay. The itemTitle is the already-localized listing title, or empty
// for general enquiries. recipient is the resolved business email (see
// AdminEmail) and is attached as a cc so the relay copies it in.
func (c *Client) SendAppointment(ctx context.Context, appt leads.Appointment, itemTitle, recipient string) error {
	if !c.Enabled() {
		c.logger.Debug("form relay disabled, skipping notification", "appointment_id", appt.ID)
		return nil
	}

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	fields := map[string]string{
		"access_key": c.accessKey,
		"subject":    fmt.Sprintf("New Appointment Request #%d", appt.ID),
		"name":       appt.Customer.Name,
		"email":      appt.Customer.Email,
		"phone":      appt.Customer.Phone,
		"message":    formatDetails(appt, itemTitle),
	}
	if recipient != "" {
		fields["ccemail"] = recipient
	}
	for key, value := range fields {
		if err := form.WriteField(key, value); err != nil {
			return fmt.Errorf("write form field %s: %w", key, err)
		}
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return fmt.Errorf("build relay request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe("error", start)
		return fmt.Errorf("submit to relay: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.observe("error", start)
		return fmt.Errorf("read relay response: %w", err)
	}

	var envelope responseEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		c.observe("error", start)
		return fmt.Errorf("decode relay response: %w", err)
	}
	if !envelope.Success {
		c.observe("rejected", start)
		return fmt.Errorf("relay rejected submission: %s", envelope.Message)
	}

	c.observe("ok", start)
	c.logger.Info("lead notification delivered", "appointment_id", appt.ID)
	return nil
}

func (c *Client) observe(status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.NotifyRequests.WithLabelValues(channelFormRelay, status).Inc()
	c.metrics.NotifyLatency.WithLabelValues(channelFormRelay, status).Observe(time.Since(start).Seconds())
}

func formatDetails(appt leads.Appointment, itemTitle string) string {
	if itemTitle == "" {
		itemTitle = "N/A"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "New Appointment Request\n\n")
	fmt.Fprintf(&b, "Appointment ID: #%d\n\n", appt.ID)
	fmt.Fprintf(&b, "Customer Information:\n")
	fmt.Fprintf(&b, "- Name: %s\n", appt.Customer.Name)
	fmt.Fprintf(&b, "- Email: %s\n", appt.Customer.Email)
	fmt.Fprintf(&b, "- Phone: %s\n\n", appt.Customer.Phone)
	fmt.Fprintf(&b, "Appointment Details:\n")
	fmt.Fprintf(&b, "- Type: %s\n", appt.AppointmentType.Label())
	fmt.Fprintf(&b, "- Item: %s\n", itemTitle)
	fmt.Fprintf(&b, "- Date: %s\n", appt.Date)
	fmt.Fprintf(&b, "- Time: %s\n", appt.Time)
	if appt.Message != "" {
		fmt.Fprintf(&b, "\nMessage:\n%s\n", appt.Message)
	}
	return b.String()
}
