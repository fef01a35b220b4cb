// Package wa pushes lead alerts to the business's WhatsApp number.
// Outbound only: the service never processes inbound messages. The
// client needs a one-time QR pairing, after which the device store keeps
// the session across restarts.
package wa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"estate-hub/internal/leads"
	"estate-hub/internal/metrics"

	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
	_ "modernc.org/sqlite"
)

const channelWhatsApp = "whatsapp"

// Config holds configuration to initialise the WhatsApp client.
type Config struct {
	StorePath string
	LogLevel  string
	AdminJID  string // business number receiving the alerts
	Metrics   *metrics.Metrics
}

// Client wraps the WhatsMeow client for outbound lead alerts.
type Client struct {
	client  *whatsmeow.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
	admin   types.JID
}

// New creates a new WhatsApp client instance backed by an SQLite store.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.StorePath == "" {
		return nil, errors.New("store path is required")
	}
	if cfg.AdminJID == "" {
		return nil, errors.New("admin jid is required")
	}

	admin, err := types.ParseJID(cfg.AdminJID)
	if err != nil {
		return nil, fmt.Errorf("parse admin jid: %w", err)
	}

	if err := ensureDir(filepath.Dir(cfg.StorePath)); err != nil {
		return nil, fmt.Errorf("ensure store dir: %w", err)
	}

	storeLogger := waLog.Stdout("whatsmeow/sqlstore", cfg.LogLevel, true)
	container, err := sqlstore.New(ctx, "sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout=10000&_pragma=foreign_keys(ON)", cfg.StorePath), storeLogger)
	if err != nil {
		return nil, fmt.Errorf("create sqlstore: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}

	waLogger := waLog.Stdout("whatsmeow/client", cfg.LogLevel, true)
	client := whatsmeow.NewClient(deviceStore, waLogger)

	wc := &Client{
		client:  client,
		logger:  logger.With("component", "wa"),
		metrics: cfg.Metrics,
		admin:   admin,
	}
	client.AddEventHandler(wc.handleEvent)

	return wc, nil
}

// Start connects the client and handles the QR pairing flow when the
// device has not been linked yet.
func (c *Client) Start(ctx context.Context) error {
	if c.client.Store.ID == nil {
		c.logger.Info("pairing required, waiting for QR scan")
		qrChan, err := c.client.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("get qr channel: %w", err)
		}

		go func() {
			for evt := range qrChan {
				if evt.Event == "code" {
					c.logger.Info("scan the QR code with WhatsApp", "qr", evt.Code)
				} else {
					c.logger.Info("pairing event received", "event", evt.Event)
				}
			}
		}()
	}

	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("connect wa client: %w", err)
	}

	c.logger.Info("whatsapp client connected")
	return nil
}

// Close disconnects the WhatsApp client.
func (c *Client) Close() {
	if c != nil && c.client != nil {
		c.client.Disconnect()
	}
}

func (c *Client) handleEvent(evt interface{}) {
	switch evt.(type) {
	case *events.Connected:
		c.logger.Info("device connected")
	case *events.Disconnected:
		c.logger.Warn("device disconnected")
	}
}

func ensureDir(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}

// NotifyAppointment sends a lead alert for the appointment to the
// configured business number. itemTitle is the localized listing title.
func (c *Client) NotifyAppointment(ctx context.Context, appt leads.Appointment, itemTitle string) error {
	if c == nil {
		return nil
	}
	if itemTitle == "" {
		itemTitle = "N/A"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "New appointment #%d (%s)\n", appt.ID, appt.AppointmentType.Label())
	fmt.Fprintf(&b, "%s at %s\n", appt.Date, appt.Time)
	fmt.Fprintf(&b, "Item: %s\n", itemTitle)
	fmt.Fprintf(&b, "Customer: %s, %s, %s", appt.Customer.Name, appt.Customer.Phone, appt.Customer.Email)
	return c.sendText(ctx, c.admin, b.String())
}

func (c *Client) sendText(ctx context.Context, to types.JID, text string) error {
	message := &waProto.Message{
		Conversation: proto.String(text),
	}
	_, err := c.client.SendMessage(ctx, to, message)
	if err != nil {
		if c.metrics != nil {
			c.metrics.NotifyRequests.WithLabelValues(channelWhatsApp, "error").Inc()
		}
		return fmt.Errorf("send text: %w", err)
	}
	if c.metrics != nil {
		c.metrics.NotifyRequests.WithLabelValues(channelWhatsApp, "ok").Inc()
	}
	return nil
}
