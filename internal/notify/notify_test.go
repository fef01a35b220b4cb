package notify

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"estate-hub/internal/leads"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleAppointment() leads.Appointment {
	return leads.Appointment{
		ID: 7,
		Customer: leads.Customer{
			Name:  "Mert Kaya",
			Email: "mert@example.com",
			Phone: "+90 555 987 65 43",
		},
		AppointmentType: leads.TypeCar,
		Date:            "2026-09-20",
		Time:            "11:00",
		Message:         "Can I test drive it?",
	}
}

func TestSendAppointmentSubmitsForm(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		got = map[string]string{}
		for key, values := range r.MultipartForm.Value {
			got[key] = values[0]
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"message":"ok"}`))
	}))
	defer server.Close()

	c := New(Config{Endpoint: server.URL, AccessKey: "key-123"}, testLogger(), nil)
	if err := c.SendAppointment(context.Background(), sampleAppointment(), "Hyundai Tucson 2021", "owner@example.com"); err != nil {
		t.Fatalf("send: %v", err)
	}

	if got["access_key"] != "key-123" {
		t.Fatalf("access_key: got %q", got["access_key"])
	}
	if got["ccemail"] != "owner@example.com" {
		t.Fatalf("ccemail: got %q", got["ccemail"])
	}
	if got["subject"] != "New Appointment Request #7" {
		t.Fatalf("subject: got %q", got["subject"])
	}
	if got["name"] != "Mert Kaya" || got["email"] != "mert@example.com" {
		t.Fatalf("customer fields: %+v", got)
	}
	message := got["message"]
	for _, want := range []string{"Appointment ID: #7", "- Type: Car", "- Item: Hyundai Tucson 2021", "- Date: 2026-09-20", "Can I test drive it?"} {
		if !strings.Contains(message, want) {
			t.Fatalf("message missing %q:\n%s", want, message)
		}
	}
}

func TestSendAppointmentRejectedEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false,"message":"invalid access key"}`))
	}))
	defer server.Close()

	c := New(Config{Endpoint: server.URL, AccessKey: "bad"}, testLogger(), nil)
	err := c.SendAppointment(context.Background(), sampleAppointment(), "", "")
	if err == nil || !strings.Contains(err.Error(), "invalid access key") {
		t.Fatalf("expected rejection error, got %v", err)
	}
}

func TestSendAppointmentDisabledIsNoop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("relay must not be called without an access key")
	}))
	defer server.Close()

	c := New(Config{Endpoint: server.URL}, testLogger(), nil)
	if c.Enabled() {
		t.Fatal("client must be disabled without an access key")
	}
	if err := c.SendAppointment(context.Background(), sampleAppointment(), "", "owner@example.com"); err != nil {
		t.Fatalf("disabled send: %v", err)
	}
}

func TestSendAppointmentUnlistedItem(t *testing.T) {
	var message string
	var ccValues []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		message = r.MultipartForm.Value["message"][0]
		ccValues = r.MultipartForm.Value["ccemail"]
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	c := New(Config{Endpoint: server.URL, AccessKey: "key"}, testLogger(), nil)
	if err := c.SendAppointment(context.Background(), sampleAppointment(), "", ""); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(message, "- Item: N/A") {
		t.Fatalf("expected N/A item, got:\n%s", message)
	}
	if len(ccValues) != 0 {
		t.Fatalf("empty recipient must not add a cc field, got %v", ccValues)
	}
}

func TestAdminEmailPrefersDashboardValue(t *testing.T) {
	c := New(Config{AccessKey: "key", AdminEmail: "fallback@example.com"}, testLogger(), nil)
	if got := c.AdminEmail("  owner@example.com "); got != "owner@example.com" {
		t.Fatalf("got %q", got)
	}
	if got := c.AdminEmail(""); got != "fallback@example.com" {
		t.Fatalf("got %q", got)
	}
}
