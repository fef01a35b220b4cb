// Package leads is the appointment log: viewing requests captured from
// the contact form, kept as a JSON array in the persistent local store
// and managed from the dashboard.
package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"estate-hub/internal/kvstore"
	"estate-hub/internal/metrics"
)

// AppointmentsKey is the storage key holding the appointment array.
const AppointmentsKey = "real_state_appointments"

// ErrNotFound indicates the requested appointment id is absent.
var ErrNotFound = errors.New("appointment not found")

// Status is an appointment's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Type classifies what the appointment is about.
type Type string

const (
	TypePropertySale Type = "property-sale"
	TypePropertyRent Type = "property-rent"
	TypeCar          Type = "car"
)

// Valid reports whether t is a known appointment type.
func (t Type) Valid() bool {
	switch t {
	case TypePropertySale, TypePropertyRent, TypeCar:
		return true
	}
	return false
}

// Label returns the human-readable name used in notifications.
func (t Type) Label() string {
	switch t {
	case TypePropertySale:
		return "Property for Sale"
	case TypePropertyRent:
		return "Property for Rent"
	default:
		return "Car"
	}
}

// Customer is the person requesting the viewing.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Appointment is one captured lead.
type Appointment struct {
	ID              int64           `json:"id"`
	Customer        Customer        `json:"customer"`
	AppointmentType Type            `json:"appointmentType"`
	ItemID          int64           `json:"itemId,omitempty"`
	Item            json.RawMessage `json:"item,omitempty"`
	Date            string          `json:"date"`
	Time            string          `json:"time"`
	Message         string          `json:"message,omitempty"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Service manages the appointment array.
type Service struct {
	kv      kvstore.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewService creates the appointments service.
func NewService(kv kvstore.Store, logger *slog.Logger, metricRegistry *metrics.Metrics) *Service {
	return &Service{
		kv:      kv,
		logger:  logger.With("component", "leads"),
		metrics: metricRegistry,
	}
}

// All returns every appointment. A corrupt blob resets to an empty
// array rather than failing.
func (s *Service) All(ctx context.Context) ([]Appointment, error) {
	raw, ok, err := s.kv.Get(ctx, AppointmentsKey)
	if err != nil {
		return nil, fmt.Errorf("read appointments: %w", err)
	}
	if !ok {
		return []Appointment{}, nil
	}
	var appointments []Appointment
	if err := json.Unmarshal(raw, &appointments); err != nil {
		s.logger.Error("stored appointments unreadable, resetting", "error", err)
		if s.metrics != nil {
			s.metrics.Errors.WithLabelValues("leads").Inc()
		}
		empty := []Appointment{}
		if err := s.save(ctx, empty); err != nil {
			return nil, err
		}
		return empty, nil
	}
	if appointments == nil {
		appointments = []Appointment{}
	}
	return appointments, nil
}

// Create stores a new appointment under the next free id. Status
// defaults to pending and both timestamps are set to now.
func (s *Service) Create(ctx context.Context, appt Appointment) (Appointment, error) {
	appointments, err := s.All(ctx)
	if err != nil {
		return Appointment{}, err
	}

	appt.ID = nextID(appointments)
	if appt.Status == "" {
		appt.Status = StatusPending
	}
	now := time.Now().UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now

	appointments = append(appointments, appt)
	if err := s.save(ctx, appointments); err != nil {
		return Appointment{}, err
	}

	s.logger.Info("appointment created", "id", appt.ID, "type", appt.AppointmentType)
	if s.metrics != nil {
		s.metrics.AppointmentsCreated.WithLabelValues(string(appt.AppointmentType)).Inc()
	}
	return appt, nil
}

// GetByID returns the matching appointment, or found=false when absent.
func (s *Service) GetByID(ctx context.Context, id int64) (Appointment, bool, error) {
	appointments, err := s.All(ctx)
	if err != nil {
		return Appointment{}, false, err
	}
	for _, appt := range appointments {
		if appt.ID == id {
			return appt, true, nil
		}
	}
	return Appointment{}, false, nil
}

// UpdateStatus moves the appointment to status and bumps updatedAt.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status) (Appointment, error) {
	if !status.Valid() {
		return Appointment{}, fmt.Errorf("invalid status: %s", status)
	}
	appointments, err := s.All(ctx)
	if err != nil {
		return Appointment{}, err
	}
	for i := range appointments {
		if appointments[i].ID != id {
			continue
		}
		appointments[i].Status = status
		appointments[i].UpdatedAt = time.Now().UTC()
		if err := s.save(ctx, appointments); err != nil {
			return Appointment{}, err
		}
		s.logger.Info("appointment status updated", "id", id, "status", status)
		return appointments[i], nil
	}
	return Appointment{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
}

// Delete removes the appointment if present and reports whether
// anything was removed.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	appointments, err := s.All(ctx)
	if err != nil {
		return false, err
	}
	kept := appointments[:0]
	removed := false
	for _, appt := range appointments {
		if appt.ID == id {
			removed = true
			continue
		}
		kept = append(kept, appt)
	}
	if !removed {
		return false, nil
	}
	if err := s.save(ctx, kept); err != nil {
		return false, err
	}
	s.logger.Info("appointment deleted", "id", id)
	return true, nil
}

// ListByStatus returns appointments in the given state.
func (s *Service) ListByStatus(ctx context.Context, status Status) ([]Appointment, error) {
	appointments, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	out := []Appointment{}
	for _, appt := range appointments {
		if appt.Status == status {
			out = append(out, appt)
		}
	}
	return out, nil
}

func (s *Service) save(ctx context.Context, appointments []Appointment) error {
	blob, err := json.Marshal(appointments)
	if err != nil {
		return fmt.Errorf("encode appointments: %w", err)
	}
	if err := s.kv.Put(ctx, AppointmentsKey, blob); err != nil {
		return fmt.Errorf("persist appointments: %w", err)
	}
	return nil
}

func nextID(appointments []Appointment) int64 {
	var max int64
	for _, appt := range appointments {
		if appt.ID > max {
			max = appt.ID
		}
	}
	return max + 1
}
