package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"estate-hub/internal/i18n"
	"estate-hub/internal/leads"
	"estate-hub/internal/store"
)

var (
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRegex = regexp.MustCompile(`^\+?[\d\s().-]{7,20}$`)
)

// listingView flattens a record for API responses: the raw stored
// fields, the id, and a resolved view of the translatable fields.
func listingView(rec store.Record, lang string) map[string]any {
	out := make(map[string]any, len(rec.Fields)+2)
	for k, v := range rec.Fields {
		out[k] = v
	}
	out["id"] = rec.ID
	out["localized"] = i18n.LocalizeItem(rec.Fields, lang)
	return out
}

func (s *Server) language(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); i18n.Supported(lang) {
		return lang
	}
	return i18n.Preference(r.Context(), s.deps.KV, s.logger)
}

func (s *Server) listingsCacheKey(c store.Collection, lang string) string {
	return fmt.Sprintf("listings:%s:%s", c, lang)
}

func (s *Server) invalidateListings(r *http.Request, c store.Collection) {
	keys := make([]string, 0, len(i18n.Languages))
	for _, lang := range i18n.Languages {
		keys = append(keys, s.listingsCacheKey(c, lang))
	}
	s.deps.Cache.Invalidate(r.Context(), keys...)
}

func (s *Server) handleListListings(w http.ResponseWriter, r *http.Request) {
	collection, err := store.ParseCollection(r.PathValue("collection"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown collection")
		return
	}
	lang := s.language(r)

	cacheKey := s.listingsCacheKey(collection, lang)
	var cached []map[string]any
	if hit, err := s.deps.Cache.GetJSON(r.Context(), cacheKey, &cached); err == nil && hit {
		writeJSON(w, http.StatusOK, map[string]any{"items": cached, "count": len(cached)})
		return
	}

	records, err := s.deps.Store.List(r.Context(), collection)
	if err != nil {
		s.logger.Error("failed listing records", "collection", collection, "error", err)
		writeError(w, http.StatusInternalServerError, "failed loading listings")
		return
	}

	items := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		items = append(items, listingView(rec, lang))
	}
	if err := s.deps.Cache.SetJSON(r.Context(), cacheKey, items, s.deps.CacheTTL); err != nil {
		s.logger.Warn("failed caching listings", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	collection, err := store.ParseCollection(r.PathValue("collection"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown collection")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	rec, found, err := s.deps.Store.GetByID(r.Context(), collection, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed loading listing")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "listing not found")
		return
	}
	writeJSON(w, http.StatusOK, listingView(rec, s.language(r)))
}

func (s *Server) handleGetLanguage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"language": i18n.Preference(r.Context(), s.deps.KV, s.logger),
	})
}

func (s *Server) handleSetLanguage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := i18n.SetPreference(r.Context(), s.deps.KV, req.Language); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"language": req.Language})
}

type appointmentRequest struct {
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	AppointmentType leads.Type `json:"appointmentType"`
	ItemID          int64      `json:"itemId"`
	Date            string     `json:"date"`
	Time            string     `json:"time"`
	Message         string     `json:"message"`
}

func (req *appointmentRequest) validate() error {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return errors.New("name is required")
	case !emailRegex.MatchString(req.Email):
		return errors.New("a valid email is required")
	case !phoneRegex.MatchString(req.Phone):
		return errors.New("a valid phone number is required")
	case !req.AppointmentType.Valid():
		return errors.New("unknown appointment type")
	case strings.TrimSpace(req.Date) == "":
		return errors.New("date is required")
	case strings.TrimSpace(req.Time) == "":
		return errors.New("time is required")
	}
	return nil
}

func collectionForType(t leads.Type) store.Collection {
	switch t {
	case leads.TypePropertySale:
		return store.CollectionSale
	case leads.TypePropertyRent:
		return store.CollectionRent
	default:
		return store.CollectionCars
	}
}

func (s *Server) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	appt := leads.Appointment{
		Customer: leads.Customer{
			Name:  strings.TrimSpace(req.Name),
			Email: strings.TrimSpace(req.Email),
			Phone: strings.TrimSpace(req.Phone),
		},
		AppointmentType: req.AppointmentType,
		ItemID:          req.ItemID,
		Date:            req.Date,
		Time:            req.Time,
		Message:         req.Message,
	}

	lang := s.language(r)
	itemTitle := ""
	if req.ItemID > 0 {
		rec, found, err := s.deps.Store.GetByID(r.Context(), collectionForType(req.AppointmentType), req.ItemID)
		if err == nil && found {
			if snapshot, err := json.Marshal(rec); err == nil {
				appt.Item = snapshot
			}
			itemTitle = i18n.Resolve(rec.Fields, "title", lang)
		}
	}

	created, err := s.deps.Leads.Create(r.Context(), appt)
	if err != nil {
		s.logger.Error("failed creating appointment", "error", err)
		writeError(w, http.StatusInternalServerError, "failed creating appointment")
		return
	}

	// Notifications are best effort: the lead is already captured.
	recipient := ""
	if creds, err := s.deps.Auth.Credentials(r.Context()); err == nil {
		recipient = s.deps.Notify.AdminEmail(creds.Email)
	} else {
		recipient = s.deps.Notify.AdminEmail("")
	}
	if err := s.deps.Notify.SendAppointment(r.Context(), created, itemTitle, recipient); err != nil {
		s.logger.Warn("lead notification failed", "appointment_id", created.ID, "error", err)
	}
	if s.deps.WhatsApp != nil {
		if err := s.deps.WhatsApp.NotifyAppointment(r.Context(), created, itemTitle); err != nil {
			s.logger.Warn("whatsapp notification failed", "appointment_id", created.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, created)
}
