package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"estate-hub/internal/auth"
	"estate-hub/internal/leads"
	"estate-hub/internal/store"
)

const persistWarning = "change kept in memory but could not be saved to the local store"

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.deps.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredential) {
			writeError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		s.logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"username":  session.Username,
		"loginTime": session.LoginTime,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Auth.Logout(r.Context()); err != nil {
		s.logger.Error("logout failed", "error", err)
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:   sessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || !s.deps.Auth.Verify(r.Context(), cookie.Value) {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	session := s.deps.Auth.CurrentUser(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"username":      session.Username,
		"loginTime":     session.LoginTime,
	})
}

// withPersistWarning attaches the lossy-write warning when the last
// dataset write failed.
func (s *Server) withPersistWarning(resp map[string]any) map[string]any {
	if err := s.deps.Store.PersistError(); err != nil {
		resp["warning"] = persistWarning
	}
	return resp
}

func (s *Server) handleAddListing(w http.ResponseWriter, r *http.Request) {
	collection, err := store.ParseCollection(r.PathValue("collection"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown collection")
		return
	}
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := s.deps.Store.Add(r.Context(), collection, fields)
	if err != nil {
		s.logger.Error("failed adding listing", "collection", collection, "error", err)
		writeError(w, http.StatusInternalServerError, "failed adding listing")
		return
	}
	s.invalidateListings(r, collection)
	writeJSON(w, http.StatusCreated, s.withPersistWarning(map[string]any{
		"item": listingView(rec, s.language(r)),
	}))
}

func (s *Server) handleUpdateListing(w http.ResponseWriter, r *http.Request) {
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
	var patch map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := s.deps.Store.Update(r.Context(), collection, id, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "listing not found")
			return
		}
		s.logger.Error("failed updating listing", "collection", collection, "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed updating listing")
		return
	}
	s.invalidateListings(r, collection)
	writeJSON(w, http.StatusOK, s.withPersistWarning(map[string]any{
		"item": listingView(rec, s.language(r)),
	}))
}

func (s *Server) handleDeleteListing(w http.ResponseWriter, r *http.Request) {
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

	if err := s.deps.Store.Delete(r.Context(), collection, id); err != nil {
		s.logger.Error("failed deleting listing", "collection", collection, "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed deleting listing")
		return
	}
	s.invalidateListings(r, collection)
	writeJSON(w, http.StatusOK, s.withPersistWarning(map[string]any{"status": "deleted"}))
}

func (s *Server) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	statusFilter := strings.TrimSpace(r.URL.Query().Get("status"))

	var (
		appointments []leads.Appointment
		err          error
	)
	if statusFilter != "" {
		status := leads.Status(statusFilter)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
		appointments, err = s.deps.Leads.ListByStatus(r.Context(), status)
	} else {
		appointments, err = s.deps.Leads.All(r.Context())
	}
	if err != nil {
		s.logger.Error("failed listing appointments", "error", err)
		writeError(w, http.StatusInternalServerError, "failed loading appointments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": appointments,
		"count": len(appointments),
	})
}

func (s *Server) handleUpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		Status leads.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	appt, err := s.deps.Leads.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		if errors.Is(err, leads.ErrNotFound) {
			writeError(w, http.StatusNotFound, "appointment not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (s *Server) handleDeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	removed, err := s.deps.Leads.Delete(r.Context(), id)
	if err != nil {
		s.logger.Error("failed deleting appointment", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed deleting appointment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": removed})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.NewPassword) == "" {
		writeError(w, http.StatusBadRequest, "new password is required")
		return
	}

	if err := s.deps.Auth.ChangePassword(r.Context(), req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidCredential) {
			writeError(w, http.StatusForbidden, "current password does not match")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed updating password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string  `json:"currentPassword"`
		Username        string  `json:"username"`
		Email           *string `json:"email"`
		Phone           *string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username != "" {
		if err := s.deps.Auth.ChangeUsername(r.Context(), req.CurrentPassword, req.Username); err != nil {
			if errors.Is(err, auth.ErrInvalidCredential) {
				writeError(w, http.StatusForbidden, "current password does not match")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed updating username")
			return
		}
	}

	// Contact details change only when the request carries them, so a
	// username-only update leaves the stored email and phone alone.
	if req.Email != nil || req.Phone != nil {
		creds, err := s.deps.Auth.Credentials(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed updating profile")
			return
		}
		email, phone := creds.Email, creds.Phone
		if req.Email != nil {
			email = *req.Email
		}
		if req.Phone != nil {
			phone = *req.Phone
		}
		if err := s.deps.Auth.UpdateEmailAndPhone(r.Context(), req.CurrentPassword, email, phone); err != nil {
			if errors.Is(err, auth.ErrInvalidCredential) {
				writeError(w, http.StatusForbidden, "current password does not match")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed updating profile")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "profile updated"})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.NewPassword) == "" {
		writeError(w, http.StatusBadRequest, "new password is required")
		return
	}

	if err := s.deps.Auth.ResetPassword(r.Context(), req.Email, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidCredential) {
			writeError(w, http.StatusForbidden, "email not recognised")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed resetting password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password reset"})
}
