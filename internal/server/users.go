package server

import (
	"net/http"

	"github.com/digkill/writory/internal/models"
	"github.com/digkill/writory/internal/service"
)

func (s *Server) handleSyncUser(w http.ResponseWriter, r *http.Request) {
	var req service.ProfileInput
	if !s.decodeJSON(w, r, &req) {
		return
	}
	user, err := s.svc.Users.Sync(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req service.ProfileInput
	if !s.decodeJSON(w, r, &req) {
		return
	}
	user, err := s.svc.Users.UpdateProfile(r.Context(), identityEmail(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var req models.ContactMessage
	if !s.decodeJSON(w, r, &req) {
		return
	}
	msg, err := s.svc.Contact.Submit(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": msg.ID})
}

func (s *Server) handlePublicWinnerPhotos(w http.ResponseWriter, r *http.Request) {
	photos, err := s.svc.Admin.WinnerPhotos(r.Context(), r.URL.Query().Get("month"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, photos)
}

func (s *Server) handleContestSettings(w http.ResponseWriter, r *http.Request) {
	values, err := s.svc.Admin.Settings(r.Context(), service.ScopeContest)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	values["currentMonth"] = s.svc.Tiers.CurrentMonth()
	s.writeJSON(w, http.StatusOK, values)
}
