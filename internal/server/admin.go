package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"

	"github.com/digkill/writory/internal/apperr"
	"github.com/digkill/writory/internal/models"
	"github.com/digkill/writory/internal/repository"
	"github.com/digkill/writory/internal/service"
)

func (s *Server) adminRoutes(r chi.Router) {
	r.Post("/login", s.handleAdminLogin)
	r.Group(func(protected chi.Router) {
		protected.Use(jwtauth.Verifier(s.auth))
		protected.Use(s.adminOnly)

		protected.Get("/submissions", s.handleAdminSubmissions)
		protected.Post("/update-winner/{id}", s.handleUpdateWinner)
		protected.Post("/upload-csv", s.handleUploadCSV)
		protected.Get("/export-csv", s.handleExportCSV)

		protected.Route("/coupons", func(r chi.Router) {
			r.Get("/", s.handleListCoupons)
			r.Post("/", s.handleCreateCoupon)
			r.Put("/{id}", s.handleUpdateCoupon)
			r.Delete("/{id}", s.handleDeleteCoupon)
		})
		protected.Route("/wall-posts", func(r chi.Router) {
			r.Get("/", s.handleAdminWallPosts)
			r.Put("/{id}/status", s.handleWallStatus)
		})
		protected.Route("/winner-photos", func(r chi.Router) {
			r.Get("/", s.handleAdminWinnerPhotos)
			r.Post("/", s.handleCreateWinnerPhoto)
			r.Delete("/{id}", s.handleDeleteWinnerPhoto)
		})
		protected.Get("/settings/{scope}", s.handleGetSettings)
		protected.Put("/settings/{scope}/{key}", s.handlePutSetting)
	})
}

func submissionFilter(r *http.Request) (repository.SubmissionFilter, error) {
	q := r.URL.Query()
	filter := repository.SubmissionFilter{
		Email:  strings.TrimSpace(q.Get("email")),
		Status: strings.TrimSpace(q.Get("status")),
		Tier:   strings.TrimSpace(q.Get("tier")),
		Month:  strings.TrimSpace(q.Get("month")),
	}
	if raw := strings.TrimSpace(q.Get("winner")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, fmt.Errorf("winner must be true or false: %w", apperr.ErrValidation)
		}
		filter.Winner = &v
	}
	return filter, nil
}

func (s *Server) handleAdminSubmissions(w http.ResponseWriter, r *http.Request) {
	filter, err := submissionFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.svc.Submissions.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Submission{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUpdateWinner(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req service.WinnerInput
	if !s.decodeJSON(w, r, &req) {
		return
	}
	sub, err := s.svc.Admin.UpdateWinner(r.Context(), id, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("winner updated", "submission_id", id, "is_winner", sub.IsWinner, "admin", adminFromContext(r.Context()))
	s.writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleUploadCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, fmt.Errorf("csv file is required: %w", apperr.ErrValidation))
		return
	}
	defer file.Close()

	res, err := s.svc.Reconcile.Import(r.Context(), file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("score sheet imported",
		"total", res.Total,
		"updated", res.SuccessCount,
		"errors", res.ErrorCount,
		"admin", adminFromContext(r.Context()),
	)
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	filter, err := submissionFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	name := fmt.Sprintf("submissions-%s.csv", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := s.svc.Reconcile.Export(r.Context(), w, filter); err != nil {
		s.log.Error("export csv", "err", err)
	}
}

func (s *Server) handleListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := s.svc.Coupons.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if coupons == nil {
		coupons = []models.Coupon{}
	}
	s.writeJSON(w, http.StatusOK, coupons)
}

func (s *Server) handleCreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req service.CouponInput
	if !s.decodeJSON(w, r, &req) {
		return
	}
	c, err := s.svc.Coupons.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req service.CouponInput
	if !s.decodeJSON(w, r, &req) {
		return
	}
	c, err := s.svc.Coupons.Update(r.Context(), id, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Coupons.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdminWallPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.svc.Wall.List(r.Context(), models.WallStatus(r.URL.Query().Get("status")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nonNilPosts(posts))
}

func (s *Server) handleWallStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Status models.WallStatus `json:"status"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	post, err := s.svc.Wall.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleAdminWinnerPhotos(w http.ResponseWriter, r *http.Request) {
	s.handlePublicWinnerPhotos(w, r)
}

func (s *Server) handleCreateWinnerPhoto(w http.ResponseWriter, r *http.Request) {
	var req models.WinnerPhoto
	if !s.decodeJSON(w, r, &req) {
		return
	}
	photo, err := s.svc.Admin.AddWinnerPhoto(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, photo)
}

func (s *Server) handleDeleteWinnerPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Admin.DeleteWinnerPhoto(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	values, err := s.svc.Admin.Settings(r.Context(), chi.URLParam(r, "scope"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, values)
}

func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value string `json:"value"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	scope, key := chi.URLParam(r, "scope"), chi.URLParam(r, "key")
	if err := s.svc.Admin.PutSetting(r.Context(), scope, key, req.Value); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"scope": scope, "key": key, "value": req.Value})
}
