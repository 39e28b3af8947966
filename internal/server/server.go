package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"

	"github.com/digkill/writory/internal/apperr"
	"github.com/digkill/writory/internal/service"
)

type Config struct {
	Addr              string
	AdminUsername     string
	AdminPasswordHash string
	JWTSecret         string
	JWTExpiration     time.Duration
	MaxUploadBytes    int64
}

type Services struct {
	Tiers       *service.TierService
	Coupons     *service.CouponService
	Payments    *service.PaymentService
	Submissions *service.SubmissionService
	Reconcile   *service.ReconcileService
	Wall        *service.WallService
	Users       *service.UserService
	Contact     *service.ContactService
	Admin       *service.AdminService
}

type Server struct {
	cfg    Config
	log    *slog.Logger
	svc    Services
	auth   *jwtauth.JWTAuth
	router *chi.Mux
}

func New(cfg Config, log *slog.Logger, svc Services) *Server {
	if cfg.JWTExpiration <= 0 {
		cfg.JWTExpiration = 24 * time.Hour
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	s := &Server{
		cfg:    cfg,
		log:    log,
		svc:    svc,
		auth:   jwtauth.New("HS256", []byte(cfg.JWTSecret), nil),
		router: r,
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/tiers", s.handleTiers)
		api.Get("/free-tier-status", s.handleFreeTierStatus)
		api.Post("/validate-coupon", s.handleValidateCoupon)

		api.Post("/create-payment-intent", s.handleCreatePaymentIntent)
		api.Post("/create-checkout-session", s.handleCreateCheckout)
		api.Post("/verify-checkout-session", s.handleVerifyCheckout)
		api.Post("/create-paypal-order", s.handleCreatePayPalOrder)
		api.Post("/verify-paypal-payment", s.handleVerifyPayPal)

		api.Post("/submit-poem", s.handleSubmitPoem)
		api.Post("/submit-multiple-poems", s.handleSubmitMultiplePoems)
		api.Post("/submissions", s.handleSubmitJSON)
		api.Get("/submissions", s.handleMySubmissions)

		api.Route("/wall-posts", func(wr chi.Router) {
			wr.Get("/", s.handleListWall)
			wr.Post("/", s.handleCreateWallPost)
			wr.Get("/mine", s.handleMyWallPosts)
			wr.Delete("/{id}", s.handleDeleteWallPost)
			wr.Post("/{id}/like", s.handleLikeWallPost)
			wr.Delete("/{id}/like", s.handleUnlikeWallPost)
		})

		api.Post("/users/sync", s.handleSyncUser)
		api.Get("/users/me", s.handleMe)
		api.Put("/users/me", s.handleUpdateMe)

		api.Post("/contact", s.handleContact)
		api.Get("/winner-photos", s.handlePublicWinnerPhotos)
		api.Get("/contest-settings", s.handleContestSettings)

		api.Route("/admin", s.adminRoutes)
	})

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("http shutdown error", "err", err)
		}
	}()

	s.log.Info("http server listening", "addr", s.cfg.Addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status and a message safe to show the caller.
// Infrastructure failures are logged with the request id and hidden.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"err", err,
		)
	}
	s.writeJSON(w, status, map[string]string{"error": apperr.PublicMessage(err)})
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return false
	}
	return true
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func parseID(value string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(value), 10, 64)
}
