package server

import (
	"net/http"

	"github.com/digkill/writory/internal/service"
)

func (s *Server) handleTiers(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, service.Tiers())
}

func (s *Server) handleFreeTierStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	status, err := s.svc.Tiers.CheckFreeTier(r.Context(), user.UID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

// handleValidateCoupon answers 200 with valid=false for a rejected code so the
// form can show the reason inline.
func (s *Server) handleValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req service.CouponCheck
	if !s.decodeJSON(w, r, &req) {
		return
	}
	res, err := s.svc.Coupons.Validate(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req service.PaymentRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	intent, err := s.svc.Payments.CreateCardIntent(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"clientSecret":    intent.ClientSecret,
		"paymentIntentId": intent.ID,
	})
}

func (s *Server) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req service.PaymentRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	sess, err := s.svc.Payments.CreateCheckout(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"sessionId": sess.ID, "url": sess.URL})
}

func (s *Server) handleVerifyCheckout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	res, err := s.svc.Payments.VerifyCheckout(r.Context(), req.SessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCreatePayPalOrder(w http.ResponseWriter, r *http.Request) {
	var req service.PaymentRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	res, err := s.svc.Payments.CreatePayPalOrder(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleVerifyPayPal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID string `json:"orderId"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	res, err := s.svc.Payments.VerifyPayPal(r.Context(), req.OrderID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}
