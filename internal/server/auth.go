package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const roleAdmin = "admin"

type ctxKey string

const adminCtxKey ctxKey = "admin"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.cfg.AdminUsername)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminPasswordHash), []byte(req.Password))
	if !userOK || passErr != nil || s.cfg.AdminUsername == "" {
		s.log.Warn("admin login rejected", "username", req.Username)
		s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	expires := time.Now().Add(s.cfg.JWTExpiration)
	token, err := s.issueToken(req.Username, expires)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"token":     token,
		"expiresAt": expires.UTC(),
	})
}

func (s *Server) issueToken(username string, expires time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":  username,
		"role": roleAdmin,
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiry(claims, expires)
	_, token, err := s.auth.Encode(claims)
	return token, err
}

// adminOnly accepts a verified token carrying the admin role.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authorization token required"})
			return
		}
		if role, _ := claims["role"].(string); role != roleAdmin {
			s.writeJSON(w, http.StatusForbidden, map[string]string{"error": "admin access required"})
			return
		}
		sub, _ := jwt.MapClaims(claims).GetSubject()
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminCtxKey, sub)))
	})
}

func adminFromContext(ctx context.Context) string {
	name, _ := ctx.Value(adminCtxKey).(string)
	return name
}
