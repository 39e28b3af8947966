package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/digkill/writory/internal/models"
)

// requestLogger writes one structured line per request.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

const userEmailHeader = "x-user-email"

func identityEmail(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(userEmailHeader))
}

// currentUser resolves the x-user-email header. The header is trusted as sent;
// the web client sets it after its own sign-in.
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, err := s.svc.Users.Resolve(r.Context(), identityEmail(r))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return user, true
}
