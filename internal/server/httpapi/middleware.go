package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/taskapp/internal/common"
	"github.com/dmitrijs2005/taskapp/internal/server/models"
)

type sessionContextKey struct{}

type session struct {
	user  *models.User
	token string
}

func withSession(ctx context.Context, user *models.User, token string) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, &session{user: user, token: token})
}

// SessionFromContext returns the authenticated user and the raw bearer token
// attached by requireAuth.
func SessionFromContext(ctx context.Context) (*models.User, string, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*session)
	if !ok {
		return nil, "", false
	}
	return s.user, s.token, true
}

// requireAuth rejects the request with a uniform 401 unless it carries a
// valid, still-active bearer token.
func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get(common.AuthorizationHeaderName))
		if !ok {
			writeUnauthorized(w)
			return
		}

		user, err := s.auth.Authenticate(r.Context(), token)
		if err != nil {
			if !errors.Is(err, common.ErrorUnauthorized) {
				s.logger.Error(r.Context(), "session lookup failed", "error", err)
			}
			writeUnauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), user, token)))
	})
}

func bearerToken(value string) (string, bool) {
	if !strings.HasPrefix(value, common.BearerScheme) {
		return "", false
	}

	token := value[len(common.BearerScheme):]
	if token == "" {
		return "", false
	}

	return token, true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Info(r.Context(), "request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
