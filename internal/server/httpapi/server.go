// Package httpapi exposes the user, session and task operations over HTTP/JSON.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/taskapp/internal/logging"
	"github.com/dmitrijs2005/taskapp/internal/server/models"
	"github.com/dmitrijs2005/taskapp/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

// Authenticator resolves a bearer token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// UserService is the account API consumed by the handlers.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, string, error)
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	Logout(ctx context.Context, userID, token string) error
	LogoutAll(ctx context.Context, userID string) error
	UpdateProfile(ctx context.Context, user *models.User, fields map[string]json.RawMessage) (*models.User, error)
	Delete(ctx context.Context, user *models.User) (*models.User, error)
	SetAvatar(ctx context.Context, userID, filename string, data []byte) error
	ClearAvatar(ctx context.Context, userID string) error
	GetAvatar(ctx context.Context, userID string) ([]byte, error)
}

// TaskService is the owner-scoped task API consumed by the handlers.
type TaskService interface {
	Create(ctx context.Context, ownerID string, in services.CreateTaskInput) (*models.Task, error)
	Get(ctx context.Context, ownerID, id string) (*models.Task, error)
	List(ctx context.Context, ownerID string, filter models.TaskFilter) ([]*models.Task, error)
	Update(ctx context.Context, ownerID, id string, fields map[string]json.RawMessage) (*models.Task, error)
	Delete(ctx context.Context, ownerID, id string) (*models.Task, error)
}

type Server struct {
	address        string
	logger         logging.Logger
	auth           Authenticator
	users          UserService
	tasks          TaskService
	avatarMaxBytes int64
}

func NewServer(address string, l logging.Logger, auth Authenticator, us UserService, ts TaskService, avatarMaxBytes int64) *Server {
	return &Server{
		address:        address,
		logger:         l.With("module", "http_server"),
		auth:           auth,
		users:          us,
		tasks:          ts,
		avatarMaxBytes: avatarMaxBytes,
	}
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.health)

	mux.HandleFunc("POST /users", s.register)
	mux.HandleFunc("POST /users/login", s.login)
	mux.Handle("POST /users/logout", s.requireAuth(s.logout))
	mux.Handle("POST /users/logoutAll", s.requireAuth(s.logoutAll))
	mux.Handle("GET /users/me", s.requireAuth(s.me))
	mux.Handle("PATCH /users/me", s.requireAuth(s.updateMe))
	mux.Handle("DELETE /users/me", s.requireAuth(s.deleteMe))
	mux.Handle("POST /users/me/avatar", s.requireAuth(s.uploadAvatar))
	mux.Handle("DELETE /users/me/avatar", s.requireAuth(s.deleteAvatar))
	mux.HandleFunc("GET /users/{id}/avatar", s.getAvatar)

	mux.Handle("POST /tasks", s.requireAuth(s.createTask))
	mux.Handle("GET /tasks", s.requireAuth(s.listTasks))
	mux.Handle("GET /tasks/{id}", s.requireAuth(s.getTask))
	mux.Handle("PATCH /tasks/{id}", s.requireAuth(s.updateTask))
	mux.Handle("DELETE /tasks/{id}", s.requireAuth(s.deleteTask))

	return s.logRequests(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-stopped
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}
