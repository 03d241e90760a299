package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/taskapp/internal/common"
	"github.com/dmitrijs2005/taskapp/internal/server/models"
	"github.com/dmitrijs2005/taskapp/internal/server/services"
)

// multipartOverhead is the slack allowed on top of the avatar limit for the
// multipart envelope.
const multipartOverhead = 64 << 10

// userResponse is the only public shape of a user. It never carries the
// password hash, tokens or the avatar.
type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Age       int       `json:"age"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Age:       u.Age,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type authResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Age      int    `json:"age"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	user, token, err := s.users.Register(r.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Age:      req.Age,
	})
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	s.logger.Info(r.Context(), "Registered", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, authResponse{User: newUserResponse(user), Token: token})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	user, token, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{User: newUserResponse(user), Token: token})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	user, token, _ := SessionFromContext(r.Context())

	if err := s.users.Logout(r.Context(), user.ID, token); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) logoutAll(w http.ResponseWriter, r *http.Request) {
	user, _, _ := SessionFromContext(r.Context())

	if err := s.users.LogoutAll(r.Context(), user.ID); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	user, _, _ := SessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

func (s *Server) updateMe(w http.ResponseWriter, r *http.Request) {
	user, _, _ := SessionFromContext(r.Context())

	var fields map[string]json.RawMessage
	if err := decodeJSON(w, r, &fields); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	updated, err := s.users.UpdateProfile(r.Context(), user, fields)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(updated))
}

func (s *Server) deleteMe(w http.ResponseWriter, r *http.Request) {
	user, _, _ := SessionFromContext(r.Context())

	deleted, err := s.users.Delete(r.Context(), user)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(deleted))
}

func (s *Server) uploadAvatar(w http.ResponseWriter, r *http.Request) {
	user, _, _ := SessionFromContext(r.Context())
	tooLarge := common.NewValidationError(common.FieldError{Field: "avatar", Message: "File too large"})

	r.Body = http.MaxBytesReader(w, r.Body, s.avatarMaxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(s.avatarMaxBytes); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			s.writeError(r.Context(), w, tooLarge)
			return
		}
		s.writeError(r.Context(), w, common.NewValidationError(common.FieldError{Field: "avatar", Message: "multipart form expected"}))
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		s.writeError(r.Context(), w, common.NewValidationError(common.FieldError{Field: "avatar", Message: "avatar file is required"}))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.avatarMaxBytes+1))
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	if int64(len(data)) > s.avatarMaxBytes {
		s.writeError(r.Context(), w, tooLarge)
		return
	}

	if err := s.users.SetAvatar(r.Context(), user.ID, header.Filename, data); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) deleteAvatar(w http.ResponseWriter, r *http.Request) {
	user, _, _ := SessionFromContext(r.Context())

	if err := s.users.ClearAvatar(r.Context(), user.ID); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) getAvatar(w http.ResponseWriter, r *http.Request) {
	data, err := s.users.GetAvatar(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
