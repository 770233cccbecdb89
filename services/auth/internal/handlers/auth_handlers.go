package handlers

import (
	"errors"
	"net/http"

	"github.com/diagnosis/luxsuv-reservations/pkg/auth"
	"github.com/diagnosis/luxsuv-reservations/pkg/middleware"
	"github.com/diagnosis/luxsuv-reservations/pkg/request"
	"github.com/diagnosis/luxsuv-reservations/pkg/response"
	"github.com/diagnosis/luxsuv-reservations/services/auth/internal/domain"
)

// Register handles user registration
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := request.Decode(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	user, err := h.users.Register(r.Context(), &req)
	if errors.Is(err, domain.ErrEmailTaken) {
		response.Conflict(w, "Email already registered")
		return
	}
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, user.ToUserInfo())
}

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		response.Error(w, r, err)
		return
	}

	infos := make([]*domain.UserInfo, len(users))
	for i := range users {
		infos[i] = users[i].ToUserInfo()
	}
	response.WriteJSON(w, http.StatusOK, infos)
}

// Login verifies credentials and delivers the session in the
// Authentication cookie. The body carries the user, never the token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := request.Decode(r, &req); err != nil {
		var verr *request.ValidationError
		if errors.As(err, &verr) {
			response.Error(w, r, auth.ErrUnauthorizedCredentials)
			return
		}
		response.Error(w, r, err)
		return
	}

	result, err := h.auth.Login(r.Context(), &req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	http.SetCookie(w, auth.SessionCookie(result.Session, h.cookies))
	response.WriteJSON(w, http.StatusOK, result.User.ToUserInfo())
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.ExpiredCookie(h.cookies))
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the account behind the presented session.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, user.ToUserInfo())
}
