package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/luxsuv-reservations/pkg/middleware"
	"github.com/diagnosis/luxsuv-reservations/pkg/request"
	"github.com/diagnosis/luxsuv-reservations/pkg/response"
	"github.com/diagnosis/luxsuv-reservations/services/reservations/internal/domain"
	"github.com/diagnosis/luxsuv-reservations/services/reservations/internal/service"
)

type Handlers struct {
	reservations service.ReservationService
}

func New(reservations service.ReservationService) *Handlers {
	return &Handlers{reservations: reservations}
}

// Routes mounts the reservation endpoints behind session authentication.
func (h *Handlers) Routes(r chi.Router, verifier middleware.TokenVerifier) {
	r.Route("/reservations", func(r chi.Router) {
		r.Use(middleware.Authenticate(verifier))
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateReservationRequest
	if err := request.Decode(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	res, err := h.reservations.Create(r.Context(), middleware.UserID(r.Context()), &req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.reservations.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, list)
}

func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.reservations.Get(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, res)
}

func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateReservationRequest
	if err := request.Decode(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	res, err := h.reservations.Update(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"), &req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, res)
}

func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	res, err := h.reservations.Delete(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, res)
}
