package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/luxsuv-reservations/pkg/events"
	"github.com/diagnosis/luxsuv-reservations/pkg/logger"
	store "github.com/diagnosis/luxsuv-reservations/pkg/repository"
	"github.com/diagnosis/luxsuv-reservations/services/reservations/internal/domain"
	"github.com/diagnosis/luxsuv-reservations/services/reservations/internal/repository"
)

type ReservationService interface {
	Create(ctx context.Context, userID string, req *domain.CreateReservationRequest) (*domain.Reservation, error)
	List(ctx context.Context, userID string) ([]domain.Reservation, error)
	Get(ctx context.Context, userID, id string) (*domain.Reservation, error)
	Update(ctx context.Context, userID, id string, req *domain.UpdateReservationRequest) (*domain.Reservation, error)
	Delete(ctx context.Context, userID, id string) (*domain.Reservation, error)
}

type reservationService struct {
	repo   repository.ReservationRepository
	events events.Publisher
	now    func() time.Time
}

func NewReservationService(repo repository.ReservationRepository, publisher events.Publisher) ReservationService {
	return &reservationService{repo: repo, events: publisher, now: time.Now}
}

func (s *reservationService) Create(ctx context.Context, userID string, req *domain.CreateReservationRequest) (*domain.Reservation, error) {
	res := domain.Reservation{
		Timestamp: s.now().UTC(),
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		UserID:    userID,
		PlaceID:   req.PlaceID,
		InvoiceID: req.InvoiceID,
	}
	if err := res.CheckDates(); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, res)
	if err != nil {
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	s.publish(ctx, events.ReservationCreated, created, nil)
	return created, nil
}

func (s *reservationService) List(ctx context.Context, userID string) ([]domain.Reservation, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *reservationService) Get(ctx context.Context, userID, id string) (*domain.Reservation, error) {
	return s.repo.Get(ctx, userID, id)
}

// Update applies a partial change. When dates change, the resulting range
// is checked against the stored one and the write only lands if those stored
// dates are still current.
func (s *reservationService) Update(ctx context.Context, userID, id string, req *domain.UpdateReservationRequest) (*domain.Reservation, error) {
	var expect store.Filter
	if req.TouchesDates() {
		current, err := s.repo.Get(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		next := req.Apply(*current)
		if err := next.CheckDates(); err != nil {
			return nil, err
		}
		expect = current.DateGuard()
	}

	patch, err := store.PatchOf(req)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, userID, id, expect, patch)
	if errors.Is(err, store.ErrNotFound) && expect != nil {
		if _, getErr := s.repo.Get(ctx, userID, id); getErr == nil {
			return nil, domain.ErrDatesChanged
		}
	}
	if err != nil {
		return nil, err
	}

	if changes := req.Changes(); len(changes) > 0 {
		s.publish(ctx, events.ReservationUpdated, updated, changes)
	}
	return updated, nil
}

// Delete removes the reservation and returns it. A missing or foreign
// reservation is store.ErrNotFound.
func (s *reservationService) Delete(ctx context.Context, userID, id string) (*domain.Reservation, error) {
	deleted, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if deleted == nil {
		return nil, store.ErrNotFound
	}

	s.publish(ctx, events.ReservationDeleted, deleted, nil)
	return deleted, nil
}

func (s *reservationService) publish(ctx context.Context, subject string, res *domain.Reservation, changes []string) {
	ev := events.ReservationEvent{
		ReservationID: res.ID,
		UserID:        res.UserID,
		PlaceID:       res.PlaceID,
		InvoiceID:     res.InvoiceID,
		StartDate:     res.StartDate,
		EndDate:       res.EndDate,
		Changes:       changes,
		OccurredAt:    s.now().UTC(),
	}
	if err := s.events.Publish(ctx, subject, ev); err != nil {
		logger.ErrorContext(ctx, "Failed to publish reservation event", "error", err, "subject", subject, "reservation_id", res.ID)
	}
}
