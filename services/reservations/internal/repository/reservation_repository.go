package repository

import (
	"context"

	"github.com/diagnosis/luxsuv-reservations/pkg/docstore"
	store "github.com/diagnosis/luxsuv-reservations/pkg/repository"
	"github.com/diagnosis/luxsuv-reservations/services/reservations/internal/domain"
)

// ReservationRepository scopes every lookup to the owning user, so a
// reservation of someone else behaves as if it did not exist.
type ReservationRepository interface {
	Create(ctx context.Context, res domain.Reservation) (*domain.Reservation, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Reservation, error)
	Get(ctx context.Context, userID, id string) (*domain.Reservation, error)
	Update(ctx context.Context, userID, id string, expect store.Filter, patch store.Patch) (*domain.Reservation, error)
	Delete(ctx context.Context, userID, id string) (*domain.Reservation, error)
}

type reservationRepository struct {
	docs *store.Repository[domain.Reservation, *domain.Reservation]
}

func NewReservationRepository(coll docstore.Collection, opts ...store.Option) ReservationRepository {
	return &reservationRepository{docs: store.New[domain.Reservation](coll, opts...)}
}

func owned(userID, id string) store.Filter {
	f := store.ByID(id)
	f["userId"] = userID
	return f
}

func (r *reservationRepository) Create(ctx context.Context, res domain.Reservation) (*domain.Reservation, error) {
	return r.docs.Create(ctx, res)
}

func (r *reservationRepository) ListByUser(ctx context.Context, userID string) ([]domain.Reservation, error) {
	return r.docs.Find(ctx, store.Filter{"userId": userID})
}

func (r *reservationRepository) Get(ctx context.Context, userID, id string) (*domain.Reservation, error) {
	return r.docs.FindOne(ctx, owned(userID, id))
}

// Update patches the reservation only while its stored fields still match
// expect. A nil expect applies the patch unconditionally.
func (r *reservationRepository) Update(ctx context.Context, userID, id string, expect store.Filter, patch store.Patch) (*domain.Reservation, error) {
	filter := owned(userID, id)
	for k, v := range expect {
		filter[k] = v
	}
	return r.docs.FindOneAndUpdate(ctx, filter, patch)
}

// Delete returns nil when nothing matched.
func (r *reservationRepository) Delete(ctx context.Context, userID, id string) (*domain.Reservation, error) {
	return r.docs.FindOneAndDelete(ctx, owned(userID, id))
}
