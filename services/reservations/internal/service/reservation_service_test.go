package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/luxsuv-reservations/pkg/docstore/docstoretest"
	"github.com/diagnosis/luxsuv-reservations/pkg/events"
	store "github.com/diagnosis/luxsuv-reservations/pkg/repository"
	"github.com/diagnosis/luxsuv-reservations/pkg/request"
	"github.com/diagnosis/luxsuv-reservations/services/reservations/internal/domain"
	"github.com/diagnosis/luxsuv-reservations/services/reservations/internal/repository"
)

type capturePublisher struct {
	mu     sync.Mutex
	events map[string][]events.ReservationEvent
}

func (p *capturePublisher) Publish(_ context.Context, subject string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = map[string][]events.ReservationEvent{}
	}
	p.events[subject] = append(p.events[subject], data.(events.ReservationEvent))
	return nil
}

func (p *capturePublisher) Close() error { return nil }

var day = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

func newService(t *testing.T) (ReservationService, *capturePublisher) {
	t.Helper()
	pub := &capturePublisher{}
	repo := repository.NewReservationRepository(docstoretest.NewMemory(domain.ReservationsCollection))
	return NewReservationService(repo, pub), pub
}

func createReq() *domain.CreateReservationRequest {
	return &domain.CreateReservationRequest{
		StartDate: day,
		EndDate:   day.Add(48 * time.Hour),
		PlaceID:   "place-1",
		InvoiceID: "inv-1",
	}
}

func TestCreate_SetsOwnerAndTimestamp(t *testing.T) {
	svc, pub := newService(t)

	res, err := svc.Create(context.Background(), "user-1", createReq())

	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "user-1", res.UserID)
	assert.False(t, res.Timestamp.IsZero())
	assert.True(t, res.StartDate.Equal(day))
	require.Len(t, pub.events[events.ReservationCreated], 1)
	assert.Equal(t, res.ID, pub.events[events.ReservationCreated][0].ReservationID)
}

func TestCreate_RejectsInvertedRange(t *testing.T) {
	svc, _ := newService(t)
	req := createReq()
	req.EndDate = day.Add(-time.Hour)

	_, err := svc.Create(context.Background(), "user-1", req)

	var verr *request.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestListAndGet_AreScopedToOwner(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	mine, err := svc.Create(ctx, "user-1", createReq())
	require.NoError(t, err)
	_, err = svc.Create(ctx, "user-2", createReq())
	require.NoError(t, err)

	list, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	got, err := svc.Get(ctx, "user-1", mine.ID)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, got.ID)

	_, err = svc.Get(ctx, "user-2", mine.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	empty, err := svc.List(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUpdate(t *testing.T) {
	svc, pub := newService(t)
	ctx := context.Background()
	res, err := svc.Create(ctx, "user-1", createReq())
	require.NoError(t, err)

	place := "place-2"
	updated, err := svc.Update(ctx, "user-1", res.ID, &domain.UpdateReservationRequest{PlaceID: &place})
	require.NoError(t, err)
	assert.Equal(t, "place-2", updated.PlaceID)
	assert.Equal(t, "inv-1", updated.InvoiceID)
	assert.Equal(t, res.UserID, updated.UserID)
	require.Len(t, pub.events[events.ReservationUpdated], 1)
	assert.Equal(t, []string{"placeId"}, pub.events[events.ReservationUpdated][0].Changes)

	got, err := svc.Get(ctx, "user-1", res.ID)
	require.NoError(t, err)
	assert.Equal(t, "place-2", got.PlaceID)
}

func TestUpdate_ChecksMergedDates(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	res, err := svc.Create(ctx, "user-1", createReq())
	require.NoError(t, err)

	before := day.Add(-24 * time.Hour)
	_, err = svc.Update(ctx, "user-1", res.ID, &domain.UpdateReservationRequest{EndDate: &before})

	var verr *request.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestUpdate_ForeignReservationNotFound(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	res, err := svc.Create(ctx, "user-1", createReq())
	require.NoError(t, err)

	place := "x"
	_, err = svc.Update(ctx, "user-2", res.ID, &domain.UpdateReservationRequest{PlaceID: &place})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDelete(t *testing.T) {
	svc, pub := newService(t)
	ctx := context.Background()
	res, err := svc.Create(ctx, "user-1", createReq())
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, "user-1", res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, deleted.ID)
	assert.Len(t, pub.events[events.ReservationDeleted], 1)

	_, err = svc.Delete(ctx, "user-1", res.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// interleaved runs hook once, right after the first Get, to model a
// concurrent writer landing between the range check and the write.
type interleaved struct {
	repository.ReservationRepository
	hook func()
}

func (r *interleaved) Get(ctx context.Context, userID, id string) (*domain.Reservation, error) {
	res, err := r.ReservationRepository.Get(ctx, userID, id)
	if r.hook != nil {
		hook := r.hook
		r.hook = nil
		hook()
	}
	return res, err
}

func TestUpdate_ConcurrentDateChangesCannotInvertRange(t *testing.T) {
	ctx := context.Background()
	base := repository.NewReservationRepository(docstoretest.NewMemory(domain.ReservationsCollection))
	repo := &interleaved{ReservationRepository: base}
	svc := NewReservationService(repo, &capturePublisher{})

	res, err := svc.Create(ctx, "user-1", createReq())
	require.NoError(t, err)

	// Another request shortens the stay to end 12h after the start.
	earlyEnd := day.Add(12 * time.Hour)
	repo.hook = func() {
		_, err := NewReservationService(base, events.Noop{}).Update(ctx, "user-1", res.ID,
			&domain.UpdateReservationRequest{EndDate: &earlyEnd})
		require.NoError(t, err)
	}

	// This one moves the start to 24h, valid against the end it read.
	lateStart := day.Add(24 * time.Hour)
	_, err = svc.Update(ctx, "user-1", res.ID, &domain.UpdateReservationRequest{StartDate: &lateStart})

	assert.ErrorIs(t, err, domain.ErrDatesChanged)
	assert.ErrorIs(t, err, store.ErrConstraintViolation)

	stored, err := base.Get(ctx, "user-1", res.ID)
	require.NoError(t, err)
	assert.True(t, stored.StartDate.Equal(day))
	assert.True(t, stored.EndDate.Equal(earlyEnd))
	assert.False(t, stored.EndDate.Before(stored.StartDate))
}

func TestUpdate_DatesApplyWhenUnchangedMeanwhile(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	res, err := svc.Create(ctx, "user-1", createReq())
	require.NoError(t, err)

	start := day.Add(24 * time.Hour)
	updated, err := svc.Update(ctx, "user-1", res.ID, &domain.UpdateReservationRequest{StartDate: &start})

	require.NoError(t, err)
	assert.True(t, updated.StartDate.Equal(start))
}
