package domain

import (
	"fmt"
	"time"

	"github.com/diagnosis/luxsuv-reservations/pkg/repository"
	"github.com/diagnosis/luxsuv-reservations/pkg/request"
)

const ReservationsCollection = "reservations"

// ErrDatesChanged is returned when the stored dates changed between the range
// check and the write. It is reported as a conflict.
var ErrDatesChanged = fmt.Errorf("reservation dates changed concurrently: %w", repository.ErrConstraintViolation)

// Reservation belongs to the user whose session created it. UserID and
// Timestamp are set by the server.
type Reservation struct {
	repository.Base
	Timestamp time.Time `json:"timestamp"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	UserID    string    `json:"userId"`
	PlaceID   string    `json:"placeId"`
	InvoiceID string    `json:"invoiceId"`
}

type CreateReservationRequest struct {
	StartDate time.Time `json:"startDate" validate:"required"`
	EndDate   time.Time `json:"endDate" validate:"required,gtefield=StartDate"`
	PlaceID   string    `json:"placeId" validate:"required"`
	InvoiceID string    `json:"invoiceId" validate:"required"`
}

// UpdateReservationRequest carries only the fields to change.
type UpdateReservationRequest struct {
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	PlaceID   *string    `json:"placeId,omitempty" validate:"omitempty,min=1"`
	InvoiceID *string    `json:"invoiceId,omitempty" validate:"omitempty,min=1"`
}

func (r *UpdateReservationRequest) TouchesDates() bool {
	return r.StartDate != nil || r.EndDate != nil
}

// Changes names the fields present in the request.
func (r *UpdateReservationRequest) Changes() []string {
	var out []string
	if r.StartDate != nil {
		out = append(out, "startDate")
	}
	if r.EndDate != nil {
		out = append(out, "endDate")
	}
	if r.PlaceID != nil {
		out = append(out, "placeId")
	}
	if r.InvoiceID != nil {
		out = append(out, "invoiceId")
	}
	return out
}

// Apply returns a copy of res with the request's fields applied.
func (r *UpdateReservationRequest) Apply(res Reservation) Reservation {
	if r.StartDate != nil {
		res.StartDate = *r.StartDate
	}
	if r.EndDate != nil {
		res.EndDate = *r.EndDate
	}
	if r.PlaceID != nil {
		res.PlaceID = *r.PlaceID
	}
	if r.InvoiceID != nil {
		res.InvoiceID = *r.InvoiceID
	}
	return res
}

// DateGuard matches the stored dates of res.
func (res *Reservation) DateGuard() repository.Filter {
	return repository.Filter{"startDate": res.StartDate, "endDate": res.EndDate}
}

// CheckDates reports an end date earlier than the start date.
func (res *Reservation) CheckDates() error {
	if res.EndDate.Before(res.StartDate) {
		return &request.ValidationError{Fields: map[string]string{"endDate": "gtefield=startDate"}}
	}
	return nil
}
