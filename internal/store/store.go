package store

import (
	"context"
	"time"

	"clinic/frontdesk-service/internal/models"
)

type CreateVisitInput struct {
	Name        string
	Description string
	Gender      string
	Age         int
	Email       string
	PhoneNumber string
	Speciality  string
	CreatedAt   time.Time
}

type OpenChargeInput struct {
	VisitID       string
	Amount        float64
	Description   string
	Status        string
	PaymentMethod string
	CreatedAt     time.Time
}

type UpdateChargeInput struct {
	ChargeID      string
	Status        *string
	PaymentMethod *string
}

type AddTreatmentInput struct {
	VisitID     string
	TestGiven   string
	TestResults string
	Medication  string
	Date        time.Time
}

// VisitStore is the persistence contract for the front-desk core. The
// postgres implementation is the production one; handler tests run
// against a fake.
type VisitStore interface {
	CreateVisit(ctx context.Context, input CreateVisitInput) (models.Visit, models.Charge, error)
	GetVisit(ctx context.Context, visitID string) (models.Visit, error)
	ListVisits(ctx context.Context, recentAppointment *bool) ([]models.Visit, error)
	SetAppointmentFlag(ctx context.Context, visitID string, recentAppointment bool) error
	DeleteVisit(ctx context.Context, visitID string) error
	OpenCharge(ctx context.Context, input OpenChargeInput) (models.Charge, error)
	ListCharges(ctx context.Context, visitID string) ([]models.Charge, error)
	UpdateCharge(ctx context.Context, input UpdateChargeInput) (models.Charge, error)
	AddTreatment(ctx context.Context, input AddTreatmentInput) (models.TreatmentNote, error)
	ListTreatments(ctx context.Context, visitID string) ([]models.TreatmentNote, error)
}
