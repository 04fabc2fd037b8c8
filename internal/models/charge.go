package models

import "time"

type Charge struct {
	ChargeID      string     `json:"id"`
	VisitID       string     `json:"visitId"`
	Amount        float64    `json:"amount"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"paymentMethod"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

const (
	ChargeStatusPending  = "pending"
	ChargeStatusPaid     = "paid"
	ChargeStatusRefunded = "refunded"
)

const (
	DefaultChargeDescription = "Consultation Fee"
	DefaultPaymentMethod     = "unpaid"
)
