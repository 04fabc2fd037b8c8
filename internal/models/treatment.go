package models

import "time"

// TreatmentNote is an append-only clinical entry attached to a visit.
// Notes are never updated or deleted on their own; they only go away
// when the owning visit is removed.
type TreatmentNote struct {
	TreatmentID string    `json:"id"`
	VisitID     string    `json:"visitId"`
	TestGiven   string    `json:"testGiven"`
	TestResults string    `json:"testResults"`
	Medication  string    `json:"medication"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"createdAt"`
}
