package models

import "time"

type Visit struct {
	VisitID           string          `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Gender            string          `json:"gender"`
	Age               int             `json:"age"`
	Email             string          `json:"email,omitempty"`
	PhoneNumber       string          `json:"phoneNumber"`
	Speciality        string          `json:"speciality"`
	TokenNumber       string          `json:"tokenNumber"`
	AppointmentDate   time.Time       `json:"appointmentDate"`
	RecentAppointment bool            `json:"recentAppointment"`
	CreatedAt         time.Time       `json:"createdAt"`
	Treatments        []TreatmentNote `json:"treatments,omitempty"`
	Charges           []Charge        `json:"charges,omitempty"`
}

const (
	GenderMale        = "Male"
	GenderFemale      = "Female"
	GenderTransgender = "Transgender"
)

func ValidGender(gender string) bool {
	switch gender {
	case GenderMale, GenderFemale, GenderTransgender:
		return true
	default:
		return false
	}
}
