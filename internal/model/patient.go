package model

import (
	"time"
)

type PatientStatus string

const (
	PatientStatusPendingExamination  PatientStatus = "pending_examination"
	PatientStatusExaminationComplete PatientStatus = "examination_complete"
	PatientStatusCompleted           PatientStatus = "completed"
)

// CanTransitionTo reports whether the workflow permits moving from s to next.
// The lifecycle is strictly forward: pending_examination -> examination_complete -> completed.
func (s PatientStatus) CanTransitionTo(next PatientStatus) bool {
	switch s {
	case PatientStatusPendingExamination:
		return next == PatientStatusExaminationComplete
	case PatientStatusExaminationComplete:
		return next == PatientStatusCompleted
	default:
		return false
	}
}

// IsActive reports whether a patient in this status belongs in the
// active-examination cache.
func (s PatientStatus) IsActive() bool {
	return s == PatientStatusPendingExamination || s == PatientStatusExaminationComplete
}

type Patient struct {
	ID          int64         `db:"id" json:"id"`
	Name        string        `db:"name" json:"name"`
	DateOfBirth string        `db:"date_of_birth" json:"dateOfBirth"`
	Mobile      string        `db:"mobile" json:"mobile"`
	Occupation  string        `db:"occupation" json:"occupation"`
	Gender      string        `db:"gender" json:"gender"`
	Email       string        `db:"email" json:"email"`
	PoboxNo     string        `db:"pobox_no" json:"poboxNo"`
	PinCode     string        `db:"pin_code" json:"pinCode"`
	Area        string        `db:"area" json:"area"`
	PreviousRx  string        `db:"previous_rx" json:"previousRx"`
	Status      PatientStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// NewPatientRequest is the payload of the reception "newPatient" command.
// A registration must carry at least a name and a mobile contact.
type NewPatientRequest struct {
	Name        string `json:"name" validate:"required"`
	DateOfBirth string `json:"dateOfBirth"`
	Mobile      string `json:"mobile" validate:"required"`
	Occupation  string `json:"occupation"`
	Gender      string `json:"gender" validate:"omitempty,oneof=M F O"`
	Email       string `json:"email" validate:"omitempty,email"`
	PoboxNo     string `json:"poboxNo"`
	PinCode     string `json:"pinCode"`
	Area        string `json:"area"`
	PreviousRx  string `json:"previousRx"`
}

func (r *NewPatientRequest) ToPatient() *Patient {
	return &Patient{
		Name:        r.Name,
		DateOfBirth: r.DateOfBirth,
		Mobile:      r.Mobile,
		Occupation:  r.Occupation,
		Gender:      r.Gender,
		Email:       r.Email,
		PoboxNo:     r.PoboxNo,
		PinCode:     r.PinCode,
		Area:        r.Area,
		PreviousRx:  r.PreviousRx,
		Status:      PatientStatusPendingExamination,
	}
}
