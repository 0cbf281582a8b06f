package model

import (
	"time"
)

const NotificationTypeNewPatient = "new_patient"

// Notification is an append-only log entry written when reception registers
// a patient. Nothing in the workflow reads it back; admin views may.
type Notification struct {
	ID        int64     `db:"id" json:"id"`
	PatientID int64     `db:"patient_id" json:"patient_id"`
	Message   string    `db:"message" json:"message"`
	Type      string    `db:"type" json:"type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
