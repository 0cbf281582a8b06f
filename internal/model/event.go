package model

import (
	"encoding/json"
)

// Channel event names, client to server.
const (
	EventRegisterAsDoctor    = "register_as_doctor"
	EventNewPatient          = "newPatient"
	EventExaminationComplete = "examinationComplete"
	EventSalesComplete       = "salesComplete"
)

// Channel event names, server to client.
const (
	EventUpdateExaminations     = "updateExaminations"
	EventNewPatientNotification = "newPatientNotification"
	EventError                  = "error"
)

// Envelope frames every message on the websocket channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ExaminationCompleteRequest is the inbound "examinationComplete" frame body.
type ExaminationCompleteRequest struct {
	PatientID       int64              `json:"patientId" validate:"required"`
	ExaminationData ExaminationRequest `json:"examinationData"`
}

// SalesCompleteRequest is the inbound "salesComplete" frame body.
type SalesCompleteRequest struct {
	PatientID int64       `json:"patientId" validate:"required"`
	SalesData SaleRequest `json:"salesData"`
}

// NewPatientNotification is pushed to doctor-role clients when reception
// registers a patient.
type NewPatientNotification struct {
	Patient *ActiveExamination `json:"patient"`
	Message string             `json:"message"`
}

// NewEnvelope marshals data into a framed channel message.
func NewEnvelope(event string, data interface{}) (*Envelope, error) {
	if data == nil {
		return &Envelope{Event: event}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Envelope{Event: event, Data: raw}, nil
}
