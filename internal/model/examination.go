package model

import (
	"time"
)

// Examination holds the refraction results recorded by the doctor.
// Exactly one row exists per patient once the examination is complete,
// and it is never updated afterwards.
type Examination struct {
	ID              int64     `db:"id" json:"id"`
	PatientID       int64     `db:"patient_id" json:"patient_id"`
	RightSph        string    `db:"right_sph" json:"right_sph"`
	RightCyl        string    `db:"right_cyl" json:"right_cyl"`
	RightAxis       string    `db:"right_axis" json:"right_axis"`
	RightAdd        string    `db:"right_add" json:"right_add"`
	RightVA         string    `db:"right_va" json:"right_va"`
	RightIPD        string    `db:"right_ipd" json:"right_ipd"`
	LeftSph         string    `db:"left_sph" json:"left_sph"`
	LeftCyl         string    `db:"left_cyl" json:"left_cyl"`
	LeftAxis        string    `db:"left_axis" json:"left_axis"`
	LeftAdd         string    `db:"left_add" json:"left_add"`
	LeftVA          string    `db:"left_va" json:"left_va"`
	LeftIPD         string    `db:"left_ipd" json:"left_ipd"`
	ClinicalHistory string    `db:"clinical_history" json:"clinical_history"`
	OptometristName string    `db:"optometrist_name" json:"optometrist_name"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// ExaminationRequest is the payload of the doctor "examinationComplete"
// command. Refractive values travel as the free-form strings the prescription
// pad uses ("+1.25", "6/6", plano, etc).
type ExaminationRequest struct {
	RightSph        string `json:"right_sph"`
	RightCyl        string `json:"right_cyl"`
	RightAxis       string `json:"right_axis"`
	RightAdd        string `json:"right_add"`
	RightVA         string `json:"right_va"`
	RightIPD        string `json:"right_ipd"`
	LeftSph         string `json:"left_sph"`
	LeftCyl         string `json:"left_cyl"`
	LeftAxis        string `json:"left_axis"`
	LeftAdd         string `json:"left_add"`
	LeftVA          string `json:"left_va"`
	LeftIPD         string `json:"left_ipd"`
	ClinicalHistory string `json:"clinical_history"`
	OptometristName string `json:"optometrist_name" validate:"required"`
}

func (r *ExaminationRequest) ToExamination(patientID int64) *Examination {
	return &Examination{
		PatientID:       patientID,
		RightSph:        r.RightSph,
		RightCyl:        r.RightCyl,
		RightAxis:       r.RightAxis,
		RightAdd:        r.RightAdd,
		RightVA:         r.RightVA,
		RightIPD:        r.RightIPD,
		LeftSph:         r.LeftSph,
		LeftCyl:         r.LeftCyl,
		LeftAxis:        r.LeftAxis,
		LeftAdd:         r.LeftAdd,
		LeftVA:          r.LeftVA,
		LeftIPD:         r.LeftIPD,
		ClinicalHistory: r.ClinicalHistory,
		OptometristName: r.OptometristName,
	}
}
