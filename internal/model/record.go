package model

import (
	"time"
)

// PatientRecord is the admin read model: one row per patient with the latest
// examination and sale joined in. Examination and sale columns are nullable
// because the visit may still be mid-workflow.
type PatientRecord struct {
	Patient

	RightSph        *string `db:"right_sph" json:"right_sph,omitempty"`
	RightCyl        *string `db:"right_cyl" json:"right_cyl,omitempty"`
	RightAxis       *string `db:"right_axis" json:"right_axis,omitempty"`
	RightAdd        *string `db:"right_add" json:"right_add,omitempty"`
	RightVA         *string `db:"right_va" json:"right_va,omitempty"`
	RightIPD        *string `db:"right_ipd" json:"right_ipd,omitempty"`
	LeftSph         *string `db:"left_sph" json:"left_sph,omitempty"`
	LeftCyl         *string `db:"left_cyl" json:"left_cyl,omitempty"`
	LeftAxis        *string `db:"left_axis" json:"left_axis,omitempty"`
	LeftAdd         *string `db:"left_add" json:"left_add,omitempty"`
	LeftVA          *string `db:"left_va" json:"left_va,omitempty"`
	LeftIPD         *string `db:"left_ipd" json:"left_ipd,omitempty"`
	ClinicalHistory *string `db:"clinical_history" json:"clinical_history,omitempty"`
	OptometristName *string `db:"optometrist_name" json:"optometrist_name,omitempty"`

	Brand           *string  `db:"brand" json:"brand,omitempty"`
	Model           *string  `db:"model" json:"model,omitempty"`
	Color           *string  `db:"color" json:"color,omitempty"`
	Amount          *float64 `db:"amount" json:"amount,omitempty"`
	Total           *float64 `db:"total" json:"total,omitempty"`
	Advance         *float64 `db:"advance" json:"advance,omitempty"`
	Balance         *float64 `db:"balance" json:"balance,omitempty"`
	ReferenceNumber *string  `db:"reference_number" json:"referenceNumber,omitempty"`
}

// RecordFilters bounds the admin listing.
type RecordFilters struct {
	Status    PatientStatus `form:"status"`
	StartDate time.Time     `form:"start_date" time_format:"2006-01-02"`
	EndDate   time.Time     `form:"end_date" time_format:"2006-01-02"`
	Limit     int           `form:"limit"`
}
