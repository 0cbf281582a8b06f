package model

import (
	"time"
)

// ActiveExamination is the transient projection kept for every patient whose
// visit is still in flight: the registration fields, the examination fields
// once the doctor is done, and the current workflow status. It is what every
// connected panel renders, and it disappears when the sale closes the visit.
type ActiveExamination struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	DateOfBirth string        `json:"dateOfBirth"`
	Mobile      string        `json:"mobile"`
	Occupation  string        `json:"occupation"`
	Gender      string        `json:"gender"`
	Email       string        `json:"email"`
	PoboxNo     string        `json:"poboxNo"`
	PinCode     string        `json:"pinCode"`
	Area        string        `json:"area"`
	PreviousRx  string        `json:"previousRx"`
	Status      PatientStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`

	RightSph        string `json:"right_sph,omitempty"`
	RightCyl        string `json:"right_cyl,omitempty"`
	RightAxis       string `json:"right_axis,omitempty"`
	RightAdd        string `json:"right_add,omitempty"`
	RightVA         string `json:"right_va,omitempty"`
	RightIPD        string `json:"right_ipd,omitempty"`
	LeftSph         string `json:"left_sph,omitempty"`
	LeftCyl         string `json:"left_cyl,omitempty"`
	LeftAxis        string `json:"left_axis,omitempty"`
	LeftAdd         string `json:"left_add,omitempty"`
	LeftVA          string `json:"left_va,omitempty"`
	LeftIPD         string `json:"left_ipd,omitempty"`
	ClinicalHistory string `json:"clinical_history,omitempty"`
	OptometristName string `json:"optometrist_name,omitempty"`
}

func NewActiveExamination(p *Patient) *ActiveExamination {
	return &ActiveExamination{
		ID:          p.ID,
		Name:        p.Name,
		DateOfBirth: p.DateOfBirth,
		Mobile:      p.Mobile,
		Occupation:  p.Occupation,
		Gender:      p.Gender,
		Email:       p.Email,
		PoboxNo:     p.PoboxNo,
		PinCode:     p.PinCode,
		Area:        p.Area,
		PreviousRx:  p.PreviousRx,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
	}
}

// ApplyExamination merges the doctor's results into the projection and moves
// it to examination_complete.
func (a *ActiveExamination) ApplyExamination(e *Examination) {
	a.RightSph = e.RightSph
	a.RightCyl = e.RightCyl
	a.RightAxis = e.RightAxis
	a.RightAdd = e.RightAdd
	a.RightVA = e.RightVA
	a.RightIPD = e.RightIPD
	a.LeftSph = e.LeftSph
	a.LeftCyl = e.LeftCyl
	a.LeftAxis = e.LeftAxis
	a.LeftAdd = e.LeftAdd
	a.LeftVA = e.LeftVA
	a.LeftIPD = e.LeftIPD
	a.ClinicalHistory = e.ClinicalHistory
	a.OptometristName = e.OptometristName
	a.Status = PatientStatusExaminationComplete
}

func (a *ActiveExamination) Clone() *ActiveExamination {
	cp := *a
	return &cp
}
