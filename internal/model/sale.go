package model

import (
	"fmt"
	"time"
)

// Sale records the frame order reception books once the doctor has signed
// off the examination. One row per patient.
type Sale struct {
	ID                  int64     `db:"id" json:"id"`
	PatientID           int64     `db:"patient_id" json:"patient_id"`
	Brand               string    `db:"brand" json:"brand"`
	Model               string    `db:"model" json:"model"`
	Color               string    `db:"color" json:"color"`
	Quantity            int       `db:"quantity" json:"quantity"`
	Amount              float64   `db:"amount" json:"amount"`
	Total               float64   `db:"total" json:"total"`
	Advance             float64   `db:"advance" json:"advance"`
	Balance             float64   `db:"balance" json:"balance"`
	FittingInstructions string    `db:"fitting_instructions" json:"fittingInstructions"`
	OrderBookedBy       string    `db:"order_booked_by" json:"orderBookedBy"`
	DeliveryDate        string    `db:"delivery_date" json:"deliveryDate"`
	ReferenceNumber     string    `db:"reference_number" json:"referenceNumber"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// SaleRequest is the payload of the reception "salesComplete" command.
type SaleRequest struct {
	Brand               string  `json:"brand"`
	Model               string  `json:"model"`
	Color               string  `json:"color"`
	Quantity            int     `json:"quantity" validate:"omitempty,min=1"`
	Amount              float64 `json:"amount" validate:"required,gt=0"`
	Total               float64 `json:"total" validate:"omitempty,gte=0"`
	Advance             float64 `json:"advance" validate:"omitempty,gte=0"`
	FittingInstructions string  `json:"fittingInstructions"`
	OrderBookedBy       string  `json:"orderBookedBy" validate:"required"`
	DeliveryDate        string  `json:"deliveryDate"`
	ReferenceNumber     string  `json:"referenceNumber"`
}

// ToSale normalizes the order arithmetic: quantity defaults to one, the
// total falls back to amount*quantity when the client omits it, and the
// balance is always recomputed server-side as total-advance.
func (r *SaleRequest) ToSale(patientID int64) *Sale {
	quantity := r.Quantity
	if quantity == 0 {
		quantity = 1
	}
	total := r.Total
	if total == 0 {
		total = r.Amount * float64(quantity)
	}
	reference := r.ReferenceNumber
	if reference == "" {
		reference = fmt.Sprintf("OP%06d", time.Now().Unix()%1000000)
	}
	return &Sale{
		PatientID:           patientID,
		Brand:               r.Brand,
		Model:               r.Model,
		Color:               r.Color,
		Quantity:            quantity,
		Amount:              r.Amount,
		Total:               total,
		Advance:             r.Advance,
		Balance:             total - r.Advance,
		FittingInstructions: r.FittingInstructions,
		OrderBookedBy:       r.OrderBookedBy,
		DeliveryDate:        r.DeliveryDate,
		ReferenceNumber:     reference,
	}
}
