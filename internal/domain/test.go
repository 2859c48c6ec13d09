package domain

import (
	"strings"
	"time"
)

// LabTest is a bookable diagnostic test offering on a given date.
type LabTest struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	Details   string    `json:"details"`
	Price     float64   `json:"price"`
	Date      string    `json:"date"`
	Slots     int       `json:"slots"`
	Bookings  int       `json:"bookings"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LabTestReq struct {
	Name    string  `json:"name"`
	Image   string  `json:"image"`
	Details string  `json:"details"`
	Price   float64 `json:"price"`
	Date    string  `json:"date"`
	Slots   int     `json:"slots"`
}

func (r *LabTestReq) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Date = strings.TrimSpace(r.Date)
	if r.Name == "" {
		return fieldError("name", "is required")
	}
	if !IsValidDate(r.Date) {
		return fieldError("date", "must be YYYY-MM-DD")
	}
	if r.Price < 0 {
		return fieldError("price", "must not be negative")
	}
	if r.Slots < 0 {
		return fieldError("slots", "must not be negative")
	}
	return nil
}

// LabTestPatch sets only the supplied fields. Counters move through slot
// reservation, except for an explicit slots reset by an admin.
type LabTestPatch struct {
	Name    *string  `json:"name,omitempty"`
	Image   *string  `json:"image,omitempty"`
	Details *string  `json:"details,omitempty"`
	Price   *float64 `json:"price,omitempty"`
	Date    *string  `json:"date,omitempty"`
	Slots   *int     `json:"slots,omitempty"`
}

func (p *LabTestPatch) Empty() bool {
	return p.Name == nil && p.Image == nil && p.Details == nil &&
		p.Price == nil && p.Date == nil && p.Slots == nil
}

func (p *LabTestPatch) Validate() error {
	if p.Empty() {
		return fieldError("body", "no fields to update")
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fieldError("name", "must not be empty")
	}
	if p.Date != nil && !IsValidDate(*p.Date) {
		return fieldError("date", "must be YYYY-MM-DD")
	}
	if p.Price != nil && *p.Price < 0 {
		return fieldError("price", "must not be negative")
	}
	if p.Slots != nil && *p.Slots < 0 {
		return fieldError("slots", "must not be negative")
	}
	return nil
}
