package domain

import (
	"strings"
	"time"
)

type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportDelivered ReportStatus = "delivered"
)

func ParseReportStatus(s string) (ReportStatus, bool) {
	switch ReportStatus(s) {
	case ReportPending, ReportDelivered:
		return ReportStatus(s), true
	default:
		return "", false
	}
}

type Booking struct {
	ID            string       `json:"_id"`
	TestID        string       `json:"testId"`
	TestName      string       `json:"testName"`
	Email         string       `json:"email"`
	Name          string       `json:"name"`
	Date          string       `json:"date"`
	Price         float64      `json:"price"`
	TransactionID string       `json:"transactionId"`
	ReportStatus  ReportStatus `json:"reportStatus"`
	ReportURL     string       `json:"report"`
	CreatedAt     time.Time    `json:"created_at"`
}

// IsOwner checks if the given email owns this booking.
func (b *Booking) IsOwner(email string) bool {
	return strings.EqualFold(b.Email, email)
}

// BookingReq is the body of a new booking. Email is taken from the caller's
// token, never from the body.
type BookingReq struct {
	TestID        string  `json:"testId"`
	TestName      string  `json:"testName"`
	Name          string  `json:"name"`
	Date          string  `json:"date"`
	Price         float64 `json:"price"`
	TransactionID string  `json:"transactionId"`
	Email         string  `json:"-"`
}

func (r *BookingReq) Validate() error {
	r.TestID = strings.TrimSpace(r.TestID)
	if r.TestID == "" {
		return fieldError("testId", "is required")
	}
	if r.Date != "" && !IsValidDate(r.Date) {
		return fieldError("date", "must be YYYY-MM-DD")
	}
	if r.Price < 0 {
		return fieldError("price", "must not be negative")
	}
	if !IsValidEmail(r.Email) {
		return fieldError("email", "a valid email is required")
	}
	return nil
}

// ReportPatch attaches a lab report to a booking.
type ReportPatch struct {
	ReportStatus *ReportStatus `json:"reportStatus,omitempty"`
	ReportURL    *string       `json:"report,omitempty"`
}

func (p *ReportPatch) Validate() error {
	if p.ReportStatus == nil && p.ReportURL == nil {
		return fieldError("body", "no fields to update")
	}
	if p.ReportStatus != nil {
		if _, ok := ParseReportStatus(string(*p.ReportStatus)); !ok {
			return fieldError("reportStatus", "must be pending or delivered")
		}
	}
	return nil
}
