package domain

import (
	"strings"
	"time"
)

type Banner struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Image        string    `json:"image"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	CouponCode   string    `json:"couponCode"`
	DiscountRate int       `json:"discountRate"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

type BannerReq struct {
	Name         string `json:"name"`
	Image        string `json:"image"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	CouponCode   string `json:"couponCode"`
	DiscountRate int    `json:"discountRate"`
	Active       bool   `json:"active"`
}

func (r *BannerReq) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return fieldError("name", "is required")
	}
	if r.DiscountRate < 0 || r.DiscountRate > 100 {
		return fieldError("discountRate", "must be between 0 and 100")
	}
	return nil
}

type BannerPatch struct {
	Name         *string `json:"name,omitempty"`
	Image        *string `json:"image,omitempty"`
	Title        *string `json:"title,omitempty"`
	Description  *string `json:"description,omitempty"`
	CouponCode   *string `json:"couponCode,omitempty"`
	DiscountRate *int    `json:"discountRate,omitempty"`
	Active       *bool   `json:"active,omitempty"`
}

func (p *BannerPatch) Validate() error {
	if p.Name == nil && p.Image == nil && p.Title == nil && p.Description == nil &&
		p.CouponCode == nil && p.DiscountRate == nil && p.Active == nil {
		return fieldError("body", "no fields to update")
	}
	if p.DiscountRate != nil && (*p.DiscountRate < 0 || *p.DiscountRate > 100) {
		return fieldError("discountRate", "must be between 0 and 100")
	}
	return nil
}

type Blog struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"created_at"`
}

type BlogReq struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Author  string `json:"author"`
	Image   string `json:"image"`
}

func (r *BlogReq) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return fieldError("title", "is required")
	}
	return nil
}
