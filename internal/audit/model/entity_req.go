package model

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PropertyReq is the create/update body for a property.
type PropertyReq struct {
	ID        string   `param:"id" validate:"omitempty,mongodb"`
	Name      string   `json:"name" validate:"required,max=200"`
	City      string   `json:"city" validate:"omitempty,max=100"`
	Status    string   `json:"status" validate:"omitempty,oneof=draft active inactive"`
	HostID    string   `json:"host_id" validate:"omitempty,max=100"`
	BasePrice float64  `json:"base_price" validate:"gte=0"`
	Currency  string   `json:"currency" validate:"omitempty,len=3"`
	Amenities []string `json:"amenities" validate:"omitempty,max=100,dive,max=50"`
}

func (r *PropertyReq) Validate() error {
	r.ID = strings.TrimSpace(r.ID)
	r.Name = strings.TrimSpace(r.Name)
	r.City = strings.TrimSpace(r.City)
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
	r.HostID = strings.TrimSpace(r.HostID)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	if r.Status == "" {
		r.Status = PropertyDraft
	}

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}

// Apply copies the request fields onto p.
func (r *PropertyReq) Apply(p *Property) {
	p.Name = r.Name
	p.City = r.City
	p.Status = r.Status
	if r.HostID != "" {
		p.HostID = r.HostID
		p.OwnerID = r.HostID
	}
	p.Pricing.BasePrice = r.BasePrice
	p.Pricing.Currency = r.Currency
	p.Amenities = r.Amenities
}

// BookingReq is the create/update body for a booking.
type BookingReq struct {
	ID          string    `param:"id" validate:"omitempty,mongodb"`
	PropertyID  string    `json:"property_id" validate:"required,mongodb"`
	Status      string    `json:"status" validate:"omitempty,oneof=pending confirmed cancelled completed"`
	CheckIn     time.Time `json:"check_in" validate:"required"`
	CheckOut    time.Time `json:"check_out" validate:"required"`
	Guests      int       `json:"guests" validate:"min=1,max=50"`
	TotalAmount float64   `json:"total_amount" validate:"gte=0"`
	Currency    string    `json:"currency" validate:"omitempty,len=3"`
}

func (r *BookingReq) Validate() error {
	r.ID = strings.TrimSpace(r.ID)
	r.PropertyID = strings.TrimSpace(r.PropertyID)
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	if r.Status == "" {
		r.Status = BookingPending
	}

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	if !r.CheckOut.After(r.CheckIn) {
		return &ErrorDetail{Code: "bad_request", Message: "check_out must be after check_in"}
	}
	return nil
}

// Apply copies the request fields onto b. The owning user is set by the caller.
func (r *BookingReq) Apply(b *Booking) {
	b.PropertyID, _ = primitive.ObjectIDFromHex(r.PropertyID)
	b.Status = r.Status
	b.CheckIn = r.CheckIn.UTC()
	b.CheckOut = r.CheckOut.UTC()
	b.Guests = r.Guests
	b.Pricing.TotalAmount = r.TotalAmount
	b.Pricing.Currency = r.Currency
}

// DeleteEntityReq soft-deletes a property or booking.
type DeleteEntityReq struct {
	ID     string `param:"id" validate:"required,mongodb"`
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

func (r *DeleteEntityReq) Validate() error {
	r.ID = strings.TrimSpace(r.ID)
	r.Reason = strings.TrimSpace(r.Reason)

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}

// ListEntitiesReq pages over properties or bookings.
type ListEntitiesReq struct {
	IncludeDeleted bool   `query:"include_deleted"`
	Status         string `query:"status" validate:"omitempty,max=20"`
	Limit          int64  `query:"limit"`
	Skip           int64  `query:"skip"`
}

func (r *ListEntitiesReq) Validate() error {
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
	normalizePage(&r.Limit, &r.Skip)

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}
