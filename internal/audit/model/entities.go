package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Property statuses
const (
	PropertyDraft    = "draft"
	PropertyActive   = "active"
	PropertyInactive = "inactive"
)

// Booking statuses
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
)

type PropertyPricing struct {
	BasePrice float64 `bson:"base_price" json:"base_price"`
	Currency  string  `bson:"currency" json:"currency"`
}

// Property is a listing owned by a host.
type Property struct {
	Base      `bson:",inline"`
	Name      string          `bson:"name" json:"name"`
	City      string          `bson:"city,omitempty" json:"city,omitempty"`
	Status    string          `bson:"status" json:"status"`
	HostID    string          `bson:"host_id" json:"host_id"`
	OwnerID   string          `bson:"owner_id,omitempty" json:"owner_id,omitempty"`
	Pricing   PropertyPricing `bson:"pricing" json:"pricing"`
	Amenities []string        `bson:"amenities,omitempty" json:"amenities,omitempty"`
}

// PropertyTrackedFields are diffed on every property update.
var PropertyTrackedFields = []string{"name", "status", "pricing.base_price", "pricing.currency", "amenities", "host_id"}

type BookingPricing struct {
	TotalAmount float64 `bson:"total_amount" json:"total_amount"`
	Currency    string  `bson:"currency" json:"currency"`
}

// Booking is a customer's reservation against a property.
type Booking struct {
	Base       `bson:",inline"`
	UserID     string             `bson:"user_id" json:"user_id"`
	PropertyID primitive.ObjectID `bson:"property_id" json:"property_id"`
	Status     string             `bson:"status" json:"status"`
	CheckIn    time.Time          `bson:"check_in" json:"check_in"`
	CheckOut   time.Time          `bson:"check_out" json:"check_out"`
	Guests     int                `bson:"guests" json:"guests"`
	Pricing    BookingPricing     `bson:"pricing" json:"pricing"`
}

// BookingTrackedFields are diffed on every booking update.
var BookingTrackedFields = []string{"status", "pricing.total_amount", "check_in", "check_out", "guests"}
