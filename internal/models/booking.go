package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	BookingPending  = "pending"
	BookingAccepted = "accepted"
	BookingRejected = "rejected"
	BookingPaid     = "paid"
)

// Booking snapshots the ticket title, price and vendor at creation time so
// later vendor edits cannot change what the buyer agreed to pay.
type Booking struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	TicketID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"ticket_id"`
	UserEmail         string          `gorm:"not null;index" json:"user_email"`
	VendorEmail       string          `gorm:"not null;index" json:"vendor_email"`
	TicketTitle       string          `gorm:"not null" json:"ticket_title"`
	UnitPrice         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	BookingQuantity   int             `gorm:"not null" json:"booking_quantity"`
	Status            string          `gorm:"not null;default:'pending'" json:"status"`
	CheckoutSessionID string          `gorm:"index" json:"-"`
	PassUsed          bool            `gorm:"not null;default:false" json:"pass_used"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
}

func (booking *Booking) BeforeCreate(tx *gorm.DB) (err error) {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	return
}
