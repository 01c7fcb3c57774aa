package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	TicketPending  = "pending"
	TicketApproved = "approved"
	TicketRejected = "rejected"
)

type Ticket struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	VendorID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"vendor_id"`
	VendorEmail string          `gorm:"not null;index" json:"vendor_email"`
	Title       string          `gorm:"not null" json:"title"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	Status      string          `gorm:"not null;default:'pending'" json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (ticket *Ticket) BeforeCreate(tx *gorm.DB) (err error) {
	if ticket.ID == uuid.Nil {
		ticket.ID = uuid.New()
	}
	return
}
