package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v3"
	"github.com/shopspring/decimal"
)

// Transaction is the append-only audit record written once per settled
// booking. The unique index on BookingID backstops the one-transaction-per-
// booking invariant at the database level.
type Transaction struct {
	TransactionID string          `gorm:"primary_key" json:"transaction_id"`
	BookingID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"booking_id"`
	UserEmail     string          `gorm:"not null;index" json:"user_email"`
	TicketTitle   string          `gorm:"not null" json:"ticket_title"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	PaymentDate   time.Time       `gorm:"not null" json:"payment_date"`
}

// NewTransactionID builds a time-ordered id with a random suffix so that
// settlements committed within the same second still get distinct ids.
func NewTransactionID(now time.Time) string {
	return fmt.Sprintf("TXN-%d-%s", now.Unix(), shortuuid.New())
}
