package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ticketbay/ticketbay/internal/models"
	"github.com/ticketbay/ticketbay/internal/monitoring"
)

// SettlementService converts a paid checkout into durable state: the booking
// is marked paid, the ticket inventory is decremented and an audit
// transaction is appended. All three writes happen in one database
// transaction, so a failure at any step leaves nothing applied.
//
// Two conditional updates serialize concurrent settlements of the same
// booking: the inventory decrement only applies while enough quantity
// remains, and the status flip only applies while the booking is still
// unpaid. A concurrent caller that loses the race on the status flip rolls
// back its decrement and reports a conflict, never a double decrement.
type SettlementService struct {
	db *gorm.DB
}

func NewSettlementService(db *gorm.DB) *SettlementService {
	return &SettlementService{db: db}
}

type SettlementResult struct {
	BookingID      uuid.UUID       `json:"booking_id"`
	TransactionID  string          `json:"transaction_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	AlreadySettled bool            `json:"already_settled"`
}

func (s *SettlementService) Settle(ctx context.Context, bookingID uuid.UUID) (*SettlementResult, error) {
	start := time.Now()

	result, err := s.settle(ctx, bookingID)

	outcome := "settled"
	switch {
	case err != nil:
		outcome = outcomeForError(err)
	case result.AlreadySettled:
		outcome = "already_settled"
	}
	monitoring.ObserveSettlement(outcome, time.Since(start))

	if err != nil {
		logrus.WithFields(logrus.Fields{
			"booking_id": bookingID,
			"outcome":    outcome,
		}).WithError(err).Warn("settlement failed")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"booking_id":      bookingID,
		"transaction_id":  result.TransactionID,
		"already_settled": result.AlreadySettled,
	}).Info("settlement complete")
	return result, nil
}

func (s *SettlementService) settle(ctx context.Context, bookingID uuid.UUID) (*SettlementResult, error) {
	var result *SettlementResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.Where("id = ?", bookingID).First(&booking).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return fmt.Errorf("%w: loading booking: %v", ErrUpstream, err)
		}

		// Idempotency guard: a booking settles at most once.
		if booking.Status == models.BookingPaid {
			result = &SettlementResult{BookingID: booking.ID, AlreadySettled: true}
			return nil
		}
		if booking.Status == models.BookingRejected {
			return ErrBookingRejected
		}

		// Decrement inventory only while enough remains; quantity can never
		// go negative through this path.
		res := tx.Model(&models.Ticket{}).
			Where("id = ? AND quantity >= ?", booking.TicketID, booking.BookingQuantity).
			UpdateColumn("quantity", gorm.Expr("quantity - ?", booking.BookingQuantity))
		if res.Error != nil {
			return fmt.Errorf("%w: decrementing inventory: %v", ErrUpstream, res.Error)
		}
		if res.RowsAffected == 0 {
			var ticket models.Ticket
			if err := tx.Where("id = ?", booking.TicketID).First(&ticket).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrTicketNotFound
				}
				return fmt.Errorf("%w: loading ticket: %v", ErrUpstream, err)
			}
			return ErrInsufficientInventory
		}

		// The status flip is the serialization point: only one caller can
		// move the booking out of an unpaid state. Losing the race rolls the
		// whole transaction back, decrement included.
		now := time.Now().UTC()
		res = tx.Model(&models.Booking{}).
			Where("id = ? AND status NOT IN ?", booking.ID, []string{models.BookingPaid, models.BookingRejected}).
			Updates(map[string]interface{}{"status": models.BookingPaid, "paid_at": now})
		if res.Error != nil {
			return fmt.Errorf("%w: marking booking paid: %v", ErrUpstream, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrSettlementConflict
		}

		amount := booking.UnitPrice.Mul(decimal.NewFromInt(int64(booking.BookingQuantity)))
		txn := models.Transaction{
			TransactionID: models.NewTransactionID(now),
			BookingID:     booking.ID,
			UserEmail:     booking.UserEmail,
			TicketTitle:   booking.TicketTitle,
			Amount:        amount,
			PaymentDate:   now,
		}
		if err := tx.Create(&txn).Error; err != nil {
			return fmt.Errorf("%w: recording transaction: %v", ErrUpstream, err)
		}

		result = &SettlementResult{
			BookingID:     booking.ID,
			TransactionID: txn.TransactionID,
			Amount:        amount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func outcomeForError(err error) string {
	switch {
	case errors.Is(err, ErrBookingNotFound), errors.Is(err, ErrTicketNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientInventory):
		return "insufficient_inventory"
	case errors.Is(err, ErrSettlementConflict), errors.Is(err, ErrBookingRejected):
		return "conflict"
	default:
		return "error"
	}
}
