package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ticketbay/ticketbay/config"
	"github.com/ticketbay/ticketbay/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps every session on the same in-memory database
	// and serializes concurrent transactions.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.Migrate(db))
	return db
}

func seedTicketAndBooking(t *testing.T, db *gorm.DB, ticketQty int, unitPrice string, bookingQty int, bookingStatus string) (models.Ticket, models.Booking) {
	t.Helper()

	price, err := decimal.NewFromString(unitPrice)
	require.NoError(t, err)

	ticket := models.Ticket{
		VendorEmail: "vendor@example.com",
		Title:       "Front Row",
		UnitPrice:   price,
		Quantity:    ticketQty,
		Status:      models.TicketApproved,
	}
	require.NoError(t, db.Create(&ticket).Error)

	booking := models.Booking{
		TicketID:        ticket.ID,
		UserEmail:       "buyer@example.com",
		VendorEmail:     ticket.VendorEmail,
		TicketTitle:     ticket.Title,
		UnitPrice:       ticket.UnitPrice,
		BookingQuantity: bookingQty,
		Status:          bookingStatus,
	}
	require.NoError(t, db.Create(&booking).Error)

	return ticket, booking
}

func TestSettleHappyPath(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettlementService(db)

	ticket, booking := seedTicketAndBooking(t, db, 10, "20", 3, models.BookingPending)

	result, err := svc.Settle(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.False(t, result.AlreadySettled)
	assert.NotEmpty(t, result.TransactionID)
	assert.True(t, result.Amount.Equal(decimal.NewFromInt(60)), "amount = %s", result.Amount)

	var gotTicket models.Ticket
	require.NoError(t, db.First(&gotTicket, "id = ?", ticket.ID).Error)
	assert.Equal(t, 7, gotTicket.Quantity)

	var gotBooking models.Booking
	require.NoError(t, db.First(&gotBooking, "id = ?", booking.ID).Error)
	assert.Equal(t, models.BookingPaid, gotBooking.Status)
	require.NotNil(t, gotBooking.PaidAt)

	var txns []models.Transaction
	require.NoError(t, db.Where("booking_id = ?", booking.ID).Find(&txns).Error)
	require.Len(t, txns, 1)
	assert.True(t, txns[0].Amount.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, "buyer@example.com", txns[0].UserEmail)
	assert.Equal(t, "Front Row", txns[0].TicketTitle)
}

func TestSettleIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettlementService(db)

	ticket, booking := seedTicketAndBooking(t, db, 10, "20", 3, models.BookingPending)

	first, err := svc.Settle(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.False(t, first.AlreadySettled)

	second, err := svc.Settle(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.True(t, second.AlreadySettled)

	var gotTicket models.Ticket
	require.NoError(t, db.First(&gotTicket, "id = ?", ticket.ID).Error)
	assert.Equal(t, 7, gotTicket.Quantity, "inventory must be decremented exactly once")

	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).Where("booking_id = ?", booking.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count, "exactly one transaction per paid booking")
}

func TestSettleInsufficientInventory(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettlementService(db)

	ticket, booking := seedTicketAndBooking(t, db, 2, "20", 5, models.BookingPending)

	_, err := svc.Settle(context.Background(), booking.ID)
	require.ErrorIs(t, err, ErrInsufficientInventory)

	var gotTicket models.Ticket
	require.NoError(t, db.First(&gotTicket, "id = ?", ticket.ID).Error)
	assert.Equal(t, 2, gotTicket.Quantity, "inventory must be untouched")

	var gotBooking models.Booking
	require.NoError(t, db.First(&gotBooking, "id = ?", booking.ID).Error)
	assert.Equal(t, models.BookingPending, gotBooking.Status)

	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSettleBookingNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettlementService(db)

	_, err := svc.Settle(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrBookingNotFound)
}

func TestSettleTicketMissing(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettlementService(db)

	_, booking := seedTicketAndBooking(t, db, 10, "20", 3, models.BookingPending)
	require.NoError(t, db.Where("title = ?", "Front Row").Delete(&models.Ticket{}).Error)

	_, err := svc.Settle(context.Background(), booking.ID)
	require.ErrorIs(t, err, ErrTicketNotFound)

	var gotBooking models.Booking
	require.NoError(t, db.First(&gotBooking, "id = ?", booking.ID).Error)
	assert.Equal(t, models.BookingPending, gotBooking.Status)
}

func TestSettleRejectedBooking(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettlementService(db)

	ticket, booking := seedTicketAndBooking(t, db, 10, "20", 3, models.BookingRejected)

	_, err := svc.Settle(context.Background(), booking.ID)
	require.ErrorIs(t, err, ErrBookingRejected)

	var gotTicket models.Ticket
	require.NoError(t, db.First(&gotTicket, "id = ?", ticket.ID).Error)
	assert.Equal(t, 10, gotTicket.Quantity)
}

func TestSettleConcurrentCallers(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettlementService(db)

	ticket, booking := seedTicketAndBooking(t, db, 10, "20", 3, models.BookingPending)

	const callers = 2
	results := make([]*SettlementResult, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Settle(context.Background(), booking.ID)
		}(i)
	}
	wg.Wait()

	settled := 0
	for i := 0; i < callers; i++ {
		switch {
		case errs[i] == nil && !results[i].AlreadySettled:
			settled++
		case errs[i] == nil && results[i].AlreadySettled:
		default:
			require.ErrorIs(t, errs[i], ErrSettlementConflict)
		}
	}
	assert.Equal(t, 1, settled, "exactly one caller settles")

	var gotTicket models.Ticket
	require.NoError(t, db.First(&gotTicket, "id = ?", ticket.ID).Error)
	assert.Equal(t, 7, gotTicket.Quantity, "inventory decremented exactly once")

	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).Where("booking_id = ?", booking.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestTransactionIDsAreUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := models.NewTransactionID(now)
		assert.False(t, seen[id], "duplicate transaction id %s", id)
		seen[id] = true
	}
}
