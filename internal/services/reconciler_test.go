package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketbay/ticketbay/internal/models"
)

type stubGateway struct {
	paidSessions map[string]bool
}

func (s *stubGateway) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	return &CheckoutSession{ID: "cs_stub", URL: "https://checkout.example.com/cs_stub"}, nil
}

func (s *stubGateway) IsSessionPaid(ctx context.Context, sessionID string) (bool, error) {
	return s.paidSessions[sessionID], nil
}

func TestReconcilerSettlesPaidSessions(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettlementService(db)

	gateway := &stubGateway{paidSessions: map[string]bool{"cs_paid": true}}

	ticket, paidBooking := seedTicketAndBooking(t, db, 10, "20", 3, models.BookingPending)
	stale := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(&models.Booking{}).Where("id = ?", paidBooking.ID).
		Updates(map[string]interface{}{"checkout_session_id": "cs_paid", "created_at": stale}).Error)

	unpaidBooking := models.Booking{
		TicketID:          ticket.ID,
		UserEmail:         "other@example.com",
		VendorEmail:       ticket.VendorEmail,
		TicketTitle:       ticket.Title,
		UnitPrice:         ticket.UnitPrice,
		BookingQuantity:   2,
		Status:            models.BookingPending,
		CheckoutSessionID: "cs_unpaid",
	}
	require.NoError(t, db.Create(&unpaidBooking).Error)
	require.NoError(t, db.Model(&models.Booking{}).Where("id = ?", unpaidBooking.ID).
		Update("created_at", stale).Error)

	reconciler := NewReconciler(db, gateway, svc, time.Minute)
	reconciler.Sweep(context.Background())

	var gotPaid models.Booking
	require.NoError(t, db.First(&gotPaid, "id = ?", paidBooking.ID).Error)
	assert.Equal(t, models.BookingPaid, gotPaid.Status)

	var gotUnpaid models.Booking
	require.NoError(t, db.First(&gotUnpaid, "id = ?", unpaidBooking.ID).Error)
	assert.Equal(t, models.BookingPending, gotUnpaid.Status)

	var gotTicket models.Ticket
	require.NoError(t, db.First(&gotTicket, "id = ?", ticket.ID).Error)
	assert.Equal(t, 7, gotTicket.Quantity, "only the paid booking is settled")
}

func TestReconcilerSkipsFreshBookings(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettlementService(db)

	gateway := &stubGateway{paidSessions: map[string]bool{"cs_paid": true}}

	_, booking := seedTicketAndBooking(t, db, 10, "20", 3, models.BookingPending)
	require.NoError(t, db.Model(&models.Booking{}).Where("id = ?", booking.ID).
		Update("checkout_session_id", "cs_paid").Error)

	reconciler := NewReconciler(db, gateway, svc, time.Minute)
	reconciler.Sweep(context.Background())

	var got models.Booking
	require.NoError(t, db.First(&got, "id = ?", booking.ID).Error)
	assert.Equal(t, models.BookingPending, got.Status, "recent bookings are left for the webhook")
}
