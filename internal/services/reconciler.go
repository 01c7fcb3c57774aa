package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ticketbay/ticketbay/internal/models"
)

const reconcileBatchSize = 100

// Reconciler recovers payments whose completion webhook never arrived. It
// periodically scans unpaid bookings that have a checkout session, asks the
// gateway whether the session was paid and settles the ones that were.
// Settlement is idempotent, so racing a late webhook is harmless.
type Reconciler struct {
	db         *gorm.DB
	gateway    PaymentGateway
	settlement *SettlementService
	interval   time.Duration
	minAge     time.Duration
}

func NewReconciler(db *gorm.DB, gateway PaymentGateway, settlement *SettlementService, interval time.Duration) *Reconciler {
	return &Reconciler{
		db:         db,
		gateway:    gateway,
		settlement: settlement,
		interval:   interval,
		minAge:     time.Minute,
	}
}

func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

func (r *Reconciler) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.minAge)

	var bookings []models.Booking
	err := r.db.WithContext(ctx).
		Where("checkout_session_id <> '' AND status IN ? AND created_at < ?",
			[]string{models.BookingPending, models.BookingAccepted}, cutoff).
		Limit(reconcileBatchSize).
		Find(&bookings).Error
	if err != nil {
		logrus.WithError(err).Error("reconciler: listing unsettled bookings")
		return
	}

	for _, booking := range bookings {
		paid, err := r.gateway.IsSessionPaid(ctx, booking.CheckoutSessionID)
		if err != nil {
			logrus.WithField("booking_id", booking.ID).WithError(err).
				Warn("reconciler: checking session status")
			continue
		}
		if !paid {
			continue
		}

		if _, err := r.settlement.Settle(ctx, booking.ID); err != nil {
			logrus.WithField("booking_id", booking.ID).WithError(err).
				Warn("reconciler: settlement failed")
		}
	}
}
