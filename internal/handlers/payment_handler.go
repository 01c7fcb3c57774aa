package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"gorm.io/gorm"

	"github.com/ticketbay/ticketbay/internal/helpers"
	"github.com/ticketbay/ticketbay/internal/middleware"
	"github.com/ticketbay/ticketbay/internal/models"
	"github.com/ticketbay/ticketbay/internal/monitoring"
	"github.com/ticketbay/ticketbay/internal/services"
)

const maxWebhookBody = 65536

type PaymentHandler struct {
	gateway       services.PaymentGateway
	settlement    *services.SettlementService
	webhookSecret string
}

func NewPaymentHandler(gateway services.PaymentGateway, settlement *services.SettlementService, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{
		gateway:       gateway,
		settlement:    settlement,
		webhookSecret: webhookSecret,
	}
}

type CheckoutRequest struct {
	BookingID uuid.UUID `json:"booking_id" binding:"required"`
}

func (h *PaymentHandler) CreateCheckoutSession(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	email, exists := c.Get("email")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Email not found in token.")
		return
	}

	db := middleware.GetDB(c)
	if db == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}

	var booking models.Booking
	if err := db.Where("id = ?", req.BookingID).First(&booking).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Booking not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving booking.")
		return
	}

	if booking.UserEmail != email {
		helpers.RespondWithError(c, http.StatusForbidden, "You don't have permission to pay for this booking.")
		return
	}

	if booking.Status == models.BookingPaid {
		helpers.RespondWithError(c, http.StatusConflict, "Booking is already paid.")
		return
	}
	if booking.Status == models.BookingRejected {
		helpers.RespondWithError(c, http.StatusConflict, "Booking has been rejected.")
		return
	}

	session, err := h.gateway.CreateCheckoutSession(c.Request.Context(), services.CheckoutParams{
		BookingID:       booking.ID,
		TicketID:        booking.TicketID,
		TicketTitle:     booking.TicketTitle,
		UserEmail:       booking.UserEmail,
		UnitPrice:       booking.UnitPrice,
		BookingQuantity: booking.BookingQuantity,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidAmount) {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid payment amount.")
			return
		}
		helpers.RespondWithError(c, http.StatusBadGateway, "Failed to create checkout session.")
		return
	}

	if err := db.Model(&models.Booking{}).
		Where("id = ?", booking.ID).
		Update("checkout_session_id", session.ID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to record checkout session.")
		return
	}

	monitoring.CheckoutSessionCreated()

	c.JSON(http.StatusOK, gin.H{
		"url": session.URL,
	})
}

// PayBooking is the advisory endpoint the client hits after the gateway
// redirect. Settlement only runs once the gateway confirms the session was
// paid; the client alone cannot force it.
func (h *PaymentHandler) PayBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid booking ID.")
		return
	}

	email, exists := c.Get("email")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Email not found in token.")
		return
	}

	db := middleware.GetDB(c)
	if db == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}

	var booking models.Booking
	if err := db.Where("id = ?", bookingID).First(&booking).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Booking not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving booking.")
		return
	}

	if booking.UserEmail != email {
		helpers.RespondWithError(c, http.StatusForbidden, "You don't have permission to pay for this booking.")
		return
	}

	if booking.Status == models.BookingPaid {
		c.JSON(http.StatusOK, gin.H{"success": true, "status": models.BookingPaid})
		return
	}

	if booking.CheckoutSessionID == "" {
		helpers.RespondWithError(c, http.StatusConflict, "No checkout session for this booking.")
		return
	}

	paid, err := h.gateway.IsSessionPaid(c.Request.Context(), booking.CheckoutSessionID)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadGateway, "Failed to check payment status.")
		return
	}

	if !paid {
		c.JSON(http.StatusOK, gin.H{"success": false, "status": booking.Status})
		return
	}

	result, err := h.settlement.Settle(c.Request.Context(), booking.ID)
	if err != nil {
		respondSettlementError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// Webhook receives signed server-to-server events from the gateway. This is
// the authoritative settlement trigger.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			helpers.RespondWithError(c, http.StatusRequestEntityTooLarge, "Event payload too large.")
			return
		}
		helpers.RespondWithError(c, http.StatusBadRequest, "Failed to read request body.")
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		c.GetHeader("Stripe-Signature"),
		h.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid webhook signature.")
		return
	}

	monitoring.WebhookEvent(string(event.Type))

	if event.Type != "checkout.session.completed" {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Malformed event payload.")
		return
	}

	bookingID, err := uuid.Parse(session.Metadata["bookingId"])
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Event does not reference a booking.")
		return
	}

	if _, err := h.settlement.Settle(c.Request.Context(), bookingID); err != nil {
		if errors.Is(err, services.ErrUpstream) {
			// Let the gateway retry transient failures.
			helpers.RespondWithError(c, http.StatusInternalServerError, "Settlement failed, retry later.")
			return
		}
		// Business failures will not change on retry; acknowledge and log.
		logrus.WithField("booking_id", bookingID).WithError(err).
			Error("webhook settlement rejected")
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func respondSettlementError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrBookingNotFound), errors.Is(err, services.ErrTicketNotFound):
		helpers.RespondWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInsufficientInventory):
		helpers.RespondWithError(c, http.StatusConflict, "Not enough tickets remaining.")
	case errors.Is(err, services.ErrSettlementConflict), errors.Is(err, services.ErrBookingRejected):
		helpers.RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidAmount):
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
	default:
		helpers.RespondWithError(c, http.StatusInternalServerError, "Settlement failed.")
	}
}
