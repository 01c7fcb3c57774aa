package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"github.com/ticketbay/ticketbay/internal/helpers"
	"github.com/ticketbay/ticketbay/internal/middleware"
	"github.com/ticketbay/ticketbay/internal/models"
)

type BookingRequest struct {
	TicketID uuid.UUID `json:"ticket_id" binding:"required"`
	Quantity int       `json:"quantity" binding:"required,min=1"`
}

func CreateBooking(c *gin.Context) {
	var req BookingRequest
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

	var ticket models.Ticket
	if err := db.Where("id = ?", req.TicketID).First(&ticket).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Ticket not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving ticket.")
		return
	}

	if ticket.Status != models.TicketApproved {
		helpers.RespondWithError(c, http.StatusConflict, "Ticket is not open for booking.")
		return
	}

	if ticket.Quantity < req.Quantity {
		helpers.RespondWithError(c, http.StatusConflict, "Not enough tickets available.")
		return
	}

	booking := models.Booking{
		TicketID:        ticket.ID,
		UserEmail:       email.(string),
		VendorEmail:     ticket.VendorEmail,
		TicketTitle:     ticket.Title,
		UnitPrice:       ticket.UnitPrice,
		BookingQuantity: req.Quantity,
		Status:          models.BookingPending,
	}

	if err := db.Create(&booking).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create booking.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Booking created successfully.",
		"booking_id": booking.ID,
	})
}

func MyBookings(c *gin.Context) {
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

	var bookings []models.Booking
	err := db.Where("user_email = ?", email).
		Order("created_at DESC").
		Find(&bookings).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving bookings.")
		return
	}

	c.JSON(http.StatusOK, bookings)
}

func VendorBookings(c *gin.Context) {
	vendor, exists := c.Get("user")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Vendor not found in context.")
		return
	}
	vendorUser := vendor.(models.User)

	db := middleware.GetDB(c)
	if db == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}

	var bookings []models.Booking
	err := db.Where("vendor_email = ?", vendorUser.Email).
		Order("created_at DESC").
		Find(&bookings).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving bookings.")
		return
	}

	c.JSON(http.StatusOK, bookings)
}

func GetBooking(c *gin.Context) {
	bookingID := c.Param("id")

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

	if booking.UserEmail != email && booking.VendorEmail != email && !isAdmin(db, email.(string)) {
		helpers.RespondWithError(c, http.StatusForbidden, "You don't have permission to view this booking.")
		return
	}

	c.JSON(http.StatusOK, booking)
}

func AcceptBooking(c *gin.Context) {
	transitionBooking(c, models.BookingAccepted, []string{models.BookingPending})
}

func RejectBooking(c *gin.Context) {
	transitionBooking(c, models.BookingRejected, []string{models.BookingPending, models.BookingAccepted})
}

func transitionBooking(c *gin.Context, target string, from []string) {
	bookingID := c.Param("id")

	vendor, exists := c.Get("user")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Vendor not found in context.")
		return
	}
	vendorUser := vendor.(models.User)

	db := middleware.GetDB(c)
	if db == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}

	result := db.Model(&models.Booking{}).
		Where("id = ? AND vendor_email = ? AND status IN ?", bookingID, vendorUser.Email, from).
		Update("status", target)
	if result.Error != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update booking.")
		return
	}

	if result.RowsAffected == 0 {
		helpers.RespondWithError(c, http.StatusConflict, "Booking not found, not yours, or cannot transition.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Booking " + target + ".",
	})
}

// BookingPass renders a paid booking as a signed QR entry pass.
func BookingPass(c *gin.Context) {
	bookingID := c.Param("id")

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
		helpers.RespondWithError(c, http.StatusForbidden, "You don't have permission to view this pass.")
		return
	}

	if booking.Status != models.BookingPaid {
		helpers.RespondWithError(c, http.StatusConflict, "Booking is not paid yet.")
		return
	}

	if booking.PassUsed {
		helpers.RespondWithError(c, http.StatusForbidden, "Pass already used.")
		return
	}

	passData := helpers.PassData(booking.ID, booking.TicketID, booking.UserEmail, os.Getenv("JWT_SECRET"))

	qrImage, err := qrcode.Encode(passData, qrcode.Medium, 256)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate pass.")
		return
	}

	c.Data(http.StatusOK, "image/png", qrImage)
}

// ValidatePass lets the vendor check a scanned pass at the door. A valid
// pass is consumed on first validation.
func ValidatePass(c *gin.Context) {
	vendor, exists := c.Get("user")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Vendor not found in context.")
		return
	}
	vendorUser := vendor.(models.User)

	var req struct {
		PassData string `json:"pass_data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid request payload.")
		return
	}

	db := middleware.GetDB(c)
	if db == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}

	bookingID, err := helpers.ExtractBookingIDFromPass(req.PassData)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid pass format.")
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

	if !helpers.ValidatePassSignature(booking.ID, booking.TicketID, booking.UserEmail, os.Getenv("JWT_SECRET"), req.PassData) {
		helpers.RespondWithError(c, http.StatusForbidden, "Invalid pass signature.")
		return
	}

	if booking.VendorEmail != vendorUser.Email {
		helpers.RespondWithError(c, http.StatusForbidden, "You don't have permission to validate this pass.")
		return
	}

	if booking.Status != models.BookingPaid {
		helpers.RespondWithError(c, http.StatusConflict, "Booking is not paid.")
		return
	}

	// Conditional update so a pass scanned twice concurrently is consumed
	// exactly once.
	result := db.Model(&models.Booking{}).
		Where("id = ? AND pass_used = ?", booking.ID, false).
		Update("pass_used", true)
	if result.Error != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to validate pass.")
		return
	}
	if result.RowsAffected == 0 {
		helpers.RespondWithError(c, http.StatusForbidden, "Pass already used.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Pass validated successfully.",
		"booking": gin.H{
			"ticket_title": booking.TicketTitle,
			"user_email":   booking.UserEmail,
			"quantity":     booking.BookingQuantity,
		},
	})
}

func isAdmin(db *gorm.DB, email string) bool {
	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		return false
	}
	return user.Role == models.RoleAdmin
}
