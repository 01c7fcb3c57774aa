package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ticketbay/ticketbay/internal/helpers"
	"github.com/ticketbay/ticketbay/internal/middleware"
	"github.com/ticketbay/ticketbay/internal/models"
)

const (
	defaultLatestLimit = 8
	maxLatestLimit     = 100
)

type TicketRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
	Quantity    int             `json:"quantity" binding:"required,min=1"`
}

func CreateTicket(c *gin.Context) {
	var req TicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	if req.UnitPrice.LessThanOrEqual(decimal.Zero) {
		helpers.RespondWithError(c, http.StatusBadRequest, "Unit price must be positive.")
		return
	}

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

	ticket := models.Ticket{
		VendorID:    vendorUser.ID,
		VendorEmail: vendorUser.Email,
		Title:       req.Title,
		Description: req.Description,
		UnitPrice:   req.UnitPrice,
		Quantity:    req.Quantity,
		Status:      models.TicketPending,
	}

	if err := db.Create(&ticket).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create ticket.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Ticket created successfully.",
		"ticket_id": ticket.ID,
	})
}

func ListTickets(c *gin.Context) {
	db := middleware.GetDB(c)
	if db == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}

	query := db.Model(&models.Ticket{})
	if email := c.Query("email"); email != "" {
		query = query.Where("vendor_email = ?", email)
	}

	var tickets []models.Ticket
	if err := query.Order("created_at DESC").Find(&tickets).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving tickets.")
		return
	}

	c.JSON(http.StatusOK, tickets)
}

func LatestTickets(c *gin.Context) {
	db := middleware.GetDB(c)
	if db == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}

	limit := defaultLatestLimit
	if v := c.Query("limit"); v != "" {
		n, err := helpers.StringToInt(v)
		if err != nil || n < 1 {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid limit.")
			return
		}
		if n > maxLatestLimit {
			n = maxLatestLimit
		}
		limit = n
	}

	var tickets []models.Ticket
	err := db.Where("status = ?", models.TicketApproved).
		Order("created_at DESC").
		Limit(limit).
		Find(&tickets).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving tickets.")
		return
	}

	c.JSON(http.StatusOK, tickets)
}

func GetTicket(c *gin.Context) {
	ticketID := c.Param("id")

	db := middleware.GetDB(c)
	if db == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}

	var ticket models.Ticket
	if err := db.Where("id = ?", ticketID).First(&ticket).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Ticket not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving ticket.")
		return
	}

	c.JSON(http.StatusOK, ticket)
}

func DeleteTicket(c *gin.Context) {
	ticketID := c.Param("id")

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

	result := db.Where("id = ? AND vendor_id = ?", ticketID, vendorUser.ID).Delete(&models.Ticket{})
	if result.Error != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to delete ticket.")
		return
	}

	if result.RowsAffected == 0 {
		helpers.RespondWithError(c, http.StatusForbidden, "Ticket not found or you don't have permission to delete.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Ticket deleted successfully.",
	})
}
