package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ticketbay/ticketbay/internal/helpers"
	"github.com/ticketbay/ticketbay/internal/middleware"
	"github.com/ticketbay/ticketbay/internal/models"
)

func ListUsers(c *gin.Context) {
	db := middleware.GetDB(c)
	if db == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}

	var users []models.User
	if err := db.Order("created_at DESC").Find(&users).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving users.")
		return
	}

	c.JSON(http.StatusOK, users)
}

type RoleUpdateRequest struct {
	Role string `json:"role" binding:"required"`
}

func UpdateUserRole(c *gin.Context) {
	userID := c.Param("id")

	var req RoleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	if req.Role != models.RoleUser && req.Role != models.RoleVendor && req.Role != models.RoleAdmin {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid role.")
		return
	}

	db := middleware.GetDB(c)
	if db == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}

	result := db.Model(&models.User{}).Where("id = ?", userID).Update("role", req.Role)
	if result.Error != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update role.")
		return
	}
	if result.RowsAffected == 0 {
		helpers.RespondWithError(c, http.StatusNotFound, "User not found.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Role updated successfully."})
}

// FlagVendorFraud marks a vendor as fraudulent and rejects all of their
// tickets. The cascade is best-effort: the flag is authoritative, the bulk
// reject is retried on the next flagging if it fails.
func FlagVendorFraud(c *gin.Context) {
	vendorID := c.Param("id")

	db := middleware.GetDB(c)
	if db == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}

	var vendor models.User
	if err := db.Where("id = ? AND role = ?", vendorID, models.RoleVendor).First(&vendor).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Vendor not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving vendor.")
		return
	}

	if err := db.Model(&vendor).Update("is_fraud", true).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to flag vendor.")
		return
	}

	rejected := db.Model(&models.Ticket{}).
		Where("vendor_id = ?", vendor.ID).
		Update("status", models.TicketRejected)
	if rejected.Error != nil {
		logrus.WithField("vendor_id", vendor.ID).WithError(rejected.Error).
			Error("fraud cascade: rejecting vendor tickets")
	}

	c.JSON(http.StatusOK, gin.H{
		"message":          "Vendor flagged as fraud.",
		"tickets_rejected": rejected.RowsAffected,
	})
}

func ApproveTicket(c *gin.Context) {
	moderateTicket(c, models.TicketApproved)
}

func RejectTicket(c *gin.Context) {
	moderateTicket(c, models.TicketRejected)
}

func moderateTicket(c *gin.Context, status string) {
	ticketID := c.Param("id")

	db := middleware.GetDB(c)
	if db == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}

	result := db.Model(&models.Ticket{}).Where("id = ?", ticketID).Update("status", status)
	if result.Error != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update ticket.")
		return
	}
	if result.RowsAffected == 0 {
		helpers.RespondWithError(c, http.StatusNotFound, "Ticket not found.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Ticket " + status + "."})
}
