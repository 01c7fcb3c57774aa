package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ticketbay/ticketbay/config"
	"github.com/ticketbay/ticketbay/internal/middleware"
	"github.com/ticketbay/ticketbay/internal/models"
)

func newHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, config.Migrate(db))
	return db
}

// authAs injects the identity that JWTAuthMiddleware and RequireRole would
// normally resolve, so handlers can be exercised without minting tokens.
func authAs(user models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("email", user.Email)
		c.Set("user_id", user.ID)
		c.Set("user", user)
		c.Next()
	}
}

func TestFlagVendorFraudCascadesToTickets(t *testing.T) {
	db := newHandlerTestDB(t)

	vendor := models.User{Email: "vendor@example.com", Password: "x", Role: models.RoleVendor}
	require.NoError(t, db.Create(&vendor).Error)

	for _, title := range []string{"A", "B", "C"} {
		ticket := models.Ticket{
			VendorID:    vendor.ID,
			VendorEmail: vendor.Email,
			Title:       title,
			UnitPrice:   decimal.NewFromInt(10),
			Quantity:    5,
			Status:      models.TicketApproved,
		}
		require.NoError(t, db.Create(&ticket).Error)
	}

	other := models.User{Email: "clean@example.com", Password: "x", Role: models.RoleVendor}
	require.NoError(t, db.Create(&other).Error)
	otherTicket := models.Ticket{
		VendorID:    other.ID,
		VendorEmail: other.Email,
		Title:       "Untouched",
		UnitPrice:   decimal.NewFromInt(10),
		Quantity:    5,
		Status:      models.TicketApproved,
	}
	require.NoError(t, db.Create(&otherTicket).Error)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.DatabaseMiddleware(db))
	r.PATCH("/vendors/:id/fraud", FlagVendorFraud)

	req := httptest.NewRequest(http.MethodPatch, "/vendors/"+vendor.ID.String()+"/fraud", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var gotVendor models.User
	require.NoError(t, db.First(&gotVendor, "id = ?", vendor.ID).Error)
	assert.True(t, gotVendor.IsFraud)

	var rejected int64
	require.NoError(t, db.Model(&models.Ticket{}).
		Where("vendor_id = ? AND status = ?", vendor.ID, models.TicketRejected).
		Count(&rejected).Error)
	assert.Equal(t, int64(3), rejected, "all of the vendor's tickets are rejected")

	var gotOther models.Ticket
	require.NoError(t, db.First(&gotOther, "id = ?", otherTicket.ID).Error)
	assert.Equal(t, models.TicketApproved, gotOther.Status, "other vendors are unaffected")
}

func TestUpdateUserRole(t *testing.T) {
	db := newHandlerTestDB(t)

	user := models.User{Email: "user@example.com", Password: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(&user).Error)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.DatabaseMiddleware(db))
	r.PATCH("/users/:id/role", UpdateUserRole)

	body := strings.NewReader(`{"role":"vendor"}`)
	req := httptest.NewRequest(http.MethodPatch, "/users/"+user.ID.String()+"/role", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.User
	require.NoError(t, db.First(&got, "id = ?", user.ID).Error)
	assert.Equal(t, models.RoleVendor, got.Role)
}

func TestUpdateUserRoleRejectsUnknownRole(t *testing.T) {
	db := newHandlerTestDB(t)

	user := models.User{Email: "user@example.com", Password: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(&user).Error)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.DatabaseMiddleware(db))
	r.PATCH("/users/:id/role", UpdateUserRole)

	body := strings.NewReader(`{"role":"superuser"}`)
	req := httptest.NewRequest(http.MethodPatch, "/users/"+user.ID.String()+"/role", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
