// internal/handlers/users.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mantra-fm/backend/internal/deletion"
	"github.com/mantra-fm/backend/internal/models"
)

type DeleteAccountRequest struct {
	BenevolentUser bool `json:"benevolentUser"`
}

func writeDeletionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, deletion.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, deletion.ErrDeletionInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "Deletion already in progress"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
	}
}

// DeleteAccount removes the calling user's own account. With benevolentUser
// set, public mantras survive and the account is anonymized in place.
func DeleteAccount(svc *deletion.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userID")

		var req DeleteAccountRequest
		_ = c.ShouldBindJSON(&req)

		result, err := svc.DeleteUser(c.Request.Context(), userID, req.BenevolentUser)
		if err != nil {
			writeDeletionError(c, err)
			return
		}

		c.SetCookie("auth_token", "", -1, "/", "localhost:3000", false, true)
		c.JSON(http.StatusOK, result)
	}
}

// AdminDeleteUser lets an admin remove any user by ID.
func AdminDeleteUser(db *gorm.DB, svc *deletion.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		callerID := c.GetUint("userID")

		var caller models.User
		if err := db.First(&caller, callerID).Error; err != nil || !caller.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}

		var uri struct {
			ID uint `uri:"id" binding:"required"`
		}
		if err := c.ShouldBindUri(&uri); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}

		var req DeleteAccountRequest
		_ = c.ShouldBindJSON(&req)

		result, err := svc.DeleteUser(c.Request.Context(), uri.ID, req.BenevolentUser)
		if err != nil {
			writeDeletionError(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
