// internal/handlers/auth.go
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mantra-fm/backend/internal/auth"
	"github.com/mantra-fm/backend/internal/logger"
	"github.com/mantra-fm/backend/internal/mailer"
	"github.com/mantra-fm/backend/internal/models"
)

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func Register(db *gorm.DB, mail *mailer.Client, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))

		// Check if user exists
		var existingUser models.User
		if err := db.Where("email = ?", email).First(&existingUser).Error; err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}

		// Hash password
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}

		user := models.User{
			Email:    email,
			Password: string(hashedPassword),
			Name:     req.Name,
		}

		if err := db.Create(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
			return
		}

		verification := models.VerificationToken{
			UserID:    user.ID,
			Token:     uuid.New().String(),
			ExpiresAt: time.Now().Add(48 * time.Hour),
		}
		if err := db.Create(&verification).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create verification token"})
			return
		}

		// Mail delivery is best-effort; the token can be re-requested.
		if mail != nil {
			if err := mail.SendVerification(c.Request.Context(), user.Email, user.Name, verification.Token); err != nil {
				log.Warn("failed to send verification email", "userID", user.ID, "error", err)
			}
		} else {
			log.Warn("mailer not configured, skipping verification email", "userID", user.ID)
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "Registered, please confirm your email",
			"user":    user,
		})
	}
}

func VerifyEmail(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing token"})
			return
		}

		var verification models.VerificationToken
		if err := db.Where("token = ?", token).First(&verification).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invalid token"})
			return
		}

		if time.Now().After(verification.ExpiresAt) {
			c.JSON(http.StatusGone, gin.H{"error": "Token expired"})
			return
		}

		if err := db.Model(&models.User{}).Where("id = ?", verification.UserID).
			Update("verified", true).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify email"})
			return
		}
		db.Delete(&verification)

		c.JSON(http.StatusOK, gin.H{"message": "Email verified"})
	}
}

func Login(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// Find user
		var user models.User
		if err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		// Check password
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		if !user.Verified {
			c.JSON(http.StatusForbidden, gin.H{"error": "Email not verified"})
			return
		}

		// Generate token
		token, err := auth.GenerateToken(user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		c.SetCookie("auth_token", token, 86400, "/", "localhost:3000", false, true)

		c.JSON(http.StatusOK, AuthResponse{
			Token: token,
			User:  user,
		})
	}
}

func GetProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userID")

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		c.JSON(http.StatusOK, user)
	}
}

func Logout(c *gin.Context) {
	c.SetCookie("auth_token", "", -1, "/", "localhost:3000", false, true)
	c.Status(http.StatusOK)
}
