// internal/handlers/mantras.go
package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mantra-fm/backend/internal/deletion"
	"github.com/mantra-fm/backend/internal/logger"
	"github.com/mantra-fm/backend/internal/models"
	"github.com/mantra-fm/backend/internal/queuer"
	"github.com/mantra-fm/backend/internal/storage"
)

type CreateMantraRequest struct {
	Title        string `json:"title" binding:"required"`
	Text         string `json:"text" binding:"required"`
	Visibility   string `json:"visibility" binding:"omitempty,oneof=public private"`
	VoiceID      string `json:"voice_id"`
	SoundFileIDs []uint `json:"sound_file_ids"`
}

// CreateMantra persists the mantra metadata and forwards the audio job to
// the queuer. The composed file lands on disk later; this endpoint only
// records the request.
func CreateMantra(db *gorm.DB, q *queuer.Client, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userID")

		var req CreateMantraRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Visibility == "" {
			req.Visibility = models.VisibilityPrivate
		}

		if len(req.SoundFileIDs) > 0 {
			var count int64
			if err := db.Model(&models.SoundFile{}).Where("id IN ?", req.SoundFileIDs).Count(&count).Error; err != nil || count != int64(len(req.SoundFileIDs)) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown sound file"})
				return
			}
		}

		mantra := models.Mantra{
			Title:      req.Title,
			Text:       req.Text,
			Visibility: req.Visibility,
			VoiceID:    req.VoiceID,
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&mantra).Error; err != nil {
				return err
			}
			if err := tx.Create(&models.UserMantra{UserID: userID, MantraID: mantra.ID}).Error; err != nil {
				return err
			}
			for _, sfID := range req.SoundFileIDs {
				if err := tx.Create(&models.MantraSoundFile{MantraID: mantra.ID, SoundFileID: sfID}).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create mantra"})
			return
		}

		entry := models.QueueEntry{UserID: userID, MantraID: mantra.ID, Status: "pending"}
		if err := db.Create(&entry).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue processing"})
			return
		}

		job := queuer.Job{
			MantraID:     mantra.ID,
			UserID:       userID,
			Text:         req.Text,
			VoiceID:      req.VoiceID,
			SoundFileIDs: req.SoundFileIDs,
		}
		if err := q.SubmitJob(c.Request.Context(), job); err != nil {
			log.Error("queuer submission failed", "mantraID", mantra.ID, "error", err)
			db.Model(&entry).Update("status", "failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "Audio processing unavailable"})
			return
		}
		db.Model(&entry).Update("status", "processing")

		c.JSON(http.StatusCreated, gin.H{
			"mantra":   mantra,
			"queue_id": entry.ID,
			"status":   "processing",
		})
	}
}

func ListMantras(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userID")

		var mantras []models.Mantra
		if err := db.
			Joins("JOIN user_mantras ON user_mantras.mantra_id = mantras.id").
			Where("user_mantras.user_id = ?", userID).
			Order("mantras.created_at DESC").
			Find(&mantras).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch mantras"})
			return
		}

		c.JSON(http.StatusOK, mantras)
	}
}

func GetMantra(db *gorm.DB, minioClient *storage.MinIOClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userID")

		mantra, ok := ownedMantra(c, db, userID)
		if !ok {
			return
		}

		var soundFiles []models.SoundFile
		if err := db.
			Joins("JOIN mantra_sound_files ON mantra_sound_files.sound_file_id = sound_files.id").
			Where("mantra_sound_files.mantra_id = ?", mantra.ID).
			Find(&soundFiles).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sound files"})
			return
		}

		sounds := make([]gin.H, 0, len(soundFiles))
		for _, sf := range soundFiles {
			entry := gin.H{"id": sf.ID, "name": sf.Name}
			if minioClient != nil {
				if url, err := minioClient.GetPresignedURL(c.Request.Context(), sf.ObjectName); err == nil {
					entry["url"] = url
				}
			}
			sounds = append(sounds, entry)
		}

		c.JSON(http.StatusOK, gin.H{
			"mantra":      mantra,
			"sound_files": sounds,
		})
	}
}

// DownloadMantra serves the composed audio from local disk, falling back to
// the configured output directory when the mantra has no stored path.
func DownloadMantra(db *gorm.DB, outputDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userID")

		mantra, ok := ownedMantra(c, db, userID)
		if !ok {
			return
		}

		if mantra.Filename == "" {
			c.JSON(http.StatusConflict, gin.H{"error": "Audio not ready"})
			return
		}

		dir := mantra.FilePath
		if dir == "" {
			dir = outputDir
		}
		path := filepath.Join(dir, mantra.Filename)
		if _, err := os.Stat(path); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Audio file missing"})
			return
		}

		c.Header("Content-Disposition", "attachment; filename="+mantra.Filename)
		c.File(path)
	}
}

// DeleteMantra removes a single owned mantra, its file and its association
// rows through the same cascade used by account deletion.
func DeleteMantra(svc *deletion.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userID")

		var uri struct {
			ID uint `uri:"id" binding:"required"`
		}
		if err := c.ShouldBindUri(&uri); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid mantra id"})
			return
		}

		if err := svc.DeleteMantra(c.Request.Context(), userID, uri.ID); err != nil {
			if errors.Is(err, deletion.ErrMantraNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Mantra not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete mantra"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Mantra deleted"})
	}
}

type ListenRequest struct {
	Favorite *bool `json:"favorite"`
}

// RecordListen bumps the listen counter for the (user, mantra) pair, and
// optionally flips the favorite flag.
func RecordListen(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userID")

		var uri struct {
			ID uint `uri:"id" binding:"required"`
		}
		if err := c.ShouldBindUri(&uri); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid mantra id"})
			return
		}

		var req ListenRequest
		_ = c.ShouldBindJSON(&req)

		var mantra models.Mantra
		if err := db.First(&mantra, uri.ID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Mantra not found"})
			return
		}

		var listen models.Listen
		err := db.Where("user_id = ? AND mantra_id = ?", userID, uri.ID).First(&listen).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			listen = models.Listen{UserID: userID, MantraID: uri.ID, ListenCount: 1}
			if req.Favorite != nil {
				listen.Favorite = *req.Favorite
			}
			err = db.Create(&listen).Error
		case err == nil:
			updates := map[string]interface{}{"listen_count": listen.ListenCount + 1}
			if req.Favorite != nil {
				updates["favorite"] = *req.Favorite
			}
			err = db.Model(&models.Listen{}).
				Where("user_id = ? AND mantra_id = ?", userID, uri.ID).
				Updates(updates).Error
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record listen"})
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// ownedMantra loads the mantra and checks ownership, writing the error
// response itself when the lookup fails.
func ownedMantra(c *gin.Context, db *gorm.DB, userID uint) (*models.Mantra, bool) {
	var mantra models.Mantra
	if err := db.
		Joins("JOIN user_mantras ON user_mantras.mantra_id = mantras.id").
		Where("mantras.id = ? AND user_mantras.user_id = ?", c.Param("id"), userID).
		First(&mantra).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Mantra not found"})
		return nil, false
	}
	return &mantra, true
}
