// internal/handlers/soundfiles.go
package handlers

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mantra-fm/backend/internal/models"
	"github.com/mantra-fm/backend/internal/storage"
)

// ListSoundFiles returns the shared background audio library.
func ListSoundFiles(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var soundFiles []models.SoundFile
		if err := db.Order("name").Find(&soundFiles).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sound files"})
			return
		}
		c.JSON(http.StatusOK, soundFiles)
	}
}

// StreamSoundFile proxies the clip from object storage.
func StreamSoundFile(db *gorm.DB, minioClient *storage.MinIOClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		var soundFile models.SoundFile
		if err := db.First(&soundFile, c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Sound file not found"})
			return
		}

		obj, err := minioClient.GetObject(c.Request.Context(), soundFile.ObjectName)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get sound file"})
			return
		}
		defer obj.Close()

		c.DataFromReader(http.StatusOK, -1, "audio/mpeg", obj, nil)
	}
}

type RegisterSoundFileRequest struct {
	Name       string `json:"name" binding:"required"`
	SourcePath string `json:"source_path" binding:"required"`
}

// RegisterSoundFile lets an admin add a clip to the shared library from a
// path on the server, uploading it into the audio bucket.
func RegisterSoundFile(db *gorm.DB, minioClient *storage.MinIOClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		callerID := c.GetUint("userID")

		var caller models.User
		if err := db.First(&caller, callerID).Error; err != nil || !caller.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}

		var req RegisterSoundFileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ext := filepath.Ext(req.SourcePath)
		if ext != ".mp3" && ext != ".wav" && ext != ".ogg" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Only MP3, WAV and OGG files are allowed"})
			return
		}

		objectName := storage.GenerateObjectName("sounds", req.SourcePath)
		contentType := "audio/mpeg"
		switch ext {
		case ".wav":
			contentType = "audio/wav"
		case ".ogg":
			contentType = "audio/ogg"
		}

		if _, err := minioClient.UploadFile(c.Request.Context(), objectName, req.SourcePath, contentType); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload sound file"})
			return
		}

		soundFile := models.SoundFile{Name: req.Name, ObjectName: objectName}
		if err := db.Create(&soundFile).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save sound file"})
			return
		}

		c.JSON(http.StatusCreated, soundFile)
	}
}
