// cmd/server/main.go
package main

import (
	"github.com/gin-gonic/gin"

	"github.com/mantra-fm/backend/internal/config"
	"github.com/mantra-fm/backend/internal/database"
	"github.com/mantra-fm/backend/internal/deletion"
	"github.com/mantra-fm/backend/internal/handlers"
	"github.com/mantra-fm/backend/internal/logger"
	"github.com/mantra-fm/backend/internal/mailer"
	"github.com/mantra-fm/backend/internal/middleware"
	"github.com/mantra-fm/backend/internal/queuer"
	"github.com/mantra-fm/backend/internal/storage"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Initialize database
	db, err := database.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}

	// Auto-migrate models
	if err := database.MigrateDB(db); err != nil {
		log.Fatal("Failed to migrate database", "error", err)
	}

	minioClient, err := storage.NewMinIOClient()
	if err != nil {
		log.Fatal("Failed to initialize MinIO client", "error", err)
	}

	queuerClient, err := queuer.New(cfg.QueuerURL, log)
	if err != nil {
		log.Fatal("Failed to initialize queuer client", "error", err)
	}

	// Mailer and deletion guard are optional in development.
	mail, err := mailer.NewFromEnv(log)
	if err != nil {
		log.Warn("Mailer disabled", "error", err)
		mail = nil
	}

	var guard *deletion.Guard
	if cfg.RedisAddr != "" {
		guard, err = deletion.NewGuard(cfg.RedisAddr, log)
		if err != nil {
			log.Warn("Deletion guard disabled", "error", err)
			guard = nil
		}
	}

	deletionSvc := deletion.NewService(db, log, guard, cfg.OutputDir)

	// Initialize Gin router
	r := gin.Default()

	// CORS middleware
	r.Use(middleware.CORSMiddleware())

	// Public routes
	public := r.Group("/api")
	{
		public.POST("/register", handlers.Register(db, mail, log))
		public.GET("/verify", handlers.VerifyEmail(db))
		public.POST("/login", handlers.Login(db))
		public.POST("/logout", handlers.Logout)
	}

	// Protected routes
	protected := r.Group("/api")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("/profile", handlers.GetProfile(db))
		protected.DELETE("/users/me", handlers.DeleteAccount(deletionSvc))

		protected.POST("/mantras", handlers.CreateMantra(db, queuerClient, log))
		protected.GET("/mantras", handlers.ListMantras(db))
		protected.GET("/mantras/:id", handlers.GetMantra(db, minioClient))
		protected.GET("/mantras/:id/download", handlers.DownloadMantra(db, cfg.OutputDir))
		protected.POST("/mantras/:id/listen", handlers.RecordListen(db))
		protected.DELETE("/mantras/:id", handlers.DeleteMantra(deletionSvc))

		protected.GET("/soundfiles", handlers.ListSoundFiles(db))
		protected.GET("/soundfiles/:id/stream", handlers.StreamSoundFile(db, minioClient))

		protected.POST("/admin/soundfiles", handlers.RegisterSoundFile(db, minioClient))
		protected.DELETE("/admin/users/:id", handlers.AdminDeleteUser(db, deletionSvc))
	}

	log.Info("Server starting", "port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server", "error", err)
	}
}
