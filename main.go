package main

import (
	"time"

	"github.com/joho/godotenv"

	"github.com/devlog-app/devlog/config"
	"github.com/devlog-app/devlog/models"
	"github.com/devlog-app/devlog/routes"
	"github.com/devlog-app/devlog/utils"
)

func main() {
	// Load .env if present; real environment always wins.
	_ = godotenv.Load()

	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Post{},
		&models.Tag{},
		&models.PostTag{},
		&models.UploadedImage{},
		&models.PostView{},
	)

	// Register the explicit join model so the tag association carries position.
	if err := db.SetupJoinTable(&models.Post{}, "Tags", &models.PostTag{}); err != nil {
		utils.Sugar.Fatalf("failed to set up post_tags join table: %v", err)
	}

	r := routes.SetupRouter(db)

	// Sweep cover images that were uploaded but never attached to a post.
	utils.StartOrphanImageCleaner(5 * time.Minute)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
