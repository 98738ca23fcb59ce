package utils

import (
	"os"
	"time"

	"github.com/devlog-app/devlog/config"
	"github.com/devlog-app/devlog/models"
)

// StartOrphanImageCleaner launches a background goroutine that periodically
// deletes uploaded cover images that were never claimed by a post create or
// update before their expiry. Best-effort; failures are logged and retried on
// the next tick.
func StartOrphanImageCleaner(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		for {
			// Sleep first to avoid racing the database during startup.
			time.Sleep(interval)
			db := config.DB()
			if db == nil {
				continue
			}
			var items []models.UploadedImage
			err := db.Where("post_slug = '' AND expire_at <= ?", time.Now()).
				Limit(100).Find(&items).Error
			if err != nil {
				Sugar.Warnf("orphan image cleaner query failed: %v", err)
				continue
			}
			for _, it := range items {
				if it.FilePath != "" {
					_ = os.Remove(it.FilePath)
				}
				// Remove the row regardless of file deletion outcome.
				if err := db.Delete(&models.UploadedImage{}, it.ID).Error; err != nil {
					Sugar.Warnf("orphan image cleaner delete row failed: %v", err)
				}
			}
			if len(items) > 0 {
				Sugar.Infof("orphan image cleaner removed %d expired uploads", len(items))
			}
		}
	}()
}
