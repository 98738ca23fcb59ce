package controllers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/devlog-app/devlog/config"
	"github.com/devlog-app/devlog/models"
	"github.com/devlog-app/devlog/utils"
)

// UploadController stores cover images for posts and tags.
type UploadController struct {
	db *gorm.DB
}

// NewUploadController creates an UploadController.
func NewUploadController(db *gorm.DB) *UploadController {
	return &UploadController{db: db}
}

var allowedUploadFolders = map[string]bool{
	"posts": true,
	"tags":  true,
}

// Upload accepts a multipart image under the "file" field, targeted at a
// folder ("posts" or "tags"), stores it under a date-partitioned path and
// returns the public URL. The row starts unclaimed; creating or updating a
// post with the returned URL claims it, otherwise the orphan sweeper removes
// it after the configured TTL.
func (u *UploadController) Upload(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	cfg := config.Get()

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40060, "no file provided")
		return
	}

	folder := strings.ToLower(strings.TrimSpace(ctx.PostForm("folder")))
	if !allowedUploadFolders[folder] {
		utils.Error(ctx, http.StatusBadRequest, 40061, "folder must be 'posts' or 'tags'")
		return
	}

	maxBytes := int64(cfg.UploadMaxSizeMB) << 20
	if fileHeader.Size > maxBytes {
		utils.Error(ctx, http.StatusBadRequest, 40062, fmt.Sprintf("file exceeds %dMB limit", cfg.UploadMaxSizeMB))
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to read upload")
		return
	}
	defer src.Close()

	// Sniff the real content type; the declared header is advisory.
	head := make([]byte, 512)
	n, _ := io.ReadFull(src, head)
	contentType := http.DetectContentType(head[:n])
	if !strings.HasPrefix(contentType, "image/") {
		utils.Error(ctx, http.StatusBadRequest, 40063, "only image files are accepted")
		return
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to read upload")
		return
	}

	now := time.Now()
	name := uuid.NewString() + normalizedExt(fileHeader.Filename, contentType)
	relPath := filepath.Join(folder, now.Format("2006/01/02"), name)
	fullPath := filepath.Join(cfg.UploadDir, relPath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to store upload")
		return
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to store upload")
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(src, maxBytes)); err != nil {
		os.Remove(fullPath)
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to store upload")
		return
	}

	url := cfg.BaseURL + "/static/uploads/" + filepath.ToSlash(relPath)

	record := models.UploadedImage{
		FilePath: fullPath,
		URL:      url,
		Folder:   folder,
		UserID:   userID,
		ExpireAt: now.Add(time.Duration(cfg.UploadOrphanTTLMinute) * time.Minute),
	}
	if err := u.db.Create(&record).Error; err != nil {
		os.Remove(fullPath)
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to record upload")
		return
	}

	utils.Success(ctx, gin.H{"image": url})
}

// normalizedExt keeps the original extension when it matches the sniffed type
// and falls back to a type-derived one otherwise.
func normalizedExt(filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".bmp", ".ico":
		return ext
	}
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".img"
	}
}
