package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/devlog-app/devlog/config"
	"github.com/devlog-app/devlog/models"
	"github.com/devlog-app/devlog/utils"
)

// TagController serves the curated tag directory.
type TagController struct {
	db *gorm.DB
}

// NewTagController creates a TagController.
func NewTagController(db *gorm.DB) *TagController {
	return &TagController{db: db}
}

const tagDirectoryCacheKey = "cache:tags:directory"

// ListTags returns the full tag directory ordered by name. The directory is
// small and changes rarely, so it is cached as a whole.
func (t *TagController) ListTags(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes(tagDirectoryCacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var tags []models.Tag
	if err := t.db.Order("name ASC").Find(&tags).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to list tags")
		return
	}

	payload := gin.H{"items": tags}
	utils.CacheSetJSON(tagDirectoryCacheKey, wrapForCache(payload), config.CacheTTL())
	utils.Success(ctx, payload)
}

// GetTag returns a single tag together with its published posts.
func (t *TagController) GetTag(ctx *gin.Context) {
	slug := strings.ToLower(trimmedParam(ctx, "slug"))
	if slug == "" {
		utils.Error(ctx, http.StatusBadRequest, 40041, "missing tag slug")
		return
	}

	var tag models.Tag
	if err := t.db.Where("slug = ?", slug).First(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40440, "tag not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to load tag")
		return
	}

	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	q := t.db.Model(&models.Post{}).
		Joins("JOIN post_tags pt ON pt.post_id = posts.id").
		Where("pt.tag_id = ? AND posts.status = ?", tag.ID, models.PostStatusPublished)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to count tag posts")
		return
	}

	var posts []models.Post
	err := q.Preload("User").
		Order("posts.created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&posts).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to list tag posts")
		return
	}

	refs := make([]*models.Post, len(posts))
	for i := range posts {
		refs[i] = &posts[i]
	}
	if err := attachOrderedTags(t.db, refs); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load post tags")
		return
	}

	utils.Success(ctx, gin.H{
		"tag":        tag,
		"items":      posts,
		"pagination": paginationPayload(page, pageSize, total),
	})
}

// CreateTag adds a tag to the directory. Intended for curation tooling; the
// slug is derived from the name when absent.
func (t *TagController) CreateTag(ctx *gin.Context) {
	if _, ok := getUserID(ctx); !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var req struct {
		Name string `json:"name" binding:"required,min=1,max=64"`
		Slug string `json:"slug"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40042, "invalid request payload")
		return
	}

	name := utils.SanitizeStrict(strings.TrimSpace(req.Name))
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if slug == "" {
		slug = utils.Slugify(name)
	}

	tag := models.Tag{Slug: slug, Name: name}
	if err := t.db.Create(&tag).Error; err != nil {
		utils.Error(ctx, http.StatusConflict, 40902, "tag already exists")
		return
	}

	utils.InvalidateByPrefix(tagDirectoryCacheKey)
	utils.Success(ctx, gin.H{"tag": tag})
}
