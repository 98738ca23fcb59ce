package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/devlog-app/devlog/config"
	"github.com/devlog-app/devlog/models"
	"github.com/devlog-app/devlog/render"
	"github.com/devlog-app/devlog/utils"
)

// maxPostTags caps how many tags a post may carry. Extra tags in the payload
// are dropped, keeping the first ones.
const maxPostTags = 4

// PostController handles post authoring and public browsing endpoints.
type PostController struct {
	db *gorm.DB
}

// NewPostController creates a PostController.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

// postInput is the write payload shared by create and update. An empty image
// on update means "leave the cover image unchanged".
type postInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Image       string   `json:"image"`
	Status      string   `json:"status"`
	Tags        []string `json:"tags"`
}

// normalizePostInput trims and sanitizes the payload, defaults the status to
// DRAFTED, deduplicates tag slugs preserving order and drops tags beyond the
// cap. A post must carry a title or content to be storable.
func normalizePostInput(in postInput) (postInput, error) {
	in.Title = utils.SanitizeStrict(strings.TrimSpace(in.Title))
	in.Description = utils.SanitizeStrict(strings.TrimSpace(in.Description))
	in.Content = utils.Sanitize(in.Content)
	in.Image = strings.TrimSpace(in.Image)

	if in.Status == "" {
		in.Status = models.PostStatusDrafted
	}
	in.Status = strings.ToUpper(strings.TrimSpace(in.Status))
	if !models.ValidPostStatus(in.Status) {
		return in, fmt.Errorf("status must be %s or %s", models.PostStatusDrafted, models.PostStatusPublished)
	}

	if in.Title == "" && strings.TrimSpace(in.Content) == "" {
		return in, errors.New("a post needs a title or content")
	}

	seen := make(map[string]struct{}, len(in.Tags))
	tags := make([]string, 0, len(in.Tags))
	for _, t := range in.Tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
		if len(tags) == maxPostTags {
			break
		}
	}
	in.Tags = tags
	return in, nil
}

// CreatePost stores a new post for the authenticated user.
func (p *PostController) CreatePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var req postInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	input, err := normalizePostInput(req)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, err.Error())
		return
	}

	tags, err := p.resolveTags(input.Tags)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, err.Error())
		return
	}

	post := models.Post{
		Slug:        utils.NewPostSlug(input.Title),
		UserID:      userID,
		Title:       input.Title,
		Description: input.Description,
		Content:     input.Content,
		Image:       input.Image,
		Status:      input.Status,
	}

	err = p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Tags", "User").Create(&post).Error; err != nil {
			return err
		}
		return replacePostTags(tx, post.ID, tags)
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create post")
		return
	}

	p.claimImage(input.Image, userID, post.Slug)

	if err := p.db.First(&post.User, userID).Error; err == nil {
		post.Tags = tags
	}

	utils.InvalidateByPrefix("cache:posts:")
	utils.InvalidateByPrefix("cache:user:profile:" + post.User.Username)

	utils.Success(ctx, gin.H{"post": post})
}

// UpdatePost edits the post identified by slug. Only the author may edit. An
// empty image field leaves the stored cover image as it is.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	slug := trimmedParam(ctx, "slug")
	if slug == "" {
		utils.Error(ctx, http.StatusBadRequest, 40023, "missing post slug")
		return
	}

	var post models.Post
	if err := p.db.Where("slug = ?", slug).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to load post")
		return
	}
	if post.UserID != userID {
		utils.Error(ctx, http.StatusForbidden, 40301, "you can only edit your own posts")
		return
	}

	var req postInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	input, err := normalizePostInput(req)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, err.Error())
		return
	}

	tags, err := p.resolveTags(input.Tags)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, err.Error())
		return
	}

	post.Title = input.Title
	post.Description = input.Description
	post.Content = input.Content
	post.Status = input.Status
	if input.Image != "" {
		post.Image = input.Image
	}

	err = p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Tags", "User").Save(&post).Error; err != nil {
			return err
		}
		return replacePostTags(tx, post.ID, tags)
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to update post")
		return
	}

	if input.Image != "" {
		p.claimImage(input.Image, userID, post.Slug)
	}

	if err := p.db.First(&post.User, post.UserID).Error; err == nil {
		post.Tags = tags
	}

	utils.InvalidateByPrefix("cache:posts:")
	utils.InvalidateByPrefix("cache:post:" + post.Slug)
	utils.InvalidateByPrefix("cache:user:profile:" + post.User.Username)

	utils.Success(ctx, gin.H{"post": post})
}

// GetPost returns a single post by slug. Drafts are visible to the author
// only. With ?render=html the response additionally carries the post body
// rendered to HTML.
func (p *PostController) GetPost(ctx *gin.Context) {
	slug := trimmedParam(ctx, "slug")
	if slug == "" {
		utils.Error(ctx, http.StatusBadRequest, 40023, "missing post slug")
		return
	}

	renderHTML := ctx.Query("render") == "html"
	callerID, authed := getUserID(ctx)

	cacheKey := fmt.Sprintf("cache:post:%s:render=%t", slug, renderHTML)
	if !authed {
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(http.StatusOK, "application/json", b)
			return
		}
	}

	var post models.Post
	if err := p.db.Preload("User").Where("slug = ?", slug).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to load post")
		return
	}

	if !post.Published() && (!authed || callerID != post.UserID) {
		// Drafts are indistinguishable from missing posts for non-owners.
		utils.Error(ctx, http.StatusNotFound, 40420, "post not found")
		return
	}

	if err := attachOrderedTags(p.db, []*models.Post{&post}); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load post tags")
		return
	}

	payload := gin.H{"post": post}
	if renderHTML {
		payload["content_html"] = string(render.Markdown([]byte(post.Content), render.DefaultHighlightTheme))
	}

	if !authed && post.Published() {
		utils.CacheSetJSON(cacheKey, wrapForCache(payload), config.CacheTTL())
	}
	utils.Success(ctx, payload)
}

// ListPosts returns published posts, newest first, optionally filtered by tag
// slug or author username.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	tagSlug := strings.ToLower(strings.TrimSpace(ctx.Query("tag")))
	username := strings.TrimSpace(ctx.Query("username"))

	cacheKey := fmt.Sprintf("cache:posts:list:page=%d:size=%d:tag=%s:user=%s", page, pageSize, tagSlug, username)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	q := p.db.Model(&models.Post{}).Where("posts.status = ?", models.PostStatusPublished)
	if username != "" {
		q = q.Joins("JOIN users ON users.id = posts.user_id").Where("users.username = ?", username)
	}
	if tagSlug != "" {
		q = q.Joins("JOIN post_tags pt ON pt.post_id = posts.id").
			Joins("JOIN tags t ON t.id = pt.tag_id").
			Where("t.slug = ?", tagSlug)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to count posts")
		return
	}

	var posts []models.Post
	err := q.Preload("User").
		Order("posts.created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&posts).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to list posts")
		return
	}

	refs := make([]*models.Post, len(posts))
	for i := range posts {
		refs[i] = &posts[i]
	}
	if err := attachOrderedTags(p.db, refs); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load post tags")
		return
	}

	payload := gin.H{"items": posts, "pagination": paginationPayload(page, pageSize, total)}
	utils.CacheSetJSON(cacheKey, wrapForCache(payload), config.CacheTTL())
	utils.Success(ctx, payload)
}

// ListMyPosts returns the authenticated user's posts including drafts,
// optionally filtered by status.
func (p *PostController) ListMyPosts(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	status := strings.ToUpper(strings.TrimSpace(ctx.Query("status")))
	if status != "" && !models.ValidPostStatus(status) {
		utils.Error(ctx, http.StatusBadRequest, 40024, "unknown status filter")
		return
	}

	q := p.db.Model(&models.Post{}).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to count posts")
		return
	}

	var posts []models.Post
	err := q.Preload("User").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&posts).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to list posts")
		return
	}

	refs := make([]*models.Post, len(posts))
	for i := range posts {
		refs[i] = &posts[i]
	}
	if err := attachOrderedTags(p.db, refs); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load post tags")
		return
	}

	utils.Success(ctx, gin.H{"items": posts, "pagination": paginationPayload(page, pageSize, total)})
}

// DeletePost removes the author's post. Its cover image rows become unclaimed
// so the orphan sweeper can reclaim the files.
func (p *PostController) DeletePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	slug := trimmedParam(ctx, "slug")
	var post models.Post
	if err := p.db.Preload("User").Where("slug = ?", slug).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to load post")
		return
	}
	if post.UserID != userID {
		utils.Error(ctx, http.StatusForbidden, 40302, "you can only delete your own posts")
		return
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.PostTag{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.UploadedImage{}).
			Where("post_slug = ?", post.Slug).
			Updates(map[string]interface{}{"post_slug": "", "expire_at": time.Now()}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to delete post")
		return
	}

	utils.InvalidateByPrefix("cache:posts:")
	utils.InvalidateByPrefix("cache:post:" + post.Slug)
	utils.InvalidateByPrefix("cache:user:profile:" + post.User.Username)

	utils.Success(ctx, gin.H{"deleted": post.Slug})
}

// resolveTags maps tag slugs to stored tags, preserving the requested order.
// Unknown slugs are rejected so posts only carry curated tags.
func (p *PostController) resolveTags(slugs []string) ([]models.Tag, error) {
	if len(slugs) == 0 {
		return nil, nil
	}

	var found []models.Tag
	if err := p.db.Where("slug IN ?", slugs).Find(&found).Error; err != nil {
		return nil, errors.New("failed to resolve tags")
	}

	bySlug := make(map[string]models.Tag, len(found))
	for _, t := range found {
		bySlug[t.Slug] = t
	}

	tags := make([]models.Tag, 0, len(slugs))
	for _, s := range slugs {
		t, ok := bySlug[s]
		if !ok {
			return nil, fmt.Errorf("unknown tag: %s", s)
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// replacePostTags rewrites the join rows for a post, recording each tag's
// position so the attachment order survives reads.
func replacePostTags(tx *gorm.DB, postID uint, tags []models.Tag) error {
	if err := tx.Where("post_id = ?", postID).Delete(&models.PostTag{}).Error; err != nil {
		return err
	}
	for i, t := range tags {
		row := models.PostTag{PostID: postID, TagID: t.ID, Position: i}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// attachOrderedTags loads tags for the given posts ordered by their stored
// position.
func attachOrderedTags(db *gorm.DB, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(posts))
	byID := make(map[uint]*models.Post, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
		byID[p.ID] = p
		p.Tags = []models.Tag{}
	}

	var rows []struct {
		models.Tag
		PostID uint
	}
	err := db.Table("tags").
		Select("tags.*, post_tags.post_id").
		Joins("JOIN post_tags ON post_tags.tag_id = tags.id").
		Where("post_tags.post_id IN ?", ids).
		Order("post_tags.post_id, post_tags.position").
		Scan(&rows).Error
	if err != nil {
		return err
	}

	for _, row := range rows {
		if p, ok := byID[row.PostID]; ok {
			p.Tags = append(p.Tags, row.Tag)
		}
	}
	return nil
}

// claimImage binds an uploaded image row to a post so the orphan sweeper
// leaves it alone.
func (p *PostController) claimImage(url string, userID uint, slug string) {
	if url == "" {
		return
	}
	err := p.db.Model(&models.UploadedImage{}).
		Where("url = ? AND user_id = ?", url, userID).
		Update("post_slug", slug).Error
	if err != nil && utils.Sugar != nil {
		utils.Sugar.Warnf("failed to claim uploaded image url=%s slug=%s err=%v", url, slug, err)
	}
}
