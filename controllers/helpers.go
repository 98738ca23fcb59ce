package controllers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/devlog-app/devlog/middleware"
	"github.com/devlog-app/devlog/models"
)

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

func paginationPayload(page, pageSize int, total int64) gin.H {
	return gin.H{
		"page":        page,
		"page_size":   pageSize,
		"total":       total,
		"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
	}
}

// publicUser strips credentials and identity-provider internals from a user
// record before it leaves the API.
func publicUser(user models.User) gin.H {
	return gin.H{
		"id":          user.ID,
		"username":    user.Username,
		"avatar_url":  user.AvatarURL,
		"bio":         user.Bio,
		"brand_color": user.BrandColor,
		"created_at":  user.CreatedAt,
	}
}

// cacheWrapper mirrors the standard response envelope for cached payloads.
type cacheWrapper struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func wrapForCache(data interface{}) cacheWrapper {
	return cacheWrapper{Code: 0, Message: "success", Data: data}
}

func trimmedParam(ctx *gin.Context, name string) string {
	return strings.TrimSpace(ctx.Param(name))
}
