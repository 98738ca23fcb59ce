package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/devlog-app/devlog/models"
	"github.com/devlog-app/devlog/utils"
)

// StatsController exposes aggregated post view counters.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a StatsController.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

type dailyViews struct {
	Date  time.Time `json:"date"`
	Count int64     `json:"count"`
}

// SiteStats returns platform-wide view totals and a per-day series for the
// requested window (?days=N, default 30, capped at 365).
func (s *StatsController) SiteStats(ctx *gin.Context) {
	days := parseDays(ctx.Query("days"))
	since := dayFloor(time.Now().AddDate(0, 0, -days+1))

	var total int64
	if err := s.db.Model(&models.PostView{}).
		Select("COALESCE(SUM(count), 0)").
		Scan(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to load stats")
		return
	}

	var series []dailyViews
	err := s.db.Model(&models.PostView{}).
		Select("date, SUM(count) AS count").
		Where("date >= ?", since).
		Group("date").
		Order("date ASC").
		Scan(&series).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to load stats")
		return
	}

	utils.Success(ctx, gin.H{"total": total, "daily": series})
}

// PostStats returns the daily view series for a single post. Only the author
// may read draft or published stats for their post.
func (s *StatsController) PostStats(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	slug := trimmedParam(ctx, "slug")
	var post models.Post
	if err := s.db.Where("slug = ?", slug).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to load post")
		return
	}
	if post.UserID != userID {
		utils.Error(ctx, http.StatusForbidden, 40303, "you can only view stats for your own posts")
		return
	}

	days := parseDays(ctx.Query("days"))
	since := dayFloor(time.Now().AddDate(0, 0, -days+1))

	var total int64
	if err := s.db.Model(&models.PostView{}).
		Select("COALESCE(SUM(count), 0)").
		Where("slug = ?", slug).
		Scan(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50071, "failed to load post stats")
		return
	}

	var series []dailyViews
	err := s.db.Model(&models.PostView{}).
		Select("date, count").
		Where("slug = ? AND date >= ?", slug, since).
		Order("date ASC").
		Scan(&series).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50071, "failed to load post stats")
		return
	}

	utils.Success(ctx, gin.H{"slug": slug, "total": total, "daily": series})
}

func parseDays(raw string) int {
	days := 30
	if d, err := strconv.Atoi(raw); err == nil && d > 0 && d <= 365 {
		days = d
	}
	return days
}

func dayFloor(t time.Time) time.Time {
	t = t.In(time.Local)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
