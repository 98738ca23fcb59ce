package models

import "time"

// Post lifecycle states. A post is created in either state and moves between
// them only through edit-and-resubmit.
const (
	PostStatusDrafted   = "DRAFTED"
	PostStatusPublished = "PUBLISHED"
)

// Post represents a blog post authored by a user. The slug is assigned at
// creation time and stays stable for the lifetime of the post; it is the key
// used for updates and for the canonical URL /{username}/{slug}.
type Post struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Slug        string    `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	Title       string    `gorm:"size:255" json:"title"`
	Description string    `gorm:"size:512" json:"description"`
	Content     string    `gorm:"type:text" json:"content"`
	Image       string    `gorm:"size:1024" json:"image"` // cover image URL, empty when none
	Status      string    `gorm:"size:16;default:'DRAFTED';index" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	User        User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Tags        []Tag     `gorm:"many2many:post_tags;" json:"tags"`
}

// Published reports whether the post is publicly visible.
func (p *Post) Published() bool {
	return p.Status == PostStatusPublished
}

// ValidPostStatus reports whether s is a known lifecycle state.
func ValidPostStatus(s string) bool {
	return s == PostStatusDrafted || s == PostStatusPublished
}
