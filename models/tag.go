package models

import "time"

// Tag is a curated topic label. Posts reference tags by slug; a post carries at
// most four, ordered, with the first acting as the primary tag.
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Slug      string    `gorm:"size:64;uniqueIndex;not null" json:"slug"`
	Name      string    `gorm:"size:64;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Posts     []Post    `gorm:"many2many:post_tags;" json:"-"`
}

// PostTag is the explicit join table between posts and tags. Position records
// the attachment order so the primary tag survives round trips.
type PostTag struct {
	PostID    uint      `gorm:"primaryKey" json:"post_id"`
	TagID     uint      `gorm:"primaryKey" json:"tag_id"`
	Position  int       `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time `json:"created_at"`
}
