package models

import "time"

// PostView stores aggregated view counts per day and post slug.
type PostView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Date      time.Time `gorm:"index:idx_view_date_slug,unique;type:date;not null" json:"date"`
	Slug      string    `gorm:"index;index:idx_view_date_slug,unique;size:255;not null" json:"slug"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
