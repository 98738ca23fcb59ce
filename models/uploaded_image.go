package models

import "time"

// UploadedImage records cover images staged through the upload endpoint.
// Rows start unclaimed (PostSlug empty); claiming happens when a post create or
// update references the URL. Unclaimed rows past ExpireAt are swept by the
// orphan cleaner together with their files.
type UploadedImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FilePath  string    `gorm:"size:1024;not null" json:"file_path"`
	URL       string    `gorm:"size:1024;not null;index" json:"url"`
	Folder    string    `gorm:"size:32;not null" json:"folder"`
	UserID    uint      `gorm:"index" json:"user_id"`
	PostSlug  string    `gorm:"size:255;index" json:"post_slug"`
	ExpireAt  time.Time `gorm:"index" json:"expire_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
