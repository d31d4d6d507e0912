package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RawPost is a scraped community post, written by the external crawler
type RawPost struct {
	ID           uuid.UUID  `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	Source       string     `json:"source" db:"source" gorm:"not null;index"`
	Title        string     `json:"title" db:"title" gorm:"not null"`
	Content      *string    `json:"content" db:"content" gorm:"type:text"`
	URL          *string    `json:"url" db:"url"`
	Views        int        `json:"views" db:"views" gorm:"default:0"`
	Likes        int        `json:"likes" db:"likes" gorm:"default:0"`
	PostDate     *time.Time `json:"post_date,omitempty" db:"post_date"`
	ThumbnailURL *string    `json:"thumbnail_url,omitempty" db:"thumbnail_url"`
	ScrapedAt    time.Time  `json:"scraped_at" db:"scraped_at" gorm:"autoCreateTime;index"`
}

// TableName sets the table name for the RawPost model
func (RawPost) TableName() string {
	return "raw_posts"
}

// BeforeCreate derives the ID from the URL so re-scrapes upsert the same row
func (p *RawPost) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = RawPostID(p.Source, p.Title, p.URL)
	}
	return nil
}

// RawPostID derives a stable ID from the URL, or from source and title when
// the post has no URL
func RawPostID(source, title string, url *string) uuid.UUID {
	if url != nil && *url != "" {
		return uuid.NewMD5(uuid.NameSpaceURL, []byte(*url))
	}
	return uuid.NewMD5(uuid.NameSpaceURL, []byte(source+":"+title))
}

// Score is the popularity contribution of one post
func (p RawPost) Score() float64 {
	score := float64(p.Views + p.Likes*10)
	if score < 0 {
		return 0
	}
	return score
}
