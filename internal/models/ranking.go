package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Category is the topical tag assigned to a ranking
type Category string

const (
	CategoryPolitics  Category = "politics"
	CategorySports    Category = "sports"
	CategoryCelebrity Category = "celebrity"
	CategoryStock     Category = "stock"
	CategoryGame      Category = "game"
	CategoryIssue     Category = "issue"
)

// Categories lists every valid category
var Categories = []Category{
	CategoryPolitics,
	CategorySports,
	CategoryCelebrity,
	CategoryStock,
	CategoryGame,
	CategoryIssue,
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory validates a category string. Empty input means "all".
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if s == "" || c.Valid() {
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// TimeRange selects how far back the ranking window reaches
type TimeRange string

const (
	TimeRangeRealtime TimeRange = "realtime"
	TimeRange1h       TimeRange = "1h"
	TimeRange12h      TimeRange = "12h"
	TimeRange24h      TimeRange = "24h"
)

var timeRangeWindows = map[TimeRange]time.Duration{
	TimeRangeRealtime: 30 * time.Minute,
	TimeRange1h:       60 * time.Minute,
	TimeRange12h:      720 * time.Minute,
	TimeRange24h:      1440 * time.Minute,
}

// Window returns the look-back duration for the range
func (r TimeRange) Window() time.Duration {
	if w, ok := timeRangeWindows[r]; ok {
		return w
	}
	return timeRangeWindows[TimeRange24h]
}

// ParseTimeRange validates a time range string. Empty input means 24h.
func ParseTimeRange(s string) (TimeRange, error) {
	if s == "" {
		return TimeRange24h, nil
	}
	r := TimeRange(s)
	if _, ok := timeRangeWindows[r]; !ok {
		return "", fmt.Errorf("unknown time_range %q", s)
	}
	return r, nil
}

// MaxBestComments bounds the stored comment list
const MaxBestComments = 5

// BestComment is a single highlighted user comment
type BestComment struct {
	Author  string `json:"author,omitempty"`
	Content string `json:"content"`
	Likes   int    `json:"likes,omitempty"`
}

// BestComments is stored as a JSON column. An empty list is stored as NULL.
type BestComments []BestComment

// Value implements driver.Valuer
func (b BestComments) Value() (driver.Value, error) {
	if len(b) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (b *BestComments) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*b = nil
		return nil
	case []byte:
		return json.Unmarshal(v, b)
	case string:
		return json.Unmarshal([]byte(v), b)
	default:
		return fmt.Errorf("cannot scan %T into BestComments", src)
	}
}

// Ranking is one trend keyword with its score and enrichment
type Ranking struct {
	ID              uuid.UUID      `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	Keyword         string         `json:"keyword" db:"keyword" gorm:"not null;index"`
	Category        Category       `json:"category" db:"category" gorm:"not null;index"`
	PopularityScore float64        `json:"popularity_score" db:"popularity_score" gorm:"default:0;index"`
	Summary         *string        `json:"summary" db:"summary" gorm:"type:text"`
	ImageURL        *string        `json:"image_url,omitempty" db:"image_url"`
	SourceURLs      pq.StringArray `json:"source_urls" db:"source_urls" gorm:"type:text[]"`
	Source          *string        `json:"source,omitempty" db:"source"`
	RankChange      int            `json:"rank_change" db:"rank_change" gorm:"default:0"`
	PostDate        *time.Time     `json:"post_date,omitempty" db:"post_date"`

	// Enrichment, filled in by the summarize package
	AISummary         *string      `json:"ai_summary" db:"ai_summary" gorm:"type:text"`
	CommunityReaction *string      `json:"community_reaction" db:"community_reaction" gorm:"type:text"`
	BestComments      BestComments `json:"best_comments" db:"best_comments" gorm:"type:jsonb"`
	ThumbnailURL      *string      `json:"thumbnail_url" db:"thumbnail_url"`

	// Last backfill attempt per field, so rows that keep missing rotate out
	ThumbnailCheckedAt *time.Time `json:"-" db:"thumbnail_checked_at"`
	CommentsCheckedAt  *time.Time `json:"-" db:"comments_checked_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for the Ranking model
func (Ranking) TableName() string {
	return "rankings"
}

// BeforeCreate assigns a random ID when the caller did not derive one
func (r *Ranking) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RankingID derives the stable ID of a (category, keyword) pair
func RankingID(category Category, keyword string) uuid.UUID {
	return uuid.NewMD5(uuid.NameSpaceURL, []byte(string(category)+":"+keyword))
}

// Enrichment is the set of fields the enrichment orchestrator may write.
// Nil or empty fields are never written.
type Enrichment struct {
	AISummary         *string
	CommunityReaction *string
	ThumbnailURL      *string
	BestComments      BestComments
}

// IsEmpty reports whether there is nothing to persist
func (e Enrichment) IsEmpty() bool {
	return len(e.Columns()) == 0
}

// Columns returns the non-empty fields as a column map for gorm Updates
func (e Enrichment) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if e.AISummary != nil && *e.AISummary != "" {
		cols["ai_summary"] = *e.AISummary
	}
	if e.CommunityReaction != nil && *e.CommunityReaction != "" {
		cols["community_reaction"] = *e.CommunityReaction
	}
	if e.ThumbnailURL != nil && *e.ThumbnailURL != "" {
		cols["thumbnail_url"] = *e.ThumbnailURL
	}
	if len(e.BestComments) > 0 {
		comments := e.BestComments
		if len(comments) > MaxBestComments {
			comments = comments[:MaxBestComments]
		}
		cols["best_comments"] = comments
	}
	return cols
}
