package models

import "time"

// RecommendationCache stores a response from an AI recommendation function
type RecommendationCache struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CacheKey  string    `gorm:"uniqueIndex;not null" json:"cache_key"` // kind:species:breed:age:weight
	Kind      string    `gorm:"not null;index" json:"kind"`
	Payload   string    `gorm:"type:text;not null" json:"payload"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the RecommendationCache model
func (RecommendationCache) TableName() string {
	return "recommendation_cache"
}

// Expired reports whether the entry is stale at now
func (r RecommendationCache) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
