package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/petconnect/petconnect-api/logger"
	"github.com/petconnect/petconnect-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Recommendation kinds served by the AI functions
const (
	RecommendVaccines   = "vaccines"
	RecommendIllnesses  = "illnesses"
	RecommendAllergies  = "allergies"
	RecommendTreatments = "treatments"
	RecommendDewormers  = "dewormers"
)

// IsValidRecommendationKind reports whether kind is served
func IsValidRecommendationKind(kind string) bool {
	switch kind {
	case RecommendVaccines, RecommendIllnesses, RecommendAllergies, RecommendTreatments, RecommendDewormers:
		return true
	}
	return false
}

// PetProfile is what the AI functions are asked about
type PetProfile struct {
	Species   string  `json:"species"`
	Breed     string  `json:"breed"`
	AgeMonths int     `json:"age_months"`
	WeightKg  float64 `json:"weight_kg"`
}

// ProfileOf describes a stored pet at now
func ProfileOf(pet *models.Pet, now time.Time) PetProfile {
	profile := PetProfile{
		Species:   pet.Species,
		Breed:     pet.Breed,
		AgeMonths: pet.AgeInMonths(now),
	}
	if pet.WeightKg != nil {
		profile.WeightKg = *pet.WeightKg
	}
	return profile
}

// RecommendationItem is one suggestion
type RecommendationItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Recommendations is a response from the AI functions
type Recommendations struct {
	Kind   string               `json:"kind"`
	Items  []RecommendationItem `json:"items"`
	Cached bool                 `json:"cached"`
}

// RecommendationService fetches AI suggestions and caches them by pet profile
type RecommendationService struct {
	db         *gorm.DB
	baseURL    string
	ttl        time.Duration
	httpClient *http.Client
	now        func() time.Time
}

// NewRecommendationService creates a service calling baseURL/<kind>
func NewRecommendationService(db *gorm.DB, baseURL string, ttl time.Duration) *RecommendationService {
	return &RecommendationService{
		db:      db,
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     ttl,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

// SetClock replaces the time source (primarily for testing)
func (s *RecommendationService) SetClock(now func() time.Time) {
	s.now = now
}

// CacheKey identifies a request in the cache: kind:species:breed:age:weight
func CacheKey(kind string, p PetProfile) string {
	return strings.ToLower(strings.Join([]string{
		kind,
		strings.TrimSpace(p.Species),
		strings.TrimSpace(p.Breed),
		strconv.Itoa(p.AgeMonths),
		strconv.FormatFloat(p.WeightKg, 'f', 1, 64),
	}, ":"))
}

// Recommend returns cached suggestions when fresh, otherwise calls the AI
// function and stores the answer.
func (s *RecommendationService) Recommend(ctx context.Context, kind string, profile PetProfile) (*Recommendations, error) {
	if !IsValidRecommendationKind(kind) {
		return nil, &ValidationError{Field: "kind", Message: "unknown recommendation kind " + kind}
	}
	if strings.TrimSpace(profile.Species) == "" {
		return nil, &ValidationError{Field: "species", Message: "is required"}
	}

	key := CacheKey(kind, profile)
	db := s.db.WithContext(ctx)

	var entry models.RecommendationCache
	err := db.Where("cache_key = ?", key).First(&entry).Error
	switch {
	case err == nil && !entry.Expired(s.now()):
		var items []RecommendationItem
		if err := json.Unmarshal([]byte(entry.Payload), &items); err == nil {
			return &Recommendations{Kind: kind, Items: items, Cached: true}, nil
		}
		logger.Log.Warn("[recommendations] discarding unreadable cache entry", "cache_key", key)
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	items, err := s.fetch(ctx, kind, profile)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	fresh := models.RecommendationCache{
		CacheKey:  key,
		Kind:      kind,
		Payload:   string(payload),
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "expires_at", "updated_at"}),
	}).Create(&fresh).Error; err != nil {
		// a failed cache write still serves the fresh answer
		logger.Log.Warn("[recommendations] failed to cache response", "cache_key", key, "error", err)
	}

	return &Recommendations{Kind: kind, Items: items, Cached: false}, nil
}

func (s *RecommendationService) fetch(ctx context.Context, kind string, profile PetProfile) ([]RecommendationItem, error) {
	if s.baseURL == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(profile)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/"+kind, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Service: "recommendations", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &UpstreamError{Service: "recommendations", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Service: "recommendations", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var parsed struct {
		Items []RecommendationItem `json:"items"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &ParseError{Service: "recommendations", Err: err}
	}
	if parsed.Items == nil {
		return nil, &ParseError{Service: "recommendations", Err: errors.New("missing items")}
	}
	return parsed.Items, nil
}
