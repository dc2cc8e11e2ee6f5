package models

import (
	"testing"
	"time"

	"github.com/petconnect/petconnect-api/lifecycle"
	"github.com/stretchr/testify/assert"
)

func TestHealthRecordAlertType(t *testing.T) {
	due := time.Now().AddDate(0, 1, 0)

	tests := []struct {
		name     string
		record   HealthRecord
		wantType lifecycle.AlertType
		wantOK   bool
	}{
		{"vaccine with next dose", HealthRecord{Type: RecordVaccine, NextDueDate: &due}, lifecycle.AlertVaccine, true},
		{"deworming with next dose", HealthRecord{Type: RecordDeworming, NextDueDate: &due}, lifecycle.AlertDeworming, true},
		{"vaccine without next dose", HealthRecord{Type: RecordVaccine}, "", false},
		{"allergy never schedules", HealthRecord{Type: RecordAllergy, NextDueDate: &due}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.record.AlertType()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantType, got)
		})
	}
}

func TestIsValidRecordType(t *testing.T) {
	assert.True(t, IsValidRecordType("weight"))
	assert.False(t, IsValidRecordType("surgery"))
}

func TestPetAgeInMonths(t *testing.T) {
	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	born := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 1, 0)

	assert.Equal(t, 26, Pet{BirthDate: &born}.AgeInMonths(now))
	assert.Equal(t, 0, Pet{}.AgeInMonths(now))
	assert.Equal(t, 0, Pet{BirthDate: &future}.AgeInMonths(now))
}

func TestRecommendationCacheExpired(t *testing.T) {
	now := time.Now()
	assert.True(t, RecommendationCache{ExpiresAt: now}.Expired(now))
	assert.False(t, RecommendationCache{ExpiresAt: now.Add(time.Minute)}.Expired(now))
}
