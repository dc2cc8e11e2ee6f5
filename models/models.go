package models

// All lists every model for auto-migration
func All() []interface{} {
	return []interface{}{
		&User{},
		&Partner{},
		&Pet{},
		&Booking{},
		&Order{},
		&OrderItem{},
		&HealthRecord{},
		&MedicalAlert{},
		&OutboxEvent{},
		&RecommendationCache{},
	}
}
