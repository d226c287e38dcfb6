package models

// Profile holds the biometric fields of a user. Numeric fields are pointers
// because the API omits or nulls them until the user fills them in.
type Profile struct {
	UserID        uint     `json:"user_id,omitempty"`
	FullName      string   `json:"full_name"`
	Age           *int     `json:"age,omitempty"`
	Gender        string   `json:"gender"`
	HeightCM      *int     `json:"height_cm,omitempty"`
	WeightKG      *float64 `json:"weight_kg,omitempty"`
	ActivityLevel string   `json:"activity_level"`
	Goal          string   `json:"goal"`
}

// Preferences holds the free-text preference fields of a user.
type Preferences struct {
	UserID                     uint   `json:"user_id,omitempty"`
	LikedFoods                 string `json:"liked_foods"`
	DislikedFoods              string `json:"disliked_foods"`
	DietaryRestrictions        string `json:"dietary_restrictions"`
	Allergies                  string `json:"allergies"`
	PreferredWorkoutTypes      string `json:"preferred_workout_types"`
	WorkoutFrequencyPreference *int   `json:"workout_frequency_preference,omitempty"`
	WorkoutTimePreference      string `json:"workout_time_preference"`
	FitnessLevelSelfAssessed   string `json:"fitness_level_self_assessed"`
	SpecificGoalsText          string `json:"specific_goals_text"`
}

// Suggestions is the body of the AI suggestion endpoints.
type Suggestions struct {
	Suggestions []string `json:"suggestions"`
}

// AISuggestions is derived from the user's preferences and never stored.
type AISuggestions struct {
	Food    []string
	Workout []string
}
