package main

import (
	"time"
)

/* ─── Domain structs ─────────────────────────────────────────────────── */

// user maps to the users table. Password is hidden from JSON responses.
// Nullable profile fields use pointers so pgx can scan NULLs and the client
// can tell "not set" from zero during onboarding.
type user struct {
	ID                  string     `json:"id" db:"id"`
	Email               string     `json:"email" db:"email"`
	Name                string     `json:"name" db:"name"`
	Password            string     `json:"-" db:"password"`
	Gender              *string    `json:"gender" db:"gender"`
	Age                 *int       `json:"age" db:"age"`
	HeightCM            *float64   `json:"height_cm" db:"height_cm"`
	WeightKG            *float64   `json:"weight_kg" db:"weight_kg"`
	Goal                string     `json:"goal" db:"goal"`
	ActivityLevel       string     `json:"activity_level" db:"activity_level"`
	DietPref            *string    `json:"diet_pref" db:"diet_pref"`
	Allergies           []string   `json:"allergies" db:"allergies"`
	Medical             []string   `json:"medical" db:"medical"`
	Timezone            string     `json:"timezone" db:"timezone"`
	DailyCalorieTarget  int        `json:"daily_calorie_target" db:"daily_calorie_target"`
	DailyProteinTarget  int        `json:"daily_protein_target" db:"daily_protein_target"`
	ConsentGiven        bool       `json:"consent_given" db:"consent_given"`
	OnboardingCompleted bool       `json:"onboarding_completed" db:"onboarding_completed"`
	CreatedAt           *time.Time `json:"created_at" db:"created_at"`
}

// foodItem is one recognized item within a meal, stored inside the meal's
// items JSONB column.
type foodItem struct {
	Name             string  `json:"name"`
	Probability      float64 `json:"probability"`
	PortionEstimateG float64 `json:"portion_estimate_g"`
}

// mealEntry maps to the meals table. Items, recommendations, and explanation
// are JSONB columns; fiber/sugar/sodium are optional macros.
type mealEntry struct {
	ID              string     `json:"id" db:"id"`
	UserID          string     `json:"user_id" db:"user_id"`
	Timestamp       time.Time  `json:"timestamp" db:"timestamp"`
	CaloriesKcal    float64    `json:"calories_kcal" db:"calories_kcal"`
	ProteinG        float64    `json:"protein_g" db:"protein_g"`
	CarbsG          float64    `json:"carbs_g" db:"carbs_g"`
	FatG            float64    `json:"fat_g" db:"fat_g"`
	FiberG          *float64   `json:"fiber_g" db:"fiber_g"`
	SugarG          *float64   `json:"sugar_g" db:"sugar_g"`
	SodiumMg        *float64   `json:"sodium_mg" db:"sodium_mg"`
	ConfidenceScore float64    `json:"confidence_score" db:"confidence_score"`
	Items           []foodItem `json:"items" db:"items"`
	Recommendations []string   `json:"recommendations" db:"recommendations"`
	Explanation     []string   `json:"explanation" db:"explanation"`
	UserConfirmed   bool       `json:"user_confirmed" db:"user_confirmed"`
	Tag             string     `json:"tag" db:"tag"`
}

/* ─── Request bodies ─────────────────────────────────────────────────── */

// registerRequest is the body for POST /api/auth/register.
type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
}

// loginRequest is the body for POST /api/auth/login.
type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// updateProfileRequest is the body for PUT /api/auth/profile. All fields are
// pointers — only non-nil fields get written to the database.
type updateProfileRequest struct {
	Name          *string   `json:"name"`
	Gender        *string   `json:"gender"`
	Age           *int      `json:"age"`
	HeightCM      *float64  `json:"height_cm"`
	WeightKG      *float64  `json:"weight_kg"`
	Goal          *string   `json:"goal"`
	ActivityLevel *string   `json:"activity_level"`
	DietPref      *string   `json:"diet_pref"`
	Allergies     *[]string `json:"allergies"`
	Medical       *[]string `json:"medical"`
	Timezone      *string   `json:"timezone"`
	ConsentGiven  *bool     `json:"consent_given"`
}

// createMealRequest is the body for POST /api/meals. Timestamp is an optional
// RFC 3339 string defaulting to the current time.
type createMealRequest struct {
	Timestamp       string     `json:"timestamp"`
	CaloriesKcal    float64    `json:"calories_kcal"`
	ProteinG        float64    `json:"protein_g"`
	CarbsG          float64    `json:"carbs_g"`
	FatG            float64    `json:"fat_g"`
	FiberG          *float64   `json:"fiber_g"`
	SugarG          *float64   `json:"sugar_g"`
	SodiumMg        *float64   `json:"sodium_mg"`
	ConfidenceScore float64    `json:"confidence_score"`
	Items           []foodItem `json:"items"`
	Recommendations []string   `json:"recommendations"`
	Explanation     []string   `json:"explanation"`
	UserConfirmed   bool       `json:"user_confirmed"`
	Tag             string     `json:"tag"`
}

/* ─── Response shapes ────────────────────────────────────────────────── */

// authResponse is returned by register and login.
type authResponse struct {
	Token string `json:"token"`
	User  user   `json:"user"`
}

// streakResponse is the body for GET /api/streak: the consecutive-day count
// plus the two presentation values derived from it.
type streakResponse struct {
	Streak  int    `json:"streak"`
	Message string `json:"message"`
	Color   string `json:"color"`
}

// todaySummary is the response for GET /api/meals/today/summary.
type todaySummary struct {
	TotalCalories float64 `json:"total_calories"`
	TotalProtein  float64 `json:"total_protein"`
	TotalCarbs    float64 `json:"total_carbs"`
	TotalFat      float64 `json:"total_fat"`
	MealCount     int     `json:"meal_count"`
	CalorieTarget int     `json:"calorie_target"`
	ProteinTarget int     `json:"protein_target"`
}

// trendDay is one civil day's totals in the GET /api/insights/trends response.
type trendDay struct {
	Date      string  `json:"date"`
	Calories  float64 `json:"calories"`
	Protein   float64 `json:"protein"`
	Carbs     float64 `json:"carbs"`
	Fat       float64 `json:"fat"`
	MealCount int     `json:"meal_count"`
}

// trendsSummary aggregates the trend window against the user's targets.
type trendsSummary struct {
	AvgCalories    float64 `json:"avg_calories"`
	AvgProtein     float64 `json:"avg_protein"`
	SurplusDays    int     `json:"surplus_days"`
	DeficitDays    int     `json:"deficit_days"`
	ProteinMetDays int     `json:"protein_met_days"`
	TotalDays      int     `json:"total_days"`
}

// trendsResponse is the body for GET /api/insights/trends.
type trendsResponse struct {
	Trends  []trendDay    `json:"trends"`
	Summary trendsSummary `json:"summary"`
}
