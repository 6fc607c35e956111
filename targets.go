package main

import "math"

// activityMultipliers maps activity level strings to their TDEE multiplier.
// This is the single source of truth for valid activity levels — also used for
// input validation in updateProfile.
var activityMultipliers = map[string]float64{
	"sedentary":   1.2,
	"light":       1.375,
	"moderate":    1.55,
	"active":      1.725,
	"very_active": 1.9,
}

// validGoals is the set of allowed goal values. "health" is the neutral
// default for new profiles.
var validGoals = map[string]bool{
	"health":   true,
	"fat_loss": true,
	"muscular": true,
	"lean":     true,
}

// Defaults used until the profile carries enough body metrics to compute
// personalized targets.
const (
	defaultCalorieTarget = 2000
	defaultProteinTarget = 50
)

// computeNutritionTargets derives daily calorie and protein targets from the
// user's body metrics. BMR via Mifflin-St Jeor, TDEE via activity multiplier,
// then a goal adjustment (deficit for fat loss, surplus for muscle gain) and
// a goal-scaled g/kg protein target. Falls back to the defaults when any
// required metric is missing.
func computeNutritionTargets(u *user) (calories, protein int) {
	if u.Gender == nil || u.Age == nil || u.HeightCM == nil || u.WeightKG == nil {
		return defaultCalorieTarget, defaultProteinTarget
	}

	// BMR via Mifflin-St Jeor: different constant for male vs female
	bmr := 10**u.WeightKG + 6.25**u.HeightCM - 5*float64(*u.Age)
	if *u.Gender == "male" {
		bmr += 5
	} else {
		bmr -= 161
	}

	mult, found := activityMultipliers[u.ActivityLevel]
	if !found {
		mult = activityMultipliers["moderate"]
	}
	tdee := bmr * mult

	caloriesF := tdee
	switch u.Goal {
	case "fat_loss":
		caloriesF = tdee - 500
	case "muscular":
		caloriesF = tdee + 300
	}

	// Protein in g/kg bodyweight, scaled by goal (1.6–2.0 g/kg range for
	// active individuals).
	gPerKG := 1.6
	switch u.Goal {
	case "muscular":
		gPerKG = 2.0
	case "fat_loss":
		gPerKG = 1.8
	}
	proteinF := *u.WeightKG * gPerKG

	return int(math.Round(caloriesF)), int(math.Round(proteinF))
}
