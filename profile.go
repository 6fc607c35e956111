package main

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// updateProfile updates only the provided profile fields.
// PUT /api/auth/profile. Uses pointer fields in the request body to
// distinguish "not provided" from zero — only non-nil fields get updated.
// When any body metric changes, the daily calorie/protein targets are
// recomputed; once all onboarding fields are present the onboarding_completed
// flag flips on.
func (h *Handler) updateProfile(c *gin.Context) {
	userID := c.GetString("user_id")

	var body updateProfileRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	// Validate activity_level before saving — an unknown level silently skews
	// all future target calculations with no visible error.
	if body.ActivityLevel != nil {
		if _, ok := activityMultipliers[*body.ActivityLevel]; !ok {
			apiError(c, http.StatusBadRequest, "activity_level must be one of: sedentary, light, moderate, active, very_active")
			return
		}
	}
	if body.Goal != nil && !validGoals[*body.Goal] {
		apiError(c, http.StatusBadRequest, "goal must be one of: health, fat_loss, muscular, lean")
		return
	}
	// Validate the timezone at write time so every stored zone is loadable —
	// the streak and summary endpoints depend on it for day boundaries.
	if body.Timezone != nil {
		if _, err := time.LoadLocation(*body.Timezone); err != nil {
			apiError(c, http.StatusBadRequest, "timezone must be a valid IANA identifier, e.g. Asia/Kolkata")
			return
		}
	}

	// Build SET clause dynamically — only update fields the client actually sent
	setClauses := []string{}
	args := pgx.NamedArgs{"userID": userID}

	if body.Name != nil {
		setClauses = append(setClauses, "name = @name")
		args["name"] = *body.Name
	}
	if body.Gender != nil {
		setClauses = append(setClauses, "gender = @gender")
		args["gender"] = *body.Gender
	}
	if body.Age != nil {
		setClauses = append(setClauses, "age = @age")
		args["age"] = *body.Age
	}
	if body.HeightCM != nil {
		setClauses = append(setClauses, "height_cm = @heightCM")
		args["heightCM"] = *body.HeightCM
	}
	if body.WeightKG != nil {
		setClauses = append(setClauses, "weight_kg = @weightKG")
		args["weightKG"] = *body.WeightKG
	}
	if body.Goal != nil {
		setClauses = append(setClauses, "goal = @goal")
		args["goal"] = *body.Goal
	}
	if body.ActivityLevel != nil {
		setClauses = append(setClauses, "activity_level = @activityLevel")
		args["activityLevel"] = *body.ActivityLevel
	}
	if body.DietPref != nil {
		setClauses = append(setClauses, "diet_pref = @dietPref")
		args["dietPref"] = *body.DietPref
	}
	if body.Allergies != nil {
		setClauses = append(setClauses, "allergies = @allergies")
		args["allergies"] = *body.Allergies
	}
	if body.Medical != nil {
		setClauses = append(setClauses, "medical = @medical")
		args["medical"] = *body.Medical
	}
	if body.Timezone != nil {
		setClauses = append(setClauses, "timezone = @timezone")
		args["timezone"] = *body.Timezone
	}
	if body.ConsentGiven != nil {
		setClauses = append(setClauses, "consent_given = @consentGiven")
		args["consentGiven"] = *body.ConsentGiven
	}

	if len(setClauses) == 0 {
		apiError(c, http.StatusBadRequest, "no fields to update")
		return
	}

	query := "UPDATE users SET " +
		strings.Join(setClauses, ", ") +
		" WHERE id = @userID RETURNING *"

	u, err := queryOne[user](h.db, c, query, args)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to update profile")
		return
	}

	// Recompute targets when a metric relevant to them changed.
	if body.WeightKG != nil || body.HeightCM != nil || body.Age != nil ||
		body.Gender != nil || body.ActivityLevel != nil || body.Goal != nil {
		calories, protein := computeNutritionTargets(&u)
		updated, err := queryOne[user](h.db, c,
			`UPDATE users SET daily_calorie_target = @calories, daily_protein_target = @protein
			 WHERE id = @userID RETURNING *`,
			pgx.NamedArgs{"calories": calories, "protein": protein, "userID": userID})
		if err != nil {
			log.Printf("[updateProfile] target recompute failed for user %s: %v", userID, err)
		} else {
			u = updated
		}
	}

	// Flip the onboarding flag once all required fields are present.
	if !u.OnboardingCompleted &&
		u.Gender != nil && u.Age != nil && u.HeightCM != nil && u.WeightKG != nil {
		updated, err := queryOne[user](h.db, c,
			"UPDATE users SET onboarding_completed = TRUE WHERE id = @userID RETURNING *",
			pgx.NamedArgs{"userID": userID})
		if err != nil {
			log.Printf("[updateProfile] onboarding flag update failed for user %s: %v", userID, err)
		} else {
			u = updated
		}
	}

	c.JSON(http.StatusOK, u)
}
