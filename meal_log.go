package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// mealHistoryCap is the per-user retention limit: saving a meal prunes
// anything older than the 30 most recent. The history screen never shows
// more than this.
const mealHistoryCap = 30

// validMealTags is the set of allowed values for a meal's tag.
// Reject unknown values with 400 rather than letting the DB return a cryptic 500.
var validMealTags = map[string]bool{
	"breakfast": true,
	"lunch":     true,
	"dinner":    true,
	"snack":     true,
}

// jsonOrEmpty marshals v for a JSONB column, substituting an empty JSON array
// for nil slices so the column never holds SQL NULL.
func jsonOrEmpty(v any) string {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return "[]"
	}
	return string(b)
}

// createMeal inserts a new meal entry and prunes history beyond the retention
// cap. POST /api/meals. Timestamp defaults to now when omitted; a malformed
// timestamp is rejected up front so it can never corrupt the streak history.
func (h *Handler) createMeal(c *gin.Context) {
	userID := c.GetString("user_id")

	var body createMealRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	ts := time.Now().UTC()
	if body.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, body.Timestamp)
		if err != nil {
			apiError(c, http.StatusBadRequest, "invalid timestamp, expected RFC 3339")
			return
		}
		ts = parsed
	}

	if body.Tag == "" {
		body.Tag = "snack"
	}
	if !validMealTags[body.Tag] {
		apiError(c, http.StatusBadRequest, "tag must be one of: breakfast, lunch, dinner, snack")
		return
	}
	if body.CaloriesKcal < 0 {
		apiError(c, http.StatusBadRequest, "calories_kcal must not be negative")
		return
	}

	meal, err := queryOne[mealEntry](h.db, c,
		`INSERT INTO meals (id, user_id, timestamp, calories_kcal, protein_g, carbs_g, fat_g,
		                    fiber_g, sugar_g, sodium_mg, confidence_score,
		                    items, recommendations, explanation, user_confirmed, tag)
		 VALUES (@id, @userID, @timestamp, @caloriesKcal, @proteinG, @carbsG, @fatG,
		         @fiberG, @sugarG, @sodiumMg, @confidenceScore,
		         @items, @recommendations, @explanation, @userConfirmed, @tag)
		 RETURNING *`,
		pgx.NamedArgs{
			"id": uuid.New().String(), "userID": userID, "timestamp": ts,
			"caloriesKcal": body.CaloriesKcal, "proteinG": body.ProteinG,
			"carbsG": body.CarbsG, "fatG": body.FatG,
			"fiberG": body.FiberG, "sugarG": body.SugarG, "sodiumMg": body.SodiumMg,
			"confidenceScore": body.ConfidenceScore,
			"items":           jsonOrEmpty(body.Items),
			"recommendations": jsonOrEmpty(body.Recommendations),
			"explanation":     jsonOrEmpty(body.Explanation),
			"userConfirmed":   body.UserConfirmed, "tag": body.Tag,
		})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to save meal")
		return
	}

	// Retention: keep only the most recent entries. A failed prune is logged
	// but doesn't fail the save — the next save retries it.
	if _, err := h.db.Exec(c,
		`DELETE FROM meals WHERE user_id = @userID AND id NOT IN (
			SELECT id FROM meals WHERE user_id = @userID
			ORDER BY timestamp DESC LIMIT @cap
		 )`,
		pgx.NamedArgs{"userID": userID, "cap": mealHistoryCap}); err != nil {
		log.Printf("[createMeal] history prune failed for user %s: %v", userID, err)
	}

	c.JSON(http.StatusCreated, meal)
}

// listMeals returns the user's meal history, most recent first.
// GET /api/meals?limit=N (defaults to the retention cap, which is also the max).
func (h *Handler) listMeals(c *gin.Context) {
	userID := c.GetString("user_id")

	limit := mealHistoryCap
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			apiError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n < limit {
			limit = n
		}
	}

	meals, err := queryMany[mealEntry](h.db, c,
		`SELECT * FROM meals WHERE user_id = @userID
		 ORDER BY timestamp DESC LIMIT @limit`,
		pgx.NamedArgs{"userID": userID, "limit": limit})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch meals")
		return
	}
	// Ensure meals is an empty array (not null) in JSON
	if meals == nil {
		meals = []mealEntry{}
	}

	c.JSON(http.StatusOK, meals)
}

// getMeal returns a single meal. GET /api/meals/:id.
// Ownership is enforced by requiring both id and user_id to match.
func (h *Handler) getMeal(c *gin.Context) {
	userID := c.GetString("user_id")
	id := c.Param("id")

	meal, err := queryOne[mealEntry](h.db, c,
		"SELECT * FROM meals WHERE id = @id AND user_id = @userID",
		pgx.NamedArgs{"id": id, "userID": userID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			apiError(c, http.StatusNotFound, "meal not found")
		} else {
			apiError(c, http.StatusInternalServerError, "failed to fetch meal")
		}
		return
	}

	c.JSON(http.StatusOK, meal)
}

// deleteMeal removes a meal entry. DELETE /api/meals/:id.
// Returns 204 on success, 404 if not found.
func (h *Handler) deleteMeal(c *gin.Context) {
	userID := c.GetString("user_id")
	id := c.Param("id")

	result, err := h.db.Exec(c,
		"DELETE FROM meals WHERE id = @id AND user_id = @userID",
		pgx.NamedArgs{"id": id, "userID": userID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to delete meal")
		return
	}
	if result.RowsAffected() == 0 {
		apiError(c, http.StatusNotFound, "meal not found")
		return
	}

	c.Status(http.StatusNoContent)
}

// getTodaySummary returns nutrition totals for today's civil day in the
// user's timezone, alongside their targets.
// GET /api/meals/today/summary.
func (h *Handler) getTodaySummary(c *gin.Context) {
	userID := c.GetString("user_id")

	u, err := queryOne[user](h.db, c,
		"SELECT * FROM users WHERE id = @id", pgx.NamedArgs{"id": userID})
	if err != nil {
		apiError(c, http.StatusNotFound, "user not found")
		return
	}

	loc, err := userLocation(u.Timezone)
	if err != nil {
		// A stored timezone that fails to load is a config defect, not user error.
		log.Printf("[getTodaySummary] %v", err)
		apiError(c, http.StatusInternalServerError, "profile timezone is invalid")
		return
	}

	// Today's boundaries in the user's zone. AddDate (not +24h) so the
	// summary stays correct across DST transitions.
	dayStart := civilDay(time.Now(), loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	var summary todaySummary
	err = h.db.QueryRow(c,
		`SELECT COALESCE(SUM(calories_kcal), 0),
		        COALESCE(SUM(protein_g), 0),
		        COALESCE(SUM(carbs_g), 0),
		        COALESCE(SUM(fat_g), 0),
		        COUNT(*)
		 FROM meals
		 WHERE user_id = @userID AND timestamp >= @dayStart AND timestamp < @dayEnd`,
		pgx.NamedArgs{"userID": userID, "dayStart": dayStart, "dayEnd": dayEnd},
	).Scan(&summary.TotalCalories, &summary.TotalProtein, &summary.TotalCarbs,
		&summary.TotalFat, &summary.MealCount)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to compute summary")
		return
	}

	summary.CalorieTarget = u.DailyCalorieTarget
	summary.ProteinTarget = u.DailyProteinTarget

	c.JSON(http.StatusOK, summary)
}
