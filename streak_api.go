package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// getStreak returns the consecutive-day logging streak for the authenticated
// user, plus the message and color tier the client renders with it.
// GET /api/streak.
//
// The clock is read once and passed through so the whole computation shares a
// single "today" even if the request straddles midnight. The streak is always
// recomputed from history — never incremented or cached — so deleting a meal
// or changing the profile timezone is reflected immediately.
func (h *Handler) getStreak(c *gin.Context) {
	userID := c.GetString("user_id")

	u, err := queryOne[user](h.db, c,
		"SELECT * FROM users WHERE id = @id", pgx.NamedArgs{"id": userID})
	if err != nil {
		apiError(c, http.StatusNotFound, "user not found")
		return
	}

	loc, err := userLocation(u.Timezone)
	if err != nil {
		// Stored zones are validated on write, so this only trips when the
		// tzdata on the host disagrees — a deployment defect, not user error.
		log.Printf("[getStreak] %v", err)
		apiError(c, http.StatusInternalServerError, "profile timezone is invalid")
		return
	}

	rows, err := h.db.Query(c,
		"SELECT timestamp FROM meals WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch meal history")
		return
	}
	timestamps, err := pgx.CollectRows(rows, pgx.RowTo[time.Time])
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch meal history")
		return
	}

	streak := mealStreak(timestamps, time.Now(), loc)

	c.JSON(http.StatusOK, streakResponse{
		Streak:  streak,
		Message: streakMessage(streak),
		Color:   streakColor(streak),
	})
}
