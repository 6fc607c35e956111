package main

import (
	"log"
	"math"
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// trendRow is the slice of a meal the trends aggregation needs.
type trendRow struct {
	Timestamp    time.Time `db:"timestamp"`
	CaloriesKcal float64   `db:"calories_kcal"`
	ProteinG     float64   `db:"protein_g"`
	CarbsG       float64   `db:"carbs_g"`
	FatG         float64   `db:"fat_g"`
}

// round1 rounds to one decimal place for display averages.
func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

// getTrends returns per-civil-day nutrition totals for the last N days plus a
// summary against the user's targets. Days are grouped in the user's timezone
// with the same projection the streak uses, so the two screens always agree on
// what "a day" is.
// GET /api/insights/trends?days=N (defaults to 7).
func (h *Handler) getTrends(c *gin.Context) {
	userID := c.GetString("user_id")

	days := 7
	if s := c.Query("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 90 {
			apiError(c, http.StatusBadRequest, "days must be an integer between 1 and 90")
			return
		}
		days = n
	}

	u, err := queryOne[user](h.db, c,
		"SELECT * FROM users WHERE id = @id", pgx.NamedArgs{"id": userID})
	if err != nil {
		apiError(c, http.StatusNotFound, "user not found")
		return
	}

	loc, err := userLocation(u.Timezone)
	if err != nil {
		log.Printf("[getTrends] %v", err)
		apiError(c, http.StatusInternalServerError, "profile timezone is invalid")
		return
	}

	since := civilDay(time.Now(), loc).AddDate(0, 0, -(days - 1))
	rows, err := queryMany[trendRow](h.db, c,
		`SELECT timestamp, calories_kcal, protein_g, carbs_g, fat_g
		 FROM meals WHERE user_id = @userID AND timestamp >= @since`,
		pgx.NamedArgs{"userID": userID, "since": since})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch trend data")
		return
	}

	// Group by civil day in the user's zone.
	byDay := make(map[string]*trendDay)
	for _, r := range rows {
		key := civilDay(r.Timestamp, loc).Format("2006-01-02")
		day, ok := byDay[key]
		if !ok {
			day = &trendDay{Date: key}
			byDay[key] = day
		}
		day.Calories += r.CaloriesKcal
		day.Protein += r.ProteinG
		day.Carbs += r.CarbsG
		day.Fat += r.FatG
		day.MealCount++
	}

	trends := make([]trendDay, 0, len(byDay))
	for _, day := range byDay {
		trends = append(trends, *day)
	}
	sort.Slice(trends, func(i, j int) bool { return trends[i].Date < trends[j].Date })

	var summary trendsSummary
	summary.TotalDays = len(trends)
	if len(trends) > 0 {
		var totalCalories, totalProtein float64
		for _, d := range trends {
			totalCalories += d.Calories
			totalProtein += d.Protein
			if d.Calories > float64(u.DailyCalorieTarget) {
				summary.SurplusDays++
			}
			if d.Protein >= float64(u.DailyProteinTarget) {
				summary.ProteinMetDays++
			}
		}
		summary.DeficitDays = len(trends) - summary.SurplusDays
		summary.AvgCalories = round1(totalCalories / float64(len(trends)))
		summary.AvgProtein = round1(totalProtein / float64(len(trends)))
	}

	c.JSON(http.StatusOK, trendsResponse{Trends: trends, Summary: summary})
}

// whoRecommendations are WHO-style healthy-eating tips the insights screen
// rotates through.
var whoRecommendations = []gin.H{
	{
		"title":       "Balanced Diet",
		"description": "Include a variety of foods: fruits, vegetables, legumes, nuts and whole grains.",
		"icon":        "nutrition",
	},
	{
		"title":       "Reduce Salt Intake",
		"description": "Limit salt intake to less than 5g per day to prevent hypertension and heart disease.",
		"icon":        "salt",
	},
	{
		"title":       "Sugar Moderation",
		"description": "Limit free sugars to less than 10% of total energy intake for optimal health.",
		"icon":        "sugar",
	},
	{
		"title":       "Healthy Fats",
		"description": "Replace saturated fats with unsaturated fats found in fish, nuts, and vegetable oils.",
		"icon":        "fats",
	},
	{
		"title":       "Stay Hydrated",
		"description": "Drink 8-10 glasses of water daily to maintain proper bodily functions.",
		"icon":        "water",
	},
}

// getWHORecommendation returns one random tip.
// GET /api/insights/who-recommendations.
func (h *Handler) getWHORecommendation(c *gin.Context) {
	c.JSON(http.StatusOK, whoRecommendations[rand.Intn(len(whoRecommendations))])
}
