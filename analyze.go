package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

/* ─── Request / Response types ───────────────────────────────────────── */

// analyzeRequest is the request body for POST /api/meals/analyze.
// PortionAmount/PortionUnit let the user override the model's portion estimate.
type analyzeRequest struct {
	Description   string   `json:"description"`
	Tag           string   `json:"tag"`
	PortionAmount *float64 `json:"portion_amount"`
	PortionUnit   *string  `json:"portion_unit"`
}

// analysisResult is the structured nutrition data parsed from the model's
// reply, plus the confidence flags the client uses to decide whether to ask
// the user to confirm before saving.
type analysisResult struct {
	CaloriesKcal             float64    `json:"calories_kcal"`
	ProteinG                 float64    `json:"protein_g"`
	CarbsG                   float64    `json:"carbs_g"`
	FatG                     float64    `json:"fat_g"`
	FiberG                   float64    `json:"fiber_g"`
	SugarG                   float64    `json:"sugar_g"`
	SodiumMg                 float64    `json:"sodium_mg"`
	ConfidenceScore          float64    `json:"confidence_score"`
	Items                    []foodItem `json:"items"`
	Recommendations          []string   `json:"recommendations"`
	Explanation              []string   `json:"explanation"`
	NeedsConfirmation        bool       `json:"needs_confirmation"`
	NeedsPortionConfirmation bool       `json:"needs_portion_confirmation"`
	VeryLowConfidence        bool       `json:"very_low_confidence"`
}

/* ─── DeepSeek prompt ────────────────────────────────────────────────── */

const analysisSystemPrompt = `You are an expert nutrition analyst specializing in Indian and global cuisine.

TASK: Analyze the described meal and provide detailed nutritional information.

CRITICAL: Return ONLY a valid JSON object. No prose, no markdown, no explanations outside JSON.

EXACT JSON SCHEMA REQUIRED:
{
  "calories_kcal": <number>,
  "macros": {
    "protein_g": <number>,
    "carbs_g": <number>,
    "fat_g": <number>,
    "fiber_g": <number or null>,
    "sugar_g": <number or null>,
    "sodium_mg": <number or null>
  },
  "confidence_score": <number 0-1>,
  "food_items": [
    {
      "name": "<food name>",
      "probability": <number 0-1>,
      "portion_estimate_g": <number>
    }
  ],
  "recommendations": ["<personalized recommendation 1>", "<recommendation 2>"],
  "explainability": ["<explanation point 1>", "<explanation point 2>"]
}

VALIDATION RULES:
- All numeric values must be positive numbers
- confidence_score and probability must be between 0 and 1
- Include at least 2-3 recommendations and 2-3 explainability points
- Consider the user's dietary restrictions and allergies
- Tailor recommendations to the user's goals`

// userContextTemplate is appended to the system prompt when profile data is
// available, so recommendations come out personalized.
const userContextTemplate = `
USER PROFILE CONTEXT:
- Goal: %s
- Activity Level: %s
- Daily Calorie Target: %d kcal
- Daily Protein Target: %dg
- Diet Preference: %s
- Allergies: %s
- Medical Conditions: %s
%sTailor your recommendations based on this user profile and portion estimate when provided.`

/* ─── DeepSeek HTTP client ───────────────────────────────────────────── */

// aiMessage is a single message in the chat completions request.
type aiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// aiRequest is the request body for the DeepSeek chat completions API.
type aiRequest struct {
	Model       string      `json:"model"`
	Messages    []aiMessage `json:"messages"`
	Temperature float64     `json:"temperature"`
	MaxTokens   int         `json:"max_tokens"`
}

// callDeepSeek sends a chat completions request and returns the raw content
// string from the first choice. Uses raw net/http to avoid pulling in an SDK.
func callDeepSeek(ctx context.Context, messages []aiMessage, baseURL string) (string, error) {
	apiKey := os.Getenv("DEEPSEEK_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("DEEPSEEK_API_KEY not set")
	}

	reqBody := aiRequest{
		Model:       "deepseek-chat",
		Messages:    messages,
		Temperature: 0.4,
		MaxTokens:   800,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("deepseek returned status %d: %s", resp.StatusCode, string(respBytes))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return result.Choices[0].Message.Content, nil
}

// stripCodeFences removes a wrapping ```json ... ``` block if the model added
// one despite the prompt.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

/* ─── Handler ────────────────────────────────────────────────────────── */

// analyzeMeal handles POST /api/meals/analyze.
// Accepts a meal description, calls DeepSeek to parse it into structured
// nutrition data, validates the reply against the schema, and returns it with
// confidence flags. Errors come back with the product's error codes
// (SCHEMA_VALIDATION_ERROR, RATE_LIMIT, TIMEOUT, NETWORK, ANALYSIS_ERROR) so
// the client can show a targeted retry hint.
func (h *Handler) analyzeMeal(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		apiError(c, http.StatusBadRequest, "description is required")
		return
	}

	systemPrompt := analysisSystemPrompt + h.buildUserContext(c, req.PortionAmount, req.PortionUnit)
	messages := []aiMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: req.Description},
	}

	content, err := callDeepSeek(c.Request.Context(), messages, h.aiBaseURL)
	if err != nil {
		log.Printf("[analyzeMeal] DeepSeek error: %v", err)
		c.JSON(http.StatusOK, gin.H{
			"status":  "error",
			"code":    analysisErrorCode(err),
			"message": analysisErrorMessage(err),
		})
		return
	}

	// The model returns the macros nested; flatten into analysisResult.
	var raw struct {
		CaloriesKcal float64 `json:"calories_kcal"`
		Macros       struct {
			ProteinG float64 `json:"protein_g"`
			CarbsG   float64 `json:"carbs_g"`
			FatG     float64 `json:"fat_g"`
			FiberG   float64 `json:"fiber_g"`
			SugarG   float64 `json:"sugar_g"`
			SodiumMg float64 `json:"sodium_mg"`
		} `json:"macros"`
		ConfidenceScore float64    `json:"confidence_score"`
		FoodItems       []foodItem `json:"food_items"`
		Recommendations []string   `json:"recommendations"`
		Explainability  []string   `json:"explainability"`
	}
	if err := json.Unmarshal([]byte(stripCodeFences(content)), &raw); err != nil {
		log.Printf("[analyzeMeal] Failed to parse DeepSeek response: %v", err)
		c.JSON(http.StatusOK, gin.H{
			"status":  "error",
			"code":    "SCHEMA_VALIDATION_ERROR",
			"message": "Validation failed: response was not valid JSON",
		})
		return
	}

	if raw.CaloriesKcal < 0 || raw.ConfidenceScore < 0 || raw.ConfidenceScore > 1 || len(raw.FoodItems) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"status":  "error",
			"code":    "SCHEMA_VALIDATION_ERROR",
			"message": "Validation failed: no food items detected",
		})
		return
	}

	result := analysisResult{
		CaloriesKcal:    raw.CaloriesKcal,
		ProteinG:        raw.Macros.ProteinG,
		CarbsG:          raw.Macros.CarbsG,
		FatG:            raw.Macros.FatG,
		FiberG:          raw.Macros.FiberG,
		SugarG:          raw.Macros.SugarG,
		SodiumMg:        raw.Macros.SodiumMg,
		ConfidenceScore: raw.ConfidenceScore,
		Items:           raw.FoodItems,
		Recommendations: raw.Recommendations,
		Explanation:     raw.Explainability,
	}
	result.NeedsConfirmation = result.ConfidenceScore < 0.80
	result.NeedsPortionConfirmation = result.ConfidenceScore < 0.80 && result.ConfidenceScore >= 0.50
	result.VeryLowConfidence = result.ConfidenceScore < 0.50

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": result})
}

// buildUserContext loads the user's profile and renders the context block for
// the system prompt. Returns an empty string when no profile is available so
// the analysis still works (just unpersonalized).
func (h *Handler) buildUserContext(c *gin.Context, portionAmount *float64, portionUnit *string) string {
	if h.db == nil {
		return ""
	}
	userID := c.GetString("user_id")
	u, err := queryOne[user](h.db, c,
		"SELECT * FROM users WHERE id = @id", pgx.NamedArgs{"id": userID})
	if err != nil {
		return ""
	}

	dietPref := "None"
	if u.DietPref != nil && *u.DietPref != "" {
		dietPref = *u.DietPref
	}
	allergies := "None"
	if len(u.Allergies) > 0 {
		allergies = strings.Join(u.Allergies, ", ")
	}
	medical := "None"
	if len(u.Medical) > 0 {
		medical = strings.Join(u.Medical, ", ")
	}
	portion := ""
	if portionAmount != nil && *portionAmount > 0 {
		unit := "g"
		if portionUnit != nil && *portionUnit != "" {
			unit = *portionUnit
		}
		portion = fmt.Sprintf("- User-estimated portion: %g %s\n", *portionAmount, unit)
	}

	return fmt.Sprintf(userContextTemplate,
		titleCase(strings.ReplaceAll(u.Goal, "_", " ")),
		titleCase(u.ActivityLevel),
		u.DailyCalorieTarget, u.DailyProteinTarget,
		dietPref, allergies, medical, portion)
}

// titleCase capitalizes the first letter of each space-separated word.
// Profile enum values are plain ASCII, so no need for Unicode casing rules.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// analysisErrorCode buckets transport failures into the product's error codes.
func analysisErrorCode(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota"), strings.Contains(msg, "rate"), strings.Contains(msg, "429"):
		return "RATE_LIMIT"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return "TIMEOUT"
	case strings.Contains(msg, "network"), strings.Contains(msg, "connection"):
		return "NETWORK"
	default:
		return "ANALYSIS_ERROR"
	}
}

// analysisErrorMessage maps error codes to the retry hints the client shows.
func analysisErrorMessage(err error) string {
	switch analysisErrorCode(err) {
	case "RATE_LIMIT":
		return "Service temporarily busy — please wait 60 seconds and try again."
	case "TIMEOUT":
		return "Analysis took too long — try again."
	case "NETWORK":
		return "Network issue — please retry."
	default:
		return "Failed to analyze meal. Please try again."
	}
}
