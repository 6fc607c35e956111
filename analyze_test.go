package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// setupAnalyzeTest creates a Gin engine with a mock DeepSeek server and returns
// the router and a function to set the mock response. No DB needed — the
// handler falls back to an unpersonalized prompt.
func setupAnalyzeTest() (*gin.Engine, *httptest.Server, func(int, interface{})) {
	var mockStatus int
	var mockBody interface{}

	mockDeepSeek := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(mockStatus)
		json.NewEncoder(w).Encode(mockBody)
	}))

	gin.SetMode(gin.TestMode)
	h := Handler{aiBaseURL: mockDeepSeek.URL}
	router := gin.New()
	// Skip auth middleware for tests — set a dummy user_id
	router.POST("/api/meals/analyze", func(c *gin.Context) {
		c.Set("user_id", "test-user")
		c.Next()
	}, h.analyzeMeal)

	setMock := func(status int, body interface{}) {
		mockStatus = status
		mockBody = body
	}

	return router, mockDeepSeek, setMock
}

// doAnalyzeRequest sends a POST to the analyze endpoint with the given body.
func doAnalyzeRequest(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/meals/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// chatResponse wraps a content string in the chat completions response shape
// (choices[0].message.content).
func chatResponse(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{
				"message": map[string]interface{}{
					"content": content,
				},
			},
		},
	}
}

// analysisPayload is a well-formed model reply used across the success tests.
const analysisPayload = `{
	"calories_kcal": 540,
	"macros": {"protein_g": 22, "carbs_g": 68, "fat_g": 18, "fiber_g": 9, "sugar_g": 6, "sodium_mg": 820},
	"confidence_score": 0.91,
	"food_items": [{"name": "Chana Masala", "probability": 0.95, "portion_estimate_g": 250}],
	"recommendations": ["Add a side of raita for protein", "Watch the sodium"],
	"explainability": ["Chickpeas drive the carbs", "Oil adds most of the fat"]
}`

func TestAnalyze_Success(t *testing.T) {
	router, mockServer, setMock := setupAnalyzeTest()
	defer mockServer.Close()

	setMock(http.StatusOK, chatResponse(analysisPayload))
	t.Setenv("DEEPSEEK_API_KEY", "test-key")

	w := doAnalyzeRequest(router, `{"description":"chana masala with rice","tag":"lunch"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Status string         `json:"status"`
		Data   analysisResult `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Status != "success" {
		t.Fatalf("expected status 'success', got '%s'", resp.Status)
	}
	if resp.Data.CaloriesKcal != 540 {
		t.Errorf("expected calories_kcal 540, got %g", resp.Data.CaloriesKcal)
	}
	if resp.Data.ProteinG != 22 {
		t.Errorf("expected protein_g 22, got %g", resp.Data.ProteinG)
	}
	if len(resp.Data.Items) != 1 || resp.Data.Items[0].Name != "Chana Masala" {
		t.Errorf("unexpected items: %+v", resp.Data.Items)
	}
	// 0.91 confidence: no confirmation flags should be set
	if resp.Data.NeedsConfirmation || resp.Data.NeedsPortionConfirmation || resp.Data.VeryLowConfidence {
		t.Errorf("expected no confidence flags at 0.91, got %+v", resp.Data)
	}
}

func TestAnalyze_CodeFencedReply(t *testing.T) {
	router, mockServer, setMock := setupAnalyzeTest()
	defer mockServer.Close()

	// Models sometimes wrap the JSON in a markdown block despite the prompt.
	setMock(http.StatusOK, chatResponse("```json\n"+analysisPayload+"\n```"))
	t.Setenv("DEEPSEEK_API_KEY", "test-key")

	w := doAnalyzeRequest(router, `{"description":"chana masala","tag":"lunch"}`)

	var resp struct {
		Status string `json:"status"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != "success" {
		t.Errorf("expected status 'success' for fenced reply, got '%s': %s", resp.Status, w.Body.String())
	}
}

func TestAnalyze_ConfidenceFlags(t *testing.T) {
	tests := []struct {
		name        string
		confidence  string
		wantConfirm bool
		wantPortion bool
		wantVeryLow bool
	}{
		{"mid confidence asks for portion", "0.65", true, true, false},
		{"low confidence flags very low", "0.4", true, false, true},
		{"boundary 0.80 needs nothing", "0.80", false, false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router, mockServer, setMock := setupAnalyzeTest()
			defer mockServer.Close()

			payload := strings.Replace(analysisPayload, "0.91", tc.confidence, 1)
			setMock(http.StatusOK, chatResponse(payload))
			t.Setenv("DEEPSEEK_API_KEY", "test-key")

			w := doAnalyzeRequest(router, `{"description":"dal","tag":"dinner"}`)

			var resp struct {
				Data analysisResult `json:"data"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			if resp.Data.NeedsConfirmation != tc.wantConfirm {
				t.Errorf("needs_confirmation = %v, want %v", resp.Data.NeedsConfirmation, tc.wantConfirm)
			}
			if resp.Data.NeedsPortionConfirmation != tc.wantPortion {
				t.Errorf("needs_portion_confirmation = %v, want %v", resp.Data.NeedsPortionConfirmation, tc.wantPortion)
			}
			if resp.Data.VeryLowConfidence != tc.wantVeryLow {
				t.Errorf("very_low_confidence = %v, want %v", resp.Data.VeryLowConfidence, tc.wantVeryLow)
			}
		})
	}
}

func TestAnalyze_NoFoodItems(t *testing.T) {
	router, mockServer, setMock := setupAnalyzeTest()
	defer mockServer.Close()

	setMock(http.StatusOK, chatResponse(`{"calories_kcal": 100, "macros": {}, "confidence_score": 0.7, "food_items": []}`))
	t.Setenv("DEEPSEEK_API_KEY", "test-key")

	w := doAnalyzeRequest(router, `{"description":"a rock","tag":"snack"}`)

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "error" || resp["code"] != "SCHEMA_VALIDATION_ERROR" {
		t.Errorf("expected SCHEMA_VALIDATION_ERROR, got %s", w.Body.String())
	}
}

func TestAnalyze_MalformedModelReply(t *testing.T) {
	router, mockServer, setMock := setupAnalyzeTest()
	defer mockServer.Close()

	setMock(http.StatusOK, chatResponse(`not valid json at all`))
	t.Setenv("DEEPSEEK_API_KEY", "test-key")

	w := doAnalyzeRequest(router, `{"description":"banana","tag":"snack"}`)

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["code"] != "SCHEMA_VALIDATION_ERROR" {
		t.Errorf("expected SCHEMA_VALIDATION_ERROR, got %s", w.Body.String())
	}
}

func TestAnalyze_RateLimited(t *testing.T) {
	router, mockServer, setMock := setupAnalyzeTest()
	defer mockServer.Close()

	setMock(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
	t.Setenv("DEEPSEEK_API_KEY", "test-key")

	w := doAnalyzeRequest(router, `{"description":"banana","tag":"snack"}`)

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["code"] != "RATE_LIMIT" {
		t.Errorf("expected RATE_LIMIT, got %s", w.Body.String())
	}
}

func TestAnalyze_EmptyDescription(t *testing.T) {
	router, mockServer, _ := setupAnalyzeTest()
	defer mockServer.Close()

	w := doAnalyzeRequest(router, `{"description":"   ","tag":"snack"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}
