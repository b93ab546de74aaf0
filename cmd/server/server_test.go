package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jahansayem/agencydesk/internal/analytics"
	"github.com/Jahansayem/agencydesk/internal/cache"
	"github.com/Jahansayem/agencydesk/internal/crosssell"
	"github.com/Jahansayem/agencydesk/internal/database"
	"github.com/Jahansayem/agencydesk/internal/errors"
	"github.com/Jahansayem/agencydesk/internal/monitoring"
	"github.com/Jahansayem/agencydesk/internal/security"
	"github.com/Jahansayem/agencydesk/internal/tasks"
)

// setupRouter mirrors the wiring in main against an in-memory database.
func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := database.NewRepository(db)
	agentService := database.NewAgentService(repo, "test-secret")

	appMetrics := monitoring.NewMetrics()
	appLogger := monitoring.NewLogger()

	model := crosssell.DefaultModel()
	analyticsService := analytics.NewService(repo, model, appMetrics, appLogger, 15*time.Minute, 50)
	taskService := tasks.NewService(repo)

	securityMiddleware := security.NewMiddleware(security.DefaultConfig(), agentService, appMetrics)
	appCache := cache.NewCache(15 * time.Minute)

	r := gin.New()
	r.Use(errors.ErrorHandler())
	r.Use(securityMiddleware.SecurityHeaders)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/auth/register", func(c *gin.Context) {
		var req struct {
			AgencyName string `json:"agency_name" binding:"required"`
			AgentName  string `json:"agent_name" binding:"required"`
			Email      string `json:"email" binding:"required,email"`
			PIN        string `json:"pin" binding:"required"`
		}
		if err := c.BindJSON(&req); err != nil {
			appErr := errors.NewValidationError("invalid registration request", err.Error())
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		agency := database.NewAgency(req.AgencyName)
		require.NoError(t, repo.CreateAgency(agency))

		agent, err := agentService.CreateAgent(agency.ID, req.AgentName, req.Email, req.PIN)
		require.NoError(t, err)

		token, err := agentService.GenerateSessionToken(agency.ID, agent.ID)
		require.NoError(t, err)

		c.JSON(http.StatusCreated, gin.H{"agency": agency, "agent": agent, "token": token})
	})

	r.POST("/auth/login", func(c *gin.Context) {
		var req struct {
			AgencyID string `json:"agency_id" binding:"required"`
			Email    string `json:"email" binding:"required"`
			PIN      string `json:"pin" binding:"required"`
		}
		if err := c.BindJSON(&req); err != nil {
			appErr := errors.NewValidationError("invalid login request", err.Error())
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		result, err := agentService.Authenticate(req.AgencyID, req.Email, req.PIN)
		require.NoError(t, err)

		if result.Locked {
			appErr := errors.NewLockedError(time.Until(*result.LockedUntil))
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		if !result.Success {
			appErr := errors.NewAuthError("invalid credentials")
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": result.Token, "agent": result.Agent})
	})

	api := r.Group("/api")
	api.Use(securityMiddleware.RequireAgent)

	api.POST("/customers", func(c *gin.Context) {
		var req struct {
			Name           string  `json:"name" binding:"required"`
			TenureMonths   int     `json:"tenure_months"`
			ProductCount   int     `json:"product_count"`
			RetentionScore float64 `json:"retention_score"`
			Engagement     string  `json:"engagement"`
		}
		if err := c.BindJSON(&req); err != nil {
			appErr := errors.NewValidationError("invalid customer request", err.Error())
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		customer := database.NewCustomer(security.AgencyID(c), req.Name)
		customer.TenureMonths = req.TenureMonths
		customer.ProductCount = req.ProductCount
		customer.RetentionScore = req.RetentionScore
		if req.Engagement != "" {
			customer.Engagement = req.Engagement
		}
		require.NoError(t, repo.CreateCustomer(customer))
		c.JSON(http.StatusCreated, customer)
	})

	api.POST("/tasks", func(c *gin.Context) {
		var req tasks.CreateRequest
		if err := c.BindJSON(&req); err != nil {
			appErr := errors.NewValidationError("invalid task request", err.Error())
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		task, err := taskService.Create(security.AgencyID(c), req)
		if err != nil {
			appErr := errors.ToAppError(err)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		c.JSON(http.StatusCreated, task)
	})

	api.GET("/tasks", func(c *gin.Context) {
		list, err := taskService.List(security.AgencyID(c), c.Query("status"))
		if err != nil {
			appErr := errors.ToAppError(err)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tasks": list, "total": len(list)})
	})

	api.POST("/crosssell/run", func(c *gin.Context) {
		summary, err := analyticsService.ScoreAgency(security.AgencyID(c))
		if err != nil {
			appErr := errors.ToAppError(err)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		c.JSON(http.StatusOK, summary)
	})

	api.GET("/crosssell/prospects", func(c *gin.Context) {
		limit := 20
		if limitStr := c.Query("limit"); limitStr != "" {
			if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
				limit = l
			}
		}
		prospects, err := analyticsService.GetTopProspects(security.AgencyID(c), limit)
		if err != nil {
			appErr := errors.ToAppError(err)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		c.JSON(http.StatusOK, gin.H{"prospects": prospects, "total": len(prospects)})
	})

	api.POST("/crosssell/incentives", appCache.Middleware(appMetrics), func(c *gin.Context) {
		var req struct {
			TotalCustomers        int `json:"total_customers"`
			HighPropensityCount   int `json:"high_propensity_count"`
			MediumPropensityCount int `json:"medium_propensity_count"`
		}
		if err := c.BindJSON(&req); err != nil {
			appErr := errors.NewValidationError("invalid incentive request", err.Error())
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		scenarios := model.AnalyzeIncentives(req.TotalCustomers, req.HighPropensityCount, req.MediumPropensityCount)
		c.JSON(http.StatusOK, gin.H{"scenarios": scenarios})
	})

	api.POST("/crosssell/growth", appCache.Middleware(appMetrics), func(c *gin.Context) {
		var req struct {
			StartingCustomers int     `json:"starting_customers"`
			ReferralRate      float64 `json:"referral_rate"`
			Months            int     `json:"months"`
		}
		if err := c.BindJSON(&req); err != nil {
			appErr := errors.NewValidationError("invalid growth request", err.Error())
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		projection := model.ProjectGrowth(req.StartingCustomers, req.ReferralRate, req.Months)
		c.JSON(http.StatusOK, projection)
	})

	api.POST("/crosssell/roi", appCache.Middleware(appMetrics), func(c *gin.Context) {
		var req struct {
			SetupCost              float64 `json:"setup_cost"`
			MonthlyCost            float64 `json:"monthly_cost"`
			IncentivePerConversion float64 `json:"incentive_per_conversion"`
			MonthlyConversions     float64 `json:"monthly_conversions"`
			Months                 int     `json:"months"`
		}
		if err := c.BindJSON(&req); err != nil {
			appErr := errors.NewValidationError("invalid ROI request", err.Error())
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		analysis := model.CalculateROI(req.SetupCost, req.MonthlyCost,
			req.IncentivePerConversion, req.MonthlyConversions, req.Months)
		c.JSON(http.StatusOK, analysis)
	})

	return r
}

func doJSON(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}

	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func registerAgency(t *testing.T, r *gin.Engine) (agencyID, token string) {
	t.Helper()

	w := doJSON(r, "POST", "/auth/register", "", map[string]interface{}{
		"agency_name": "Harbor Insurance Group",
		"agent_name":  "Dana",
		"email":       "dana@harbor.test",
		"pin":         "4821",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Agency struct {
			ID string `json:"id"`
		} `json:"agency"`
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	return resp.Agency.ID, resp.Token
}

func TestHealthEndpoint(t *testing.T) {
	r := setupRouter(t)

	w := doJSON(r, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestLoginFlow(t *testing.T) {
	r := setupRouter(t)
	agencyID, _ := registerAgency(t, r)

	w := doJSON(r, "POST", "/auth/login", "", map[string]string{
		"agency_id": agencyID,
		"email":     "dana@harbor.test",
		"pin":       "0000",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, "POST", "/auth/login", "", map[string]string{
		"agency_id": agencyID,
		"email":     "dana@harbor.test",
		"pin":       "4821",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLockoutViaHTTP(t *testing.T) {
	r := setupRouter(t)
	agencyID, _ := registerAgency(t, r)

	login := map[string]string{
		"agency_id": agencyID,
		"email":     "dana@harbor.test",
		"pin":       "0000",
	}

	var w *httptest.ResponseRecorder
	for i := 0; i < 5; i++ {
		w = doJSON(r, "POST", "/auth/login", "", login)
	}
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Correct PIN is still rejected during the lockout window.
	login["pin"] = "4821"
	w = doJSON(r, "POST", "/auth/login", "", login)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := setupRouter(t)

	w := doJSON(r, "GET", "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, "GET", "/api/tasks", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTaskEndpoints(t *testing.T) {
	r := setupRouter(t)
	_, token := registerAgency(t, r)

	w := doJSON(r, "POST", "/api/tasks", token, map[string]string{"title": "Call renewal list"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, "GET", "/api/tasks", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
}

func TestScoringFlowViaHTTP(t *testing.T) {
	r := setupRouter(t)
	_, token := registerAgency(t, r)

	for i, spec := range []map[string]interface{}{
		{"name": "High", "tenure_months": 72, "product_count": 4, "retention_score": 0.95, "engagement": "high"},
		{"name": "Low", "tenure_months": 6, "product_count": 1, "retention_score": 0.40, "engagement": "low"},
	} {
		w := doJSON(r, "POST", "/api/customers", token, spec)
		require.Equal(t, http.StatusCreated, w.Code, fmt.Sprintf("customer %d", i))
	}

	w := doJSON(r, "POST", "/api/crosssell/run", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var summary struct {
		CustomersScored int     `json:"customers_scored"`
		AverageScore    float64 `json:"average_score"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.CustomersScored)

	w = doJSON(r, "GET", "/api/crosssell/prospects?limit=10", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var prospects struct {
		Total     int `json:"total"`
		Prospects []struct {
			CustomerName string  `json:"customer_name"`
			Score        float64 `json:"score"`
		} `json:"prospects"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &prospects))
	require.Equal(t, 2, prospects.Total)
	assert.Equal(t, "High", prospects.Prospects[0].CustomerName)
}

func TestIncentiveEndpoint(t *testing.T) {
	r := setupRouter(t)
	_, token := registerAgency(t, r)

	body := map[string]interface{}{
		"total_customers":         500,
		"high_propensity_count":   100,
		"medium_propensity_count": 200,
	}

	w := doJSON(r, "POST", "/api/crosssell/incentives", token, body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Scenarios []struct {
			IncentiveAmount float64 `json:"incentive_amount"`
			Recommendation  string  `json:"recommendation"`
		} `json:"scenarios"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Scenarios, 5)
	assert.Equal(t, 50.0, resp.Scenarios[0].IncentiveAmount)

	// The identical request is served from the response cache.
	w = doJSON(r, "POST", "/api/crosssell/incentives", token, body)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGrowthEndpoint(t *testing.T) {
	r := setupRouter(t)
	_, token := registerAgency(t, r)

	w := doJSON(r, "POST", "/api/crosssell/growth", token, map[string]interface{}{
		"starting_customers": 1000,
		"referral_rate":      0.1,
		"months":             12,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		KFactor        float64 `json:"k_factor"`
		Interpretation string  `json:"interpretation"`
		Months         []struct {
			Month int `json:"month"`
		} `json:"months"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.InDelta(t, 0.049, resp.KFactor, 1e-9)
	assert.Equal(t, "minimal", resp.Interpretation)
	assert.Len(t, resp.Months, 12)
}

func TestROIEndpoint(t *testing.T) {
	r := setupRouter(t)
	_, token := registerAgency(t, r)

	w := doJSON(r, "POST", "/api/crosssell/roi", token, map[string]interface{}{
		"incentive_per_conversion": 100,
		"monthly_conversions":      10,
		"months":                   12,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Referral struct {
			TotalCustomers float64 `json:"total_customers"`
			CAC            float64 `json:"cac"`
			LTVCACRatio    float64 `json:"ltv_cac_ratio"`
		} `json:"referral"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.InDelta(t, 120.0, resp.Referral.TotalCustomers, 1e-9)
	assert.InDelta(t, 100.0, resp.Referral.CAC, 1e-9)
	assert.InDelta(t, 82.0, resp.Referral.LTVCACRatio, 1e-9)
}
