package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/Jahansayem/agencydesk/internal/analytics"
	"github.com/Jahansayem/agencydesk/internal/billing"
	"github.com/Jahansayem/agencydesk/internal/cache"
	"github.com/Jahansayem/agencydesk/internal/config"
	"github.com/Jahansayem/agencydesk/internal/crosssell"
	"github.com/Jahansayem/agencydesk/internal/database"
	"github.com/Jahansayem/agencydesk/internal/errors"
	"github.com/Jahansayem/agencydesk/internal/importer"
	"github.com/Jahansayem/agencydesk/internal/monitoring"
	"github.com/Jahansayem/agencydesk/internal/ratelimit"
	"github.com/Jahansayem/agencydesk/internal/security"
	"github.com/Jahansayem/agencydesk/internal/tasks"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()

	db, err := database.NewDB(cfg.DataDir)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := database.NewRepository(db)
	agentService := database.NewAgentService(repo, cfg.JWTSecret)

	appMetrics := monitoring.NewMetrics()
	appLogger := monitoring.NewLogger()

	model := crosssell.DefaultModel()
	analyticsService := analytics.NewService(repo, model, appMetrics, appLogger, cfg.CacheTTL, cfg.ScoringLimitPerDay)
	taskService := tasks.NewService(repo)
	csvImporter := importer.NewImporter(repo)
	billingService := billing.NewService(cfg.StripeSecretKey, cfg.StripeWebhookSecret, agentService)

	redisClient, err := ratelimit.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		slog.Warn("Redis unavailable, continuing with in-memory rate limiting", "error", err)
	}
	defer redisClient.Close()

	limiterConfig := ratelimit.DefaultConfig()
	limiterConfig.IPLimitPerMin = cfg.IPLimitPerMin
	rateLimiter := ratelimit.NewRateLimiter(redisClient, limiterConfig, appMetrics)

	r := gin.New()

	r.Use(monitoring.Middleware(appMetrics, appLogger))
	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())

	securityConfig := security.DefaultConfig()
	securityConfig.AllowedOrigins = cfg.AllowedOrigins
	securityConfig.RequestTimeout = cfg.RequestTimeout
	securityMiddleware := security.NewMiddleware(securityConfig, agentService, appMetrics)

	r.Use(securityMiddleware.SecurityHeaders)
	r.Use(securityMiddleware.RequestTimeout)
	r.Use(securityMiddleware.ValidateContentType)

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(rateLimiter.IPRateLimitMiddleware())

	appCache := cache.NewCache(cfg.CacheTTL)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   "1.0.0",
			"redis":     redisClient.IsEnabled(),
		})
	})

	// Registration creates the agency tenant and its first agent login.
	r.POST("/auth/register", func(c *gin.Context) {
		var req struct {
			AgencyName string `json:"agency_name" binding:"required"`
			AgentName  string `json:"agent_name" binding:"required"`
			Email      string `json:"email" binding:"required,email"`
			PIN        string `json:"pin" binding:"required"`
		}

		if err := c.BindJSON(&req); err != nil {
			appErr := errors.NewValidationError("invalid registration request", err.Error())
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		agency := database.NewAgency(req.AgencyName)
		if err := repo.CreateAgency(agency); err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		agent, err := agentService.CreateAgent(agency.ID, req.AgentName, req.Email, req.PIN)
		if err != nil {
			appErr := errors.NewValidationError(err.Error())
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		token, err := agentService.GenerateSessionToken(agency.ID, agent.ID)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"agency": agency,
			"agent":  agent,
			"token":  token,
		})
	})

	r.POST("/auth/login", func(c *gin.Context) {
		var req struct {
			AgencyID string `json:"agency_id" binding:"required"`
			Email    string `json:"email" binding:"required"`
			PIN      string `json:"pin" binding:"required"`
		}

		if err := c.BindJSON(&req); err != nil {
			appErr := errors.NewValidationError("invalid login request", err.Error())
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		result, err := agentService.Authenticate(req.AgencyID, req.Email, req.PIN)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		appLogger.AuthLogger(req.AgencyID, req.Email, c.ClientIP(), result.Success, result.Locked)

		if result.Locked {
			appMetrics.IncrementLockout()
			appErr := errors.NewLockedError(time.Until(*result.LockedUntil))
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		if !result.Success {
			appMetrics.IncrementAuthFailure()
			appErr := errors.NewAuthError("invalid credentials")
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token": result.Token,
			"agent": result.Agent,
		})
	})

	// Stripe calls this without a session token; signature verification
	// authenticates it instead.
	r.POST("/billing/webhook", billingService.HandleWebhook)

	api := r.Group("/api")
	api.Use(securityMiddleware.RequireAgent)

	api.GET("/customers", func(c *gin.Context) {
		customers, err := repo.ListCustomers(security.AgencyID(c))
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		c.JSON(http.StatusOK, gin.H{"customers": customers, "total": len(customers)})
	})

	api.POST("/customers", func(c *gin.Context) {
		var req struct {
			Name            string  `json:"name" binding:"required"`
			Email           string  `json:"email"`
			TenureMonths    int     `json:"tenure_months"`
			ProductCount    int     `json:"product_count"`
			RetentionScore  float64 `json:"retention_score"`
			Engagement      string  `json:"engagement"`
			ClaimsSatisfied *bool   `json:"claims_satisfied"`
			NPS             *int    `json:"nps"`
		}

		if err := c.BindJSON(&req); err != nil {
			appErr := errors.NewValidationError("invalid customer request", err.Error())
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		if req.TenureMonths < 0 || req.ProductCount < 0 || req.RetentionScore < 0 || req.RetentionScore > 1 {
			appErr := errors.NewValidationError("tenure, products, and retention must be in range")
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		customer := database.NewCustomer(security.AgencyID(c), req.Name)
		customer.Email = req.Email
		customer.TenureMonths = req.TenureMonths
		customer.ProductCount = req.ProductCount
		customer.RetentionScore = req.RetentionScore
		if req.Engagement != "" {
			engagement := strings.ToLower(req.Engagement)
			if engagement != string(crosssell.EngagementHigh) &&
				engagement != string(crosssell.EngagementMedium) &&
				engagement != string(crosssell.EngagementLow) {
				appErr := errors.NewValidationError("engagement must be high, medium, or low")
				errors.LogError(c, appErr)
				c.JSON(appErr.HTTPStatus, appErr)
				return
			}
			customer.Engagement = engagement
		}
		customer.ClaimsSatisfied = req.ClaimsSatisfied
		customer.NPS = req.NPS

		if err := repo.CreateCustomer(customer); err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		c.JSON(http.StatusCreated, customer)
	})

	api.GET("/customers/:id", func(c *gin.Context) {
		customer, err := repo.GetCustomer(security.AgencyID(c), c.Param("id"))
		if err != nil {
			appErr := errors.NewNotFoundError("customer")
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		c.JSON(http.StatusOK, customer)
	})

	api.POST("/customers/import", rateLimiter.ImportRateLimitMiddleware(), func(c *gin.Context) {
		start := time.Now()

		file, _, err := c.Request.FormFile("file")
		if err != nil {
			appErr := errors.NewValidationError("multipart file field 'file' is required")
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		defer file.Close()

		result, err := csvImporter.Import(security.AgencyID(c), file)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		appMetrics.RecordImport(result.Accepted, result.Rejected)
		appLogger.ImportLogger(security.AgencyID(c), result.Accepted, result.Rejected, time.Since(start))

		c.JSON(http.StatusOK, result)
	})

	api.GET("/tasks", func(c *gin.Context) {
		list, err := taskService.List(security.AgencyID(c), c.Query("status"))
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tasks": list, "total": len(list)})
	})

	api.POST("/tasks", func(c *gin.Context) {
		var req tasks.CreateRequest
		if err := c.BindJSON(&req); err != nil {
			appErr := errors.NewValidationError("invalid task request", err.Error())
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		task, err := taskService.Create(security.AgencyID(c), req)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		c.JSON(http.StatusCreated, task)
	})

	api.GET("/tasks/:id", func(c *gin.Context) {
		task, err := taskService.Get(security.AgencyID(c), c.Param("id"))
		if err != nil {
			appErr := errors.ToAppError(err)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		c.JSON(http.StatusOK, task)
	})

	api.PUT("/tasks/:id", func(c *gin.Context) {
		var req tasks.UpdateRequest
		if err := c.BindJSON(&req); err != nil {
			appErr := errors.NewValidationError("invalid task update", err.Error())
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		task, err := taskService.Update(security.AgencyID(c), c.Param("id"), req)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		c.JSON(http.StatusOK, task)
	})

	api.DELETE("/tasks/:id", func(c *gin.Context) {
		if err := taskService.Delete(security.AgencyID(c), c.Param("id")); err != nil {
			appErr := errors.ToAppError(err)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	})

	api.POST("/crosssell/score", func(c *gin.Context) {
		var req struct {
			CustomerID string `json:"customer_id" binding:"required"`
		}
		if err := c.BindJSON(&req); err != nil {
			appErr := errors.NewValidationError("customer_id is required")
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		result, err := analyticsService.ScoreCustomer(security.AgencyID(c), req.CustomerID)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		c.JSON(http.StatusOK, result)
	})

	api.POST("/crosssell/run", func(c *gin.Context) {
		summary, err := analyticsService.ScoreAgency(security.AgencyID(c))
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
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
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		c.JSON(http.StatusOK, gin.H{"prospects": prospects, "total": len(prospects)})
	})

	// The scenario calculators are pure, so their responses are cached by
	// request body.
	api.POST("/crosssell/incentives", appCache.Middleware(appMetrics), func(c *gin.Context) {
		var req struct {
			TotalCustomers        int `json:"total_customers"`
			HighPropensityCount   int `json:"high_propensity_count"`
			MediumPropensityCount int `json:"medium_propensity_count"`
		}
		if err := c.BindJSON(&req); err != nil {
			appErr := errors.NewValidationError("invalid incentive request", err.Error())
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		if req.TotalCustomers < 0 || req.HighPropensityCount < 0 || req.MediumPropensityCount < 0 {
			appErr := errors.NewValidationError("counts must be non-negative")
			errors.LogError(c, appErr)
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
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		if req.StartingCustomers < 0 || req.ReferralRate < 0 {
			appErr := errors.NewValidationError("starting customers and referral rate must be non-negative")
			errors.LogError(c, appErr)
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
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		if req.SetupCost < 0 || req.MonthlyCost < 0 || req.IncentivePerConversion < 0 || req.MonthlyConversions < 0 {
			appErr := errors.NewValidationError("cost inputs must be non-negative")
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		analysis := model.CalculateROI(req.SetupCost, req.MonthlyCost,
			req.IncentivePerConversion, req.MonthlyConversions, req.Months)
		c.JSON(http.StatusOK, analysis)
	})

	api.POST("/billing/create-session", billingService.CreateCheckoutSession)

	// Swagger documentation routes
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, appMetrics.GetStats())
	})

	r.GET("/cache/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"response_cache": appCache.Stats(),
			"prospect_cache": analyticsService.GetCacheStats(),
		})
	})

	r.GET("/ratelimit/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, rateLimiter.GetStats())
	})

	r.GET("/pools/database", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"pool":  "database",
			"stats": db.GetPoolStats(),
		})
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}
