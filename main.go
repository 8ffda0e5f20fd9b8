package main

import (
	"crypto/tls"
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/username/mango/backend/src/config"
	"github.com/username/mango/backend/src/database"
	"github.com/username/mango/backend/src/handlers"
	"github.com/username/mango/backend/src/logger"
	"github.com/username/mango/backend/src/pluggy"
	"github.com/username/mango/backend/src/security"
	"github.com/username/mango/backend/src/services"
)

func proxyHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-Proto") == "https" {
			r.URL.Scheme = "https"
			r.TLS = &tls.ConnectionState{}
		}
		next.ServeHTTP(w, r)
	})
}

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000":    true,
			config.Cfg.FrontendBaseURL: true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Requested-With, Cookie, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "X-CSRF-Token, ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("Mango backend server starting...")

	if config.Cfg.JWTSecret == "" || len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	bankCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)
	reportCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	handlers.InitializeGoogleOAuthConfig()

	authService := security.NewAuthService(config.Cfg.JWTSecret)

	pluggyClient := pluggy.NewClient(pluggy.Config{
		BaseURL:      config.Cfg.PluggyBaseURL,
		ClientID:     config.Cfg.PluggyClientID,
		ClientSecret: config.Cfg.PluggyClientSecret,
		Timeout:      config.Cfg.PluggyTimeout,
	})
	bankSyncService := services.NewBankSyncService(pluggyClient, services.BankSyncConfig{
		PageSize:            config.Cfg.PluggyPageSize,
		AmountsInMinorUnits: config.Cfg.AmountsInMinorUnits,
	})
	ledgerService := services.NewLedgerService(database.DB, bankSyncService, bankCache, config.Cfg.SyncCutoffMonths)
	reportService := services.NewReportService(database.DB, reportCache)
	chatService := services.NewChatService(config.Cfg.OpenAIAPIKey, config.Cfg.OpenAIBaseURL, config.Cfg.OpenAIModel, database.DB)

	userHandler := handlers.NewUserHandler(authService)
	transactionHandler := handlers.NewTransactionHandler(reportService)
	categoryHandler := handlers.NewCategoryHandler()
	goalHandler := handlers.NewGoalHandler(reportService)
	scheduleHandler := handlers.NewScheduleHandler(reportService)
	bankHandler := handlers.NewBankHandler(pluggyClient, bankSyncService, ledgerService)
	reportHandler := handlers.NewReportHandler(reportService)
	chatHandler := handlers.NewChatHandler(chatService)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(proxyHeadersMiddleware)
	r.Use(enableCORS)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Mango Backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Group(func(r chi.Router) {
			r.Get("/auth/csrf", handlers.GetCSRFToken)
			r.Get("/auth/google/login", userHandler.HandleGoogleLogin)
			r.Get("/auth/google/callback", userHandler.HandleGoogleCallback)
		})

		// Auth routes (CSRF protected)
		r.Group(func(r chi.Router) {
			r.Use(handlers.CSRFMiddleware(config.Cfg.CSRFAuthKey))
			r.Post("/auth/login", userHandler.LoginUserHandler)
			r.Post("/auth/register", userHandler.RegisterUserHandler)
			r.Post("/auth/refresh", userHandler.RefreshTokenHandler)
			r.With(userHandler.AuthMiddleware).Post("/auth/logout", userHandler.LogoutUserHandler)
		})

		// Protected routes (auth + CSRF)
		r.Group(func(r chi.Router) {
			r.Use(handlers.CSRFMiddleware(config.Cfg.CSRFAuthKey))
			r.Use(userHandler.AuthMiddleware)

			r.Get("/user/profile", userHandler.GetProfileHandler)
			r.Put("/user/profile", userHandler.UpdateProfileHandler)

			r.Get("/transactions", transactionHandler.ListTransactionsHandler)
			r.Post("/transactions", transactionHandler.CreateTransactionHandler)
			r.Put("/transactions/{id}", transactionHandler.UpdateTransactionHandler)
			r.Delete("/transactions/{id}", transactionHandler.DeleteTransactionHandler)

			r.Get("/categories", categoryHandler.ListCategoriesHandler)
			r.Post("/categories", categoryHandler.CreateCategoryHandler)
			r.Delete("/categories/{id}", categoryHandler.DeleteCategoryHandler)

			r.Get("/goals", goalHandler.ListGoalsHandler)
			r.Post("/goals", goalHandler.CreateGoalHandler)
			r.Put("/goals/{id}", goalHandler.UpdateGoalHandler)
			r.Patch("/goals/{id}/progress", goalHandler.UpdateGoalProgressHandler)
			r.Delete("/goals/{id}", goalHandler.DeleteGoalHandler)

			r.Get("/schedules", scheduleHandler.ListSchedulesHandler)
			r.Post("/schedules", scheduleHandler.CreateScheduleHandler)
			r.Put("/schedules/{id}", scheduleHandler.UpdateScheduleHandler)
			r.Post("/schedules/{id}/pay", scheduleHandler.MarkSchedulePaidHandler)
			r.Delete("/schedules/{id}", scheduleHandler.DeleteScheduleHandler)

			r.Get("/bank/connections", bankHandler.ListConnectionsHandler)
			r.Post("/bank/connections", bankHandler.CreateConnectionHandler)
			r.Delete("/bank/connections/{id}", bankHandler.DeleteConnectionHandler)
			r.Get("/bank/accounts", bankHandler.ResolveAccountsHandler)
			r.Get("/bank/sync", bankHandler.SyncHandler)
			r.Get("/bank/items/{itemID}", bankHandler.ItemStatusHandler)
			r.Get("/ledger", bankHandler.LedgerHandler)

			r.Get("/reports/monthly", reportHandler.MonthlyReportHandler)
			r.Get("/reports/statistics", reportHandler.StatisticsHandler)
			r.Get("/reports/categories", reportHandler.CategoryAnalysisHandler)

			r.Post("/chat", chatHandler.AskHandler)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
		}
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
