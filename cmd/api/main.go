package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/hvmc/store-backend/internal/auth"
	"github.com/hvmc/store-backend/internal/catalog"
	"github.com/hvmc/store-backend/internal/config"
	"github.com/hvmc/store-backend/internal/events"
	"github.com/hvmc/store-backend/internal/oauth"
	"github.com/hvmc/store-backend/internal/orders"
	"github.com/hvmc/store-backend/internal/sheets"
	"github.com/hvmc/store-backend/internal/ws"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(".")
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	// Connect to database
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// Wait for database to be ready
	for i := 0; i < 30; i++ {
		if err := db.Ping(); err == nil {
			logger.Info("Database connection established")
			break
		}
		logger.Info("Waiting for database...")
		time.Sleep(2 * time.Second)
	}

	if err := createTables(db); err != nil {
		logger.WithError(err).Fatal("Failed to create tables")
	}

	// Stores
	userStore := auth.NewPostgresUserStore(db)
	catalogStore := catalog.NewPostgresStore(db)
	orderStore := orders.NewPostgresStore(db)

	// Auth
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authMiddleware := auth.NewMiddleware(tokens, userStore, logger)
	authHandler := auth.NewHandler(userStore, tokens, logger)

	// Catalog
	catalogHandler := catalog.NewHandler(catalogStore, logger)

	// Orders
	orderService := orders.NewService(orderStore, catalogStore, logger)
	orderHandler := orders.NewHandler(orderService, logger)

	if cfg.KafkaBrokers != "" {
		producer, err := events.NewKafkaProducer(cfg.KafkaBrokers, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create Kafka producer")
		}
		defer producer.Close()
		orderHandler.SetEventPublisher(producer)
	} else {
		logger.Info("Kafka brokers not configured, event publishing disabled")
	}

	hub := ws.NewHub(logger)
	go hub.Run()
	orderHandler.SetWebSocketHub(hub)

	// Spreadsheet export
	flow := oauth.NewFlow(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI, logger)
	exporter := sheets.NewExporter(orderStore, logger)
	sheetsHandler := sheets.NewHandler(flow, exporter, cfg.GoogleServiceAccountFile, cfg.ExportShareEmail, logger)

	// Set up routes
	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck(db)).Methods("GET")

	router.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	router.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	router.HandleFunc("/auth/refresh", authHandler.Refresh).Methods("POST")

	// Catalog reads are open, writes require authentication
	router.HandleFunc("/catalog/categories", catalogHandler.ListCategories).Methods("GET")
	router.HandleFunc("/catalog/categories/{id}", catalogHandler.GetCategory).Methods("GET")
	router.Handle("/catalog/categories", authMiddleware.Handler(http.HandlerFunc(catalogHandler.CreateCategory))).Methods("POST")
	router.Handle("/catalog/categories/{id}", authMiddleware.Handler(http.HandlerFunc(catalogHandler.UpdateCategory))).Methods("PUT", "PATCH")
	router.Handle("/catalog/categories/{id}", authMiddleware.Handler(http.HandlerFunc(catalogHandler.DeleteCategory))).Methods("DELETE")

	router.HandleFunc("/catalog/products", catalogHandler.ListProducts).Methods("GET")
	router.HandleFunc("/catalog/products/{id}", catalogHandler.GetProduct).Methods("GET")
	router.Handle("/catalog/products", authMiddleware.Handler(http.HandlerFunc(catalogHandler.CreateProduct))).Methods("POST")
	router.Handle("/catalog/products/{id}", authMiddleware.Handler(http.HandlerFunc(catalogHandler.UpdateProduct))).Methods("PUT", "PATCH")
	router.Handle("/catalog/products/{id}", authMiddleware.Handler(http.HandlerFunc(catalogHandler.DeleteProduct))).Methods("DELETE")

	// Orders are always ownership-scoped to the authenticated client
	ordersRouter := router.PathPrefix("/orders").Subrouter()
	ordersRouter.Use(authMiddleware.Handler)
	ordersRouter.HandleFunc("", orderHandler.CreateOrder).Methods("POST")
	ordersRouter.HandleFunc("/mine", orderHandler.ListMyOrders).Methods("GET")
	ordersRouter.HandleFunc("/{id}", orderHandler.GetOrder).Methods("GET")
	ordersRouter.HandleFunc("/{id}", orderHandler.UpdateOrder).Methods("PUT", "PATCH")
	ordersRouter.HandleFunc("/{id}", orderHandler.DeleteOrder).Methods("DELETE")

	// OAuth redirect endpoints are unauthenticated by contract
	router.HandleFunc("/oauth2/init", sheetsHandler.OAuthInit).Methods("GET")
	router.HandleFunc("/oauth2/callback", sheetsHandler.OAuthCallback).Methods("GET")

	router.Handle("/admin/export",
		authMiddleware.Handler(authMiddleware.RequireStaff(http.HandlerFunc(sheetsHandler.AdminExport)))).Methods("POST")

	router.HandleFunc("/ws/orders", hub.HandleWebSocket)

	router.Use(loggingMiddleware(logger))

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.HTTPPort).Info("Starting store backend")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server gracefully stopped")
}

func createTables(db *sql.DB) error {
	if err := auth.CreateUserTables(db); err != nil {
		return err
	}
	if err := catalog.CreateCatalogTables(db); err != nil {
		return err
	}
	return orders.CreateOrderTables(db)
}

func healthCheck(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","service":"store-backend"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","service":"store-backend"}`))
	}
}

func loggingMiddleware(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"remote":   r.RemoteAddr,
				"duration": time.Since(start).Milliseconds(),
			}).Info("Request completed")
		})
	}
}
