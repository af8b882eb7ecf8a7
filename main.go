package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"borrowbox/backend/config"
	"borrowbox/backend/database"
	"borrowbox/backend/handlers"
	"borrowbox/backend/middleware"
	"borrowbox/backend/services"
	"borrowbox/backend/session"

	"github.com/gorilla/mux"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.IsDevelopment() {
		log.Println("Running in development environment")
	}

	// Initialize Firebase Admin SDK
	log.Println("Initializing Firebase Admin SDK...")
	ctx := context.Background()
	clients, err := database.InitFirebase(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	if cfg.Firebase.WebAPIKey == "" {
		log.Println("Warning: FIREBASE_WEB_API_KEY not set, password login will fail")
	}

	// Wire up the data-access layer and session dependencies
	catalog := services.NewCatalog(clients.Backend)
	requests := services.NewRequests(clients.Backend)
	uploads := services.NewUploads(clients.Uploader)
	authProvider := session.NewFirebaseAuth(clients.Auth, cfg.Firebase.WebAPIKey)

	itemHandler := handlers.NewItemHandler(catalog, uploads)
	requestHandler := handlers.NewRequestHandler(requests, catalog)
	authHandler := handlers.NewAuthHandler(authProvider, clients.Backend, uploads)
	authenticator := middleware.NewAuthenticator(clients.Auth)

	// Create router
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.EnableCORS)

	// Register routes with both direct paths and /api prefix to maintain compatibility
	registerRoutes(r, itemHandler, requestHandler, authHandler, authenticator)
	apiRouter := r.PathPrefix("/api").Subrouter()
	registerRoutes(apiRouter, itemHandler, requestHandler, authHandler, authenticator)

	srv := &http.Server{
		Handler:      r,
		Addr:         ":" + cfg.ServerPort,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	log.Printf("Starting server on port %s...", cfg.ServerPort)
	log.Fatal(srv.ListenAndServe())
}

// registerRoutes sets up all API routes
func registerRoutes(r *mux.Router, items *handlers.ItemHandler, requests *handlers.RequestHandler, auth *handlers.AuthHandler, authenticator *middleware.Authenticator) {
	// Public routes (no auth required)
	r.HandleFunc("/health", handlers.HealthCheck).Methods("GET", "OPTIONS")
	r.HandleFunc("/auth/signup", auth.Signup).Methods("POST", "OPTIONS")
	r.HandleFunc("/auth/login", auth.Login).Methods("POST", "OPTIONS")

	// Create a subrouter for authenticated routes
	protectedRouter := r.PathPrefix("").Subrouter()
	protectedRouter.Use(authenticator.Middleware)

	// Protected item routes
	protectedRouter.HandleFunc("/items", items.GetItems).Methods("GET")
	protectedRouter.HandleFunc("/items", items.AddItem).Methods("POST")
	protectedRouter.HandleFunc("/items/available", items.GetAvailableItems).Methods("GET")
	protectedRouter.HandleFunc("/items/search", items.SearchItems).Methods("GET")
	protectedRouter.HandleFunc("/items/stream", items.StreamAvailableItems).Methods("GET")
	protectedRouter.HandleFunc("/items/{id}", items.GetItem).Methods("GET")
	protectedRouter.HandleFunc("/items/{id}", items.UpdateItem).Methods("PUT")
	protectedRouter.HandleFunc("/items/{id}", items.DeleteItem).Methods("DELETE")
	protectedRouter.HandleFunc("/items/{id}/image", items.UploadItemImage).Methods("POST")

	// Protected request routes
	protectedRouter.HandleFunc("/requests", requests.AddRequest).Methods("POST")
	protectedRouter.HandleFunc("/requests/borrower", requests.GetBorrowerRequests).Methods("GET")
	protectedRouter.HandleFunc("/requests/lender", requests.GetLenderRequests).Methods("GET")
	protectedRouter.HandleFunc("/requests/stream", requests.StreamUserRequests).Methods("GET")
	protectedRouter.HandleFunc("/requests/{id}", requests.GetRequest).Methods("GET")
	protectedRouter.HandleFunc("/requests/{id}/status", requests.UpdateRequestStatus).Methods("PUT")

	// Protected profile routes
	protectedRouter.HandleFunc("/profile", auth.GetProfile).Methods("GET")
	protectedRouter.HandleFunc("/profile", auth.UpdateProfile).Methods("PATCH")
	protectedRouter.HandleFunc("/profile/picture", auth.UploadProfilePicture).Methods("POST")
}
