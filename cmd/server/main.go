package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flashdeck-backend/internal/config"
	"flashdeck-backend/internal/database"
	"flashdeck-backend/internal/generator"
	"flashdeck-backend/internal/handlers"
	"flashdeck-backend/internal/middleware"
	"flashdeck-backend/internal/repository"
	"flashdeck-backend/internal/review"
	"flashdeck-backend/internal/router"
	"flashdeck-backend/internal/services"
)

func main() {
	log.Println("🚀 Starting Flashdeck Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Client ────
	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClient.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	flashcardRepo := repository.NewFlashcardRepo(pool)
	generationRepo := repository.NewGenerationRepo(pool)

	// ──── Step 5: Initialize Flashcard Generator ────
	var cardGenerator generator.Generator
	if cfg.GeminiAPIKey != "" {
		geminiGen, err := generator.NewGeminiGenerator(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
		if err != nil {
			log.Fatalf("✗ Gemini client initialization failed: %v", err)
		}
		defer geminiGen.Close()
		cardGenerator = geminiGen
		log.Printf("✓ Gemini generator initialized (%s)", cfg.GeminiModel)
	} else {
		cardGenerator = generator.NewMockGenerator()
		log.Println("⚠ No GEMINI_API_KEY set, using deterministic mock generator")
	}

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.FrontendURL)
	authService := services.NewAuthService(userRepo, redisClient, jwtAuth, emailService)
	flashcardService := services.NewFlashcardService(flashcardRepo, generationRepo)
	reviewSessions := review.NewManager(flashcardService)
	generationService := services.NewGenerationService(cardGenerator, generationRepo, reviewSessions)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	generationHandler := handlers.NewGenerationHandler(generationService, generationRepo)
	reviewHandler := handlers.NewReviewHandler(reviewSessions)
	flashcardHandler := handlers.NewFlashcardHandler(flashcardRepo, flashcardService)

	// ──── Step 6: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		generationHandler,
		reviewHandler,
		flashcardHandler,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // generator calls can take a while
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Flashdeck Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
