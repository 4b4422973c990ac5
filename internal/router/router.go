package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"flashdeck-backend/internal/handlers"
	"flashdeck-backend/internal/middleware"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	generationHandler *handlers.GenerationHandler,
	reviewHandler *handlers.ReviewHandler,
	flashcardHandler *handlers.FlashcardHandler,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Get("/verify-email", authHandler.VerifyEmail)
			r.Post("/resend-verification", authHandler.ResendVerification)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password", authHandler.ResetPassword)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// ──── Generation Routes ────
		r.Route("/generations", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", generationHandler.Generate)
			r.Get("/", generationHandler.List)
			r.Get("/{id}", generationHandler.Get)
		})

		// ──── Review Session Routes ────
		r.Route("/review", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", reviewHandler.Get)
			r.Post("/accept", reviewHandler.Accept)
			r.Post("/reject", reviewHandler.Reject)
			r.Post("/edit", reviewHandler.Edit)
			r.Post("/select", reviewHandler.Select)
			r.Post("/save-selected", reviewHandler.SaveSelected)
			r.Post("/save-all", reviewHandler.SaveAll)
		})

		// ──── Flashcard Routes ────
		r.Route("/flashcards", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", flashcardHandler.List)
			r.Post("/", flashcardHandler.Create)
			r.Post("/batch", flashcardHandler.BatchCreate)
			r.Get("/export", flashcardHandler.ExportCSV)
			r.Get("/{id}", flashcardHandler.Get)
			r.Put("/{id}", flashcardHandler.Update)
			r.Delete("/{id}", flashcardHandler.Delete)
		})
	})

	return r
}
