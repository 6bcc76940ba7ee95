/**
 * @description
 * This file sets up the HTTP router for the back-office service using the
 * `chi` routing library. It defines all the API routes, applies the CORS
 * policy (exposing the sliding-refresh header to browsers) and the
 * authentication middleware, and serves uploaded avatar files.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: The routing library.
 * - github.com/go-chi/cors: CORS middleware.
 */

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/terangapay/backoffice/internal/app"
	"github.com/terangapay/backoffice/internal/config"
)

// NewRouter creates and configures a new HTTP router.
func NewRouter(
	cfg config.Config,
	logger *zap.Logger,
	tokens *app.TokenService,
	accounts *AccountHandler,
	transactions *TransactionHandler,
	uploadDir string,
) http.Handler {
	r := chi.NewRouter()

	// Behind a reverse proxy every request shares the proxy's address,
	// which would collapse per-client rate limiting into a global window.
	if cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{RefreshTokenHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	// Public routes
	r.Post("/register", accounts.Register)
	r.Post("/login", accounts.Login)
	r.Post("/logout", accounts.Logout)
	r.Post("/transactions/deposit", transactions.Deposit)
	r.Get("/transactions", transactions.List)

	// Routes that require a valid session
	r.Group(func(r chi.Router) {
		r.Use(Authenticator(tokens, logger))

		r.Get("/ping", accounts.Ping)
		r.Post("/transactions/cancel", transactions.Cancel)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", accounts.List)
			r.Patch("/block", accounts.Block)
			r.Patch("/unblock", accounts.Unblock)
			r.Delete("/bulk-archive", accounts.BulkArchive)
			r.Put("/{id}", accounts.Edit)
			r.Delete("/{id}", accounts.Archive)
			r.Post("/{id}/avatar", accounts.UpdateAvatar)
		})
	})

	// Static serving for uploaded files (avatars)
	fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadDir)))
	r.Get("/uploads/*", func(w http.ResponseWriter, r *http.Request) {
		fileServer.ServeHTTP(w, r)
	})

	return r
}
