package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/approveflow/expense-service/internal/auth"
	"github.com/approveflow/expense-service/internal/company"
	"github.com/approveflow/expense-service/internal/expense"
	"github.com/approveflow/expense-service/internal/rule"
	"github.com/approveflow/expense-service/internal/transport"
	"github.com/approveflow/expense-service/internal/transport/middleware"
	"github.com/approveflow/expense-service/internal/transport/swagger"
	"github.com/approveflow/expense-service/internal/user"
)

// Handlers bundles the feature handlers the router mounts.
type Handlers struct {
	Auth    *auth.Handler
	Expense *expense.Handler
	Rule    *rule.Handler
	User    *user.Handler
	Company *company.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)
	rbac := auth.NewRBAC(transport.NewBaseHandler(logger))

	router.Use(middleware.CORS)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/signup", h.Auth.Signup)
			sr.Post("/login", h.Auth.Login)
		})

		// Everything past here requires a valid bearer token.
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/company", h.Company.Get)

			pr.Route("/expenses", func(er chi.Router) {
				er.Post("/", h.Expense.Create)
				er.Get("/", h.Expense.ListMine)
				er.Get("/pending", h.Expense.ListPending)
				er.Get("/{id}", h.Expense.Get)
				er.Put("/{id}", h.Expense.Update)
				er.Delete("/{id}", h.Expense.Delete)
				er.Post("/{id}/submit", h.Expense.Submit)
				er.Post("/{id}/decision", h.Expense.Decide)

				er.Group(func(mr chi.Router) {
					mr.Use(rbac.RequireManager())
					mr.Get("/team", h.Expense.ListTeam)
				})

				er.Group(func(ar chi.Router) {
					ar.Use(rbac.RequireAdmin())
					ar.Post("/{id}/override", h.Expense.Override)
				})
			})

			pr.Route("/admin", func(ar chi.Router) {
				ar.Use(rbac.RequireAdmin())

				ar.Get("/expenses", h.Expense.AdminList)

				ar.Route("/rules", func(rr chi.Router) {
					rr.Post("/", h.Rule.Create)
					rr.Get("/", h.Rule.List)
					rr.Get("/{id}", h.Rule.Get)
					rr.Patch("/{id}", h.Rule.Update)
					rr.Delete("/{id}", h.Rule.Delete)
				})

				ar.Route("/users", func(ur chi.Router) {
					ur.Post("/", h.User.Create)
					ur.Get("/", h.User.List)
					ur.Get("/{id}", h.User.Get)
					ur.Patch("/{id}", h.User.Update)
					ur.Delete("/{id}", h.User.Delete)
				})

				ar.Patch("/company", h.Company.Update)
			})
		})
	})
}
