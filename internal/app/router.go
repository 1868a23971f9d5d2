package app

import (
	"database/sql"
	"net/http"
	"time"

	"riskintake/internal/app/observability"
	"riskintake/internal/auth"
	"riskintake/internal/form"
	"riskintake/internal/report"
	"riskintake/internal/rif"
	"riskintake/internal/submission"
	"riskintake/internal/vendors"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(cfg Config, db *sql.DB) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	collector := observability.NewCollector(db)
	r.Use(collector.Middleware)
	r.Use(CSRFMiddleware(cfg.CSRFEnforced))

	authLimiter := NewIPRateLimiter(cfg.AuthRateLimitPerMin, time.Minute)

	authSvc := auth.NewService(db, auth.ServiceConfig{
		SessionTTL:     time.Duration(cfg.SessionTTLHours) * time.Hour,
		BootstrapToken: cfg.BootstrapToken,
	})
	authHandler := auth.NewHandler(authSvc)

	formSvc := form.NewService(db)
	formHandler := form.NewHandler(formSvc)

	notifier := submission.NewSMTPNotifier(submission.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.SMTPFrom,
	})
	thresholds := rif.Thresholds{Medium: cfg.RiskThresholdMedium, High: cfg.RiskThresholdHigh}
	submissionSvc := submission.NewService(db, formSvc, notifier, thresholds)
	submissionHandler := submission.NewHandler(submissionSvc)

	vendorSvc := vendors.NewService(db)
	vendorHandler := vendors.NewHandler(vendorSvc)

	reportSvc := report.NewService(db)
	reportHandler := report.NewHandler(reportSvc)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", collector.MetricsHandler)

	r.Route("/api/v1", func(api chi.Router) {
		api.Group(func(public chi.Router) {
			public.Use(RateLimitMiddleware(authLimiter))
			public.Post("/bootstrap/init", authHandler.BootstrapInit)
			public.Post("/auth/login", authHandler.Login)
		})

		api.Group(func(secure chi.Router) {
			secure.Use(authHandler.RequireAuth)
			secure.Get("/auth/me", authHandler.Me)
			secure.Post("/auth/logout", authHandler.Logout)

			secure.Get("/forms/{formKey}/definition", formHandler.PublishedDefinition)

			secure.Post("/submissions", submissionHandler.Start)
			secure.Get("/submissions/{id}", submissionHandler.GetSummary)
			secure.Put("/submissions/{id}/answers", submissionHandler.SaveAnswers)
			secure.Post("/submissions/{id}/submit", submissionHandler.Submit)
			secure.Get("/submissions/{id}/scores", submissionHandler.ScoreHistory)

			secure.Group(func(review chi.Router) {
				review.Use(authHandler.RequireRoles("admin", "reviewer"))
				review.Post("/submissions/{id}/assign", submissionHandler.AssignReviewer)
				review.Post("/submissions/{id}/review", submissionHandler.Review)

				review.Get("/reports/risk-distribution", reportHandler.RiskDistribution)
				review.Get("/reports/vendors", reportHandler.VendorSummaries)
				review.Get("/reports/forms", reportHandler.FormOverviews)

				review.Get("/vendors", vendorHandler.ListVendors)
				review.Get("/vendors/{id}", vendorHandler.GetVendor)
				review.Get("/organizations", vendorHandler.ListOrganizations)
			})

			secure.Group(func(admin chi.Router) {
				admin.Use(authHandler.RequireRoles("admin"))
				admin.Post("/admin/users", authHandler.CreateUser)
				admin.Get("/admin/users", authHandler.ListUsers)
				admin.Post("/admin/users/{id}/deactivate", authHandler.DeactivateUser)

				admin.Get("/forms", formHandler.List)
				admin.Post("/forms", formHandler.Create)
				admin.Get("/forms/{id}/versions", formHandler.ListVersions)
				admin.Post("/forms/{id}/versions", formHandler.CreateVersion)
				admin.Post("/forms/{id}/versions/{versionNo}/publish", formHandler.Publish)

				admin.Post("/organizations", vendorHandler.CreateOrganization)
				admin.Put("/organizations/{id}", vendorHandler.UpdateOrganization)
				admin.Post("/vendors", vendorHandler.CreateVendor)
				admin.Put("/vendors/{id}", vendorHandler.UpdateVendor)
				admin.Post("/vendors/{id}/deactivate", vendorHandler.DeactivateVendor)
				admin.Get("/vendors/export", vendorHandler.ExportExcel)
				admin.Post("/vendors/import", vendorHandler.ImportExcel)
			})
		})
	})

	return r
}
