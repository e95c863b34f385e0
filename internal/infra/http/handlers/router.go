package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xavierca1/nivesh-crm/internal/infra/http/middleware"
)

// Router groups every handler served by the API.
type Router struct {
	Leads          *LeadHandler
	AdminLeads     *AdminLeadHandler
	Installments   *InstallmentHandler
	Webinars       *WebinarHandler
	Health         *HealthHandler
	AllowedOrigins []string
	Logger         *zap.Logger
}

func (rt Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(rt.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	if rt.Health != nil {
		r.Get("/health", rt.Health.Handle)
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/register", rt.Leads.Register)

	r.Route("/admin", func(r chi.Router) {
		r.Route("/leads", func(r chi.Router) {
			r.Get("/", rt.AdminLeads.Search)
			r.Post("/bulk", rt.AdminLeads.BulkUpsert)
			r.Get("/stats", rt.AdminLeads.Stats)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.AdminLeads.Get)
				r.Patch("/", rt.AdminLeads.Update)
				r.Delete("/", rt.AdminLeads.Delete)
				r.Get("/installments", rt.Installments.List)
				r.Post("/installments", rt.Installments.Add)
			})
		})

		r.Patch("/installments/{id}", rt.Installments.Update)
		r.Delete("/installments/{id}", rt.Installments.Delete)

		r.Get("/webinars", rt.Webinars.List)
		r.Post("/webinars", rt.Webinars.Create)
		r.Get("/webinars/active", rt.Webinars.Active)
		r.Get("/webinars/{id}", rt.Webinars.Get)
		r.Patch("/webinars/{id}/status", rt.Webinars.UpdateStatus)

		r.Get("/courses", rt.Webinars.ListCourses)
		r.Post("/courses", rt.Webinars.CreateCourse)
	})

	return r
}
