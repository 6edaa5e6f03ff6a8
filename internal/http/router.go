package http

import (
	"net/http"

	"habitflow/internal/auth"
	"habitflow/internal/config"
	"habitflow/internal/habit"
	"habitflow/internal/http/handler"
	mw "habitflow/internal/http/middleware"
	"habitflow/internal/jobs"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

func NewRouter(cfg config.Config, db *gorm.DB, jwtSvc *auth.JWT) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: db, JWT: jwtSvc}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	me := &handler.MeHandler{DB: db}
	r.With(auth.RequireAuth(jwtSvc)).Get("/me", me.Me)
	r.With(auth.RequireAuth(jwtSvc)).Put("/me", me.Update)

	habitSvc := &habit.Service{DB: db}
	jobsRepo := &jobs.Repo{DB: db}

	habitH := &handler.HabitHandler{Svc: habitSvc, Validate: validator.New()}
	logH := &handler.LogHandler{Svc: habitSvc, Jobs: jobsRepo}
	summaryH := &handler.SummaryHandler{Svc: habitSvc}

	r.Route("/habits", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Post("/", habitH.Create)
		r.Get("/", habitH.List)

		r.Get("/{id}", habitH.Get)
		r.Put("/{id}", habitH.Update)
		r.Delete("/{id}", habitH.Delete)

		r.Post("/{id}/logs", logH.Create)
		r.Get("/{id}/logs", logH.List)
		r.Delete("/{id}/logs/by-date", logH.DeleteByDate)
		r.Delete("/{id}/logs/{logID}", logH.DeleteByID)
	})

	r.Route("/summary", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Get("/", summaryH.List)
		r.Get("/overall", summaryH.Overall)
		r.Get("/weekly", summaryH.Weekly)
		r.Get("/top-habits", summaryH.TopHabits)
		r.Get("/daily-completions", summaryH.DailyCompletions)
		r.Get("/daily", summaryH.Daily)
		r.Get("/habit/{id}", summaryH.ByHabit)
	})

	return r
}
