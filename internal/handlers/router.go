package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"yourvocab/internal/logger"
)

// RouterDeps bundles what NewRouter needs
type RouterDeps struct {
	Quiz        *QuizHandler
	Courses     *CourseHandler
	Stats       *StatsHandler
	Middleware  *Middleware
	CORSOrigins []string
	Health      func(r *http.Request) error
	Logger      *logger.Logger
}

// NewRouter builds the HTTP API
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(d.Middleware.Logging)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if d.Health != nil {
			if err := d.Health(req); err != nil {
				d.Logger.Error("Health check failed", "error", err)
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(d.Middleware.RequireLearner)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", d.Quiz.StartSession)
			r.Get("/{id}", d.Quiz.GetSession)
			r.With(d.Middleware.RateLimit).Post("/{id}/answer", d.Quiz.SubmitAnswer)
		})

		r.Route("/courses", func(r chi.Router) {
			r.Get("/", d.Courses.ListCourses)
			r.Post("/", d.Courses.CreateCourse)
			r.Get("/public", d.Courses.ListPublicCourses)
			r.Get("/{id}", d.Courses.GetCourse)
			r.Post("/{id}/enroll", d.Courses.Enroll)
			r.Put("/{id}/rules", d.Courses.UpdateRules)
			r.Post("/{id}/lessons", d.Courses.CreateLesson)
		})

		r.Route("/lessons/{id}", func(r chi.Router) {
			r.Get("/", d.Courses.GetLesson)
			r.Put("/", d.Courses.UpdateLesson)
			r.Delete("/", d.Courses.DeleteLesson)
			r.Get("/attempts", d.Stats.ListAttempts)
			r.Get("/summary", d.Stats.LessonSummary)
			r.Get("/mistakes", d.Stats.HardestQuestions)
		})
	})

	return r
}
