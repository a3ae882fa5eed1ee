package routes

import (
	"github.com/designloop/sprint-system/handlers"
	"github.com/designloop/sprint-system/middleware"
	"github.com/designloop/sprint-system/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handlers struct {
	Auth        *handlers.AuthHandler
	User        *handlers.UserHandler
	Challenge   *handlers.ChallengeHandler
	Sprint      *handlers.SprintHandler
	Participant *handlers.ParticipantHandler
	Submission  *handlers.SubmissionHandler
	Vote        *handlers.VoteHandler
	Engagement  *handlers.EngagementHandler
	Dashboard   *handlers.DashboardHandler
	WebSocket   *handlers.WebSocketHandler
}

func SetupRoutes(h Handlers, jwtSecret string, allowedOrigins []string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)
	adminOnly := middleware.Authorize(models.RoleAdmin)

	// Публичные маршруты
	router.Post("/auth/register", h.Auth.Register)
	router.Post("/auth/login", h.Auth.Login)

	router.Route("/challenges", func(r chi.Router) {
		r.Get("/", h.Challenge.List)
		r.Get("/{challengeID}", h.Challenge.Get)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)

			r.Post("/", h.Challenge.Create)
			r.Put("/{challengeID}", h.Challenge.Update)
			r.Delete("/{challengeID}", h.Challenge.Delete)
		})
	})

	router.Route("/sprints", func(r chi.Router) {
		r.Get("/", h.Sprint.List)
		r.Get("/{sprintID}", h.Sprint.Get)
		r.Get("/{sprintID}/participants", h.Participant.List)
		r.Get("/{sprintID}/submissions", h.Submission.ListBySprint)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/", h.Sprint.Create)
			r.Post("/{sprintID}/activate", h.Sprint.Activate)
			r.Post("/{sprintID}/advance", h.Sprint.Advance)
			r.Post("/{sprintID}/extend", h.Sprint.Extend)
			r.Post("/{sprintID}/cancel", h.Sprint.Cancel)

			r.Post("/{sprintID}/participants", h.Participant.Join)
			r.Delete("/{sprintID}/participants", h.Participant.Leave)

			r.Post("/{sprintID}/submissions", h.Submission.Create)
		})
	})

	router.Route("/submissions", func(r chi.Router) {
		r.Get("/{submissionID}", h.Submission.Get)
		r.Get("/{submissionID}/stats", h.Vote.Stats)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Patch("/{submissionID}", h.Submission.Update)
			r.Post("/{submissionID}/submit", h.Submission.Submit)
			r.Post("/{submissionID}/asset", h.Submission.UploadAsset)
			r.Post("/{submissionID}/votes", h.Vote.Cast)
		})
	})

	router.With(authenticate).Delete("/votes/{voteID}", h.Vote.Delete)

	router.Route("/users", func(r chi.Router) {
		r.Get("/{userID}", h.User.Get)
		r.Get("/{userID}/xp", h.Engagement.XPSummary)
		r.Get("/{userID}/streaks", h.Engagement.Streaks)
		r.Get("/{userID}/badges", h.Dashboard.ListUserBadges)
		r.Get("/{userID}/dashboard", h.Dashboard.GetUserDashboard)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Patch("/{userID}", h.User.UpdateProfile)
			r.Post("/{userID}/avatar", h.User.UploadAvatar)
		})
	})

	router.With(authenticate).Post("/xp-events", h.Engagement.RecordEvent)
	router.Get("/leaderboard", h.Engagement.Leaderboard)

	router.Get("/ws/sprints/{sprintID}", h.WebSocket.ServeWs)

	return router
}
