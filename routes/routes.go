package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nurlan-dev/ctf-arena/handlers"
	"github.com/nurlan-dev/ctf-arena/middleware"
	"github.com/nurlan-dev/ctf-arena/models"
	"github.com/nurlan-dev/ctf-arena/repositories"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Auth          *handlers.AuthHandler
	Team          *handlers.TeamHandler
	Game          *handlers.GameHandler
	Participation *handlers.ParticipationHandler
	Scoreboard    *handlers.ScoreboardHandler
}

func SetupRoutes(router *chi.Mux, h Handlers, jwtSecret string, userRepo repositories.UserRepository) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/swagger/*", httpSwagger.WrapHandler)

	authenticate := middleware.Authenticate(jwtSecret)
	requireAdmin := middleware.RequireRole(models.RoleAdmin, userRepo)
	requireMonitor := middleware.RequireRole(models.RoleMonitor, userRepo)

	router.Post("/auth/register", h.Auth.Register)
	router.Post("/auth/login", h.Auth.Login)

	router.Route("/teams", func(r chi.Router) {
		r.Get("/{teamID}", h.Team.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/", h.Team.Create)
			r.Post("/join", h.Team.Join)
			r.Post("/{teamID}/leave", h.Team.Leave)
			r.Post("/{teamID}/invite", h.Team.RotateInviteToken)
			r.Put("/{teamID}/logo", h.Team.UploadLogo)
		})
	})

	router.Route("/games", func(r chi.Router) {
		// Публичные маршруты для просмотра игр
		r.Get("/", h.Game.List)
		r.Get("/{gameID}", h.Game.GetByID)
		r.Get("/{gameID}/challenges", h.Game.ListChallenges)
		r.Get("/{gameID}/scoreboard", h.Scoreboard.Get)
		r.Get("/{gameID}/participations/count", h.Participation.CountByGame)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/{gameID}/join", h.Participation.JoinGame)
			r.Get("/{gameID}/participations/my", h.Participation.GetMine)
		})

		// Просмотр заявок доступен наблюдателям и выше
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(requireMonitor)

			r.Get("/{gameID}/participations", h.Participation.ListByGame)
		})

		// Управление играми и очистка — только администраторы
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(requireAdmin)

			r.Post("/", h.Game.Create)
			r.Put("/{gameID}", h.Game.Update)
			r.Put("/{gameID}/poster", h.Game.UploadPoster)
			r.Post("/{gameID}/challenges", h.Game.AddChallenge)
			r.Delete("/{gameID}/participations/users/{userID}", h.Participation.RemoveDenied)
		})
	})

	router.Route("/participations", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(requireAdmin)

		r.Patch("/{participationID}/status", h.Participation.UpdateStatus)
		r.Post("/{participationID}/instances/sync", h.Participation.EnsureInstances)
	})

	router.Route("/challenges", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(requireAdmin)

		r.Delete("/{challengeID}", h.Game.RemoveChallenge)
	})

	router.Get("/ws/games/{gameID}", h.Scoreboard.ServeWs)
}
