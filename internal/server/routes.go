package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/harvest/internal/handler/health"
)

func addRoutes(r chi.Router, logger *slog.Logger, d Deps, sessions *adminSessions) {
	eng := d.Engine

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Harvest API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, d.Checks).
		WithGauge("subscribers", d.Broker.Len).
		Routes())

	// Player routes.
	r.Get("/api/game/state", handleGameState(eng))
	r.Get("/api/game/events", handleEvents(eng, d.Broker))
	r.Get("/api/game/ws", handleWS(logger, eng, d.Broker))
	r.Get("/api/scenarios", handleScenarios(eng))
	r.Route("/api/teams/{teamID}", func(r chi.Router) {
		r.Get("/", handleTeam(logger, eng, d.Repo))
		r.Post("/claim", handleClaim(eng))
		r.Post("/answer", handleAnswer(eng))
		r.Post("/penalty", handlePenalty(eng))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", handleAdminLogin(logger, d.Repo, sessions))
		r.Post("/logout", handleAdminLogout(sessions))

		r.Group(func(r chi.Router) {
			r.Use(adminAuthMiddleware(sessions))

			r.Get("/me", handleAdminMe())
			r.Put("/credentials", handleAdminCredentials(d.Repo))

			r.Post("/game/start", handleAdminOp(eng.StartGame))
			r.Post("/game/advance", handleAdminOp(eng.AdvanceScenario))
			r.Post("/game/end", handleAdminOp(eng.EndGameEarly))
			r.Post("/game/winner", handleAdminOp(eng.ShowWinner))
			r.Post("/game/reset", handleAdminOp(eng.ResetGame))
			r.Post("/game/timer", handleAdminStartTimer(eng))
			r.Put("/game/settings/ready", handleAdminRequireAllReady(eng))
			r.Put("/game/settings/timer", handleAdminTimerSettings(eng))

			r.Delete("/teams/{teamID}", handleAdminReleaseTeam(eng))
			r.Put("/teams/{teamID}/notes", handleAdminNotes(eng))
		})
	})

	if d.SPADir != "" {
		if info, err := os.Stat(d.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", d.SPADir)
			r.NotFound(handleSPA(d.SPADir))
		}
	}
}
