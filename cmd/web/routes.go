package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/ludoarena/match-engine/internal/api"
	"github.com/ludoarena/match-engine/internal/config"
	"github.com/ludoarena/match-engine/internal/evidence"
	"github.com/ludoarena/match-engine/internal/httputil"
	"github.com/ludoarena/match-engine/internal/middleware"
	"github.com/ludoarena/match-engine/internal/service"
	"github.com/ludoarena/match-engine/internal/store"
	"github.com/markbates/goth/gothic"
)

type application struct {
	cfg            *config.Config
	sessionManager *scs.SessionManager
	userStore      *store.UserStore
	users          *service.UserService
	matches        *service.MatchService
	joins          *service.JoinArbiter
	claims         *service.ResultClaimCollector
	resolver       *service.AdjudicationResolver
	admin          *service.AdminService
	evidence       evidence.Store
	ping           func(context.Context) error
}

func (app *application) newRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := app.ping(r.Context()); err != nil {
			httputil.InternalServerError(w, "health check failed", err)
			return
		}
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if app.cfg.EvidenceBackend != "r2" {
		fileServer := http.FileServer(http.Dir(app.cfg.EvidenceDir))
		r.Handle("/uploads/evidence/*", http.StripPrefix("/uploads/evidence/", fileServer))
	}

	r.Group(func(r chi.Router) {
		r.Use(app.sessionManager.LoadAndSave)
		r.Use(middleware.LoadAuthenticatedUser(app.sessionManager, app.userStore))

		r.Get("/auth/{provider}", func(w http.ResponseWriter, r *http.Request) {
			provider := chi.URLParam(r, "provider")
			r = r.WithContext(context.WithValue(r.Context(), gothic.ProviderParamKey, provider))

			gothic.BeginAuthHandler(w, r)
		})

		r.Get("/auth/{provider}/callback", func(w http.ResponseWriter, r *http.Request) {
			provider := chi.URLParam(r, "provider")
			r = r.WithContext(context.WithValue(r.Context(), gothic.ProviderParamKey, provider))

			gothUser, err := gothic.CompleteUserAuth(w, r)
			if err != nil {
				httputil.BadRequest(w, "Authentication failure", err)
				return
			}

			user, err := app.users.FindOrCreateUserByProvider(r.Context(), gothUser)
			if err != nil {
				httputil.InternalServerError(w, "Failed to find or create user", err)
				return
			}

			if err := app.sessionManager.RenewToken(r.Context()); err != nil {
				httputil.InternalServerError(w, "Failed to renew session", err)
				return
			}
			app.sessionManager.Put(r.Context(), middleware.SessionUserKey, user.ID.String())
			httputil.JSON(w, http.StatusOK, user)
		})

		r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
			if err := app.sessionManager.Destroy(r.Context()); err != nil {
				httputil.InternalServerError(w, "Failed to log out", err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		handler := &api.Handler{
			Matches:  app.matches,
			Joins:    app.joins,
			Claims:   app.claims,
			Resolver: app.resolver,
			Admin:    app.admin,
			Users:    app.users,
			Evidence: app.evidence,
		}
		handler.Mount(r)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.NotFound(w, "no route for "+strings.TrimSpace(r.URL.Path), nil)
	})

	return r
}
