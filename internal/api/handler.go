package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ludoarena/match-engine/internal/evidence"
	"github.com/ludoarena/match-engine/internal/match"
	"github.com/ludoarena/match-engine/internal/middleware"
	"github.com/ludoarena/match-engine/internal/service"
	users "github.com/ludoarena/match-engine/internal/user"
)

const maxBodySize = 1 << 20

// Handler exposes the engine over JSON.
type Handler struct {
	Matches  *service.MatchService
	Joins    *service.JoinArbiter
	Claims   *service.ResultClaimCollector
	Resolver *service.AdjudicationResolver
	Admin    *service.AdminService
	Users    *service.UserService
	Evidence evidence.Store
}

// Mount registers the player routes and, under /admin, the admin routes.
// The caller is expected to have loaded the session user already.
func (h *Handler) Mount(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Get("/me", h.me)
		r.Get("/wallet", h.wallet)

		r.Route("/matches", func(r chi.Router) {
			r.Post("/", h.createMatch)
			r.Get("/open", h.listOpen)
			r.Get("/running", h.listRunning)
			r.Get("/mine", h.listMine)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getMatch)
				r.Get("/joinable", h.checkJoinable)
				r.Post("/join", h.join)
				r.Post("/cancel", h.cancel)
				r.Post("/room-code", h.submitRoomCode)
				r.Post("/result", h.submitResult)
				r.Post("/loss", h.submitLoss)
				r.Post("/forfeit", h.forfeit)
			})
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin)

		r.Get("/matches", h.adminListMatches)
		r.Delete("/matches", h.adminBulkDelete)
		r.Get("/matches/{id}", h.adminMatchDetail)
		r.Post("/matches/{id}/status", h.adminSetStatus)

		r.Get("/result-requests", h.adminListPending)
		r.Post("/result-requests/{id}/approve", h.adminApprove)
		r.Post("/result-requests/{id}/reject", h.adminReject)

		r.Get("/settings", h.adminGetSettings)
		r.Put("/settings", h.adminPutSettings)
		r.Post("/wallets/{userID}/deposit", h.adminDeposit)
	})
}

func currentUser(r *http.Request) *users.User {
	return middleware.GetAuthenticatedUser(r.Context())
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", match.ErrValidation, name)
	}
	return id, nil
}

// decode reads a JSON body. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(v)
	if err != nil && err != io.EOF {
		return fmt.Errorf("%w: malformed JSON body", match.ErrValidation)
	}
	return nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil {
		return v
	}
	return fallback
}
