package api

import (
	"net/http"

	"github.com/ludoarena/match-engine/internal/httputil"
	"github.com/ludoarena/match-engine/internal/store"
)

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, currentUser(r))
}

func (h *Handler) wallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.Users.Wallet(r.Context(), currentUser(r).ID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, wallet)
}

type createMatchRequest struct {
	EntryAmount int64 `json:"entry_amount"`
}

func (h *Handler) createMatch(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := decode(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	m, err := h.Matches.Create(r.Context(), currentUser(r), req.EntryAmount)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, m)
}

func (h *Handler) getMatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	m, err := h.Matches.Get(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, m)
}

func (h *Handler) listOpen(w http.ResponseWriter, r *http.Request) {
	ms, err := h.Matches.ListOpen(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, ms)
}

func (h *Handler) listRunning(w http.ResponseWriter, r *http.Request) {
	ms, err := h.Matches.ListRunning(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, ms)
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	filter := store.UserFilter(r.URL.Query().Get("filter"))
	ms, err := h.Matches.ListMine(r.Context(), currentUser(r), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, ms)
}

func (h *Handler) checkJoinable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	check, err := h.Joins.CheckJoinable(r.Context(), currentUser(r), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, check)
}

func (h *Handler) join(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	m, err := h.Joins.Join(r.Context(), currentUser(r), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, m)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	m, err := h.Matches.Cancel(r.Context(), currentUser(r), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, m)
}

type roomCodeRequest struct {
	RoomCode string `json:"room_code"`
}

func (h *Handler) submitRoomCode(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	var req roomCodeRequest
	if err := decode(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	m, err := h.Matches.SubmitRoomCode(r.Context(), currentUser(r), id, req.RoomCode)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, m)
}

func (h *Handler) forfeit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	m, err := h.Matches.Forfeit(r.Context(), currentUser(r), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, m)
}
