package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/ludoarena/match-engine/internal/config"
	"github.com/ludoarena/match-engine/internal/httputil"
	"github.com/ludoarena/match-engine/internal/match"
	"github.com/ludoarena/match-engine/internal/service"
)

func (h *Handler) adminListMatches(w http.ResponseWriter, r *http.Request) {
	status := match.Status(r.URL.Query().Get("status"))
	page, err := h.Admin.ListMatches(r.Context(), currentUser(r), status,
		queryInt(r, "page", 1), queryInt(r, "page_size", 20))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, page)
}

func (h *Handler) adminMatchDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	detail, err := h.Admin.MatchDetail(r.Context(), currentUser(r), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, detail)
}

func (h *Handler) adminSetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	var change service.StatusChange
	if err := decode(r, &change); err != nil {
		httputil.Error(w, err)
		return
	}
	m, err := h.Resolver.ForceSetStatus(r.Context(), currentUser(r), id, change)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, m)
}

type bulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

func (h *Handler) adminBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := decode(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	n, err := h.Admin.BulkDeleteCancelled(r.Context(), currentUser(r), req.IDs)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (h *Handler) adminListPending(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.Resolver.ListPending(r.Context(), currentUser(r))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, reqs)
}

type approveRequest struct {
	WinnerID uuid.UUID `json:"winner_id"`
}

func (h *Handler) adminApprove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	var req approveRequest
	if err := decode(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if req.WinnerID == uuid.Nil {
		httputil.Error(w, fmt.Errorf("%w: winner_id is required", match.ErrValidation))
		return
	}
	m, err := h.Resolver.ApproveRequest(r.Context(), currentUser(r), id, req.WinnerID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, m)
}

func (h *Handler) adminReject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	m, err := h.Resolver.RejectRequest(r.Context(), currentUser(r), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, m)
}

func (h *Handler) adminGetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.Admin.GetSettings(r.Context(), currentUser(r))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, s)
}

func (h *Handler) adminPutSettings(w http.ResponseWriter, r *http.Request) {
	var s config.Settings
	if err := decode(r, &s); err != nil {
		httputil.Error(w, err)
		return
	}
	updated, err := h.Admin.UpdateSettings(r.Context(), currentUser(r), s)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, updated)
}

type depositRequest struct {
	Amount int64 `json:"amount"`
}

func (h *Handler) adminDeposit(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	var req depositRequest
	if err := decode(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	balance, err := h.Admin.Deposit(r.Context(), currentUser(r), userID, req.Amount)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]int64{"balance": balance})
}
