package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/ludoarena/match-engine/internal/evidence"
	"github.com/ludoarena/match-engine/internal/httputil"
	"github.com/ludoarena/match-engine/internal/match"
)

// claimPayload accepts both the current body {"evidence_ref": ...} and the
// older single-claim body {"screenshot": ..., "result": "win"|"loss"}.
type claimPayload struct {
	EvidenceRef string `json:"evidence_ref"`
	Screenshot  string `json:"screenshot"`
	Result      string `json:"result"`
}

func (p claimPayload) normalize() (match.ClaimType, string, error) {
	ref := p.EvidenceRef
	if ref == "" {
		ref = p.Screenshot
	}
	switch strings.ToLower(strings.TrimSpace(p.Result)) {
	case "", "win":
		return match.ClaimWin, ref, nil
	case "loss", "lose", "lost":
		return match.ClaimLoss, ref, nil
	default:
		return "", "", fmt.Errorf("%w: unknown result %q", match.ErrValidation, p.Result)
	}
}

func (h *Handler) submitResult(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	user := currentUser(r)

	var payload claimPayload
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := h.Claims.CheckClaimable(r.Context(), user, id); err != nil {
			httputil.Error(w, err)
			return
		}
		ref, err := h.saveScreenshot(w, r, id, user.ID)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		payload = claimPayload{EvidenceRef: ref, Result: r.FormValue("result")}
	} else if err := decode(r, &payload); err != nil {
		httputil.Error(w, err)
		return
	}

	typ, ref, err := payload.normalize()
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req *match.ResultRequest
	if typ == match.ClaimLoss {
		req, err = h.Claims.SubmitClaim(r.Context(), user, id, match.ClaimLoss, ref)
	} else {
		req, err = h.Claims.SubmitResult(r.Context(), user, id, ref)
	}
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, req)
}

func (h *Handler) submitLoss(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	req, err := h.Claims.SubmitLoss(r.Context(), currentUser(r), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, req)
}

func (h *Handler) saveScreenshot(w http.ResponseWriter, r *http.Request, matchID, userID uuid.UUID) (string, error) {
	if h.Evidence == nil {
		return "", fmt.Errorf("%w: screenshot uploads are not configured", match.ErrValidation)
	}
	r.Body = http.MaxBytesReader(w, r.Body, evidence.MaxUploadSize+maxBodySize)
	if err := r.ParseMultipartForm(evidence.MaxUploadSize); err != nil {
		return "", fmt.Errorf("%w: invalid upload", match.ErrValidation)
	}
	file, header, err := r.FormFile("screenshot")
	if err != nil {
		return "", fmt.Errorf("%w: screenshot file is required", match.ErrValidation)
	}
	defer file.Close()

	return h.Evidence.Save(r.Context(), matchID, userID, header.Filename, header.Header.Get("Content-Type"), file)
}
