package match

import (
	"time"

	"github.com/google/uuid"
)

type ClaimType string

const (
	ClaimWin  ClaimType = "win"
	ClaimLoss ClaimType = "loss"
)

func (t ClaimType) Valid() bool {
	return t == ClaimWin || t == ClaimLoss
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestResolved RequestStatus = "resolved"
)

type ResultClaim struct {
	ID          uuid.UUID `db:"id" json:"id"`
	RequestID   uuid.UUID `db:"request_id" json:"request_id"`
	MatchID     uuid.UUID `db:"match_id" json:"match_id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	UserName    string    `db:"user_name" json:"user_name"`
	Type        ClaimType `db:"claim_type" json:"type"`
	EvidenceRef string    `db:"evidence_ref" json:"evidence_ref"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
}

// ResultRequest aggregates the claims of one match. Once resolved it is
// never written again.
type ResultRequest struct {
	ID         uuid.UUID     `db:"id" json:"id"`
	MatchID    uuid.UUID     `db:"match_id" json:"match_id"`
	Status     RequestStatus `db:"status" json:"status"`
	WinnerID   *uuid.UUID    `db:"winner_id" json:"winner_id,omitempty"`
	ResolvedAt *time.Time    `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolvedBy *uuid.UUID    `db:"resolved_by" json:"resolved_by,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`

	Claims []ResultClaim `db:"-" json:"claims"`
}

func (r *ResultRequest) ClaimFrom(userID uuid.UUID) *ResultClaim {
	for i := range r.Claims {
		if r.Claims[i].UserID == userID {
			return &r.Claims[i]
		}
	}
	return nil
}
