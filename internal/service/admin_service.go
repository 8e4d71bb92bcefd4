package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ludoarena/match-engine/internal/config"
	"github.com/ludoarena/match-engine/internal/ledger"
	"github.com/ludoarena/match-engine/internal/match"
	users "github.com/ludoarena/match-engine/internal/user"
)

const maxPageSize = 100

// AdminService serves the admin listing, housekeeping and settings
// operations that sit outside the match state machine.
type AdminService struct {
	Deps
}

func NewAdminService(deps Deps) *AdminService {
	return &AdminService{Deps: deps}
}

type MatchPage struct {
	Matches  []MatchView `json:"matches"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

func (s *AdminService) ListMatches(ctx context.Context, actor *users.User, status match.Status, page, pageSize int) (*MatchPage, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", match.ErrValidation, status)
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = 20
	}

	settings, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	ms, total, err := s.Matches.List(ctx, status, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return &MatchPage{
		Matches:  newViews(ms, settings.GameDuration()),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// MatchDetail is the admin view of one match including its ledger trail.
type MatchDetail struct {
	Match         MatchView            `json:"match"`
	ResultRequest *match.ResultRequest `json:"result_request,omitempty"`
	Transactions  []ledger.Transaction `json:"transactions"`
}

func (s *AdminService) MatchDetail(ctx context.Context, actor *users.User, matchID uuid.UUID) (*MatchDetail, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	settings, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.Matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	req, err := s.Results.FindByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load result request: %w", err)
	}
	txs, err := s.Ledger.MatchTransactions(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load match transactions: %w", err)
	}
	if txs == nil {
		txs = []ledger.Transaction{}
	}
	return &MatchDetail{
		Match:         newView(m, settings.GameDuration()),
		ResultRequest: req,
		Transactions:  txs,
	}, nil
}

// BulkDeleteCancelled removes cancelled matches; other ids are ignored.
func (s *AdminService) BulkDeleteCancelled(ctx context.Context, actor *users.User, ids []uuid.UUID) (int64, error) {
	if err := requireAdmin(actor); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: no match ids given", match.ErrValidation)
	}
	return s.Matches.DeleteCancelled(ctx, ids)
}

func (s *AdminService) GetSettings(ctx context.Context, actor *users.User) (config.Settings, error) {
	if err := requireAdmin(actor); err != nil {
		return config.Settings{}, err
	}
	return s.Settings.Snapshot(ctx)
}

func (s *AdminService) UpdateSettings(ctx context.Context, actor *users.User, settings config.Settings) (config.Settings, error) {
	if err := requireAdmin(actor); err != nil {
		return config.Settings{}, err
	}
	if err := settings.Validate(); err != nil {
		return config.Settings{}, fmt.Errorf("%w: %s", match.ErrValidation, err)
	}
	if err := s.Settings.Update(ctx, settings); err != nil {
		return config.Settings{}, fmt.Errorf("failed to update settings: %w", err)
	}
	return s.Settings.Snapshot(ctx)
}

func (s *AdminService) Deposit(ctx context.Context, actor *users.User, userID uuid.UUID, amount int64) (int64, error) {
	if err := requireAdmin(actor); err != nil {
		return 0, err
	}
	return s.Ledger.Deposit(ctx, userID, amount, fmt.Sprintf("Deposit by admin %s", actor.Username))
}
