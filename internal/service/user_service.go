package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/ludoarena/match-engine/internal/ledger"
	"github.com/ludoarena/match-engine/internal/store"
	users "github.com/ludoarena/match-engine/internal/user"
	"github.com/ludoarena/match-engine/internal/utils"
	"github.com/markbates/goth"
)

type UserService struct {
	db      *sqlx.DB
	store   *store.UserStore
	ledger  *ledger.Ledger
	isAdmin func(email string) bool
}

func NewUserService(db *sqlx.DB, store *store.UserStore, l *ledger.Ledger, isAdmin func(email string) bool) *UserService {
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	return &UserService{db: db, store: store, ledger: l, isAdmin: isAdmin}
}

// FindOrCreateUserByProvider maps an OAuth identity onto a local user,
// refreshing the profile and admin flag on every login.
func (s *UserService) FindOrCreateUserByProvider(ctx context.Context, gothUser goth.User) (*users.User, error) {
	user, err := s.store.GetUserByProvider(ctx, gothUser.Provider, gothUser.UserID)

	if err == nil {
		name := displayName(gothUser)
		admin := s.isAdmin(user.Email)
		if utils.OrZero(user.AvatarURL) != gothUser.AvatarURL || user.Username != name || user.IsAdmin != admin {
			user.AvatarURL = utils.StringOrNil(gothUser.AvatarURL)
			user.Username = name
			user.IsAdmin = admin
			if err := s.store.UpdateUserProfile(ctx, user); err != nil {
				return nil, err
			}
		}
		return user, nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		newUser := &users.User{
			ID:         uuid.New(),
			Email:      gothUser.Email,
			Username:   displayName(gothUser),
			Provider:   utils.Ptr(gothUser.Provider),
			ProviderID: utils.Ptr(gothUser.UserID),
			AvatarURL:  utils.StringOrNil(gothUser.AvatarURL),
			IsAdmin:    s.isAdmin(gothUser.Email),
			CreatedAt:  time.Now().UTC(),
		}
		err := s.store.CreateUser(ctx, newUser)
		return newUser, err
	}

	return nil, err
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	return s.store.GetUser(ctx, id)
}

// Wallet is the balance plus recent movements of one user.
type Wallet struct {
	Balance      int64                `json:"balance"`
	Transactions []ledger.Transaction `json:"transactions"`
}

func (s *UserService) Wallet(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	balance, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	txs, err := s.ledger.Transactions(ctx, userID, listLimit)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []ledger.Transaction{}
	}
	return &Wallet{Balance: balance, Transactions: txs}, nil
}

func displayName(u goth.User) string {
	switch {
	case u.NickName != "":
		return u.NickName
	case u.Name != "":
		return u.Name
	default:
		return u.Email
	}
}
