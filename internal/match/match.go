package match

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusWaiting       Status = "waiting"
	StatusLive          Status = "live"
	StatusResultPending Status = "result_pending"
	StatusCompleted     Status = "completed"
	StatusCancelled     Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusLive, StatusResultPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Cancel reasons recorded on the match.
const (
	ReasonJoinExpired     = "join expired"
	ReasonRoomCodeExpired = "room code expired"
	ReasonPlayerCancelled = "cancelled by player"
)

const MaxPlayers = 2

type Player struct {
	UserID     uuid.UUID `json:"user_id"`
	UserName   string    `json:"user_name"`
	AmountPaid int64     `json:"amount_paid"`
	JoinedAt   time.Time `json:"joined_at"`
}

// Players is stored as a JSON column so a single CAS update covers the
// whole seat list.
type Players []Player

func (p Players) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *Players) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Players", src)
	}
	return json.Unmarshal(raw, p)
}

type Match struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	CreatorID   uuid.UUID  `db:"creator_id" json:"creator_id"`
	OpponentID  *uuid.UUID `db:"opponent_id" json:"opponent_id,omitempty"`
	EntryAmount int64      `db:"entry_amount" json:"entry_amount"`
	Players     Players    `db:"players" json:"players"`
	Status      Status     `db:"status" json:"status"`

	JoinExpiryAt      time.Time  `db:"join_expiry_at" json:"join_expiry_at"`
	RoomCode          *string    `db:"room_code" json:"room_code,omitempty"`
	RoomCodeExpiryAt  *time.Time `db:"room_code_expiry_at" json:"room_code_expiry_at,omitempty"`
	GameActualStartAt *time.Time `db:"game_actual_start_at" json:"game_actual_start_at,omitempty"`

	WinnerID     *uuid.UUID `db:"winner_id" json:"winner_id,omitempty"`
	CancelReason *string    `db:"cancel_reason" json:"cancel_reason,omitempty"`
	ForfeitedBy  *uuid.UUID `db:"forfeited_by" json:"forfeited_by,omitempty"`
	Commission   *int64     `db:"commission" json:"commission,omitempty"`
	Prize        *int64     `db:"prize" json:"prize,omitempty"`

	Version   int64     `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (m *Match) Player(userID uuid.UUID) *Player {
	for i := range m.Players {
		if m.Players[i].UserID == userID {
			return &m.Players[i]
		}
	}
	return nil
}

func (m *Match) IsParticipant(userID uuid.UUID) bool {
	return m.Player(userID) != nil
}

func (m *Match) IsFull() bool {
	return len(m.Players) >= MaxPlayers
}

// Started reports whether a room code has been recorded.
func (m *Match) Started() bool {
	return m.GameActualStartAt != nil
}

// TotalPaid is the sum actually escrowed for this match.
func (m *Match) TotalPaid() int64 {
	var total int64
	for _, p := range m.Players {
		total += p.AmountPaid
	}
	return total
}

// ExpectedEndAt is derived from the start time; nil until the game starts.
func (m *Match) ExpectedEndAt(gameDuration time.Duration) *time.Time {
	if m.GameActualStartAt == nil {
		return nil
	}
	t := m.GameActualStartAt.Add(gameDuration)
	return &t
}

// Clone returns a copy that does not share the seat slice.
func (m *Match) Clone() *Match {
	c := *m
	c.Players = append(Players(nil), m.Players...)
	return &c
}
