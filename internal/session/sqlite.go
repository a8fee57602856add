package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Armin-kho/currency-rate-bot/internal/db"
)

// SQLite persists sessions across restarts. Rows older than ttl are treated as absent;
// the scheduler deletes them.
type SQLite struct {
	db  *db.DB
	ttl time.Duration
}

func NewSQLite(database *db.DB, ttl time.Duration) *SQLite {
	return &SQLite{db: database, ttl: ttl}
}

func (s *SQLite) Get(ctx context.Context, userID int64) (State, bool, error) {
	row, ok, err := s.db.GetSession(ctx, userID)
	if err != nil || !ok {
		return State{}, false, err
	}
	if s.ttl > 0 && time.Since(row.UpdatedAt) > s.ttl {
		return State{}, false, nil
	}
	return State{FromCode: row.FromCode, Step: Step(row.Step), UpdatedAt: row.UpdatedAt}, true, nil
}

func (s *SQLite) Put(ctx context.Context, userID int64, st State) error {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now()
	}
	return s.db.PutSession(ctx, db.Session{
		UserID:    userID,
		FromCode:  st.FromCode,
		Step:      string(st.Step),
		UpdatedAt: st.UpdatedAt,
	})
}

func (s *SQLite) Delete(ctx context.Context, userID int64) error {
	return s.db.DeleteSession(ctx, userID)
}

// Prune removes expired rows.
func (s *SQLite) Prune(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	return s.db.PruneSessions(ctx, time.Now().Add(-s.ttl))
}

// Len counts stored rows, expired ones included until the next prune.
func (s *SQLite) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n, err := s.db.SessionCount(ctx)
	if err != nil {
		log.Error().Err(err).Msg("count sessions")
		return 0
	}
	return n
}
