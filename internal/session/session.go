package session

import (
	"encoding/json"
	"sync"

	"github.com/ysy950803/tgflow/internal/errors"
	"github.com/ysy950803/tgflow/internal/wire"
)

// Session is the durable client state: where we are connected, who we are,
// and how far into the update sequence we have processed. The dispatch loop
// persists it exactly once on graceful shutdown; callers needing stronger
// durability persist from their own handlers.
type Session struct {
	mu   sync.RWMutex
	data sessionData
}

type sessionData struct {
	DC      int    `json:"dc,omitempty"`
	AuthKey []byte `json:"auth_key,omitempty"`
	UserID  int64  `json:"user_id,omitempty"`
	Bot     bool   `json:"bot,omitempty"`

	// 更新序列状态
	Pts  int   `json:"pts,omitempty"`
	Qts  int   `json:"qts,omitempty"`
	Seq  int   `json:"seq,omitempty"`
	Date int64 `json:"date,omitempty"`
}

// Store persists sessions. Load returns ErrSessionNotFound when no session
// has been saved yet.
type Store interface {
	Load() (*Session, error)
	Save(s *Session) error
	Close() error
}

// LoadOrCreate loads the stored session or starts a fresh one.
func LoadOrCreate(store Store) (*Session, error) {
	s, err := store.Load()
	if err == nil {
		return s, nil
	}
	if errors.Is(err, errors.ErrSessionNotFound) {
		return &Session{}, nil
	}
	return nil, err
}

// SetUser records the signed-in user.
func (s *Session) SetUser(id int64, dc int, bot bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.UserID = id
	s.data.DC = dc
	s.data.Bot = bot
}

// SetAuthKey records the authorization key blob (opaque to this layer).
func (s *Session) SetAuthKey(key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.AuthKey = append([]byte(nil), key...)
}

// User returns the signed-in user id, zero if not signed in.
func (s *Session) User() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.UserID
}

// AdvanceState moves the update-sequence markers forward. Stale values are
// ignored so replays cannot rewind the session.
func (s *Session) AdvanceState(st wire.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.Pts > s.data.Pts {
		s.data.Pts = st.Pts
	}
	if st.Qts > s.data.Qts {
		s.data.Qts = st.Qts
	}
	if st.Seq > s.data.Seq {
		s.data.Seq = st.Seq
	}
	if st.Date > s.data.Date {
		s.data.Date = st.Date
	}
}

// State returns the current update-sequence markers.
func (s *Session) State() wire.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return wire.State{Pts: s.data.Pts, Qts: s.data.Qts, Seq: s.data.Seq, Date: s.data.Date}
}

func (s *Session) marshal() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.MarshalIndent(s.data, "", "  ")
}

func unmarshal(data []byte) (*Session, error) {
	s := &Session{}
	if err := json.Unmarshal(data, &s.data); err != nil {
		return nil, err
	}
	return s, nil
}
