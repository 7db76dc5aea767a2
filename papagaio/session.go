package papagaio

import (
	"strings"
	"sync"
)

// TurnRole identifies the speaker of a stored turn.
type TurnRole string

const (
	TurnRoleRequester TurnRole = "requester"
	TurnRoleAssistant TurnRole = "assistant"
)

// Turn is one utterance stored in a user's session. Immutable once created.
type Turn struct {
	Role TurnRole `json:"role"`
	Text string   `json:"text"`
}

// session holds one user's rolling turn history. Turns are oldest-first.
// The mutex serializes appends for the same user, since gateway events for
// one user may be handled on concurrent goroutines.
type session struct {
	mu    sync.Mutex
	turns []Turn
}

// SessionStore maps user IDs to bounded, ordered turn histories.
//
// State is process-lifetime only: a restart yields empty history for every
// user. That's accepted behavior, not a bug.
type SessionStore struct {
	maxTurns       int
	userLabel      string
	assistantLabel string

	mu       sync.RWMutex
	sessions map[string]*session
}

func NewSessionStore(maxTurns int, userLabel string, assistantLabel string) *SessionStore {
	if maxTurns < 1 {
		maxTurns = DefaultMaxTurns
	}
	return &SessionStore{
		maxTurns:       maxTurns,
		userLabel:      userLabel,
		assistantLabel: assistantLabel,
		sessions:       map[string]*session{},
	}
}

func (s *SessionStore) getOrCreate(userID string) *session {
	s.mu.RLock()
	sess := s.sessions[userID]
	s.mu.RUnlock()
	if sess != nil {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess = s.sessions[userID]
	if sess == nil {
		sess = &session{}
		s.sessions[userID] = sess
	}
	return sess
}

// Append inserts the turn at the end of the user's history, evicting the
// oldest turn if the bound would be exceeded. Always succeeds; an unknown
// user gets a new empty session first.
func (s *SessionStore) Append(userID string, turn Turn) {
	sess := s.getOrCreate(userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.turns = append(sess.turns, turn)
	if len(sess.turns) > s.maxTurns {
		sess.turns = sess.turns[len(sess.turns)-s.maxTurns:]
	}
}

// Turns returns a copy of the user's history, oldest-first.
func (s *SessionStore) Turns(userID string) []Turn {
	s.mu.RLock()
	sess := s.sessions[userID]
	s.mu.RUnlock()
	if sess == nil {
		return nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	turns := make([]Turn, len(sess.turns))
	copy(turns, sess.turns)
	return turns
}

// Render produces the deterministic transcript used in prompts: one
// "<label>: <text>" line per turn, in order.
func (s *SessionStore) Render(userID string) string {
	turns := s.Turns(userID)
	if len(turns) == 0 {
		return ""
	}

	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		label := s.userLabel
		if turn.Role == TurnRoleAssistant {
			label = s.assistantLabel
		}
		lines = append(lines, label+": "+turn.Text)
	}
	return strings.Join(lines, "\n")
}

// Clear drops the given user's history entirely. An Append racing with
// Clear may land its turn on the detached session and lose it; for a user
// wiping their own history mid-conversation that's the intent anyway.
func (s *SessionStore) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Len reports how many turns are currently stored for the user.
func (s *SessionStore) Len(userID string) int {
	s.mu.RLock()
	sess := s.sessions[userID]
	s.mu.RUnlock()
	if sess == nil {
		return 0
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return len(sess.turns)
}

// UserCount reports how many users currently have stored history.
func (s *SessionStore) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
