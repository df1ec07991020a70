package models

import (
	"sync"

	"github.com/google/uuid"
)

// Session is one viewer's Battle View state.
type Session struct {
	ViewerID  uuid.UUID
	Topic     string
	Handle    string
	Battle    *Battle
	Votes     *VoteTally
	Busy      bool  // a backend call is outstanding
	BattleErr error // create/round failures
	VoteErr   error // tally/vote failures
	Watchers  map[uuid.UUID]*Watcher
	Mu        sync.Mutex
}

// NewSession starts busy; the service clears the flag once the stored
// snapshot has been restored.
func NewSession(viewerID uuid.UUID) *Session {
	return &Session{
		ViewerID: viewerID,
		Busy:     true,
		Watchers: make(map[uuid.UUID]*Watcher),
	}
}

// View builds the render projection. Columns are derived from the current
// battle on every call.
func (s *Session) View() View {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	v := View{
		Topic:       s.Topic,
		Handle:      s.Handle,
		Battle:      s.Battle,
		Votes:       s.Votes,
		Busy:        s.Busy,
		BattleError: errorText(s.BattleErr),
		VoteError:   errorText(s.VoteErr),
	}

	left, right := s.Battle.Columns()
	v.Left = Column{Participant: ParticipantOnSide(SideLeft), Messages: left}
	v.Right = Column{Participant: ParticipantOnSide(SideRight), Messages: right}

	// The topic is typed into the form itself, so only the battle and busy
	// conditions are known here; the input is marked required.
	v.ShowStart = s.Battle == nil
	v.CanStart = s.Battle == nil && !s.Busy
	v.CanAdvance = s.Battle != nil && !s.Battle.Completed() && !s.Busy
	v.CanVote = s.Battle.Completed() && !s.Busy
	v.Completed = s.Battle.Completed()
	v.WinnerLabel = s.Battle.WinnerLabel()

	for _, id := range ParticipantOrder {
		p := Participants[id]
		if s.Votes != nil {
			v.Tally = append(v.Tally, Count{Participant: p, Value: s.Votes.Count(id)})
		}
		if s.Battle != nil && s.Battle.Scores != nil {
			score := s.Battle.Scores.OpenAI
			if id == ParticipantDeepSeek {
				score = s.Battle.Scores.DeepSeek
			}
			v.Scores = append(v.Scores, Count{Participant: p, Value: score})
		}
		v.Choices = append(v.Choices, p)
	}
	return v
}

type SessionManager struct {
	Sessions map[uuid.UUID]*Session
	Mu       sync.Mutex
}

func NewSessionManager() *SessionManager {
	return &SessionManager{Sessions: make(map[uuid.UUID]*Session)}
}

// GetOrCreate reports whether the session was created by this call.
func (m *SessionManager) GetOrCreate(viewerID uuid.UUID) (*Session, bool) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	if sess, ok := m.Sessions[viewerID]; ok {
		return sess, false
	}
	sess := NewSession(viewerID)
	m.Sessions[viewerID] = sess
	return sess, true
}
