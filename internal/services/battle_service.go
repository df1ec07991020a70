package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/latestcomment/ai-battle-arena/internal/models"
	"github.com/latestcomment/ai-battle-arena/internal/storage"
)

// Guard errors: the request was refused before any backend call.
var (
	ErrBusy               = errors.New("a request is already in progress")
	ErrEmptyTopic         = errors.New("topic is required")
	ErrBattleExists       = errors.New("a battle is already running")
	ErrNoBattle           = errors.New("no battle selected")
	ErrStaleBattle        = errors.New("battle is no longer the current one")
	ErrEmptyHandle        = errors.New("twitter username is required")
	ErrUnknownParticipant = errors.New("unknown participant")
)

// Surfaced errors: shown on the page as they read here.
var (
	ErrCreateBattle = errors.New("Failed to create battle")
	ErrProcessRound = errors.New("Failed to process round")
	ErrFetchVotes   = errors.New("Failed to fetch votes")
	ErrSubmitVote   = errors.New("Failed to submit vote")
)

// Arena is the battle backend as seen by the view.
type Arena interface {
	CreateBattle(ctx context.Context, topic string, rounds int) (*models.Battle, error)
	ProcessRound(ctx context.Context, battleID string) (*models.Battle, error)
	GetBattle(ctx context.Context, battleID string) (*models.Battle, error)
	GetVotes(ctx context.Context, battleID string) (*models.VoteTally, error)
	Vote(ctx context.Context, battleID string, vote models.Vote) (*models.VoteTally, error)
}

type BattleService struct {
	Manager *models.SessionManager
	arena   Arena
	store   storage.Store
	rounds  int
	log     *zap.Logger
}

func NewBattleService(manager *models.SessionManager, arena Arena, store storage.Store, rounds int, log *zap.Logger) *BattleService {
	if log == nil {
		log = zap.NewNop()
	}
	return &BattleService{Manager: manager, arena: arena, store: store, rounds: rounds, log: log}
}

// Session returns the viewer's session, restoring the stored snapshot on
// first access. A restored completed battle has its tally fetched at once.
func (s *BattleService) Session(ctx context.Context, viewerID uuid.UUID) *models.Session {
	sess, created := s.Manager.GetOrCreate(viewerID)
	if created {
		s.restore(ctx, sess)
	}
	return sess
}

func (s *BattleService) restore(ctx context.Context, sess *models.Session) {
	defer s.end(sess)

	snap, err := storage.LoadSnapshot(ctx, s.store, sess.ViewerID.String())
	if err != nil {
		s.log.Warn("restore snapshot", zap.Stringer("viewer", sess.ViewerID), zap.Error(err))
		return
	}

	sess.Mu.Lock()
	sess.Battle = snap.Battle
	sess.Votes = snap.Votes
	sess.Handle = snap.Handle
	sess.Mu.Unlock()

	if snap.Battle.Completed() {
		s.fetchVotes(ctx, sess, snap.Battle.ID)
	}
}

// StartBattle creates a battle for topic and plays its first round.
func (s *BattleService) StartBattle(ctx context.Context, sess *models.Session, topic string) error {
	topic = strings.TrimSpace(topic)

	if err := s.begin(sess, func() error {
		switch {
		case topic == "":
			return ErrEmptyTopic
		case sess.Battle != nil:
			return ErrBattleExists
		}
		sess.Topic = topic
		sess.BattleErr = nil
		return nil
	}); err != nil {
		return err
	}
	defer s.end(sess)

	battle, err := s.arena.CreateBattle(ctx, topic, s.rounds)
	if err != nil {
		s.log.Warn("create battle", zap.Stringer("viewer", sess.ViewerID), zap.Error(err))
		s.failBattle(sess, ErrCreateBattle)
		return ErrCreateBattle
	}
	s.log.Info("battle created", zap.Stringer("viewer", sess.ViewerID), zap.String("battle", battle.ID))
	s.setBattle(ctx, sess, battle)

	return s.advance(ctx, sess, battle.ID)
}

// AdvanceRound plays the next round of battleID.
func (s *BattleService) AdvanceRound(ctx context.Context, sess *models.Session, battleID string) error {
	if err := s.begin(sess, func() error {
		if err := checkCurrent(sess, battleID); err != nil {
			return err
		}
		sess.BattleErr = nil
		return nil
	}); err != nil {
		return err
	}
	defer s.end(sess)

	return s.advance(ctx, sess, battleID)
}

func (s *BattleService) advance(ctx context.Context, sess *models.Session, battleID string) error {
	battle, err := s.arena.ProcessRound(ctx, battleID)
	if err != nil {
		s.log.Warn("process round", zap.String("battle", battleID), zap.Error(err))
		s.failBattle(sess, ErrProcessRound)
		return ErrProcessRound
	}
	s.setBattle(ctx, sess, battle)

	if battle.Completed() {
		s.log.Info("battle completed", zap.String("battle", battle.ID), zap.String("winner", battle.Winner))
		// a tally failure lands on the vote channel only
		s.fetchVotes(ctx, sess, battleID)
	}
	return nil
}

// FetchVotes refreshes the tally of battleID. It does not take the busy flag.
func (s *BattleService) FetchVotes(ctx context.Context, sess *models.Session, battleID string) error {
	sess.Mu.Lock()
	err := checkCurrent(sess, battleID)
	sess.Mu.Unlock()
	if err != nil {
		return err
	}
	err = s.fetchVotes(ctx, sess, battleID)
	s.broadcast(sess)
	return err
}

func (s *BattleService) fetchVotes(ctx context.Context, sess *models.Session, battleID string) error {
	tally, err := s.arena.GetVotes(ctx, battleID)
	if err != nil {
		s.log.Warn("fetch votes", zap.String("battle", battleID), zap.Error(err))
		sess.Mu.Lock()
		sess.VoteErr = ErrFetchVotes
		sess.Mu.Unlock()
		return ErrFetchVotes
	}
	s.setVotes(ctx, sess, tally)
	return nil
}

// SubmitVote votes for participant as handle, then refreshes the battle to
// pick up any winner or scores computed from the votes.
func (s *BattleService) SubmitVote(ctx context.Context, sess *models.Session, battleID string, participant string, handle string) error {
	voter := models.NormalizeHandle(handle)
	chosen, known := models.ParseParticipant(participant)

	if err := s.begin(sess, func() error {
		if err := checkCurrent(sess, battleID); err != nil {
			return err
		}
		switch {
		case voter == "":
			return ErrEmptyHandle
		case !known:
			return ErrUnknownParticipant
		}
		sess.Handle = strings.TrimSpace(handle)
		sess.VoteErr = nil
		return nil
	}); err != nil {
		return err
	}
	defer s.end(sess)

	if err := storage.SaveHandle(ctx, s.store, sess.ViewerID.String(), strings.TrimSpace(handle)); err != nil {
		s.log.Warn("save handle", zap.Stringer("viewer", sess.ViewerID), zap.Error(err))
	}

	tally, err := s.arena.Vote(ctx, battleID, models.Vote{TwitterUsername: voter, ChosenAI: chosen})
	if err != nil {
		s.log.Warn("submit vote", zap.String("battle", battleID), zap.String("voter", voter), zap.Error(err))
		surfaced := voteFailure(err)
		sess.Mu.Lock()
		sess.VoteErr = surfaced
		sess.Mu.Unlock()
		return surfaced
	}
	s.setVotes(ctx, sess, tally)

	battle, err := s.arena.GetBattle(ctx, battleID)
	if err != nil {
		s.log.Warn("refetch battle after vote", zap.String("battle", battleID), zap.Error(err))
		return nil
	}
	s.setBattle(ctx, sess, battle)
	return nil
}

// Reset forgets the current battle so a new one can be started.
func (s *BattleService) Reset(ctx context.Context, sess *models.Session) error {
	if err := s.begin(sess, func() error {
		sess.Battle = nil
		sess.Votes = nil
		sess.Topic = ""
		sess.BattleErr = nil
		sess.VoteErr = nil
		return nil
	}); err != nil {
		return err
	}
	defer s.end(sess)

	if err := storage.ClearBattle(ctx, s.store, sess.ViewerID.String()); err != nil {
		s.log.Warn("clear snapshot", zap.Stringer("viewer", sess.ViewerID), zap.Error(err))
	}
	return nil
}

// AddWatcher registers w and sends it the current view.
func (s *BattleService) AddWatcher(sess *models.Session, w *models.Watcher) {
	sess.Mu.Lock()
	sess.Watchers[w.Id] = w
	sess.Mu.Unlock()

	if err := w.Send(sess.View()); err != nil {
		s.RemoveWatcher(sess, w)
	}
}

func (s *BattleService) RemoveWatcher(sess *models.Session, w *models.Watcher) {
	sess.Mu.Lock()
	delete(sess.Watchers, w.Id)
	sess.Mu.Unlock()
}

// broadcast pushes the current view to every watcher, dropping those that
// cannot be written to.
func (s *BattleService) broadcast(sess *models.Session) {
	view := sess.View()

	sess.Mu.Lock()
	watchers := make([]*models.Watcher, 0, len(sess.Watchers))
	for _, w := range sess.Watchers {
		watchers = append(watchers, w)
	}
	sess.Mu.Unlock()

	for _, w := range watchers {
		if err := w.Send(view); err != nil {
			s.log.Debug("drop watcher", zap.Stringer("watcher", w.Id), zap.Error(err))
			s.RemoveWatcher(sess, w)
		}
	}
}

// checkCurrent accepts only the id of the battle the session holds, so a form
// left open on an older battle cannot pull that battle back in. Callers hold
// sess.Mu.
func checkCurrent(sess *models.Session, battleID string) error {
	switch {
	case strings.TrimSpace(battleID) == "", sess.Battle == nil:
		return ErrNoBattle
	case sess.Battle.ID != battleID:
		return ErrStaleBattle
	}
	return nil
}

// begin takes the busy flag after check passes; check runs under the
// session lock and may reset fields.
func (s *BattleService) begin(sess *models.Session, check func() error) error {
	sess.Mu.Lock()
	if sess.Busy {
		sess.Mu.Unlock()
		return ErrBusy
	}
	if err := check(); err != nil {
		sess.Mu.Unlock()
		return err
	}
	sess.Busy = true
	sess.Mu.Unlock()

	s.broadcast(sess)
	return nil
}

func (s *BattleService) end(sess *models.Session) {
	sess.Mu.Lock()
	sess.Busy = false
	sess.Mu.Unlock()
	s.broadcast(sess)
}

func (s *BattleService) failBattle(sess *models.Session, err error) {
	sess.Mu.Lock()
	sess.BattleErr = err
	sess.Mu.Unlock()
}

func (s *BattleService) setBattle(ctx context.Context, sess *models.Session, battle *models.Battle) {
	sess.Mu.Lock()
	sess.Battle = battle
	sess.Mu.Unlock()

	if err := storage.SaveBattle(ctx, s.store, sess.ViewerID.String(), battle); err != nil {
		s.log.Warn("save battle snapshot", zap.Stringer("viewer", sess.ViewerID), zap.Error(err))
	}
}

func (s *BattleService) setVotes(ctx context.Context, sess *models.Session, tally *models.VoteTally) {
	sess.Mu.Lock()
	sess.Votes = tally
	sess.Mu.Unlock()

	if err := storage.SaveVotes(ctx, s.store, sess.ViewerID.String(), tally); err != nil {
		s.log.Warn("save votes snapshot", zap.Stringer("viewer", sess.ViewerID), zap.Error(err))
	}
}

// voteFailure prefers the backend's detail message over the generic one.
func voteFailure(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return errors.New(apiErr.Detail)
	}
	return ErrSubmitVote
}
