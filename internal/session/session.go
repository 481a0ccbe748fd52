// Package session is the player side of the game: it keeps a device's
// identity, mirrors the server's state from the event stream and sends
// the player's actions.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"

	"github.com/playperu/harvest/internal/broadcast"
	"github.com/playperu/harvest/internal/harvest"
)

const (
	// DeadlineInterval is how often Run checks for an expired timer.
	DeadlineInterval = 250 * time.Millisecond

	maxEventBytes = 1 << 20
)

var (
	ErrNotClaimed = errors.New("no team claimed")
	ErrNoState    = errors.New("game state not loaded")
)

// ChangeFunc is called after every applied event, outside the session
// lock. gs is nil after a reset until the state is fetched again.
type ChangeFunc func(typ broadcast.EventType, gs *harvest.GameState)

type Option func(*Session)

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func WithOnChange(fn ChangeFunc) Option {
	return func(s *Session) { s.onChange = fn }
}

// WithBackOff replaces the reconnect policy.
func WithBackOff(b *backoff.ExponentialBackOff) Option {
	return func(s *Session) { s.backOff = b }
}

type Session struct {
	client    *Client
	cachePath string
	logger    *slog.Logger
	now       func() time.Time
	onChange  ChangeFunc
	backOff   *backoff.ExponentialBackOff

	mu       sync.Mutex
	identity Identity
	state    *harvest.GameState
	selected map[int]string
	// resolving marks scenarios whose deadline submission is in flight.
	resolving map[int]bool
}

// New restores the identity and last state cached at cachePath, or
// creates a fresh identity when there is none.
func New(client *Client, cachePath string, logger *slog.Logger, opts ...Option) (*Session, error) {
	c, err := loadCache(cachePath)
	if err != nil {
		return nil, err
	}

	s := &Session{
		client:    client,
		cachePath: cachePath,
		logger:    logger,
		now:       time.Now,
		backOff:   backoff.NewExponentialBackOff(),
		identity:  c.Identity,
		state:     c.State,
		selected:  map[int]string{},
		resolving: map[int]bool{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.identity.ClientID == "" {
		s.identity = newIdentity()
		if err := s.save(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func newIdentity() Identity {
	return Identity{ClientID: "player-" + uuid.NewString()}
}

func (s *Session) Identity() Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// State returns the last known state, possibly from the cache. It is nil
// before anything was received.
func (s *Session) State() *harvest.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil
	}
	return s.state.Clone()
}

// save writes the cache. Callers hold s.mu or own s exclusively.
func (s *Session) save() error {
	return saveCache(s.cachePath, cacheFile{Identity: s.identity, State: s.state})
}

// replace installs gs as the current view. Older snapshots are dropped.
// If the claimed slot now belongs to someone else the team is forgotten.
// Callers hold s.mu.
func (s *Session) replace(gs *harvest.GameState) bool {
	if gs == nil {
		return false
	}
	gs.Normalize()
	if s.state != nil && gs.LastUpdate < s.state.LastUpdate {
		return false
	}
	if s.state == nil || s.state.ScenarioIndex != gs.ScenarioIndex {
		clear(s.selected)
		clear(s.resolving)
	}
	s.state = gs

	if id := s.identity.TeamID; id != "" && gs.Teams[id].ClaimedBy != s.identity.ClientID {
		s.logger.Info("team no longer ours", "team", id)
		s.identity.TeamID = ""
	}
	if err := s.save(); err != nil {
		s.logger.Warn("saving session cache", "error", err)
	}
	return true
}

// resetIdentity forgets the team and starts over with a new client id.
// Callers hold s.mu.
func (s *Session) resetIdentity() {
	s.identity = newIdentity()
	s.state = nil
	clear(s.selected)
	clear(s.resolving)
	if err := s.save(); err != nil {
		s.logger.Warn("saving session cache", "error", err)
	}
}

func (s *Session) notify(typ broadcast.EventType, gs *harvest.GameState) {
	if s.onChange == nil {
		return
	}
	if gs != nil {
		gs = gs.Clone()
	}
	s.onChange(typ, gs)
}

// Refresh fetches the full state from the server.
func (s *Session) Refresh(ctx context.Context) error {
	gs, err := s.client.State(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	applied := s.replace(gs)
	s.mu.Unlock()
	if applied {
		s.notify(broadcast.EventState, gs)
	}
	return nil
}

// Apply reconciles one broadcast event into the local view. Every state
// event replaces the view entirely. A reset drops the identity and
// fetches the new lobby.
func (s *Session) Apply(ctx context.Context, ev broadcast.Event) error {
	switch ev.Type {
	case broadcast.EventReset:
		s.mu.Lock()
		s.resetIdentity()
		s.mu.Unlock()
		s.logger.Info("game reset, identity dropped")
		s.notify(broadcast.EventReset, nil)
		return s.Refresh(ctx)

	case broadcast.EventState, broadcast.EventWinner:
		s.mu.Lock()
		applied := s.replace(ev.State)
		s.mu.Unlock()
		if applied || ev.Type == broadcast.EventWinner {
			s.notify(ev.Type, ev.State)
		}
		return nil

	default:
		s.logger.Warn("unknown event type", "type", ev.Type)
		return nil
	}
}

// Claim takes a team slot for this device.
func (s *Session) Claim(ctx context.Context, team harvest.TeamID, name, crop string) error {
	id := s.Identity()
	gs, err := s.client.Claim(ctx, team, id.ClientID, name, crop)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.identity.TeamID = team
	applied := s.replace(gs)
	s.mu.Unlock()
	if applied {
		s.notify(broadcast.EventState, gs)
	}
	return nil
}

// Select records the choice the player is leaning towards for the
// current scenario. It is submitted if the timer runs out.
func (s *Session) Select(choiceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return ErrNoState
	}
	s.selected[s.state.ScenarioIndex] = choiceID
	return nil
}

// current returns the team and scenario index an answer would target.
func (s *Session) current() (harvest.TeamID, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity.TeamID == "" {
		return "", 0, ErrNotClaimed
	}
	if s.state == nil {
		return "", 0, ErrNoState
	}
	return s.identity.TeamID, s.state.ScenarioIndex, nil
}

// Answer submits choiceID for the current scenario.
func (s *Session) Answer(ctx context.Context, choiceID string) error {
	team, idx, err := s.current()
	if err != nil {
		return err
	}
	return s.submit(ctx, team, idx, choiceID)
}

func (s *Session) submit(ctx context.Context, team harvest.TeamID, idx int, choiceID string) error {
	var (
		gs  *harvest.GameState
		err error
	)
	if choiceID == "" {
		gs, err = s.client.TimePenalty(ctx, team, idx)
	} else {
		gs, err = s.client.Answer(ctx, team, idx, choiceID)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	applied := s.replace(gs)
	s.mu.Unlock()
	if applied {
		s.notify(broadcast.EventState, gs)
	}
	return nil
}

// CheckDeadline resolves the current scenario once its timer expired and
// the team still has no answer: the selected choice is submitted, or the
// time penalty when nothing was selected. It reports whether a submission
// was made.
func (s *Session) CheckDeadline(ctx context.Context) (bool, error) {
	s.mu.Lock()
	gs, team := s.state, s.identity.TeamID
	if gs == nil || team == "" || gs.Phase != harvest.PhaseRunning {
		s.mu.Unlock()
		return false, nil
	}
	idx := gs.ScenarioIndex
	timer, ok := gs.ActiveTimer(idx)
	if !ok || !timer.Expired(s.now()) || gs.Teams[team].Answered(idx) || s.resolving[idx] {
		s.mu.Unlock()
		return false, nil
	}
	choice := s.selected[idx]
	s.resolving[idx] = true
	s.mu.Unlock()

	if err := s.submit(ctx, team, idx, choice); err != nil {
		s.mu.Lock()
		delete(s.resolving, idx)
		s.mu.Unlock()
		return false, fmt.Errorf("resolving deadline: %w", err)
	}
	return true, nil
}

// Run follows the event stream until ctx is done, reconnecting with
// exponential backoff, and resolves expired deadlines as they happen.
func (s *Session) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		_, err := backoff.Retry(gctx, func() (struct{}, error) {
			err := s.stream(gctx)
			if gctx.Err() != nil {
				return struct{}{}, backoff.Permanent(gctx.Err())
			}
			return struct{}{}, err
		},
			backoff.WithBackOff(s.backOff),
			backoff.WithMaxElapsedTime(0),
			backoff.WithNotify(func(err error, next time.Duration) {
				s.logger.Warn("event stream lost, reconnecting", "error", err, "retry_in", next)
			}),
		)
		return err
	})

	g.Go(func() error {
		tick := time.NewTicker(DeadlineInterval)
		defer tick.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-tick.C:
				if _, err := s.CheckDeadline(gctx); err != nil {
					s.logger.Warn("deadline check failed", "error", err)
				}
			}
		}
	})

	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// stream reads events from one connection until it drops. The first
// event on every connection is the full state, so a reconnect is also
// a refetch.
func (s *Session) stream(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, s.client.EventsURL(), nil)
	if err != nil {
		return fmt.Errorf("dialing event stream: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxEventBytes)
	s.backOff.Reset()
	s.logger.Debug("event stream connected")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("reading event: %w", err)
		}
		var ev broadcast.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			s.logger.Warn("dropping malformed event", "error", err)
			continue
		}
		if err := s.Apply(ctx, ev); err != nil {
			s.logger.Warn("applying event", "type", ev.Type, "error", err)
		}
	}
}
