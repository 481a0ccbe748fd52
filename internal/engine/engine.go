// Package engine owns the authoritative game state. Every operation runs
// under one lock: validate, mutate, stamp lastUpdate, persist, broadcast.
// Persistence is best effort; a failed write is logged and the committed
// state is still broadcast.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playperu/harvest/internal/broadcast"
	"github.com/playperu/harvest/internal/harvest"
	"github.com/playperu/harvest/internal/repository"
)

// Repository is the persistence the engine writes through.
type Repository interface {
	GameState(ctx context.Context) (*harvest.GameState, error)
	SaveGameState(ctx context.Context, gs *harvest.GameState) error
	SaveTeam(ctx context.Context, t *harvest.TeamState) error
	SaveAnswer(ctx context.Context, id harvest.TeamID, scenarioIndex int, a harvest.Answer) error
	Reset(ctx context.Context) error
}

type Publisher interface {
	Publish(broadcast.Event)
}

// MaxTimerDuration bounds the per-scenario timer, in seconds.
const MaxTimerDuration = 3600

const persistTimeout = 5 * time.Second

type Engine struct {
	mu      sync.Mutex
	state   *harvest.GameState
	catalog harvest.Catalog

	repo   Repository
	pub    Publisher
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(catalog harvest.Catalog, repo Repository, pub Publisher, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		catalog: catalog,
		repo:    repo,
		pub:     pub,
		logger:  logger,
		now:     time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	e.state = harvest.NewGameState(e.now())
	return e
}

// Hydrate replaces the in-memory state with the stored snapshot. A
// missing, undecodable or out-of-catalog snapshot is replaced by a fresh
// lobby, which is persisted. Only store failures are returned.
func (e *Engine) Hydrate(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	gs, err := e.repo.GameState(ctx)
	switch {
	case err == nil && gs.Phase == harvest.PhaseRunning && gs.ScenarioIndex >= len(e.catalog):
		e.logger.Warn("stored scenario index outside the catalog, starting over",
			"scenario", gs.ScenarioIndex, "scenarios", len(e.catalog))
	case err == nil:
		e.state = gs
		e.logger.Info("hydrated game state", "phase", gs.Phase, "scenario", gs.ScenarioIndex)
		return nil
	case errors.Is(err, repository.ErrCorrupt):
		e.logger.Warn("stored game state unreadable, starting over", "error", err)
	case errors.Is(err, repository.ErrNotFound):
	default:
		return fmt.Errorf("loading game state: %w", err)
	}

	e.state = harvest.NewGameState(e.now())
	if err := e.repo.SaveGameState(ctx, e.state); err != nil {
		return fmt.Errorf("saving initial state: %w", err)
	}
	e.logger.Info("initialized game state")
	return nil
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() *harvest.GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

func (e *Engine) Catalog() harvest.Catalog { return e.catalog }

// commit stamps, persists and broadcasts the current state. writes run
// before the aggregate snapshot is saved. Callers hold e.mu.
func (e *Engine) commit(ctx context.Context, op string, writes ...func(context.Context) error) *harvest.GameState {
	e.state.LastUpdate = e.now().UnixMilli()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	writes = append(writes, func(ctx context.Context) error {
		return e.repo.SaveGameState(ctx, e.state)
	})
	for _, w := range writes {
		if err := w(ctx); err != nil {
			e.logger.Error("persisting game state", "op", op, "error", err)
		}
	}

	snap := e.state.Clone()
	e.pub.Publish(broadcast.Event{Type: broadcast.EventState, State: snap})
	e.logger.Debug("committed", "op", op, "phase", snap.Phase, "scenario", snap.ScenarioIndex)
	return snap
}

func (e *Engine) saveTeam(t *harvest.TeamState) func(context.Context) error {
	return func(ctx context.Context) error { return e.repo.SaveTeam(ctx, t) }
}

func (e *Engine) team(id harvest.TeamID) (*harvest.TeamState, error) {
	t, ok := e.state.Teams[id]
	if !ok {
		return nil, ErrUnknownTeam
	}
	return t, nil
}
