// Package repository maps game entities onto blob store paths:
//
//	admin/admin.json
//	game/state.json
//	teams/{A|B|C}/data.json
//	teams/{A|B|C}/scenarios/scenario-{n}.json
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/playperu/harvest/internal/blob"
	"github.com/playperu/harvest/internal/harvest"
)

var (
	// ErrNotFound is returned when the requested document does not exist.
	ErrNotFound = blob.ErrNotFound
	// ErrCorrupt is returned when a stored document cannot be decoded.
	ErrCorrupt = errors.New("corrupt document")
)

const (
	adminKey = "admin/admin.json"
	stateKey = "game/state.json"

	gamePrefix  = "game/"
	teamsPrefix = "teams/"
)

func teamKey(id harvest.TeamID) string {
	return teamsPrefix + string(id) + "/data.json"
}

func answerKey(id harvest.TeamID, scenarioIndex int) string {
	return fmt.Sprintf("%s%s/scenarios/scenario-%d.json", teamsPrefix, id, scenarioIndex)
}

// AdminCredentials is the single admin account. Password holds either the
// plain password or a bcrypt hash.
type AdminCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Repository struct {
	store blob.Store
}

func New(store blob.Store) *Repository {
	return &Repository{store: store}
}

func (r *Repository) get(ctx context.Context, key string, dest any) error {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrCorrupt, key, err)
	}
	return nil
}

func (r *Repository) put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return r.store.Put(ctx, key, data)
}

func (r *Repository) Admin(ctx context.Context) (AdminCredentials, error) {
	var c AdminCredentials
	err := r.get(ctx, adminKey, &c)
	return c, err
}

func (r *Repository) SetAdmin(ctx context.Context, c AdminCredentials) error {
	return r.put(ctx, adminKey, c)
}

// GameState loads and normalizes the stored snapshot.
func (r *Repository) GameState(ctx context.Context) (*harvest.GameState, error) {
	var gs harvest.GameState
	if err := r.get(ctx, stateKey, &gs); err != nil {
		return nil, err
	}
	gs.Normalize()
	return &gs, nil
}

func (r *Repository) SaveGameState(ctx context.Context, gs *harvest.GameState) error {
	return r.put(ctx, stateKey, gs)
}

func (r *Repository) Team(ctx context.Context, id harvest.TeamID) (*harvest.TeamState, error) {
	var t harvest.TeamState
	if err := r.get(ctx, teamKey(id), &t); err != nil {
		return nil, err
	}
	t.ID = id
	if t.Answers == nil {
		t.Answers = map[int]harvest.Answer{}
	}
	return &t, nil
}

func (r *Repository) SaveTeam(ctx context.Context, t *harvest.TeamState) error {
	return r.put(ctx, teamKey(t.ID), t)
}

// SaveAnswer writes the answer record for one scenario.
func (r *Repository) SaveAnswer(ctx context.Context, id harvest.TeamID, scenarioIndex int, a harvest.Answer) error {
	return r.put(ctx, answerKey(id, scenarioIndex), a)
}

// Reset deletes every game and team document. Admin credentials are kept.
func (r *Repository) Reset(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, prefix := range []string{gamePrefix, teamsPrefix} {
		g.Go(func() error {
			return r.deletePrefix(gctx, prefix)
		})
	}
	return g.Wait()
}

func (r *Repository) deletePrefix(ctx context.Context, prefix string) error {
	keys, err := r.store.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("listing %s: %w", prefix, err)
	}
	for _, k := range keys {
		if err := r.store.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}
