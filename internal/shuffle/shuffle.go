// Package shuffle relabels the healthy trucks of the platoon and persists
// the resulting neighbor map.
package shuffle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/zkplatoon/platoon/internal/fleet"
	"github.com/zkplatoon/platoon/internal/neighbors"
	"github.com/zkplatoon/platoon/pkg/core"
)

// ErrPersist marks a shuffle whose relabel was applied but whose
// neighbor map could not be stored.
var ErrPersist = errors.New("persist neighbors")

// Result describes one shuffle.
type Result struct {
	Before    []string
	After     []string
	Neighbors core.NeighborMap
	Digest    string
}

// Option configures a Shuffler.
type Option func(*Shuffler)

// WithRand sets the randomness source.
func WithRand(r *rand.Rand) Option {
	return func(s *Shuffler) {
		s.rng = r
	}
}

// WithNeighborFunc sets how the persisted neighbor map is computed.
func WithNeighborFunc(f neighbors.Func) Option {
	return func(s *Shuffler) {
		s.neighbors = f
	}
}

// WithKey sets the key the neighbor map is stored under.
func WithKey(key string) Option {
	return func(s *Shuffler) {
		s.key = key
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Shuffler) {
		s.log = l
	}
}

// Shuffler relabels healthy trucks, one permutation per call.
type Shuffler struct {
	store     neighbors.Store
	neighbors neighbors.Func
	key       string
	log       *slog.Logger

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// New creates a shuffler persisting into store. A nil store disables persistence.
func New(store neighbors.Store, opts ...Option) *Shuffler {
	s := &Shuffler{
		store:     store,
		neighbors: neighbors.Carry,
		key:       neighbors.DefaultKey,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s
}

// Permute returns a uniformly random permutation of labels.
// The input slice is not modified.
func (s *Shuffler) Permute(labels []string) []string {
	out := append([]string(nil), labels...)
	s.mu.Lock()
	s.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	s.mu.Unlock()
	return out
}

// Relabel permutes the labels of the healthy trucks inside an open
// registry transaction. The i-th healthy truck in iteration order gets
// the i-th shuffled label; faulty trucks keep theirs.
func (s *Shuffler) Relabel(tx *fleet.Tx) (before, after []string, err error) {
	healthy := tx.NonFaulty()
	before = make([]string, len(healthy))
	for i, e := range healthy {
		before[i] = e.Label
	}

	after = s.Permute(before)
	if err := tx.RenameNonFaulty(after); err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

// Persist runs the read-modify-write of the stored neighbor map.
// A missing or unreadable snapshot counts as no prior state.
func (s *Shuffler) Persist(ctx context.Context, entities []core.Entity) (core.NeighborMap, string, error) {
	var prev core.NeighborMap
	if s.store != nil {
		loaded, err := s.store.Load(ctx, s.key)
		switch {
		case err == nil:
			prev = loaded
		case errors.Is(err, neighbors.ErrNotFound):
		default:
			s.log.Warn("Ignoring unreadable neighbor snapshot", "key", s.key, "error", err)
		}
	}
	if prev == nil {
		prev = core.NeighborMap{}
	}

	next := s.neighbors(prev, entities)
	if next == nil {
		next = core.NeighborMap{}
	}
	digest, err := neighbors.Digest(next)
	if err != nil {
		return nil, "", err
	}

	if s.store != nil {
		if err := s.store.Save(ctx, s.key, next); err != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrPersist, err)
		}
	}
	return next, digest, nil
}

// Load returns the currently stored neighbor map.
func (s *Shuffler) Load(ctx context.Context) (core.NeighborMap, error) {
	if s.store == nil {
		return nil, neighbors.ErrNotFound
	}
	return s.store.Load(ctx, s.key)
}

// Shuffle relabels reg atomically and then persists the neighbor map.
func (s *Shuffler) Shuffle(ctx context.Context, reg *fleet.Registry) (Result, error) {
	var res Result
	var entities []core.Entity

	err := reg.Update(func(tx *fleet.Tx) error {
		var err error
		res.Before, res.After, err = s.Relabel(tx)
		if err != nil {
			return err
		}
		entities = tx.Snapshot()
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	res.Neighbors, res.Digest, err = s.Persist(ctx, entities)
	if err != nil {
		return res, err
	}

	s.log.Debug("Shuffled platoon", "before", res.Before, "after", res.After, "digest", res.Digest)
	return res, nil
}
