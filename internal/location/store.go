package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/i474232898/littleweather/internal/store"
	"github.com/i474232898/littleweather/internal/weather"
)

// StorageKey is the fixed blob name the location state is persisted under.
const StorageKey = "savedLocations"

// persisted is the on-disk shape of the store.
type persisted struct {
	CurrentLocation *weather.Location  `json:"currentLocation"`
	SavedLocations  []weather.Location `json:"savedLocations"`
}

// Store owns the current location and the saved locations list.
// Every mutation rewrites the whole record to the blob store before the new
// state becomes visible, so readers never observe a state that failed to
// persist.
type Store struct {
	blobs weather.BlobStore

	mu      sync.RWMutex
	current *weather.Location
	saved   []weather.Location

	subMu       sync.Mutex
	subscribers []func(*weather.Location)
}

// NewStore creates an empty Store backed by blobs. Call Init to load state.
func NewStore(blobs weather.BlobStore) *Store {
	return &Store{blobs: blobs}
}

// Init loads the persisted record. A missing record leaves the store empty;
// an unreadable one is logged and ignored.
func (s *Store) Init(ctx context.Context) error {
	data, err := s.blobs.Get(ctx, StorageKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("location store: load: %w", err)
	}

	var rec persisted
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Warn().Err(err).Msg("location store: ignoring unreadable persisted state")
		return nil
	}

	s.mu.Lock()
	s.current = rec.CurrentLocation
	s.saved = rec.SavedLocations
	s.mu.Unlock()

	log.Info().Int("saved", len(rec.SavedLocations)).Bool("hasCurrent", rec.CurrentLocation != nil).Msg("location store loaded")
	return nil
}

// Current returns a copy of the current location, or nil.
func (s *Store) Current() *weather.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneLocation(s.current)
}

// Saved returns a copy of the saved locations in insertion order.
func (s *Store) Saved() []weather.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]weather.Location{}, s.saved...)
}

// Subscribe registers fn to be called with the new current location after
// every successful change of it.
func (s *Store) Subscribe(fn func(*weather.Location)) {
	s.subMu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.subMu.Unlock()
}

// SetCurrent replaces the current location wholesale.
func (s *Store) SetCurrent(ctx context.Context, loc weather.Location) error {
	return s.mutate(ctx, func(cur *weather.Location, saved []weather.Location) (*weather.Location, []weather.Location) {
		return &loc, saved
	})
}

// AddSaved upserts loc by rounded-coordinate key: an existing entry for the
// same place is replaced in place, otherwise loc is appended.
func (s *Store) AddSaved(ctx context.Context, loc weather.Location) error {
	log.Debug().Str("key", loc.Key()).Msg("location store: saving location")
	return s.mutate(ctx, func(cur *weather.Location, saved []weather.Location) (*weather.Location, []weather.Location) {
		return cur, upsert(saved, loc)
	})
}

// RemoveSaved removes the entry sharing loc's key. Removing an absent
// location is a no-op.
func (s *Store) RemoveSaved(ctx context.Context, loc weather.Location) error {
	log.Debug().Str("key", loc.Key()).Msg("location store: removing location")
	return s.mutate(ctx, func(cur *weather.Location, saved []weather.Location) (*weather.Location, []weather.Location) {
		return cur, remove(saved, loc)
	})
}

// Adopt makes loc current and upserts it into saved locations in a single write.
func (s *Store) Adopt(ctx context.Context, loc weather.Location) error {
	return s.mutate(ctx, func(cur *weather.Location, saved []weather.Location) (*weather.Location, []weather.Location) {
		return &loc, upsert(saved, loc)
	})
}

type mutation func(cur *weather.Location, saved []weather.Location) (*weather.Location, []weather.Location)

func (s *Store) mutate(ctx context.Context, fn mutation) error {
	s.mu.Lock()

	prev := s.current
	nextCur, nextSaved := fn(cloneLocation(s.current), append([]weather.Location{}, s.saved...))

	data, err := json.Marshal(persisted{CurrentLocation: nextCur, SavedLocations: nextSaved})
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("location store: encode: %w", err)
	}
	if err := s.blobs.Put(ctx, StorageKey, data); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("location store: persist: %w", err)
	}

	s.current = nextCur
	s.saved = nextSaved
	s.mu.Unlock()

	if !sameCurrent(prev, nextCur) {
		s.notify(cloneLocation(nextCur))
	}
	return nil
}

func (s *Store) notify(cur *weather.Location) {
	s.subMu.Lock()
	subs := append([]func(*weather.Location){}, s.subscribers...)
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(cloneLocation(cur))
	}
}

func upsert(saved []weather.Location, loc weather.Location) []weather.Location {
	for i := range saved {
		if saved[i].SamePlace(loc) {
			saved[i] = loc
			return saved
		}
	}
	return append(saved, loc)
}

func remove(saved []weather.Location, loc weather.Location) []weather.Location {
	out := saved[:0]
	for _, l := range saved {
		if !l.SamePlace(loc) {
			out = append(out, l)
		}
	}
	return out
}

func sameCurrent(a, b *weather.Location) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func cloneLocation(l *weather.Location) *weather.Location {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}
