package location

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/littleweather/internal/store"
	"github.com/i474232898/littleweather/internal/weather"
)

var (
	austin = weather.Location{Lat: 30.27, Lon: -97.74, LatRaw: 30.27, LonRaw: -97.74, Name: "Austin", State: "TX", Country: "US"}
	denver = weather.Location{Lat: 39.74, Lon: -104.99, Name: "Denver", State: "CO", Country: "US"}
)

type failingBlobs struct {
	*store.MemoryStore
	failPut bool
}

func (f *failingBlobs) Put(ctx context.Context, key string, value []byte) error {
	if f.failPut {
		return errors.New("disk full")
	}
	return f.MemoryStore.Put(ctx, key, value)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(store.NewMemoryStore())
	require.NoError(t, s.Init(context.Background()))
	return s
}

func TestStore_InitEmpty(t *testing.T) {
	s := newTestStore(t)

	assert.Nil(t, s.Current())
	assert.Empty(t, s.Saved())
}

func TestStore_AddSavedUpsertsByKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.AddSaved(ctx, austin))
	require.NoError(t, s.AddSaved(ctx, denver))

	renamed := austin
	renamed.Lat, renamed.Lon = 30.2711, -97.7437
	renamed.Name = "Austin City"
	require.NoError(t, s.AddSaved(ctx, renamed))

	saved := s.Saved()
	require.Len(t, saved, 2)
	assert.Equal(t, "Austin City", saved[0].Name, "replaced entry keeps its position")
	assert.Equal(t, "Denver", saved[1].Name)
}

func TestStore_RemoveSaved(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.AddSaved(ctx, austin))
	require.NoError(t, s.AddSaved(ctx, denver))

	require.NoError(t, s.RemoveSaved(ctx, weather.Location{Lat: 51.5, Lon: -0.12}))
	assert.Len(t, s.Saved(), 2)

	require.NoError(t, s.RemoveSaved(ctx, weather.Location{Lat: 30.271, Lon: -97.739}))
	saved := s.Saved()
	require.Len(t, saved, 1)
	assert.Equal(t, "Denver", saved[0].Name)
}

func TestStore_AdoptPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	blobs := store.NewMemoryStore()

	first := NewStore(blobs)
	require.NoError(t, first.Init(ctx))
	require.NoError(t, first.AddSaved(ctx, denver))
	require.NoError(t, first.Adopt(ctx, austin))

	second := NewStore(blobs)
	require.NoError(t, second.Init(ctx))

	require.NotNil(t, second.Current())
	assert.Equal(t, austin, *second.Current())
	assert.Equal(t, []weather.Location{denver, austin}, second.Saved())
}

func TestStore_SetCurrentDoesNotTouchSaved(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SetCurrent(ctx, denver))
	assert.Equal(t, "Denver", s.Current().Name)
	assert.Empty(t, s.Saved())
}

func TestStore_FailedWriteKeepsState(t *testing.T) {
	ctx := context.Background()
	blobs := &failingBlobs{MemoryStore: store.NewMemoryStore()}
	s := NewStore(blobs)
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Adopt(ctx, austin))

	var notified int
	s.Subscribe(func(*weather.Location) { notified++ })

	blobs.failPut = true
	assert.Error(t, s.Adopt(ctx, denver))
	assert.Error(t, s.AddSaved(ctx, denver))

	assert.Equal(t, austin, *s.Current())
	assert.Equal(t, []weather.Location{austin}, s.Saved())
	assert.Zero(t, notified)
}

func TestStore_UnreadableStateIsIgnored(t *testing.T) {
	ctx := context.Background()
	blobs := store.NewMemoryStore()
	require.NoError(t, blobs.Put(ctx, StorageKey, []byte("{broken")))

	s := NewStore(blobs)
	require.NoError(t, s.Init(ctx))
	assert.Nil(t, s.Current())
	assert.Empty(t, s.Saved())
}

func TestStore_SubscribeOnCurrentChange(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var seen []*weather.Location
	s.Subscribe(func(loc *weather.Location) { seen = append(seen, loc) })

	require.NoError(t, s.Adopt(ctx, austin))
	require.NoError(t, s.AddSaved(ctx, denver))
	require.NoError(t, s.Adopt(ctx, austin))
	require.NoError(t, s.SetCurrent(ctx, denver))

	require.Len(t, seen, 2)
	assert.Equal(t, "Austin", seen[0].Name)
	assert.Equal(t, "Denver", seen[1].Name)
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Adopt(ctx, austin))

	s.Current().Name = "changed"
	s.Saved()[0].Name = "changed"

	assert.Equal(t, "Austin", s.Current().Name)
	assert.Equal(t, "Austin", s.Saved()[0].Name)
}
