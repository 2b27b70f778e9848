package mapstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyva-rover/roverbrain/internal/occupancy"
)

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"Living Room":       "living_room",
		"  Attic!! ":         "attic",
		"Office-2_B":         "office-2_b",
		"###":                "unnamed",
		"":                   "unnamed",
		"Kitchen (north)":    "kitchen_north",
	}
	for in, want := range cases {
		assert.Equal(t, want, Sanitize(in), "input %q", in)
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	g := occupancy.New(4, 0.5)
	g.UpdateFromScan(0, 0, 0, []occupancy.ScanPoint{{AngleDeg: 0, Distance: 1.0}})

	meta, err := store.Save(g, "Test Room")
	require.NoError(t, err)
	assert.Equal(t, "Test Room", meta.Name)
	assert.Equal(t, "test_room.json", meta.Filename)

	loaded, err := store.Load("Test Room")
	require.NoError(t, err)
	assert.Equal(t, g.ScanCount(), loaded.ScanCount())
	assert.Equal(t, g.Resolution(), loaded.Resolution())
}

func TestStore_LoadMissingReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	_, err = store.Load("nope")
	assert.Error(t, err)
}

func TestStore_ExistsAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	g := occupancy.New(4, 0.5)
	_, err = store.Save(g, "room-a")
	require.NoError(t, err)

	assert.True(t, store.Exists("room-a"))
	deleted, err := store.Delete("room-a")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, store.Exists("room-a"))

	deletedAgain, err := store.Delete("room-a")
	require.NoError(t, err)
	assert.False(t, deletedAgain)
}

func TestStore_ListSortedNewestFirst(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)
	store.now = stepClock(100)

	g := occupancy.New(4, 0.5)
	_, err = store.Save(g, "first")
	require.NoError(t, err)
	_, err = store.Save(g, "second")
	require.NoError(t, err)

	maps, err := store.List()
	require.NoError(t, err)
	require.Len(t, maps, 2)
	assert.Equal(t, "second", maps[0].Name)
	assert.Equal(t, "first", maps[1].Name)
}

func TestStore_Rename(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	g := occupancy.New(4, 0.5)
	_, err = store.Save(g, "old-name")
	require.NoError(t, err)

	require.NoError(t, store.Rename("old-name", "new-name"))
	assert.False(t, store.Exists("old-name"))
	assert.True(t, store.Exists("new-name"))

	maps, err := store.List()
	require.NoError(t, err)
	require.Len(t, maps, 1)
	assert.Equal(t, "new-name", maps[0].Name)
}

// stepClock returns a fake Store.now that advances by one second on each
// call, starting at base, so List ordering tests are deterministic.
func stepClock(base float64) func() float64 {
	t := base
	return func() float64 {
		t++
		return t
	}
}
