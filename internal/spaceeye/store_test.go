package spaceeye

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Snapshot(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.LoadSnapshot()
	require.NoError(t, err)
	assert.False(t, ok)

	want := snapshotAt(t0, `"abc"`)
	require.NoError(t, s.SaveSnapshot(want))

	got, ok, err := s.LoadSnapshot()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestStore_SnapshotKeepsEmptyLists(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveSnapshot(&CachedCatalog{
		Catalog:      Catalog{DNSHTTPProbeOverride: []string{}, Satellites: []Satellite{}},
		ETag:         "e",
		DownloadedAt: t0,
	}))

	got, ok, err := s.LoadSnapshot()
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotNil(t, got.Catalog.Satellites)
	assert.NotNil(t, got.Catalog.DNSHTTPProbeOverride)
	assert.NoError(t, got.Catalog.validate())
}

func TestStore_SnapshotSurvivesReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	s, err := OpenStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.SaveSnapshot(snapshotAt(t0, `"x"`)))
	require.NoError(t, s.Close())

	s, err = OpenStore(dir)
	require.NoError(t, err)
	defer s.Close()
	got, ok, err := s.LoadSnapshot()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"x"`, got.ETag)
}

func TestStore_ImageRecords(t *testing.T) {
	s := openTestStore(t)

	_, ok := s.ImageRecord("missing")
	assert.False(t, ok)

	for _, name := range []string{"2-20-200.png", "1-10-100.jpg"} {
		require.NoError(t, s.PutImageRecord(ImageRecord{Name: name, Path: "/tmp/" + name, Size: 10, DownloadedAt: t0}))
	}
	require.NoError(t, s.SaveSnapshot(snapshotAt(t0, "e")))

	rec, ok := s.ImageRecord("1-10-100.jpg")
	require.True(t, ok)
	assert.Equal(t, "/tmp/1-10-100.jpg", rec.Path)

	recs, err := s.ImageRecords()
	require.NoError(t, err)
	require.Len(t, recs, 2, "the catalog snapshot is not an image")
	assert.Equal(t, "1-10-100.jpg", recs[0].Name)
	assert.Equal(t, "2-20-200.png", recs[1].Name)

	require.NoError(t, s.PutImageRecord(ImageRecord{Name: "1-10-100.jpg", Size: 99}))
	rec, _ = s.ImageRecord("1-10-100.jpg")
	assert.Equal(t, int64(99), rec.Size)
}
