package spaceeye

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type imageServer struct {
	*httptest.Server
	hits        atomic.Int32
	conditional atomic.Int32
}

func newImageServer(t *testing.T, body string) *imageServer {
	t.Helper()
	s := &imageServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		if r.Header.Get("If-None-Match") == `"img1"` {
			s.conditional.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("ETag", `"img1"`)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(s.Close)
	return s
}

func newTestImageStore(t *testing.T, srv *httptest.Server, maxBytes int64) (*ImageStore, *Store, *clockwork.FakeClock, *Metrics) {
	t.Helper()
	store := openTestStore(t)
	clock := clockwork.NewFakeClockAt(time.Unix(t0, 0))
	m := NewMetrics(prometheus.NewRegistry())
	imgs, err := NewImageStore(t.TempDir(), srv.Client(), store, maxBytes, clock, discardLogger(), m)
	require.NoError(t, err)
	return imgs, store, clock, m
}

func TestImageRef_FileName(t *testing.T) {
	ref := ImageRef{SatelliteID: 2, ViewID: 20, Source: ImageSource{ID: 200, URL: "https://x/fd/2k.png?v=3"}}
	assert.Equal(t, "2-20-200.png", ref.fileName())

	ref.Source.URL = "https://x/latest"
	assert.Equal(t, "2-20-200.jpg", ref.fileName())
}

func TestImageStore_Download(t *testing.T) {
	srv := newImageServer(t, "pixels")
	imgs, store, _, m := newTestImageStore(t, srv.Server, 0)
	ref := ImageRef{SatelliteID: 1, ViewID: 10, Source: ImageSource{ID: 100, URL: srv.URL + "/5k.jpg", UpdateInterval: 600}}

	path, err := imgs.Download(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(imgs.Dir(), "1-10-100.jpg"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(b))

	rec, ok := store.ImageRecord("1-10-100.jpg")
	require.True(t, ok)
	assert.Equal(t, `"img1"`, rec.ETag)
	assert.Equal(t, int64(6), rec.Size)
	assert.Equal(t, t0, rec.DownloadedAt)
	assert.Equal(t, 6.0, testutil.ToFloat64(m.ImageDownloadBytes))

	entries, err := os.ReadDir(imgs.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestImageStore_SkipsWithinUpdateInterval(t *testing.T) {
	srv := newImageServer(t, "pixels")
	imgs, store, clock, _ := newTestImageStore(t, srv.Server, 0)
	ref := ImageRef{SatelliteID: 1, ViewID: 10, Source: ImageSource{ID: 100, URL: srv.URL + "/5k.jpg", UpdateInterval: 600}}

	_, err := imgs.Download(context.Background(), ref)
	require.NoError(t, err)

	clock.Advance(599 * time.Second)
	_, err = imgs.Download(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, int32(1), srv.hits.Load())

	clock.Advance(time.Second)
	_, err = imgs.Download(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, int32(2), srv.hits.Load())
	assert.Equal(t, int32(1), srv.conditional.Load(), "revalidated with the stored ETag")

	rec, _ := store.ImageRecord("1-10-100.jpg")
	assert.Equal(t, t0+600, rec.DownloadedAt)
}

func TestImageStore_RedownloadsMissingFile(t *testing.T) {
	srv := newImageServer(t, "pixels")
	imgs, _, _, _ := newTestImageStore(t, srv.Server, 0)
	ref := ImageRef{SatelliteID: 1, ViewID: 10, Source: ImageSource{ID: 100, URL: srv.URL + "/5k.jpg", UpdateInterval: 600}}

	path, err := imgs.Download(context.Background(), ref)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	path, err = imgs.Download(context.Background(), ref)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, int32(0), srv.conditional.Load())
}

func TestImageStore_Errors(t *testing.T) {
	srv := newImageServer(t, "0123456789")

	imgs, store, _, _ := newTestImageStore(t, srv.Server, 0)
	_, err := imgs.Download(context.Background(), ImageRef{Source: ImageSource{ID: 1, URL: srv.URL + "/missing.jpg"}})
	assert.ErrorContains(t, err, "404")
	recs, _ := store.ImageRecords()
	assert.Empty(t, recs)

	small, _, _, _ := newTestImageStore(t, srv.Server, 4)
	_, err = small.Download(context.Background(), ImageRef{Source: ImageSource{ID: 2, URL: srv.URL + "/big.jpg"}})
	assert.ErrorContains(t, err, "larger than")
	entries, _ := os.ReadDir(small.Dir())
	assert.Empty(t, entries)
}
