package spaceeye

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayRegistry_Resolve(t *testing.T) {
	svc := &fakeDisplayService{displays: []Display{
		{ExternalID: 7, Handle: 0xA},
		{ExternalID: 9, Handle: 0xB},
	}}
	r := NewDisplayRegistry(svc, nil)

	d, err := r.Resolve(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, DisplayHandle(0xB), d.Handle)

	_, err = r.Resolve(context.Background(), 3)
	require.ErrorIs(t, err, ErrDisplayNotFound)
	var de *DisplayError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, uint64(3), de.ID)
}

func TestDisplayRegistry_DuplicateIDsFirstWins(t *testing.T) {
	svc := &fakeDisplayService{displays: []Display{
		{ExternalID: 1, Handle: 0x10},
		{ExternalID: 1, Handle: 0x20},
	}}
	d, err := NewDisplayRegistry(svc, nil).Resolve(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, DisplayHandle(0x10), d.Handle)
}

func TestDisplayRegistry_NoDisplays(t *testing.T) {
	r := NewDisplayRegistry(&fakeDisplayService{}, nil)

	displays, err := r.Enumerate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, displays)

	_, err = r.Resolve(context.Background(), 1)
	assert.ErrorIs(t, err, ErrDisplayNotFound)
}

func TestDisplayRegistry_EnumerationFailure(t *testing.T) {
	r := NewDisplayRegistry(&fakeDisplayService{enumErr: ErrUnsupportedPlatform}, nil)
	_, err := r.Resolve(context.Background(), 1)
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
	assert.NotErrorIs(t, err, ErrDisplayNotFound)
}

func TestDisplayRegistry_ReenumeratesEveryCall(t *testing.T) {
	svc := &fakeDisplayService{displays: []Display{{ExternalID: 2, Handle: 0x1}}}
	r := NewDisplayRegistry(svc, nil)

	d, err := r.Resolve(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, DisplayHandle(0x1), d.Handle)

	svc.mu.Lock()
	svc.displays = []Display{{ExternalID: 2, Handle: 0x2}}
	svc.mu.Unlock()

	d, err = r.Resolve(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, DisplayHandle(0x2), d.Handle)
}

func TestWallpaperApplier_Apply(t *testing.T) {
	svc := &fakeDisplayService{}
	m := NewMetrics(prometheus.NewRegistry())
	a := NewWallpaperApplier(svc, m)

	path := filepath.Join(t.TempDir(), "earth.jpg")
	opts := RenderOptions{Scaling: ScaleNone, BackgroundColor: RGBA{A: 1}, AllowClipping: false}
	require.NoError(t, a.Apply(context.Background(), Display{ExternalID: 1, Handle: 0xB}, path, opts))

	calls := svc.setCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, DisplayHandle(0xB), calls[0].Handle)
	assert.True(t, strings.HasPrefix(calls[0].URL, "file://"))
	assert.True(t, strings.HasSuffix(calls[0].URL, "/earth.jpg"))
	assert.Equal(t, DesktopImageOptions{ScalingCode: 2, FillColor: [4]float64{0, 0, 0, 1}}, calls[0].Opts)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WallpaperApplies.WithLabelValues("ok")))
}

func TestWallpaperApplier_ServiceRejects(t *testing.T) {
	reason := errors.New("image could not be decoded")
	svc := &fakeDisplayService{setErr: reason}
	m := NewMetrics(prometheus.NewRegistry())
	a := NewWallpaperApplier(svc, m)

	err := a.Apply(context.Background(), Display{ExternalID: 4, Handle: 1}, "/nonexistent/x.jpg", DefaultRenderOptions())
	require.ErrorIs(t, err, reason)

	var ae *ApplyError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, uint64(4), ae.DisplayID)
	assert.Equal(t, "/nonexistent/x.jpg", ae.Path)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WallpaperApplies.WithLabelValues("error")))
}

func TestWallpaperApplier_InvalidOptionsNeverReachService(t *testing.T) {
	svc := &fakeDisplayService{}
	a := NewWallpaperApplier(svc, nil)

	opts := DefaultRenderOptions()
	opts.Scaling = 9
	err := a.Apply(context.Background(), Display{ExternalID: 1}, "x.jpg", opts)
	var ae *ApplyError
	assert.True(t, errors.As(err, &ae))

	opts = DefaultRenderOptions()
	opts.BackgroundColor = RGBA{R: math.NaN(), A: 1}
	err = a.Apply(context.Background(), Display{ExternalID: 1}, "x.jpg", opts)
	assert.True(t, errors.As(err, &ae))

	err = a.Apply(context.Background(), Display{ExternalID: 1}, "", DefaultRenderOptions())
	assert.True(t, errors.As(err, &ae))
	assert.Empty(t, svc.setCalls())
}
