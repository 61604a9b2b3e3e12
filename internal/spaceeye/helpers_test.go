package spaceeye

import (
	"context"
	"sync"
)

type setCall struct {
	Handle DisplayHandle
	URL    string
	Opts   DesktopImageOptions
}

type fakeDisplayService struct {
	mu       sync.Mutex
	displays []Display
	enumErr  error
	setErr   error
	calls    []setCall
	onSet    func(setCall)
}

func (f *fakeDisplayService) EnumerateDisplays(context.Context) ([]Display, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.enumErr != nil {
		return nil, f.enumErr
	}
	return append([]Display(nil), f.displays...), nil
}

func (f *fakeDisplayService) SetDesktopImage(_ context.Context, h DisplayHandle, imageURL string, opts DesktopImageOptions) error {
	f.mu.Lock()
	call := setCall{Handle: h, URL: imageURL, Opts: opts}
	err := f.setErr
	if err == nil {
		f.calls = append(f.calls, call)
	}
	onSet := f.onSet
	f.mu.Unlock()
	if err == nil && onSet != nil {
		onSet(call)
	}
	return err
}

func (f *fakeDisplayService) setCalls() []setCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]setCall(nil), f.calls...)
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, prev *CachedCatalog) (*CachedCatalog, error)
}

func (f *fakeFetcher) Fetch(ctx context.Context, prev *CachedCatalog) (*CachedCatalog, error) {
	f.mu.Lock()
	f.calls++
	fn := f.fn
	f.mu.Unlock()
	return fn(ctx, prev)
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

const scenarioJSON = `{"dnsHttpProbeOverride":[],"satellites":[{"id":1,"name":"GOES-16","views":[{"id":10,"name":"CONUS","imageSources":[{"id":100,"url":"https://x/5k.jpg","estimatedSize":"5k","updateInterval":600,"dimensions":[5000,5000],"defaultScaling":"fit"}]}]}]}`

// sampleCatalog has two satellites, each with one view of two sources.
func sampleCatalog() Catalog {
	return Catalog{
		DNSHTTPProbeOverride: []string{"dns.example.com"},
		Satellites: []Satellite{
			{
				ID:   1,
				Name: "GOES-16",
				Views: []SatelliteView{{
					ID:   10,
					Name: "CONUS",
					ImageSources: []ImageSource{
						{ID: 100, URL: "https://img.example.com/goes16/conus/5k.jpg", EstimatedSize: "5k", UpdateInterval: 600, Dimensions: Dimensions{5000, 3000}, DefaultScaling: ScaleProportionalFit},
						{ID: 101, URL: "https://img.example.com/goes16/conus/thumb.jpg", EstimatedSize: "thumb", UpdateInterval: 600, Dimensions: Dimensions{500, 300}, IsThumbnail: true, DefaultScaling: ScaleProportionalFit},
					},
				}},
			},
			{
				ID:   2,
				Name: "Himawari-8",
				Views: []SatelliteView{{
					ID:   20,
					Name: "Full Disk",
					ImageSources: []ImageSource{
						{ID: 200, URL: "https://img.example.com/himawari/fd/2k.png", EstimatedSize: "2k", UpdateInterval: 1200, Dimensions: Dimensions{2000, 2000}, DefaultScaling: ScaleNone},
						{ID: 201, URL: "https://img.example.com/himawari/fd/8k.png", EstimatedSize: "8k", UpdateInterval: 1200, Dimensions: Dimensions{8000, 8000}, DefaultScaling: ScaleAxesIndependent},
					},
				}},
			},
		},
	}
}

func snapshotAt(downloadedAt int64, etag string) *CachedCatalog {
	return &CachedCatalog{Catalog: sampleCatalog(), ETag: etag, DownloadedAt: downloadedAt}
}
