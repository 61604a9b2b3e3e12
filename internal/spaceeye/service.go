package spaceeye

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
)

const stateDirName = "state"

// Service wires the catalog cache, display registry, image store and
// wallpaper applier together. Every failure aborts the operation and is
// returned to the caller.
type Service struct {
	clock  clockwork.Clock
	logger *slog.Logger

	store    *Store
	cache    *CatalogCache
	displays *DisplayRegistry
	applier  *WallpaperApplier
	images   *ImageStore

	failLog *rateLimitedLogger
}

type serviceOptions struct {
	httpClient *http.Client
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *Metrics
	fetcher    Fetcher
}

type ServiceOption func(*serviceOptions)

func WithHTTPClient(c *http.Client) ServiceOption {
	return func(o *serviceOptions) { o.httpClient = c }
}

func WithClock(c clockwork.Clock) ServiceOption {
	return func(o *serviceOptions) { o.clock = c }
}

func WithLogger(l *slog.Logger) ServiceOption {
	return func(o *serviceOptions) { o.logger = l }
}

func WithMetrics(m *Metrics) ServiceOption {
	return func(o *serviceOptions) { o.metrics = m }
}

// WithFetcher replaces the HTTP catalog fetcher.
func WithFetcher(f Fetcher) ServiceOption {
	return func(o *serviceOptions) { o.fetcher = f }
}

func NewService(cfg Config, svc DisplayService, opts ...ServiceOption) (*Service, error) {
	o := serviceOptions{
		clock:  clockwork.NewRealClock(),
		logger: discardLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	catalogClient, imageClient := o.httpClient, o.httpClient
	if o.httpClient == nil {
		catalogClient = &http.Client{Timeout: cfg.CatalogTimeout()}
		imageClient = &http.Client{}
	}

	if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	store, err := OpenStore(filepath.Join(cfg.Storage.Dir, stateDirName))
	if err != nil {
		return nil, err
	}

	fetcher := o.fetcher
	if fetcher == nil {
		fetcher = NewCatalogFetcher(cfg.Catalog.URL, catalogClient, o.clock, o.metrics)
	}
	cache := NewCatalogCache(fetcher,
		WithCacheClock(o.clock),
		WithSnapshotStore(store),
		WithCacheLogger(o.logger),
		WithCacheMetrics(o.metrics),
	)
	if err := cache.Restore(); err != nil {
		o.logger.Warn("restore catalog", "error", err)
	}

	images, err := NewImageStore(cfg.Storage.Dir, imageClient, store, cfg.MaxDownloadBytes(), o.clock, o.logger, o.metrics)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &Service{
		clock:    o.clock,
		logger:   o.logger,
		store:    store,
		cache:    cache,
		displays: NewDisplayRegistry(svc, o.logger),
		applier:  NewWallpaperApplier(svc, o.metrics),
		images:   images,
		failLog:  newRateLimitedLogger(o.logger, o.clock, 5*time.Minute),
	}, nil
}

func (s *Service) Close() error {
	return s.store.Close()
}

func (s *Service) Displays(ctx context.Context) ([]Display, error) {
	return s.displays.Enumerate(ctx)
}

func (s *Service) Catalog(ctx context.Context) (*CachedCatalog, error) {
	return s.cache.Current(ctx)
}

func (s *Service) Images() ([]ImageRecord, error) {
	return s.store.ImageRecords()
}

// ApplyFile sets an image that is already on disk as the wallpaper of the
// display with the given external id.
func (s *Service) ApplyFile(ctx context.Context, displayID uint64, path string, opts RenderOptions) error {
	d, err := s.displays.Resolve(ctx, displayID)
	if err != nil {
		return err
	}
	if err := s.applier.Apply(ctx, d, path, opts); err != nil {
		return err
	}
	s.logger.Info("wallpaper set", "display", d.ExternalID, "image", path)
	return nil
}

// UpdateRequest selects a catalog view and how to show it. Zero satellite
// or view ids pick the first one in the catalog; a zero Render.Scaling
// uses the image source's default.
type UpdateRequest struct {
	DisplayID    uint64
	SatelliteID  uint64
	ViewID       uint64
	MaxDimension uint64
	Render       RenderOptions
}

type UpdateResult struct {
	Display   Display
	Satellite Satellite
	View      SatelliteView
	Source    ImageSource
	ImagePath string
}

// Update resolves the display, reads the catalog, downloads the selected
// view's image and applies it.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (UpdateResult, error) {
	d, err := s.displays.Resolve(ctx, req.DisplayID)
	if err != nil {
		return UpdateResult{}, err
	}
	snap, err := s.cache.Current(ctx)
	if err != nil {
		return UpdateResult{}, err
	}
	sat, view, err := snap.Catalog.FindView(req.SatelliteID, req.ViewID)
	if err != nil {
		return UpdateResult{}, err
	}
	src, err := SelectImageSource(view, req.MaxDimension)
	if err != nil {
		return UpdateResult{}, err
	}
	path, err := s.images.Download(ctx, ImageRef{SatelliteID: sat.ID, ViewID: view.ID, Source: src})
	if err != nil {
		return UpdateResult{}, err
	}

	opts := req.Render
	if opts.Scaling == 0 {
		opts.Scaling = src.DefaultScaling
	}
	if err := s.applier.Apply(ctx, d, path, opts); err != nil {
		return UpdateResult{}, err
	}
	return UpdateResult{Display: d, Satellite: sat, View: view, Source: src, ImagePath: path}, nil
}

// Watch runs Update immediately and then every interval until ctx is done.
// next is consulted before each run so configuration changes apply to the
// following update. Failures are logged and do not stop the loop.
func (s *Service) Watch(ctx context.Context, every time.Duration, next func() UpdateRequest) error {
	t := s.clock.NewTicker(every)
	defer t.Stop()

	for {
		s.watchOnce(ctx, next())
		select {
		case <-ctx.Done():
			return nil
		case <-t.Chan():
		}
	}
}

func (s *Service) watchOnce(ctx context.Context, req UpdateRequest) {
	res, err := s.Update(ctx, req)
	if err != nil {
		if ctx.Err() == nil {
			s.failLog.Warn("update failed", "error", err)
		}
		return
	}
	st := s.images.stats.Snapshot()
	s.logger.Info("wallpaper updated",
		"display", res.Display.ExternalID,
		"satellite", res.Satellite.Name,
		"view", res.View.Name,
		"image", res.ImagePath,
		"downloads", st.Downloads,
		"download_avg", formatBytes(st.AvgBytes),
		"download_max", formatBytes(st.MaxBytes),
	)
}
