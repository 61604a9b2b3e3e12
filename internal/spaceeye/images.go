package spaceeye

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/jonboulle/clockwork"
)

const imagesDirName = "images"

// ImageIndex remembers which images are already on disk.
type ImageIndex interface {
	ImageRecord(name string) (ImageRecord, bool)
	PutImageRecord(rec ImageRecord) error
}

// ImageRef names one image source of one satellite view.
type ImageRef struct {
	SatelliteID uint64
	ViewID      uint64
	Source      ImageSource
}

func (r ImageRef) fileName() string {
	ext := ".jpg"
	if u, err := url.Parse(r.Source.URL); err == nil {
		if e := path.Ext(u.Path); e != "" {
			ext = e
		}
	}
	return fmt.Sprintf("%d-%d-%d%s", r.SatelliteID, r.ViewID, r.Source.ID, ext)
}

// ImageStore downloads imagery into <root>/images.
type ImageStore struct {
	dir        string
	httpClient *http.Client
	clock      clockwork.Clock
	index      ImageIndex
	maxBytes   int64
	logger     *slog.Logger
	metrics    *Metrics
	stats      *statsCollector
}

// NewImageStore creates the image directory if needed. maxBytes caps a
// single download; zero means no cap.
func NewImageStore(root string, httpClient *http.Client, index ImageIndex, maxBytes int64, clock clockwork.Clock, logger *slog.Logger, metrics *Metrics) (*ImageStore, error) {
	dir := filepath.Join(root, imagesDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image directory: %w", err)
	}
	return &ImageStore{
		dir:        dir,
		httpClient: httpClient,
		clock:      clock,
		index:      index,
		maxBytes:   maxBytes,
		logger:     logger,
		metrics:    metrics,
		stats:      newStatsCollector(),
	}, nil
}

func (s *ImageStore) Dir() string { return s.dir }

// Download returns the local path of ref, fetching it unless the copy on
// disk is younger than the source's update interval.
func (s *ImageStore) Download(ctx context.Context, ref ImageRef) (string, error) {
	name := ref.fileName()
	dst := filepath.Join(s.dir, name)
	now := s.clock.Now().Unix()

	prev, havePrev := s.index.ImageRecord(name)
	if havePrev {
		if _, err := os.Stat(dst); err != nil {
			havePrev = false
		}
	}
	if havePrev && prev.URL == ref.Source.URL && now-prev.DownloadedAt < int64(ref.Source.UpdateInterval) {
		s.logger.Debug("image still current", "image", name, "age_s", now-prev.DownloadedAt)
		return dst, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.Source.URL, nil)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", ref.Source.URL, err)
	}
	if havePrev && prev.ETag != "" && prev.URL == ref.Source.URL {
		req.Header.Set("If-None-Match", prev.ETag)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", ref.Source.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && havePrev {
		prev.DownloadedAt = now
		if err := s.index.PutImageRecord(prev); err != nil {
			return "", err
		}
		return dst, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("download %s: unexpected status %s", ref.Source.URL, resp.Status)
	}

	n, err := s.writeAtomic(dst, resp.Body)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", ref.Source.URL, err)
	}
	s.metrics.imageDownloaded(n)
	s.stats.Observe(n)
	s.logger.Info("image downloaded", "image", name, "size", formatBytes(uint64(n)))

	rec := ImageRecord{
		Name:         name,
		Path:         dst,
		URL:          ref.Source.URL,
		ETag:         resp.Header.Get("ETag"),
		Size:         n,
		DownloadedAt: now,
	}
	if err := s.index.PutImageRecord(rec); err != nil {
		return "", err
	}
	return dst, nil
}

func (s *ImageStore) writeAtomic(dst string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(s.dir, ".download-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		return 0, fmt.Errorf("image larger than %s", formatBytes(uint64(s.maxBytes)))
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return 0, err
	}
	return n, nil
}
