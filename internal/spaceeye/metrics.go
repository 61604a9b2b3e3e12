package spaceeye

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters exported with --metrics-file. A nil *Metrics
// records nothing.
type Metrics struct {
	// CatalogRequests counts cache reads by result (hit, refresh, error).
	CatalogRequests *prometheus.CounterVec
	// CatalogFetches counts network fetches by result.
	CatalogFetches       *prometheus.CounterVec
	CatalogFetchDuration prometheus.Histogram
	WallpaperApplies     *prometheus.CounterVec
	ImageDownloadBytes   prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CatalogRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spaceeye_catalog_requests_total",
				Help: "Catalog cache reads by result",
			},
			[]string{"result"},
		),
		CatalogFetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spaceeye_catalog_fetch_total",
				Help: "Catalog fetch attempts by result",
			},
			[]string{"result"},
		),
		CatalogFetchDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "spaceeye_catalog_fetch_duration_seconds",
				Help:    "Catalog fetch duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		WallpaperApplies: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spaceeye_wallpaper_apply_total",
				Help: "Wallpaper applications by result",
			},
			[]string{"result"},
		),
		ImageDownloadBytes: f.NewCounter(
			prometheus.CounterOpts{
				Name: "spaceeye_image_download_bytes_total",
				Help: "Bytes of imagery written to the image directory",
			},
		),
	}
}

func (m *Metrics) catalogRequest(result string) {
	if m != nil {
		m.CatalogRequests.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) catalogFetch(result string, seconds float64) {
	if m != nil {
		m.CatalogFetches.WithLabelValues(result).Inc()
		m.CatalogFetchDuration.Observe(seconds)
	}
}

func (m *Metrics) wallpaperApply(result string) {
	if m != nil {
		m.WallpaperApplies.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) imageDownloaded(n int64) {
	if m != nil {
		m.ImageDownloadBytes.Add(float64(n))
	}
}

// WriteMetrics dumps everything gathered by g to path in the text format.
func WriteMetrics(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
