package spaceeye

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
)

// statsCollector tracks image download sizes for the watch loop summary.
type statsCollector struct {
	downloads  atomic.Uint64
	totalBytes atomic.Uint64
	minBytes   atomic.Uint64
	maxBytes   atomic.Uint64
}

func newStatsCollector() *statsCollector {
	s := &statsCollector{}
	s.minBytes.Store(math.MaxUint64)
	return s
}

func (s *statsCollector) Observe(size int64) {
	if size < 0 {
		size = 0
	}
	n := uint64(size)

	s.downloads.Add(1)
	s.totalBytes.Add(n)

	for {
		cur := s.minBytes.Load()
		if n >= cur || s.minBytes.CompareAndSwap(cur, n) {
			break
		}
	}
	for {
		cur := s.maxBytes.Load()
		if n <= cur || s.maxBytes.CompareAndSwap(cur, n) {
			break
		}
	}
}

type statsSnapshot struct {
	Downloads  uint64
	TotalBytes uint64
	MinBytes   uint64
	MaxBytes   uint64
	AvgBytes   uint64
}

func (s *statsCollector) Snapshot() statsSnapshot {
	count := s.downloads.Load()
	if count == 0 {
		return statsSnapshot{}
	}
	total := s.totalBytes.Load()
	return statsSnapshot{
		Downloads:  count,
		TotalBytes: total,
		MinBytes:   s.minBytes.Load(),
		MaxBytes:   s.maxBytes.Load(),
		AvgBytes:   total / count,
	}
}

func formatBytes(b uint64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case b < kb:
		return fmt.Sprintf("%db", b)
	case b < mb:
		return trimFloat(float64(b)/kb) + "kb"
	case b < gb:
		return trimFloat(float64(b)/mb) + "mb"
	}
	return trimFloat(float64(b)/gb) + "gb"
}

func trimFloat(f float64) string {
	return strings.TrimSuffix(fmt.Sprintf("%.1f", f), ".0")
}
