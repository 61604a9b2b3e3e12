package spaceeye

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
)

// WallpaperApplier sets a desktop image through the display service. It
// does not inspect the image file; the display service decides whether the
// path is usable.
type WallpaperApplier struct {
	svc     DisplayService
	metrics *Metrics
}

func NewWallpaperApplier(svc DisplayService, metrics *Metrics) *WallpaperApplier {
	return &WallpaperApplier{svc: svc, metrics: metrics}
}

func (a *WallpaperApplier) Apply(ctx context.Context, d Display, imagePath string, opts RenderOptions) error {
	fail := func(err error) error {
		a.metrics.wallpaperApply("error")
		return &ApplyError{DisplayID: d.ExternalID, Path: imagePath, Err: err}
	}

	bundle, err := opts.desktopOptions()
	if err != nil {
		return fail(err)
	}
	u, err := fileURL(imagePath)
	if err != nil {
		return fail(err)
	}
	if err := a.svc.SetDesktopImage(ctx, d.Handle, u, bundle); err != nil {
		return fail(err)
	}
	a.metrics.wallpaperApply("ok")
	return nil
}

func fileURL(path string) (string, error) {
	if path == "" {
		return "", errors.New("empty image path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}
