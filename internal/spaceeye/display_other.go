//go:build !darwin || !cgo

package spaceeye

import "context"

type unsupportedDisplayService struct{}

func NewPlatformDisplayService() DisplayService {
	return unsupportedDisplayService{}
}

func (unsupportedDisplayService) EnumerateDisplays(context.Context) ([]Display, error) {
	return nil, ErrUnsupportedPlatform
}

func (unsupportedDisplayService) SetDesktopImage(context.Context, DisplayHandle, string, DesktopImageOptions) error {
	return ErrUnsupportedPlatform
}
