//go:build darwin && cgo

package spaceeye

/*
#cgo CFLAGS: -x objective-c -fobjc-arc
#cgo LDFLAGS: -framework AppKit -framework Foundation
#include <stdlib.h>
#include <string.h>
#import <AppKit/AppKit.h>

static int se_screen_count(void) {
	@autoreleasepool {
		return (int)[[NSScreen screens] count];
	}
}

static unsigned int se_screen_number(int idx) {
	@autoreleasepool {
		NSArray<NSScreen *> *screens = [NSScreen screens];
		if (idx < 0 || idx >= (int)screens.count) {
			return 0;
		}
		NSNumber *n = screens[idx].deviceDescription[@"NSScreenNumber"];
		return n.unsignedIntValue;
	}
}

// Returns NULL on success, otherwise a malloc'd message the caller frees.
static char *se_set_desktop_image(int idx, unsigned int number, const char *url,
		long scaling, int clip, double r, double g, double b, double a) {
	@autoreleasepool {
		NSArray<NSScreen *> *screens = [NSScreen screens];
		if (idx < 0 || idx >= (int)screens.count) {
			return strdup("display handle is no longer valid");
		}
		NSScreen *screen = screens[idx];
		NSNumber *n = screen.deviceDescription[@"NSScreenNumber"];
		if (n.unsignedIntValue != number) {
			return strdup("display handle is no longer valid");
		}
		NSURL *u = [NSURL URLWithString:[NSString stringWithUTF8String:url]];
		if (u == nil) {
			return strdup("invalid image URL");
		}
		NSDictionary *opts = @{
			NSWorkspaceDesktopImageScalingKey: @(scaling),
			NSWorkspaceDesktopImageAllowClippingKey: @(clip != 0),
			NSWorkspaceDesktopImageFillColorKey: [NSColor colorWithSRGBRed:r green:g blue:b alpha:a],
		};
		NSError *err = nil;
		BOOL ok = [[NSWorkspace sharedWorkspace] setDesktopImageURL:u forScreen:screen options:opts error:&err];
		if (!ok) {
			if (err != nil) {
				return strdup(err.localizedDescription.UTF8String);
			}
			return strdup("setDesktopImageURL failed");
		}
		return NULL;
	}
}
*/
import "C"

import (
	"context"
	"errors"
	"unsafe"
)

// appKitDisplayService talks to NSScreen and NSWorkspace. Calls must come
// from the main thread. A handle packs the screen index with its
// NSScreenNumber so a reordered screen list is detected.
type appKitDisplayService struct{}

func NewPlatformDisplayService() DisplayService {
	return appKitDisplayService{}
}

func (appKitDisplayService) EnumerateDisplays(_ context.Context) ([]Display, error) {
	n := int(C.se_screen_count())
	out := make([]Display, 0, n)
	for i := 0; i < n; i++ {
		num := uint32(C.se_screen_number(C.int(i)))
		out = append(out, Display{
			ExternalID: uint64(num),
			Handle:     DisplayHandle(uint64(i)<<32 | uint64(num)),
		})
	}
	return out, nil
}

func (appKitDisplayService) SetDesktopImage(_ context.Context, h DisplayHandle, imageURL string, opts DesktopImageOptions) error {
	idx := int(uint64(h) >> 32)
	num := uint32(uint64(h) & 0xffffffff)

	curl := C.CString(imageURL)
	defer C.free(unsafe.Pointer(curl))

	clip := C.int(0)
	if opts.AllowClipping {
		clip = 1
	}
	fc := opts.FillColor
	msg := C.se_set_desktop_image(C.int(idx), C.uint(num), curl,
		C.long(opts.ScalingCode), clip,
		C.double(fc[0]), C.double(fc[1]), C.double(fc[2]), C.double(fc[3]))
	if msg != nil {
		defer C.free(unsafe.Pointer(msg))
		return errors.New(C.GoString(msg))
	}
	return nil
}
