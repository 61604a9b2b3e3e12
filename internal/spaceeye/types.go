package spaceeye

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FreshnessWindow is how long a fetched catalog is served without refetching.
const FreshnessWindow = 900 * time.Second

type ImageSource struct {
	ID             uint64      `json:"id"`
	URL            string      `json:"url"`
	EstimatedSize  string      `json:"estimatedSize"`
	UpdateInterval uint64      `json:"updateInterval"` // seconds
	Dimensions     Dimensions  `json:"dimensions"`
	IsThumbnail    bool        `json:"isThumbnail,omitempty"`
	DefaultScaling ScalingMode `json:"defaultScaling"`
}

type SatelliteView struct {
	ID           uint64        `json:"id"`
	Name         string        `json:"name"`
	ImageSources []ImageSource `json:"imageSources"`
}

type Satellite struct {
	ID    uint64          `json:"id"`
	Name  string          `json:"name"`
	Views []SatelliteView `json:"views"`
}

// Catalog is the remote document listing satellites, their views and the
// image variants that can be downloaded for each view.
type Catalog struct {
	DNSHTTPProbeOverride []string    `json:"dnsHttpProbeOverride"`
	Satellites           []Satellite `json:"satellites"`
}

// Every catalog key is required except isThumbnail. A missing key or a JSON
// null is rejected rather than decoded as a zero value.

func (s *ImageSource) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID             *uint64      `json:"id"`
		URL            *string      `json:"url"`
		EstimatedSize  *string      `json:"estimatedSize"`
		UpdateInterval *uint64      `json:"updateInterval"`
		Dimensions     *Dimensions  `json:"dimensions"`
		IsThumbnail    bool         `json:"isThumbnail"`
		DefaultScaling *ScalingMode `json:"defaultScaling"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch {
	case raw.ID == nil:
		return missingKey("imageSource", "id")
	case raw.URL == nil:
		return missingKey("imageSource", "url")
	case raw.EstimatedSize == nil:
		return missingKey("imageSource", "estimatedSize")
	case raw.UpdateInterval == nil:
		return missingKey("imageSource", "updateInterval")
	case raw.Dimensions == nil:
		return missingKey("imageSource", "dimensions")
	case raw.DefaultScaling == nil:
		return missingKey("imageSource", "defaultScaling")
	}
	*s = ImageSource{
		ID:             *raw.ID,
		URL:            *raw.URL,
		EstimatedSize:  *raw.EstimatedSize,
		UpdateInterval: *raw.UpdateInterval,
		Dimensions:     *raw.Dimensions,
		IsThumbnail:    raw.IsThumbnail,
		DefaultScaling: *raw.DefaultScaling,
	}
	return nil
}

func (v *SatelliteView) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID           *uint64        `json:"id"`
		Name         *string        `json:"name"`
		ImageSources *[]ImageSource `json:"imageSources"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch {
	case raw.ID == nil:
		return missingKey("view", "id")
	case raw.Name == nil:
		return missingKey("view", "name")
	case raw.ImageSources == nil:
		return missingKey("view", "imageSources")
	}
	*v = SatelliteView{ID: *raw.ID, Name: *raw.Name, ImageSources: *raw.ImageSources}
	return nil
}

func (s *Satellite) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID    *uint64          `json:"id"`
		Name  *string          `json:"name"`
		Views *[]SatelliteView `json:"views"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch {
	case raw.ID == nil:
		return missingKey("satellite", "id")
	case raw.Name == nil:
		return missingKey("satellite", "name")
	case raw.Views == nil:
		return missingKey("satellite", "views")
	}
	*s = Satellite{ID: *raw.ID, Name: *raw.Name, Views: *raw.Views}
	return nil
}

func (c *Catalog) UnmarshalJSON(b []byte) error {
	var raw struct {
		DNSHTTPProbeOverride *[]string    `json:"dnsHttpProbeOverride"`
		Satellites           *[]Satellite `json:"satellites"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch {
	case raw.DNSHTTPProbeOverride == nil:
		return missingKey("catalog", "dnsHttpProbeOverride")
	case raw.Satellites == nil:
		return missingKey("catalog", "satellites")
	}
	*c = Catalog{DNSHTTPProbeOverride: *raw.DNSHTTPProbeOverride, Satellites: *raw.Satellites}
	return nil
}

func missingKey(object, key string) error {
	return fmt.Errorf("%s: missing %q", object, key)
}

// CachedCatalog is one immutable fetched copy of the catalog. It is replaced
// wholesale on refresh and never edited in place.
type CachedCatalog struct {
	Catalog      Catalog
	ETag         string
	DownloadedAt int64 // unix seconds
}

// FreshAt reports whether the snapshot may still be served at now.
func (c *CachedCatalog) FreshAt(now time.Time) bool {
	return now.Unix()-c.DownloadedAt < int64(FreshnessWindow/time.Second)
}

// Dimensions is a width/height pair, encoded as a two-element JSON array.
type Dimensions [2]uint64

func (d Dimensions) Width() uint64  { return d[0] }
func (d Dimensions) Height() uint64 { return d[1] }

func (d Dimensions) longest() uint64 {
	if d[0] > d[1] {
		return d[0]
	}
	return d[1]
}

func (d *Dimensions) UnmarshalJSON(b []byte) error {
	var vals []uint64
	if err := json.Unmarshal(b, &vals); err != nil {
		return err
	}
	if len(vals) != 2 {
		return fmt.Errorf("dimensions: want 2 values, got %d", len(vals))
	}
	d[0], d[1] = vals[0], vals[1]
	return nil
}

// ScalingMode selects how the display service scales an image onto a
// display. The numeric values are the platform codes and must not change.
type ScalingMode int

const (
	ScaleAxesIndependent ScalingMode = 1
	ScaleNone            ScalingMode = 2
	ScaleProportionalFit ScalingMode = 3
)

var scalingNames = map[ScalingMode]string{
	ScaleAxesIndependent: "stretch",
	ScaleNone:            "center",
	ScaleProportionalFit: "fit",
}

// ParseScalingMode accepts the catalog names ("stretch", "center", "fit") and
// the long aliases used on the command line.
func ParseScalingMode(s string) (ScalingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stretch", "axes-independent":
		return ScaleAxesIndependent, nil
	case "center", "none":
		return ScaleNone, nil
	case "fit", "proportional-fit":
		return ScaleProportionalFit, nil
	}
	return 0, fmt.Errorf("unknown scaling mode %q", s)
}

func (m ScalingMode) Valid() bool {
	_, ok := scalingNames[m]
	return ok
}

// Code returns the display service code for m.
func (m ScalingMode) Code() (int, error) {
	switch m {
	case ScaleAxesIndependent:
		return 1, nil
	case ScaleNone:
		return 2, nil
	case ScaleProportionalFit:
		return 3, nil
	}
	return 0, fmt.Errorf("invalid scaling mode %d", int(m))
}

func (m ScalingMode) String() string {
	if name, ok := scalingNames[m]; ok {
		return name
	}
	return fmt.Sprintf("ScalingMode(%d)", int(m))
}

func (m ScalingMode) MarshalText() ([]byte, error) {
	name, ok := scalingNames[m]
	if !ok {
		return nil, fmt.Errorf("invalid scaling mode %d", int(m))
	}
	return []byte(name), nil
}

func (m *ScalingMode) UnmarshalText(b []byte) error {
	v, err := ParseScalingMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// DisplayHandle is an opaque platform reference to a display. It is only
// meaningful for the enumeration that produced it.
type DisplayHandle uintptr

type Display struct {
	ExternalID uint64
	Handle     DisplayHandle
}
