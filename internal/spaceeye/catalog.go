package spaceeye

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// DecodeCatalog parses and validates a catalog document.
func DecodeCatalog(b []byte) (Catalog, error) {
	var cat Catalog
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&cat); err != nil {
		return Catalog{}, err
	}
	if dec.More() {
		return Catalog{}, errors.New("trailing data after catalog document")
	}
	if err := cat.validate(); err != nil {
		return Catalog{}, err
	}
	return cat, nil
}

func (c *Catalog) validate() error {
	if c.Satellites == nil {
		return errors.New("satellites: missing")
	}
	for i, sat := range c.Satellites {
		for j, view := range sat.Views {
			for k, src := range view.ImageSources {
				if src.URL == "" {
					return fmt.Errorf("satellites[%d].views[%d].imageSources[%d].url: missing", i, j, k)
				}
				if !src.DefaultScaling.Valid() {
					return fmt.Errorf("satellites[%d].views[%d].imageSources[%d].defaultScaling: missing", i, j, k)
				}
			}
		}
	}
	return nil
}

// FindView looks up a view by satellite and view id. A zero id picks the
// first satellite or view in catalog order.
func (c *Catalog) FindView(satelliteID, viewID uint64) (Satellite, SatelliteView, error) {
	for _, sat := range c.Satellites {
		if satelliteID != 0 && sat.ID != satelliteID {
			continue
		}
		for _, view := range sat.Views {
			if viewID == 0 || view.ID == viewID {
				return sat, view, nil
			}
		}
		if satelliteID != 0 {
			break
		}
	}
	return Satellite{}, SatelliteView{}, fmt.Errorf("satellite %d view %d: %w", satelliteID, viewID, ErrViewNotFound)
}

// SelectImageSource picks the largest full-size source whose longest side
// is within maxDimension (0 means no limit). Thumbnails are only used when
// nothing else exists. When every source is too large the smallest one wins.
func SelectImageSource(view SatelliteView, maxDimension uint64) (ImageSource, error) {
	candidates := make([]ImageSource, 0, len(view.ImageSources))
	for _, src := range view.ImageSources {
		if !src.IsThumbnail {
			candidates = append(candidates, src)
		}
	}
	if len(candidates) == 0 {
		candidates = view.ImageSources
	}
	if len(candidates) == 0 {
		return ImageSource{}, fmt.Errorf("view %d: %w", view.ID, ErrNoImage)
	}

	best, smallest := -1, 0
	for i, src := range candidates {
		size := src.Dimensions.longest()
		if size < candidates[smallest].Dimensions.longest() {
			smallest = i
		}
		if maxDimension != 0 && size > maxDimension {
			continue
		}
		if best < 0 || size > candidates[best].Dimensions.longest() {
			best = i
		}
	}
	if best < 0 {
		return candidates[smallest], nil
	}
	return candidates[best], nil
}
