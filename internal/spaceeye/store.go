package spaceeye

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"sort"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	snapshotKey = "c:current"
	imagePrefix = "i:"
)

// ImageRecord describes an image already written to the image directory.
type ImageRecord struct {
	Name         string
	Path         string
	URL          string
	ETag         string
	Size         int64
	DownloadedAt int64 // unix seconds
}

// Store is the on-disk state kept in the application data directory: the
// last good catalog snapshot and the index of downloaded images.
type Store struct {
	db *leveldb.DB
}

func OpenStore(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open state %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) LoadSnapshot() (*CachedCatalog, bool, error) {
	b, err := s.db.Get([]byte(snapshotKey), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var snap CachedCatalog
	if err := decodeGob(b, &snap); err != nil {
		return nil, false, fmt.Errorf("decode catalog snapshot: %w", err)
	}
	// gob drops empty slices
	if snap.Catalog.Satellites == nil {
		snap.Catalog.Satellites = []Satellite{}
	}
	if snap.Catalog.DNSHTTPProbeOverride == nil {
		snap.Catalog.DNSHTTPProbeOverride = []string{}
	}
	return &snap, true, nil
}

func (s *Store) SaveSnapshot(snap *CachedCatalog) error {
	b, err := encodeGob(snap)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(snapshotKey), b, nil)
}

func (s *Store) ImageRecord(name string) (ImageRecord, bool) {
	b, err := s.db.Get([]byte(imagePrefix+name), nil)
	if err != nil {
		return ImageRecord{}, false
	}
	var rec ImageRecord
	if err := decodeGob(b, &rec); err != nil {
		return ImageRecord{}, false
	}
	return rec, true
}

func (s *Store) PutImageRecord(rec ImageRecord) error {
	b, err := encodeGob(rec)
	if err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	batch.Put([]byte(imagePrefix+rec.Name), b)
	return s.db.Write(batch, nil)
}

// ImageRecords lists every recorded image, sorted by name.
func (s *Store) ImageRecords() ([]ImageRecord, error) {
	it := s.db.NewIterator(util.BytesPrefix([]byte(imagePrefix)), nil)
	defer it.Release()

	var out []ImageRecord
	for it.Next() {
		var rec ImageRecord
		if err := decodeGob(it.Value(), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(b []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
}
