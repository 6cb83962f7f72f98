package storage

import (
	"compress/gzip"
	"encoding/gob"
	"errors"
	"io/fs"
	"log"
	"os"
	"path"

	"github.com/matst80/slask-browser/pkg/common/jsoncompat"
	"github.com/matst80/slask-browser/pkg/types"
)

const recordsFile = "records-v1.gz"
const recordsJsonFile = "records.json"

// DiskStorage persists the record collection under a base directory, gzipped
// gob snapshots with a plain JSON ingest fallback.
type DiskStorage struct {
	BasePath string
}

func NewDiskStorage(basePath string) *DiskStorage {
	return &DiskStorage{BasePath: basePath}
}

func (d *DiskStorage) GetFileName(name string) (string, error) {
	if err := os.MkdirAll(d.BasePath, 0755); err != nil {
		return "", err
	}
	return path.Join(d.BasePath, name), nil
}

// SaveRecords writes the whole collection as a gzipped gob snapshot.
func (d *DiskStorage) SaveRecords(records []types.Record) error {
	filename, err := d.GetFileName(recordsFile)
	if err != nil {
		return err
	}
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	zw := gzip.NewWriter(f)
	defer zw.Close()
	return gob.NewEncoder(zw).Encode(records)
}

// LoadRecords reads the snapshot, falling back to records.json when no
// snapshot exists yet. A missing file is an empty collection, not an error.
func (d *DiskStorage) LoadRecords() ([]types.Record, error) {
	filename, err := d.GetFileName(recordsFile)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return d.loadRecordsJson()
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	var records []types.Record
	if err := gob.NewDecoder(zr).Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}

func (d *DiskStorage) loadRecordsJson() ([]types.Record, error) {
	var records []types.Record
	err := d.LoadJson(&records, recordsJsonFile)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("no record data found in %s, starting empty", d.BasePath)
		return nil, nil
	}
	return records, err
}

func (d *DiskStorage) LoadJson(data any, filename string) error {
	name, err := d.GetFileName(filename)
	if err != nil {
		return err
	}
	body, err := os.ReadFile(name)
	if err != nil {
		return err
	}
	return jsoncompat.Unmarshal(body, data)
}
