// Package output persists locator lists and nutrition records to the local
// data directory.
package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/nutrition-scraper/internal/model"
)

// ErrInputMissing is returned when the locator list has not been collected.
var ErrInputMissing = errors.New("output: locator list not found")

// LocatorFile is the JSON array of product locators shared between the
// collect and scrape stages.
type LocatorFile struct {
	Path string
}

// Load reads the whole locator list.
func (f LocatorFile) Load() ([]model.Locator, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrapf(ErrInputMissing, "output: %s", f.Path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "output: read %s", f.Path)
	}

	var locs []model.Locator
	if err := json.Unmarshal(data, &locs); err != nil {
		return nil, eris.Wrapf(err, "output: decode %s", f.Path)
	}
	if locs == nil {
		locs = []model.Locator{}
	}
	return locs, nil
}

// Save replaces the locator list with locs.
func (f LocatorFile) Save(locs []model.Locator) error {
	if locs == nil {
		locs = []model.Locator{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(locs); err != nil {
		return eris.Wrap(err, "output: encode locators")
	}
	return writeFile(f.Path, buf.Bytes())
}

// writeFile replaces path with data, creating parent directories. The data
// is written to a sibling temp file first so readers never see a partial
// file.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "output: create dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return eris.Wrapf(err, "output: create temp for %s", path)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return eris.Wrapf(err, "output: write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "output: close %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "output: rename %s", path)
	}
	return nil
}
