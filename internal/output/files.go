package output

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ErrDirMissing is returned when the data directory does not exist.
var ErrDirMissing = errors.New("output: data directory not found")

// generatedExts are the extensions of files the scraper writes.
var generatedExts = map[string]bool{
	".json": true,
	".csv":  true,
	".xlsx": true,
}

// FileInfo describes one generated data file.
type FileInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// ListFiles returns the generated files directly under dir, newest name
// first.
func ListFiles(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrapf(ErrDirMissing, "output: %s", dir)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "output: read dir %s", dir)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || !generatedExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, eris.Wrapf(err, "output: stat %s", e.Name())
		}
		files = append(files, FileInfo{
			Name:    e.Name(),
			Path:    filepath.Join(dir, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path > files[j].Path })
	return files, nil
}

// Clean removes every generated file under dir and returns how many were
// removed.
func Clean(dir string) (int, error) {
	files, err := ListFiles(dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, f := range files {
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, eris.Wrapf(err, "output: remove %s", f.Path)
		}
		removed++
	}
	return removed, nil
}
