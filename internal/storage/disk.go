package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hyperjump/kubun/internal/models"
)

// DiskUsage sums the size of each path (a file, or a directory walked recursively).
// Empty and missing paths are skipped. It returns per-path usage and the total.
func DiskUsage(paths ...string) ([]models.PathUsage, int64, error) {
	var out []models.PathUsage
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		n, err := pathSize(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		out = append(out, models.PathUsage{Path: p, Bytes: n})
		total += n
	}
	return out, total, nil
}

func pathSize(p string) (int64, error) {
	info, err := os.Stat(p)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	var total int64
	err = filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		total += fi.Size()
		return nil
	})
	return total, err
}
