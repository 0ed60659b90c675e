package storage

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ServerFile is a video found on disk that may or may not be in the catalog yet.
type ServerFile struct {
	Path     string    `json:"path"`
	Filename string    `json:"filename"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// ScanVideos walks root for files with video extensions, skipping skipDir,
// keeping names that contain search (case-insensitive), newest first.
func ScanVideos(ctx context.Context, root, skipDir, search string) ([]ServerFile, error) {
	skipAbs, _ := filepath.Abs(skipDir)
	search = strings.ToLower(strings.TrimSpace(search))

	var found []ServerFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if abs, _ := filepath.Abs(path); skipDir != "" && abs == skipAbs {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !IsVideoExtension(d.Name()) {
			return nil
		}
		if search != "" && !strings.Contains(strings.ToLower(d.Name()), search) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		found = append(found, ServerFile{
			Path:     path,
			Filename: d.Name(),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Modified.After(found[j].Modified) })
	return found, nil
}
