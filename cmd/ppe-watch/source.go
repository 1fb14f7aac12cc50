package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var errNoSnapshot = errors.New("no snapshot in directory")

var snapshotExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// dirSource yields the most recently modified snapshot in a directory.
type dirSource struct {
	dir string
}

func newDirSource(dir string) *dirSource {
	return &dirSource{dir: dir}
}

func (s *dirSource) Capture(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var (
		latest   string
		latestAt time.Time
	)
	for _, e := range entries {
		if e.IsDir() || !snapshotExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestAt) {
			latest, latestAt = e.Name(), info.ModTime()
		}
	}
	if latest == "" {
		return nil, errNoSnapshot
	}

	return os.ReadFile(filepath.Join(s.dir, latest))
}
