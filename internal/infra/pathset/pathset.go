// Package pathset discovers and removes groups of files by glob pattern.
package pathset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/RustedBytes/extract-frames/internal/domain/entity"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Discover expands a glob pattern. Matches that can no longer be stat'ed are
// omitted. A pattern that matches nothing yields an empty, non-nil slice.
func Discover(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", entity.ErrInvalidPattern, pattern, err)
	}

	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, err := os.Stat(m); err != nil {
			continue
		}
		paths = append(paths, m)
	}
	return paths, nil
}

// DiscoverAll runs Discover for every pattern and concatenates the results.
// Invalid patterns are skipped and reported in the returned error.
func DiscoverAll(patterns ...string) ([]string, error) {
	var (
		all  []string
		errs error
	)
	for _, p := range patterns {
		paths, err := Discover(p)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		all = append(all, paths...)
	}
	return all, errs
}

// BulkDelete removes every path, continuing past failures.
func BulkDelete(paths []string, logger *zap.Logger) entity.CleanupBatch {
	batch := entity.CleanupBatch{Attempted: len(paths)}
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			logger.Error("failed to remove file", zap.String("path", p), zap.Error(err))
			batch.Failed = append(batch.Failed, entity.PathFailure{
				Path: p,
				Err:  fmt.Errorf("%w: remove %s: %v", entity.ErrIO, p, err),
			})
			continue
		}
		logger.Debug("removed file", zap.String("path", p))
	}
	return batch
}

// RemoveTree deletes a directory and everything below it. Unlike
// os.RemoveAll, a missing directory is an error.
func RemoveTree(path string) error {
	if _, err := os.Lstat(path); err != nil {
		return fmt.Errorf("%w: remove folder %s: %v", entity.ErrIO, path, err)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("%w: remove folder %s: %v", entity.ErrIO, path, err)
	}
	return nil
}
