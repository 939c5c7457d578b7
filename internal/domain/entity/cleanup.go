package entity

import "go.uber.org/multierr"

// PathFailure records one path that a bulk operation could not process.
type PathFailure struct {
	Path string
	Err  error
}

// CleanupBatch is the outcome of a best-effort bulk delete.
type CleanupBatch struct {
	Attempted int
	Failed    []PathFailure
}

func (b CleanupBatch) Removed() int {
	return b.Attempted - len(b.Failed)
}

// Err combines every failure, or returns nil when all removals succeeded.
func (b CleanupBatch) Err() error {
	var err error
	for _, f := range b.Failed {
		err = multierr.Append(err, f.Err)
	}
	return err
}
