package usecase

import (
	"fmt"
	"os"

	"github.com/RustedBytes/extract-frames/internal/domain/entity"
)

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: input video path does not exist: %s", entity.ErrInvalidInput, path)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: input video path is a directory: %s", entity.ErrInvalidInput, path)
	}
	return nil
}

func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: output frames path does not exist: %s", entity.ErrInvalidInput, path)
	}
	return nil
}
