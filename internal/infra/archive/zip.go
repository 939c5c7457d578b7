// Package archive bundles sampled frame files into a single zip archive.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

type ZipArchiver struct{}

func NewZipArchiver() *ZipArchiver {
	return &ZipArchiver{}
}

// CreateArchive writes filePaths into a flat zip at outputPath and returns the
// archive size. PNG data is already compressed, so entries are stored.
func (z *ZipArchiver) CreateArchive(ctx context.Context, filePaths []string, outputPath string) (int64, error) {
	out, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, fp := range filePaths {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return 0, err
		}
		if err := addFile(zw, fp); err != nil {
			zw.Close()
			return 0, fmt.Errorf("add %s to archive: %w", fp, err)
		}
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("finalize archive: %w", err)
	}

	info, err := out.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat archive: %w", err)
	}
	return info.Size(), nil
}

func addFile(zw *zip.Writer, filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.Base(filename)
	header.Method = zip.Store

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
