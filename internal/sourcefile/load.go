package sourcefile

import (
	"context"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"leadgate/internal/common/errors"
	"leadgate/internal/models"
)

// Load reads the files at paths concurrently and returns them in the same
// order. The first read failure is returned as a FILE_READ_FAILED error.
func Load(ctx context.Context, paths []string) ([]models.SourceFile, error) {
	files := make([]models.SourceFile, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return errors.NewFileReadFailedError(path, err)
			}
			files[i] = models.SourceFile{Name: filepath.Base(path), Data: data}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}
