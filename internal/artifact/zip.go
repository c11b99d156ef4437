package artifact

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
)

// WriteZip streams job artifacts into a zip archive. A nil name list
// selects every artifact of the job; List returns names sorted, so
// frames land in sequence order.
func WriteZip(ctx context.Context, store Store, jobID string, names []string, w io.Writer) error {
	if names == nil {
		var err error
		names, err = store.List(ctx, jobID)
		if err != nil {
			return fmt.Errorf("list artifacts: %w", err)
		}
	}
	if len(names) == 0 {
		return ErrNotFound
	}

	zw := zip.NewWriter(w)
	for _, name := range names {
		data, err := store.Read(ctx, jobID, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		f, err := zw.Create(name)
		if err != nil {
			return err
		}
		if _, err := f.Write(data); err != nil {
			return err
		}
	}
	return zw.Close()
}
