// Package zip packs in-memory files into a zip archive.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"time"
)

type Entry struct {
	Filename string
	Data     []byte
	Modified time.Time
}

// Archive writes entries in order. Filenames must be unique.
func Archive(entries []Entry) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.Filename]; dup {
			return nil, fmt.Errorf("zip: duplicate entry %q", e.Filename)
		}
		seen[e.Filename] = struct{}{}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Filename, Method: zip.Deflate, Modified: e.Modified})
		if err != nil {
			return nil, fmt.Errorf("zip: create %s: %w", e.Filename, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, fmt.Errorf("zip: write %s: %w", e.Filename, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: close: %w", err)
	}
	return buf.Bytes(), nil
}
