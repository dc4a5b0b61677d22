// Package bundle packs the CSV artifacts of an event into one ZIP
// archive, one file per timing point with a non-empty log.
package bundle

import (
	"archive/zip"
	"fmt"
	"io"
)

// File is one archive member.
type File struct {
	Name string
	Data []byte
}

// Write streams a ZIP containing the given files to w.
func Write(w io.Writer, files []File) error {
	zw := zip.NewWriter(w)
	for _, f := range files {
		member, err := zw.Create(f.Name)
		if err != nil {
			return fmt.Errorf("create archive member %s: %w", f.Name, err)
		}
		if _, err := member.Write(f.Data); err != nil {
			return fmt.Errorf("write archive member %s: %w", f.Name, err)
		}
	}
	return zw.Close()
}
