// Package keysdata reads the model's reference archives: a zip holding the
// keys workbook and a zip holding the village-grid raster. Either may be
// password protected.
package keysdata

import (
	"errors"
	"fmt"
	"io"

	"github.com/yeka/zip"
)

// ErrEmptyArchive is returned when an archive has no members.
var ErrEmptyArchive = errors.New("archive has no members")

// ReadFirstMember returns the contents of the first member of the zip at path.
func ReadFirstMember(path, password string) ([]byte, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	defer rc.Close()

	data, err := firstMember(&rc.Reader, password)
	if err != nil {
		return nil, fmt.Errorf("archive %s: %w", path, err)
	}
	return data, nil
}

func firstMember(r *zip.Reader, password string) ([]byte, error) {
	if len(r.File) == 0 {
		return nil, ErrEmptyArchive
	}
	f := r.File[0]
	if f.IsEncrypted() {
		f.SetPassword(password)
	}

	src, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open member %s: %w", f.Name, err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read member %s: %w", f.Name, err)
	}
	return data, nil
}
