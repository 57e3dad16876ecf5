package fetch

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
)

var zipMagic = []byte("PK\x03\x04")

// IsZip tells whether the payload is a zip archive, by magic bytes or by the
// declared content type.
func IsZip(p Payload) bool {
	return bytes.HasPrefix(p.Body, zipMagic) ||
		strings.Contains(strings.ToLower(p.ContentType), "zip")
}

// Unpack returns the delimited text carried by the payload: the first .csv
// entry of a zip archive, or the body itself.
func Unpack(p Payload) (io.ReadCloser, error) {
	if len(p.Body) == 0 {
		return nil, &PayloadError{Unit: p.Unit, Err: ErrEmptyPayload}
	}
	if !IsZip(p) {
		return io.NopCloser(bytes.NewReader(p.Body)), nil
	}

	archive, err := zip.NewReader(bytes.NewReader(p.Body), int64(len(p.Body)))
	if err != nil {
		return nil, &PayloadError{Unit: p.Unit, Err: fmt.Errorf("open zip: %w", err)}
	}
	for _, f := range archive.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, &PayloadError{Unit: p.Unit, Err: fmt.Errorf("open %s: %w", f.Name, err)}
		}
		return rc, nil
	}
	return nil, &PayloadError{Unit: p.Unit, Err: ErrNoTabularEntry}
}
