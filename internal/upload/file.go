// Package upload validates user-selected document images and manages the
// revocable preview handles that let a presentation layer display them
// before submission.
package upload

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/domain"
)

// File is a candidate image as the user selected it. Name, MIMEType and Size
// are declared metadata; validation never reads the content.
type File struct {
	Name     string
	MIMEType string
	Size     int64

	open func() (io.ReadCloser, error)
}

// NewFile wraps in-memory content with its declared metadata.
func NewFile(name, mimeType string, data []byte) *File {
	return &File{
		Name:     name,
		MIMEType: mimeType,
		Size:     int64(len(data)),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// NewFileFromOpener builds a File whose content is produced lazily by open.
func NewFileFromOpener(name, mimeType string, size int64, open func() (io.ReadCloser, error)) *File {
	return &File{Name: name, MIMEType: mimeType, Size: size, open: open}
}

// OpenPath describes a file on disk. The declared MIME type comes from the
// extension, the way a browser file picker reports it.
func OpenPath(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.IOError(fmt.Sprintf("file does not exist: %s", path), err)
		}
		return nil, domain.IOError(fmt.Sprintf("cannot access file: %s", path), err)
	}
	if info.IsDir() {
		return nil, domain.IOError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	return &File{
		Name:     filepath.Base(path),
		MIMEType: MIMETypeByName(path),
		Size:     info.Size(),
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// MIMETypeByName returns the media type registered for the file extension,
// without parameters, or "application/octet-stream" if none is known.
func MIMETypeByName(name string) string {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if t == "" {
		return "application/octet-stream"
	}
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}

// Open returns a reader over the file content.
func (f *File) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, domain.IOError(fmt.Sprintf("file %q has no content", f.Name), nil)
	}
	return f.open()
}
