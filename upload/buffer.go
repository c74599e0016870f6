// Package upload holds the files a user has chosen for a claim until the
// claim is submitted.
package upload

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how much of a file is read to detect its content type.
const sniffLen = 3072

// DropAllowedTypes are the content types accepted through drag and drop.
var DropAllowedTypes = map[string]bool{
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"application/pdf": true,
}

// File is a user-chosen document waiting to be uploaded.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// IsPDF reports whether the file is a PDF rather than an image.
func (f File) IsPDF() bool {
	return strings.Contains(f.ContentType, "pdf")
}

// FromPath builds a File backed by a file on disk. The content type is
// detected from the file contents.
func FromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to detect type of %s: %w", path, err)
	}

	return File{
		Name:        filepath.Base(path),
		ContentType: baseType(mtype.String()),
		Size:        info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// FromBytes builds an in-memory File. An empty contentType is left empty so
// that the drop path can sniff it.
func FromBytes(name, contentType string, data []byte) File {
	return File{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Buffer accumulates files in the order they were chosen. It is safe for
// concurrent use.
type Buffer struct {
	mu    sync.Mutex
	files []File
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// AddPicked appends files chosen through an explicit picker. No type
// filtering is applied; the picker is trusted to constrain the choice.
func (b *Buffer) AddPicked(files ...File) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files = append(b.files, files...)
}

// AddDropped appends the dropped files whose content type is in
// DropAllowedTypes and silently discards the rest. It returns how many
// files were accepted.
func (b *Buffer) AddDropped(files ...File) int {
	accepted := make([]File, 0, len(files))
	for _, f := range files {
		if f.ContentType == "" {
			f.ContentType = sniff(f)
		}
		if DropAllowedTypes[baseType(f.ContentType)] {
			accepted = append(accepted, f)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.files = append(b.files, accepted...)
	return len(accepted)
}

// Remove drops the file at index.
func (b *Buffer) Remove(index int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.files) {
		return fmt.Errorf("no file at position %d", index)
	}
	b.files = append(b.files[:index:index], b.files[index+1:]...)
	return nil
}

// Files returns a copy of the buffered files in order.
func (b *Buffer) Files() []File {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]File, len(b.files))
	copy(out, b.files)
	return out
}

// Len returns the number of buffered files.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.files)
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files = nil
}

func sniff(f File) string {
	if f.Open == nil {
		return ""
	}
	rc, err := f.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()

	buf := make([]byte, sniffLen)
	n, _ := io.ReadFull(rc, buf)
	return baseType(mimetype.Detect(buf[:n]).String())
}

// baseType strips parameters such as "; charset=utf-8".
func baseType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
