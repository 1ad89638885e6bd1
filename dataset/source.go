package dataset

import (
	"bytes"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// Source is a read-only, memory mapped, dataset file.
type Source struct {
	path string
	file *os.File
	data mmap.MMap
}

// OpenSource maps the file at path for reading. Call Close when done.
func OpenSource(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open source file %q", path)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "failed to stat source file %q", path)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, errors.Errorf("source %q is a directory", path)
	}
	s := &Source{path: path, file: f}
	// Empty files can't be mapped.
	if info.Size() > 0 {
		s.data, err = mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			_ = f.Close()
			return nil, errors.Wrapf(err, "failed to mmap %s", path)
		}
	}
	return s, nil
}

// Path returns the path the source was opened from.
func (s *Source) Path() string {
	return s.path
}

// Bytes returns the contents of the file. They are only valid until Close.
func (s *Source) Bytes() []byte {
	return s.data
}

// Reader returns a reader over the contents of the file.
func (s *Source) Reader() io.Reader {
	return bytes.NewReader(s.data)
}

// Close unmaps and closes the file.
func (s *Source) Close() error {
	var err error
	if s.data != nil {
		err = s.data.Unmap()
		s.data = nil
	}
	if closeErr := s.file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.Wrapf(err, "failed to close source %q", s.path)
	}
	return nil
}
