package pager

import (
	"io"
	"os"

	"github.com/ncw/directio"
)

// PageFile is the backing store a Pager reads and writes whole pages
// through. Production use opens the database file with O_DIRECT (see
// OpenPageFile); tests substitute an in-memory file (see pager_test.go)
// so the buffer-pool and B+Tree suites never touch disk.
type PageFile interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
	// Size returns the current file size in bytes.
	Size() (int64, error)
}

// osPageFile wraps an *os.File, opened with O_DIRECT where the host
// filesystem supports it.
type osPageFile struct {
	f *os.File
}

// OpenPageFile opens (or creates) path for page-aligned direct I/O. The
// Pager already maintains its own page cache (the buffer pool), so routing
// reads/writes through the OS page cache as well would double-buffer every
// page; O_DIRECT avoids that. Not every filesystem honours O_DIRECT (tmpfs,
// some overlay/network mounts), so a rejected open falls back to a normal
// buffered file — matching how production pagers treat O_DIRECT as an
// optimization, not a correctness requirement.
func OpenPageFile(path string) (PageFile, error) {
	f, err := directio.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
		if err != nil {
			return nil, err
		}
	}
	return &osPageFile{f: f}, nil
}

func (p *osPageFile) ReadAt(b []byte, off int64) (int, error)  { return p.f.ReadAt(b, off) }
func (p *osPageFile) WriteAt(b []byte, off int64) (int, error) { return p.f.WriteAt(b, off) }
func (p *osPageFile) Close() error                             { return p.f.Close() }

func (p *osPageFile) Size() (int64, error) {
	fi, err := p.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// AlignedPageBuffer returns a zeroed, page-aligned PageSize buffer suitable
// for O_DIRECT reads and writes.
func AlignedPageBuffer() []byte {
	return directio.AlignedBlock(PageSize)
}
