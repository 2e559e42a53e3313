package pager_test

import (
	"io"

	"github.com/dsnet/golib/memfile"

	"github.com/Batch-Cavendish/simple-db-demo/internal/pager"
)

// memPageFile adapts memfile.File (an in-memory ReadWriteSeeker) to
// pager.PageFile, so the buffer-pool and B+Tree suites never touch disk.
type memPageFile struct {
	f *memfile.File
}

func newMemPageFile() *memPageFile {
	return &memPageFile{f: memfile.New(nil)}
}

func (m *memPageFile) ReadAt(b []byte, off int64) (int, error)  { return m.f.ReadAt(b, off) }
func (m *memPageFile) WriteAt(b []byte, off int64) (int, error) { return m.f.WriteAt(b, off) }
func (m *memPageFile) Close() error                             { return m.f.Close() }

func (m *memPageFile) Size() (int64, error) {
	return m.f.Seek(0, io.SeekEnd)
}

func newTestPager(t interface{ Fatalf(string, ...interface{}) }) *pager.Pager {
	p, err := pager.OpenFile(newMemPageFile())
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	return p
}
