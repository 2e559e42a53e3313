package pager

// ───────────────────────────────────────────────────────────────────────────
// Buffer pool / Pager
// ───────────────────────────────────────────────────────────────────────────
//
// The Pager presents the backing file as an addressable array of PageSize
// pages with a bounded resident working set. It is the only
// component that touches the file. Every Get pins a frame; callers must
// Unpin before returning control to the statement boundary — Table.Close
// and every exported operation in this module hold that discipline so a
// caller never retains a slice into a frame across an eviction of that
// frame.

type frame struct {
	buf      []byte
	resident bool
	lastUsed uint64
	dirty    bool
	pinCount int
}

// Pager owns the backing file and the in-memory frame slots.
type Pager struct {
	file     PageFile
	frames   [TableMaxPages]frame
	numPages uint32
	resident int // count of resident frames, for the MaxPagesInMemory cap
	timer    uint64
}

// Open opens (or creates) path for page-based access. The file length,
// rounded down to whole pages, determines the initial page count.
func Open(path string) (*Pager, error) {
	f, err := OpenPageFile(path)
	if err != nil {
		return nil, newErr(ErrIO, "pager.Open", err)
	}
	return OpenFile(f)
}

// OpenFile wraps an already-open PageFile (used directly by tests against
// an in-memory backing store).
func OpenFile(f PageFile) (*Pager, error) {
	size, err := f.Size()
	if err != nil {
		f.Close()
		return nil, newErr(ErrIO, "pager.Open", err)
	}
	return &Pager{
		file:     f,
		numPages: uint32(size / PageSize),
	}, nil
}

// NumPages returns the current high-water mark of allocated pages.
func (p *Pager) NumPages() uint32 { return p.numPages }

// Get returns the frame buffer for pageNum, faulting it in from disk (or
// zero-initializing it, if pageNum is beyond the current end of file) as
// needed. The returned slice aliases the resident frame and is only valid
// until the caller calls Unpin and some later Get could evict it; the
// frame is pinned on return and the caller must Unpin exactly once per Get.
func (p *Pager) Get(pageNum uint32) ([]byte, error) {
	if pageNum >= TableMaxPages {
		return nil, newErr(ErrIO, "pager.Get", nil)
	}
	p.timer++
	fr := &p.frames[pageNum]

	if !fr.resident {
		if p.resident >= MaxPagesInMemory {
			victim, ok := p.selectVictim()
			if !ok {
				return nil, newErr(ErrBufferExhausted, "pager.Get", nil)
			}
			if err := p.evict(victim); err != nil {
				return nil, err
			}
		}

		buf := AlignedPageBuffer()
		if pageNum < p.numPages {
			if _, err := p.file.ReadAt(buf, int64(pageNum)*PageSize); err != nil {
				return nil, newErr(ErrIO, "pager.Get", err)
			}
		} else {
			p.numPages = pageNum + 1
		}
		fr.buf = buf
		fr.resident = true
		fr.dirty = false
		fr.pinCount = 0
		p.resident++
	}

	fr.lastUsed = p.timer
	fr.pinCount++
	return fr.buf, nil
}

// selectVictim finds the resident, unpinned frame with the smallest
// lastUsed, breaking ties toward the smaller page number (deterministic).
func (p *Pager) selectVictim() (uint32, bool) {
	victim := uint32(0)
	found := false
	var bestUsed uint64
	for i := range p.frames {
		fr := &p.frames[i]
		if !fr.resident || fr.pinCount != 0 {
			continue
		}
		if !found || fr.lastUsed < bestUsed {
			victim = uint32(i)
			bestUsed = fr.lastUsed
			found = true
		}
	}
	return victim, found
}

// evict flushes (if dirty) and releases the resident frame at pageNum.
func (p *Pager) evict(pageNum uint32) error {
	if err := p.Flush(pageNum); err != nil {
		return err
	}
	fr := &p.frames[pageNum]
	fr.buf = nil
	fr.resident = false
	fr.dirty = false
	fr.pinCount = 0
	p.resident--
	return nil
}

// Flush writes pageNum back to the file iff it is resident and dirty. A
// no-op for clean or absent slots.
func (p *Pager) Flush(pageNum uint32) error {
	fr := &p.frames[pageNum]
	if !fr.resident || !fr.dirty {
		return nil
	}
	if _, err := p.file.WriteAt(fr.buf, int64(pageNum)*PageSize); err != nil {
		return newErr(ErrIO, "pager.Flush", err)
	}
	fr.dirty = false
	return nil
}

// MarkDirty flags pageNum as modified. The caller promises the slot is
// resident (i.e. obtained via a still-pinned Get).
func (p *Pager) MarkDirty(pageNum uint32) {
	p.frames[pageNum].dirty = true
}

// Pin increments the pin count for a resident page.
func (p *Pager) Pin(pageNum uint32) {
	p.frames[pageNum].pinCount++
}

// Unpin decrements the pin count for a resident page (saturating at 0).
func (p *Pager) Unpin(pageNum uint32) {
	fr := &p.frames[pageNum]
	if fr.pinCount > 0 {
		fr.pinCount--
	}
}

// UnpinAll resets every pin count to zero. Used as a coarse cleanup at
// statement boundaries, belt-and-braces against a forgotten Unpin.
func (p *Pager) UnpinAll() {
	for i := range p.frames {
		p.frames[i].pinCount = 0
	}
}

// Close flushes every resident dirty page and closes the backing file.
func (p *Pager) Close() error {
	for i := uint32(0); i < p.numPages && i < TableMaxPages; i++ {
		if err := p.Flush(i); err != nil {
			return err
		}
	}
	if err := p.file.Close(); err != nil {
		return newErr(ErrIO, "pager.Close", err)
	}
	return nil
}
