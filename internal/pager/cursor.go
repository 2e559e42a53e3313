package pager

// Cursor is a transient position (page, cell) into a Tree, produced by
// Find/First/Advance. It is not stable across mutations — callers must
// not cache a Cursor across a write to the tree.
type Cursor struct {
	Tree       *Tree
	PageNum    uint32
	CellNum    uint32
	EndOfTable bool
}

// Key returns the key at the cursor's current cell.
func (c *Cursor) Key() (uint32, error) {
	buf, err := c.Tree.pager.Get(c.PageNum)
	if err != nil {
		return 0, err
	}
	defer c.Tree.pager.Unpin(c.PageNum)
	return LeafKey(buf, c.CellNum, c.Tree.rowSize), nil
}

// Value returns an owned copy of the row payload at the cursor's current
// cell. A copy, not a slice into the pool, is returned deliberately: the
// caller must not be able to hold a pointer into a frame across an
// eviction of that frame.
func (c *Cursor) Value() ([]byte, error) {
	buf, err := c.Tree.pager.Get(c.PageNum)
	if err != nil {
		return nil, err
	}
	defer c.Tree.pager.Unpin(c.PageNum)
	row := make([]byte, c.Tree.rowSize)
	copy(row, LeafValue(buf, c.CellNum, c.Tree.rowSize))
	return row, nil
}

// Advance moves the cursor to the next cell in key order, following the
// leaf sibling chain when the current leaf is exhausted. Sets EndOfTable
// once the rightmost leaf's last cell has been consumed.
func (c *Cursor) Advance() error {
	buf, err := c.Tree.pager.Get(c.PageNum)
	if err != nil {
		return err
	}
	numCells := LeafNumCells(buf)
	c.CellNum++
	if c.CellNum < numCells {
		c.Tree.pager.Unpin(c.PageNum)
		return nil
	}
	next := LeafNextLeaf(buf)
	c.Tree.pager.Unpin(c.PageNum)
	if next == InvalidPage {
		c.EndOfTable = true
		return nil
	}
	c.PageNum = next
	c.CellNum = 0
	return nil
}
