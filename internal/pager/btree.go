package pager

import "fmt"

// Tree is the sole access method for table rows: a disk-backed B+Tree
// keyed by a u32 (the row's primary key value, or a DJB2 hash of it for a
// TEXT primary key) storing fixed-width row payloads. Every operation
// borrows pages from a Pager for the duration of the call; no Tree method
// retains a page pinned past its own return.
type Tree struct {
	pager   *Pager
	root    uint32
	rowSize uint32
}

// NewTree wraps an existing root page (already initialized as a leaf or
// internal node) for access with the given fixed row size.
func NewTree(p *Pager, root uint32, rowSize uint32) *Tree {
	return &Tree{pager: p, root: root, rowSize: rowSize}
}

// NumCellsAt returns the resident leaf's num_cells, for callers (the
// statement facade) that need to tell an insertion point from a past-end
// cursor without duplicating Find's traversal.
func (t *Tree) NumCellsAt(pageNum uint32) (uint32, error) {
	buf, err := t.pager.Get(pageNum)
	if err != nil {
		return 0, err
	}
	defer t.pager.Unpin(pageNum)
	return LeafNumCells(buf), nil
}

// Root returns the tree's root page number. Root growth never changes it:
// createNewRoot always reinitializes the root page in place and pushes the
// old content sideways into a freshly allocated page instead.
func (t *Tree) Root() uint32 { return t.root }

// InitEmptyRoot initializes pageNum as a fresh, empty leaf root. Used once
// by Table when bootstrapping a brand new schema's tree.
func InitEmptyRoot(p *Pager, pageNum uint32) error {
	buf, err := p.Get(pageNum)
	if err != nil {
		return err
	}
	InitLeaf(buf)
	SetIsRoot(buf, true)
	p.MarkDirty(pageNum)
	p.Unpin(pageNum)
	return nil
}

// allocPage grows the file by one page and returns it pinned, zeroed.
func (t *Tree) allocPage() (uint32, []byte, error) {
	pageNum := t.pager.NumPages()
	buf, err := t.pager.Get(pageNum)
	if err != nil {
		return 0, nil, err
	}
	return pageNum, buf, nil
}

func (t *Tree) setParent(pageNum, parentPg uint32) error {
	buf, err := t.pager.Get(pageNum)
	if err != nil {
		return err
	}
	SetParent(buf, parentPg)
	t.pager.MarkDirty(pageNum)
	t.pager.Unpin(pageNum)
	return nil
}

// maxKey returns the largest key stored under pageNum's subtree: a leaf's
// last cell, or (recursively) its right_child's max key for an internal
// node.
func (t *Tree) maxKey(pageNum uint32) (uint32, error) {
	buf, err := t.pager.Get(pageNum)
	if err != nil {
		return 0, err
	}
	defer t.pager.Unpin(pageNum)
	if GetNodeType(buf) == NodeLeaf {
		n := LeafNumCells(buf)
		if n == 0 {
			return 0, nil
		}
		return LeafKey(buf, n-1, t.rowSize), nil
	}
	right := InternalRightChild(buf)
	return t.maxKey(right)
}

// leafLowerBound returns the index of the first cell whose key is >= key,
// or num_cells if none, via binary search over the leaf's sorted keys.
func leafLowerBound(page []byte, key uint32, rowSize uint32) uint32 {
	lo, hi := uint32(0), LeafNumCells(page)
	for lo < hi {
		mid := lo + (hi-lo)/2
		if LeafKey(page, mid, rowSize) < key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// internalFindChild scans keys left to right and returns the first child
// whose key is >= target, or right_child if none. A linear scan rather
// than a binary search, since keys this far up the tree are few.
func internalFindChild(page []byte, key uint32) uint32 {
	numKeys := InternalNumKeys(page)
	for i := uint32(0); i < numKeys; i++ {
		if InternalKey(page, i) >= key {
			return InternalChild(page, i)
		}
	}
	return InternalRightChild(page)
}

// Find descends from the root to the leaf that would contain key, and
// returns a cursor at the lower-bound cell: either the cell holding key,
// or the position key would be inserted at. Callers compare Cursor.Key
// against key to distinguish a hit from an insertion point.
func (t *Tree) Find(key uint32) (*Cursor, error) {
	pageNum := t.root
	for {
		buf, err := t.pager.Get(pageNum)
		if err != nil {
			return nil, err
		}
		if GetNodeType(buf) == NodeLeaf {
			cellNum := leafLowerBound(buf, key, t.rowSize)
			t.pager.Unpin(pageNum)
			return &Cursor{Tree: t, PageNum: pageNum, CellNum: cellNum}, nil
		}
		child := internalFindChild(buf, key)
		t.pager.Unpin(pageNum)
		pageNum = child
	}
}

// First returns a cursor at the leftmost cell of the leftmost leaf,
// descending child[0] at every internal level.
func (t *Tree) First() (*Cursor, error) {
	pageNum := t.root
	for {
		buf, err := t.pager.Get(pageNum)
		if err != nil {
			return nil, err
		}
		if GetNodeType(buf) == NodeLeaf {
			numCells := LeafNumCells(buf)
			t.pager.Unpin(pageNum)
			return &Cursor{Tree: t, PageNum: pageNum, CellNum: 0, EndOfTable: numCells == 0}, nil
		}
		child := ChildAt(buf, 0)
		t.pager.Unpin(pageNum)
		pageNum = child
	}
}

// Insert writes (key, payload) at cur's position, splitting the leaf and
// propagating a new separator up the tree as needed. cur must come from
// Find(key) — the caller is responsible for rejecting an exact key match
// as a duplicate before calling Insert; the tree itself never enforces
// uniqueness.
func (t *Tree) Insert(cur *Cursor, key uint32, payload []byte) error {
	if uint32(len(payload)) != t.rowSize {
		return newErr(ErrIO, "btree.Insert", fmt.Errorf("row size mismatch: got %d want %d", len(payload), t.rowSize))
	}

	buf, err := t.pager.Get(cur.PageNum)
	if err != nil {
		return err
	}
	numCells := LeafNumCells(buf)
	maxCells := MaxLeafCells(t.rowSize)

	if numCells < maxCells {
		for i := numCells; i > cur.CellNum; i-- {
			copyLeafCell(buf, i, i-1, t.rowSize)
		}
		setLeafCell(buf, cur.CellNum, t.rowSize, key, payload)
		SetLeafNumCells(buf, numCells+1)
		t.pager.MarkDirty(cur.PageNum)
		t.pager.Unpin(cur.PageNum)
		return nil
	}

	t.pager.Unpin(cur.PageNum)
	return t.leafSplitAndInsert(cur.PageNum, cur.CellNum, key, payload)
}

type leafCell struct {
	key uint32
	row []byte
}

// leafSplitAndInsert splits a full leaf in two and places the incoming
// (key, payload) among the n+1 resulting records: gather old cells and
// the incoming one in key order, then write the first half back into the
// old leaf and the second half into a freshly allocated sibling.
func (t *Tree) leafSplitAndInsert(oldPg, cellNum, key uint32, payload []byte) error {
	n := MaxLeafCells(t.rowSize)

	oldBuf, err := t.pager.Get(oldPg)
	if err != nil {
		return err
	}
	combined := make([]leafCell, 0, n+1)
	for i := uint32(0); i < n+1; i++ {
		switch {
		case i == cellNum:
			combined = append(combined, leafCell{key, payload})
		case i < cellNum:
			row := make([]byte, t.rowSize)
			copy(row, LeafValue(oldBuf, i, t.rowSize))
			combined = append(combined, leafCell{LeafKey(oldBuf, i, t.rowSize), row})
		default:
			row := make([]byte, t.rowSize)
			copy(row, LeafValue(oldBuf, i-1, t.rowSize))
			combined = append(combined, leafCell{LeafKey(oldBuf, i-1, t.rowSize), row})
		}
	}
	oldParent := GetParent(oldBuf)
	oldWasRoot := IsRoot(oldBuf)
	oldNextLeaf := LeafNextLeaf(oldBuf)
	oldMaxBeforeSplit := LeafKey(oldBuf, n-1, t.rowSize)
	t.pager.Unpin(oldPg)

	mid := (n + 1) / 2

	newPg, newBuf, err := t.allocPage()
	if err != nil {
		return err
	}
	InitLeaf(newBuf)

	oldBuf, err = t.pager.Get(oldPg)
	if err != nil {
		return err
	}
	for i, c := range combined {
		if uint32(i) < mid {
			setLeafCell(oldBuf, uint32(i), t.rowSize, c.key, c.row)
		} else {
			setLeafCell(newBuf, uint32(i)-mid, t.rowSize, c.key, c.row)
		}
	}
	SetLeafNumCells(oldBuf, mid)
	SetLeafNumCells(newBuf, uint32(len(combined))-mid)
	SetLeafNextLeaf(newBuf, oldNextLeaf)
	SetLeafNextLeaf(oldBuf, newPg)
	SetParent(newBuf, oldParent)
	newOldMax := LeafKey(oldBuf, mid-1, t.rowSize)

	t.pager.MarkDirty(oldPg)
	t.pager.MarkDirty(newPg)
	t.pager.Unpin(oldPg)
	t.pager.Unpin(newPg)

	if oldWasRoot {
		return t.createNewRoot(newPg)
	}

	if err := t.updateParentKeyIfMatches(oldParent, oldPg, oldMaxBeforeSplit, newOldMax); err != nil {
		return err
	}
	return t.internalInsert(oldParent, newPg)
}

// updateParentKeyIfMatches fixes up the separator key parent keeps for
// childPg after a split changed that child's max key. A child currently
// installed as parent's right_child has no associated key entry and needs
// no fix-up here — its effective upper bound is implicit.
func (t *Tree) updateParentKeyIfMatches(parentPg, childPg uint32, oldMax, newMax uint32) error {
	buf, err := t.pager.Get(parentPg)
	if err != nil {
		return err
	}
	defer t.pager.Unpin(parentPg)
	numKeys := InternalNumKeys(buf)
	for i := uint32(0); i < numKeys; i++ {
		if InternalChild(buf, i) == childPg {
			if InternalKey(buf, i) == oldMax {
				SetInternalKey(buf, i, newMax)
				t.pager.MarkDirty(parentPg)
			}
			return nil
		}
	}
	return nil
}

// internalInsert adds childPg as a new child of parentPg, keyed by
// childPg's max key, splitting parentPg first if it is already full.
func (t *Tree) internalInsert(parentPg, childPg uint32) error {
	childMax, err := t.maxKey(childPg)
	if err != nil {
		return err
	}

	buf, err := t.pager.Get(parentPg)
	if err != nil {
		return err
	}
	numKeys := InternalNumKeys(buf)

	if numKeys >= InternalNodeMaxKeys {
		t.pager.Unpin(parentPg)
		return t.internalSplitAndInsert(parentPg, childPg)
	}

	idx := uint32(0)
	for idx < numKeys && InternalKey(buf, idx) < childMax {
		idx++
	}

	rightChild := InternalRightChild(buf)
	rightMax, err := t.maxKey(rightChild)
	if err != nil {
		t.pager.Unpin(parentPg)
		return err
	}

	if childMax > rightMax {
		setInternalCell(buf, numKeys, rightChild, rightMax)
		SetInternalRightChild(buf, childPg)
		SetInternalNumKeys(buf, numKeys+1)
	} else {
		for i := numKeys; i > idx; i-- {
			copyInternalCell(buf, i, i-1)
		}
		setInternalCell(buf, idx, childPg, childMax)
		SetInternalNumKeys(buf, numKeys+1)
	}
	t.pager.MarkDirty(parentPg)
	t.pager.Unpin(parentPg)

	return t.setParent(childPg, parentPg)
}

func (t *Tree) collectInternalChildren(pageNum uint32) ([]uint32, error) {
	buf, err := t.pager.Get(pageNum)
	if err != nil {
		return nil, err
	}
	defer t.pager.Unpin(pageNum)
	numKeys := InternalNumKeys(buf)
	out := make([]uint32, numKeys)
	for i := uint32(0); i < numKeys; i++ {
		out[i] = InternalChild(buf, i)
	}
	return out, nil
}

// internalSplitAndInsert splits a full internal node in two, reparenting
// the children that move, then places childPg on whichever side its max
// key belongs to before propagating the new sibling upward.
func (t *Tree) internalSplitAndInsert(oldPg, childPg uint32) error {
	childMax, err := t.maxKey(childPg)
	if err != nil {
		return err
	}

	oldBuf, err := t.pager.Get(oldPg)
	if err != nil {
		return err
	}
	numKeys := InternalNumKeys(oldBuf)
	splitIdx := numKeys / 2

	newPg, newBuf, err := t.allocPage()
	if err != nil {
		t.pager.Unpin(oldPg)
		return err
	}
	InitInternal(newBuf)

	var newKeyCount uint32
	for i := splitIdx + 1; i < numKeys; i++ {
		setInternalCell(newBuf, newKeyCount, InternalChild(oldBuf, i), InternalKey(oldBuf, i))
		newKeyCount++
	}
	SetInternalNumKeys(newBuf, newKeyCount)

	oldRight := InternalRightChild(oldBuf)
	SetInternalRightChild(newBuf, oldRight)

	midChild := InternalChild(oldBuf, splitIdx)
	oldParent := GetParent(oldBuf)
	oldWasRoot := IsRoot(oldBuf)

	SetInternalRightChild(oldBuf, midChild)
	SetInternalNumKeys(oldBuf, splitIdx)

	t.pager.MarkDirty(oldPg)
	t.pager.MarkDirty(newPg)
	t.pager.Unpin(oldPg)
	t.pager.Unpin(newPg)

	if err := t.setParent(oldRight, newPg); err != nil {
		return err
	}
	movedChildren, err := t.collectInternalChildren(newPg)
	if err != nil {
		return err
	}
	for _, c := range movedChildren {
		if err := t.setParent(c, newPg); err != nil {
			return err
		}
	}

	oldAfterMax, err := t.maxKey(oldPg)
	if err != nil {
		return err
	}
	if childMax > oldAfterMax {
		err = t.internalInsert(newPg, childPg)
	} else {
		err = t.internalInsert(oldPg, childPg)
	}
	if err != nil {
		return err
	}

	if oldWasRoot {
		return t.createNewRoot(newPg)
	}
	return t.internalInsert(oldParent, newPg)
}

// createNewRoot grows the tree by one level. The current root page's
// content (already rewritten as the left half of whatever split triggered
// this call) is copied verbatim into a freshly allocated page; the root
// page number itself is then reinitialized in place as a new internal
// node with one key, so Tree.root never changes.
func (t *Tree) createNewRoot(rightPg uint32) error {
	rootBuf, err := t.pager.Get(t.root)
	if err != nil {
		return err
	}
	leftPg, leftBuf, err := t.allocPage()
	if err != nil {
		t.pager.Unpin(t.root)
		return err
	}
	copy(leftBuf, rootBuf)
	SetIsRoot(leftBuf, false)
	t.pager.MarkDirty(leftPg)

	var children []uint32
	if GetNodeType(leftBuf) == NodeInternal {
		numKeys := InternalNumKeys(leftBuf)
		for i := uint32(0); i < numKeys; i++ {
			children = append(children, InternalChild(leftBuf, i))
		}
		children = append(children, InternalRightChild(leftBuf))
	}
	t.pager.Unpin(t.root)
	t.pager.Unpin(leftPg)

	for _, child := range children {
		if err := t.setParent(child, leftPg); err != nil {
			return err
		}
	}

	leftMax, err := t.maxKey(leftPg)
	if err != nil {
		return err
	}

	rootBuf, err = t.pager.Get(t.root)
	if err != nil {
		return err
	}
	InitInternal(rootBuf)
	SetIsRoot(rootBuf, true)
	SetInternalNumKeys(rootBuf, 1)
	setInternalCell(rootBuf, 0, leftPg, leftMax)
	SetInternalRightChild(rootBuf, rightPg)
	t.pager.MarkDirty(t.root)
	t.pager.Unpin(t.root)

	if err := t.setParent(leftPg, t.root); err != nil {
		return err
	}
	return t.setParent(rightPg, t.root)
}

// Delete removes the cell at cur's position. A leaf-local shift, never a
// merge or rebalance: deleting fragments the tree rather than reclaiming
// it.
func (t *Tree) Delete(cur *Cursor) error {
	buf, err := t.pager.Get(cur.PageNum)
	if err != nil {
		return err
	}
	defer t.pager.Unpin(cur.PageNum)

	numCells := LeafNumCells(buf)
	if cur.CellNum >= numCells {
		return nil
	}
	for i := cur.CellNum; i+1 < numCells; i++ {
		copyLeafCell(buf, i, i+1, t.rowSize)
	}
	SetLeafNumCells(buf, numCells-1)
	t.pager.MarkDirty(cur.PageNum)
	return nil
}
