package pager

import "encoding/binary"

// Node is a pure layout contract over a raw PageSize buffer: a set of
// offset-within-frame accessors, never a copy of the page. Every tree
// operation borrows a frame from the Pager for the duration of the call
// and reads/writes through these helpers rather than holding a pointer
// into the buffer pool past the borrow.

// ── Common header ────────────────────────────────────────────────────────

func GetNodeType(page []byte) NodeType {
	must(page, commonHdrSz, "node type")
	return NodeType(page[offNodeType])
}

func SetNodeType(page []byte, t NodeType) {
	must(page, commonHdrSz, "node type")
	page[offNodeType] = byte(t)
}

func IsRoot(page []byte) bool {
	must(page, commonHdrSz, "is_root")
	return page[offIsRoot] != 0
}

func SetIsRoot(page []byte, root bool) {
	must(page, commonHdrSz, "is_root")
	if root {
		page[offIsRoot] = 1
	} else {
		page[offIsRoot] = 0
	}
}

func GetParent(page []byte) uint32 {
	must(page, commonHdrSz, "parent")
	return binary.LittleEndian.Uint32(page[offParent:])
}

func SetParent(page []byte, pageNum uint32) {
	must(page, commonHdrSz, "parent")
	binary.LittleEndian.PutUint32(page[offParent:], pageNum)
}

// ── Leaf header ───────────────────────────────────────────────────────────

func LeafNumCells(page []byte) uint32 {
	must(page, leafHdrSz, "leaf num_cells")
	return binary.LittleEndian.Uint32(page[offLeafNumCells:])
}

func SetLeafNumCells(page []byte, n uint32) {
	must(page, leafHdrSz, "leaf num_cells")
	binary.LittleEndian.PutUint32(page[offLeafNumCells:], n)
}

func LeafNextLeaf(page []byte) uint32 {
	must(page, leafHdrSz, "leaf next_leaf")
	return binary.LittleEndian.Uint32(page[offLeafNextLeaf:])
}

func SetLeafNextLeaf(page []byte, pageNum uint32) {
	must(page, leafHdrSz, "leaf next_leaf")
	binary.LittleEndian.PutUint32(page[offLeafNextLeaf:], pageNum)
}

// InitLeaf zeroes the header region and marks page as an empty leaf.
func InitLeaf(page []byte) {
	must(page, leafHdrSz, "init leaf")
	SetNodeType(page, NodeLeaf)
	SetIsRoot(page, false)
	SetParent(page, InvalidPage)
	SetLeafNumCells(page, 0)
	SetLeafNextLeaf(page, InvalidPage)
}

// MaxLeafCells returns the maximum number of (key, row) cells a leaf with
// the given row size can hold: floor((PageSize - leafHdrSz) / (4 + rowSize)).
func MaxLeafCells(rowSize uint32) uint32 {
	return uint32(PageSize-leafHdrSz) / (4 + rowSize)
}

func leafCellOffset(i uint32, rowSize uint32) int {
	return leafHdrSz + int(i)*(4+int(rowSize))
}

// LeafKey returns the key stored in leaf cell i.
func LeafKey(page []byte, i uint32, rowSize uint32) uint32 {
	off := leafCellOffset(i, rowSize)
	must(page, off+4, "leaf key")
	return binary.LittleEndian.Uint32(page[off:])
}

func setLeafKey(page []byte, i uint32, rowSize uint32, key uint32) {
	off := leafCellOffset(i, rowSize)
	must(page, off+4, "leaf key")
	binary.LittleEndian.PutUint32(page[off:], key)
}

// LeafValue returns a slice into page covering the row payload of cell i.
// The slice is only valid while the caller holds the page pinned.
func LeafValue(page []byte, i uint32, rowSize uint32) []byte {
	off := leafCellOffset(i, rowSize) + 4
	must(page, off+int(rowSize), "leaf value")
	return page[off : off+int(rowSize)]
}

// setLeafCell writes a full (key, row) cell at slot i.
func setLeafCell(page []byte, i uint32, rowSize uint32, key uint32, row []byte) {
	setLeafKey(page, i, rowSize, key)
	copy(LeafValue(page, i, rowSize), row)
}

// copyLeafCell copies cell src to slot dst within the same page.
func copyLeafCell(page []byte, dst, src uint32, rowSize uint32) {
	srcOff := leafCellOffset(src, rowSize)
	dstOff := leafCellOffset(dst, rowSize)
	cellSz := 4 + int(rowSize)
	copy(page[dstOff:dstOff+cellSz], page[srcOff:srcOff+cellSz])
}

// ── Internal header ───────────────────────────────────────────────────────

func InternalNumKeys(page []byte) uint32 {
	must(page, internalHdrSz, "internal num_keys")
	return binary.LittleEndian.Uint32(page[offInternalNumKeys:])
}

func SetInternalNumKeys(page []byte, n uint32) {
	must(page, internalHdrSz, "internal num_keys")
	binary.LittleEndian.PutUint32(page[offInternalNumKeys:], n)
}

func InternalRightChild(page []byte) uint32 {
	must(page, internalHdrSz, "internal right_child")
	return binary.LittleEndian.Uint32(page[offInternalRightChild:])
}

func SetInternalRightChild(page []byte, pageNum uint32) {
	must(page, internalHdrSz, "internal right_child")
	binary.LittleEndian.PutUint32(page[offInternalRightChild:], pageNum)
}

// InitInternal zeroes the header region and marks page as an empty
// internal node.
func InitInternal(page []byte) {
	must(page, internalHdrSz, "init internal")
	SetNodeType(page, NodeInternal)
	SetIsRoot(page, false)
	SetParent(page, InvalidPage)
	SetInternalNumKeys(page, 0)
	SetInternalRightChild(page, InvalidPage)
}

func internalCellOffset(i uint32) int {
	return internalHdrSz + int(i)*8
}

// InternalChild returns the i-th child pointer (i < num_keys).
func InternalChild(page []byte, i uint32) uint32 {
	off := internalCellOffset(i)
	must(page, off+4, "internal child")
	return binary.LittleEndian.Uint32(page[off:])
}

func SetInternalChild(page []byte, i uint32, pageNum uint32) {
	off := internalCellOffset(i)
	must(page, off+4, "internal child")
	binary.LittleEndian.PutUint32(page[off:], pageNum)
}

// InternalKey returns the i-th key (the max key of child i's subtree).
func InternalKey(page []byte, i uint32) uint32 {
	off := internalCellOffset(i) + 4
	must(page, off+4, "internal key")
	return binary.LittleEndian.Uint32(page[off:])
}

func SetInternalKey(page []byte, i uint32, key uint32) {
	off := internalCellOffset(i) + 4
	must(page, off+4, "internal key")
	binary.LittleEndian.PutUint32(page[off:], key)
}

func setInternalCell(page []byte, i uint32, child, key uint32) {
	SetInternalChild(page, i, child)
	SetInternalKey(page, i, key)
}

func copyInternalCell(page []byte, dst, src uint32) {
	srcOff := internalCellOffset(src)
	dstOff := internalCellOffset(dst)
	copy(page[dstOff:dstOff+8], page[srcOff:srcOff+8])
}

// ChildAt returns the i-th child pointer of an internal node where i may
// equal NumKeys, in which case it is the right_child.
func ChildAt(page []byte, i uint32) uint32 {
	if i == InternalNumKeys(page) {
		return InternalRightChild(page)
	}
	return InternalChild(page, i)
}
