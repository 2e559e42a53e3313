package pager_test

import (
	"fmt"
	"testing"

	"github.com/Batch-Cavendish/simple-db-demo/internal/pager"
)

func newTestTree(t *testing.T, rowSize uint32) (*pager.Pager, *pager.Tree) {
	p := newTestPager(t)
	if err := pager.InitEmptyRoot(p, pager.RootPage); err != nil {
		t.Fatalf("InitEmptyRoot: %v", err)
	}
	return p, pager.NewTree(p, pager.RootPage, rowSize)
}

func fixedRow(rowSize uint32, s string) []byte {
	row := make([]byte, rowSize)
	copy(row, s)
	return row
}

func scanAll(t *testing.T, tree *pager.Tree) []uint32 {
	cur, err := tree.First()
	if err != nil {
		t.Fatalf("First: %v", err)
	}
	var keys []uint32
	for !cur.EndOfTable {
		k, err := cur.Key()
		if err != nil {
			t.Fatalf("Key: %v", err)
		}
		keys = append(keys, k)
		if err := cur.Advance(); err != nil {
			t.Fatalf("Advance: %v", err)
		}
	}
	return keys
}

// Out-of-order inserts come back sorted on a full scan.
func TestInsertOutOfOrderThenScanIsSorted(t *testing.T) {
	_, tree := newTestTree(t, 8)

	inserts := []struct {
		key uint32
		val string
	}{
		{1, "alice"},
		{3, "carol"},
		{2, "bob"},
	}
	for _, ins := range inserts {
		cur, err := tree.Find(ins.key)
		if err != nil {
			t.Fatalf("Find(%d): %v", ins.key, err)
		}
		if err := tree.Insert(cur, ins.key, fixedRow(8, ins.val)); err != nil {
			t.Fatalf("Insert(%d): %v", ins.key, err)
		}
	}

	got := scanAll(t, tree)
	want := []uint32{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("scan returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("scan[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

// row_size=36 gives max_cells=102; the 103rd insert forces exactly one
// leaf split, and both resulting leaves are non-empty.
func TestLeafSplitAt103rdInsert(t *testing.T) {
	const rowSize = 36
	p, tree := newTestTree(t, rowSize)

	for key := uint32(1); key <= 103; key++ {
		cur, err := tree.Find(key)
		if err != nil {
			t.Fatalf("Find(%d): %v", key, err)
		}
		if err := tree.Insert(cur, key, fixedRow(rowSize, fmt.Sprintf("row-%d", key))); err != nil {
			t.Fatalf("Insert(%d): %v", key, err)
		}
	}

	rootBuf, err := p.Get(tree.Root())
	if err != nil {
		t.Fatalf("Get(root): %v", err)
	}
	if pager.GetNodeType(rootBuf) != pager.NodeInternal {
		t.Fatalf("root node type = %v, want internal after split", pager.GetNodeType(rootBuf))
	}
	if got := pager.InternalNumKeys(rootBuf); got != 1 {
		t.Fatalf("root num_keys = %d, want 1", got)
	}
	leftPg := pager.InternalChild(rootBuf, 0)
	rightPg := pager.InternalRightChild(rootBuf)
	p.Unpin(tree.Root())

	leftBuf, err := p.Get(leftPg)
	if err != nil {
		t.Fatalf("Get(left): %v", err)
	}
	leftCells := pager.LeafNumCells(leftBuf)
	p.Unpin(leftPg)

	rightBuf, err := p.Get(rightPg)
	if err != nil {
		t.Fatalf("Get(right): %v", err)
	}
	rightCells := pager.LeafNumCells(rightBuf)
	p.Unpin(rightPg)

	if leftCells == 0 || rightCells == 0 {
		t.Fatalf("split produced an empty leaf: left=%d right=%d", leftCells, rightCells)
	}
	if leftCells+rightCells != 103 {
		t.Fatalf("split cell counts sum to %d, want 103", leftCells+rightCells)
	}

	got := scanAll(t, tree)
	if len(got) != 103 {
		t.Fatalf("scan length = %d, want 103", len(got))
	}
	for i, k := range got {
		if k != uint32(i+1) {
			t.Fatalf("scan[%d] = %d, want %d", i, k, i+1)
		}
	}
}

// Exercises two leaf splits and a non-splitting internal_insert, so the
// root grows to internal once and keeps a flat two-level shape.
func TestMultipleLeafSplitsKeepScanSorted(t *testing.T) {
	const rowSize = 36
	_, tree := newTestTree(t, rowSize)

	const n = 250
	for key := uint32(1); key <= n; key++ {
		cur, err := tree.Find(key)
		if err != nil {
			t.Fatalf("Find(%d): %v", key, err)
		}
		if err := tree.Insert(cur, key, fixedRow(rowSize, fmt.Sprintf("v%d", key))); err != nil {
			t.Fatalf("Insert(%d): %v", key, err)
		}
	}

	got := scanAll(t, tree)
	if len(got) != n {
		t.Fatalf("scan length = %d, want %d", len(got), n)
	}
	for i, k := range got {
		if k != uint32(i+1) {
			t.Fatalf("scan[%d] = %d, want %d", i, k, i+1)
		}
	}
}

// A wide row leaves each leaf room for exactly one cell, so every insert
// past the first splits a leaf and adds one key to the parent. Driving
// enough of those forces the root's child — an internal node — past
// InternalNodeMaxKeys, which in turn forces an internal node split and
// grows the tree to three levels.
func TestInternalNodeSplitKeepsScanSorted(t *testing.T) {
	const rowSize = 2048
	p, tree := newTestTree(t, rowSize)

	const n = 520
	for key := uint32(1); key <= n; key++ {
		cur, err := tree.Find(key)
		if err != nil {
			t.Fatalf("Find(%d): %v", key, err)
		}
		if err := tree.Insert(cur, key, fixedRow(rowSize, fmt.Sprintf("v%d", key))); err != nil {
			t.Fatalf("Insert(%d): %v", key, err)
		}
	}

	rootBuf, err := p.Get(tree.Root())
	if err != nil {
		t.Fatalf("Get(root): %v", err)
	}
	if pager.GetNodeType(rootBuf) != pager.NodeInternal {
		t.Fatalf("root node type = %v, want internal", pager.GetNodeType(rootBuf))
	}
	if got := pager.InternalNumKeys(rootBuf); got != 1 {
		t.Fatalf("root num_keys = %d, want 1 (root should have just grown a level)", got)
	}
	leftPg := pager.InternalChild(rootBuf, 0)
	p.Unpin(tree.Root())

	leftBuf, err := p.Get(leftPg)
	if err != nil {
		t.Fatalf("Get(left): %v", err)
	}
	leftType := pager.GetNodeType(leftBuf)
	p.Unpin(leftPg)
	if leftType != pager.NodeInternal {
		t.Fatalf("root's left child node type = %v, want internal (tree should be 3 levels deep)", leftType)
	}

	got := scanAll(t, tree)
	if len(got) != n {
		t.Fatalf("scan length = %d, want %d", len(got), n)
	}
	for i, k := range got {
		if k != uint32(i+1) {
			t.Fatalf("scan[%d] = %d, want %d", i, k, i+1)
		}
	}
}

func TestFindReturnsLowerBoundForAbsentKey(t *testing.T) {
	_, tree := newTestTree(t, 8)
	for _, key := range []uint32{10, 20, 30} {
		cur, err := tree.Find(key)
		if err != nil {
			t.Fatalf("Find(%d): %v", key, err)
		}
		if err := tree.Insert(cur, key, fixedRow(8, "x")); err != nil {
			t.Fatalf("Insert(%d): %v", key, err)
		}
	}

	cur, err := tree.Find(25)
	if err != nil {
		t.Fatalf("Find(25): %v", err)
	}
	k, err := cur.Key()
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if k != 30 {
		t.Fatalf("lower bound for 25 = %d, want 30", k)
	}
}

func TestDeleteRemovesCellFromScan(t *testing.T) {
	_, tree := newTestTree(t, 8)
	for key := uint32(1); key <= 5; key++ {
		cur, err := tree.Find(key)
		if err != nil {
			t.Fatalf("Find(%d): %v", key, err)
		}
		if err := tree.Insert(cur, key, fixedRow(8, "x")); err != nil {
			t.Fatalf("Insert(%d): %v", key, err)
		}
	}

	cur, err := tree.Find(3)
	if err != nil {
		t.Fatalf("Find(3): %v", err)
	}
	if err := tree.Delete(cur); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	got := scanAll(t, tree)
	want := []uint32{1, 2, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("scan = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("scan[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestCloseReopenRoundTrip(t *testing.T) {
	mf := newMemPageFile()
	p, err := pager.OpenFile(mf)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if err := pager.InitEmptyRoot(p, pager.RootPage); err != nil {
		t.Fatalf("InitEmptyRoot: %v", err)
	}
	tree := pager.NewTree(p, pager.RootPage, 8)
	for key := uint32(1); key <= 20; key++ {
		cur, err := tree.Find(key)
		if err != nil {
			t.Fatalf("Find(%d): %v", key, err)
		}
		if err := tree.Insert(cur, key, fixedRow(8, "x")); err != nil {
			t.Fatalf("Insert(%d): %v", key, err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	p2, err := pager.OpenFile(mf)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	tree2 := pager.NewTree(p2, pager.RootPage, 8)
	got := scanAll(t, tree2)
	if len(got) != 20 {
		t.Fatalf("scan length after reopen = %d, want 20", len(got))
	}
	for i, k := range got {
		if k != uint32(i+1) {
			t.Fatalf("scan[%d] = %d, want %d", i, k, i+1)
		}
	}
}
