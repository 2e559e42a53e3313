package pager

import "testing"

func TestLeafCellRoundTrip(t *testing.T) {
	page := make([]byte, PageSize)
	InitLeaf(page)

	rowSize := uint32(8)
	setLeafCell(page, 0, rowSize, 42, []byte("abcdefgh"))
	SetLeafNumCells(page, 1)

	if got := LeafKey(page, 0, rowSize); got != 42 {
		t.Fatalf("LeafKey = %d, want 42", got)
	}
	if got := string(LeafValue(page, 0, rowSize)); got != "abcdefgh" {
		t.Fatalf("LeafValue = %q, want %q", got, "abcdefgh")
	}

	setLeafCell(page, 1, rowSize, 99, []byte("ijklmnop"))
	copyLeafCell(page, 2, 0, rowSize)
	if got := LeafKey(page, 2, rowSize); got != 42 {
		t.Fatalf("copied LeafKey = %d, want 42", got)
	}
}

func TestInternalHeaderRoundTrip(t *testing.T) {
	page := make([]byte, PageSize)
	InitInternal(page)

	if GetNodeType(page) != NodeInternal {
		t.Fatalf("node type = %v, want internal", GetNodeType(page))
	}
	SetInternalNumKeys(page, 3)
	SetInternalRightChild(page, 99)
	setInternalCell(page, 0, 10, 100)
	setInternalCell(page, 1, 11, 200)
	setInternalCell(page, 2, 12, 300)

	if got := InternalNumKeys(page); got != 3 {
		t.Fatalf("InternalNumKeys = %d, want 3", got)
	}
	if got := InternalRightChild(page); got != 99 {
		t.Fatalf("InternalRightChild = %d, want 99", got)
	}
	for i, wantChild := range []uint32{10, 11, 12} {
		if got := InternalChild(page, uint32(i)); got != wantChild {
			t.Fatalf("InternalChild(%d) = %d, want %d", i, got, wantChild)
		}
	}
	if got := ChildAt(page, 3); got != 99 {
		t.Fatalf("ChildAt(num_keys) = %d, want right_child 99", got)
	}

	copyInternalCell(page, 3, 1)
	if got := InternalKey(page, 3); got != 200 {
		t.Fatalf("copied InternalKey = %d, want 200", got)
	}
}

func TestMaxLeafCells(t *testing.T) {
	// row_size=36 -> max_cells = floor((4096-14)/(4+36)) = 102.
	if got := MaxLeafCells(36); got != 102 {
		t.Fatalf("MaxLeafCells(36) = %d, want 102", got)
	}
}

func TestIsRootFlag(t *testing.T) {
	page := make([]byte, PageSize)
	InitLeaf(page)
	if IsRoot(page) {
		t.Fatalf("fresh leaf should not be root")
	}
	SetIsRoot(page, true)
	if !IsRoot(page) {
		t.Fatalf("IsRoot should be true after SetIsRoot(true)")
	}
}
