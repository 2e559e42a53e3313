package pager

import (
	"fmt"
	"io"
)

// DumpPage writes a one-line human-readable summary of pageNum to w: its
// node type, and either its cell count or key count depending on kind.
// This is the .btree meta-command from the original CLI, carried over as
// a library function instead of a REPL verb since no parser is in scope
// here.
func DumpPage(p *Pager, w io.Writer, pageNum uint32) error {
	buf, err := p.Get(pageNum)
	if err != nil {
		return err
	}
	defer p.Unpin(pageNum)

	switch GetNodeType(buf) {
	case NodeLeaf:
		fmt.Fprintf(w, "- leaf (page %d, size %d)\n", pageNum, LeafNumCells(buf))
	case NodeInternal:
		fmt.Fprintf(w, "- internal (page %d, size %d)\n", pageNum, InternalNumKeys(buf))
	}
	return nil
}

// DumpTree writes an indented pre-order walk of the tree rooted at
// pageNum: internal nodes list each child recursively before the
// right_child subtree; leaves list their keys.
func DumpTree(p *Pager, w io.Writer, pageNum uint32, rowSize uint32, indent int) error {
	buf, err := p.Get(pageNum)
	if err != nil {
		return err
	}

	pad := func(extra int) string {
		s := ""
		for i := 0; i < indent+extra; i++ {
			s += "  "
		}
		return s
	}

	if GetNodeType(buf) == NodeLeaf {
		numCells := LeafNumCells(buf)
		fmt.Fprintf(w, "%sleaf (size %d)\n", pad(0), numCells)
		for i := uint32(0); i < numCells; i++ {
			fmt.Fprintf(w, "%s- %d\n", pad(1), LeafKey(buf, i, rowSize))
		}
		p.Unpin(pageNum)
		return nil
	}

	numKeys := InternalNumKeys(buf)
	fmt.Fprintf(w, "%sinternal (size %d)\n", pad(0), numKeys)
	children := make([]uint32, numKeys+1)
	for i := uint32(0); i < numKeys; i++ {
		children[i] = InternalChild(buf, i)
	}
	children[numKeys] = InternalRightChild(buf)
	p.Unpin(pageNum)

	for _, child := range children {
		if err := DumpTree(p, w, child, rowSize, indent+1); err != nil {
			return err
		}
	}
	return nil
}
