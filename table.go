// Package simpledb is a small, embeddable, single-file storage engine: a
// fixed-page buffer pool and an on-disk B+Tree, fronted by a thin table
// facade that takes already-encoded rows rather than SQL text. There is no
// parser, no WAL, no transactions and no concurrent access: one statement
// runs to completion before the next begins (internal/pager, package doc).
package simpledb

import (
	"encoding/binary"
	"io"

	"github.com/Batch-Cavendish/simple-db-demo/internal/pager"
	"github.com/Batch-Cavendish/simple-db-demo/internal/schema"
)

// Table is the statement-facing handle over one database file: page 0
// holds the Schema and the B+Tree root page number.
type Table struct {
	pager  *pager.Pager
	schema *schema.Schema
	root   uint32
	tree   *pager.Tree
}

// anchorRootOffset is where root_page_num sits in page 0, right after the
// fixed-size Schema record.
const anchorRootOffset = schema.RecordSize

// Open opens (or creates) path as a single-table database file.
// HasSchema on the returned Table reports whether a CREATE was already
// performed on a previous open.
func Open(path string) (*Table, error) {
	p, err := pager.Open(path)
	if err != nil {
		return nil, err
	}
	return openTable(p)
}

// OpenFile wraps an already-open pager.PageFile, bypassing OS file I/O
// entirely. Used by tests against an in-memory backing store.
func OpenFile(f pager.PageFile) (*Table, error) {
	p, err := pager.OpenFile(f)
	if err != nil {
		return nil, err
	}
	return openTable(p)
}

func openTable(p *pager.Pager) (*Table, error) {
	t := &Table{pager: p}

	if p.NumPages() == 0 {
		t.root = pager.RootPage
		t.schema = &schema.Schema{}
		// Touch page 0 explicitly so the anchor exists on disk even on a
		// backing store that doesn't sparse-zero an unwritten hole.
		if _, err := p.Get(0); err != nil {
			return nil, err
		}
		p.MarkDirty(0)
		p.Unpin(0)
		if err := pager.InitEmptyRoot(p, pager.RootPage); err != nil {
			return nil, err
		}
		t.tree = pager.NewTree(p, t.root, 0)
		return t, nil
	}

	buf, err := p.Get(0)
	if err != nil {
		return nil, err
	}
	sch, err := schema.Decode(buf)
	if err != nil {
		p.Unpin(0)
		return nil, err
	}
	root := binary.LittleEndian.Uint32(buf[anchorRootOffset:])
	p.Unpin(0)

	t.schema = sch
	t.root = root
	t.tree = pager.NewTree(p, root, sch.RowSize)
	return t, nil
}

// HasSchema reports whether CreateSchema has already run on this file:
// a table has a schema once its field count is nonzero.
func (t *Table) HasSchema() bool { return t.schema.HasSchema() }

// Schema returns the table's current column layout.
func (t *Table) Schema() *schema.Schema { return t.schema }

// CreateSchema installs sch as this table's (only) schema. Fails if one
// is already present, mirroring CREATE TABLE's failure mode.
func (t *Table) CreateSchema(sch *schema.Schema) error {
	if t.HasSchema() {
		return &pager.Error{Kind: pager.ErrSchemaExists, Op: "Table.CreateSchema"}
	}
	t.schema = sch
	t.tree = pager.NewTree(t.pager, t.root, sch.RowSize)
	return t.saveSchema()
}

func (t *Table) saveSchema() error {
	buf, err := t.pager.Get(0)
	if err != nil {
		return err
	}
	copy(buf, t.schema.Encode())
	binary.LittleEndian.PutUint32(buf[anchorRootOffset:], t.root)
	t.pager.MarkDirty(0)
	t.pager.Unpin(0)
	return nil
}

// Insert adds one row under key, rejecting an exact key collision as
// DuplicateKey before the tree is ever mutated — the tree itself never
// checks.
func (t *Table) Insert(key uint32, row []byte) error {
	if !t.HasSchema() {
		return &pager.Error{Kind: pager.ErrNoSchema, Op: "Table.Insert"}
	}
	cur, err := t.tree.Find(key)
	if err != nil {
		return err
	}
	numCells, err := leafNumCellsAt(cur)
	if err != nil {
		return err
	}
	if cur.CellNum < numCells {
		existing, err := cur.Key()
		if err != nil {
			return err
		}
		if existing == key {
			return &pager.Error{Kind: pager.ErrDuplicateKey, Op: "Table.Insert"}
		}
	}
	if err := t.tree.Insert(cur, key, row); err != nil {
		return err
	}
	t.pager.UnpinAll()
	return nil
}

// Select returns the row stored under key, or KeyNotFound if absent: a
// key mismatch at the lower-bound leaf position terminates the search.
func (t *Table) Select(key uint32) ([]byte, error) {
	if !t.HasSchema() {
		return nil, &pager.Error{Kind: pager.ErrNoSchema, Op: "Table.Select"}
	}
	cur, err := t.tree.Find(key)
	if err != nil {
		return nil, err
	}
	numCells, err := leafNumCellsAt(cur)
	if err != nil {
		return nil, err
	}
	if cur.CellNum >= numCells {
		return nil, &pager.Error{Kind: pager.ErrKeyNotFound, Op: "Table.Select"}
	}
	got, err := cur.Key()
	if err != nil {
		return nil, err
	}
	if got != key {
		return nil, &pager.Error{Kind: pager.ErrKeyNotFound, Op: "Table.Select"}
	}
	return cur.Value()
}

// Row pairs a key with its decoded row bytes, as returned by SelectAll.
type Row struct {
	Key   uint32
	Value []byte
}

// SelectAll performs a full table scan in key order, leaf chain to leaf
// chain.
func (t *Table) SelectAll() ([]Row, error) {
	if !t.HasSchema() {
		return nil, &pager.Error{Kind: pager.ErrNoSchema, Op: "Table.SelectAll"}
	}
	cur, err := t.tree.First()
	if err != nil {
		return nil, err
	}
	var rows []Row
	for !cur.EndOfTable {
		key, err := cur.Key()
		if err != nil {
			return nil, err
		}
		val, err := cur.Value()
		if err != nil {
			return nil, err
		}
		rows = append(rows, Row{Key: key, Value: val})
		if err := cur.Advance(); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// Delete removes the row under key. KeyNotFound if it isn't present.
func (t *Table) Delete(key uint32) error {
	if !t.HasSchema() {
		return &pager.Error{Kind: pager.ErrNoSchema, Op: "Table.Delete"}
	}
	cur, err := t.tree.Find(key)
	if err != nil {
		return err
	}
	numCells, err := leafNumCellsAt(cur)
	if err != nil {
		return err
	}
	if cur.CellNum >= numCells {
		return &pager.Error{Kind: pager.ErrKeyNotFound, Op: "Table.Delete"}
	}
	got, err := cur.Key()
	if err != nil {
		return err
	}
	if got != key {
		return &pager.Error{Kind: pager.ErrKeyNotFound, Op: "Table.Delete"}
	}
	if err := t.tree.Delete(cur); err != nil {
		return err
	}
	t.pager.UnpinAll()
	return nil
}

// DumpTree writes an indented structural dump of the B+Tree to w, for
// offline inspection of a database file (see cmd/pagedump).
func (t *Table) DumpTree(w io.Writer) error {
	return pager.DumpTree(t.pager, w, t.root, t.schema.RowSize, 0)
}

// Close saves the schema, flushes every page and closes the file.
func (t *Table) Close() error {
	if err := t.saveSchema(); err != nil {
		return err
	}
	return t.pager.Close()
}

func leafNumCellsAt(cur *pager.Cursor) (uint32, error) {
	return cur.Tree.NumCellsAt(cur.PageNum)
}

