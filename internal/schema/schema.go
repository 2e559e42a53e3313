// Package schema describes the shape of a table's rows: an ordered list
// of fixed-width fields, serialized verbatim into page 0 of the database
// file alongside the B+Tree's root page number.
package schema

import (
	"encoding/binary"
	"fmt"

	"github.com/Batch-Cavendish/simple-db-demo/internal/pager"
)

// FieldType is the set of column types this engine understands. There is
// no parser in scope, so a Schema is built directly by a caller (the demo
// CLI, a test) rather than derived from DDL text.
type FieldType uint32

const (
	TypeInt32 FieldType = iota
	TypeText
)

func (t FieldType) String() string {
	if t == TypeText {
		return "TEXT"
	}
	return "INT32"
}

// TextSize is the fixed width of a TEXT field's storage, independent of
// the string's actual length.
const TextSize = 32

// NameMax is the longest a Field.Name may be, leaving room for a
// terminating NUL within the 32-byte on-disk name slot.
const NameMax = 31

// Field is one column of a Schema.
type Field struct {
	Name   string
	Type   FieldType
	Size   uint32
	Offset uint32
}

// Schema is the ordered column list for a table. Fields[0] is always the
// primary key.
type Schema struct {
	Fields  []Field
	RowSize uint32
}

// NewSchema lays out fields in order, computing each Offset and the
// overall RowSize. Size is taken from each field (4 for INT32, TextSize
// for TEXT) regardless of what the caller passes in Field.Size.
func NewSchema(fields []Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema: at least one field required")
	}
	if len(fields) > pager.MaxFields {
		return nil, fmt.Errorf("schema: %d fields exceeds max of %d", len(fields), pager.MaxFields)
	}
	out := make([]Field, len(fields))
	var offset uint32
	for i, f := range fields {
		if len(f.Name) > NameMax {
			return nil, fmt.Errorf("schema: field name %q exceeds %d bytes", f.Name, NameMax)
		}
		size := uint32(4)
		if f.Type == TypeText {
			size = TextSize
		}
		out[i] = Field{Name: f.Name, Type: f.Type, Size: size, Offset: offset}
		offset += size
	}
	return &Schema{Fields: out, RowSize: offset}, nil
}

// PrimaryKey returns the schema's key field (always Fields[0]).
func (s *Schema) PrimaryKey() Field { return s.Fields[0] }

// KeyForPKValue computes the u32 B+Tree key for a primary key value: the
// value itself for INT32, or its DJB2 hash for TEXT.
func (s *Schema) KeyForPKValue(pk interface{}) (uint32, error) {
	switch s.PrimaryKey().Type {
	case TypeInt32:
		v, ok := pk.(int32)
		if !ok {
			return 0, fmt.Errorf("schema: INT32 primary key expects int32, got %T", pk)
		}
		return uint32(v), nil
	case TypeText:
		v, ok := pk.(string)
		if !ok {
			return 0, fmt.Errorf("schema: TEXT primary key expects string, got %T", pk)
		}
		return DJB2([]byte(v)), nil
	default:
		return 0, fmt.Errorf("schema: unknown primary key type %v", s.PrimaryKey().Type)
	}
}

// KeyForRow extracts the B+Tree key from a row already encoded in
// row_size-byte form, by reading the PK field out of its slot.
func (s *Schema) KeyForRow(row []byte) uint32 {
	pk := s.PrimaryKey()
	field := row[pk.Offset : pk.Offset+pk.Size]
	if pk.Type == TypeInt32 {
		return binary.LittleEndian.Uint32(field)
	}
	end := len(field)
	for end > 0 && field[end-1] == 0 {
		end--
	}
	return DJB2(field[:end])
}

// DJB2 is Dan Bernstein's string hash: hash = 5381; hash = hash*33 + c.
// Used to map a TEXT primary key down to the u32 B+Tree key space.
func DJB2(s []byte) uint32 {
	hash := uint32(5381)
	for _, c := range s {
		hash = hash*33 + uint32(c)
	}
	return hash
}

// Record on-disk layout, little-endian:
//
//	num_fields:u32 | fields[16]:{name[32]:bytes | type:u32 | size:u32 | offset:u32} | row_size:u32
const (
	fieldRecordSize = NameMax + 1 + 4 + 4 + 4 // name[32] + type + size + offset
	RecordSize      = 4 + pager.MaxFields*fieldRecordSize + 4
)

// Encode serializes s into a RecordSize-byte buffer for page 0.
func (s *Schema) Encode() []byte {
	buf := make([]byte, RecordSize)
	binary.LittleEndian.PutUint32(buf[0:], uint32(len(s.Fields)))
	for i, f := range s.Fields {
		off := 4 + i*fieldRecordSize
		nameBuf := buf[off : off+NameMax+1]
		copy(nameBuf, f.Name)
		binary.LittleEndian.PutUint32(buf[off+32:], uint32(f.Type))
		binary.LittleEndian.PutUint32(buf[off+36:], f.Size)
		binary.LittleEndian.PutUint32(buf[off+40:], f.Offset)
	}
	binary.LittleEndian.PutUint32(buf[4+pager.MaxFields*fieldRecordSize:], s.RowSize)
	return buf
}

// Decode parses a Schema out of a RecordSize-byte buffer (the layout
// Encode writes). numFields == 0 signals "no schema present" to the
// caller (Table.Open), which Decode surfaces by returning a Schema with
// zero Fields rather than an error.
func Decode(buf []byte) (*Schema, error) {
	if len(buf) < RecordSize {
		return nil, fmt.Errorf("schema: buffer too small: have %d want %d", len(buf), RecordSize)
	}
	numFields := binary.LittleEndian.Uint32(buf[0:])
	if numFields > pager.MaxFields {
		return nil, fmt.Errorf("schema: corrupt num_fields %d", numFields)
	}
	fields := make([]Field, numFields)
	for i := uint32(0); i < numFields; i++ {
		off := 4 + int(i)*fieldRecordSize
		nameBuf := buf[off : off+NameMax+1]
		end := 0
		for end < len(nameBuf) && nameBuf[end] != 0 {
			end++
		}
		fields[i] = Field{
			Name:   string(nameBuf[:end]),
			Type:   FieldType(binary.LittleEndian.Uint32(buf[off+32:])),
			Size:   binary.LittleEndian.Uint32(buf[off+36:]),
			Offset: binary.LittleEndian.Uint32(buf[off+40:]),
		}
	}
	rowSize := binary.LittleEndian.Uint32(buf[4+pager.MaxFields*fieldRecordSize:])
	return &Schema{Fields: fields, RowSize: rowSize}, nil
}

// HasSchema reports whether s represents a created table rather than an
// empty anchor: a created table has a nonzero field count.
func (s *Schema) HasSchema() bool { return len(s.Fields) > 0 }
