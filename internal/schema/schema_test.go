package schema_test

import (
	"testing"

	"github.com/Batch-Cavendish/simple-db-demo/internal/schema"
)

func TestDJB2KnownValue(t *testing.T) {
	// hash=5381; hash=hash*33+c, folded over "a" then "b".
	got := schema.DJB2([]byte("ab"))
	want := uint32(5381)
	want = want*33 + uint32('a')
	want = want*33 + uint32('b')
	if got != want {
		t.Fatalf("DJB2(\"ab\") = %d, want %d", got, want)
	}
}

func TestDJB2EmptyString(t *testing.T) {
	if got := schema.DJB2(nil); got != 5381 {
		t.Fatalf("DJB2(nil) = %d, want 5381", got)
	}
}

func TestNewSchemaComputesOffsetsAndRowSize(t *testing.T) {
	sch, err := schema.NewSchema([]schema.Field{
		{Name: "id", Type: schema.TypeInt32},
		{Name: "name", Type: schema.TypeText},
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	if sch.Fields[0].Offset != 0 || sch.Fields[0].Size != 4 {
		t.Fatalf("id field = %+v, want offset=0 size=4", sch.Fields[0])
	}
	if sch.Fields[1].Offset != 4 || sch.Fields[1].Size != schema.TextSize {
		t.Fatalf("name field = %+v, want offset=4 size=%d", sch.Fields[1], schema.TextSize)
	}
	if sch.RowSize != 4+schema.TextSize {
		t.Fatalf("RowSize = %d, want %d", sch.RowSize, 4+schema.TextSize)
	}
}

func TestNewSchemaRejectsTooManyFields(t *testing.T) {
	fields := make([]schema.Field, 17)
	for i := range fields {
		fields[i] = schema.Field{Name: "f", Type: schema.TypeInt32}
	}
	if _, err := schema.NewSchema(fields); err == nil {
		t.Fatalf("NewSchema with 17 fields should fail")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sch, err := schema.NewSchema([]schema.Field{
		{Name: "id", Type: schema.TypeInt32},
		{Name: "email", Type: schema.TypeText},
		{Name: "age", Type: schema.TypeInt32},
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	buf := sch.Encode()
	if len(buf) != schema.RecordSize {
		t.Fatalf("Encode length = %d, want %d", len(buf), schema.RecordSize)
	}

	got, err := schema.Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got.HasSchema() {
		t.Fatalf("decoded schema reports HasSchema() = false")
	}
	if len(got.Fields) != len(sch.Fields) {
		t.Fatalf("decoded %d fields, want %d", len(got.Fields), len(sch.Fields))
	}
	for i, f := range sch.Fields {
		g := got.Fields[i]
		if g.Name != f.Name || g.Type != f.Type || g.Size != f.Size || g.Offset != f.Offset {
			t.Fatalf("field %d = %+v, want %+v", i, g, f)
		}
	}
	if got.RowSize != sch.RowSize {
		t.Fatalf("decoded RowSize = %d, want %d", got.RowSize, sch.RowSize)
	}
}

func TestDecodeEmptyBufferHasNoSchema(t *testing.T) {
	buf := make([]byte, schema.RecordSize)
	sch, err := schema.Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if sch.HasSchema() {
		t.Fatalf("all-zero record should report HasSchema() = false")
	}
}

func TestKeyForRowTextUsesDJB2(t *testing.T) {
	sch, err := schema.NewSchema([]schema.Field{
		{Name: "email", Type: schema.TypeText},
		{Name: "age", Type: schema.TypeInt32},
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	row := make([]byte, sch.RowSize)
	copy(row[sch.Fields[0].Offset:], "bob@example.com")

	got := sch.KeyForRow(row)
	want := schema.DJB2([]byte("bob@example.com"))
	if got != want {
		t.Fatalf("KeyForRow = %d, want %d", got, want)
	}
}
