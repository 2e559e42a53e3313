// Command demo exercises the storage engine end to end: it loads a table
// schema from a YAML file, creates the table on first run, inserts a
// handful of rows, and prints a full scan.
package main

import (
	"encoding/binary"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	simpledb "github.com/Batch-Cavendish/simple-db-demo"
	"github.com/Batch-Cavendish/simple-db-demo/internal/schema"
)

// yamlField mirrors schema.Field for YAML decoding; there is no SQL
// parser in scope, so a table's shape is declared this way instead.
type yamlField struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type yamlSchema struct {
	Fields []yamlField `yaml:"fields"`
}

func loadSchema(path string) (*schema.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var doc yamlSchema
	if err := yaml.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode schema yaml: %w", err)
	}

	fields := make([]schema.Field, len(doc.Fields))
	for i, f := range doc.Fields {
		var t schema.FieldType
		switch f.Type {
		case "int32":
			t = schema.TypeInt32
		case "text":
			t = schema.TypeText
		default:
			return nil, fmt.Errorf("unknown field type %q for field %q", f.Type, f.Name)
		}
		fields[i] = schema.Field{Name: f.Name, Type: t}
	}
	return schema.NewSchema(fields)
}

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "usage: demo <schema.yaml> <database-file>\n")
		os.Exit(1)
	}
	schemaPath, dbPath := os.Args[1], os.Args[2]

	sch, err := loadSchema(schemaPath)
	if err != nil {
		log.Fatalf("load schema: %v", err)
	}

	tbl, err := simpledb.Open(dbPath)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer tbl.Close()

	if !tbl.HasSchema() {
		if err := tbl.CreateSchema(sch); err != nil {
			log.Fatalf("create schema: %v", err)
		}
		log.Printf("created schema with %d fields, row size %d", len(sch.Fields), sch.RowSize)

		seed := []struct {
			id   int32
			name string
		}{
			{1, "alice"},
			{2, "bob"},
			{3, "carol"},
		}
		for _, s := range seed {
			row := make([]byte, sch.RowSize)
			binary.LittleEndian.PutUint32(row[sch.Fields[0].Offset:], uint32(s.id))
			copy(row[sch.Fields[1].Offset:], s.name)
			if err := tbl.Insert(uint32(s.id), row); err != nil {
				log.Fatalf("insert %d: %v", s.id, err)
			}
		}
	}

	rows, err := tbl.SelectAll()
	if err != nil {
		log.Fatalf("select all: %v", err)
	}
	for _, r := range rows {
		fmt.Printf("key=%d row=%x\n", r.Key, r.Value)
	}
}
