// Command pagedump prints a structural dump of a database file's B+Tree,
// the non-interactive equivalent of the original CLI's .btree
// meta-command.
package main

import (
	"fmt"
	"log"
	"os"

	simpledb "github.com/Batch-Cavendish/simple-db-demo"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: pagedump <database-file>\n")
		os.Exit(1)
	}

	tbl, err := simpledb.Open(os.Args[1])
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer tbl.Close()

	if !tbl.HasSchema() {
		fmt.Println("(no schema)")
		return
	}
	if err := tbl.DumpTree(os.Stdout); err != nil {
		log.Fatalf("dump tree: %v", err)
	}
}
