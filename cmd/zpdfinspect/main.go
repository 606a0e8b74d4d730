// Command zpdfinspect dumps a PDF's structure for debugging: header,
// trailer, page records, metadata, outline, and the error sink.
package main

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"

	"github.com/Lulzx/zpdf"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: zpdfinspect file.pdf")
		os.Exit(2)
	}
	doc, err := zpdf.Open(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer doc.Close()

	dumper := spew.ConfigState{Indent: "  ", MaxDepth: 6, SortKeys: true}

	fmt.Printf("version: %s\n", doc.Version())
	fmt.Printf("pages: %d\n", doc.PageCount())
	fmt.Printf("encrypted: %v\n", doc.IsEncrypted())

	fmt.Println("metadata:")
	dumper.Dump(doc.Metadata())

	if outline := doc.Outline(); len(outline) > 0 {
		fmt.Println("outline:")
		dumper.Dump(outline)
	}
	if fields := doc.FormFields(); len(fields) > 0 {
		fmt.Println("form fields:")
		dumper.Dump(fields)
	}
	for i := 0; i < doc.PageCount(); i++ {
		w, h, rot, err := doc.PageInfo(i)
		if err != nil {
			continue
		}
		fmt.Printf("page %d: %gx%g rot=%d label=%q\n", i, w, h, rot, doc.PageLabel(i))
	}
	if errs := doc.Errors(); len(errs) > 0 {
		fmt.Println("errors:")
		for _, rec := range errs {
			fmt.Printf("  %s\n", rec)
		}
	}
}
