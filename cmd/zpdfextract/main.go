// Command zpdfextract prints the text of a PDF to stdout.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Lulzx/zpdf"
)

func main() {
	fast := flag.Bool("fast", false, "stream-order extraction, skip reading-order assembly")
	page := flag.Int("page", -1, "extract a single zero-based page")
	markdown := flag.Bool("markdown", false, "render markdown instead of plain text")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: zpdfextract [-fast] [-page N] [-markdown] file.pdf")
		os.Exit(2)
	}
	doc, err := zpdf.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer doc.Close()

	var text string
	switch {
	case *markdown && *page >= 0:
		text, err = doc.ExtractMarkdown(*page)
	case *markdown:
		text, err = doc.ExtractAllMarkdown()
	case *page >= 0 && *fast:
		text, err = doc.ExtractPageFast(*page)
	case *page >= 0:
		text, err = doc.ExtractPage(*page)
	case *fast:
		text, err = doc.ExtractAllFast()
	default:
		text, err = doc.ExtractAll()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "extract:", err)
		os.Exit(1)
	}
	fmt.Println(text)
}
