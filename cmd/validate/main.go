// Command validate fetches a treatment document and prints its
// aggregated diagnosis report. With -batch it also checks the batch
// configuration document. Exit status is non-zero when any document
// has error-severity diagnoses.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/civiclab/deliberation-engine/internal/batch"
	"github.com/civiclab/deliberation-engine/internal/cdn"
	"github.com/civiclab/deliberation-engine/internal/treatment"
	"github.com/civiclab/deliberation-engine/internal/validate"
)

func main() {
	target := flag.String("cdn", "local", "content target: test, local or prod")
	root := flag.String("root", ".", "root directory for the local target")
	batchPath := flag.String("batch", "", "batch configuration file to check as well")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: validate [-cdn target] [-root dir] [-batch file] <treatment-file>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	fetcher := cdn.NewFetcher(cdn.Target(*target))
	fetcher.LocalRoot = *root

	ok := true

	if *batchPath != "" {
		raw, err := fetcher.GetText(context.Background(), *batchPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		cfg, err := batch.Parse([]byte(raw))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		report := batch.Validate(cfg)
		fmt.Printf("%s: %s\n", *batchPath, report)
		ok = ok && report.OK()
	}

	raw, err := fetcher.GetText(context.Background(), path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	doc, err := treatment.Parse([]byte(raw))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	report := validate.Document(doc)
	fmt.Printf("%s: %s\n", path, report)

	if !ok || !report.OK() {
		os.Exit(1)
	}
}
