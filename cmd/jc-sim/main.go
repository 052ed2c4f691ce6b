// Command jc-sim runs one of the reference join-calculus scenarios from the
// spec (counter, single-access variable, readers/writer) to completion and
// prints the resulting bag contents. Grounded on cmd/achemdb-sim/main.go's
// flag-driven runner shape, rebuilt around join.Site instead of a
// tick-stepped achem.Environment.
package main

import (
	"flag"
	"fmt"
	"os"
)

func main() {
	scenario := flag.String("scenario", "counter", "scenario to run: counter | single-access | readers-writer")
	iterations := flag.Int("iterations", 20, "number of emissions to perform")
	flag.Parse()

	var err error
	switch *scenario {
	case "counter":
		err = runCounter(*iterations)
	case "single-access":
		err = runSingleAccess(*iterations)
	case "readers-writer":
		err = runReadersWriter(*iterations)
	default:
		fmt.Fprintf(os.Stderr, "error: unknown scenario %q\n", *scenario)
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
