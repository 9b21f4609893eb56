// Command cli is the csrfshield entry point: CSRF risk analysis over
// reconstructed HTTP session flows.
//
// Subcommands:
//
//	analyze  one-shot analysis of a HAR capture, report to stdout or a file
//	serve    run the NDJSON control-protocol server on stdio or a socket
//	version  print the version
package main

import (
	"fmt"
	"os"

	"github.com/csrfshield/csrfshield/pkg/defaults"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(defaults.ExitUsage)
	}

	switch os.Args[1] {
	case "analyze":
		runAnalyze(os.Args[2:])
	case "serve":
		runServe(os.Args[2:])
	case "-v", "--version", "version":
		fmt.Printf("csrfshield v%s\n", defaults.Version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(defaults.ExitUsage)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `csrfshield v%s - CSRF risk analysis for captured HTTP traffic

Usage:
  csrfshield analyze -har capture.har [-format json|markdown] [-o report]
  csrfshield serve [-listen addr]
  csrfshield version

Run 'csrfshield <command> -h' for command flags.
`, defaults.Version)
}
