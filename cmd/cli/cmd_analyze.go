package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/csrfshield/csrfshield/pkg/defaults"
	"github.com/csrfshield/csrfshield/pkg/finding"
	"github.com/csrfshield/csrfshield/pkg/har"
	"github.com/csrfshield/csrfshield/pkg/report"
	"github.com/csrfshield/csrfshield/pkg/result"
	"github.com/csrfshield/csrfshield/pkg/ui"
)

// runAnalyze is the one-shot path: parse a capture, analyze every session,
// render a report.
func runAnalyze(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	harPath := fs.String("har", "", "HAR 1.2 capture file to analyze (required)")
	configPath := fs.String("config", "", "YAML settings file")
	modelPath := fs.String("model", "", "JSON inference model file (default: built-in)")
	format := fs.String("format", "markdown", "report format: json or markdown")
	output := fs.String("o", "", "report output path (default: stdout)")
	sessionID := fs.String("session", "", "analyze only this session id")
	quiet := fs.Bool("quiet", false, "suppress banner and progress output")
	fs.Parse(args)

	if *harPath == "" {
		fmt.Fprintln(os.Stderr, "analyze: -har is required")
		fs.Usage()
		os.Exit(defaults.ExitUsage)
	}

	renderer, err := report.For(*format)
	if err != nil {
		fatalf("analyze: %v", err)
	}

	settings, err := loadSettings(*configPath, *modelPath)
	if err != nil {
		fatalf("analyze: %v", err)
	}
	orch, err := buildOrchestrator(settings)
	if err != nil {
		fatalf("analyze: %v", err)
	}

	if !*quiet {
		fmt.Fprintln(os.Stderr, ui.Banner(defaults.Version))
	}

	exchanges, err := har.ParseFile(*harPath)
	if err != nil {
		fatalf("analyze: %v", err)
	}
	flows := har.ReconstructFlows(exchanges, settings.SessionCookiePatterns)
	if err := orch.Load(flows); err != nil {
		fatalf("analyze: %v", err)
	}

	progress := ui.NewProgressLine(os.Stderr)
	progressFn := progress.Update
	if *quiet {
		progressFn = nil
	}

	var sessions []result.SessionSummary
	if *sessionID != "" {
		summary, err := orch.AnalyzeSession(*sessionID, progressFn)
		progress.Done()
		if err != nil {
			fatalf("analyze: %v", err)
		}
		sessions = []result.SessionSummary{summary}
	} else {
		_, err := orch.AnalyzeAll(progressFn)
		progress.Done()
		if err != nil {
			fatalf("analyze: %v", err)
		}
		sessions = orch.Analyzed()
	}

	if !*quiet {
		printVerdicts(os.Stderr, sessions)
	}

	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fatalf("analyze: %v", err)
		}
		defer f.Close()
		w = f
	}

	doc := report.NewDocument(defaults.Version, sessions)
	if err := renderer.Render(w, doc); err != nil {
		fatalf("analyze: render: %v", err)
	}
	if *output != "" && !*quiet {
		fmt.Fprintf(os.Stderr, "report written to %s (%d session(s))\n", *output, len(sessions))
	}
}

// printVerdicts writes one colored summary line per session to the terminal
// stream, separate from the report on stdout.
func printVerdicts(w io.Writer, sessions []result.SessionSummary) {
	for _, s := range sessions {
		var all []finding.Finding
		for _, r := range s.Results {
			all = append(all, r.Findings...)
		}
		line := fmt.Sprintf("%s  score %d  risk %s", s.SessionID, s.MaxScore, ui.LevelBadge(s.Level))
		if len(all) > 0 {
			line += fmt.Sprintf("  %d finding(s), worst %s", len(all), ui.SeverityBadge(finding.MaxSeverity(all)))
		}
		fmt.Fprintln(w, line)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(defaults.ExitError)
}
