// batch-lookup runs risk lookups for a list of identifiers from the command
// line, using the same providers and cache as the API server.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/kr1s57/lookupx/internal/app"
	"github.com/kr1s57/lookupx/internal/config"
	"github.com/kr1s57/lookupx/internal/usecase/lookup"
)

const version = "2.0.0"

func main() {
	inputFile := flag.String("file", "", "File with one identifier per line ('-' for stdin)")
	batchSize := flag.Int("batch-size", 0, "Identifiers queried concurrently per chunk (default: BATCH_SIZE)")
	skipCache := flag.Bool("skip-cache", false, "Ignore cached results")
	jsonOutput := flag.Bool("json", false, "Output the full report in JSON format")
	outputFile := flag.String("output", "", "Output file (default: stdout)")
	verbose := flag.Bool("v", false, "Log provider activity to stderr")
	showVersion := flag.Bool("version", false, "Show version")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Lookup aggregator batch CLI v%s\n\n", version)
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [identifier ...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s 8.8.8.8 user@example.com +14155552671\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -file signups.txt -json -output report.json\n", os.Args[0])
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("batch-lookup v%s\n", version)
		os.Exit(0)
	}

	identifiers := flag.Args()
	if *inputFile != "" {
		fromFile, err := readIdentifiers(*inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading identifiers: %v\n", err)
			os.Exit(1)
		}
		identifiers = append(identifiers, fromFile...)
	}
	if len(identifiers) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no identifiers given")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	// The CLI accepts whatever the operator passes in one run
	if len(identifiers) > cfg.Batch.MaxIdentifiers {
		cfg.Batch.MaxIdentifiers = len(identifiers)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.Build(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing lookup service: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	report, err := application.Service.BatchLookup(ctx, identifiers, lookup.BatchOptions{
		BatchSize: *batchSize,
		SkipCache: *skipCache,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Batch lookup failed: %v\n", err)
		os.Exit(1)
	}

	out := io.Writer(os.Stdout)
	if *outputFile != "" {
		f, err := os.Create(*outputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	if *jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
			os.Exit(1)
		}
	} else {
		printSummary(out, report)
	}

	fmt.Fprintf(os.Stderr, "Batch %s: %d looked up, %d rejected in %dms\n",
		report.BatchID, len(report.Results), len(report.Rejected), report.DurationMs)
}

// readIdentifiers reads one identifier per line, skipping blanks and # comments
func readIdentifiers(path string) ([]string, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	return ids, scanner.Err()
}

func printSummary(out io.Writer, report *lookup.BatchReport) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "IDENTIFIER\tTYPE\tSCORE\tLEVEL\tRECOMMENDATION\tSOURCES\tERRORS\tCACHED")
	for _, r := range report.Results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%t\n",
			r.Identifier, r.Type, r.RiskScore, r.RiskLevel, r.Recommendation.Action,
			strings.Join(r.Sources, ","), strings.Join(r.Errors, ","), r.Cached)
	}
	for _, rej := range report.Rejected {
		fmt.Fprintf(tw, "%s\t-\t-\t-\trejected: %s\t\t\t\n", rej.Identifier, rej.Error)
	}
	tw.Flush()
}
