package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"yashubustudio/sentiment/internal/config"
	"yashubustudio/sentiment/internal/logging"
	"yashubustudio/sentiment/internal/sentiment"
	"yashubustudio/sentiment/internal/textio"
)

type cliOptions struct {
	configPath string
	inputPath  string
	text       string
	outputPath string
	outputDir  string
	inputOpts  textio.ParseOptions
	stdout     bool
	logLevel   string
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sentiment-cli: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "sentiment-cli: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (cliOptions, error) {
	var opts cliOptions
	flag.StringVar(&opts.configPath, "config", "", "Path to config.json (default: ./config.json)")
	flag.StringVar(&opts.inputPath, "input", "", "CSV/TSV/text file containing texts to score")
	flag.StringVar(&opts.text, "text", "", "Score a single text and print the result")
	flag.StringVar(&opts.outputPath, "output", "", "CSV file to write results (default uses --output-dir/result_*.csv)")
	flag.StringVar(&opts.outputDir, "output-dir", "csv", "Directory where result CSVs are written when --output is omitted")
	flag.StringVar(&opts.inputOpts.TextColumn, "text-column", "", "Column name or #index for the text column")
	flag.StringVar(&opts.inputOpts.IndexColumn, "index-column", "", "Column name or #index for the row index column")
	flag.BoolVar(&opts.inputOpts.Normalize, "normalize", true, "Apply NFKC normalization and strip control characters")
	flag.BoolVar(&opts.stdout, "stdout", false, "Print per-row results to STDOUT")
	flag.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s (--input FILE | --text TEXT) [options]\n\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	opts.configPath = strings.TrimSpace(opts.configPath)
	opts.inputPath = strings.TrimSpace(opts.inputPath)
	opts.outputPath = strings.TrimSpace(opts.outputPath)
	opts.outputDir = strings.TrimSpace(opts.outputDir)

	if opts.inputPath == "" && opts.text == "" {
		flag.Usage()
		return opts, errors.New("one of --input or --text is required")
	}
	if opts.inputPath != "" && opts.text != "" {
		return opts, errors.New("--input and --text are mutually exclusive")
	}
	return opts, nil
}

func run(opts cliOptions) error {
	log := logging.New(opts.logLevel, "console")
	defer func() { _ = log.Sync() }()

	cfg, err := config.LoadModelConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	clf, err := sentiment.NewOrtClassifier(cfg, nil, log)
	if err != nil {
		return fmt.Errorf("init classifier: %w", err)
	}
	scorer, err := sentiment.NewScorer(clf, cfg.Labels, nil, log)
	if err != nil {
		_ = clf.Close()
		return fmt.Errorf("init scorer: %w", err)
	}
	defer func() {
		if err := scorer.Close(); err != nil {
			log.Warn("close scorer", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.text != "" {
		display, err := scorer.Analyze(ctx, opts.text)
		if err != nil {
			return fmt.Errorf("analyze: %w", err)
		}
		fmt.Println(display)
		return nil
	}

	records, err := textio.ReadRecords(opts.inputPath, opts.inputOpts)
	if err != nil {
		return fmt.Errorf("read input records: %w", err)
	}
	if len(records) == 0 {
		return errors.New("input file does not contain any texts")
	}

	start := time.Now()
	results, err := scorer.ScoreBatch(ctx, textio.Texts(records), progressPrinter(len(records)))
	if err != nil {
		return fmt.Errorf("score: %w", err)
	}
	elapsed := time.Since(start)

	outputPath, err := textio.ResolveOutputPath(opts.outputPath, opts.outputDir, time.Now())
	if err != nil {
		return err
	}
	if err := textio.WriteResultsFile(outputPath, records, results, scorer.Labels()); err != nil {
		return err
	}
	fmt.Printf("Scored %d texts in %.1fs, results saved to %s\n", len(results), elapsed.Seconds(), outputPath)

	printCounts(results, scorer.Labels())
	if opts.stdout {
		printSummary(records, results)
	}
	return nil
}

// progressPrinter reports on stderr roughly every tenth of the batch.
func progressPrinter(total int) func(done, total int) {
	step := total / 10
	if step < 1 {
		step = 1
	}
	return func(done, total int) {
		if done%step == 0 || done == total {
			fmt.Fprintf(os.Stderr, "\r%d/%d", done, total)
		}
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}

func printCounts(results []sentiment.Result, labels []string) {
	fmt.Println(formatCounts(results, labels))
}

// formatCounts renders "Label=n" for every label in order, plus empty inputs.
func formatCounts(results []sentiment.Result, labels []string) string {
	counts := make(map[string]int, len(labels))
	empty := 0
	for _, res := range results {
		if res.Empty {
			empty++
			continue
		}
		counts[res.Label]++
	}
	parts := make([]string, 0, len(labels)+1)
	for _, label := range labels {
		parts = append(parts, fmt.Sprintf("%s=%d", label, counts[label]))
	}
	if empty > 0 {
		parts = append(parts, fmt.Sprintf("empty=%d", empty))
	}
	return strings.Join(parts, " ")
}

func printSummary(records []textio.Record, results []sentiment.Result) {
	fmt.Println()
	fmt.Println("==== Results ====")
	for i, rec := range records {
		fmt.Printf("%d. %s\n", i+1, summarizeRecord(rec))
		fmt.Printf("    %s\n", sentiment.Format(results[i]))
	}
}

func summarizeRecord(rec textio.Record) string {
	text := textio.Preview(strings.TrimSpace(rec.Text), 60)
	if text == "" {
		text = "(empty text)"
	}
	if idx := strings.TrimSpace(rec.Index); idx != "" {
		return "#" + idx + " " + text
	}
	return text
}
