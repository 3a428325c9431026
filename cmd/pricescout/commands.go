package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/aluiziolira/pricescout/config"
	"github.com/aluiziolira/pricescout/models"
	"github.com/aluiziolira/pricescout/pipeline"
	"github.com/aluiziolira/pricescout/pricing"
	"github.com/aluiziolira/pricescout/scraper"
)

const separator = "--------------------------------------------------"

func runImport(args []string) error {
	fs, common := newFlagSet("import")
	format := fs.String("format", "text", "Input format: text, json, or csv")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(common, nil)
	if err != nil {
		return err
	}
	defer closeApp(a)

	inputs := fs.Args()
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}
	for _, name := range inputs {
		data, err := readInput(name)
		if err != nil {
			return err
		}
		result, err := importData(a.ingester, strings.ToLower(*format), data)
		if err != nil {
			return fmt.Errorf("import %s: %w", name, err)
		}
		printImportSummary(name, result)
	}
	return nil
}

func readInput(name string) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

func importData(in *pipeline.Ingester, format string, data []byte) (*models.ImportResult, error) {
	switch format {
	case "text":
		return in.ImportText(string(data))
	case "json":
		return in.ImportJSON(data)
	case "csv":
		return in.ImportCSV(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func runSearch(args []string) error {
	fs, common := newFlagSet("search")
	var filters models.Filters
	fs.Func("price-min", "Minimum price", floatFlag(&filters.PriceMin))
	fs.Func("price-max", "Maximum price", floatFlag(&filters.PriceMax))
	fs.Func("rating", "Minimum rating", floatFlag(&filters.Rating))
	fs.BoolFunc("in-stock", "Only show platforms with stock", func(s string) error {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		filters.InStock = &v
		return nil
	})
	fs.StringVar(&filters.Brand, "brand", "", "Brand refinement")
	fs.StringVar(&filters.Color, "color", "", "Color refinement")
	fs.StringVar(&filters.Size, "size", "", "Size refinement")
	noDelay := fs.Bool("no-delay", false, "Skip the simulated lookup delay")
	asJSON := fs.Bool("json", false, "Print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(common, func(cfg *config.Config) {
		if *noDelay {
			cfg.DelayEnabled = false
		}
	})
	if err != nil {
		return err
	}
	defer closeApp(a)

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := a.resolver.ResolveWithFilters(ctx, query, filters)
	if err != nil {
		return err
	}
	prices := pricing.ApplyFilters(res.Pricing.Prices, filters)

	if *asJSON {
		return printJSON(map[string]any{
			"query":   query,
			"source":  res.Source,
			"pricing": res.Pricing,
			"prices":  prices,
		})
	}
	printPricing(res, prices)
	return nil
}

func floatFlag(dst **float64) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*dst = &v
		return nil
	}
}

func runExport(args []string) error {
	fs, common := newFlagSet("export")
	format := fs.String("format", "json", "Output format: json, csv, jsonl, or dual")
	output := fs.String("o", "", "Output file (stdout for json and csv when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(common, nil)
	if err != nil {
		return err
	}
	defer closeApp(a)

	switch *format = strings.ToLower(*format); *format {
	case "json":
		if *output == "" {
			return pipeline.WriteDatabase(os.Stdout, a.store.Database())
		}
		if err := pipeline.ExportDatabase(*output, a.store.Database()); err != nil {
			return err
		}
		slog.Info("database exported", slog.String("file", *output))
		return nil
	case "csv", "jsonl", "dual":
	default:
		return fmt.Errorf("unsupported format: %s", *format)
	}

	writer, err := createWriter(*format, *output)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}
	products := a.store.All()
	if err := writer.Write(products); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	if len(products) == 0 {
		slog.Warn("product database is empty")
		return nil
	}
	if err := writer.Validate(); err != nil {
		return fmt.Errorf("output validation failed: %w", err)
	}
	slog.Info("products exported",
		slog.Int("count", len(products)),
		slog.String("format", *format),
		slog.String("file", *output),
	)
	return nil
}

func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	if filename == "" {
		if format != "csv" {
			return nil, fmt.Errorf("format %s needs an output file (-o)", format)
		}
		return pipeline.NewCSVStreamWriter(os.Stdout)
	}
	switch format {
	case "jsonl":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".jsonl"
		return pipeline.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func runStats(args []string) error {
	fs, common := newFlagSet("stats")
	top := fs.Int("top", 5, "Number of top searches to show")
	asJSON := fs.Bool("json", false, "Print the summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(common, nil)
	if err != nil {
		return err
	}
	defer closeApp(a)

	stats := a.store.Stats()
	summary := a.tracker.Summary(*top)
	history := a.history.List()

	if *asJSON {
		return printJSON(map[string]any{
			"database":  stats,
			"history":   history,
			"analytics": summary,
		})
	}

	fmt.Println(separator)
	fmt.Println("Product database")
	fmt.Printf("  Products:      %d\n", stats.TotalProducts)
	fmt.Printf("  Entries:       %d\n", stats.TotalEntries)
	fmt.Printf("  Platforms:     %s\n", strings.Join(stats.Platforms, ", "))
	fmt.Printf("  Categories:    %s\n", strings.Join(stats.Categories, ", "))
	fmt.Println("Searches")
	fmt.Printf("  Total:         %d\n", summary.TotalSearches)
	fmt.Printf("  Success rate:  %d%%\n", summary.SuccessRate)
	fmt.Printf("  Avg duration:  %.0fms\n", summary.AverageSearchTime)
	fmt.Printf("  Top searches:  %s\n", strings.Join(summary.TopSearches, ", "))
	fmt.Printf("  Recent:        %s\n", strings.Join(history, ", "))
	fmt.Println(separator)
	return nil
}

func runClear(args []string) error {
	fs, common := newFlagSet("clear")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("clear needs exactly one target: products, cache, history, analytics, or all")
	}
	target := strings.ToLower(fs.Arg(0))

	a, err := openApp(common, nil)
	if err != nil {
		return err
	}
	defer closeApp(a)

	clearers := map[string]func() error{
		"products":  a.store.Clear,
		"cache":     a.cache.Clear,
		"history":   a.history.Clear,
		"analytics": a.tracker.Clear,
	}
	order := []string{"products", "cache", "history", "analytics"}
	if target != "all" {
		if _, ok := clearers[target]; !ok {
			return fmt.Errorf("unknown clear target %q", target)
		}
		order = []string{target}
	}
	for _, name := range order {
		if err := clearers[name](); err != nil {
			return fmt.Errorf("clear %s: %w", name, err)
		}
		slog.Info("cleared", slog.String("target", name))
	}
	return nil
}

func runSample(args []string) error {
	fs, common := newFlagSet("sample")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(common, nil)
	if err != nil {
		return err
	}
	defer closeApp(a)

	result, err := a.ingester.LoadSample()
	if err != nil {
		return err
	}
	printImportSummary("sample", result)
	return nil
}

func runScrape(args []string) error {
	fs, common := newFlagSet("scrape")
	selector := fs.String("selector", scraper.DefaultSelector, "CSS selector whose text is collected")
	doImport := fs.Bool("import", false, "Import the snippets as product listings")
	maxRetries := fs.Int("max-retries", -1, "Maximum retry attempts per URL (config default when negative)")
	respectRobots := fs.Bool("respect-robots", false, "Respect robots.txt directives")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("scrape needs exactly one URL")
	}
	pageURL := fs.Arg(0)

	a, err := openApp(common, func(cfg *config.Config) {
		if *maxRetries >= 0 {
			cfg.MaxRetries = *maxRetries
		}
		if *respectRobots {
			cfg.RespectRobotsTxt = true
		}
	})
	if err != nil {
		return err
	}
	defer closeApp(a)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting scrape", slog.String("url", pageURL), slog.String("selector", *selector))
	s := scraper.NewScraper(a.cfg, scraper.WithMetrics(a.metrics))
	result, err := s.Snippets(ctx, pageURL, *selector)
	if result != nil {
		printScrapeSummary(result)
	}
	if err != nil {
		return err
	}

	if !*doImport {
		for _, snippet := range result.Snippets {
			fmt.Println(snippet)
		}
		return nil
	}
	imported, err := a.ingester.ImportText(strings.Join(result.Snippets, "\n"))
	if err != nil {
		return err
	}
	printImportSummary(pageURL, imported)
	return nil
}

func printImportSummary(source string, result *models.ImportResult) {
	fmt.Println(separator)
	fmt.Printf("Import complete: %s\n", source)
	fmt.Printf("  Lines:         %d\n", result.Lines)
	fmt.Printf("  Accepted:      %d\n", result.Accepted)
	fmt.Printf("  Rejected:      %d\n", len(result.Rejected))
	for _, r := range result.Rejected {
		fmt.Printf("    line %d %q: %s\n", r.Line, r.ProductName, strings.Join(r.Errors, "; "))
	}
	if len(result.Unparsed) > 0 {
		fmt.Printf("  Unparsed:      %v\n", result.Unparsed)
	}
	fmt.Println(separator)
}

func printScrapeSummary(result *scraper.Result) {
	fmt.Fprintln(os.Stderr, separator)
	fmt.Fprintln(os.Stderr, "Scrape complete")
	fmt.Fprintf(os.Stderr, "  Snippets:      %d\n", len(result.Snippets))
	fmt.Fprintf(os.Stderr, "  Requests:      %d\n", result.RequestCount)
	fmt.Fprintf(os.Stderr, "  Errors:        %d\n", result.ErrorCount)
	fmt.Fprintf(os.Stderr, "  Retries:       %d\n", result.RetryCount)
	fmt.Fprintf(os.Stderr, "  Failed URLs:   %d\n", len(result.FailedURLs))
	if len(result.ErrorsByType) > 0 {
		fmt.Fprintf(os.Stderr, "  Error types:   %v\n", result.ErrorsByType)
	}
	fmt.Fprintf(os.Stderr, "  Duration:      %v\n", result.EndTime.Sub(result.StartTime))
	fmt.Fprintln(os.Stderr, separator)
}

func printPricing(res pricing.Result, prices []models.PriceData) {
	p := res.Pricing
	fmt.Println(separator)
	fmt.Printf("%s (source: %s)\n", p.ProductName, res.Source)
	fmt.Printf("  Lowest:        %.2f\n", p.LowestPrice)
	fmt.Printf("  Highest:       %.2f\n", p.HighestPrice)
	fmt.Println()
	if len(prices) == 0 {
		fmt.Println("  No platform matches the filters")
	}
	for _, price := range prices {
		stock := "in stock"
		if !price.InStock {
			stock = "out of stock"
		}
		line := fmt.Sprintf("  %-10s %10.2f", price.Platform, price.Price)
		if price.OriginalPrice != nil {
			line += fmt.Sprintf("  was %.2f", *price.OriginalPrice)
		}
		if price.Discount != nil {
			line += fmt.Sprintf(" (-%.0f%%)", *price.Discount)
		}
		fmt.Printf("%s  %.1f★ %d reviews  %s\n", line, price.Rating, price.Reviews, stock)
		if price.URL != "" {
			fmt.Printf("  %-10s %s\n", "", price.URL)
		}
	}
	fmt.Println(separator)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
