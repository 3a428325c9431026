package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/aluiziolira/pricescout/config"
)

type command struct {
	run   func(args []string) error
	usage string
}

var commands = map[string]command{
	"import": {runImport, "import [-format text|json|csv] [file ...]   ingest products (stdin when no file)"},
	"search": {runSearch, "search [filters] <query ...>                 compare prices for a product"},
	"export": {runExport, "export [-format json|csv|jsonl|dual] [-o file]  dump the product database"},
	"stats":  {runStats, "stats                                         database, history and analytics summary"},
	"clear":  {runClear, "clear <products|cache|history|analytics|all>  delete stored data"},
	"sample": {runSample, "sample                                        load the demo catalogue"},
	"scrape": {runScrape, "scrape [-selector css] [-import] <url>        fetch text snippets from a page"},
	"serve":  {runServe, "serve [-addr :8080]                           run the HTTP API"},
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err := cmd.run(os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		slog.Error(os.Args[1]+" failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(os.Stderr, "usage: pricescout <command> [flags]")
	fmt.Fprintln(os.Stderr)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %s\n", commands[name].usage)
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "common flags: -v, -env file, -storage memory|sqlite, -db path")
}

// commonFlags are accepted by every command.
type commonFlags struct {
	verbose bool
	envFile string
	driver  string
	dbPath  string
}

func newFlagSet(name string) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	common := &commonFlags{}
	fs.BoolVar(&common.verbose, "v", false, "Enable verbose logging")
	fs.StringVar(&common.envFile, "env", "", "Environment file to load (default .env)")
	fs.StringVar(&common.driver, "storage", "", "Storage driver: memory or sqlite")
	fs.StringVar(&common.dbPath, "db", "", "SQLite database path")
	return fs, common
}

// loadConfig installs the logger and resolves configuration from the env
// file, the process environment and the command-line overrides, in that
// order of increasing precedence.
func loadConfig(common *commonFlags, override func(*config.Config)) (*config.Config, error) {
	logger, level := newLogger(common.verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	var files []string
	if common.envFile != "" {
		files = append(files, common.envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}

	if common.driver != "" {
		cfg.StorageDriver = common.driver
	}
	if common.dbPath != "" {
		cfg.StoragePath = common.dbPath
	}
	if common.verbose {
		cfg.Verbose = true
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Verbose {
		level.Set(slog.LevelDebug)
	}
	return cfg, nil
}

// openApp is loadConfig followed by newApp.
func openApp(common *commonFlags, override func(*config.Config)) (*app, error) {
	cfg, err := loadConfig(common, override)
	if err != nil {
		return nil, err
	}
	a, err := newApp(cfg)
	if err != nil {
		return nil, err
	}
	slog.Debug("storage opened",
		slog.String("driver", cfg.StorageDriver),
		slog.String("path", cfg.StoragePath),
	)
	return a, nil
}

func closeApp(a *app) {
	if err := a.Close(); err != nil {
		slog.Error("close app", slog.Any("error", err))
	}
}

// newLogger writes to stderr so command output on stdout stays clean.
func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
