// Package main is the entry point for featurehost.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dshills/featurehost/internal/config"
	"github.com/dshills/featurehost/internal/feature"
	"github.com/dshills/featurehost/internal/lsp"
	"github.com/dshills/featurehost/internal/plugin"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// shutdownTimeout bounds stopping language servers and plugins on exit.
const shutdownTimeout = 5 * time.Second

// options are the command-line settings.
type options struct {
	ConfigPaths []string
	PluginDirs  []string
	LogLevel    string
	NoServers   bool
	Stdin       bool
	Query       query
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	var fileOpts []config.Option
	if len(opts.ConfigPaths) > 0 {
		fileOpts = append(fileOpts, config.WithFiles(opts.ConfigPaths...))
	}
	cfg, err := config.Load(fileOpts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		return 1
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	logger := cfg.Log.NewLogger(os.Stderr)

	engineOpts, cache, err := cfg.EngineOptions(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	if cache != nil {
		defer cache.Close()
	}
	engine := feature.NewEngine(engineOpts...)

	// Handle signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	plugins := startPlugins(ctx, engine, cfg, opts, logger)
	servers := lsp.NewManager(engine, logger)
	if !opts.NoServers {
		if err := servers.Start(ctx, serverConfigs(cfg, logger)...); err != nil {
			logger.Warn("some language servers did not start", "error", err)
		}
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := servers.Close(shutdownCtx); err != nil {
			logger.Warn("stopping language servers", "error", err)
		}
		if err := plugins.Close(shutdownCtx); err != nil {
			logger.Warn("unloading plugins", "error", err)
		}
	}()

	docs := newDocuments()
	if opts.Stdin {
		if err := serveLines(ctx, engine, docs, os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	result, err := answer(ctx, engine, docs, opts.Query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// startPlugins loads the script providers and, when configured, watches
// them for changes. Plugins that fail to load are logged and skipped.
func startPlugins(ctx context.Context, engine *feature.Engine, cfg *config.Config, opts options, logger *slog.Logger) *plugin.Manager {
	mcfg := plugin.DefaultManagerConfig()
	mcfg.ExecutionTimeout = cfg.Plugins.Timeout.Std()
	mcfg.Debounce = cfg.Plugins.Debounce.Std()
	mcfg.Logger = logger
	if dirs := append(append([]string(nil), cfg.Plugins.Dirs...), opts.PluginDirs...); len(dirs) > 0 {
		mcfg.PluginPaths = dirs
	}

	m := plugin.NewManager(engine, mcfg)
	if err := m.LoadAll(ctx); err != nil {
		logger.Warn("some plugins did not load", "error", err)
	}
	if cfg.Plugins.Watch && opts.Stdin {
		if err := m.Watch(ctx); err != nil {
			logger.Warn("plugin watching disabled", "error", err)
		}
	}
	return m
}

// serverConfigs converts the enabled servers of cfg.
func serverConfigs(cfg *config.Config, logger *slog.Logger) []lsp.ServerConfig {
	var out []lsp.ServerConfig
	for _, s := range cfg.Servers {
		if s.Disabled {
			logger.Debug("language server disabled", "server", s.Name)
			continue
		}
		kinds, _ := s.Kinds() // validated by config.Load
		sc := lsp.ServerConfig{
			Name:     s.Name,
			Command:  s.Command,
			Args:     s.Args,
			Env:      s.Env,
			RootURI:  s.RootURI,
			Selector: s.Selector,
			Kinds:    kinds,
		}
		if s.InitializationOptions != nil {
			sc.InitializationOptions = s.InitializationOptions
		}
		out = append(out, sc)
	}
	return out
}

// answer loads the document named by q and runs q.
func answer(ctx context.Context, engine *feature.Engine, docs *documents, q query) (any, error) {
	kind, err := feature.ParseKind(q.Feature)
	if err != nil {
		return nil, err
	}
	var doc feature.Document
	if kind != feature.KindWorkspaceSymbol || q.File != "" {
		if doc, err = docs.open(q.File, q.Language); err != nil {
			return nil, err
		}
	}
	return q.run(ctx, engine, doc)
}

// lineResult is one answer in -stdin mode.
type lineResult struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// serveLines answers one JSON query per input line with one JSON line.
func serveLines(ctx context.Context, engine *feature.Engine, docs *documents, r io.Reader, w io.Writer) error {
	enc := json.NewEncoder(w)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var out lineResult
		var q query
		if err := json.Unmarshal([]byte(line), &q); err != nil {
			out.Error = fmt.Sprintf("invalid query: %v", err)
		} else if result, err := answer(ctx, engine, docs, q); err != nil {
			out.Error = err.Error()
		} else {
			out.Result = result
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	return scanner.Err()
}

// stringList is a repeatable or comma-separated flag.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}

func parseFlags() options {
	var opts options
	var configs, plugins stringList
	var showVersion bool
	var showHelp bool
	q := &opts.Query

	flag.Var(&configs, "config", "Configuration file (repeatable)")
	flag.Var(&configs, "c", "Configuration file (shorthand)")
	flag.Var(&plugins, "plugins", "Additional plugin directories (comma-separated)")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&opts.NoServers, "no-servers", false, "Do not start language servers")
	flag.BoolVar(&opts.Stdin, "stdin", false, "Answer JSON queries read line by line from standard input")
	flag.StringVar(&q.Language, "language", "", "Language id (default: from the file extension)")
	flag.StringVar(&q.Language, "l", "", "Language id (shorthand)")
	flag.IntVar(&q.Pos.Line, "line", 1, "Line of the position (1-based)")
	flag.IntVar(&q.Pos.Character, "col", 1, "Column of the position (1-based)")
	flag.IntVar(&q.End.Line, "end-line", 0, "Line of the range end (1-based)")
	flag.IntVar(&q.End.Character, "end-col", 1, "Column of the range end (1-based)")
	flag.StringVar(&q.NewName, "new-name", "", "New name for rename")
	flag.StringVar(&q.Trigger, "trigger", "", "Trigger character for completion, signature help or on-type formatting")
	flag.StringVar(&q.Query, "query", "", "Query for workspace symbols")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "featurehost - language feature aggregation\n\n")
		fmt.Fprintf(os.Stderr, "Usage: featurehost [options] <feature> [file]\n")
		fmt.Fprintf(os.Stderr, "       featurehost [options] -stdin\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nFeatures:\n  ")
		for i, k := range feature.Kinds() {
			if i > 0 {
				fmt.Fprint(os.Stderr, ", ")
			}
			fmt.Fprint(os.Stderr, k)
		}
		fmt.Fprintf(os.Stderr, "\n\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  featurehost hover main.go -line 12 -col 7\n")
		fmt.Fprintf(os.Stderr, "  featurehost completion main.go -line 3 -col 9 -trigger .\n")
		fmt.Fprintf(os.Stderr, "  featurehost rename main.go -line 4 -col 6 -new-name total\n")
		fmt.Fprintf(os.Stderr, "  featurehost workspaceSymbol -query Handler\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("featurehost %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	switch opts.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.LogLevel)
		os.Exit(1)
	}

	opts.ConfigPaths = configs
	opts.PluginDirs = plugins

	if !opts.Stdin {
		// Flags may follow the positional arguments.
		args := flag.Args()
		if len(args) > 0 {
			q.Feature = args[0]
			flag.CommandLine.Parse(args[1:])
			args = flag.Args()
			if len(args) > 0 {
				q.File = args[0]
				flag.CommandLine.Parse(args[1:])
			}
		}
		if err := checkQuery(*q); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
			flag.Usage()
			os.Exit(2)
		}
	}
	return opts
}

// checkQuery reports a command-line query that cannot be run.
func checkQuery(q query) error {
	if q.Feature == "" {
		return errors.New("missing feature")
	}
	kind, err := feature.ParseKind(q.Feature)
	if err != nil {
		return err
	}
	switch {
	case kind != feature.KindWorkspaceSymbol && q.File == "":
		return fmt.Errorf("%s needs a file", kind)
	case kind == feature.KindRename && q.NewName == "":
		return errors.New("rename needs -new-name")
	case kind == feature.KindOnTypeFormatting && q.Trigger == "":
		return errors.New("onTypeFormatting needs -trigger")
	}
	return nil
}
