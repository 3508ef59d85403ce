package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ironsheep/street-width-mcp/internal/batch"
	"github.com/ironsheep/street-width-mcp/internal/config"
	"github.com/ironsheep/street-width-mcp/internal/diagnostics"
	"github.com/ironsheep/street-width-mcp/internal/estimate"
	"github.com/ironsheep/street-width-mcp/internal/logging"
	"github.com/ironsheep/street-width-mcp/internal/manifest"
	"github.com/ironsheep/street-width-mcp/internal/output"
	"github.com/ironsheep/street-width-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const usage = `street-width - sidewalk and street-buffer width from two-pitch captures

Usage:
  street-width [serve] [--config FILE]     MCP server on stdin/stdout (default)
  street-width http [--addr :8080] [--config FILE]
  street-width batch --manifest FILE --root DIR --out DIR [options]
  street-width --version | --help

Run "street-width batch --help" for batch options.

Environment variables:
  STREET_WIDTH_LOG_LEVEL=ops|diag|debug|off   Log streams written to stderr
  STREET_WIDTH_<KEY>=value                    Override a configuration key,
                                              e.g. STREET_WIDTH_WORKERS=8

A .env file in the working directory is loaded first when present.
`

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("street-width %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Print(usage)
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to load .env: %v", err)
	}
	logging.SetWriters(logging.ForLevel(os.Getenv("STREET_WIDTH_LOG_LEVEL"), os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("street-width: %v", err)
	}
}

// run dispatches a subcommand. Arguments starting with "-" select serve.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	cmd := "serve"
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}
	switch cmd {
	case "serve":
		return runServe(ctx, args)
	case "http":
		return runHTTP(ctx, args)
	case "batch":
		return runBatch(ctx, args, stdout)
	default:
		return fmt.Errorf("unknown command %q (want serve, http or batch)", cmd)
	}
}

// loadConfig reads path, or the defaults when path is empty, then applies
// STREET_WIDTH_* overrides.
func loadConfig(path string, lookup func(string) (string, bool)) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "Configuration file (.json, .yaml or .yml)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(*cfgPath, os.LookupEnv)
	if err != nil {
		return err
	}

	logging.Opsf("Street width MCP server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	srv := server.New(estimate.NewEngine(cfg), Version)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runHTTP(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("http", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "Configuration file (.json, .yaml or .yml)")
	addr := fs.String("addr", ":8080", "HTTP listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(*cfgPath, os.LookupEnv)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           server.NewHTTPHandler(server.New(estimate.NewEngine(cfg), Version)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logging.Opsf("Starting HTTP server on %s", *addr)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown: %w", err)
		}
		logging.Opsf("HTTP server stopped")
		return nil
	}
}

func runBatch(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "Configuration file (.json, .yaml or .yml)")
	manifestPath := fs.String("manifest", "", "GeoJSON FeatureCollection of link midpoints (required)")
	root := fs.String("root", "", "Capture root laid out as <root>/<pano_id>/<side> (required)")
	outDir := fs.String("out", "", "Directory for one CSV per link (required)")
	variantName := fs.String("variant", "sidewalk", "What to measure: sidewalk or buffer")
	geojsonPath := fs.String("geojson", "", "Also write every row to this GeoJSON file")
	dbPath := fs.String("db", "", "Also record the run in this SQLite database")
	workers := fs.Int("workers", 0, "Links measured in parallel (default from configuration)")
	diag := fs.Bool("diagnostics", false, "Write line overlays and edge charts")
	diagDir := fs.String("diagnostics-dir", "", "Write diagnostics here instead of next to the captures")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *manifestPath == "" || *root == "" || *outDir == "" {
		fs.Usage()
		return errors.New("--manifest, --root and --out are required")
	}

	variant, err := estimate.ParseVariant(*variantName)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(*cfgPath, os.LookupEnv)
	if err != nil {
		return err
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *diag {
		cfg.Diagnostics = true
	}
	if *diagDir != "" {
		cfg.DiagnosticsDir = *diagDir
	}

	m, err := manifest.LoadMidpoints(*manifestPath)
	if err != nil {
		return err
	}
	logging.Opsf("manifest: %d links, %d with both sides, %d with one side", len(m.IDs), m.BothSides(), m.OneSide())

	var opts []estimate.Option
	var renderer *diagnostics.Renderer
	if cfg.Diagnostics {
		renderer = diagnostics.NewRenderer(cfg.ImageSize, cfg.CenterY, cfg.BandWidth)
		opts = append(opts, estimate.WithSink(renderer))
	}

	var store *output.Store
	if *dbPath != "" {
		if store, err = output.OpenStore(*dbPath); err != nil {
			return err
		}
		defer store.Close()
	}

	runner := batch.NewRunner(estimate.NewEngine(cfg, opts...), batch.Options{
		Root:           *root,
		OutDir:         *outDir,
		GeoJSONPath:    *geojsonPath,
		Store:          store,
		Variant:        variant,
		Workers:        cfg.Workers,
		Diagnostics:    cfg.Diagnostics,
		DiagnosticsDir: cfg.DiagnosticsDir,
	})
	sum, _, err := runner.Run(ctx, m)
	if err != nil {
		return err
	}
	if renderer != nil {
		if err := renderer.Err(); err != nil {
			logging.Opsf("diagnostics: %v", err)
		}
		logging.Opsf("diagnostics: %d files", len(renderer.Written()))
	}

	runID := sum.RunID
	if runID == "" {
		runID = "-"
	}
	fmt.Fprintf(stdout, "run %s: %d links, %d locations, %d measured, %d failed, %d no buffer\n",
		runID, sum.Links, sum.Locations, sum.Measured, sum.Failed, sum.NoBuffer)
	for _, f := range sum.Files {
		fmt.Fprintln(stdout, f)
	}
	return nil
}
