package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/greenarc/esgpipe/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	serverPort   = flag.Int("port", 0, "Server port (overrides config)")
	serverPortP  = flag.Int("p", 0, "Server port (shorthand, overrides config)")
	serverHost   = flag.String("host", "", "Server host (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state shared by the subcommand files
	config *common.Config
	logger arbor.ILogger
)

func init() {
	// Register custom flag for multiple config files
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
	flag.Usage = printUsage
}

func printUsage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "esgpipe - ESG disclosure ingestion, extraction, and scoring pipeline\n\n")
	fmt.Fprintf(out, "Usage:\n")
	fmt.Fprintf(out, "  esgpipe [flags] <command>\n\n")
	fmt.Fprintf(out, "Commands:\n")
	fmt.Fprintf(out, "  serve                Run the query API server (default)\n")
	fmt.Fprintf(out, "  worker embed         Run the embedding worker\n")
	fmt.Fprintf(out, "  worker extract       Run the extraction worker\n")
	fmt.Fprintf(out, "  worker telemetry     Run the telemetry scrape and sink workers\n")
	fmt.Fprintf(out, "  sync catalog         Reconcile the company catalog against the exchange\n")
	fmt.Fprintf(out, "  sync announcements   Pull the latest announcements snapshot\n")
	fmt.Fprintf(out, "  ingest               Fetch and queue sustainability reports\n")
	fmt.Fprintf(out, "  schedule             Run the telemetry fan-out scheduler\n")
	fmt.Fprintf(out, "  version              Print version information\n\n")
	fmt.Fprintf(out, "Flags:\n")
	flag.PrintDefaults()
}

func main() {
	// Parse command-line flags
	flag.Parse()

	// Handle version flag
	if *showVersion || *showVersionV {
		fmt.Printf("esgpipe version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Merge port flags (shorthand takes precedence)
	finalPort := *serverPort
	if *serverPortP != 0 {
		finalPort = *serverPortP
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner
	var err error

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("esgpipe.toml"); err == nil {
			configFiles = append(configFiles, "esgpipe.toml")
		} else if _, err := os.Stat("deployments/local/esgpipe.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/esgpipe.toml")
		}
	}

	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		// Use temporary logger for startup errors
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	// Apply command-line flag overrides (highest priority)
	common.ApplyFlagOverrides(config, finalPort, *serverHost)

	logger = common.InitLogger(config)

	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Str("environment", config.Environment).
		Str("log_level", config.Logging.Level).
		Msg("Configuration loaded")

	// Every long-running subcommand stops on SIGINT/SIGTERM via this context.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := flag.Args()
	command := "serve"
	if len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "serve":
		err = runServe(ctx)
	case "worker":
		err = runWorker(ctx, args[1:])
	case "sync":
		err = runSync(ctx, args[1:])
	case "ingest":
		err = runIngest(ctx, args[1:])
	case "schedule":
		err = runSchedule(ctx)
	case "version":
		fmt.Printf("esgpipe version %s\n", common.GetFullVersion())
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", command)
		printUsage()
		os.Exit(2)
	}

	if err != nil {
		logger.Fatal().Err(err).Str("command", command).Msg("Command failed")
		os.Exit(1)
	}
}
