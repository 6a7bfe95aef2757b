package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/presbrey/asset-index/internal/config"
	"github.com/presbrey/asset-index/internal/manifest"
)

func init() {
	// a missing .env is fine
	godotenv.Load()
}

func printUsage(flags *flag.FlagSet) {
	out := flags.Output()
	fmt.Fprintf(out, "Usage: asset-index [options]\n\n")
	fmt.Fprintf(out, "asset-index writes an index.json into each asset directory listing\n")
	fmt.Fprintf(out, "the files it contains, so they can be loaded without directory listing.\n\n")
	fmt.Fprintf(out, "Options:\n")
	flags.PrintDefaults()
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("asset-index", flag.ContinueOnError)
	flags.SetOutput(stderr)
	root := flags.String("root", "", "Repository root the target directories are relative to (overrides ASSET_INDEX_ROOT env var)")
	targetsFile := flags.String("targets", "", "TOML file of [[target]] tables to use instead of the built-in list (overrides ASSET_INDEX_TARGETS env var)")
	verbose := flags.Bool("v", false, "Log each manifest as it is written (overrides ASSET_INDEX_VERBOSE env var)")
	flags.Usage = func() { printUsage(flags) }
	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	if flags.NArg() > 0 {
		fmt.Fprintf(stderr, "Unknown argument: %s\n", flags.Arg(0))
		printUsage(flags)
		return 2
	}

	// Parse environment variables first
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	// CLI flags override environment variables
	if *root != "" {
		cfg.Root = *root
	}
	if *targetsFile != "" {
		cfg.TargetsFile = *targetsFile
	}
	if *verbose {
		cfg.Verbose = true
	}

	targets, err := cfg.Targets()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	var logger *log.Logger
	if cfg.Verbose {
		logger = log.New(stderr, "asset-index: ", log.LstdFlags)
	}

	if err := manifest.Run(cfg.Root, targets, logger); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Generated %s for %d targets.\n", manifest.IndexName, len(targets))
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
