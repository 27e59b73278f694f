// builtingen - generate builtin object tables for the embedded VM
//
// Usage:
//
//	builtingen                       # find builtingen.toml upward from cwd
//	builtingen -c ./config -o ./out  # explicit project dir and output dir
//	builtingen -target literal -v    # literal target only, verbose
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/chazu/builtingen/gen"
	"github.com/chazu/builtingen/graph"
	"github.com/chazu/builtingen/manifest"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

func main() {
	dir := flag.String("c", ".", "Directory to search upward for "+manifest.FileName)
	outDir := flag.String("o", "", "Output directory (overrides the manifest)")
	targets := flag.String("target", "", "Comma-separated targets: packed, literal (overrides the manifest)")
	lightfuncs := flag.Bool("lightfuncs", false, "Convert eligible functions to lightfuncs")
	skipSchema := flag.Bool("skip-schema", false, "Skip schema validation of metadata files")
	stats := flag.Bool("stats", false, "Print run statistics as JSON to stdout")
	verbose := flag.Int("v", 0, "Log verbosity (0 warnings, 1 info, 2 debug)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: builtingen [options]\n\n")
		fmt.Fprintf(os.Stderr, "Generates builtin initialization data from YAML metadata.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	commonlog.Configure(*verbose, nil)

	m, err := manifest.FindAndLoad(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if m == nil {
		fmt.Fprintf(os.Stderr, "Error: no %s found from %s\n", manifest.FileName, *dir)
		os.Exit(1)
	}

	cfg, err := gen.FromManifest(m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}
	if *targets != "" {
		cfg.Targets = nil
		for _, s := range strings.Split(*targets, ",") {
			t, err := graph.ParseTarget(strings.TrimSpace(s))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			cfg.Targets = append(cfg.Targets, t)
		}
	}
	if *lightfuncs {
		cfg.Lightfuncs = true
	}
	if *skipSchema {
		cfg.SkipSchema = true
	}

	rep, err := gen.Run(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *stats {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}
	for _, o := range rep.Outputs {
		fmt.Printf("%-20s %8d bytes\n", o.File, o.Bytes)
	}
}
