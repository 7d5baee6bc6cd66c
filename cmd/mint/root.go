package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/tomrford/mint/block"
	"github.com/tomrford/mint/datasource"
	"github.com/tomrford/mint/layout"
	"github.com/tomrford/mint/record"
	"github.com/tomrford/mint/report"
)

var (
	flagXlsx        string
	flagPostgres    string
	flagHTTP        string
	flagJSON        string
	flagMainSheet   string
	flagVersions    string
	flagOut         string
	flagRecordWidth int
	flagFormat      string
	flagExportJSON  string
	flagStrict      bool
	flagStats       bool
	flagQuiet       bool
)

var rootCmd = &cobra.Command{
	Use:   "mint name=layout.toml [name=layout.toml ...]",
	Short: "Builds Intel HEX / Motorola S-record images from TOML layouts",
	Long: "mint resolves version-stacked field values against an external data\n" +
		"source and encodes one or more named blocks into a flashable memory image.",
	Args: cobra.MinimumNArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.Flags().StringVar(&flagXlsx, "xlsx", "", "Excel workbook data source")
	rootCmd.Flags().StringVar(&flagPostgres, "postgres", "", "Postgres data source (inline JSON or path)")
	rootCmd.Flags().StringVar(&flagHTTP, "http", "", "HTTP data source (inline JSON or path)")
	rootCmd.Flags().StringVar(&flagJSON, "json", "", "JSON data source (inline JSON or path)")
	rootCmd.Flags().StringVar(&flagMainSheet, "main-sheet", "", "Excel main sheet name")
	rootCmd.Flags().StringVarP(&flagVersions, "versions", "v", "", "slash-separated version stack, e.g. VarA/Debug/Default")
	rootCmd.Flags().StringVar(&flagOut, "out", "", "output file path (default: stdout)")
	rootCmd.Flags().IntVar(&flagRecordWidth, "record-width", 16, "max data bytes per emitted record")
	rootCmd.Flags().StringVar(&flagFormat, "format", "hex", "output format: hex|mot")
	rootCmd.Flags().StringVar(&flagExportJSON, "export-json", "", "write the resolved-value export report to this path")
	rootCmd.Flags().BoolVar(&flagStrict, "strict", false, "reject lossy numeric conversions instead of casting")
	rootCmd.Flags().BoolVar(&flagStats, "stats", false, "print block/padding statistics after the build")
	rootCmd.Flags().BoolVar(&flagQuiet, "quiet", false, "suppress progress spinner and per-block logging")

	rootCmd.AddCommand(versionCmd)
}

// selector is one `name=file` positional argument: the block to build and
// the layout file it lives in.
type selector struct {
	block string
	file  string
}

func parseSelectors(args []string) ([]selector, error) {
	sels := make([]selector, 0, len(args))
	for _, a := range args {
		name, file, ok := strings.Cut(a, "=")
		if !ok || name == "" || file == "" {
			return nil, fmt.Errorf("invalid block selector %q: expected name=file.toml", a)
		}
		sels = append(sels, selector{block: name, file: file})
	}
	return sels, nil
}

func dataSourceFlagCount() int {
	n := 0
	for _, f := range []string{flagXlsx, flagPostgres, flagHTTP, flagJSON} {
		if f != "" {
			n++
		}
	}
	return n
}

func buildDataSource(ctx context.Context, versions []string) (datasource.Source, error) {
	switch {
	case flagXlsx != "":
		return datasource.NewExcelSource(flagXlsx, flagMainSheet, versions)
	case flagPostgres != "":
		return datasource.NewSQLSource(ctx, flagPostgres, versions)
	case flagHTTP != "":
		return datasource.NewHTTPSource(flagHTTP, versions, datasource.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}))
	case flagJSON != "":
		return datasource.NewJSONSource(flagJSON, versions)
	default:
		return nil, nil
	}
}

func newSpinner() *spinner.Spinner {
	return spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
}

func runBuild(cmd *cobra.Command, args []string) error {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if flagFormat != "hex" && flagFormat != "mot" {
		return fmt.Errorf("invalid --format %q: must be hex or mot", flagFormat)
	}
	if dataSourceFlagCount() > 1 {
		return fmt.Errorf("at most one of --xlsx, --postgres, --http, --json may be given")
	}
	if dataSourceFlagCount() == 1 && flagVersions == "" {
		return fmt.Errorf("--versions is required when a data source flag is given")
	}

	sels, err := parseSelectors(args)
	if err != nil {
		return err
	}

	var versions []string
	if flagVersions != "" {
		versions, err = datasource.ParseVersionStack(flagVersions)
		if err != nil {
			return err
		}
	}

	ctx := context.Background()
	ds, err := buildDataSource(ctx, versions)
	if err != nil {
		return fmt.Errorf("constructing data source: %w", err)
	}
	if ds != nil {
		defer ds.Close()
	}

	sp := newSpinner()
	if !flagQuiet {
		sp.Suffix = " resolving fields..."
		sp.Start()
	}

	reporter := report.NewReporter()
	configs := map[string]*layout.Config{}
	segments := make([]record.Segment, 0, len(sels))
	blocksProcessed := 0
	paddingBytes := 0

	for _, sel := range sels {
		cfg, ok := configs[sel.file]
		if !ok {
			cfg, err = layout.Load(sel.file)
			if err != nil {
				sp.Stop()
				return fmt.Errorf("loading layout %s: %w", sel.file, err)
			}
			configs[sel.file] = cfg
		}

		b, ok := cfg.Blocks[sel.block]
		if !ok {
			sp.Stop()
			return fmt.Errorf("block %q not found in %s", sel.block, sel.file)
		}

		if !flagQuiet {
			log.Info("building block", "file", sel.file, "block", sel.block)
		}

		sink := reporter.ForBlock(sel.file, sel.block)
		data, padCount, err := block.Build(b, cfg.Settings, ds, flagStrict, sink)
		if err != nil {
			sp.Stop()
			return fmt.Errorf("building block %s/%s: %w", sel.file, sel.block, err)
		}

		segments = append(segments, record.Segment{
			Address: b.EffectiveAddress(cfg.Settings),
			Data:    data,
		})
		blocksProcessed++
		paddingBytes += padCount
	}

	if !flagQuiet {
		sp.Stop()
	}

	var out string
	if flagFormat == "mot" {
		out = record.EncodeSRecord(segments, flagRecordWidth)
	} else {
		out = record.EncodeIntelHex(segments, flagRecordWidth)
	}

	if flagOut == "" {
		fmt.Print(out)
	} else if err := os.WriteFile(flagOut, []byte(out), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", flagOut, err)
	}

	if flagExportJSON != "" {
		if err := reporter.WriteFile(flagExportJSON); err != nil {
			return fmt.Errorf("writing export report %s: %w", flagExportJSON, err)
		}
	}

	if flagStats {
		fmt.Fprintf(os.Stderr, "blocks processed: %d, padding bytes: %d\n", blocksProcessed, paddingBytes)
	}

	return nil
}
