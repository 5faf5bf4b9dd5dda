package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"tooba/internal/catalog"
	"tooba/internal/config"
	"tooba/internal/match"
	"tooba/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "scanner",
	Short: "Scan a TV library and print what the catalog would hold",
	Long: `scanner walks a library root the same way the server does and prints a
per-show summary, or the whole catalog as JSON. With --interval it keeps
rescanning until interrupted.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runScan,
}

var (
	rootPath string
	interval time.Duration
	asJSON   bool
)

func init() {
	rootCmd.Flags().StringVar(&rootPath, "root", "", "library root containing one directory per show (default TOOBA_ROOT)")
	rootCmd.Flags().DurationVar(&interval, "interval", envDuration("SCAN_INTERVAL", 0), "rescan every interval; 0 scans once")
	rootCmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON instead of a summary")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "scanner:", err)
		os.Exit(1)
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	switch {
	case rootPath != "":
		cfg.RootPath = rootPath
	case len(args) > 0:
		cfg.RootPath = args[0]
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// logs go to stderr so stdout stays machine readable
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Out: cmd.ErrOrStderr()})
	out := cmd.OutOrStdout()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := match.New(cfg.VideoExtensions, cfg.ThumbExtension, cfg.MatchThreshold)
	scanner := catalog.NewScanner(os.DirFS(cfg.RootPath), cfg.RootPath, m, log)

	log.Info().Str("root", cfg.RootPath).Dur("interval", interval).Msg("scanner starting")
	for {
		cat, err := scanner.Scan(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil && interval <= 0:
			return err
		case err != nil:
			log.Error().Err(err).Msg("scan error")
		case asJSON:
			if err := printJSON(out, cat); err != nil {
				return err
			}
		default:
			printSummary(out, cat)
		}
		if interval <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func printSummary(w io.Writer, cat *catalog.Catalog) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SHOW\tEPISODES\tWITH VIDEO\tWITH METADATA")
	for _, sh := range cat.Shows() {
		var video, meta int
		for _, ep := range sh.Episodes {
			if ep.HasVideo() {
				video++
			}
			if ep.HasMetadata {
				meta++
			}
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", sh.Title, len(sh.Episodes), video, meta)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n%d shows, %d episodes, %d issues (scanned %s)\n",
		cat.ShowCount(), cat.EpisodeCount(), len(cat.Issues()), cat.ScannedAt.Format(time.RFC3339))
	for _, is := range cat.Issues() {
		fmt.Fprintf(w, "  ! %s\n", is.Error())
	}
}

func printJSON(w io.Writer, cat *catalog.Catalog) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"scanned_at": cat.ScannedAt,
		"shows":      cat.Shows(),
	})
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
