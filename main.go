// potrans — translate untranslated gettext PO entries through hosted
// translation APIs (DeepL, DeepSeek, Azure Translator, Google Cloud
// Translation), with placeholder protection, a local translation cache,
// and resumable progress.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"potrans/cache"
	"potrans/config"
	"potrans/pofile"
	"potrans/progress"
	"potrans/provider"
	"potrans/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	blue   = color.New(color.FgBlue).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.Bold, color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", blue("[INFO]"), fmt.Sprintf(format, args...))
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", green("[OK]"), fmt.Sprintf(format, args...))
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", yellow("[WARN]"), fmt.Sprintf(format, args...))
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", red("[ERROR]"), fmt.Sprintf(format, args...))
}

// ---------------------------------------------------------------------------
// Flags
// ---------------------------------------------------------------------------

var flags struct {
	api        string
	targetLang string
	batchSize  int
	parallel   int
	noCache    bool
	resume     bool
	delay      float64
	cacheDir   string
	verbose    bool
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "potrans <input.po> <output.po>",
		Short: "Translate untranslated PO entries through hosted translation APIs",
		Long: `potrans — translate untranslated gettext PO entries.

Reads input.po, translates every untranslated entry with the selected
provider, and writes the result to output.po. HTML tags and format
variables (%s, %d, {0}) are protected from the provider and restored in
the translated text. Completed translations are cached locally, so
re-running never pays twice for the same string.

Long runs checkpoint every 50 entries; an interrupted run continues
with --resume.

Providers (credentials via environment or .env):
  deepl      DeepL API           DEEPL_API_KEY (":fx" suffix = free tier)
  deepseek   DeepSeek chat       DEEPSEEK_API_KEY
  azure      Azure Translator    AZURE_TRANSLATOR_KEY [AZURE_TRANSLATOR_REGION]
  google     Cloud Translation   GOOGLE_CLOUD_PROJECT GOOGLE_ACCESS_TOKEN`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args[0], args[1])
		},
	}

	root.Flags().StringVar(&flags.api, "api", "deepl", "Translation provider: deepl, deepseek, azure, google")
	root.Flags().StringVar(&flags.targetLang, "target-lang", "es", "Target language code")
	root.Flags().IntVar(&flags.batchSize, "batch-size", 10, "Entries per bulk request (1 disables batching)")
	root.Flags().IntVar(&flags.parallel, "parallel", 1, "Concurrent translation workers")
	root.Flags().BoolVar(&flags.noCache, "no-cache", false, "Skip the local translation cache")
	root.Flags().BoolVar(&flags.resume, "resume", false, "Continue an interrupted run from its last checkpoint")
	root.Flags().Float64Var(&flags.delay, "delay", 0.5, "Delay between provider calls in seconds")
	root.Flags().StringVar(&flags.cacheDir, "cache-dir", "", "Cache directory (default: ~/.cache/potrans)")
	root.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Verbose output")

	root.AddCommand(
		newStatsCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// applyFileDefaults lets .potrans.yaml fill in any flag the user did not
// set explicitly. Flags always win.
func applyFileDefaults(cmd *cobra.Command, f *config.File) {
	if f == nil {
		return
	}
	if f.API != "" && !cmd.Flags().Changed("api") {
		flags.api = f.API
	}
	if f.TargetLang != "" && !cmd.Flags().Changed("target-lang") {
		flags.targetLang = f.TargetLang
	}
	if f.BatchSize != 0 && !cmd.Flags().Changed("batch-size") {
		flags.batchSize = f.BatchSize
	}
	if f.Parallel != 0 && !cmd.Flags().Changed("parallel") {
		flags.parallel = f.Parallel
	}
	if f.Delay != 0 && !cmd.Flags().Changed("delay") {
		flags.delay = f.Delay
	}
	if f.CacheDir != "" && !cmd.Flags().Changed("cache-dir") {
		flags.cacheDir = f.CacheDir
	}
}

// ---------------------------------------------------------------------------
// translate (the root command)
// ---------------------------------------------------------------------------

func runTranslate(cmd *cobra.Command, inputPath, outputPath string) error {
	if err := config.LoadDotenv("."); err != nil {
		logWarning("Could not load .env: %v", err)
	}
	fileDefaults, err := config.LoadFile(".")
	if err != nil {
		return err
	}
	applyFileDefaults(cmd, fileDefaults)

	// Credentials first: a missing key should fail before any catalog work.
	creds, err := config.Credentials(flags.api)
	if err != nil {
		return err
	}
	prov, err := provider.New(flags.api, creds, nil)
	if err != nil {
		return err
	}

	catalog, err := loadCatalog(inputPath, outputPath)
	if err != nil {
		return err
	}

	var store *cache.Store
	if !flags.noCache {
		store = openCache()
	}

	untranslated := len(catalog.UntranslatedEntries())
	if flags.verbose {
		total, translated, fuzzy, _ := catalog.Stats()
		logInfo("Catalog: %d entries, %d translated, %d fuzzy, %d untranslated",
			total, translated, fuzzy, untranslated)
		logInfo("Provider: %s, target language: %s", prov.Name(), flags.targetLang)
	}
	if untranslated == 0 {
		logSuccess("All entries are already translated")
		return catalog.WriteFile(outputPath)
	}
	logInfo("Translating %d entries to %s via %s...", untranslated, flags.targetLang, prov.Name())

	bar := progressbar.NewOptions(untranslated,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%s[reset]", filepath.Base(outputPath))),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))

	// SIGINT/SIGTERM cancel the run; the orchestrator still persists the
	// catalog and the progress marker on the way out.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch := translate.New(prov, translate.Options{
		TargetLang: flags.targetLang,
		BatchSize:  flags.batchSize,
		Workers:    flags.parallel,
		Delay:      time.Duration(flags.delay * float64(time.Second)),
		Resume:     flags.resume,
		Cache:      store,
		OutputPath: outputPath,
		OnProgress: func(done, total int) { _ = bar.Set(done) },
		OnLog: func(format string, args ...any) {
			if flags.verbose {
				logInfo(format, args...)
			}
		},
		OnWarn: logWarning,
	})
	result, err := orch.Run(ctx, catalog)
	fmt.Fprintln(os.Stderr)

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if errors.Is(err, context.Canceled) {
		logWarning("Interrupted after %d of %d entries; rerun with --resume to continue",
			result.Translated, result.Total)
		return nil
	}

	logSuccess("Translated %d of %d entries (%d from cache), saved to %s",
		result.Translated, result.Total, result.CacheHits, outputPath)
	if result.Failed > 0 {
		logWarning("%d entries failed and remain untranslated; rerun with --resume to retry them",
			result.Failed)
	}
	return nil
}

// loadCatalog picks the catalog to work on. A resumed run prefers the
// checkpointed output file: it already carries every translation
// persisted before the interruption.
func loadCatalog(inputPath, outputPath string) (*pofile.File, error) {
	path := inputPath
	if flags.resume {
		if _, err := os.Stat(outputPath); err == nil {
			if n := progress.Load(outputPath); n > 0 {
				logInfo("Resuming from %s (%d entries already translated)", outputPath, n)
			}
			path = outputPath
		} else {
			logWarning("No checkpoint found at %s, starting from %s", outputPath, inputPath)
		}
	}

	catalog, err := pofile.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return catalog, nil
}

// openCache opens the translation cache, degrading to no cache on error.
func openCache() *cache.Store {
	dir := flags.cacheDir
	if dir == "" {
		var err error
		dir, err = cache.DefaultDir()
		if err != nil {
			logWarning("Cache disabled: %v", err)
			return nil
		}
	}
	store, err := cache.New(dir)
	if err != nil {
		logWarning("Cache disabled: %v", err)
		return nil
	}
	store.OnWarn = logWarning
	if flags.verbose {
		logInfo("Cache directory: %s", dir)
	}
	return store
}

// ---------------------------------------------------------------------------
// stats (read-only translation statistics)
// ---------------------------------------------------------------------------

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <file.po>",
		Short: "Show translation statistics for a PO file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(args[0])
		},
	}

	return cmd
}

func runStats(path string) error {
	catalog, err := pofile.ParseFile(path)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	total, translated, fuzzy, untranslated := catalog.Stats()
	percent := 0.0
	if total > 0 {
		percent = float64(translated) * 100 / float64(total)
	}

	fmt.Printf("%s\n", path)
	fmt.Printf("  Language:     %s\n", catalog.HeaderField("Language"))
	fmt.Printf("  Total:        %d\n", total)
	fmt.Printf("  Translated:   %d (%.1f%%)\n", translated, percent)
	fmt.Printf("  Fuzzy:        %d\n", fuzzy)
	fmt.Printf("  Untranslated: %d\n", untranslated)

	if n := progress.Load(path); n > 0 {
		fmt.Printf("  Checkpoint:   %d entries (resumable)\n", n)
	}
	return nil
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("potrans version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}

	return cmd
}
